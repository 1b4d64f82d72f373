package ports

import "time"

// Timer - запланований виклик, який можна скасувати
type Timer interface {
	// Stop скасовує виклик; false, якщо він вже відбувся або скасований
	Stop() bool
}

// Clock абстрагує час, щоб рушій симуляції можна було тестувати детерміновано
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}
