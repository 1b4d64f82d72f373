package ports

import (
	"context"
)

// KeyValueStore визначає мінімальний примітив довготривалого зберігання
type KeyValueStore interface {
	// Get повертає значення за ключем; found=false, якщо ключа немає
	Get(ctx context.Context, key string) (value []byte, found bool, err error)

	// Set перезаписує значення за ключем
	Set(ctx context.Context, key string, value []byte) error

	// Close звільняє з'єднання зі сховищем
	Close() error
}
