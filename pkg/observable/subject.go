// Package observable - невеликий суб'єкт publish/subscribe, що розсилає зміни
// стану будь-якій кількості слухачів, не блокуючи того, хто публікує.
package observable

import "sync"

// Subject розсилає значення підписникам. Publish ніколи не блокує.
// Без маркера переповнення найстаріше непрочитане значення відкидається,
// тож найновіше завжди доходить. З маркером (WithOverflowMarker) увесь
// непрочитаний хвіст замінюється маркером, і підписник знає, що пропустив значення.
type Subject[T any] struct {
	mu       sync.Mutex
	nextID   int
	subs     map[int]chan T
	closed   bool
	overflow *T
}

// Option налаштовує Subject
type Option[T any] func(*Subject[T])

// WithOverflowMarker задає значення, яке отримує підписник замість
// відкинутих через переповнений буфер значень
func WithOverflowMarker[T any](marker T) Option[T] {
	return func(s *Subject[T]) {
		s.overflow = &marker
	}
}

// NewSubject створює суб'єкт без підписників
func NewSubject[T any](opts ...Option[T]) *Subject[T] {
	s := &Subject[T]{subs: make(map[int]chan T)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe реєструє слухача. Функція cancel відписує його та закриває канал;
// її можна викликати кілька разів.
func (s *Subject[T]) Subscribe(buffer int) (<-chan T, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan T, buffer)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	id := s.nextID
	s.nextID++
	s.subs[id] = ch

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
	}
}

// Publish доставляє v кожному підписнику
func (s *Subject[T]) Publish(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	for _, ch := range s.subs {
		select {
		case ch <- v:
		default:
			if s.overflow != nil {
				s.markOverflow(ch)
				continue
			}
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- v:
			default:
			}
		}
	}
}

// markOverflow спорожняє буфер підписника і кладе туди маркер.
// Викликається під s.mu, тож інших відправників у канал немає.
func (s *Subject[T]) markOverflow(ch chan T) {
drain:
	for {
		select {
		case <-ch:
		default:
			break drain
		}
	}
	select {
	case ch <- *s.overflow:
	default:
	}
}

// Len повертає кількість активних підписників
func (s *Subject[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// Close закриває канали всіх підписників. Пізніші підписки отримують закритий канал.
func (s *Subject[T]) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
}
