package services

import (
	"sync"

	"go.uber.org/zap"
)

type subscriber[T any] struct {
	id int
	fn func(T)
}

// Broadcaster delivers values to subscribers synchronously, in subscription
// order. A panicking subscriber is recovered and logged so the publisher
// keeps running.
type Broadcaster[T any] struct {
	mu     sync.RWMutex
	name   string
	nextID int
	subs   []subscriber[T]
	logger *zap.Logger
}

// NewBroadcaster creates a broadcaster; name is used in log fields.
func NewBroadcaster[T any](name string, logger *zap.Logger) *Broadcaster[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Broadcaster[T]{name: name, logger: logger}
}

// Subscribe registers fn and returns a function that removes it again.
// Calling the returned function more than once is harmless.
func (b *Broadcaster[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscriber[T]{id: id, fn: fn})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, s := range b.subs {
			if s.id == id {
				b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
				return
			}
		}
	}
}

// Len reports the number of current subscribers.
func (b *Broadcaster[T]) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Publish calls every subscriber with v. The subscriber list is copied first
// so subscribers may unsubscribe from inside their callback.
func (b *Broadcaster[T]) Publish(v T) {
	b.mu.RLock()
	subs := make([]subscriber[T], len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	for _, s := range subs {
		b.deliver(s, v)
	}
}

func (b *Broadcaster[T]) deliver(s subscriber[T], v T) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("subscriber panicked",
				zap.String("topic", b.name),
				zap.Int("subscriber", s.id),
				zap.Any("panic", r))
		}
	}()
	s.fn(v)
}
