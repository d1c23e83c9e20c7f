// Package events is a small in-process typed pub/sub used to fan settings
// changes and run lifecycle updates out to the scheduler and live clients.
package events

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// HandlerFunc is the function called when an event is emitted.
type HandlerFunc func(context.Context, any) error

// SubjectOption configures a Subject
type SubjectOption func(*Subject)

// WithLogger sets a structured logger for handler errors
func WithLogger(logger *slog.Logger) SubjectOption {
	return func(s *Subject) {
		s.logger = logger
	}
}

// Subject holds topic subscriptions. Delivery is synchronous on the emitting
// goroutine, in subscription order.
type Subject struct {
	mu        sync.RWMutex
	subs      map[string][]Subscription
	nextSubID int64
	closed    atomic.Bool
	logger    *slog.Logger
}

// Subscription represents a handler subscribed to a specific topic.
type Subscription struct {
	ID          string
	Topic       string
	Handler     HandlerFunc
	Unsubscribe func()
}

// NewSubject creates an empty Subject.
func NewSubject(opts ...SubjectOption) *Subject {
	s := &Subject{
		subs:   make(map[string][]Subscription),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Emit delivers value to every handler subscribed to topic. Handler errors
// are logged, never returned to the emitter.
func Emit[T any](ctx context.Context, subject *Subject, topic string, value T) {
	if subject == nil || subject.closed.Load() {
		return
	}

	subject.mu.RLock()
	subs := subject.subs[topic]
	subject.mu.RUnlock()

	for _, sub := range subs {
		if err := sub.Handler(ctx, value); err != nil {
			subject.logger.Warn("event handler failed", "topic", topic, "subscription", sub.ID, "error", err)
		}
	}
}

// Subscribe subscribes a typed handler to the given topic.
func Subscribe[T any](subject *Subject, topic string, handler func(context.Context, T) error) Subscription {
	wrapped := HandlerFunc(func(ctx context.Context, data any) error {
		if typed, ok := data.(T); ok {
			return handler(ctx, typed)
		}
		return fmt.Errorf("type assertion failed for %T, expected %T", data, *new(T))
	})

	id := fmt.Sprintf("%s-%d", topic, atomic.AddInt64(&subject.nextSubID, 1))
	sub := Subscription{ID: id, Topic: topic, Handler: wrapped}
	sub.Unsubscribe = func() { subject.remove(topic, id) }

	// copy-on-write so Emit can iterate without holding the lock
	subject.mu.Lock()
	next := make([]Subscription, len(subject.subs[topic]), len(subject.subs[topic])+1)
	copy(next, subject.subs[topic])
	subject.subs[topic] = append(next, sub)
	subject.mu.Unlock()

	return sub
}

func (s *Subject) remove(topic, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.subs[topic]
	next := make([]Subscription, 0, len(current))
	for _, sub := range current {
		if sub.ID != id {
			next = append(next, sub)
		}
	}
	s.subs[topic] = next
}

// Complete stops delivery. Idempotent.
func Complete(s *Subject) {
	if s == nil {
		return
	}
	s.closed.Store(true)
}
