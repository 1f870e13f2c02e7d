// internal/relay/session.go
package relay

import (
	"context"

	"github.com/tamzrod/uavbridge/internal/bus"
	"github.com/tamzrod/uavbridge/internal/metrics"
)

// TaskFunc handles one bus delivery on the adapter's worker goroutine.
type TaskFunc func(ctx context.Context, msg bus.Message) error

type task struct {
	msg    bus.Message
	fn     TaskFunc
	result chan error // nil for fire-and-forget deliveries
}

const inboxDepth = 64

// Session is one bus join of one adapter.
// Bus handlers never touch adapter state: they hand each delivery to the
// worker through the inbox.
type Session struct {
	adapter string
	bus     bus.Bus
	ctx     context.Context
	inbox   chan task
	metrics *metrics.Metrics
}

func newSession(ctx context.Context, adapter string, b bus.Bus, m *metrics.Metrics) *Session {
	return &Session{
		adapter: adapter,
		bus:     b,
		ctx:     ctx,
		inbox:   make(chan task, inboxDepth),
		metrics: m,
	}
}

// Publish sends v on topic.
func (s *Session) Publish(ctx context.Context, topic string, v any) error {
	if err := s.bus.Publish(ctx, topic, v); err != nil {
		return err
	}
	s.metrics.Published(s.adapter, topic)
	return nil
}

// Call invokes a procedure registered by any adapter.
func (s *Session) Call(ctx context.Context, name string, req, resp any) error {
	return s.bus.Call(ctx, name, req, resp)
}

// Subscribe runs fn on the worker for every delivery on topic.
func (s *Session) Subscribe(ctx context.Context, topic string, fn TaskFunc) error {
	return s.bus.Subscribe(ctx, topic, func(_ context.Context, m bus.Message) {
		s.enqueue(task{msg: m, fn: fn})
	})
}

// Consume attaches a durable consumer whose deliveries run on the worker.
// A delivery is acknowledged only after fn has returned on the worker.
func (s *Session) Consume(ctx context.Context, topic, durable string, fn TaskFunc) error {
	return s.bus.Consume(ctx, topic, durable, func(_ context.Context, m bus.Message) error {
		res := make(chan error, 1)
		if !s.enqueue(task{msg: m, fn: fn, result: res}) {
			return ErrSessionClosed
		}

		select {
		case err := <-res:
			return err
		case <-s.ctx.Done():
			return ErrSessionClosed
		case <-s.bus.Done():
			return ErrSessionClosed
		}
	})
}

func (s *Session) enqueue(t task) bool {
	select {
	case s.inbox <- t:
		return true
	case <-s.ctx.Done():
		return false
	case <-s.bus.Done():
		return false
	}
}
