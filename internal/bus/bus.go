// internal/bus/bus.go
package bus

import (
	"context"
)

// Message is one delivery on a topic.
type Message struct {
	Topic string
	Data  []byte
}

// Decode unmarshals the payload into v.
func (m Message) Decode(v any) error {
	if err := Unmarshal(m.Data, v); err != nil {
		return &DecodeError{Topic: m.Topic, Err: err}
	}
	return nil
}

// Handler receives fire-and-forget deliveries, in publish order.
type Handler func(ctx context.Context, msg Message)

// AckHandler receives durable deliveries. A nil return acknowledges the
// message; an error asks for redelivery.
type AckHandler func(ctx context.Context, msg Message) error

// Procedure answers a Call.
type Procedure func(ctx context.Context, req Message) (any, error)

// Bus is one adapter's connection to the message router.
// Closing it drops every subscription, consumer and procedure it created.
type Bus interface {
	Publish(ctx context.Context, topic string, v any) error
	Subscribe(ctx context.Context, topic string, h Handler) error

	// Consume attaches a durable consumer. Deliveries are at-least-once and
	// ordered, with at most one unacknowledged message in flight.
	Consume(ctx context.Context, topic, durable string, h AckHandler) error

	Register(ctx context.Context, name string, p Procedure) error
	Call(ctx context.Context, name string, req, resp any) error

	// Done is closed once the connection is permanently lost or closed.
	Done() <-chan struct{}
	Close() error
}

// Dialer opens a new connection for the named client.
type Dialer func(ctx context.Context, name string) (Bus, error)
