// internal/bus/nats.go
package bus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// NATSConfig describes the router connection.
type NATSConfig struct {
	URL            string
	ConnectTimeout time.Duration
	ReconnectWait  time.Duration

	// StreamPrefix names the JetStream streams backing durable consumers.
	StreamPrefix  string
	StreamMaxMsgs int64
	AckWait       time.Duration
	Redelivery    time.Duration
}

func (c *NATSConfig) defaults() {
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 5 * time.Second
	}
	if c.ReconnectWait <= 0 {
		c.ReconnectWait = 2 * time.Second
	}
	if c.StreamPrefix == "" {
		c.StreamPrefix = "UAVBRIDGE"
	}
	if c.StreamMaxMsgs <= 0 {
		c.StreamMaxMsgs = 100000
	}
	if c.AckWait <= 0 {
		c.AckWait = 30 * time.Second
	}
	if c.Redelivery <= 0 {
		c.Redelivery = time.Second
	}
}

// NATSClient is a Bus over one NATS connection.
type NATSClient struct {
	cfg    NATSConfig
	logger *slog.Logger
	conn   *nats.Conn
	js     jetstream.JetStream

	mu        sync.Mutex
	subs      []*nats.Subscription
	consumers []jetstream.ConsumeContext

	closeOnce sync.Once
	done      chan struct{}
}

var _ Bus = (*NATSClient)(nil)

// NATSDialer returns a Dialer that opens a NATSClient per call.
func NATSDialer(cfg NATSConfig, logger *slog.Logger) Dialer {
	return func(ctx context.Context, name string) (Bus, error) {
		return DialNATS(ctx, cfg, name, logger)
	}
}

// DialNATS connects to the router. The connection reconnects by itself;
// Done closes only when it gives up or is closed.
func DialNATS(ctx context.Context, cfg NATSConfig, name string, logger *slog.Logger) (*NATSClient, error) {
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}

	instance := name + "-" + uuid.NewString()
	c := &NATSClient{
		cfg:    cfg,
		logger: logger.With("component", "bus-nats", "client", instance),
		done:   make(chan struct{}),
	}

	opts := []nats.Option{
		nats.Name(instance),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.ConnectTimeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				c.logger.Warn("disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			c.logger.Info("reconnected", "url", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			c.markDone()
		}),
	}

	type result struct {
		conn *nats.Conn
		err  error
	}
	connected := make(chan result, 1)
	go func() {
		nc, err := nats.Connect(cfg.URL, opts...)
		connected <- result{nc, err}
	}()

	var res result
	select {
	case res = <-connected:
	case <-ctx.Done():
		go func() {
			if r := <-connected; r.conn != nil {
				r.conn.Close()
			}
		}()
		return nil, &ResolutionError{URL: cfg.URL, Err: ctx.Err()}
	}
	if res.err != nil {
		return nil, &ResolutionError{URL: cfg.URL, Err: res.err}
	}

	js, err := jetstream.New(res.conn)
	if err != nil {
		res.conn.Close()
		return nil, &ResolutionError{URL: cfg.URL, Err: err}
	}

	c.conn = res.conn
	c.js = js
	c.logger.Info("joined", "url", res.conn.ConnectedUrl())
	return c, nil
}

func (c *NATSClient) markDone() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *NATSClient) Publish(_ context.Context, topic string, v any) error {
	data, err := Marshal(v)
	if err != nil {
		return err
	}
	if err := c.conn.Publish(topic, data); err != nil {
		return fmt.Errorf("bus: publish %s: %w", topic, err)
	}
	return nil
}

func (c *NATSClient) Subscribe(ctx context.Context, topic string, h Handler) error {
	sub, err := c.conn.Subscribe(topic, func(m *nats.Msg) {
		h(ctx, Message{Topic: m.Subject, Data: m.Data})
	})
	if err != nil {
		return fmt.Errorf("bus: subscribe %s: %w", topic, err)
	}

	c.mu.Lock()
	c.subs = append(c.subs, sub)
	c.mu.Unlock()
	return nil
}

// streamName derives a JetStream stream name from a topic.
func (c *NATSClient) streamName(topic string) string {
	r := strings.NewReplacer(".", "_", "*", "ANY", ">", "ALL")
	return c.cfg.StreamPrefix + "_" + strings.ToUpper(r.Replace(topic))
}

func (c *NATSClient) Consume(ctx context.Context, topic, durable string, h AckHandler) error {
	stream, err := c.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      c.streamName(topic),
		Subjects:  []string{topic},
		Retention: jetstream.LimitsPolicy,
		MaxMsgs:   c.cfg.StreamMaxMsgs,
		Storage:   jetstream.FileStorage,
	})
	if err != nil {
		return fmt.Errorf("bus: stream for %s: %w", topic, err)
	}

	consumer, err := stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Durable:       durable,
		FilterSubject: topic,
		AckPolicy:     jetstream.AckExplicitPolicy,
		DeliverPolicy: jetstream.DeliverAllPolicy,
		AckWait:       c.cfg.AckWait,
		MaxAckPending: 1,
	})
	if err != nil {
		return fmt.Errorf("bus: consumer %s: %w", durable, err)
	}

	cc, err := consumer.Consume(func(m jetstream.Msg) {
		if err := h(ctx, Message{Topic: m.Subject(), Data: m.Data()}); err != nil {
			c.logger.Debug("durable delivery rejected", "durable", durable, "error", err)
			_ = m.NakWithDelay(c.cfg.Redelivery)
			return
		}
		if err := m.Ack(); err != nil {
			c.logger.Warn("ack failed", "durable", durable, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("bus: consume %s: %w", durable, err)
	}

	c.mu.Lock()
	c.consumers = append(c.consumers, cc)
	c.mu.Unlock()
	return nil
}

func (c *NATSClient) Register(ctx context.Context, name string, p Procedure) error {
	sub, err := c.conn.Subscribe(name, func(m *nats.Msg) {
		out, err := p(ctx, Message{Topic: name, Data: m.Data})
		if rerr := m.Respond(encodeReply(out, err)); rerr != nil {
			c.logger.Warn("respond failed", "procedure", name, "error", rerr)
		}
	})
	if err != nil {
		return fmt.Errorf("bus: register %s: %w", name, err)
	}

	c.mu.Lock()
	c.subs = append(c.subs, sub)
	c.mu.Unlock()
	return nil
}

func (c *NATSClient) Call(ctx context.Context, name string, req, resp any) error {
	data, err := Marshal(req)
	if err != nil {
		return err
	}

	m, err := c.conn.RequestWithContext(ctx, name, data)
	if errors.Is(err, nats.ErrNoResponders) {
		return ErrNoProcedure
	}
	if err != nil {
		return fmt.Errorf("bus: call %s: %w", name, err)
	}
	return decodeReply(name, m.Data, resp)
}

func (c *NATSClient) Done() <-chan struct{} { return c.done }

func (c *NATSClient) Close() error {
	c.mu.Lock()
	for _, cc := range c.consumers {
		cc.Stop()
	}
	for _, s := range c.subs {
		_ = s.Unsubscribe()
	}
	c.consumers = nil
	c.subs = nil
	c.mu.Unlock()

	c.conn.Close()
	c.markDone()
	return nil
}
