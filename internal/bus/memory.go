// internal/bus/memory.go
package bus

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const (
	memQueueDepth      = 1024
	memStreamRetention = 10000
)

// Hub is an in-process router. Each Connect returns an independent client.
// Durable consumer positions live in the hub and survive client reconnects.
type Hub struct {
	logger     *slog.Logger
	redelivery time.Duration

	mu      sync.Mutex
	subs    map[string][]*memSub
	procs   map[string]memProc
	streams map[string]*memStream
}

type memProc struct {
	owner *MemoryClient
	fn    Procedure
}

// NewHub returns an empty router. redelivery is the delay before a
// rejected durable message is offered again.
func NewHub(redelivery time.Duration, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	if redelivery <= 0 {
		redelivery = time.Second
	}
	return &Hub{
		logger:     logger.With("component", "bus-memory"),
		redelivery: redelivery,
		subs:       make(map[string][]*memSub),
		procs:      make(map[string]memProc),
		streams:    make(map[string]*memStream),
	}
}

// Dialer returns a Dialer connecting to this hub.
func (h *Hub) Dialer() Dialer {
	return func(_ context.Context, name string) (Bus, error) {
		return h.Connect(name), nil
	}
}

// Connect opens a client.
func (h *Hub) Connect(name string) *MemoryClient {
	return &MemoryClient{
		hub:  h,
		name: name,
		done: make(chan struct{}),
	}
}

func (h *Hub) stream(topic string) *memStream {
	h.mu.Lock()
	defer h.mu.Unlock()

	st, ok := h.streams[topic]
	if !ok {
		st = &memStream{
			cursors: make(map[string]int),
			notify:  make(chan struct{}),
		}
		h.streams[topic] = st
	}
	return st
}

func (h *Hub) publish(topic string, data []byte) {
	h.mu.Lock()
	subs := append([]*memSub(nil), h.subs[topic]...)
	st := h.streams[topic]
	h.mu.Unlock()

	for _, s := range subs {
		s.offer(Message{Topic: topic, Data: data})
	}
	if st != nil {
		st.append(data)
	}
}

func (h *Hub) drop(c *MemoryClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for topic, subs := range h.subs {
		kept := subs[:0]
		for _, s := range subs {
			if s.owner != c {
				kept = append(kept, s)
			}
		}
		if len(kept) == 0 {
			delete(h.subs, topic)
		} else {
			h.subs[topic] = kept
		}
	}

	for name, p := range h.procs {
		if p.owner == c {
			delete(h.procs, name)
		}
	}
}

// ---- subscriptions ----

type memSub struct {
	owner *MemoryClient
	queue chan Message
}

func (s *memSub) offer(m Message) {
	select {
	case s.queue <- m:
	default:
		s.owner.hub.logger.Warn("slow subscriber, message dropped", "client", s.owner.name, "topic", m.Topic)
	}
}

// ---- durable streams ----

type memStream struct {
	mu      sync.Mutex
	msgs    [][]byte
	cursors map[string]int
	notify  chan struct{}
}

func (st *memStream) append(data []byte) {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.msgs = append(st.msgs, data)
	if over := len(st.msgs) - memStreamRetention; over > 0 {
		st.msgs = st.msgs[over:]
		for k, pos := range st.cursors {
			st.cursors[k] = max(pos-over, 0)
		}
	}

	close(st.notify)
	st.notify = make(chan struct{})
}

// next returns the message at the durable's cursor, or a channel closed on
// the next append when the durable is caught up.
func (st *memStream) next(durable string) ([]byte, int, <-chan struct{}) {
	st.mu.Lock()
	defer st.mu.Unlock()

	pos := st.cursors[durable]
	if pos < len(st.msgs) {
		return st.msgs[pos], pos, nil
	}
	return nil, pos, st.notify
}

func (st *memStream) ack(durable string, pos int) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.cursors[durable] == pos {
		st.cursors[durable] = pos + 1
	}
}

// ---- client ----

// MemoryClient is one connection to a Hub.
type MemoryClient struct {
	hub  *Hub
	name string

	closeOnce sync.Once
	done      chan struct{}
	wg        sync.WaitGroup
}

var _ Bus = (*MemoryClient)(nil)

func (c *MemoryClient) closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func (c *MemoryClient) Publish(_ context.Context, topic string, v any) error {
	if c.closed() {
		return ErrClosed
	}
	data, err := Marshal(v)
	if err != nil {
		return err
	}
	c.hub.publish(topic, data)
	return nil
}

func (c *MemoryClient) Subscribe(ctx context.Context, topic string, h Handler) error {
	if c.closed() {
		return ErrClosed
	}

	s := &memSub{owner: c, queue: make(chan Message, memQueueDepth)}

	c.hub.mu.Lock()
	c.hub.subs[topic] = append(c.hub.subs[topic], s)
	c.hub.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			select {
			case <-c.done:
				return
			case <-ctx.Done():
				return
			case m := <-s.queue:
				h(ctx, m)
			}
		}
	}()
	return nil
}

func (c *MemoryClient) Consume(ctx context.Context, topic, durable string, h AckHandler) error {
	if c.closed() {
		return ErrClosed
	}

	st := c.hub.stream(topic)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			data, pos, wait := st.next(durable)
			if wait != nil {
				select {
				case <-wait:
					continue
				case <-c.done:
					return
				case <-ctx.Done():
					return
				}
			}

			if err := h(ctx, Message{Topic: topic, Data: data}); err != nil {
				c.hub.logger.Debug("durable delivery rejected", "durable", durable, "error", err)
				select {
				case <-time.After(c.hub.redelivery):
					continue
				case <-c.done:
					return
				case <-ctx.Done():
					return
				}
			}
			st.ack(durable, pos)
		}
	}()
	return nil
}

func (c *MemoryClient) Register(_ context.Context, name string, p Procedure) error {
	if c.closed() {
		return ErrClosed
	}

	c.hub.mu.Lock()
	c.hub.procs[name] = memProc{owner: c, fn: p}
	c.hub.mu.Unlock()
	return nil
}

func (c *MemoryClient) Call(ctx context.Context, name string, req, resp any) error {
	if c.closed() {
		return ErrClosed
	}

	c.hub.mu.Lock()
	p, ok := c.hub.procs[name]
	c.hub.mu.Unlock()
	if !ok {
		return ErrNoProcedure
	}

	data, err := Marshal(req)
	if err != nil {
		return err
	}

	out, err := p.fn(ctx, Message{Topic: name, Data: data})
	return decodeReply(name, encodeReply(out, err), resp)
}

func (c *MemoryClient) Done() <-chan struct{} { return c.done }

// Close drops everything this client created and waits for its handlers
// to return.
func (c *MemoryClient) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		c.hub.drop(c)
	})
	c.wg.Wait()
	return nil
}
