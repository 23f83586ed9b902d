// Package publisher delivers audit events to one or more stores, either
// inline with the caller or through a bounded asynchronous buffer.
package publisher

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	audit "amlguard/pkg/platform/audit"
	"amlguard/pkg/requestcontext"
)

// ErrBufferFull is returned in async mode when the buffer cannot accept
// another event.
var ErrBufferFull = errors.New("audit buffer full")

// ErrClosed is returned by Emit once Close has been called.
var ErrClosed = errors.New("audit publisher closed")

type Publisher struct {
	stores []audit.Store
	logger *slog.Logger

	buffer chan audit.Event
	wg     sync.WaitGroup

	// mu guards closed; Emit holds it for reading across the buffer send so
	// Close cannot close the channel underneath it.
	mu     sync.RWMutex
	closed bool
}

type Option func(*Publisher)

// WithAsyncBuffer switches the publisher to async mode with a buffer of size n.
func WithAsyncBuffer(n int) Option {
	return func(p *Publisher) {
		if n > 0 {
			p.buffer = make(chan audit.Event, n)
		}
	}
}

// WithSink adds another destination. Every event is appended to each store.
func WithSink(store audit.Store) Option {
	return func(p *Publisher) {
		if store != nil {
			p.stores = append(p.stores, store)
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{logger: slog.Default()}
	if store != nil {
		p.stores = append(p.stores, store)
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.buffer != nil {
		p.wg.Add(1)
		go p.run()
	}
	return p
}

// Emit stamps the event with request metadata from ctx and delivers it.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	event = enrich(ctx, event).Normalize()

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.logger.WarnContext(ctx, "audit event after close", "action", event.Action, "request_id", event.RequestID)
		return ErrClosed
	}
	if p.buffer == nil {
		return p.deliver(ctx, event)
	}
	select {
	case p.buffer <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		p.logger.WarnContext(ctx, "audit event dropped", "action", event.Action, "request_id", event.RequestID)
		return ErrBufferFull
	}
}

// Close stops accepting events and drains whatever is buffered. It is
// idempotent; later Emit calls return ErrClosed.
func (p *Publisher) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	if p.buffer != nil {
		close(p.buffer)
	}
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *Publisher) run() {
	defer p.wg.Done()
	for event := range p.buffer {
		if err := p.deliver(context.Background(), event); err != nil {
			p.logger.Error("failed to persist audit event", "action", event.Action, "error", err)
		}
	}
}

func (p *Publisher) deliver(ctx context.Context, event audit.Event) error {
	var errs []error
	for _, store := range p.stores {
		if err := store.Append(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func enrich(ctx context.Context, event audit.Event) audit.Event {
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if event.IP == "" {
		event.IP = requestcontext.ClientIP(ctx)
	}
	if event.UserAgent == "" {
		event.UserAgent = requestcontext.UserAgent(ctx)
	}
	if event.ActorID == "" {
		if actor := requestcontext.Actor(ctx); !actor.IsZero() {
			event.ActorID = actor.ID
			event.ActorName = actor.Name
			event.ActorRole = string(actor.Role)
		}
	}
	return event
}
