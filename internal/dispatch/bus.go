package dispatch

import (
	"context"
	"sync"
)

// Bus sends messages toward the relay.
type Bus interface {
	Send(ctx context.Context, msg Message) error
}

// Handler consumes dispatched messages.
type Handler interface {
	HandleMessage(ctx context.Context, msg Message)
}

// LocalBus delivers messages to an in-process handler asynchronously. This
// is the single-binary deployment: delivery is at-most-once and does not
// survive a process restart.
type LocalBus struct {
	handler Handler
	wg      sync.WaitGroup
}

// NewLocalBus constructs a LocalBus over the given handler.
func NewLocalBus(handler Handler) *LocalBus {
	return &LocalBus{handler: handler}
}

// Send hands the message to the handler on a new goroutine. The send itself
// never fails; the sender does not learn the handling outcome.
func (b *LocalBus) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		// The handler outlives the sender's request context.
		b.handler.HandleMessage(context.WithoutCancel(ctx), msg)
	}()
	return nil
}

// Flush blocks until all in-flight deliveries have been handled.
func (b *LocalBus) Flush() {
	b.wg.Wait()
}

var _ Bus = (*LocalBus)(nil)
