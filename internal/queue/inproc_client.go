package queue

import (
	"context"
	"fmt"
)

// InProcClient runs the pipeline in-process instead of going through a real
// queue. Used in local development when no SQS queue is configured.
type InProcClient struct {
	Handle func(ctx context.Context, msg Message) error
}

// Send invokes the handler in a new goroutine, detached from the caller's
// context so an HTTP request finishing does not cancel the run.
func (c *InProcClient) Send(ctx context.Context, msg Message) error {
	if c.Handle == nil {
		return fmt.Errorf("in-process queue has no handler")
	}
	go func() {
		_ = c.Handle(context.Background(), msg)
	}()
	return nil
}

var _ Client = (*InProcClient)(nil)
