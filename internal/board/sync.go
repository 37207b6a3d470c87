package board

import (
	"context"
	"sync"
	"time"
)

// Gateway operations tracked by the dispatcher.
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

type syncOp struct {
	op     string
	taskID string
	call   func(ctx context.Context) error
}

// dispatcher runs gateway calls in the background. Calls are not ordered
// relative to each other or to local state, and are never cancelled once
// started; each one is bounded by timeout.
type dispatcher struct {
	timeout time.Duration
	slots   chan struct{}
	wg      sync.WaitGroup
}

func newDispatcher(timeout time.Duration, concurrency int) *dispatcher {
	if concurrency < 1 {
		concurrency = 1
	}
	return &dispatcher{
		timeout: timeout,
		slots:   make(chan struct{}, concurrency),
	}
}

func (d *dispatcher) dispatch(op syncOp, settle func(syncOp, error)) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		d.slots <- struct{}{}
		defer func() { <-d.slots }()

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		settle(op, op.call(ctx))
	}()
}

func (d *dispatcher) wait() {
	d.wg.Wait()
}
