// Package debounce collapses bursts of calls into one trailing call.
package debounce

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrSuperseded is returned to a caller whose call was replaced by a later
// one before the wait elapsed.
var ErrSuperseded = errors.New("superseded by a later call")

const DefaultWait = 300 * time.Millisecond

type result[T any] struct {
	value T
	err   error
}

type call[T any] struct {
	ctx  context.Context
	fn   func(context.Context) (T, error)
	done chan result[T]
}

// Debouncer runs only the last of several calls made within wait of each
// other. The last caller receives the result; every earlier caller gets
// ErrSuperseded.
type Debouncer[T any] struct {
	wait time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	pending *call[T]
}

func New[T any](wait time.Duration) *Debouncer[T] {
	if wait <= 0 {
		wait = DefaultWait
	}
	return &Debouncer[T]{wait: wait}
}

func (d *Debouncer[T]) Do(ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	c := &call[T]{ctx: ctx, fn: fn, done: make(chan result[T], 1)}

	d.mu.Lock()
	if d.pending != nil {
		d.timer.Stop()
		d.pending.done <- result[T]{err: ErrSuperseded}
	}
	d.pending = c
	d.timer = time.AfterFunc(d.wait, func() { d.fire(c) })
	d.mu.Unlock()

	select {
	case r := <-c.done:
		return r.value, r.err
	case <-ctx.Done():
		d.mu.Lock()
		if d.pending == c {
			d.timer.Stop()
			d.pending = nil
		}
		d.mu.Unlock()
		var zero T
		return zero, ctx.Err()
	}
}

func (d *Debouncer[T]) fire(c *call[T]) {
	d.mu.Lock()
	if d.pending != c {
		d.mu.Unlock()
		return
	}
	d.pending = nil
	d.mu.Unlock()

	value, err := c.fn(c.ctx)
	c.done <- result[T]{value: value, err: err}
}
