// Package syncer persists answers in the background: per question a single
// pending write that is deferred by a quiet period and superseded by newer edits.
package syncer

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrClosed is returned when scheduling on a closed coalescer
var ErrClosed = errors.New("coalescer closed")

// Task is the unit of work scheduled for a key. ctx is cancelled when a newer
// task for the same key is scheduled or the coalescer closes.
type Task func(ctx context.Context)

type pending struct {
	timer  *time.Timer
	cancel context.CancelFunc
	done   chan struct{}
}

// Coalescer keeps at most one pending task per key. Scheduling a task cancels
// the previous one for that key: a not-yet-fired timer is stopped and an
// in-flight run has its context aborted. A new run starts only after the
// previous run for the key has returned, so runs for one key never overlap.
type Coalescer[K comparable] struct {
	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	pending map[K]*pending
	wg      sync.WaitGroup
	closed  bool
}

// NewCoalescer creates a coalescer whose tasks derive from ctx
func NewCoalescer[K comparable](ctx context.Context) *Coalescer[K] {
	ctx, cancel := context.WithCancel(ctx)
	return &Coalescer[K]{
		ctx:     ctx,
		cancel:  cancel,
		pending: make(map[K]*pending),
	}
}

// Schedule runs fn for key after delay unless superseded
func (c *Coalescer[K]) Schedule(key K, delay time.Duration, fn Task) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}

	prev := c.pending[key]
	if prev != nil {
		c.stopLocked(prev)
	}

	ctx, cancel := context.WithCancel(c.ctx)
	p := &pending{cancel: cancel, done: make(chan struct{})}
	c.pending[key] = p
	c.wg.Add(1)
	p.timer = time.AfterFunc(delay, func() {
		defer c.wg.Done()
		defer close(p.done)
		defer c.finish(key, p)

		if prev != nil {
			select {
			case <-prev.done:
			case <-ctx.Done():
				return
			}
		}
		if ctx.Err() != nil {
			return
		}
		fn(ctx)
	})
	return nil
}

// Cancel drops the pending or in-flight task for key
func (c *Coalescer[K]) Cancel(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p := c.pending[key]; p != nil {
		c.stopLocked(p)
		delete(c.pending, key)
	}
}

// stopLocked aborts p; when its timer had not fired yet the run is accounted for here
func (c *Coalescer[K]) stopLocked(p *pending) {
	p.cancel()
	if p.timer.Stop() {
		close(p.done)
		c.wg.Done()
	}
}

func (c *Coalescer[K]) finish(key K, p *pending) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending[key] == p {
		delete(c.pending, key)
	}
	p.cancel()
}

// Pending returns the number of keys with a scheduled or running task
func (c *Coalescer[K]) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Flush fires every waiting task now and blocks until they all returned or ctx ends
func (c *Coalescer[K]) Flush(ctx context.Context) error {
	c.mu.Lock()
	waits := make([]chan struct{}, 0, len(c.pending))
	for _, p := range c.pending {
		if p.timer.Stop() {
			p.timer.Reset(0)
		}
		waits = append(waits, p.done)
	}
	c.mu.Unlock()

	for _, done := range waits {
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Close cancels everything and waits for running tasks to return
func (c *Coalescer[K]) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	for key, p := range c.pending {
		c.stopLocked(p)
		delete(c.pending, key)
	}
	c.cancel()
	c.mu.Unlock()

	c.wg.Wait()
}
