// Package optimistic applies user mutations to in-memory state at once and
// persists them in the background.
//
// Every mutation follows the same protocol: compute and apply the new local
// value synchronously, issue the remote call asynchronously, and on failure
// report a notice and, depending on Policy, restore the previous value.
package optimistic

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dukerupert/aisle/internal/model"
	"github.com/dukerupert/aisle/internal/notify"
)

// Policy decides what happens to local state when a remote call fails.
type Policy int

const (
	// Keep leaves the optimistic value in place. The display may drift from
	// the store until the next full refresh.
	Keep Policy = iota
	// Rollback runs the mutation's Undo before reporting the failure.
	Rollback
)

func (p Policy) String() string {
	if p == Rollback {
		return "rollback"
	}
	return "keep"
}

// Step is what a mutation's Apply hands back after changing local state.
type Step struct {
	// Persist issues the remote call. A nil Persist completes immediately.
	Persist func(ctx context.Context) error
	// Undo restores the state Apply replaced. It runs under the state lock
	// and should only revert fields that still hold the value Apply wrote.
	Undo func()
	// Reconcile runs under the state lock after Persist succeeds, to copy
	// authoritative fields returned by the call into local state.
	Reconcile func()
	// Success, when set, is sent as a notice after Persist succeeds.
	Success string
}

type Mutation struct {
	// Key identifies the item being changed. Remote calls sharing a key are
	// issued one after another in submission order.
	Key string
	// Failure is the notice text used when the remote call fails with a
	// generic error.
	Failure string
	// Apply runs synchronously under the state lock. Returning an error
	// aborts the mutation before any remote call.
	Apply func() (Step, error)
}

// Pending tracks the remote half of a mutation.
type Pending struct {
	done chan struct{}
	err  error
}

func completed(err error) *Pending {
	p := &Pending{done: make(chan struct{}), err: err}
	close(p.done)
	return p
}

// Done is closed once the remote call has settled.
func (p *Pending) Done() <-chan struct{} { return p.done }

// Wait blocks until the remote call settles or ctx ends.
func (p *Pending) Wait(ctx context.Context) error {
	select {
	case <-p.done:
		return p.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Err returns the settled error. It is only meaningful after Done.
func (p *Pending) Err() error {
	select {
	case <-p.done:
		return p.err
	default:
		return nil
	}
}

// Coordinator owns the lock that guards a session's in-memory state.
type Coordinator struct {
	policy   Policy
	notifier notify.Notifier
	logger   *slog.Logger

	mu sync.Mutex

	chainMu sync.Mutex
	tails   map[string]chan struct{}

	wg sync.WaitGroup
}

func New(policy Policy, notifier notify.Notifier, logger *slog.Logger) *Coordinator {
	if notifier == nil {
		notifier = notify.Discard
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		policy:   policy,
		notifier: notifier,
		logger:   logger,
		tails:    make(map[string]chan struct{}),
	}
}

func (c *Coordinator) Policy() Policy { return c.policy }

// View runs fn while holding the state lock.
func (c *Coordinator) View(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn()
}

// Do applies m locally and starts its remote call. A non-nil error means
// Apply rejected the mutation; nothing was changed or sent, and the error has
// already been reported as a notice.
func (c *Coordinator) Do(ctx context.Context, m Mutation) (*Pending, error) {
	c.mu.Lock()
	step, err := m.Apply()
	if err != nil {
		c.mu.Unlock()
		c.notifier.Notify(ctx, notify.Failure(m.Failure, err))
		return completed(err), err
	}
	if step.Persist == nil {
		c.mu.Unlock()
		return completed(nil), nil
	}
	prev, done := c.enqueue(m.Key)
	c.mu.Unlock()

	p := &Pending{done: make(chan struct{})}
	// The remote call outlives the caller (an HTTP request, a click handler).
	bg := context.WithoutCancel(ctx)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer close(p.done)
		defer c.release(m.Key, done)

		if prev != nil {
			<-prev
		}
		p.err = c.settle(bg, m, step, step.Persist(bg))
	}()
	return p, nil
}

func (c *Coordinator) settle(ctx context.Context, m Mutation, step Step, err error) error {
	if err == nil {
		if step.Reconcile != nil {
			c.View(step.Reconcile)
		}
		if step.Success != "" {
			c.notifier.Notify(ctx, notify.Success(step.Success))
		}
		return nil
	}

	undo := c.policy == Rollback || definitive(err)
	if undo && step.Undo != nil {
		c.View(step.Undo)
	}
	c.logger.Warn("persist failed", "key", m.Key, "rolled_back", undo && step.Undo != nil, "error", err)
	c.notifier.Notify(ctx, notify.Failure(m.Failure, err))
	return fmt.Errorf("persist %s: %w", m.Key, err)
}

// definitive reports whether the store rejected the write outright, in which
// case the optimistic value is known to be wrong whatever the policy.
func definitive(err error) bool {
	return errors.Is(err, model.ErrDuplicate) || errors.Is(err, model.ErrReferenced)
}

// enqueue returns the completion channel of the previous call for key, if
// any, and registers a new one.
func (c *Coordinator) enqueue(key string) (prev, done chan struct{}) {
	c.chainMu.Lock()
	defer c.chainMu.Unlock()
	prev = c.tails[key]
	done = make(chan struct{})
	c.tails[key] = done
	return prev, done
}

func (c *Coordinator) release(key string, done chan struct{}) {
	c.chainMu.Lock()
	defer c.chainMu.Unlock()
	close(done)
	if c.tails[key] == done {
		delete(c.tails, key)
	}
}

// Wait blocks until every started remote call has settled.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}
