package scene

import (
	"context"
	"errors"
	"sync"

	"github.com/taigrr/papercraft/internal/logger"
	"go.uber.org/zap"
)

// ErrDispatcherStopped is returned by Mutate once Run has returned.
var ErrDispatcherStopped = errors.New("scene dispatcher stopped")

type mutation struct {
	ctx  context.Context
	fn   func(tx *Tx) error
	done chan error
}

// Dispatcher is the single owner of scene mutation. Background work hands
// it transactions through Mutate; the goroutine running Run applies them
// one at a time in arrival order.
type Dispatcher struct {
	store *Store
	queue chan mutation

	closed    chan struct{}
	closeOnce sync.Once
}

// NewDispatcher creates a dispatcher for store with room for queued
// requests before Mutate blocks.
func NewDispatcher(store *Store, queued int) *Dispatcher {
	if queued < 0 {
		queued = 0
	}
	return &Dispatcher{
		store:  store,
		queue:  make(chan mutation, queued),
		closed: make(chan struct{}),
	}
}

// Store returns the scene the dispatcher owns. Reads through it are safe
// from any goroutine.
func (d *Dispatcher) Store() *Store {
	return d.store
}

// Run applies queued transactions until ctx is canceled and returns
// ctx.Err(). Requests still queued at that point fail with the same error;
// later ones fail with ErrDispatcherStopped. A dispatcher runs only once.
func (d *Dispatcher) Run(ctx context.Context) error {
	select {
	case <-d.closed:
		return ErrDispatcherStopped
	default:
	}
	defer d.closeOnce.Do(func() { close(d.closed) })

	for {
		if err := ctx.Err(); err != nil {
			d.drain(err)
			return err
		}
		select {
		case <-ctx.Done():
			d.drain(ctx.Err())
			return ctx.Err()
		case m := <-d.queue:
			err := d.store.Mutate(m.ctx, m.fn)
			if err != nil {
				logger.Debug("scene mutation rejected", zap.Error(err))
			}
			m.done <- err
		}
	}
}

func (d *Dispatcher) drain(err error) {
	for {
		select {
		case m := <-d.queue:
			m.done <- err
		default:
			return
		}
	}
}

// Mutate queues fn and waits for its result. It returns ctx.Err() if ctx
// ends before the request is accepted or finished; a request already
// accepted still runs but is discarded at commit if ctx has ended. After
// Run has returned it fails with ErrDispatcherStopped.
func (d *Dispatcher) Mutate(ctx context.Context, fn func(tx *Tx) error) error {
	m := mutation{ctx: ctx, fn: fn, done: make(chan error, 1)}
	select {
	case <-d.closed:
		return ErrDispatcherStopped
	default:
	}
	select {
	case d.queue <- m:
	case <-d.closed:
		return ErrDispatcherStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-m.done:
		return err
	case <-d.closed:
		// Run answers what it drained before closing.
		select {
		case err := <-m.done:
			return err
		default:
			return ErrDispatcherStopped
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}
