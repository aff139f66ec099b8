package gee

import (
	"context"
	"sync"
)

// Deferred is the completion of work a handler hands off to another goroutine.
// It settles exactly once, with a nil error on success.
type Deferred struct {
	ctx  context.Context
	done chan struct{}
	once sync.Once

	mu        sync.Mutex
	settled   bool
	err       error
	callbacks []func(error)
}

func newDeferred(ctx context.Context) *Deferred {
	return &Deferred{
		ctx:  ctx,
		done: make(chan struct{}),
	}
}

// Context returns the request context captured when the Deferred was created.
func (d *Deferred) Context() context.Context {
	return d.ctx
}

func (d *Deferred) Resolve() {
	d.Settle(nil)
}

func (d *Deferred) Reject(err error) {
	d.Settle(err)
}

// Settle completes the Deferred. Finally callbacks run before Done is closed.
// Later calls are ignored.
func (d *Deferred) Settle(err error) {
	d.once.Do(func() {
		d.mu.Lock()
		d.settled = true
		d.err = err
		callbacks := d.callbacks
		d.callbacks = nil
		d.mu.Unlock()

		for _, fn := range callbacks {
			fn(err)
		}
		close(d.done)
	})
}

// Finally registers fn to run on settlement. If the Deferred already settled,
// fn runs immediately.
func (d *Deferred) Finally(fn func(error)) {
	d.mu.Lock()
	if !d.settled {
		d.callbacks = append(d.callbacks, fn)
		d.mu.Unlock()
		return
	}
	err := d.err
	d.mu.Unlock()
	fn(err)
}

func (d *Deferred) Done() <-chan struct{} {
	return d.done
}

// Err returns the settlement error. It is only meaningful after Done is closed.
func (d *Deferred) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.err
}
