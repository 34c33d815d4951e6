package gpgpu

import (
	"errors"
	"sync"
)

// ErrNotReady is returned by Pending.Get while the operation has not
// completed yet.
var ErrNotReady = errors.New("gpgpu: operation still pending")

// Pending is a deferred transfer result. A Pending makes no progress on
// its own: the device callback that completes it only runs while
// Framework.Poll is being driven. Forgetting to poll leaves the
// operation pending forever. There is no way to cancel a Pending, only
// to await it or abandon it.
type Pending[T any] struct {
	mu    sync.Mutex
	done  bool
	value T
	err   error
}

func (p *Pending[T]) complete(value T, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.done = true
	p.value = value
	p.err = err
}

// Done reports whether the operation has completed.
func (p *Pending[T]) Done() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.done
}

// Get returns the result of the operation, or ErrNotReady if it has not
// completed yet.
func (p *Pending[T]) Get() (T, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.done {
		var zero T
		return zero, ErrNotReady
	}

	return p.value, p.err
}

// Wait drives the framework's poll loop until the operation completes
// and returns its result. This blocks the calling goroutine.
func (p *Pending[T]) Wait(fw *Framework) (T, error) {
	for !p.Done() {
		fw.Poll(true)
	}

	return p.Get()
}

// completed returns a Pending that is already resolved.
func completed[T any](value T, err error) *Pending[T] {
	p := &Pending[T]{}
	p.complete(value, err)
	return p
}
