package gpgpu

import (
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type countingReleaser struct {
	released int
}

func (c *countingReleaser) Release() {
	c.released++
}

func TestReleaseGuardReleases(t *testing.T) {
	var res countingReleaser

	guard := NewReleaseGuard(&res)
	guard.Release()

	assert.Equal(t, 1, res.released)

	// releasing again is a no-op
	guard.Release()
	assert.Equal(t, 1, res.released)
}

func TestReleaseGuardKeep(t *testing.T) {
	var res countingReleaser

	guard := NewReleaseGuard(&res)
	guard.Keep()
	guard.Release()

	assert.Equal(t, 0, res.released)
}

func TestReleaseFunc(t *testing.T) {
	calls := 0

	guard := NewReleaseGuard(releaseFunc(func() { calls++ }))
	guard.Release()
	guard.Release()

	assert.Equal(t, 1, calls)
}

type notifyReleaser struct {
	released chan struct{}
}

func (n *notifyReleaser) Release() {
	close(n.released)
}

func TestRegisterWithGCReturnsValue(t *testing.T) {
	var res countingReleaser
	assert.Same(t, &res, RegisterWithGC(&res))
}

func TestRegisterWithGCReleasesOnCollect(t *testing.T) {
	released := make(chan struct{})
	RegisterWithGC(&notifyReleaser{released: released})

	deadline := time.After(10 * time.Second)
	for {
		runtime.GC()

		select {
		case <-released:
			return
		case <-deadline:
			t.Fatal("finalizer did not run")
		case <-time.After(time.Millisecond):
		}
	}
}
