package gpgpu

import (
	"log/slog"
	"reflect"
	"runtime"
)

// Releaser is anything holding device resources that can be freed.
type Releaser interface {
	Release()
}

// releaseFunc adapts a plain function to the Releaser interface.
type releaseFunc func()

func (f releaseFunc) Release() { f() }

// ReleaseGuard releases its delegate unless Keep was called. Useful to
// release resources on early error returns.
type ReleaseGuard struct {
	delegate Releaser
}

func NewReleaseGuard(delegate Releaser) ReleaseGuard {
	return ReleaseGuard{delegate: delegate}
}

func (r *ReleaseGuard) Keep() {
	r.delegate = nil
}

func (r *ReleaseGuard) Release() {
	if r.delegate != nil {
		r.delegate.Release()
		r.delegate = nil
	}
}

// RegisterWithGC automatically calls Release on value if the value is
// garbage collected. This is a safety net, not a replacement for
// releasing resources deterministically.
func RegisterWithGC[T Releaser](value T) T {
	runtime.SetFinalizer(value, releaseNow[T])
	return value
}

func releaseNow[T Releaser](value T) {
	typ := reflect.TypeOf(value).String()
	slog.Debug("Releasing garbage collected instance", slog.String("type", typ))

	value.Release()
}
