package gpgpu

import (
	"fmt"
	"os"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
)

var forceFallbackAdapter = os.Getenv("WGPU_FORCE_FALLBACK_ADAPTER") == "1"

func init() {
	switch strings.ToUpper(os.Getenv("WGPU_LOG_LEVEL")) {
	case "OFF":
		wgpu.SetLogLevel(wgpu.LogLevelOff)
	case "ERROR":
		wgpu.SetLogLevel(wgpu.LogLevelError)
	case "WARN":
		wgpu.SetLogLevel(wgpu.LogLevelWarn)
	case "INFO":
		wgpu.SetLogLevel(wgpu.LogLevelInfo)
	case "DEBUG":
		wgpu.SetLogLevel(wgpu.LogLevelDebug)
	case "TRACE":
		wgpu.SetLogLevel(wgpu.LogLevelTrace)
	}
}

// Framework owns the connection to the compute device: the wgpu instance,
// the selected adapter, the logical device and its submission queue.
// Every other object in this package borrows the Framework it was created
// from and must not outlive it.
type Framework struct {
	Instance *wgpu.Instance
	Adapter  *wgpu.Adapter
	Device   *wgpu.Device
	Queue    *wgpu.Queue

	limits wgpu.SupportedLimits

	// small device-local buffer used as copy source for fences
	fenceSrc *wgpu.Buffer
}

type FrameworkOptions struct {
	// PowerPreference selects between low power and high performance
	// adapters. The zero value lets the implementation decide.
	PowerPreference wgpu.PowerPreference

	// DeviceLabel is attached to the logical device for debugging.
	DeviceLabel string
}

// NewFramework acquires an adapter, a logical device and its queue.
// Set WGPU_FORCE_FALLBACK_ADAPTER=1 to force a software adapter.
func NewFramework(opts FrameworkOptions) (fw *Framework, err error) {
	defer func() {
		if err != nil && fw != nil {
			fw.Release()
			fw = nil
		}
	}()

	fw = &Framework{}

	fw.Instance = wgpu.CreateInstance(nil)

	fw.Adapter, err = fw.Instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference:      opts.PowerPreference,
		ForceFallbackAdapter: forceFallbackAdapter,
	})
	if err != nil {
		return nil, fmt.Errorf("request adapter: %w", err)
	}

	fw.limits = fw.Adapter.GetLimits()

	fw.Device, err = fw.Adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label: opts.DeviceLabel,
	})
	if err != nil {
		return nil, fmt.Errorf("request device: %w", err)
	}

	fw.Queue = fw.Device.GetQueue()

	return RegisterWithGC(fw), nil
}

// Limits returns the capability limits reported by the adapter.
func (fw *Framework) Limits() wgpu.Limits {
	return fw.limits.Limits
}

// Poll drives the device's event processing once. Deferred reads and
// writes only make progress while Poll is being called; a Pending that is
// never polled stays pending forever. With wait set, Poll blocks until
// the device has processed outstanding work. Reports whether the queue
// is empty.
func (fw *Framework) Poll(wait bool) bool {
	return fw.Device.Poll(wait, nil)
}

// BlockingPoll polls the device until its queue is empty.
func (fw *Framework) BlockingPoll() {
	for !fw.Device.Poll(true, nil) {
	}
}

// fence submits a marker copy and returns a Pending that completes once
// everything submitted to the queue before the call has executed on the
// device. Completion relies on queue submission order.
func (fw *Framework) fence() (*Pending[struct{}], error) {
	const fenceSize = 8

	if fw.fenceSrc == nil {
		src, err := fw.Device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: "FenceSrc",
			Size:  fenceSize,
			Usage: wgpu.BufferUsageCopySrc,
		})
		if err != nil {
			return nil, fmt.Errorf("create fence source: %w", err)
		}
		fw.fenceSrc = src
	}

	dst, err := fw.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Fence",
		Size:  fenceSize,
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create fence buffer: %w", err)
	}

	enc, err := fw.Device.CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{Label: "Fence"})
	if err != nil {
		dst.Release()
		return nil, fmt.Errorf("create command encoder: %w", err)
	}
	defer enc.Release()

	enc.CopyBufferToBuffer(fw.fenceSrc, 0, dst, 0, fenceSize)

	cmd, err := enc.Finish(nil)
	if err != nil {
		dst.Release()
		return nil, fmt.Errorf("finish command encoder: %w", err)
	}
	defer cmd.Release()

	fw.Queue.Submit(cmd)

	op := &Pending[struct{}]{}
	err = dst.MapAsync(wgpu.MapModeRead, 0, fenceSize, func(status wgpu.BufferMapAsyncStatus) {
		defer dst.Release()
		if status != wgpu.BufferMapAsyncStatusSuccess {
			op.complete(struct{}{}, fmt.Errorf("gpgpu: fence map failed: %s", status.String()))
			return
		}
		dst.Unmap()
		op.complete(struct{}{}, nil)
	})
	if err != nil {
		dst.Release()
		return nil, fmt.Errorf("request fence map: %w", err)
	}

	return op, nil
}

// Release tears down the device connection. All buffers, images and
// kernels created from this Framework must be released (or abandoned)
// before calling this; none of them may be used afterwards.
func (fw *Framework) Release() {
	if fw.fenceSrc != nil {
		fw.fenceSrc.Release()
		fw.fenceSrc = nil
	}

	if fw.Queue != nil {
		fw.Queue.Release()
		fw.Queue = nil
	}

	if fw.Device != nil {
		fw.Device.Release()
		fw.Device = nil
	}

	if fw.Adapter != nil {
		fw.Adapter.Release()
		fw.Adapter = nil
	}

	if fw.Instance != nil {
		fw.Instance.Release()
		fw.Instance = nil
	}
}
