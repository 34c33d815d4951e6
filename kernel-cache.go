package gpgpu

import (
	"fmt"

	"github.com/hashicorp/golang-lru/v2"
)

// KernelConfig is a comparable value that knows how to build the kernel
// it describes. Equal configs must describe the same kernel.
type KernelConfig interface {
	comparable

	// Specialize builds the kernel for this config.
	Specialize(fw *Framework) (*Kernel, error)
}

// KernelCache memoizes built kernels by config, releasing kernels that
// fall out of the cache.
type KernelCache[C KernelConfig] struct {
	fw    *Framework
	cache *lru.Cache[C, *Kernel]
}

func NewKernelCache[C KernelConfig](fw *Framework) *KernelCache[C] {
	cache, _ := lru.NewWithEvict[C, *Kernel](16, releaseKernelOnEviction[C])

	return &KernelCache[C]{
		fw:    fw,
		cache: cache,
	}
}

// Get returns the cached kernel for conf, building it on a miss.
func (kc *KernelCache[C]) Get(conf C) (*Kernel, error) {
	kernel, ok := kc.cache.Get(conf)
	if ok {
		return kernel, nil
	}

	kernel, err := conf.Specialize(kc.fw)
	if err != nil {
		return nil, fmt.Errorf("build kernel: %w", err)
	}

	kc.cache.Add(conf, kernel)

	return kernel, nil
}

// Release drops all cached kernels, releasing each one.
func (kc *KernelCache[C]) Release() {
	kc.cache.Purge()
}

func releaseKernelOnEviction[C any](_conf C, kernel *Kernel) {
	kernel.Release()
}
