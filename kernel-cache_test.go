package gpgpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingConfig struct {
	entry  string
	builds *int
}

func (c countingConfig) Specialize(_ *Framework) (*Kernel, error) {
	*c.builds += 1
	return &Kernel{entryPoint: c.entry}, nil
}

func TestKernelCacheMemoizes(t *testing.T) {
	var builds int

	cache := NewKernelCache[countingConfig](nil)
	defer cache.Release()

	conf := countingConfig{entry: "main", builds: &builds}

	first, err := cache.Get(conf)
	require.NoError(t, err)

	second, err := cache.Get(conf)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, builds)
}

func TestKernelCacheDistinguishesConfigs(t *testing.T) {
	var builds int

	cache := NewKernelCache[countingConfig](nil)
	defer cache.Release()

	a, err := cache.Get(countingConfig{entry: "a", builds: &builds})
	require.NoError(t, err)

	b, err := cache.Get(countingConfig{entry: "b", builds: &builds})
	require.NoError(t, err)

	assert.NotSame(t, a, b)
	assert.Equal(t, "a", a.EntryPoint())
	assert.Equal(t, "b", b.EntryPoint())
	assert.Equal(t, 2, builds)
}
