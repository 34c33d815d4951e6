package gpgpu

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPendingNotReady(t *testing.T) {
	var op Pending[int]

	assert.False(t, op.Done())

	_, err := op.Get()
	assert.ErrorIs(t, err, ErrNotReady)
}

func TestPendingComplete(t *testing.T) {
	var op Pending[int]
	op.complete(42, nil)

	assert.True(t, op.Done())

	value, err := op.Get()
	assert.NoError(t, err)
	assert.Equal(t, 42, value)
}

func TestPendingCompleteWithError(t *testing.T) {
	fail := errors.New("transfer failed")

	var op Pending[int]
	op.complete(0, fail)

	assert.True(t, op.Done())

	_, err := op.Get()
	assert.ErrorIs(t, err, fail)
}

func TestCompletedHelper(t *testing.T) {
	op := completed([]int{1, 2}, nil)

	assert.True(t, op.Done())

	value, err := op.Get()
	assert.NoError(t, err)
	assert.Equal(t, []int{1, 2}, value)
}
