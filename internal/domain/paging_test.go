package domain_test

import (
	"testing"

	"github.com/shardlabs/shardfeed/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intp(v int) *int {
	return &v
}

func TestPageRange(t *testing.T) {
	t.Run("both absent is unbounded", func(t *testing.T) {
		low, high, err := domain.PageRange(nil, nil)
		require.NoError(t, err)
		assert.Equal(t, 0, low)
		assert.Equal(t, domain.NoLimit, high)
	})

	t.Run("half-open range", func(t *testing.T) {
		low, high, err := domain.PageRange(intp(10), intp(5))
		require.NoError(t, err)
		assert.Equal(t, 10, low)
		assert.Equal(t, 15, high)
	})

	t.Run("only one bound is invalid", func(t *testing.T) {
		_, _, err := domain.PageRange(intp(10), nil)
		assert.ErrorIs(t, err, domain.ErrInvalidRange)

		_, _, err = domain.PageRange(nil, intp(5))
		assert.ErrorIs(t, err, domain.ErrInvalidRange)
	})

	t.Run("negative first is invalid", func(t *testing.T) {
		_, _, err := domain.PageRange(intp(-1), intp(5))
		assert.ErrorIs(t, err, domain.ErrInvalidRange)
	})

	t.Run("zero count is invalid", func(t *testing.T) {
		_, _, err := domain.PageRange(intp(0), intp(0))
		assert.ErrorIs(t, err, domain.ErrInvalidRange)
	})
}

func TestClampRange(t *testing.T) {
	t.Run("interior page", func(t *testing.T) {
		low, high := domain.ClampRange(20, 10, 15)
		assert.Equal(t, 10, low)
		assert.Equal(t, 15, high)
	})

	t.Run("partial final page", func(t *testing.T) {
		low, high := domain.ClampRange(20, 18, 23)
		assert.Equal(t, 18, low)
		assert.Equal(t, 20, high)
		assert.Equal(t, 2, high-low)
	})

	t.Run("page past the end is empty", func(t *testing.T) {
		low, high := domain.ClampRange(20, 30, 35)
		assert.Equal(t, low, high)
	})

	t.Run("unbounded clamps to length", func(t *testing.T) {
		low, high := domain.ClampRange(7, 0, domain.NoLimit)
		assert.Equal(t, 0, low)
		assert.Equal(t, 7, high)
	})
}
