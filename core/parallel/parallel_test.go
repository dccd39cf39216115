package parallel

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParallelizeCoversEveryItemOnce(t *testing.T) {
	for _, workers := range []int{1, 3, 8, 100} {
		seen := make([]int32, 37)
		ParallelizeN(len(seen), workers, func(start, end int) {
			for i := start; i < end; i++ {
				atomic.AddInt32(&seen[i], 1)
			}
		})
		for i, n := range seen {
			assert.Equalf(t, int32(1), n, "item %d with %d workers", i, workers)
		}
	}
}

func TestParallelizeZeroItems(t *testing.T) {
	called := false
	Parallelize(0, func(start, end int) { called = true })
	assert.False(t, called)
}

func TestParallelizeWithThresholdSequential(t *testing.T) {
	var calls int32
	ParallelizeWithThreshold(10, 100, 4, func(start, end int) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, 0, start)
		assert.Equal(t, 10, end)
	})
	assert.Equal(t, int32(1), calls)
}

func TestWorkers(t *testing.T) {
	assert.Equal(t, 4, Workers(4))
	assert.Greater(t, Workers(-1), 0)
	assert.Equal(t, Workers(-1), Workers(0))
}
