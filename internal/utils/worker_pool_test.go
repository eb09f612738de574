package utils_test

import (
	"sync"
	"testing"

	"github.com/benmeehan/s8-co2-bridge/internal/utils"
	"github.com/stretchr/testify/assert"
)

func TestWorkerPool_RunsJobsInOrder(t *testing.T) {
	pool := utils.NewWorkerPool(1, 8)

	var mu sync.Mutex
	var order []int
	for i := 0; i < 5; i++ {
		i := i
		assert.True(t, pool.Submit(func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		}))
	}
	pool.Shutdown()

	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestWorkerPool_TrySubmitWhenFull(t *testing.T) {
	pool := utils.NewWorkerPool(1, 1)

	started := make(chan struct{})
	release := make(chan struct{})
	assert.True(t, pool.TrySubmit(func() {
		close(started)
		<-release
	}))
	<-started

	assert.True(t, pool.TrySubmit(func() {}))
	assert.False(t, pool.TrySubmit(func() {}))
	assert.Equal(t, 1, pool.Pending())

	close(release)
	pool.Shutdown()
}

func TestWorkerPool_SubmitAfterShutdown(t *testing.T) {
	pool := utils.NewWorkerPool(1, 1)
	pool.Shutdown()
	pool.Shutdown()

	assert.False(t, pool.Submit(func() {}))
	assert.False(t, pool.TrySubmit(func() {}))
}
