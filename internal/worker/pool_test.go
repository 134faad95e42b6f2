package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockJob struct {
	id        int
	delay     time.Duration
	shouldErr bool
	start     func()
	end       func()
}

func (j *mockJob) Execute(ctx context.Context) Result {
	if j.start != nil {
		j.start()
	}
	if j.delay > 0 {
		time.Sleep(j.delay)
	}
	if j.end != nil {
		j.end()
	}
	if j.shouldErr {
		return &mockResult{id: j.id, err: errors.New("mock error")}
	}
	return &mockResult{id: j.id}
}

type mockResult struct {
	id  int
	err error
}

func (r *mockResult) GetError() error { return r.err }

func TestPool_ResultsInSubmissionOrder(t *testing.T) {
	pool := NewPool(context.Background(), 4)
	pool.Start()

	for i := 0; i < 12; i++ {
		// later jobs finish first
		require.True(t, pool.Submit(&mockJob{id: i, delay: time.Duration(12-i) * time.Millisecond}))
	}

	results := pool.Wait()
	require.Len(t, results, 12)
	for i, res := range results {
		assert.Equal(t, i, res.(*mockResult).id)
	}
}

func TestPool_SubmitBeyondBuffersBeforeWait(t *testing.T) {
	pool := NewPool(context.Background(), 1)
	pool.Start()

	// queue and result buffers hold 2 each; the rest must drain while Submit blocks
	submitted := make(chan struct{})
	go func() {
		defer close(submitted)
		for i := 0; i < 20; i++ {
			assert.True(t, pool.Submit(&mockJob{id: i}))
		}
	}()

	select {
	case <-submitted:
	case <-time.After(5 * time.Second):
		t.Fatal("Submit blocked with no reader on results")
	}

	results := pool.Wait()
	require.Len(t, results, 20)
	for i, r := range results {
		assert.Equal(t, i, r.(*mockResult).id)
	}
}

func TestPool_Concurrency(t *testing.T) {
	const workers = 5
	pool := NewPool(context.Background(), workers)
	pool.Start()

	var (
		current, completed int32
		mu                 sync.Mutex
		peak               int32
	)

	for i := 0; i < 30; i++ {
		pool.Submit(&mockJob{
			delay: 5 * time.Millisecond,
			start: func() {
				n := atomic.AddInt32(&current, 1)
				mu.Lock()
				if n > peak {
					peak = n
				}
				mu.Unlock()
			},
			end: func() {
				atomic.AddInt32(&current, -1)
				atomic.AddInt32(&completed, 1)
			},
		})
	}

	pool.Wait()
	assert.Equal(t, int32(30), atomic.LoadInt32(&completed))

	mu.Lock()
	defer mu.Unlock()
	assert.LessOrEqual(t, peak, int32(workers))
}

func TestPool_ErrorsAreResults(t *testing.T) {
	pool := NewPool(context.Background(), 2)
	pool.Start()

	pool.Submit(&mockJob{id: 0, shouldErr: true})
	pool.Submit(&mockJob{id: 1})

	results := pool.Wait()
	require.Len(t, results, 2)
	assert.Error(t, results[0].GetError())
	assert.NoError(t, results[1].GetError())
}

func TestPool_ZeroWorkersDefaultsToOne(t *testing.T) {
	pool := NewPool(context.Background(), 0)
	pool.Start()
	pool.Submit(&mockJob{id: 7})

	results := pool.Wait()
	require.Len(t, results, 1)
	assert.Equal(t, 7, results[0].(*mockResult).id)
}

func TestPool_SubmitAfterShutdown(t *testing.T) {
	pool := NewPool(context.Background(), 2)
	pool.Start()
	pool.Shutdown()

	done := make(chan bool)
	go func() { done <- pool.Submit(&mockJob{}) }()

	select {
	case accepted := <-done:
		assert.False(t, accepted)
	case <-time.After(time.Second):
		t.Fatal("Submit after shutdown blocked")
	}
}

func TestPool_ParentCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pool := NewPool(ctx, 1)
	pool.Start()

	started := make(chan struct{})
	pool.Submit(&mockJob{start: func() { close(started) }, delay: 50 * time.Millisecond})
	<-started
	cancel()

	assert.False(t, pool.Submit(&mockJob{}))

	done := make(chan []Result)
	go func() { done <- pool.Wait() }()

	select {
	case results := <-done:
		assert.LessOrEqual(t, len(results), 1)
	case <-time.After(time.Second):
		t.Fatal("Wait after cancel timed out")
	}
}
