package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestQueueFailedJobRunsOnceAndLogs(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	var calls int32
	q := NewQueue("save", func(ctx context.Context, job Job) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("disk full")
	}, QueueConfig{Logger: zap.New(core)})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "1", Type: "board.save"}))
	assert.Eventually(t, func() bool { return logs.FilterMessage("job failed").Len() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
	assert.Equal(t, "save", logs.FilterMessage("job failed").All()[0].ContextMap()["queue"])
}

func TestQueueCoalescesWaitingJobs(t *testing.T) {
	release := make(chan struct{})
	var calls int32
	q := NewQueue("save", func(ctx context.Context, job Job) error {
		if atomic.AddInt32(&calls, 1) == 1 {
			<-release
		}
		return nil
	}, QueueConfig{BufferSize: 4, Coalesce: true})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "1", Type: "board.save"}))
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 1 }, time.Second, time.Millisecond)

	// The first job is running, so the second waits and the third folds into it.
	require.NoError(t, q.Enqueue(Job{ID: "2", Type: "board.save"}))
	require.NoError(t, q.Enqueue(Job{ID: "3", Type: "board.save"}))
	close(release)

	assert.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 2 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestQueueRejectsWhenFull(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	q := NewQueue("export", func(ctx context.Context, job Job) error {
		started <- struct{}{}
		<-release
		return nil
	}, QueueConfig{BufferSize: 1})
	q.Start(context.Background())
	defer func() {
		close(release)
		q.Stop()
	}()

	require.NoError(t, q.Enqueue(Job{ID: "1", Type: "a"}))
	<-started
	require.NoError(t, q.Enqueue(Job{ID: "2", Type: "a"}))
	assert.ErrorIs(t, q.Enqueue(Job{ID: "3", Type: "a"}), ErrQueueFull)
}

func TestEnqueueOutsideLifecycleFails(t *testing.T) {
	q := NewQueue("idle", func(ctx context.Context, job Job) error { return nil }, QueueConfig{})
	assert.Error(t, q.Enqueue(Job{ID: "1"}))

	q.Start(context.Background())
	q.Stop()
	assert.Error(t, q.Enqueue(Job{ID: "2"}))
}

func TestDebouncerCoalescesTriggers(t *testing.T) {
	var calls int32
	q := NewQueue("save", func(ctx context.Context, job Job) error {
		assert.Equal(t, "board.save", job.Type)
		atomic.AddInt32(&calls, 1)
		return nil
	}, QueueConfig{})
	q.Start(context.Background())
	defer q.Stop()

	d := NewDebouncer(q, "board.save", 30*time.Millisecond, nil)
	for i := 0; i < 5; i++ {
		d.Trigger()
	}
	assert.True(t, d.Pending())
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 1 }, time.Second, 5*time.Millisecond)
	assert.False(t, d.Pending())

	time.Sleep(60 * time.Millisecond)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestDebouncerFlushAndStop(t *testing.T) {
	var calls int32
	q := NewQueue("save", func(ctx context.Context, job Job) error {
		atomic.AddInt32(&calls, 1)
		return nil
	}, QueueConfig{})
	q.Start(context.Background())
	defer q.Stop()

	d := NewDebouncer(q, "board.save", time.Hour, nil)
	d.Trigger()
	d.Flush()
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 1 }, time.Second, 5*time.Millisecond)

	d.Trigger()
	d.Stop()
	assert.False(t, d.Pending())
	d.Flush()
	time.Sleep(20 * time.Millisecond)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}
