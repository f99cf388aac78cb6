package workerpool

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func echoDispatcher(ctx context.Context, job Job) (interface{}, error) {
	return job.Payload, nil
}

func TestExecuteReturnsResult(t *testing.T) {
	t.Parallel()

	pool := New(2, echoDispatcher)
	defer pool.Terminate()

	future := pool.Execute(context.Background(), Job{Workload: "echo", Payload: 42})
	value, err := future.Wait(context.Background())
	require.NoError(t, err)
	require.Equal(t, 42, value)
}

func TestBoundedParallelism(t *testing.T) {
	t.Parallel()

	var concurrent int32
	var maxConcurrent int32
	release := make(chan struct{})

	pool := New(3, func(ctx context.Context, job Job) (interface{}, error) {
		n := atomic.AddInt32(&concurrent, 1)
		for {
			old := atomic.LoadInt32(&maxConcurrent)
			if n <= old || atomic.CompareAndSwapInt32(&maxConcurrent, old, n) {
				break
			}
		}
		<-release
		atomic.AddInt32(&concurrent, -1)
		return nil, nil
	})
	defer pool.Terminate()

	futures := make([]*Future, 6)
	for i := 0; i < 6; i++ {
		futures[i] = pool.Execute(context.Background(), Job{Workload: "block"})
	}

	time.Sleep(50 * time.Millisecond)
	require.LessOrEqual(t, int(atomic.LoadInt32(&maxConcurrent)), 3)
	require.Equal(t, 3, int(atomic.LoadInt32(&concurrent)))

	close(release)
	for _, f := range futures {
		_, err := f.Wait(context.Background())
		require.NoError(t, err)
	}
}

func TestWorkerPanicRejectsOnlyThatJob(t *testing.T) {
	t.Parallel()

	pool := New(1, func(ctx context.Context, job Job) (interface{}, error) {
		if job.Payload == "boom" {
			panic("kaboom")
		}
		return "ok", nil
	})
	defer pool.Terminate()

	boomFuture := pool.Execute(context.Background(), Job{Workload: "test", Payload: "boom"})
	_, err := boomFuture.Wait(context.Background())
	require.Error(t, err)

	okFuture := pool.Execute(context.Background(), Job{Workload: "test", Payload: "fine"})
	value, err := okFuture.Wait(context.Background())
	require.NoError(t, err)
	require.Equal(t, "ok", value)
}

func TestActiveJobsReportsInFlightWork(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	release := make(chan struct{})

	pool := New(1, func(ctx context.Context, job Job) (interface{}, error) {
		close(started)
		<-release
		return nil, nil
	})
	defer pool.Terminate()

	future := pool.Execute(context.Background(), Job{Workload: "xslt-transform", Payload: "item.xml"})
	<-started

	active := pool.ActiveJobs()
	require.Len(t, active, 1)
	for _, job := range active {
		require.Equal(t, "xslt-transform", job.Workload)
	}

	close(release)
	_, err := future.Wait(context.Background())
	require.NoError(t, err)
}

func TestTerminateFailsQueuedJobs(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	pool := New(1, func(ctx context.Context, job Job) (interface{}, error) {
		<-release
		return nil, nil
	})

	running := pool.Execute(context.Background(), Job{Workload: "slow"})
	queued := pool.Execute(context.Background(), Job{Workload: "queued"})

	require.Eventually(t, func() bool { return pool.QueueDepth() == 1 }, time.Second, time.Millisecond)

	go func() {
		time.Sleep(10 * time.Millisecond)
		close(release)
	}()

	pool.Terminate()

	_, err := running.Wait(context.Background())
	require.NoError(t, err)

	_, err = queued.Wait(context.Background())
	require.Error(t, err)
}

func TestExecuteAfterTerminateIsRejected(t *testing.T) {
	t.Parallel()

	pool := New(1, echoDispatcher)
	pool.Terminate()

	future := pool.Execute(context.Background(), Job{Workload: "echo"})
	_, err := future.Wait(context.Background())
	require.Error(t, err)
}

func TestWaitRespectsContextCancellation(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	pool := New(1, func(ctx context.Context, job Job) (interface{}, error) {
		<-release
		return nil, nil
	})
	defer func() {
		close(release)
		pool.Terminate()
	}()

	future := pool.Execute(context.Background(), Job{Workload: "slow"})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := future.Wait(ctx)
	require.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestClosureDispatcherInvokesPayload(t *testing.T) {
	t.Parallel()

	pool := New(1, ClosureDispatcher)
	defer pool.Terminate()

	job := NewClosureJob("render-item", func(ctx context.Context) (interface{}, error) {
		return "rendered", nil
	})
	value, err := pool.Execute(context.Background(), job).Wait(context.Background())
	require.NoError(t, err)
	require.Equal(t, "rendered", value)
}

func TestClosureDispatcherRejectsWrongPayloadType(t *testing.T) {
	t.Parallel()

	pool := New(1, ClosureDispatcher)
	defer pool.Terminate()

	_, err := pool.Execute(context.Background(), Job{Workload: "bad", Payload: "not-a-func"}).Wait(context.Background())
	require.Error(t, err)
}

func TestRunSafelyWrapsNonErrorPanics(t *testing.T) {
	t.Parallel()

	pool := New(1, func(ctx context.Context, job Job) (interface{}, error) {
		panic(fmt.Errorf("structured failure"))
	})
	defer pool.Terminate()

	_, err := pool.Execute(context.Background(), Job{Workload: "panics"}).Wait(context.Background())
	require.Error(t, err)
}
