package jobqueue_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cernbox/docvault/pkg/jobqueue"
	"github.com/cernbox/docvault/pkg/jobqueue/memqueue"
	"github.com/cernbox/docvault/pkg/ports"
)

func TestSubmitThenProcessDeliversPayload(t *testing.T) {
	q := jobqueue.New(memqueue.New())

	var received atomic.Value
	done := make(chan struct{})
	handler := func(ctx context.Context, job ports.Job) error {
		received.Store(string(job.Payload))
		close(done)
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go q.ProcessJobs(ctx, "NAS_FOLDER_SYNC", handler, ports.ProcessOptions{Concurrency: 1})

	require.NoError(t, q.Submit(ctx, "NAS_FOLDER_SYNC", []byte(`{"folderId":"f-1"}`)))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler was never invoked")
	}
	require.Equal(t, `{"folderId":"f-1"}`, received.Load())
}

func TestProcessJobsDropsAfterMaxAttemptsWithoutRedelivery(t *testing.T) {
	q := jobqueue.New(memqueue.New())

	var calls int32
	handler := func(ctx context.Context, job ports.Job) error {
		atomic.AddInt32(&calls, 1)
		return context.DeadlineExceeded
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go q.ProcessJobs(ctx, "NAS_FILE_SYNC", handler, ports.ProcessOptions{Concurrency: 1, MaxAttempts: 1})

	require.NoError(t, q.Submit(ctx, "NAS_FILE_SYNC", []byte(`{"fileId":"x"}`)))

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&calls) == 1
	}, 2*time.Second, 10*time.Millisecond)

	// With MaxAttempts=1 the single failure exhausts retries immediately, so
	// no redelivery is scheduled: the call count must stay at 1.
	time.Sleep(100 * time.Millisecond)
	require.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestProcessJobsStopsOnContextCancellation(t *testing.T) {
	q := jobqueue.New(memqueue.New())
	handler := func(ctx context.Context, job ports.Job) error { return nil }

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- q.ProcessJobs(ctx, "NAS_FOLDER_SYNC", handler, ports.ProcessOptions{})
	}()

	cancel()
	select {
	case err := <-errCh:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("ProcessJobs did not return after context cancellation")
	}
}
