package nashealth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cernbox/docvault/pkg/model"
	"github.com/cernbox/docvault/pkg/nashealth"
)

func TestNewCellStartsHealthy(t *testing.T) {
	c := nashealth.New()
	status := c.Get()
	require.Equal(t, model.HealthHealthy, status.State)
	require.NoError(t, c.Gate())
}

func TestSetFromProbeMovesToAnyState(t *testing.T) {
	c := nashealth.New()

	c.SetFromProbe(model.HealthDegraded, nil)
	require.Equal(t, model.HealthDegraded, c.Get().State)
	require.NoError(t, c.Gate())

	c.SetFromProbe(model.HealthUnhealthy, errors.New("mount not responding"))
	status := c.Get()
	require.Equal(t, model.HealthUnhealthy, status.State)
	require.Equal(t, "mount not responding", status.LastError)
	require.Error(t, c.Gate())

	c.SetFromProbe(model.HealthHealthy, nil)
	status = c.Get()
	require.Equal(t, model.HealthHealthy, status.State)
	require.Empty(t, status.LastError)
	require.NoError(t, c.Gate())
}

func TestSetFromProbeNormalizesUnknownState(t *testing.T) {
	c := nashealth.New()
	c.SetFromProbe(model.NASHealthStatus("bogus"), nil)
	require.Equal(t, model.HealthUnhealthy, c.Get().State)
}

func TestReportFailureOnlyPushesToUnhealthy(t *testing.T) {
	c := nashealth.New()
	c.SetFromProbe(model.HealthHealthy, nil)

	c.ReportFailure(errors.New("write failed"))
	status := c.Get()
	require.Equal(t, model.HealthUnhealthy, status.State)
	require.Equal(t, "write failed", status.LastError)
	require.Error(t, c.Gate())
}

func TestReportFailureCannotRecoverCell(t *testing.T) {
	c := nashealth.New()
	c.ReportFailure(errors.New("boom"))
	require.Equal(t, model.HealthUnhealthy, c.Get().State)

	// Only the scheduler's SetFromProbe path can move the cell back to
	// healthy; a second ReportFailure is a no-op transition to the same state.
	c.ReportFailure(errors.New("boom again"))
	require.Equal(t, model.HealthUnhealthy, c.Get().State)
}

func TestSchedulerRunTicksAtLeastOnceImmediately(t *testing.T) {
	calls := make(chan struct{}, 8)
	cell := nashealth.New()
	sched := &nashealth.Scheduler{
		Cell: cell,
		Probe: func(ctx context.Context) (model.NASHealthStatus, error) {
			calls <- struct{}{}
			return model.HealthHealthy, nil
		},
		Interval: time.Hour,
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		sched.Run(ctx)
	}()

	select {
	case <-calls:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not probe immediately on Run")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after context cancellation")
	}
}
