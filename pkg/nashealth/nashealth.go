// Package nashealth implements the NAS health cache (C9): a process-wide
// three-state cell (healthy/degraded/unhealthy) with two writers of
// differing privilege — the periodic probe may set any state, a worker
// that just hit an I/O failure may only push the state to unhealthy — in
// the manner of the teacher's mtimesyncedcache: a small mutex-guarded cell
// singleton rather than a dedicated actor.
package nashealth

import (
	"sync"
	"time"

	"github.com/cernbox/docvault/pkg/errkind"
	"github.com/cernbox/docvault/pkg/metrics"
	"github.com/cernbox/docvault/pkg/model"
)

func recordTransition(from, to model.NASHealthStatus) {
	if from == to {
		return
	}
	metrics.NASHealthTransitionsTotal.WithLabelValues(string(from), string(to)).Inc()
	for _, s := range []model.NASHealthStatus{model.HealthHealthy, model.HealthDegraded, model.HealthUnhealthy} {
		v := 0.0
		if s == to {
			v = 1
		}
		metrics.NASHealthCurrent.WithLabelValues(string(s)).Set(v)
	}
}

// Cell is the process-wide health cell. The zero value is not usable; build
// one with New, which starts optimistic (healthy) so the service accepts
// traffic at cold start before the first probe has run.
type Cell struct {
	mu            sync.RWMutex
	status        model.NASHealthStatus
	lastCheckedAt time.Time
	lastError     string
}

// New returns a Cell in the initial healthy state.
func New() *Cell {
	return &Cell{status: model.HealthHealthy, lastCheckedAt: time.Now().UTC()}
}

// Normalize maps an arbitrary probe-reported string onto one of the three
// known states, defaulting anything unrecognised to unhealthy rather than
// silently treating it as healthy.
func Normalize(s string) model.NASHealthStatus {
	switch model.NASHealthStatus(s) {
	case model.HealthHealthy, model.HealthDegraded, model.HealthUnhealthy:
		return model.NASHealthStatus(s)
	default:
		return model.HealthUnhealthy
	}
}

// SetFromProbe is the scheduler's write path: it may move the cell to any
// of the three states.
func (c *Cell) SetFromProbe(status model.NASHealthStatus, probeErr error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	next := Normalize(string(status))
	recordTransition(c.status, next)
	c.status = next
	c.lastCheckedAt = time.Now().UTC()
	if probeErr != nil {
		c.lastError = probeErr.Error()
	} else {
		c.lastError = ""
	}
}

// ReportFailure is a worker's write path: an I/O failure can only push the
// cell to unhealthy, never recover it — recovery is the scheduler's
// exclusive job, which prevents a healthy probe result and a concurrently
// failing worker from oscillating the cell back and forth.
func (c *Cell) ReportFailure(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	recordTransition(c.status, model.HealthUnhealthy)
	c.status = model.HealthUnhealthy
	c.lastCheckedAt = time.Now().UTC()
	if err != nil {
		c.lastError = err.Error()
	}
}

// Status is a point-in-time snapshot of the cell.
type Status struct {
	State         model.NASHealthStatus
	LastCheckedAt time.Time
	LastError     string
}

// Get returns the current snapshot.
func (c *Cell) Get() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Status{State: c.status, LastCheckedAt: c.lastCheckedAt, LastError: c.lastError}
}

// Gate is the ingress guard: it rejects traffic when the cell is
// unhealthy and allows it through when degraded or healthy.
func (c *Cell) Gate() error {
	c.mu.RLock()
	state := c.status
	c.mu.RUnlock()
	if state == model.HealthUnhealthy {
		return errkind.ServiceUnavailable("NAS_UNAVAILABLE")
	}
	return nil
}
