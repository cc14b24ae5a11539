package nashealth

import (
	"context"
	"time"

	"github.com/cernbox/docvault/pkg/log"
	"github.com/cernbox/docvault/pkg/model"
)

var logger = log.New("nashealth")

// Probe runs one health check against the NAS tier and reports the state it
// observed.
type Probe func(ctx context.Context) (model.NASHealthStatus, error)

// Scheduler ticks Probe on Interval and writes every result into Cell via
// SetFromProbe.
type Scheduler struct {
	Cell     *Cell
	Probe    Probe
	Interval time.Duration
}

// Run blocks probing on Interval until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	interval := s.Interval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	status, err := s.Probe(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("nashealth: probe reported failure")
	}
	s.Cell.SetFromProbe(status, err)
}
