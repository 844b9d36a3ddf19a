// Package scheduler refreshes the catalog of live widget sessions on a cron
// schedule.
package scheduler

import (
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Refresher is anything whose stock snapshot can be refreshed in the
// background.
type Refresher interface {
	RequestRefresh()
}

// Source lists the refreshers to visit on each tick.
type Source interface {
	Each(fn func(visitorID string, r Refresher))
}

// Scheduler manages the catalog refresh job.
type Scheduler struct {
	cron   *cron.Cron
	spec   string
	source Source
	logger *zap.Logger
}

// New validates spec (standard 5-field cron) and builds a scheduler.
func New(spec string, source Source, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("scheduler: invalid cron spec %q: %w", spec, err)
	}
	return &Scheduler{cron: cron.New(), spec: spec, source: source, logger: logger}, nil
}

// Start schedules the job and starts the cron loop.
func (s *Scheduler) Start() error {
	s.logger.Info("starting scheduler", zap.String("spec", s.spec))
	if _, err := s.cron.AddFunc(s.spec, s.RefreshAll); err != nil {
		return fmt.Errorf("scheduler: add job: %w", err)
	}
	s.cron.Start()
	return nil
}

// Stop stops the cron loop and waits for a running job.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

// RefreshAll asks every live session to refresh its catalog.
func (s *Scheduler) RefreshAll() {
	n := 0
	s.source.Each(func(_ string, r Refresher) {
		r.RequestRefresh()
		n++
	})
	s.logger.Debug("catalog refresh requested", zap.Int("sessions", n))
}
