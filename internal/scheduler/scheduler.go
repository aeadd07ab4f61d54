// Package scheduler runs the nightly scrape and sync cycles on local-time
// cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/wltan/buskersync/internal/engine"
	"github.com/wltan/buskersync/internal/logger"
)

// Scheduler owns the cron runner. Jobs fire in the configured location so
// "23:00" means the schedule source's local evening, not the host's.
type Scheduler struct {
	cron   *cron.Cron
	engine *engine.Engine
}

func New(eng *engine.Engine, loc *time.Location, scrapeHour, syncHour int) (*Scheduler, error) {
	s := &Scheduler{
		cron:   cron.New(cron.WithLocation(loc)),
		engine: eng,
	}

	scrapeSpec := fmt.Sprintf("0 %d * * *", scrapeHour)
	if _, err := s.cron.AddFunc(scrapeSpec, s.scrapeJob); err != nil {
		return nil, fmt.Errorf("scheduler: scrape spec %q: %w", scrapeSpec, err)
	}

	syncSpec := fmt.Sprintf("0 %d * * *", syncHour)
	if _, err := s.cron.AddFunc(syncSpec, s.syncJob); err != nil {
		return nil, fmt.Errorf("scheduler: sync spec %q: %w", syncSpec, err)
	}

	logger.Info("schedules registered", logger.Fields{
		"scrape":   scrapeSpec,
		"sync":     syncSpec,
		"timezone": loc.String(),
	})
	return s, nil
}

func (s *Scheduler) scrapeJob() {
	result := s.engine.RunScrape(context.Background())
	if result.Status == engine.StatusError {
		logger.Error("scheduled scrape ended in error", logger.Fields{"errors": result.Errors}, nil)
	}
}

func (s *Scheduler) syncJob() {
	result := s.engine.RunSync(context.Background())
	if result.Status == engine.StatusError {
		logger.Error("scheduled sync ended in error", logger.Fields{"errors": result.Errors}, nil)
	}
}

// Start launches the cron runner in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for any running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
