// Package retention wires up the cron job that periodically deletes resume
// attachments older than the configured retention period.
package retention

import (
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/bharatcrest/hrmatcher/internal/ingestion"
)

// Scheduler wraps robfig/cron and manages the retention sweep loop
type Scheduler struct {
	cron          *cron.Cron
	store         *ingestion.Store
	retentionDays int
	log           *zap.Logger
}

// New creates a Scheduler that sweeps the store once a day
func New(store *ingestion.Store, retentionDays int, log *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:          cron.New(),
		store:         store,
		retentionDays: retentionDays,
		log:           log,
	}
}

// Start registers the sweep job and starts the scheduler. One sweep also
// runs immediately so stale files from before a restart are removed.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc("@daily", s.runSweep); err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	s.cron.Start()
	s.log.Info("retention scheduler started",
		zap.Int("retention_days", s.retentionDays))

	go s.runSweep()
	return nil
}

// Stop gracefully shuts down the scheduler
func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.log.Info("retention scheduler stopped")
}

func (s *Scheduler) runSweep() {
	deleted, err := s.store.Sweep(s.retentionDays)
	if err != nil {
		s.log.Error("retention sweep failed", zap.Error(err))
		return
	}
	s.log.Info("retention sweep complete", zap.Int("deleted", deleted))
}
