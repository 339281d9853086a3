package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/dssouza/bank-accounts/internal/service"
)

// Scheduler runs periodic maintenance jobs
type Scheduler struct {
	cron *cron.Cron
	svc  *service.Service
	log  *logrus.Logger
}

// NewScheduler initializes the cron jobs without starting them
func NewScheduler(svc *service.Service, log *logrus.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron: cron.New(),
		svc:  svc,
		log:  log,
	}

	// Daily card-expiry reminder sweep
	if _, err := s.cron.AddFunc("@daily", s.runExpiryReminders); err != nil {
		return nil, err
	}

	return s, nil
}

// Start begins executing scheduled jobs in their own goroutines
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("Scheduler started")
}

// Stop waits for running jobs and shuts the scheduler down
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info("Scheduler stopped")
}

func (s *Scheduler) runExpiryReminders() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if err := s.svc.SendExpiryReminders(ctx); err != nil {
		s.log.Errorf("Expiry reminder job failed: %v", err)
	}
}
