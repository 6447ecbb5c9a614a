package reminder

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/warranty-tracker/warranty-client/internal/warranty/domain"
)

const runTimeout = time.Minute

// ExpiringSource loads the caller's warranties that end within days days,
// bypassing any cached copy.
type ExpiringSource interface {
	RefreshExpiringWithinDays(ctx context.Context, days int, authRequired bool) ([]domain.Warranty, error)
}

// Notify receives the warranties found by one run.
type Notify func(ctx context.Context, warranties []domain.Warranty)

type Scheduler struct {
	cron   *cron.Cron
	source ExpiringSource
	days   int
	notify Notify
}

func NewScheduler(source ExpiringSource, days int, notify Notify) *Scheduler {
	return &Scheduler{
		cron:   cron.New(cron.WithSeconds()),
		source: source,
		days:   days,
		notify: notify,
	}
}

// Start registers the job on a six-field cron spec and starts the scheduler.
func (s *Scheduler) Start(spec string) error {
	_, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
		defer cancel()
		if err := s.RunOnce(ctx); err != nil {
			log.Printf("Expiring warranty check failed: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to create cron job: %w", err)
	}

	log.Printf("Reminder scheduler started (%s, window %d days)", spec, s.days)
	s.cron.Start()
	return nil
}

// Stop stops scheduling and waits for a running check to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// RunOnce performs one check and hands the result to notify.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	warranties, err := s.source.RefreshExpiringWithinDays(ctx, s.days, true)
	if err != nil {
		return fmt.Errorf("failed to load expiring warranties: %w", err)
	}
	log.Printf("Expiring warranty check found %d warranties within %d days", len(warranties), s.days)
	if s.notify != nil {
		s.notify(ctx, warranties)
	}
	return nil
}
