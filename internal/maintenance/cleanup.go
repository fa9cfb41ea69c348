// Package maintenance runs periodic housekeeping on the link store.
package maintenance

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/linkgate/urlshortener/internal/clock"
	"github.com/linkgate/urlshortener/internal/models"
)

// DefaultSchedule runs the purge daily at 03:00.
const DefaultSchedule = "0 3 * * *"

// LinkStore is the subset of the link repository the purge needs.
type LinkStore interface {
	ListExpiredAnonymousLinks(ctx context.Context, before time.Time) ([]models.Link, error)
	DeleteLink(ctx context.Context, id uuid.UUID) error
}

// Scheduler deletes anonymous links that expired more than retention ago.
type Scheduler struct {
	c         *cron.Cron
	log       *zap.Logger
	links     LinkStore
	clock     clock.Clock
	schedule  string
	retention time.Duration
}

// NewScheduler creates a Scheduler. A zero retention disables the purge.
func NewScheduler(log *zap.Logger, links LinkStore, clk clock.Clock, schedule string, retention time.Duration) *Scheduler {
	// Standard 5-field syntax, no seconds.
	c := cron.New(cron.WithParser(cron.NewParser(cron.Minute|cron.Hour|cron.Dom|cron.Month|cron.Dow)), cron.WithChain(cron.Recover(cron.DefaultLogger)))
	if schedule == "" {
		schedule = DefaultSchedule
	}
	if clk == nil {
		clk = clock.Real{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{c: c, log: log, links: links, clock: clk, schedule: schedule, retention: retention}
}

// Start registers the purge job and stops the cron runner when ctx is done.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.retention <= 0 {
		s.log.Info("Anonymous link purge disabled")
		return nil
	}

	_, err := s.c.AddFunc(s.schedule, func() {
		if _, err := s.RunOnce(ctx); err != nil {
			s.log.Error("Failed to purge expired anonymous links", zap.Error(err))
		}
	})
	if err != nil {
		return err
	}
	s.c.Start()
	s.log.Info("Maintenance scheduler started", zap.String("schedule", s.schedule), zap.Duration("retention", s.retention))

	go func() {
		<-ctx.Done()
		ctxStop := s.c.Stop()
		<-ctxStop.Done()
	}()
	return nil
}

// RunOnce deletes every anonymous link whose expiry is older than the
// retention window, together with its clicks. It returns how many were deleted.
func (s *Scheduler) RunOnce(ctx context.Context) (int, error) {
	cutoff := s.clock.Now().Add(-s.retention)
	links, err := s.links.ListExpiredAnonymousLinks(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, link := range links {
		if err := ctx.Err(); err != nil {
			return deleted, err
		}
		if err := s.links.DeleteLink(ctx, link.ID); err != nil {
			s.log.Warn("Failed to delete expired link", zap.String("short_code", link.ShortCode), zap.Error(err))
			continue
		}
		deleted++
	}
	if deleted > 0 {
		s.log.Info("Deleted expired anonymous links", zap.Int("count", deleted))
	}
	return deleted, nil
}
