// Package intake implements the HTTP Intake API, which enqueues new URLs
// into the scheduler's scheduled-item pool. It has no endpoint for
// date-discovery jobs or predefined items.
package intake

import (
	"context"
	"fmt"
	"time"

	"github.com/jonesrussell/crawlsched/internal/domain"
	"github.com/jonesrussell/crawlsched/internal/logger"
)

// ScheduleDelay is added to "now" to produce a new item's scheduled_time.
const ScheduleDelay = time.Minute

// WorkStore is the subset of internal/store.WorkStore the intake service
// needs to enqueue a ScheduledItem idempotently.
type WorkStore interface {
	ExistsScheduledURLCI(ctx context.Context, url string) (bool, error)
	AddScheduled(ctx context.Context, url string, scheduledTime time.Time, taskData domain.TaskData) (*domain.ScheduledItem, error)
}

// Service implements idempotent URL scheduling. It also satisfies
// internal/fetch.Scheduler, so the discovery worker's per-href callback can
// call directly into this same service rather than looping a fresh URL
// submission back over HTTP.
type Service struct {
	store WorkStore
	log   logger.Interface
	now   func() time.Time
}

// NewService constructs an intake Service.
func NewService(store WorkStore, log logger.Interface) *Service {
	return &Service{store: store, log: log, now: time.Now}
}

// ScheduleURL enqueues url as a new ScheduledItem unless a scheduled item
// for the same URL (case-insensitive) already exists, per the idempotent
// intake contract: submitting the same URL twice yields exactly one row.
func (s *Service) ScheduleURL(ctx context.Context, url string) error {
	exists, err := s.store.ExistsScheduledURLCI(ctx, url)
	if err != nil {
		return fmt.Errorf("check existing schedule for %q: %w", url, err)
	}
	if exists {
		s.log.Info("url already scheduled, skipping", "url", url)
		return nil
	}

	taskData := domain.TaskData{
		Exchange:   domain.Topics[domain.EventFetchURL].Exchange,
		Queue:      domain.Topics[domain.EventFetchURL].Queue,
		RoutingKey: domain.Topics[domain.EventFetchURL].RoutingKey,
	}

	item, err := s.store.AddScheduled(ctx, url, s.now().UTC().Add(ScheduleDelay), taskData)
	if err != nil {
		return fmt.Errorf("add scheduled item for %q: %w", url, err)
	}

	s.log.Info("url scheduled", "url", url, "item_id", item.ID, "scheduled_time", item.ScheduledTime)
	return nil
}

// ScheduleURLs enqueues every url independently, collecting per-URL errors
// rather than failing the whole batch on the first one.
func (s *Service) ScheduleURLs(ctx context.Context, urls []string) []error {
	errs := make([]error, 0, len(urls))
	for _, url := range urls {
		if err := s.ScheduleURL(ctx, url); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}
