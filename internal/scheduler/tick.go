package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/jonesrussell/crawlsched/internal/domain"
	"github.com/jonesrussell/crawlsched/internal/logger"
	"github.com/jonesrussell/crawlsched/internal/store"
)

// Cron schedules for the two tick loops.
const (
	ScheduledCronSpec  = "*/5 * * * *"
	PredefinedCronSpec = "*/10 * * * *"

	batchLimit = 10
)

// Scheduler owns the two cron-driven tick loops that drain the SCHEDULED
// and PREDEFINED work pools and dispatch due items onto the broker.
type Scheduler struct {
	dispatcher *Dispatcher
	log        logger.Interface
	cron       *cron.Cron
	wg         sync.WaitGroup
}

// NewScheduler constructs a Scheduler. The cron instance uses the standard
// 5-field parser and UTC wall-clock throughout, avoiding drift from
// local-time scheduling across process restarts in different zones.
func NewScheduler(dispatcher *Dispatcher, log logger.Interface) *Scheduler {
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithChain(cron.Recover(cron.DefaultLogger)),
	)
	return &Scheduler{dispatcher: dispatcher, log: log, cron: c}
}

// Start registers both tick loops and starts the cron scheduler. It does
// not block; call Stop to shut down. Cancelling ctx cancels the work of the
// ticks but does not stop the cron schedule.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(ScheduledCronSpec, s.tickFunc(ctx, domain.KindScheduled)); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(PredefinedCronSpec, s.tickFunc(ctx, domain.KindPredefined)); err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Stop stops the cron scheduler and waits for any in-flight tick to finish.
func (s *Scheduler) Stop() {
	cronCtx := s.cron.Stop()
	<-cronCtx.Done()
	s.wg.Wait()
}

func (s *Scheduler) tickFunc(ctx context.Context, kind domain.Kind) func() {
	return func() {
		s.wg.Add(1)
		defer s.wg.Done()
		if err := s.processBatch(ctx, kind); err != nil {
			s.log.Error("tick failed", "kind", kind, "error", err)
		}
	}
}

// processBatch leases a due batch and dispatches every item concurrently,
// joining on completion without letting an individual dispatch error
// unwind the tick.
func (s *Scheduler) processBatch(ctx context.Context, kind domain.Kind) error {
	leased, err := s.dispatcher.LeaseDueBatch(ctx, kind, batchLimit)
	if err != nil {
		if errors.Is(err, store.ErrNoItemAvailable) {
			return nil
		}
		return err
	}

	group, groupCtx := errgroup.WithContext(ctx)
	for _, item := range leased {
		item := item
		group.Go(func() error {
			if dispatchErr := s.dispatcher.DispatchOne(groupCtx, kind, item); dispatchErr != nil {
				s.log.Error("dispatch_one failed", "item_id", item.ID, "kind", kind, "error", dispatchErr)
			}
			return nil
		})
	}
	return group.Wait()
}
