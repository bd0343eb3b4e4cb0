package scheduler

import (
	"context"
	"time"

	"github.com/jonesrussell/crawlsched/internal/domain"
	"github.com/jonesrussell/crawlsched/internal/logger"
)

// DefaultLeaseTTL bounds how long a row may sit in PROCESSING before the
// reaper considers it stuck, sized above the worst-case dispatch envelope
// (statement timeout plus publish retry budget).
const DefaultLeaseTTL = 15 * time.Second

// DefaultReapInterval is how often the reaper sweeps both pools.
const DefaultReapInterval = 30 * time.Second

// Reaper periodically requeues rows stuck in PROCESSING past their lease
// TTL, the supplemented defense against a crashed dispatcher instance
// leaving a row unreachable by any future lease query.
type Reaper struct {
	store    WorkStoreReaper
	log      logger.Interface
	ttl      time.Duration
	interval time.Duration
}

// WorkStoreReaper is the subset of the Work Store the reaper needs.
type WorkStoreReaper interface {
	ReapStuck(ctx context.Context, kind domain.Kind, olderThan time.Duration) (int, error)
}

// NewReaper constructs a Reaper with the default TTL and sweep interval.
func NewReaper(store WorkStoreReaper, log logger.Interface) *Reaper {
	return NewReaperWithTTL(store, log, DefaultLeaseTTL, DefaultReapInterval)
}

// NewReaperWithTTL constructs a Reaper with an explicit lease TTL and sweep
// interval, for binaries that source the TTL from configuration.
func NewReaperWithTTL(store WorkStoreReaper, log logger.Interface, ttl, interval time.Duration) *Reaper {
	return &Reaper{store: store, log: log, ttl: ttl, interval: interval}
}

// Run sweeps both pools on every tick of the reaper's interval until ctx is
// cancelled.
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sweep(ctx, domain.KindScheduled)
			r.sweep(ctx, domain.KindPredefined)
		}
	}
}

func (r *Reaper) sweep(ctx context.Context, kind domain.Kind) {
	n, err := r.store.ReapStuck(ctx, kind, r.ttl)
	if err != nil {
		r.log.WithError(err).Error("reaper sweep failed", "kind", kind)
		return
	}
	if n > 0 {
		r.log.Warn("reaper requeued stuck items", "kind", kind, "count", n)
	}
}
