package scheduler

import (
	"fmt"

	"github.com/jonesrussell/crawlsched/internal/domain"
)

// validTransitions is the allow-list of legal ItemStatus transitions for a
// ScheduledItem or PredefinedItem. No item transitions out of {COMPLETED,
// FAILED}.
var validTransitions = map[domain.ItemStatus][]domain.ItemStatus{
	domain.StatusPending: {
		domain.StatusProcessing,
	},
	domain.StatusProcessing: {
		domain.StatusCompleted,
		domain.StatusPending, // publish failure: re-queue with retry_count+1
		domain.StatusFailed,  // retry_count exceeded MaxRetries
	},
	domain.StatusCompleted: {},
	domain.StatusFailed:    {},
}

// ValidateTransition reports whether moving an item from `from` to `to` is
// a legal state transition. Callers use this as the guard before issuing
// the WHERE-clause-protected UPDATE in the Work Store.
func ValidateTransition(from, to domain.ItemStatus) error {
	allowed, exists := validTransitions[from]
	if !exists {
		return fmt.Errorf("scheduler: unknown source status %q", from)
	}
	for _, candidate := range allowed {
		if candidate == to {
			return nil
		}
	}
	return fmt.Errorf("scheduler: invalid transition from %q to %q", from, to)
}
