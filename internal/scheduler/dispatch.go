package scheduler

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/jonesrussell/crawlsched/internal/broker"
	"github.com/jonesrussell/crawlsched/internal/domain"
	"github.com/jonesrussell/crawlsched/internal/logger"
)

// maxRetriesExceededMessage is the exception_info recorded on an item whose
// retry_count exceeds domain.MaxRetries before a dispatch attempt is made.
const maxRetriesExceededMessage = "Max retry count exceeded"

// WorkStore is the subset of internal/store.WorkStore the dispatcher needs.
// Declared here so dispatch logic can be unit tested against a fake without
// depending on the store package's concrete *sqlx.DB wiring.
type WorkStore interface {
	LeaseDueBatch(ctx context.Context, kind domain.Kind, limit int) ([]domain.LeasedItem, error)
	TransitionItem(ctx context.Context, kind domain.Kind, t domain.Transition) error
}

// Dispatcher drains due batches and publishes them onto the broker,
// applying dispatch_one's retry/terminal-state rules per item.
type Dispatcher struct {
	store     WorkStore
	publisher broker.Publisher
	log       logger.Interface
}

// NewDispatcher constructs a Dispatcher.
func NewDispatcher(store WorkStore, publisher broker.Publisher, log logger.Interface) *Dispatcher {
	return &Dispatcher{store: store, publisher: publisher, log: log}
}

// LeaseDueBatch delegates to the underlying store.
func (d *Dispatcher) LeaseDueBatch(ctx context.Context, kind domain.Kind, limit int) ([]domain.LeasedItem, error) {
	return d.store.LeaseDueBatch(ctx, kind, limit)
}

// DispatchOne applies the dispatch_one algorithm to a single leased item:
// terminal FAILED if retries are exhausted, otherwise publish and transition
// to COMPLETED on success or PENDING (retry_count+1) on publish failure.
// Publish failures are swallowed into a PENDING retry transition rather than
// returned, matching the tick loop's "never unwind the timer" contract;
// only a failing store transition is returned to the caller.
func (d *Dispatcher) DispatchOne(ctx context.Context, kind domain.Kind, item domain.LeasedItem) error {
	if item.RetryCount > domain.MaxRetries {
		msg := maxRetriesExceededMessage
		return d.transition(ctx, kind, domain.Transition{
			ID:         item.ID,
			Status:     domain.StatusFailed,
			RetryCount: item.RetryCount,
			Exception:  &msg,
		})
	}

	topic := domain.Topic{Exchange: item.TaskData.Exchange, RoutingKey: item.TaskData.RoutingKey}
	body := FetchURLDto{URL: item.URL}

	publishErr := d.publisher.Publish(ctx, topic, body, amqp.Table{})
	if publishErr != nil {
		d.log.Warn("dispatch publish failed, requeueing",
			"item_id", item.ID, "url", item.URL, "error", publishErr)
		exception := publishErr.Error()
		return d.transition(ctx, kind, domain.Transition{
			ID:         item.ID,
			Status:     domain.StatusPending,
			RetryCount: item.RetryCount + 1,
			Exception:  &exception,
		})
	}

	if err := d.transition(ctx, kind, domain.Transition{
		ID:         item.ID,
		Status:     domain.StatusCompleted,
		RetryCount: item.RetryCount,
	}); err != nil {
		return fmt.Errorf("complete item %d: %w", item.ID, err)
	}
	return nil
}

// transition validates t against the state machine before issuing it,
// so an invalid target status is caught in-process instead of relying
// solely on the store's WHERE-clause guard. A leased item is always in
// PROCESSING, the only source status DispatchOne ever transitions from.
func (d *Dispatcher) transition(ctx context.Context, kind domain.Kind, t domain.Transition) error {
	if err := ValidateTransition(domain.StatusProcessing, t.Status); err != nil {
		return fmt.Errorf("dispatch item %d: %w", t.ID, err)
	}
	return d.store.TransitionItem(ctx, kind, t)
}

// FetchURLDto is the message body published to the fetch_url topic.
type FetchURLDto struct {
	URL string `json:"url"`
}
