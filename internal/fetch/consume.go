package fetch

import (
	"context"
	"encoding/json"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/jonesrussell/crawlsched/internal/logger"
)

// DefaultWorkerCount is the number of concurrent goroutines draining a
// queue's delivery channel, when a binary doesn't override it.
const DefaultWorkerCount = 4

// ConsumeFetchURL drains deliveries with WorkerCount concurrent goroutines,
// decoding each as a FetchURLDto and handing it to worker. Acks on success;
// nacks without requeue on decode or handling failure, so the broker
// dead-letters the message to the event's DLQ. Blocks until ctx is
// cancelled and every worker has drained.
func ConsumeFetchURL(ctx context.Context, deliveries <-chan amqp.Delivery, worker *Worker, log logger.Interface, workerCount int) {
	runPool(ctx, deliveries, workerCount, func(ctx context.Context, d amqp.Delivery) {
		var msg FetchURLDto
		if err := json.Unmarshal(d.Body, &msg); err != nil {
			log.Error("failed to unmarshal fetch_url message", "error", err)
			_ = d.Nack(false, false)
			return
		}
		if err := worker.HandleFetchURL(ctx, msg); err != nil {
			log.Error("fetch_url handling failed", "url", msg.URL, "error", err)
			_ = d.Nack(false, false)
			return
		}
		_ = d.Ack(false)
	})
}

// ConsumeByDateFetchURL drains deliveries with WorkerCount concurrent
// goroutines, decoding each as a ByDateFetchURLDto and handing it to worker.
func ConsumeByDateFetchURL(
	ctx context.Context, deliveries <-chan amqp.Delivery, worker *DiscoveryWorker, log logger.Interface, workerCount int,
) {
	runPool(ctx, deliveries, workerCount, func(ctx context.Context, d amqp.Delivery) {
		var msg ByDateFetchURLDto
		if err := json.Unmarshal(d.Body, &msg); err != nil {
			log.Error("failed to unmarshal check_sub_url_by_date message", "error", err)
			_ = d.Nack(false, false)
			return
		}
		if err := worker.HandleByDateFetchURL(ctx, msg); err != nil {
			log.Error("check_sub_url_by_date handling failed", "url", msg.URL, "error", err)
			_ = d.Nack(false, false)
			return
		}
		_ = d.Ack(false)
	})
}

func runPool(ctx context.Context, deliveries <-chan amqp.Delivery, workerCount int, handle func(context.Context, amqp.Delivery)) {
	if workerCount <= 0 {
		workerCount = DefaultWorkerCount
	}

	var wg sync.WaitGroup
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case d, ok := <-deliveries:
					if !ok {
						return
					}
					handle(ctx, d)
				}
			}
		}()
	}
	wg.Wait()
}
