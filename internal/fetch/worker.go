package fetch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonesrussell/crawlsched/internal/broker"
	"github.com/jonesrussell/crawlsched/internal/domain"
	"github.com/jonesrussell/crawlsched/internal/logger"
	"github.com/jonesrussell/crawlsched/internal/store"
)

// URLStore is the subset of internal/store.URLStore the fetcher worker
// needs, narrowed here so worker logic is testable against a fake.
type URLStore interface {
	GetByURLCI(ctx context.Context, url string) (*domain.URLRecord, error)
	Insert(ctx context.Context, url string) (*domain.URLRecord, error)
	InsertContent(ctx context.Context, urlID int64, body string) (*domain.Content, error)
	MarkCrawled(ctx context.Context, id int64, crawledAt time.Time) error
}

// Worker implements the fetcher side of the Fetch Pipeline Contracts: given
// a FetchURLDto, it finds-or-creates the URL row (case-insensitively),
// fetches the body, persists it, marks the URL crawled, and emits a
// FetchedURLDto onto content_fetched.
type Worker struct {
	fetcher   Fetcher
	urls      URLStore
	publisher broker.Publisher
	log       logger.Interface
	now       func() time.Time
}

// NewWorker constructs a fetcher Worker.
func NewWorker(fetcher Fetcher, urls URLStore, publisher broker.Publisher, log logger.Interface) *Worker {
	return &Worker{fetcher: fetcher, urls: urls, publisher: publisher, log: log, now: time.Now}
}

// HandleFetchURL finds or creates the URL record, fetches its body, stores
// the content, marks it crawled, and publishes a content_fetched event.
func (w *Worker) HandleFetchURL(ctx context.Context, msg FetchURLDto) error {
	record, err := w.findOrCreateURL(ctx, msg.URL)
	if err != nil {
		return fmt.Errorf("find or create url %q: %w", msg.URL, err)
	}

	body, err := w.fetcher.Fetch(ctx, msg.URL)
	if err != nil {
		return fmt.Errorf("fetch %q: %w", msg.URL, err)
	}

	if _, err := w.urls.InsertContent(ctx, record.ID, string(body)); err != nil {
		return fmt.Errorf("store content for url %d: %w", record.ID, err)
	}

	if err := w.urls.MarkCrawled(ctx, record.ID, w.now().UTC()); err != nil {
		return fmt.Errorf("mark url %d crawled: %w", record.ID, err)
	}

	contentFetched := domain.Topics[domain.EventContentFetched]
	if err := w.publisher.Publish(ctx, contentFetched, FetchedURLDto{URLID: record.ID}, nil); err != nil {
		return fmt.Errorf("publish content_fetched for url %d: %w", record.ID, err)
	}

	w.log.Info("fetched and stored url", "url_id", record.ID, "url", msg.URL)
	return nil
}

func (w *Worker) findOrCreateURL(ctx context.Context, url string) (*domain.URLRecord, error) {
	record, err := w.urls.GetByURLCI(ctx, url)
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, store.ErrURLNotFound) {
		return nil, err
	}
	return w.urls.Insert(ctx, url)
}
