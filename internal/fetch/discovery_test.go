package fetch_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonesrussell/crawlsched/internal/breaker"
	"github.com/jonesrussell/crawlsched/internal/fetch"
	"github.com/jonesrussell/crawlsched/internal/logger"
	"github.com/jonesrussell/crawlsched/internal/retry"
)

func fastPolicy() (breaker.Config, retry.Config) {
	return breaker.Config{FailureThreshold: 3, SuccessThreshold: 1, Timeout: time.Hour},
		retry.Config{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}
}

type fakeDiscoveryFetcher struct {
	body []byte
	err  error
	urls []string
	mu   sync.Mutex
}

func (f *fakeDiscoveryFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	f.mu.Lock()
	f.urls = append(f.urls, url)
	f.mu.Unlock()
	return f.body, f.err
}

type fakeScheduler struct {
	mu        sync.Mutex
	scheduled []string
}

func (f *fakeScheduler) ScheduleURL(_ context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scheduled = append(f.scheduled, url)
	return nil
}

const sampleAnchorsHTML = `
<html><body>
<a href="https://news.example.com/a">A</a>
<a href="https://news.example.com/b">B</a>
<a>no href</a>
</body></html>
`

func TestDiscoveryWorker_HandleByDateFetchURL_SchedulesDiscoveredAnchors(t *testing.T) {
	fetcher := &fakeDiscoveryFetcher{body: []byte(sampleAnchorsHTML)}
	sched := &fakeScheduler{}
	bcfg, rcfg := fastPolicy()
	w := fetch.NewDiscoveryWorkerWithPolicy(fetcher, sched, logger.NewNoOp(), bcfg, rcfg)

	msg := fetch.ByDateFetchURLDto{URL: "https://hetq.am/hy/articles/", Year: "2025", Month: "03", Day: "12"}
	if err := w.HandleByDateFetchURL(context.Background(), msg); err != nil {
		t.Fatalf("HandleByDateFetchURL() error = %v", err)
	}

	if len(fetcher.urls) != 1 || fetcher.urls[0] != "https://hetq.am/hy/articles/2025/03/12" {
		t.Fatalf("expected fetch of dated url, got %v", fetcher.urls)
	}
	if len(sched.scheduled) != 2 {
		t.Fatalf("expected 2 discovered urls scheduled, got %d: %v", len(sched.scheduled), sched.scheduled)
	}
}

func TestDiscoveryWorker_HandleByDateFetchURL_FetchFails_ReturnsError(t *testing.T) {
	wantErr := errors.New("network down")
	fetcher := &fakeDiscoveryFetcher{err: wantErr}
	sched := &fakeScheduler{}
	bcfg, rcfg := fastPolicy()
	w := fetch.NewDiscoveryWorkerWithPolicy(fetcher, sched, logger.NewNoOp(), bcfg, rcfg)

	err := w.HandleByDateFetchURL(context.Background(), fetch.ByDateFetchURLDto{URL: "https://example.com"})
	if err == nil {
		t.Fatal("expected an error")
	}
	if len(sched.scheduled) != 0 {
		t.Error("expected no schedules on fetch failure")
	}
}

func TestDiscoveryWorker_OpensBreakerAfterRepeatedFailures(t *testing.T) {
	wantErr := errors.New("network down")
	fetcher := &fakeDiscoveryFetcher{err: wantErr}
	sched := &fakeScheduler{}
	bcfg, rcfg := fastPolicy()
	w := fetch.NewDiscoveryWorkerWithPolicy(fetcher, sched, logger.NewNoOp(), bcfg, rcfg)

	// The breaker wraps the whole retry loop, so each failed
	// HandleByDateFetchURL call (3 internal fetch attempts) counts as one
	// breaker failure; three calls reach failure_threshold=3. A further call
	// must then be short-circuited by the open breaker.
	for i := 0; i < 3; i++ {
		_ = w.HandleByDateFetchURL(context.Background(), fetch.ByDateFetchURLDto{URL: "https://example.com"})
	}
	before := len(fetcher.urls)

	err := w.HandleByDateFetchURL(context.Background(), fetch.ByDateFetchURLDto{URL: "https://example.com"})
	if err == nil {
		t.Fatal("expected an error from an open breaker")
	}
	if len(fetcher.urls) != before {
		t.Errorf("expected no further fetch attempts while breaker is open, got %d new calls", len(fetcher.urls)-before)
	}
}
