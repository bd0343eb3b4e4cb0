package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonesrussell/crawlsched/internal/apperr"
	"github.com/jonesrussell/crawlsched/internal/breaker"
	"github.com/jonesrussell/crawlsched/internal/logger"
	"github.com/jonesrussell/crawlsched/internal/retry"
)

// Scheduler is the subset of the Intake surface the discovery worker calls
// back into for every sub-URL it finds, narrowed so discovery logic is
// testable without a live HTTP intake server.
type Scheduler interface {
	ScheduleURL(ctx context.Context, url string) error
}

// DiscoveryWorker handles a ByDateFetchURLDto by fetching the base URL with
// year/month/day appended, extracting every anchor href, and feeding each
// back into the scheduler via Intake. Outbound HTTP is wrapped in a
// circuit breaker and retry policy.
type DiscoveryWorker struct {
	fetcher   Fetcher
	scheduler Scheduler
	breaker   *breaker.Breaker
	policy    retry.Config
	log       logger.Interface
}

// NewDiscoveryWorker constructs a DiscoveryWorker with the default breaker
// and retry policy (failure_threshold=3, recovery_timeout=5s; 3 tries,
// 2s/5s backoff).
func NewDiscoveryWorker(fetcher Fetcher, scheduler Scheduler, log logger.Interface) *DiscoveryWorker {
	return NewDiscoveryWorkerWithPolicy(fetcher, scheduler, log, breaker.DefaultConfig(), retry.HTTPConfig())
}

// NewDiscoveryWorkerWithPolicy constructs a DiscoveryWorker with an explicit
// breaker/retry policy, so tests can exercise breaker-trip behavior without
// the production backoff schedule's real delays.
func NewDiscoveryWorkerWithPolicy(
	fetcher Fetcher, scheduler Scheduler, log logger.Interface,
	breakerCfg breaker.Config, retryCfg retry.Config,
) *DiscoveryWorker {
	return &DiscoveryWorker{
		fetcher:   fetcher,
		scheduler: scheduler,
		breaker:   breaker.New(breakerCfg),
		policy:    retryCfg,
		log:       log,
	}
}

// HandleByDateFetchURL fetches <url>/<year>/<month>/<day>, extracts anchors,
// and schedules each discovered href through Intake.
func (w *DiscoveryWorker) HandleByDateFetchURL(ctx context.Context, msg ByDateFetchURLDto) error {
	datedURL := buildDatedURL(msg.URL, msg.Year, msg.Month, msg.Day)

	body, err := w.fetchWithProtection(ctx, datedURL)
	if err != nil {
		return err
	}

	hrefs, err := extractAnchors(body)
	if err != nil {
		return fmt.Errorf("extract anchors from %q: %w", datedURL, err)
	}

	var scheduleErrs []string
	for _, href := range hrefs {
		if err := w.scheduler.ScheduleURL(ctx, href); err != nil {
			w.log.Warn("failed to schedule discovered url", "url", href, "error", err)
			scheduleErrs = append(scheduleErrs, href)
		}
	}
	w.log.Info("discovery fan-out complete",
		"base_url", datedURL, "discovered", len(hrefs), "failed", len(scheduleErrs))
	return nil
}

// fetchWithProtection wraps the outbound fetch in the circuit breaker and
// retry policy, translating an open breaker into ServiceUnavailable.
func (w *DiscoveryWorker) fetchWithProtection(ctx context.Context, url string) ([]byte, error) {
	var body []byte
	err := w.breaker.Execute(ctx, func(ctx context.Context) error {
		return retry.Do(ctx, w.policy, func(ctx context.Context) error {
			b, fetchErr := w.fetcher.Fetch(ctx, url)
			if fetchErr != nil {
				return fetchErr
			}
			body = b
			return nil
		})
	})
	if err != nil {
		if errors.Is(err, breaker.ErrOpen) {
			return nil, apperr.ServiceUnavailable(fmt.Sprintf("discovery circuit open for %q", url))
		}
		return nil, err
	}
	return body, nil
}

func buildDatedURL(base, year, month, day string) string {
	return strings.TrimRight(base, "/") + "/" + year + "/" + month + "/" + day
}

// extractAnchors returns every <a href> found in body.
func extractAnchors(body []byte) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var hrefs []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		if href, ok := s.Attr("href"); ok && href != "" {
			hrefs = append(hrefs, href)
		}
	})
	return hrefs, nil
}
