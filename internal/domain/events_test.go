package domain_test

import (
	"testing"

	"github.com/jonesrussell/crawlsched/internal/domain"
)

func TestTopic_DeadLetter(t *testing.T) {
	topic := domain.Topics[domain.EventFetchURL]

	dl := topic.DeadLetter()
	if dl.Exchange != "news.direct_dead_letter" {
		t.Errorf("unexpected dead-letter exchange: %s", dl.Exchange)
	}
	if dl.Queue != "news.crawler.fetch_url_dead_letter" {
		t.Errorf("unexpected dead-letter queue: %s", dl.Queue)
	}
	if dl.RoutingKey != "crawler.fetch_url_dead_letter" {
		t.Errorf("unexpected dead-letter routing key: %s", dl.RoutingKey)
	}
}

func TestAllEvents_CoversTopics(t *testing.T) {
	events := domain.AllEvents()
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	for _, e := range events {
		if _, ok := domain.Topics[e]; !ok {
			t.Errorf("event %s missing from Topics map", e)
		}
	}
}

func TestItemStatus_Terminal(t *testing.T) {
	tests := []struct {
		status domain.ItemStatus
		want   bool
	}{
		{domain.StatusPending, false},
		{domain.StatusProcessing, false},
		{domain.StatusCompleted, true},
		{domain.StatusFailed, true},
	}
	for _, tt := range tests {
		if got := tt.status.Terminal(); got != tt.want {
			t.Errorf("ItemStatus(%s).Terminal() = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestCrawlingStatus_Terminal(t *testing.T) {
	tests := []struct {
		status domain.CrawlingStatus
		want   bool
	}{
		{domain.CrawlingIdle, false},
		{domain.CrawlingRunning, false},
		{domain.CrawlingQueued, false},
		{domain.CrawlingPaused, false},
		{domain.CrawlingStopping, false},
		{domain.CrawlingCompleted, true},
		{domain.CrawlingFailed, true},
		{domain.CrawlingBlocked, true},
		{domain.CrawlingStopped, true},
	}
	for _, tt := range tests {
		if got := tt.status.Terminal(); got != tt.want {
			t.Errorf("CrawlingStatus(%s).Terminal() = %v, want %v", tt.status, got, tt.want)
		}
	}
}
