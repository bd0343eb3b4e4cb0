// Package domain provides the domain models shared across the scheduler,
// store, broker, and intake packages.
package domain

import (
	"database/sql/driver"
	"fmt"
)

// ItemStatus is the lifecycle state of a ScheduledItem or PredefinedItem.
//
// Stored as a native string enum rather than a stringified integer, per the
// re-architecture guidance to avoid stringified-integer enum values in new
// storage.
type ItemStatus string

// Item lifecycle states.
const (
	StatusPending    ItemStatus = "pending"
	StatusProcessing ItemStatus = "processing"
	StatusCompleted  ItemStatus = "completed"
	StatusFailed     ItemStatus = "failed"
)

// Terminal reports whether status is a terminal state that no further
// transition may leave.
func (s ItemStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Scan implements sql.Scanner.
func (s *ItemStatus) Scan(value any) error {
	if value == nil {
		return fmt.Errorf("item status: cannot scan nil")
	}
	switch v := value.(type) {
	case string:
		*s = ItemStatus(v)
	case []byte:
		*s = ItemStatus(v)
	default:
		return fmt.Errorf("item status: unsupported scan type %T", value)
	}
	return nil
}

// Value implements driver.Valuer.
func (s ItemStatus) Value() (driver.Value, error) {
	return string(s), nil
}

// CrawlingStatus is the status of a URL in the URL graph.
type CrawlingStatus string

// URL crawl states.
const (
	CrawlingIdle      CrawlingStatus = "idle"
	CrawlingRunning   CrawlingStatus = "running"
	CrawlingPaused    CrawlingStatus = "paused"
	CrawlingCompleted CrawlingStatus = "completed"
	CrawlingFailed    CrawlingStatus = "failed"
	CrawlingQueued    CrawlingStatus = "queued"
	CrawlingBlocked   CrawlingStatus = "blocked"
	CrawlingStopping  CrawlingStatus = "stopping"
	CrawlingStopped   CrawlingStatus = "stopped"
)

// Terminal reports whether a CrawlingStatus may not transition further
// without an explicit reset.
func (s CrawlingStatus) Terminal() bool {
	switch s {
	case CrawlingCompleted, CrawlingFailed, CrawlingBlocked, CrawlingStopped:
		return true
	default:
		return false
	}
}

// Scan implements sql.Scanner.
func (s *CrawlingStatus) Scan(value any) error {
	if value == nil {
		return fmt.Errorf("crawling status: cannot scan nil")
	}
	switch v := value.(type) {
	case string:
		*s = CrawlingStatus(v)
	case []byte:
		*s = CrawlingStatus(v)
	default:
		return fmt.Errorf("crawling status: unsupported scan type %T", value)
	}
	return nil
}

// Value implements driver.Valuer.
func (s CrawlingStatus) Value() (driver.Value, error) {
	return string(s), nil
}

// Kind distinguishes the two lease pools a work item can belong to.
type Kind string

// Lease pool kinds.
const (
	KindScheduled  Kind = "scheduled"
	KindPredefined Kind = "predefined"
)

// MaxRetries is the maximum retry_count a ScheduledItem/PredefinedItem may
// reach before a dispatch attempt terminates it as FAILED.
const MaxRetries = 3
