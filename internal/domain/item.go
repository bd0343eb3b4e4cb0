package domain

import "time"

// ScheduledItem is the leased work unit produced by Intake and consumed by
// the Scheduler Core's scheduled loop. It becomes eligible once
// ScheduledTime has passed.
type ScheduledItem struct {
	ID            int64      `db:"id"             json:"id"`
	URL           string     `db:"url"             json:"url"`
	Status        ItemStatus `db:"status"          json:"status"`
	ScheduledTime time.Time  `db:"scheduled_time"  json:"scheduled_time"`
	RetryCount    int        `db:"retry_count"     json:"retry_count"`
	TaskData      TaskData   `db:"task_data"       json:"task_data"`
	ExceptionInfo *string    `db:"exception_info"  json:"exception_info,omitempty"`
	CreatedAt     time.Time  `db:"created_at"      json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at"      json:"updated_at"`
}

// PredefinedItem is identical in shape to ScheduledItem minus ScheduledTime;
// eligibility is "status = PENDING" alone, driven by its own cron cadence.
type PredefinedItem struct {
	ID            int64      `db:"id"            json:"id"`
	URL           string     `db:"url"            json:"url"`
	Status        ItemStatus `db:"status"         json:"status"`
	RetryCount    int        `db:"retry_count"    json:"retry_count"`
	TaskData      TaskData   `db:"task_data"      json:"task_data"`
	ExceptionInfo *string    `db:"exception_info" json:"exception_info,omitempty"`
	CreatedAt     time.Time  `db:"created_at"     json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at"     json:"updated_at"`
}

// LeasedItem is the common shape returned by a lease query, regardless of
// which pool (scheduled or predefined) it was drawn from.
type LeasedItem struct {
	ID            int64
	URL           string
	RetryCount    int
	TaskData      TaskData
	ScheduledTime time.Time
}

// Transition names a state-changing update to apply to a leased item. Named
// fields make the exception/retry_count argument-ordering ambiguity flagged
// against the original source structurally impossible here.
type Transition struct {
	ID                int64
	Status            ItemStatus
	RetryCount        int
	Exception         *string
	NextScheduledTime *time.Time
}

// URLRecord is a row in the URL graph.
type URLRecord struct {
	ID        int64          `db:"id"         json:"id"`
	URL       string         `db:"url"        json:"url"`
	Status    CrawlingStatus `db:"status"     json:"status"`
	CrawledAt *time.Time     `db:"crawled_at" json:"crawled_at,omitempty"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`
}

// Content, Meta, Author are owned 1:1 by a URLRecord; Index is owned 1:N.
// All four are purely derived and not consulted by the scheduler — they
// exist so the fetch pipeline has a concrete sink to persist into.
type Content struct {
	ID        int64     `db:"id"         json:"id"`
	URLID     int64     `db:"url_id"     json:"url_id"`
	Body      string    `db:"body"       json:"body"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

type Meta struct {
	ID          int64     `db:"id"          json:"id"`
	URLID       int64     `db:"url_id"      json:"url_id"`
	Title       string    `db:"title"       json:"title"`
	Description string    `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at"  json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"  json:"updated_at"`
}

type Author struct {
	ID        int64     `db:"id"         json:"id"`
	URLID     int64     `db:"url_id"     json:"url_id"`
	Name      string    `db:"name"       json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

type Index struct {
	ID        int64     `db:"id"         json:"id"`
	URLID     int64     `db:"url_id"     json:"url_id"`
	Keyword   string    `db:"keyword"    json:"keyword"`
	Frequency int       `db:"frequency"  json:"frequency"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
