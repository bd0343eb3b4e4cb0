package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/crawlsched/internal/domain"
)

// ErrNoItemAvailable is returned by LeaseDueBatch when nothing is due.
var ErrNoItemAvailable = errors.New("store: no item available to lease")

// ErrItemNotFound is returned when a transition targets a row that does not
// exist or whose current status no longer matches the expected source state.
var ErrItemNotFound = errors.New("store: item not found or already transitioned")

// WorkStore is the transactional queue over the scheduled and predefined
// item pools: batch leasing via SELECT ... FOR UPDATE SKIP LOCKED, and
// single-row state transitions guarded by a WHERE clause on the expected
// source status so a terminal row can never be silently overwritten.
type WorkStore struct {
	db *sqlx.DB
}

// NewWorkStore constructs a WorkStore over an open connection pool.
func NewWorkStore(db *sqlx.DB) *WorkStore {
	return &WorkStore{db: db}
}

func tableFor(kind domain.Kind) (string, error) {
	switch kind {
	case domain.KindScheduled:
		return "scheduled_items", nil
	case domain.KindPredefined:
		return "predefined_items", nil
	default:
		return "", fmt.Errorf("store: unknown item kind %q", kind)
	}
}

// ExistsScheduledURLCI reports whether a scheduled item already exists for
// url, compared case-insensitively, for Intake's idempotent-submission rule.
func (s *WorkStore) ExistsScheduledURLCI(ctx context.Context, url string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM scheduled_items WHERE LOWER(url) = LOWER($1))`
	if err := s.db.GetContext(ctx, &exists, query, url); err != nil {
		return false, fmt.Errorf("check scheduled item existence: %w", err)
	}
	return exists, nil
}

// AddScheduled inserts a new ScheduledItem in status PENDING.
func (s *WorkStore) AddScheduled(
	ctx context.Context,
	url string,
	scheduledTime time.Time,
	taskData domain.TaskData,
) (*domain.ScheduledItem, error) {
	item := &domain.ScheduledItem{
		URL:           url,
		Status:        domain.StatusPending,
		ScheduledTime: scheduledTime,
		RetryCount:    0,
		TaskData:      taskData,
	}

	query := `
		INSERT INTO scheduled_items (url, status, scheduled_time, retry_count, task_data)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`
	err := s.db.QueryRowContext(ctx, query, item.URL, item.Status, item.ScheduledTime, item.RetryCount, item.TaskData).
		Scan(&item.ID, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert scheduled item: %w", err)
	}
	return item, nil
}

// AddPredefined inserts a new PredefinedItem in status PENDING.
func (s *WorkStore) AddPredefined(
	ctx context.Context,
	url string,
	taskData domain.TaskData,
) (*domain.PredefinedItem, error) {
	item := &domain.PredefinedItem{
		URL:        url,
		Status:     domain.StatusPending,
		RetryCount: 0,
		TaskData:   taskData,
	}

	query := `
		INSERT INTO predefined_items (url, status, retry_count, task_data)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`
	err := s.db.QueryRowContext(ctx, query, item.URL, item.Status, item.RetryCount, item.TaskData).
		Scan(&item.ID, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert predefined item: %w", err)
	}
	return item, nil
}

// LeaseDueBatch atomically selects up to limit due PENDING rows from the
// given pool, locking them with FOR UPDATE SKIP LOCKED so concurrent
// scheduler instances never double-lease the same row, flips them to
// PROCESSING, and returns the leased rows. Scheduled items are additionally
// gated on scheduled_time <= now(); predefined items have no such gate.
func (s *WorkStore) LeaseDueBatch(ctx context.Context, kind domain.Kind, limit int) ([]domain.LeasedItem, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin lease transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	if setErr := setSessionTimeouts(ctx, tx); setErr != nil {
		return nil, setErr
	}

	ids, err := leaseSelectIDs(ctx, tx, table, kind, limit)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, ErrNoItemAvailable
	}

	items, err := leaseMarkProcessing(ctx, tx, table, kind, ids)
	if err != nil {
		return nil, err
	}
	// UPDATE ... RETURNING has no defined row order; restore the lease order.
	sort.Slice(items, func(i, j int) bool {
		if !items[i].ScheduledTime.Equal(items[j].ScheduledTime) {
			return items[i].ScheduledTime.Before(items[j].ScheduledTime)
		}
		return items[i].ID < items[j].ID
	})

	if commitErr := tx.Commit(); commitErr != nil {
		return nil, fmt.Errorf("commit lease transaction: %w", commitErr)
	}
	return items, nil
}

func leaseSelectIDs(ctx context.Context, tx *sqlx.Tx, table string, kind domain.Kind, limit int) ([]int64, error) {
	var query string
	switch kind {
	case domain.KindScheduled:
		query = fmt.Sprintf(`
			SELECT id FROM %s
			WHERE status = $1 AND scheduled_time <= NOW()
			ORDER BY scheduled_time ASC, id ASC
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		`, table)
	default:
		query = fmt.Sprintf(`
			SELECT id FROM %s
			WHERE status = $1
			ORDER BY id ASC
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		`, table)
	}

	var ids []int64
	if err := tx.SelectContext(ctx, &ids, query, domain.StatusPending, limit); err != nil {
		return nil, fmt.Errorf("select due %s: %w", table, err)
	}
	return ids, nil
}

func leaseMarkProcessing(
	ctx context.Context, tx *sqlx.Tx, table string, kind domain.Kind, ids []int64,
) ([]domain.LeasedItem, error) {
	// predefined_items has no scheduled_time column; return NULL in its place.
	scheduledTimeColumn := "scheduled_time"
	if kind != domain.KindScheduled {
		scheduledTimeColumn = "NULL::timestamptz"
	}
	query := fmt.Sprintf(`
		UPDATE %s
		SET status = $1, updated_at = NOW()
		WHERE id = ANY($2)
		RETURNING id, url, retry_count, task_data, %s
	`, table, scheduledTimeColumn)

	rows, err := tx.QueryxContext(ctx, query, domain.StatusProcessing, pqInt64Array(ids))
	if err != nil {
		return nil, fmt.Errorf("mark %s processing: %w", table, err)
	}
	defer rows.Close()

	var items []domain.LeasedItem
	for rows.Next() {
		var item domain.LeasedItem
		var scheduledTime sql.NullTime
		if scanErr := rows.Scan(&item.ID, &item.URL, &item.RetryCount, &item.TaskData, &scheduledTime); scanErr != nil {
			return nil, fmt.Errorf("scan leased %s row: %w", table, scanErr)
		}
		if scheduledTime.Valid {
			item.ScheduledTime = scheduledTime.Time
		}
		items = append(items, item)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("iterate leased %s rows: %w", table, rowsErr)
	}
	return items, nil
}

// TransitionItem applies a validated state transition to a single leased
// item, guarded by a WHERE status = 'processing' clause so a row already
// moved to a terminal state by a concurrent transition cannot be
// overwritten. Returns ErrItemNotFound if the guard clause matched no row.
func (s *WorkStore) TransitionItem(ctx context.Context, kind domain.Kind, t domain.Transition) error {
	table, err := tableFor(kind)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
		UPDATE %s
		SET status = $1, retry_count = $2, exception_info = $3, updated_at = NOW()
	`, table)
	args := []any{t.Status, t.RetryCount, t.Exception}

	if kind == domain.KindScheduled && t.NextScheduledTime != nil {
		query += fmt.Sprintf(", scheduled_time = $%d", len(args)+1)
		args = append(args, *t.NextScheduledTime)
	}

	query += fmt.Sprintf(" WHERE id = $%d AND status = $%d", len(args)+1, len(args)+2)
	args = append(args, t.ID, domain.StatusProcessing)

	result, execErr := s.db.ExecContext(ctx, query, args...)
	return execRequireRows(result, execErr, ErrItemNotFound)
}

// ReapStuck resets rows wedged in PROCESSING past olderThan back to PENDING,
// incrementing retry_count, for the startup/periodic reaper. Returns the
// number of rows reset.
func (s *WorkStore) ReapStuck(ctx context.Context, kind domain.Kind, olderThan time.Duration) (int, error) {
	table, err := tableFor(kind)
	if err != nil {
		return 0, err
	}

	query := fmt.Sprintf(`
		UPDATE %s
		SET status = $1, retry_count = retry_count + 1, updated_at = NOW()
		WHERE status = $2 AND updated_at < NOW() - $3::interval
	`, table)

	result, execErr := s.db.ExecContext(ctx, query, domain.StatusPending, domain.StatusProcessing, olderThan.String())
	if execErr != nil {
		return 0, fmt.Errorf("reap stuck %s rows: %w", table, execErr)
	}
	n, affErr := result.RowsAffected()
	if affErr != nil {
		return 0, fmt.Errorf("reap stuck %s rows affected: %w", table, affErr)
	}
	return int(n), nil
}

// StatusCount is one (status, count) pair from CountByStatus.
type StatusCount struct {
	Status domain.ItemStatus `db:"status"`
	Count  int               `db:"count"`
}

// CountByStatus groups kind's pool by status, for the scheduler status CLI
// view.
func (s *WorkStore) CountByStatus(ctx context.Context, kind domain.Kind) ([]StatusCount, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT status, COUNT(*) AS count FROM %s GROUP BY status ORDER BY status`, table)
	var counts []StatusCount
	if selErr := s.db.SelectContext(ctx, &counts, query); selErr != nil {
		return nil, fmt.Errorf("count %s by status: %w", table, selErr)
	}
	return counts, nil
}

// pqInt64Array renders ids as a Postgres array literal for the ANY($N)
// predicate, avoiding a dependency on lib/pq's Array helper so this package
// stays usable against go-sqlmock's plain driver.Value matching in tests.
func pqInt64Array(ids []int64) string {
	out := "{"
	for i, id := range ids {
		if i > 0 {
			out += ","
		}
		out += fmt.Sprintf("%d", id)
	}
	out += "}"
	return out
}
