package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/crawlsched/internal/domain"
	"github.com/jonesrussell/crawlsched/internal/store"
)

func TestWorkStore_AddScheduled(t *testing.T) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer mockDB.Close()

	db := sqlx.NewDb(mockDB, "postgres")
	ws := store.NewWorkStore(db)
	ctx := context.Background()

	now := time.Now()
	mock.ExpectQuery("INSERT INTO scheduled_items").
		WithArgs("https://example.com", domain.StatusPending, sqlmock.AnyArg(), 0, sqlmock.AnyArg()).
		WillReturnRows(
			sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
				AddRow(int64(1), now, now),
		)

	item, err := ws.AddScheduled(ctx, "https://example.com", now.Add(time.Minute), domain.TaskData{
		Exchange: "news.direct", Queue: "news.crawler.fetch_url", RoutingKey: "crawler.fetch_url",
	})
	if err != nil {
		t.Fatalf("AddScheduled() error = %v", err)
	}
	if item.ID != 1 {
		t.Errorf("expected id=1, got %d", item.ID)
	}
	if item.Status != domain.StatusPending {
		t.Errorf("expected status=pending, got %v", item.Status)
	}

	if checkErr := mock.ExpectationsWereMet(); checkErr != nil {
		t.Errorf("unfulfilled expectations: %v", checkErr)
	}
}

func TestWorkStore_LeaseDueBatch_NoneAvailable(t *testing.T) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer mockDB.Close()

	db := sqlx.NewDb(mockDB, "postgres")
	ws := store.NewWorkStore(db)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec("SET LOCAL lock_timeout").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("SET LOCAL statement_timeout").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT id FROM scheduled_items").
		WithArgs(domain.StatusPending, 10).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	_, err = ws.LeaseDueBatch(ctx, domain.KindScheduled, 10)
	if err != store.ErrNoItemAvailable {
		t.Fatalf("expected ErrNoItemAvailable, got %v", err)
	}

	if checkErr := mock.ExpectationsWereMet(); checkErr != nil {
		t.Errorf("unfulfilled expectations: %v", checkErr)
	}
}

func TestWorkStore_LeaseDueBatch_Leases(t *testing.T) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer mockDB.Close()

	db := sqlx.NewDb(mockDB, "postgres")
	ws := store.NewWorkStore(db)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec("SET LOCAL lock_timeout").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("SET LOCAL statement_timeout").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT id FROM predefined_items").
		WithArgs(domain.StatusPending, 5).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectQuery("UPDATE predefined_items").
		WithArgs(domain.StatusProcessing, sqlmock.AnyArg()).
		WillReturnRows(
			sqlmock.NewRows([]string{"id", "url", "retry_count", "task_data", "scheduled_time"}).
				AddRow(int64(7), "https://example.com", 0, []byte(`{"exchange":"news.direct","queue":"q","routing_key":"rk"}`), nil),
		)
	mock.ExpectCommit()

	items, err := ws.LeaseDueBatch(ctx, domain.KindPredefined, 5)
	if err != nil {
		t.Fatalf("LeaseDueBatch() error = %v", err)
	}
	if len(items) != 1 || items[0].ID != 7 {
		t.Fatalf("unexpected leased items: %+v", items)
	}

	if checkErr := mock.ExpectationsWereMet(); checkErr != nil {
		t.Errorf("unfulfilled expectations: %v", checkErr)
	}
}

func TestWorkStore_TransitionItem_NotFound(t *testing.T) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer mockDB.Close()

	db := sqlx.NewDb(mockDB, "postgres")
	ws := store.NewWorkStore(db)
	ctx := context.Background()

	mock.ExpectExec("UPDATE scheduled_items").
		WithArgs(domain.StatusCompleted, 0, (*string)(nil), int64(42), domain.StatusProcessing).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = ws.TransitionItem(ctx, domain.KindScheduled, domain.Transition{
		ID:         42,
		Status:     domain.StatusCompleted,
		RetryCount: 0,
	})
	if err != store.ErrItemNotFound {
		t.Fatalf("expected ErrItemNotFound, got %v", err)
	}

	if checkErr := mock.ExpectationsWereMet(); checkErr != nil {
		t.Errorf("unfulfilled expectations: %v", checkErr)
	}
}

func TestWorkStore_ReapStuck(t *testing.T) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer mockDB.Close()

	db := sqlx.NewDb(mockDB, "postgres")
	ws := store.NewWorkStore(db)
	ctx := context.Background()

	mock.ExpectExec("UPDATE scheduled_items").
		WithArgs(domain.StatusPending, domain.StatusProcessing, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := ws.ReapStuck(ctx, domain.KindScheduled, 15*time.Second)
	if err != nil {
		t.Fatalf("ReapStuck() error = %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3 reaped rows, got %d", n)
	}

	if checkErr := mock.ExpectationsWereMet(); checkErr != nil {
		t.Errorf("unfulfilled expectations: %v", checkErr)
	}
}

func TestWorkStore_ExistsScheduledURLCI(t *testing.T) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer mockDB.Close()

	db := sqlx.NewDb(mockDB, "postgres")
	ws := store.NewWorkStore(db)
	ctx := context.Background()

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("https://Example.com").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := ws.ExistsScheduledURLCI(ctx, "https://Example.com")
	if err != nil {
		t.Fatalf("ExistsScheduledURLCI() error = %v", err)
	}
	if !exists {
		t.Error("expected exists = true")
	}

	if checkErr := mock.ExpectationsWereMet(); checkErr != nil {
		t.Errorf("unfulfilled expectations: %v", checkErr)
	}
}

func TestWorkStore_CountByStatus(t *testing.T) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer mockDB.Close()

	db := sqlx.NewDb(mockDB, "postgres")
	ws := store.NewWorkStore(db)
	ctx := context.Background()

	mock.ExpectQuery("SELECT status, COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).
			AddRow("pending", 5).
			AddRow("processing", 2).
			AddRow("completed", 10))

	counts, err := ws.CountByStatus(ctx, domain.KindScheduled)
	if err != nil {
		t.Fatalf("CountByStatus() error = %v", err)
	}
	if len(counts) != 3 {
		t.Fatalf("expected 3 status rows, got %d", len(counts))
	}
	if counts[0].Status != domain.StatusPending || counts[0].Count != 5 {
		t.Errorf("unexpected first row: %+v", counts[0])
	}

	if checkErr := mock.ExpectationsWereMet(); checkErr != nil {
		t.Errorf("unfulfilled expectations: %v", checkErr)
	}
}
