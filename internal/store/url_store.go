package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/crawlsched/internal/domain"
)

// ErrURLNotFound is returned when a URL lookup matches no row.
var ErrURLNotFound = errors.New("store: url not found")

const urlSelectColumns = `id, url, status, crawled_at, created_at, updated_at`

// URLStore persists the URL graph: crawl status and the child
// Content/Meta/Author/Index records the fetch pipeline writes.
type URLStore struct {
	db *sqlx.DB
}

// NewURLStore constructs a URLStore over an open connection pool.
func NewURLStore(db *sqlx.DB) *URLStore {
	return &URLStore{db: db}
}

// ExistsByURLCI reports whether a URL already exists, compared
// case-insensitively, per the Intake idempotency requirement.
func (s *URLStore) ExistsByURLCI(ctx context.Context, url string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM urls WHERE LOWER(url) = LOWER($1))`
	if err := s.db.GetContext(ctx, &exists, query, url); err != nil {
		return false, fmt.Errorf("check url existence: %w", err)
	}
	return exists, nil
}

// Insert creates a new URL row in CrawlingIdle status.
func (s *URLStore) Insert(ctx context.Context, url string) (*domain.URLRecord, error) {
	record := &domain.URLRecord{URL: url, Status: domain.CrawlingIdle}
	query := `
		INSERT INTO urls (url, status)
		VALUES ($1, $2)
		RETURNING id, created_at, updated_at
	`
	err := s.db.QueryRowContext(ctx, query, record.URL, record.Status).
		Scan(&record.ID, &record.CreatedAt, &record.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert url: %w", err)
	}
	return record, nil
}

// GetByURLCI retrieves a URL row by case-insensitive URL match.
func (s *URLStore) GetByURLCI(ctx context.Context, url string) (*domain.URLRecord, error) {
	var record domain.URLRecord
	query := `SELECT ` + urlSelectColumns + ` FROM urls WHERE LOWER(url) = LOWER($1)`
	if err := s.db.GetContext(ctx, &record, query, url); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrURLNotFound
		}
		return nil, fmt.Errorf("get url: %w", err)
	}
	return &record, nil
}

// UpdateStatus transitions a URL's crawl status.
func (s *URLStore) UpdateStatus(ctx context.Context, id int64, status domain.CrawlingStatus) error {
	query := `UPDATE urls SET status = $1, updated_at = NOW() WHERE id = $2`
	result, err := s.db.ExecContext(ctx, query, status, id)
	return execRequireRows(result, err, ErrURLNotFound)
}

// MarkCrawled records a successful fetch: status COMPLETED, crawled_at now.
func (s *URLStore) MarkCrawled(ctx context.Context, id int64, crawledAt time.Time) error {
	query := `
		UPDATE urls
		SET status = $1, crawled_at = $2, updated_at = NOW()
		WHERE id = $3
	`
	result, err := s.db.ExecContext(ctx, query, domain.CrawlingCompleted, crawledAt, id)
	return execRequireRows(result, err, ErrURLNotFound)
}

// InsertContent stores the fetched body for a URL.
func (s *URLStore) InsertContent(ctx context.Context, urlID int64, body string) (*domain.Content, error) {
	content := &domain.Content{URLID: urlID, Body: body}
	query := `
		INSERT INTO content (url_id, body)
		VALUES ($1, $2)
		RETURNING id, created_at, updated_at
	`
	err := s.db.QueryRowContext(ctx, query, content.URLID, content.Body).
		Scan(&content.ID, &content.CreatedAt, &content.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert content: %w", err)
	}
	return content, nil
}

// InsertMeta stores the extracted title/description for a URL.
func (s *URLStore) InsertMeta(ctx context.Context, urlID int64, title, description string) (*domain.Meta, error) {
	meta := &domain.Meta{URLID: urlID, Title: title, Description: description}
	query := `
		INSERT INTO meta (url_id, title, description)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`
	err := s.db.QueryRowContext(ctx, query, meta.URLID, meta.Title, meta.Description).
		Scan(&meta.ID, &meta.CreatedAt, &meta.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert meta: %w", err)
	}
	return meta, nil
}

// InsertAuthor stores an extracted author for a URL.
func (s *URLStore) InsertAuthor(ctx context.Context, urlID int64, name string) (*domain.Author, error) {
	author := &domain.Author{URLID: urlID, Name: name}
	query := `
		INSERT INTO authors (url_id, name)
		VALUES ($1, $2)
		RETURNING id, created_at, updated_at
	`
	err := s.db.QueryRowContext(ctx, query, author.URLID, author.Name).
		Scan(&author.ID, &author.CreatedAt, &author.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert author: %w", err)
	}
	return author, nil
}

// UpsertIndexTerm increments a keyword's frequency for a URL, inserting the
// row on first occurrence.
func (s *URLStore) UpsertIndexTerm(ctx context.Context, urlID int64, keyword string) error {
	query := `
		INSERT INTO index_terms (url_id, keyword, frequency)
		VALUES ($1, $2, 1)
		ON CONFLICT (url_id, keyword) DO UPDATE SET frequency = index_terms.frequency + 1
	`
	_, err := s.db.ExecContext(ctx, query, urlID, keyword)
	if err != nil {
		return fmt.Errorf("upsert index term: %w", err)
	}
	return nil
}

// DeleteCascade removes a URL and its child content/meta/author/index rows.
// It deletes only the urls row; the child rows go with it through the child
// tables' ON DELETE CASCADE foreign keys.
func (s *URLStore) DeleteCascade(ctx context.Context, id int64) error {
	query := `DELETE FROM urls WHERE id = $1`
	result, err := s.db.ExecContext(ctx, query, id)
	return execRequireRows(result, err, ErrURLNotFound)
}
