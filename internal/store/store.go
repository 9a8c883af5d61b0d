// Package store persists completed reviews in SQLite. It doubles as a
// content-hash cache: a review of byte-identical code can be replayed
// without another model call.
package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"reviewd/internal/review"
)

// timeFormat is fixed-width so stored timestamps compare correctly as
// strings in SQL (RFC3339Nano drops trailing zeros).
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// Review is one completed review run.
type Review struct {
	ID         string
	CreatedAt  time.Time
	Model      string
	CodeSHA    string
	DurationMS int64

	Security    string
	Performance string
	Readability string
	Summary     string
}

// Sections returns the stored bodies as a parse result, ready for the
// streaming emitter.
func (r *Review) Sections() review.Result {
	return review.Result{Sections: map[review.Section]string{
		review.SectionSecurity:    r.Security,
		review.SectionPerformance: r.Performance,
		review.SectionReadability: r.Readability,
		review.SectionSummary:     r.Summary,
	}}
}

// SetSections copies a parse result into the four body columns.
func (r *Review) SetSections(result review.Result) {
	r.Security = result.Content(review.SectionSecurity)
	r.Performance = result.Content(review.SectionPerformance)
	r.Readability = result.Content(review.SectionReadability)
	r.Summary = result.Content(review.SectionSummary)
}

// SummaryRow is one row of the recent-reviews listing.
type SummaryRow struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Model     string    `json:"model"`
	CodeSHA   string    `json:"code_sha256"`
	Sections  int       `json:"sections"`
}

// Store wraps the SQLite database.
type Store struct {
	db *sql.DB
}

// Open creates or opens the review database at path and applies the
// schema.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite3", "file:"+path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save inserts a completed review. A missing ID or timestamp is filled in.
func (s *Store) Save(ctx context.Context, r *Review) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reviews (id, created_at, model, code_sha256, duration_ms,
			security, performance, readability, summary)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.CreatedAt.UTC().Format(timeFormat), r.Model, r.CodeSHA, r.DurationMS,
		r.Security, r.Performance, r.Readability, r.Summary)
	if err != nil {
		return fmt.Errorf("failed to insert review: %w", err)
	}
	return nil
}

// FindByHash returns the newest review of code with the given hash that
// is younger than maxAge. Returns (nil, nil) on a cache miss.
func (s *Store) FindByHash(ctx context.Context, codeSHA string, maxAge time.Duration) (*Review, error) {
	cutoff := time.Now().UTC().Add(-maxAge).Format(timeFormat)

	row := s.db.QueryRowContext(ctx, `
		SELECT id, created_at, model, code_sha256, duration_ms,
			security, performance, readability, summary
		FROM reviews
		WHERE code_sha256 = ? AND created_at >= ?
		ORDER BY created_at DESC
		LIMIT 1`, codeSHA, cutoff)

	var r Review
	var createdAt string
	err := row.Scan(&r.ID, &createdAt, &r.Model, &r.CodeSHA, &r.DurationMS,
		&r.Security, &r.Performance, &r.Readability, &r.Summary)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query review by hash: %w", err)
	}

	r.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at %q: %w", createdAt, err)
	}
	return &r, nil
}

// Recent lists the newest reviews, most recent first.
func (s *Store) Recent(ctx context.Context, limit int) ([]SummaryRow, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, model, code_sha256,
			(security != '') + (performance != '') + (readability != '') + (summary != '')
		FROM reviews
		ORDER BY created_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent reviews: %w", err)
	}
	defer rows.Close()

	var out []SummaryRow
	for rows.Next() {
		var row SummaryRow
		var createdAt string
		if err := rows.Scan(&row.ID, &createdAt, &row.Model, &row.CodeSHA, &row.Sections); err != nil {
			return nil, fmt.Errorf("failed to scan review row: %w", err)
		}
		row.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse created_at %q: %w", createdAt, err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// HashCode returns the hex SHA-256 of a code snippet, the cache key.
func HashCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}
