package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/okian/fightlog/internal/domain/model"
	"github.com/okian/fightlog/pkg/metrics"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS reports (
	id           TEXT PRIMARY KEY,
	profile      TEXT NOT NULL,
	fight_id     INTEGER NOT NULL,
	status       TEXT NOT NULL,
	submitted_at INTEGER NOT NULL,
	completed_at INTEGER NOT NULL,
	body         TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS reports_submitted ON reports (submitted_at DESC, id DESC);
`

// SQLiteStore persists reports in a SQLite database. The full report is
// kept as JSON next to the columns used for listing.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and applies the schema.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	dsn := "file:" + filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	s := &SQLiteStore{db: db}
	metrics.UpdateStoredReports(s.Count(context.Background()))
	return s, nil
}

// Close releases the database.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Save implements Store.
func (s *SQLiteStore) Save(ctx context.Context, r model.Report) error {
	start := time.Now()
	defer observe("save", start)

	if r.ID == "" {
		metrics.RecordStoreError("save")
		return ErrMissingID
	}
	body, err := json.Marshal(r)
	if err != nil {
		metrics.RecordStoreError("save")
		return fmt.Errorf("encode report %s: %w", r.ID, err)
	}

	_, err = s.db.ExecContext(ctx, `
INSERT INTO reports (id, profile, fight_id, status, submitted_at, completed_at, body)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	profile = excluded.profile,
	fight_id = excluded.fight_id,
	status = excluded.status,
	submitted_at = excluded.submitted_at,
	completed_at = excluded.completed_at,
	body = excluded.body
`,
		r.ID,
		r.Profile,
		r.FightID,
		string(r.Status),
		unixMilli(r.SubmittedAt),
		unixMilli(r.CompletedAt),
		string(body),
	)
	if err != nil {
		metrics.RecordStoreError("save")
		return fmt.Errorf("save report %s: %w", r.ID, err)
	}
	metrics.UpdateStoredReports(s.Count(ctx))
	return nil
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, id string) (model.Report, error) {
	start := time.Now()
	defer observe("get", start)

	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM reports WHERE id = ?`, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Report{}, ErrNotFound
	}
	if err != nil {
		metrics.RecordStoreError("get")
		return model.Report{}, fmt.Errorf("get report %s: %w", id, err)
	}
	return decode(body)
}

// List implements Store.
func (s *SQLiteStore) List(ctx context.Context, limit int) ([]model.Report, error) {
	start := time.Now()
	defer observe("list", start)

	if limit < 1 {
		metrics.RecordStoreError("list")
		return nil, ErrInvalidLimit
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT body FROM reports
ORDER BY submitted_at DESC, id DESC
LIMIT ?
`, limit)
	if err != nil {
		metrics.RecordStoreError("list")
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	out := make([]model.Report, 0, limit)
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		r, err := decode(body)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reports: %w", err)
	}
	return out, nil
}

// Count implements Store. Errors count as zero.
func (s *SQLiteStore) Count(ctx context.Context) int {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reports`).Scan(&n); err != nil {
		metrics.RecordStoreError("count")
		return 0
	}
	return n
}

func decode(body string) (model.Report, error) {
	var r model.Report
	if err := json.Unmarshal([]byte(body), &r); err != nil {
		return model.Report{}, fmt.Errorf("decode report: %w", err)
	}
	return r, nil
}

func unixMilli(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UTC().UnixMilli()
}
