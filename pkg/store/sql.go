package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"briefing-trends/pkg/domain"
	"briefing-trends/pkg/slug"
)

// DBProvider is implemented by clients that expose a sql.DB handle.
type DBProvider interface {
	DB() *sql.DB
	Close() error
}

// Dialect selects placeholder syntax.
type Dialect int

const (
	DialectSQLite Dialect = iota
	DialectPostgres
)

const sqlDateLayout = "2006-01-02"

// SQLStore keeps one row per slug in the briefing table. Appending a record
// whose slug already exists replaces its title and URL.
type SQLStore struct {
	provider DBProvider
	dialect  Dialect
}

// NewSQLStore creates the briefing table if needed.
func NewSQLStore(ctx context.Context, provider DBProvider, dialect Dialect) (*SQLStore, error) {
	s := &SQLStore{provider: provider, dialect: dialect}
	if err := s.ensureSchema(ctx); err != nil {
		_ = provider.Close()
		return nil, err
	}
	return s, nil
}

// OpenSQLite opens (or creates) a SQLite database file.
func OpenSQLite(ctx context.Context, path string) (*SQLStore, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite serializes writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return NewSQLStore(ctx, sqliteClient{db: db}, DialectSQLite)
}

type sqliteClient struct {
	db *sql.DB
}

func (c sqliteClient) DB() *sql.DB  { return c.db }
func (c sqliteClient) Close() error { return c.db.Close() }

func (s *SQLStore) ensureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS briefing (
  slug           TEXT PRIMARY KEY,
  date           TEXT NOT NULL,
  title          TEXT NOT NULL,
  transcript_url TEXT NOT NULL
);
`
	if _, err := s.provider.DB().ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("failed to ensure briefing schema: %w", err)
	}
	return nil
}

func (s *SQLStore) placeholders(n int) string {
	ph := make([]string, n)
	for i := range ph {
		if s.dialect == DialectPostgres {
			ph[i] = fmt.Sprintf("$%d", i+1)
		} else {
			ph[i] = "?"
		}
	}
	return strings.Join(ph, ", ")
}

// Append upserts records keyed by slug in a single transaction.
func (s *SQLStore) Append(ctx context.Context, records ...domain.BriefingRecord) error {
	if len(records) == 0 {
		return nil
	}

	query := `INSERT INTO briefing (slug, date, title, transcript_url) VALUES (` + s.placeholders(4) + `)
ON CONFLICT (slug) DO UPDATE SET title = excluded.title, transcript_url = excluded.transcript_url`

	tx, err := s.provider.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		key := slug.Make(r.Date, r.Title)
		if _, err := stmt.ExecContext(ctx, key, r.Date.Format(sqlDateLayout), r.Title, r.TranscriptURL); err != nil {
			return fmt.Errorf("failed to upsert %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// ReadAll returns every record ordered by date then slug.
func (s *SQLStore) ReadAll(ctx context.Context) ([]domain.BriefingRecord, error) {
	rows, err := s.provider.DB().QueryContext(ctx, `SELECT date, title, transcript_url FROM briefing ORDER BY date, slug`)
	if err != nil {
		return nil, fmt.Errorf("failed to query briefings: %w", err)
	}
	defer rows.Close()

	var records []domain.BriefingRecord
	for rows.Next() {
		var date, title, url string
		if err := rows.Scan(&date, &title, &url); err != nil {
			return nil, fmt.Errorf("failed to scan briefing: %w", err)
		}
		d, err := time.Parse(sqlDateLayout, date)
		if err != nil {
			continue
		}
		records = append(records, domain.BriefingRecord{Date: d, Title: title, TranscriptURL: url})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return records, nil
}

// Close releases the database handle.
func (s *SQLStore) Close() error {
	return s.provider.Close()
}
