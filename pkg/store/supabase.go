package store

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	supabase "github.com/supabase-community/supabase-go"

	"briefing-trends/pkg/domain"
	"briefing-trends/pkg/slug"
)

// SupabaseConfig holds configuration required to connect to Supabase.
type SupabaseConfig struct {
	// ConnectionString is the Supabase Postgres connection string. If empty
	// it is built from SupabaseURL and Password.
	ConnectionString string

	// SupabaseURL is the project URL, e.g. "https://[project-ref].supabase.co".
	SupabaseURL string

	// SupabaseKey is the API key used by the REST client.
	SupabaseKey string

	// Password is the database password, not the API key.
	Password string

	Pool PoolConfig
}

// SupabaseClient provides a direct Postgres handle, the Supabase SDK, or both.
type SupabaseClient struct {
	db          *sql.DB
	supabaseSDK *supabase.Client
	cfg         SupabaseConfig
}

// NewSupabaseClient constructs a Supabase client.
func NewSupabaseClient(cfg SupabaseConfig) *SupabaseClient {
	return &SupabaseClient{cfg: cfg}
}

// Connect initializes the SDK when URL and key are set, then tries a direct
// database connection. With only URL and key it works in REST mode.
func (c *SupabaseClient) Connect(ctx context.Context) error {
	if c.cfg.SupabaseURL != "" && c.cfg.SupabaseKey != "" {
		sdkClient, err := supabase.NewClient(c.cfg.SupabaseURL, c.cfg.SupabaseKey, nil)
		if err != nil {
			return fmt.Errorf("initialize supabase SDK: %w", err)
		}
		c.supabaseSDK = sdkClient
	}

	connStr := c.cfg.ConnectionString
	if connStr == "" && c.cfg.Password != "" {
		var err error
		connStr, err = c.buildConnectionString()
		if err != nil && c.supabaseSDK == nil {
			return fmt.Errorf("build connection string: %w", err)
		}
	}

	if connStr != "" {
		// The pooler rejects prepared statements shared across sessions.
		connStr = addConnectionParam(connStr, "statement_cache_capacity", "0")
		connStr = addConnectionParam(connStr, "default_query_exec_mode", "simple_protocol")

		db, err := sql.Open("pgx", connStr)
		if err == nil {
			applyPool(db, c.cfg.Pool)
			if err = db.PingContext(ctx); err != nil {
				_ = db.Close()
			} else {
				c.db = db
			}
		}
		if err != nil && c.supabaseSDK == nil {
			return fmt.Errorf("connect supabase postgres: %w", err)
		}
	}

	if c.db == nil && c.supabaseSDK == nil {
		return fmt.Errorf("either connection string/password or Supabase URL+key must be provided")
	}
	return nil
}

// Close closes the database connection.
func (c *SupabaseClient) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

// DB returns nil in REST-only mode.
func (c *SupabaseClient) DB() *sql.DB {
	return c.db
}

// HasDirectDB reports whether a direct database connection is available.
func (c *SupabaseClient) HasDirectDB() bool {
	return c.db != nil
}

// SDK returns the Supabase SDK client, or nil.
func (c *SupabaseClient) SDK() *supabase.Client {
	return c.supabaseSDK
}

func (c *SupabaseClient) buildConnectionString() (string, error) {
	if c.cfg.SupabaseURL == "" {
		return "", fmt.Errorf("supabase URL is required when connection string is not provided")
	}

	parsedURL, err := url.Parse(c.cfg.SupabaseURL)
	if err != nil {
		return "", fmt.Errorf("parse supabase URL: %w", err)
	}

	// [project-ref].supabase.co
	parts := strings.Split(parsedURL.Host, ".")
	if len(parts) < 2 {
		return "", fmt.Errorf("invalid supabase URL format: expected [project-ref].supabase.co")
	}

	return fmt.Sprintf("postgresql://postgres:%s@db.%s.supabase.co:5432/postgres?sslmode=require",
		url.QueryEscape(c.cfg.Password), parts[0]), nil
}

func addConnectionParam(connStr, key, value string) string {
	if strings.Contains(connStr, key+"=") {
		return connStr
	}
	separator := "?"
	if strings.Contains(connStr, "?") {
		separator = "&"
	}
	return connStr + separator + key + "=" + value
}

// briefingRow is the REST representation of a briefing table row.
type briefingRow struct {
	Slug          string `json:"slug"`
	Date          string `json:"date"`
	Title         string `json:"title"`
	TranscriptURL string `json:"transcript_url"`
}

// SupabaseRESTStore stores records through the PostgREST API when no direct
// connection is available. The briefing table must already exist.
type SupabaseRESTStore struct {
	client *supabase.Client
}

// NewSupabaseRESTStore wraps an initialized SDK client.
func NewSupabaseRESTStore(client *supabase.Client) *SupabaseRESTStore {
	return &SupabaseRESTStore{client: client}
}

// Append upserts records keyed by slug.
func (s *SupabaseRESTStore) Append(_ context.Context, records ...domain.BriefingRecord) error {
	if len(records) == 0 {
		return nil
	}

	rows := make([]briefingRow, 0, len(records))
	for _, r := range records {
		rows = append(rows, briefingRow{
			Slug:          slug.Make(r.Date, r.Title),
			Date:          r.Date.Format(sqlDateLayout),
			Title:         r.Title,
			TranscriptURL: r.TranscriptURL,
		})
	}

	if _, _, err := s.client.From("briefing").Upsert(rows, "slug", "minimal", "").Execute(); err != nil {
		return fmt.Errorf("failed to upsert briefings via supabase: %w", err)
	}
	return nil
}

// ReadAll returns every record ordered by date then slug.
func (s *SupabaseRESTStore) ReadAll(_ context.Context) ([]domain.BriefingRecord, error) {
	var rows []briefingRow
	if _, err := s.client.From("briefing").Select("slug,date,title,transcript_url", "", false).ExecuteTo(&rows); err != nil {
		return nil, fmt.Errorf("failed to select briefings via supabase: %w", err)
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Date != rows[j].Date {
			return rows[i].Date < rows[j].Date
		}
		return rows[i].Slug < rows[j].Slug
	})

	records := make([]domain.BriefingRecord, 0, len(rows))
	for _, row := range rows {
		d, err := time.Parse(sqlDateLayout, row.Date)
		if err != nil {
			continue
		}
		records = append(records, domain.BriefingRecord{Date: d, Title: row.Title, TranscriptURL: row.TranscriptURL})
	}
	return records, nil
}

// Close is a no-op; the SDK holds no connection.
func (s *SupabaseRESTStore) Close() error {
	return nil
}
