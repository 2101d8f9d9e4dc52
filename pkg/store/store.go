// Package store persists BriefingRecords. The flat CSV file is the default
// append-only store; SQL backends (SQLite, Postgres, Supabase) upsert by
// slug. The MongoDB transcript mirror also lives here.
package store

import (
	"context"
	"errors"
	"fmt"

	"briefing-trends/pkg/domain"
)

// RecordStore is an ordered collection of listing records.
type RecordStore interface {
	Append(ctx context.Context, records ...domain.BriefingRecord) error
	ReadAll(ctx context.Context) ([]domain.BriefingRecord, error)
}

// Store is a RecordStore that holds a connection or file handle.
type Store interface {
	RecordStore
	Close() error
}

// Supported drivers.
const (
	DriverCSV      = "csv"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverSupabase = "supabase"
)

var ErrUnknownDriver = errors.New("unknown record store driver")

// Config selects and configures a record store backend.
type Config struct {
	Driver string

	// CSVPath is used by the csv driver.
	CSVPath string

	// DSN is a file path for sqlite or a connection string for postgres and
	// supabase.
	DSN string

	// SupabaseURL and SupabaseKey enable the Supabase REST API. With no DSN
	// the supabase driver stores records through the REST API alone.
	SupabaseURL string
	SupabaseKey string
	// SupabasePassword builds the direct connection string when DSN is empty.
	SupabasePassword string

	// Pool applies to the postgres and supabase connections.
	Pool PoolConfig
}

// Open connects to the backend named by cfg.Driver.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case "", DriverCSV:
		return NewCSVStore(cfg.CSVPath), nil

	case DriverSQLite:
		return OpenSQLite(ctx, cfg.DSN)

	case DriverPostgres:
		client := NewPostgresClient(PostgresConfig{DSN: cfg.DSN, Pool: cfg.Pool})
		if err := client.Connect(ctx); err != nil {
			return nil, err
		}
		return NewSQLStore(ctx, client, DialectPostgres)

	case DriverSupabase:
		client := NewSupabaseClient(SupabaseConfig{
			ConnectionString: cfg.DSN,
			SupabaseURL:      cfg.SupabaseURL,
			SupabaseKey:      cfg.SupabaseKey,
			Password:         cfg.SupabasePassword,
			Pool:             cfg.Pool,
		})
		if err := client.Connect(ctx); err != nil {
			return nil, err
		}
		if !client.HasDirectDB() {
			return NewSupabaseRESTStore(client.SDK()), nil
		}
		return NewSQLStore(ctx, client, DialectPostgres)

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}
