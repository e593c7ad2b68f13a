// Package catalog reads the shop's relational database: order ownership for
// the SQL assistant, inventory levels for sale analysis, product rows for
// vector ingestion, and guarded ad-hoc SELECTs. It never writes.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"time"

	_ "github.com/go-sql-driver/mysql" // register "mysql" driver
	_ "github.com/lib/pq"              // register "postgres" driver
	_ "modernc.org/sqlite"             // register "sqlite" driver
)

// DefaultTables lists the tables the assistants may read.
var DefaultTables = []string{
	"order",
	"order_item",
	"product",
	"category",
	"comment",
	"brand",
	"status",
	"ward",
	"province",
	"transport",
	"image_item",
}

// Config holds connection settings for the catalog database.
type Config struct {
	Dialect Dialect
	DSN     string

	// MaxOpenConns caps the pool (default: 10).
	MaxOpenConns int
	// ConnMaxLifetime recycles connections (default: 30m).
	ConnMaxLifetime time.Duration

	// Tables restricts TableInfo and ad-hoc queries (default: DefaultTables).
	Tables []string
}

// Store is a read-only handle on the catalog database. It is safe for
// concurrent use.
type Store struct {
	db      *sql.DB
	dialect Dialect
	tables  []string
}

// Open connects to the database and verifies it with a ping.
func Open(ctx context.Context, cfg *Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("catalog: DSN is required")
	}
	db, err := sql.Open(cfg.Dialect.driverName(), cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("catalog: open %s: %w", cfg.Dialect, err)
	}

	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 10
	}
	lifetime := cfg.ConnMaxLifetime
	if lifetime <= 0 {
		lifetime = 30 * time.Minute
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxOpen / 2)
	db.SetConnMaxLifetime(lifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("catalog: ping %s: %w", cfg.Dialect, err)
	}
	return New(db, cfg.Dialect, cfg.Tables), nil
}

// New wraps an existing *sql.DB. tables nil means DefaultTables.
func New(db *sql.DB, dialect Dialect, tables []string) *Store {
	if len(tables) == 0 {
		tables = DefaultTables
	}
	return &Store{db: db, dialect: dialect, tables: slices.Clone(tables)}
}

// Dialect reports the SQL dialect of the underlying database.
func (s *Store) Dialect() Dialect { return s.dialect }

// Tables returns the readable tables.
func (s *Store) Tables() []string { return slices.Clone(s.tables) }

// Name identifies the store in readiness output.
func (s *Store) Name() string { return "database" }

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("catalog: ping: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}
