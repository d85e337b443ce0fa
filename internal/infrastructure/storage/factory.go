package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"PriceRadar/internal/config"
	"PriceRadar/internal/ports"
)

const (
	BackendMemory = "memory"

	pingTimeout = 3 * time.Second
	pingRetries = 4
)

// Store is the persistence surface the application needs.
type Store interface {
	ports.MonitorStore
	ports.DeliveryLedger
}

// Result carries the opened store. DB is only set for SQL backends.
type Result struct {
	Store   Store
	DB      *sql.DB
	Dialect Dialect
}

// Close releases the SQL pool when there is one.
func (r Result) Close() error {
	if r.DB == nil {
		return nil
	}
	return r.DB.Close()
}

// NewStore opens the configured backend and, when cfg.Migrate is set,
// applies pending migrations.
func NewStore(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (Result, error) {
	backend := strings.ToLower(strings.TrimSpace(cfg.Backend))
	if backend == "" {
		backend = BackendMemory
	}
	if backend == BackendMemory {
		return Result{Store: NewMemoryStore()}, nil
	}

	dialect, err := ParseDialect(backend)
	if err != nil {
		return Result{}, err
	}
	if strings.TrimSpace(cfg.DSN) == "" {
		return Result{}, fmt.Errorf("store dsn is required for backend %s", backend)
	}

	db, err := Open(ctx, dialect, cfg.DSN)
	if err != nil {
		return Result{}, err
	}

	if cfg.Migrate {
		applied, err := Migrate(ctx, db, dialect)
		if err != nil {
			_ = db.Close()
			return Result{}, err
		}
		if logger != nil && len(applied) > 0 {
			logger.Info("migrations applied", "backend", backend, "files", applied)
		}
	}

	return Result{Store: NewSQLStore(db, dialect), DB: db, Dialect: dialect}, nil
}

// ParseDialect maps a backend name onto a SQL dialect.
func ParseDialect(backend string) (Dialect, error) {
	switch Dialect(strings.ToLower(strings.TrimSpace(backend))) {
	case DialectPostgres, "postgresql":
		return DialectPostgres, nil
	case DialectMySQL:
		return DialectMySQL, nil
	case DialectSQLite, "sqlite3":
		return DialectSQLite, nil
	default:
		return "", fmt.Errorf("unknown store backend %q (use memory, sqlite, postgres or mysql)", backend)
	}
}

// Open opens a pool for dialect and pings it, retrying with exponential
// backoff while the database comes up.
func Open(ctx context.Context, dialect Dialect, dsn string) (*sql.DB, error) {
	driver := string(dialect)
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	if dialect == DialectSQLite {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(20)
		db.SetMaxIdleConns(20)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	ping := func() error {
		c, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		return db.PingContext(c)
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), pingRetries), ctx)
	if err := backoff.Retry(ping, policy); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	return db, nil
}
