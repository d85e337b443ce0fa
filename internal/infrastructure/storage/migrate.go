package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
)

//go:embed migrations
var migrationFS embed.FS

// Migrate applies every embedded migration for dialect that is not yet
// recorded in schema_migrations, in file name order. It returns the names it
// applied.
func Migrate(ctx context.Context, db *sql.DB, dialect Dialect) ([]string, error) {
	dir := path.Join("migrations", string(dialect))
	entries, err := fs.ReadDir(migrationFS, dir)
	if err != nil {
		return nil, fmt.Errorf("no migrations for dialect %q: %w", dialect, err)
	}

	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(strings.ToLower(e.Name()), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	if err := ensureSchemaMigrations(ctx, db); err != nil {
		return nil, err
	}

	sb := builder(dialect)
	var applied []string
	for _, name := range files {
		done, err := isApplied(ctx, db, sb, name)
		if err != nil {
			return applied, err
		}
		if done {
			continue
		}

		body, err := migrationFS.ReadFile(path.Join(dir, name))
		if err != nil {
			return applied, err
		}
		for _, stmt := range splitStatements(string(body)) {
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				return applied, fmt.Errorf("migration %s failed: %w", name, err)
			}
		}

		if err := markApplied(ctx, db, sb, name); err != nil {
			return applied, err
		}
		applied = append(applied, name)
	}

	return applied, nil
}

func ensureSchemaMigrations(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS schema_migrations (
  name VARCHAR(191) NOT NULL PRIMARY KEY,
  applied_at BIGINT NOT NULL
)`)
	if err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}
	return nil
}

func isApplied(ctx context.Context, db *sql.DB, sb sq.StatementBuilderType, name string) (bool, error) {
	query, args, err := sb.Select("name").From("schema_migrations").Where(sq.Eq{"name": name}).ToSql()
	if err != nil {
		return false, err
	}
	var v string
	err = db.QueryRowContext(ctx, query, args...).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check migration %s: %w", name, err)
	}
	return true, nil
}

func markApplied(ctx context.Context, db *sql.DB, sb sq.StatementBuilderType, name string) error {
	query, args, err := sb.Insert("schema_migrations").
		Columns("name", "applied_at").
		Values(name, time.Now().UnixMilli()).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("record migration %s: %w", name, err)
	}
	return nil
}

// splitStatements cuts a migration file on ";" line endings. Migrations never
// carry semicolons inside literals.
func splitStatements(body string) []string {
	parts := strings.Split(body, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
