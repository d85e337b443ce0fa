package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"PriceRadar/internal/domain"
	"PriceRadar/internal/ports"
)

// Dialect selects placeholder style, insert-ignore syntax and migrations.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectMySQL    Dialect = "mysql"
	DialectSQLite   Dialect = "sqlite"
)

const (
	monitorsTable  = "price_monitors"
	deliveredTable = "delivered_notifications"
)

var monitorColumns = []string{
	"id", "owner_id", "search_query", "target_price_minor", "status",
	"last_price_minor", "last_checked_at", "created_at", "updated_at",
}

// SQLStore persists monitors and delivery tags in Postgres, MySQL or SQLite.
// Timestamps are stored as unix milliseconds.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	sb      sq.StatementBuilderType
	now     func() time.Time
}

var (
	_ ports.MonitorStore   = (*SQLStore)(nil)
	_ ports.DeliveryLedger = (*SQLStore)(nil)
)

// NewSQLStore wires a sql.DB implementation.
func NewSQLStore(db *sql.DB, dialect Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: dialect, sb: builder(dialect), now: time.Now}
}

func builder(dialect Dialect) sq.StatementBuilderType {
	if dialect == DialectPostgres {
		return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	}
	return sq.StatementBuilder.PlaceholderFormat(sq.Question)
}

func (s *SQLStore) Create(ctx context.Context, m domain.PriceMonitor) error {
	if m.ID == "" {
		return fmt.Errorf("create monitor: id is empty")
	}
	if !m.Status.Valid() {
		return fmt.Errorf("create monitor %s: invalid status %q", m.ID, m.Status)
	}

	query, args, err := s.sb.Insert(monitorsTable).
		Columns(monitorColumns...).
		Values(m.ID, m.OwnerID, m.Query, m.TargetPriceMinor, string(m.Status),
			m.LastPriceMinor, toMillis(m.LastCheckedAt), toMillis(m.CreatedAt), toMillis(m.UpdatedAt)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert monitor %s: %w", m.ID, err)
	}
	return nil
}

func (s *SQLStore) Get(ctx context.Context, id string) (domain.PriceMonitor, error) {
	query, args, err := s.sb.Select(monitorColumns...).From(monitorsTable).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return domain.PriceMonitor{}, fmt.Errorf("build select: %w", err)
	}

	m, err := scanMonitor(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.PriceMonitor{}, fmt.Errorf("%w: %s", domain.ErrMonitorNotFound, id)
	}
	if err != nil {
		return domain.PriceMonitor{}, fmt.Errorf("load monitor %s: %w", id, err)
	}
	return m, nil
}

func (s *SQLStore) List(ctx context.Context, ownerID string) ([]domain.PriceMonitor, error) {
	q := s.sb.Select(monitorColumns...).From(monitorsTable)
	if ownerID != "" {
		q = q.Where(sq.Eq{"owner_id": ownerID})
	}
	return s.query(ctx, q)
}

func (s *SQLStore) ListActive(ctx context.Context) ([]domain.PriceMonitor, error) {
	return s.ListByStatus(ctx, domain.MonitorActive)
}

func (s *SQLStore) ListByStatus(ctx context.Context, status domain.MonitorStatus) ([]domain.PriceMonitor, error) {
	return s.query(ctx, s.sb.Select(monitorColumns...).From(monitorsTable).Where(sq.Eq{"status": string(status)}))
}

// Transition is a conditional UPDATE; zero affected rows means the monitor
// was not in state from.
func (s *SQLStore) Transition(ctx context.Context, id string, from, to domain.MonitorStatus) (bool, error) {
	query, args, err := s.sb.Update(monitorsTable).
		Set("status", string(to)).
		Set("updated_at", toMillis(s.now())).
		Where(sq.Eq{"id": id, "status": string(from)}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build update: %w", err)
	}

	n, err := s.exec(ctx, query, args)
	if err != nil {
		return false, fmt.Errorf("transition monitor %s: %w", id, err)
	}
	if n > 0 {
		return true, nil
	}
	if _, err := s.Get(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

func (s *SQLStore) RecordCheck(ctx context.Context, id string, priceMinor int64, at time.Time) error {
	query, args, err := s.sb.Update(monitorsTable).
		Set("last_price_minor", priceMinor).
		Set("last_checked_at", toMillis(at)).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	n, err := s.exec(ctx, query, args)
	if err != nil {
		return fmt.Errorf("record check %s: %w", id, err)
	}
	if n == 0 {
		// MySQL reports zero rows when the values did not change.
		if _, err := s.Get(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// Remove marks the monitor removed whatever its current state.
func (s *SQLStore) Remove(ctx context.Context, id string) error {
	query, args, err := s.sb.Update(monitorsTable).
		Set("status", string(domain.MonitorRemoved)).
		Set("updated_at", toMillis(s.now())).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	n, err := s.exec(ctx, query, args)
	if err != nil {
		return fmt.Errorf("remove monitor %s: %w", id, err)
	}
	if n == 0 {
		if _, err := s.Get(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLStore) Delivered(ctx context.Context, tag string) (bool, error) {
	query, args, err := s.sb.Select("tag").From(deliveredTable).Where(sq.Eq{"tag": tag}).ToSql()
	if err != nil {
		return false, fmt.Errorf("build select: %w", err)
	}
	var v string
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check delivery %s: %w", tag, err)
	}
	return true, nil
}

func (s *SQLStore) MarkDelivered(ctx context.Context, tag string) error {
	ins := s.sb.Insert(deliveredTable).Columns("tag", "delivered_at").Values(tag, toMillis(s.now()))
	if s.dialect == DialectMySQL {
		ins = ins.Options("IGNORE")
	} else {
		ins = ins.Suffix("ON CONFLICT (tag) DO NOTHING")
	}

	query, args, err := ins.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("mark delivery %s: %w", tag, err)
	}
	return nil
}

// Close releases the underlying pool.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) query(ctx context.Context, q sq.SelectBuilder) ([]domain.PriceMonitor, error) {
	query, args, err := q.OrderBy("created_at", "id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query monitors: %w", err)
	}

	var out []domain.PriceMonitor
	for rows.Next() {
		m, err := scanMonitor(rows)
		if err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan monitor: %w", err)
		}
		out = append(out, m)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("rows iteration: %w", rowsErr)
	}

	if closeErr := rows.Close(); closeErr != nil {
		return nil, fmt.Errorf("close rows: %w", closeErr)
	}

	return out, nil
}

func (s *SQLStore) exec(ctx context.Context, query string, args []any) (int64, error) {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMonitor(row rowScanner) (domain.PriceMonitor, error) {
	var (
		m                         domain.PriceMonitor
		status                    string
		checked, created, updated int64
	)
	if err := row.Scan(&m.ID, &m.OwnerID, &m.Query, &m.TargetPriceMinor, &status,
		&m.LastPriceMinor, &checked, &created, &updated); err != nil {
		return domain.PriceMonitor{}, err
	}
	m.Status = domain.MonitorStatus(status)
	m.LastCheckedAt = fromMillis(checked)
	m.CreatedAt = fromMillis(created)
	m.UpdatedAt = fromMillis(updated)
	return m, nil
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
