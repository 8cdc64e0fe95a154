package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `CREATE TABLE IF NOT EXISTS views (
	linkid     TEXT PRIMARY KEY,
	count      BIGINT NOT NULL DEFAULT 1,
	updated_at TIMESTAMPTZ NOT NULL
)`

// PostgresViewLedger stores view counters in Postgres through a pgx pool.
type PostgresViewLedger struct {
	pool *pgxpool.Pool
}

func NewPostgresViewLedger(pool *pgxpool.Pool) *PostgresViewLedger {
	return &PostgresViewLedger{pool: pool}
}

// OpenPostgresViewLedger connects to dsn and waits until the server answers.
func OpenPostgresViewLedger(ctx context.Context, dsn string) (*PostgresViewLedger, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres pool: %w", err)
	}
	if err := retryConnect(ctx, pool.Ping); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	return NewPostgresViewLedger(pool), nil
}

func (l *PostgresViewLedger) Migrate(ctx context.Context) error {
	_, err := l.pool.Exec(ctx, postgresSchema)
	return err
}

func (l *PostgresViewLedger) Increment(ctx context.Context, code string, at time.Time) error {
	query := `INSERT INTO views (linkid, count, updated_at) VALUES ($1, 1, $2)
		ON CONFLICT (linkid) DO UPDATE SET count = views.count + 1, updated_at = GREATEST(views.updated_at, EXCLUDED.updated_at)`
	_, err := l.pool.Exec(ctx, query, code, at.UTC())
	return err
}

func (l *PostgresViewLedger) Get(ctx context.Context, code string) (*ViewRecord, error) {
	query := `SELECT linkid, count, updated_at FROM views WHERE linkid = $1`
	var rec ViewRecord
	err := l.pool.QueryRow(ctx, query, code).Scan(&rec.LinkID, &rec.Count, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	rec.UpdatedAt = rec.UpdatedAt.UTC()
	return &rec, nil
}

func (l *PostgresViewLedger) TotalViews(ctx context.Context) (int64, error) {
	var total int64
	err := l.pool.QueryRow(ctx, `SELECT COALESCE(SUM(count), 0)::BIGINT FROM views`).Scan(&total)
	return total, err
}

func (l *PostgresViewLedger) Delete(ctx context.Context, code string) error {
	_, err := l.pool.Exec(ctx, `DELETE FROM views WHERE linkid = $1`, code)
	return err
}

func (l *PostgresViewLedger) Close() error {
	l.pool.Close()
	return nil
}

var _ ViewLedger = (*PostgresViewLedger)(nil)
