package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"                                 // Postgres over database/sql
	_ "github.com/tursodatabase/libsql-client-go/libsql" // Turso / libsql
	_ "modernc.org/sqlite"                                // pure-Go SQLite
)

// dialect captures the differences between the database/sql backends.
type dialect struct {
	schema    string
	increment string
	get       string
	total     string
	delete    string
	// textTime stores timestamps as fixed-width UTC text instead of native values.
	textTime bool
}

// textTimeLayout keeps every fraction digit so stored values sort in time order.
const textTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

var postgresDialect = dialect{
	schema: postgresSchema,
	increment: `INSERT INTO views (linkid, count, updated_at) VALUES ($1, 1, $2)
		ON CONFLICT (linkid) DO UPDATE SET count = views.count + 1, updated_at = GREATEST(views.updated_at, EXCLUDED.updated_at)`,
	get:    `SELECT linkid, count, updated_at FROM views WHERE linkid = $1`,
	total:  `SELECT COALESCE(SUM(count), 0) FROM views`,
	delete: `DELETE FROM views WHERE linkid = $1`,
}

var sqliteDialect = dialect{
	schema: `CREATE TABLE IF NOT EXISTS views (
		linkid     TEXT PRIMARY KEY,
		count      INTEGER NOT NULL DEFAULT 1,
		updated_at TEXT NOT NULL
	)`,
	increment: `INSERT INTO views (linkid, count, updated_at) VALUES (?, 1, ?)
		ON CONFLICT (linkid) DO UPDATE SET count = views.count + 1, updated_at = MAX(views.updated_at, excluded.updated_at)`,
	get:      `SELECT linkid, count, updated_at FROM views WHERE linkid = ?`,
	total:    `SELECT COALESCE(SUM(count), 0) FROM views`,
	delete:   `DELETE FROM views WHERE linkid = ?`,
	textTime: true,
}

// SQLViewLedger is a ViewLedger over database/sql for the postgres (lib/pq),
// sqlite (modernc) and libsql drivers.
type SQLViewLedger struct {
	db      *sql.DB
	dialect dialect
}

// OpenSQLViewLedger opens dsn with the named driver: "postgres", "sqlite" or "libsql".
func OpenSQLViewLedger(ctx context.Context, driver, dsn string) (*SQLViewLedger, error) {
	var d dialect
	switch driver {
	case "postgres":
		d = postgresDialect
	case "sqlite", "libsql":
		d = sqliteDialect
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if driver == "sqlite" {
		// in-memory databases are per connection
		db.SetMaxOpenConns(1)
	}

	if err := retryConnect(ctx, db.PingContext); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &SQLViewLedger{db: db, dialect: d}, nil
}

func (l *SQLViewLedger) Migrate(ctx context.Context) error {
	_, err := l.db.ExecContext(ctx, l.dialect.schema)
	return err
}

func (l *SQLViewLedger) Increment(ctx context.Context, code string, at time.Time) error {
	_, err := l.db.ExecContext(ctx, l.dialect.increment, code, l.timeArg(at))
	return err
}

func (l *SQLViewLedger) Get(ctx context.Context, code string) (*ViewRecord, error) {
	row := l.db.QueryRowContext(ctx, l.dialect.get, code)

	var rec ViewRecord
	var err error
	if l.dialect.textTime {
		var updated string
		err = row.Scan(&rec.LinkID, &rec.Count, &updated)
		if err == nil {
			rec.UpdatedAt, err = time.Parse(textTimeLayout, updated)
		}
	} else {
		err = row.Scan(&rec.LinkID, &rec.Count, &rec.UpdatedAt)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rec.UpdatedAt = rec.UpdatedAt.UTC()
	return &rec, nil
}

func (l *SQLViewLedger) TotalViews(ctx context.Context) (int64, error) {
	var total int64
	err := l.db.QueryRowContext(ctx, l.dialect.total).Scan(&total)
	return total, err
}

func (l *SQLViewLedger) Delete(ctx context.Context, code string) error {
	_, err := l.db.ExecContext(ctx, l.dialect.delete, code)
	return err
}

func (l *SQLViewLedger) Close() error {
	return l.db.Close()
}

func (l *SQLViewLedger) timeArg(at time.Time) any {
	if l.dialect.textTime {
		return at.UTC().Format(textTimeLayout)
	}
	return at.UTC()
}

var _ ViewLedger = (*SQLViewLedger)(nil)
