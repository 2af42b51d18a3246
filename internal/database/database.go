package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/rs/zerolog"
)

// Querier is the subset of *sql.DB / *sql.Tx the store functions need.
// Passing the transaction handle through every call keeps a conflict check
// and the writes that depend on it inside one transaction.
type Querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// DB wraps the sqlite connection pool.
type DB struct {
	*sql.DB
	logger *zerolog.Logger
}

// NewDB opens the database at path and runs migrations.
//
// The DSN requests WAL mode and immediate transactions: BeginTx takes the
// write lock up front, so the check-then-write sequence of one booking
// operation cannot interleave with another writer on the same database.
func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	dsn := path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_txlock=immediate&_foreign_keys=on"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	instance := &DB{DB: db, logger: logger}
	if err := instance.createTables(); err != nil {
		return nil, fmt.Errorf("create tables: %w", err)
	}

	logger.Info().Str("path", path).Msg("Database initialized")
	return instance, nil
}

// WithTx runs fn inside a transaction, rolling back on error.
func (db *DB) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			db.logger.Error().Err(rbErr).Msg("rollback failed")
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (db *DB) createTables() error {
	queries := []string{
		// Rooms
		`CREATE TABLE IF NOT EXISTS rooms (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT UNIQUE NOT NULL,
			capacity INTEGER NOT NULL DEFAULT 0,
			facilities TEXT NOT NULL DEFAULT '',
			maintenance BOOLEAN NOT NULL DEFAULT 0,
			image_url TEXT NOT NULL DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Bookings. Cancelled rows are kept as soft-delete markers and are
		// never conflict sources.
		`CREATE TABLE IF NOT EXISTS bookings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			room_id INTEGER NOT NULL,
			user_id INTEGER NOT NULL,
			start_time DATETIME NOT NULL,
			end_time DATETIME NOT NULL,
			topic TEXT NOT NULL DEFAULT '',
			is_private BOOLEAN NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'CONFIRMED',
			recurring_type TEXT,
			recurring_end_date DATETIME,
			group_id TEXT,
			pin_code TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (room_id) REFERENCES rooms(id)
		)`,

		// Audit trail of booking mutations
		`CREATE TABLE IF NOT EXISTS audit_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			action TEXT NOT NULL,
			booking_id INTEGER NOT NULL,
			user_id INTEGER NOT NULL,
			details TEXT NOT NULL DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Indexes
		`CREATE INDEX IF NOT EXISTS idx_bookings_room_times ON bookings(room_id, start_time, end_time)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_status ON bookings(status)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_group ON bookings(group_id)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_user ON bookings(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_created ON audit_log(created_at)`,
	}

	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return fmt.Errorf("exec migration %s: %w", trimSQL(q), err)
		}
	}
	return nil
}

func trimSQL(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 60 {
		return s[:60] + "..."
	}
	return s
}
