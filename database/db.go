package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"friendgraph/models"
)

// execer is satisfied by both *sql.DB and *sql.Tx
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// queries holds every statement of the package and runs them against
// either the pool or an open transaction.
type queries struct {
	conn    execer
	dialect Dialect
}

func (q *queries) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return q.conn.ExecContext(ctx, q.dialect.rebind(query), args...)
}

func (q *queries) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return q.conn.QueryContext(ctx, q.dialect.rebind(query), args...)
}

func (q *queries) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return q.conn.QueryRowContext(ctx, q.dialect.rebind(query), args...)
}

// DB is the connection pool plus the statements run on it
type DB struct {
	queries
	pool *sql.DB
}

// Tx is an open transaction. It exposes the same statements as DB.
type Tx struct {
	queries
}

// LockPair serializes transactions touching a or b. On PostgreSQL the two
// user rows are locked in id order until the transaction ends, so reads
// issued afterwards see whatever a competing transaction committed. SQLite
// transactions already hold the database write lock from BEGIN.
func (tx *Tx) LockPair(ctx context.Context, a, b int64) error {
	if tx.dialect != DialectPostgres {
		return nil
	}
	low, high := models.OrderedPair(a, b)
	rows, err := tx.query(ctx,
		"SELECT id FROM users WHERE id IN (?, ?) ORDER BY id FOR NO KEY UPDATE",
		low, high,
	)
	if err != nil {
		return fmt.Errorf("lock users: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("lock users: %w", err)
	}
	return nil
}

// Open connects to the database, applies pool settings and creates tables
func Open(ctx context.Context, driver, dsn string) (*DB, error) {
	dialect, err := ParseDialect(driver)
	if err != nil {
		return nil, err
	}
	if dsn == "" {
		return nil, fmt.Errorf("database url is required")
	}

	memory := false
	if dialect == DialectSQLite {
		base, _, _ := strings.Cut(dsn, "?")
		memory = isMemoryDSN(base)
		dsn = withSQLiteDefaults(dsn)
	}

	pool, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Set connection pool settings
	switch {
	case dialect == DialectPostgres:
		pool.SetMaxOpenConns(20)
		pool.SetMaxIdleConns(5)
		pool.SetConnMaxLifetime(5 * time.Minute)
		pool.SetConnMaxIdleTime(1 * time.Minute)
	case memory:
		// every connection to :memory: is a separate database
		pool.SetMaxOpenConns(1)
	default:
		pool.SetMaxOpenConns(8)
		pool.SetMaxIdleConns(8)
	}

	// Test the connection
	if err := pool.PingContext(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{
		queries: queries{conn: pool, dialect: dialect},
		pool:    pool,
	}

	if err := db.createTables(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"function": "Open",
		"driver":   dialect,
	}).Info("Database initialized successfully")

	return db, nil
}

func (db *DB) createTables(ctx context.Context) error {
	_, err := db.pool.ExecContext(ctx, db.dialect.schema())
	return err
}

// Dialect returns the SQL dialect in use
func (db *DB) Dialect() Dialect {
	return db.dialect
}

// Ping checks the database is reachable
func (db *DB) Ping(ctx context.Context) error {
	return db.pool.PingContext(ctx)
}

// Close releases the connection pool
func (db *DB) Close() error {
	return db.pool.Close()
}

// WithTx runs fn inside a single transaction. The transaction is committed
// when fn returns nil and rolled back otherwise, including on panic.
func (db *DB) WithTx(ctx context.Context, fn func(tx FriendshipTx) error) (err error) {
	sqlTx, err := db.pool.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = sqlTx.Rollback()
		}
	}()

	if err = fn(&Tx{queries: queries{conn: sqlTx, dialect: db.dialect}}); err != nil {
		return err
	}
	if err = sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
