package database

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/jmoiron/sqlx"
)

// Dialect selects the SQL flavour and driver used by a DB
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite3"
	DialectPostgres Dialect = "postgres"
)

// ParseDialect maps a driver name to a Dialect
func ParseDialect(driver string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "sqlite3", "sqlite":
		return DialectSQLite, nil
	case "postgres", "postgresql", "pq":
		return DialectPostgres, nil
	}
	return "", fmt.Errorf("unsupported database driver %q", driver)
}

// rebind rewrites ? placeholders to the dialect's bind style
func (d Dialect) rebind(query string) string {
	return sqlx.Rebind(sqlx.BindType(string(d)), query)
}

func (d Dialect) schema() string {
	if d == DialectPostgres {
		return postgresSchema
	}
	return sqliteSchema
}

// sqliteDefaults are applied to a SQLite DSN unless already present.
// IMMEDIATE transactions take the write lock on BEGIN, so concurrent
// writers queue on the busy timeout instead of failing on upgrade.
var sqliteDefaults = [][2]string{
	{"_foreign_keys", "on"},
	{"_busy_timeout", "5000"},
	{"_txlock", "immediate"},
	{"_journal_mode", "WAL"},
}

func withSQLiteDefaults(dsn string) string {
	base, rawQuery, _ := strings.Cut(dsn, "?")
	params, err := url.ParseQuery(rawQuery)
	if err != nil {
		return dsn
	}
	for _, kv := range sqliteDefaults {
		if params.Get(kv[0]) == "" {
			params.Set(kv[0], kv[1])
		}
	}
	if isMemoryDSN(base) {
		params.Del("_journal_mode")
	}
	return base + "?" + params.Encode()
}

func isMemoryDSN(base string) bool {
	return base == ":memory:" || base == "file::memory:" || strings.Contains(base, "mode=memory")
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	username TEXT UNIQUE NOT NULL,
	email TEXT UNIQUE NOT NULL,
	password TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	user_id INTEGER NOT NULL,
	created_at TIMESTAMP NOT NULL,
	expires_at TIMESTAMP NOT NULL,
	FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS friend_requests (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	from_user INTEGER NOT NULL,
	to_user INTEGER NOT NULL,
	user_low INTEGER NOT NULL,
	user_high INTEGER NOT NULL,
	message TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'pending',
	created_at TIMESTAMP NOT NULL,
	responded_at TIMESTAMP,
	FOREIGN KEY (from_user) REFERENCES users(id) ON DELETE CASCADE,
	FOREIGN KEY (to_user) REFERENCES users(id) ON DELETE CASCADE,
	CHECK (from_user <> to_user),
	CHECK (status IN ('pending', 'accepted', 'rejected'))
);

CREATE TABLE IF NOT EXISTS friend_edges (
	user_low INTEGER NOT NULL,
	user_high INTEGER NOT NULL,
	created_at TIMESTAMP NOT NULL,
	PRIMARY KEY (user_low, user_high),
	FOREIGN KEY (user_low) REFERENCES users(id) ON DELETE CASCADE,
	FOREIGN KEY (user_high) REFERENCES users(id) ON DELETE CASCADE,
	CHECK (user_low < user_high)
);

CREATE UNIQUE INDEX IF NOT EXISTS uq_friend_requests_pending ON friend_requests(user_low, user_high) WHERE status = 'pending';
CREATE INDEX IF NOT EXISTS idx_friend_requests_to ON friend_requests(to_user, status);
CREATE INDEX IF NOT EXISTS idx_friend_requests_from ON friend_requests(from_user, status);
CREATE INDEX IF NOT EXISTS idx_friend_edges_high ON friend_edges(user_high);
CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id);
`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS users (
	id BIGSERIAL PRIMARY KEY,
	username TEXT UNIQUE NOT NULL,
	email TEXT UNIQUE NOT NULL,
	password TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	created_at TIMESTAMPTZ NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS friend_requests (
	id BIGSERIAL PRIMARY KEY,
	from_user BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	to_user BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	user_low BIGINT NOT NULL,
	user_high BIGINT NOT NULL,
	message TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'pending',
	created_at TIMESTAMPTZ NOT NULL,
	responded_at TIMESTAMPTZ,
	CHECK (from_user <> to_user),
	CHECK (status IN ('pending', 'accepted', 'rejected'))
);

CREATE TABLE IF NOT EXISTS friend_edges (
	user_low BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	user_high BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	created_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (user_low, user_high),
	CHECK (user_low < user_high)
);

CREATE UNIQUE INDEX IF NOT EXISTS uq_friend_requests_pending ON friend_requests(user_low, user_high) WHERE status = 'pending';
CREATE INDEX IF NOT EXISTS idx_friend_requests_to ON friend_requests(to_user, status);
CREATE INDEX IF NOT EXISTS idx_friend_requests_from ON friend_requests(from_user, status);
CREATE INDEX IF NOT EXISTS idx_friend_edges_high ON friend_edges(user_high);
CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id);
`
