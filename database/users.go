package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"friendgraph/models"
)

// User queries

const userColumns = "id, username, email, password, created_at"

func scanUser(row rowScanner) (*models.User, error) {
	user := &models.User{}
	if err := row.Scan(&user.ID, &user.Username, &user.Email, &user.Password, &user.CreatedAt); err != nil {
		return nil, err
	}
	user.CreatedAt = user.CreatedAt.UTC()
	return user, nil
}

// CreateUser inserts a new user. Username or email already taken yields
// ErrConflict.
func (q *queries) CreateUser(ctx context.Context, username, email, passwordHash string) (*models.User, error) {
	user := &models.User{
		Username:  username,
		Email:     email,
		Password:  passwordHash,
		CreatedAt: time.Now().UTC(),
	}

	err := q.queryRow(ctx,
		"INSERT INTO users (username, email, password, created_at) VALUES (?, ?, ?, ?) RETURNING id",
		username, email, passwordHash, user.CreatedAt,
	).Scan(&user.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

func (q *queries) getUser(ctx context.Context, column string, value any) (*models.User, error) {
	user, err := scanUser(q.queryRow(ctx,
		"SELECT "+userColumns+" FROM users WHERE "+column+" = ?",
		value,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user by %s: %w", column, err)
	}
	return user, nil
}

// GetUserByID retrieves a user by their ID
func (q *queries) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	return q.getUser(ctx, "id", id)
}

// GetUserByUsername retrieves a user by their username
func (q *queries) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return q.getUser(ctx, "username", username)
}

// GetUserByEmail retrieves a user by their email
func (q *queries) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return q.getUser(ctx, "email", email)
}

// GetUsersByIDs retrieves the users with the given ids keyed by id.
// Unknown ids are absent from the result.
func (q *queries) GetUsersByIDs(ctx context.Context, ids []int64) (map[int64]*models.User, error) {
	users := make(map[int64]*models.User, len(ids))
	if len(ids) == 0 {
		return users, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := q.query(ctx,
		"SELECT "+userColumns+" FROM users WHERE id IN ("+placeholders+")",
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("get users: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users[user.ID] = user
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get users: %w", err)
	}
	return users, nil
}

// Session queries

// CreateSession stores a new session
func (q *queries) CreateSession(ctx context.Context, session *models.Session) error {
	_, err := q.exec(ctx,
		"INSERT INTO sessions (id, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)",
		session.ID, session.UserID, session.CreatedAt.UTC(), session.ExpiresAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// GetSession retrieves a session that has not expired at now
func (q *queries) GetSession(ctx context.Context, sessionID string, now time.Time) (*models.Session, error) {
	session := &models.Session{}
	err := q.queryRow(ctx,
		"SELECT id, user_id, created_at, expires_at FROM sessions WHERE id = ? AND expires_at > ?",
		sessionID, now.UTC(),
	).Scan(&session.ID, &session.UserID, &session.CreatedAt, &session.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return session, nil
}

// DeleteSession removes a session
func (q *queries) DeleteSession(ctx context.Context, sessionID string) error {
	if _, err := q.exec(ctx, "DELETE FROM sessions WHERE id = ?", sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions removes every session expired at now
func (q *queries) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	result, err := q.exec(ctx, "DELETE FROM sessions WHERE expires_at <= ?", now.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return result.RowsAffected()
}
