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

// FriendshipReader is the read side of the friendship store
type FriendshipReader interface {
	GetRequest(ctx context.Context, id int64) (*models.FriendRequest, error)
	PendingBetween(ctx context.Context, a, b int64) (*models.FriendRequest, error)
	EdgeExists(ctx context.Context, a, b int64) (bool, error)
	EdgesOf(ctx context.Context, userID int64) ([]int64, error)
	RequestsWhere(ctx context.Context, filter RequestFilter) ([]models.FriendRequest, error)
}

// FriendshipTx is the friendship store as seen from inside a transaction
type FriendshipTx interface {
	FriendshipReader
	LockPair(ctx context.Context, a, b int64) error
	SaveRequest(ctx context.Context, req *models.FriendRequest) (int64, error)
	UpdateRequestStatus(ctx context.Context, id int64, status models.RequestStatus, at time.Time) error
	AddEdge(ctx context.Context, a, b int64, at time.Time) error
	RemoveEdge(ctx context.Context, a, b int64) (bool, error)
}

// Friendships is the friendship store. Every mutation goes through WithTx.
type Friendships interface {
	FriendshipReader
	WithTx(ctx context.Context, fn func(tx FriendshipTx) error) error
}

var (
	_ Friendships  = (*DB)(nil)
	_ FriendshipTx = (*Tx)(nil)
)

// RequestFilter selects friend requests. Zero fields match anything.
type RequestFilter struct {
	FromUser int64
	ToUser   int64
	Status   models.RequestStatus
}

const requestColumns = "id, from_user, to_user, message, status, created_at, responded_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*models.FriendRequest, error) {
	req := &models.FriendRequest{}
	var respondedAt sql.NullTime
	if err := row.Scan(
		&req.ID, &req.FromUser, &req.ToUser, &req.Message,
		&req.Status, &req.CreatedAt, &respondedAt,
	); err != nil {
		return nil, err
	}
	if !req.Status.Valid() {
		return nil, fmt.Errorf("friend request %d has unknown status %q", req.ID, req.Status)
	}
	req.CreatedAt = req.CreatedAt.UTC()
	if respondedAt.Valid {
		t := respondedAt.Time.UTC()
		req.RespondedAt = &t
	}
	return req, nil
}

// Friend request queries

// SaveRequest inserts a new pending request and returns its id.
// A pending request already open between the same two users, in either
// direction, yields ErrConflict.
func (q *queries) SaveRequest(ctx context.Context, req *models.FriendRequest) (int64, error) {
	low, high := models.OrderedPair(req.FromUser, req.ToUser)
	createdAt := req.CreatedAt.UTC()

	var id int64
	err := q.queryRow(ctx,
		`INSERT INTO friend_requests (from_user, to_user, user_low, user_high, message, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id`,
		req.FromUser, req.ToUser, low, high, req.Message, models.RequestStatusPending, createdAt,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrConflict
		}
		return 0, fmt.Errorf("insert friend request: %w", err)
	}

	req.ID = id
	req.Status = models.RequestStatusPending
	req.CreatedAt = createdAt
	req.RespondedAt = nil
	return id, nil
}

// GetRequest retrieves a friend request by its ID
func (q *queries) GetRequest(ctx context.Context, id int64) (*models.FriendRequest, error) {
	req, err := scanRequest(q.queryRow(ctx,
		"SELECT "+requestColumns+" FROM friend_requests WHERE id = ?",
		id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get friend request %d: %w", id, err)
	}
	return req, nil
}

// PendingBetween returns the open request between a and b in either direction
func (q *queries) PendingBetween(ctx context.Context, a, b int64) (*models.FriendRequest, error) {
	low, high := models.OrderedPair(a, b)
	req, err := scanRequest(q.queryRow(ctx,
		"SELECT "+requestColumns+" FROM friend_requests WHERE user_low = ? AND user_high = ? AND status = ?",
		low, high, models.RequestStatusPending,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get pending friend request: %w", err)
	}
	return req, nil
}

// UpdateRequestStatus moves a pending request to status. The update only
// applies while the row is still pending, so of two concurrent writers
// exactly one succeeds and the other gets ErrInvalidState.
func (q *queries) UpdateRequestStatus(ctx context.Context, id int64, status models.RequestStatus, at time.Time) error {
	if !status.Terminal() {
		return fmt.Errorf("cannot move friend request to %q: %w", status, ErrInvalidState)
	}

	result, err := q.exec(ctx,
		"UPDATE friend_requests SET status = ?, responded_at = ? WHERE id = ? AND status = ?",
		status, at.UTC(), id, models.RequestStatusPending,
	)
	if err != nil {
		return fmt.Errorf("update friend request %d: %w", id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update friend request %d: %w", id, err)
	}
	if rows > 0 {
		return nil
	}

	if _, err := q.GetRequest(ctx, id); err != nil {
		return err
	}
	return ErrInvalidState
}

// RequestsWhere lists requests matching filter, newest first
func (q *queries) RequestsWhere(ctx context.Context, filter RequestFilter) ([]models.FriendRequest, error) {
	var (
		conds []string
		args  []any
	)
	if filter.FromUser != 0 {
		conds = append(conds, "from_user = ?")
		args = append(args, filter.FromUser)
	}
	if filter.ToUser != 0 {
		conds = append(conds, "to_user = ?")
		args = append(args, filter.ToUser)
	}
	if filter.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, filter.Status)
	}

	query := "SELECT " + requestColumns + " FROM friend_requests"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := q.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list friend requests: %w", err)
	}
	defer rows.Close()

	var requests []models.FriendRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan friend request: %w", err)
		}
		requests = append(requests, *req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list friend requests: %w", err)
	}
	return requests, nil
}

// Friend edge queries

// AddEdge records the friendship between a and b. Adding an existing edge
// is a no-op.
func (q *queries) AddEdge(ctx context.Context, a, b int64, at time.Time) error {
	low, high := models.OrderedPair(a, b)
	_, err := q.exec(ctx,
		`INSERT INTO friend_edges (user_low, user_high, created_at) VALUES (?, ?, ?)
		ON CONFLICT (user_low, user_high) DO NOTHING`,
		low, high, at.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert friend edge: %w", err)
	}
	return nil
}

// RemoveEdge deletes the friendship between a and b and reports whether
// one existed
func (q *queries) RemoveEdge(ctx context.Context, a, b int64) (bool, error) {
	low, high := models.OrderedPair(a, b)
	result, err := q.exec(ctx,
		"DELETE FROM friend_edges WHERE user_low = ? AND user_high = ?",
		low, high,
	)
	if err != nil {
		return false, fmt.Errorf("delete friend edge: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete friend edge: %w", err)
	}
	return rows > 0, nil
}

// EdgeExists reports whether a and b are friends
func (q *queries) EdgeExists(ctx context.Context, a, b int64) (bool, error) {
	low, high := models.OrderedPair(a, b)
	var n int
	err := q.queryRow(ctx,
		"SELECT COUNT(*) FROM friend_edges WHERE user_low = ? AND user_high = ?",
		low, high,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check friend edge: %w", err)
	}
	return n > 0, nil
}

// EdgesOf returns the ids of every friend of userID, most recent first
func (q *queries) EdgesOf(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := q.query(ctx,
		`SELECT CASE WHEN user_low = ? THEN user_high ELSE user_low END
		FROM friend_edges
		WHERE user_low = ? OR user_high = ?
		ORDER BY created_at DESC`,
		userID, userID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list friend edges: %w", err)
	}
	defer rows.Close()

	var friends []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan friend edge: %w", err)
		}
		friends = append(friends, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list friend edges: %w", err)
	}
	return friends, nil
}
