package friendship

import (
	"context"

	"friendgraph/database"
	"friendgraph/models"
)

// Queries answers read-only questions about the social graph
type Queries struct {
	store database.FriendshipReader
}

// NewQueries creates a Queries over store
func NewQueries(store database.FriendshipReader) *Queries {
	return &Queries{store: store}
}

// ListFriends returns the ids of every friend of user
func (q *Queries) ListFriends(ctx context.Context, user int64) ([]int64, error) {
	return q.store.EdgesOf(ctx, user)
}

// ListIncomingRequests returns pending requests addressed to user, newest first
func (q *Queries) ListIncomingRequests(ctx context.Context, user int64) ([]models.FriendRequest, error) {
	return q.store.RequestsWhere(ctx, database.RequestFilter{
		ToUser: user,
		Status: models.RequestStatusPending,
	})
}

// ListSentRequests returns pending requests sent by user, newest first
func (q *Queries) ListSentRequests(ctx context.Context, user int64) ([]models.FriendRequest, error) {
	return q.store.RequestsWhere(ctx, database.RequestFilter{
		FromUser: user,
		Status:   models.RequestStatusPending,
	})
}

// ListRejectedRequests returns requests addressed to user that user
// rejected, newest first
func (q *Queries) ListRejectedRequests(ctx context.Context, user int64) ([]models.FriendRequest, error) {
	return q.store.RequestsWhere(ctx, database.RequestFilter{
		ToUser: user,
		Status: models.RequestStatusRejected,
	})
}
