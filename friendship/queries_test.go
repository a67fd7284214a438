package friendship

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIncomingRequestsThenAcceptAll(t *testing.T) {
	db := newTestDB(t)
	ids := createUsers(t, db, 3)
	user1, user2, user3 := ids[0], ids[1], ids[2]
	engine := NewEngine(db, WithTimeProvider(newStepClock()))
	queries := NewQueries(db)
	ctx := context.Background()

	fromUser2, err := engine.AddFriend(ctx, user2, user1, "")
	require.NoError(t, err)
	fromUser3, err := engine.AddFriend(ctx, user3, user1, "")
	require.NoError(t, err)

	incoming, err := queries.ListIncomingRequests(ctx, user1)
	require.NoError(t, err)
	require.Len(t, incoming, 2)
	assert.Equal(t, fromUser3.ID, incoming[0].ID, "newest first")
	assert.Equal(t, fromUser2.ID, incoming[1].ID)

	sent, err := queries.ListSentRequests(ctx, user2)
	require.NoError(t, err)
	require.Len(t, sent, 1)
	assert.Equal(t, fromUser2.ID, sent[0].ID)

	for _, req := range incoming {
		_, err := engine.Accept(ctx, req.ID, user1)
		require.NoError(t, err)
	}

	friends, err := queries.ListFriends(ctx, user1)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{user2, user3}, friends)

	incoming, err = queries.ListIncomingRequests(ctx, user1)
	require.NoError(t, err)
	assert.Empty(t, incoming)

	sent, err = queries.ListSentRequests(ctx, user2)
	require.NoError(t, err)
	assert.Empty(t, sent)
}

func TestRejectAll(t *testing.T) {
	db := newTestDB(t)
	ids := createUsers(t, db, 3)
	user1, user2, user3 := ids[0], ids[1], ids[2]
	engine := NewEngine(db, WithTimeProvider(newStepClock()))
	queries := NewQueries(db)
	ctx := context.Background()

	for _, sender := range []int64{user2, user3} {
		_, err := engine.AddFriend(ctx, sender, user1, "")
		require.NoError(t, err)
	}

	incoming, err := queries.ListIncomingRequests(ctx, user1)
	require.NoError(t, err)
	for _, req := range incoming {
		_, err := engine.Reject(ctx, req.ID, user1)
		require.NoError(t, err)
	}

	rejected, err := queries.ListRejectedRequests(ctx, user1)
	require.NoError(t, err)
	assert.Len(t, rejected, 2)

	rejectedBySender, err := queries.ListRejectedRequests(ctx, user2)
	require.NoError(t, err)
	assert.Empty(t, rejectedBySender, "only the recipient sees rejected requests")

	friends, err := engine.AreFriends(ctx, user1, user2)
	require.NoError(t, err)
	assert.False(t, friends)

	list, err := queries.ListFriends(ctx, user1)
	require.NoError(t, err)
	assert.Empty(t, list)
}
