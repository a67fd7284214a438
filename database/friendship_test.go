package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"friendgraph/models"
)

var baseTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func saveRequest(t *testing.T, db *DB, from, to int64, at time.Time) *models.FriendRequest {
	t.Helper()
	req := &models.FriendRequest{FromUser: from, ToUser: to, Message: "hi", CreatedAt: at}
	_, err := db.SaveRequest(context.Background(), req)
	require.NoError(t, err)
	return req
}

func TestSaveRequest(t *testing.T) {
	db := newTestDB(t)
	ids := createUsers(t, db, 2)
	ctx := context.Background()

	req := &models.FriendRequest{FromUser: ids[0], ToUser: ids[1], Message: "Hi there!", CreatedAt: baseTime}
	id, err := db.SaveRequest(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, id, req.ID)
	assert.Equal(t, models.RequestStatusPending, req.Status)

	got, err := db.GetRequest(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, ids[0], got.FromUser)
	assert.Equal(t, ids[1], got.ToUser)
	assert.Equal(t, "Hi there!", got.Message)
	assert.Equal(t, models.RequestStatusPending, got.Status)
	assert.True(t, baseTime.Equal(got.CreatedAt))
	assert.Nil(t, got.RespondedAt)
}

func TestSaveRequestConflictsOnPendingPair(t *testing.T) {
	db := newTestDB(t)
	ids := createUsers(t, db, 2)
	ctx := context.Background()

	saveRequest(t, db, ids[0], ids[1], baseTime)

	_, err := db.SaveRequest(ctx, &models.FriendRequest{FromUser: ids[0], ToUser: ids[1], CreatedAt: baseTime})
	assert.ErrorIs(t, err, ErrConflict, "same direction")

	_, err = db.SaveRequest(ctx, &models.FriendRequest{FromUser: ids[1], ToUser: ids[0], CreatedAt: baseTime})
	assert.ErrorIs(t, err, ErrConflict, "reverse direction")
}

func TestSaveRequestAllowedAfterAnswer(t *testing.T) {
	db := newTestDB(t)
	ids := createUsers(t, db, 2)
	ctx := context.Background()

	first := saveRequest(t, db, ids[0], ids[1], baseTime)
	require.NoError(t, db.UpdateRequestStatus(ctx, first.ID, models.RequestStatusRejected, baseTime.Add(time.Minute)))

	second := saveRequest(t, db, ids[1], ids[0], baseTime.Add(2*time.Minute))
	assert.NotEqual(t, first.ID, second.ID)
}

func TestGetRequestNotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetRequest(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPendingBetween(t *testing.T) {
	db := newTestDB(t)
	ids := createUsers(t, db, 3)
	ctx := context.Background()

	req := saveRequest(t, db, ids[0], ids[1], baseTime)

	got, err := db.PendingBetween(ctx, ids[1], ids[0])
	require.NoError(t, err)
	assert.Equal(t, req.ID, got.ID)

	_, err = db.PendingBetween(ctx, ids[0], ids[2])
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateRequestStatus(t *testing.T) {
	db := newTestDB(t)
	ids := createUsers(t, db, 2)
	ctx := context.Background()
	req := saveRequest(t, db, ids[0], ids[1], baseTime)

	t.Run("unknown id", func(t *testing.T) {
		err := db.UpdateRequestStatus(ctx, req.ID+100, models.RequestStatusAccepted, baseTime)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("pending is not a target", func(t *testing.T) {
		err := db.UpdateRequestStatus(ctx, req.ID, models.RequestStatusPending, baseTime)
		assert.ErrorIs(t, err, ErrInvalidState)
	})

	t.Run("accept", func(t *testing.T) {
		respondedAt := baseTime.Add(time.Hour)
		require.NoError(t, db.UpdateRequestStatus(ctx, req.ID, models.RequestStatusAccepted, respondedAt))

		got, err := db.GetRequest(ctx, req.ID)
		require.NoError(t, err)
		assert.Equal(t, models.RequestStatusAccepted, got.Status)
		require.NotNil(t, got.RespondedAt)
		assert.True(t, respondedAt.Equal(*got.RespondedAt))
	})

	t.Run("terminal states are immutable", func(t *testing.T) {
		err := db.UpdateRequestStatus(ctx, req.ID, models.RequestStatusRejected, baseTime)
		assert.ErrorIs(t, err, ErrInvalidState)

		got, err := db.GetRequest(ctx, req.ID)
		require.NoError(t, err)
		assert.Equal(t, models.RequestStatusAccepted, got.Status)
	})
}

func TestRequestsWhere(t *testing.T) {
	db := newTestDB(t)
	ids := createUsers(t, db, 4)
	ctx := context.Background()
	u1, u2, u3, u4 := ids[0], ids[1], ids[2], ids[3]

	older := saveRequest(t, db, u2, u1, baseTime)
	newer := saveRequest(t, db, u3, u1, baseTime.Add(time.Second))
	rejected := saveRequest(t, db, u4, u1, baseTime.Add(2*time.Second))
	require.NoError(t, db.UpdateRequestStatus(ctx, rejected.ID, models.RequestStatusRejected, baseTime.Add(time.Minute)))

	incoming, err := db.RequestsWhere(ctx, RequestFilter{ToUser: u1, Status: models.RequestStatusPending})
	require.NoError(t, err)
	require.Len(t, incoming, 2)
	assert.Equal(t, newer.ID, incoming[0].ID, "newest first")
	assert.Equal(t, older.ID, incoming[1].ID)

	sent, err := db.RequestsWhere(ctx, RequestFilter{FromUser: u2, Status: models.RequestStatusPending})
	require.NoError(t, err)
	require.Len(t, sent, 1)
	assert.Equal(t, u1, sent[0].ToUser)

	rejectedList, err := db.RequestsWhere(ctx, RequestFilter{ToUser: u1, Status: models.RequestStatusRejected})
	require.NoError(t, err)
	require.Len(t, rejectedList, 1)
	assert.Equal(t, rejected.ID, rejectedList[0].ID)

	all, err := db.RequestsWhere(ctx, RequestFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestRequestsWhereBreaksTiesByID(t *testing.T) {
	db := newTestDB(t)
	ids := createUsers(t, db, 3)

	first := saveRequest(t, db, ids[1], ids[0], baseTime)
	second := saveRequest(t, db, ids[2], ids[0], baseTime)

	got, err := db.RequestsWhere(context.Background(), RequestFilter{ToUser: ids[0]})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, second.ID, got[0].ID)
	assert.Equal(t, first.ID, got[1].ID)
}

func TestEdges(t *testing.T) {
	db := newTestDB(t)
	ids := createUsers(t, db, 3)
	ctx := context.Background()
	u1, u2, u3 := ids[0], ids[1], ids[2]

	require.NoError(t, db.AddEdge(ctx, u2, u1, baseTime))
	require.NoError(t, db.AddEdge(ctx, u1, u2, baseTime), "re-adding is a no-op")
	require.NoError(t, db.AddEdge(ctx, u1, u3, baseTime.Add(time.Second)))

	ok, err := db.EdgeExists(ctx, u1, u2)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = db.EdgeExists(ctx, u2, u1)
	require.NoError(t, err)
	assert.True(t, ok, "edges are symmetric")
	ok, err = db.EdgeExists(ctx, u2, u3)
	require.NoError(t, err)
	assert.False(t, ok)

	friends, err := db.EdgesOf(ctx, u1)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{u2, u3}, friends)

	friends, err = db.EdgesOf(ctx, u2)
	require.NoError(t, err)
	assert.Equal(t, []int64{u1}, friends)

	removed, err := db.RemoveEdge(ctx, u2, u1)
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = db.RemoveEdge(ctx, u2, u1)
	require.NoError(t, err)
	assert.False(t, removed)

	friends, err = db.EdgesOf(ctx, u2)
	require.NoError(t, err)
	assert.Empty(t, friends)
}

func TestWithTx(t *testing.T) {
	db := newTestDB(t)
	ids := createUsers(t, db, 2)
	ctx := context.Background()
	boom := errors.New("boom")

	err := db.WithTx(ctx, func(tx FriendshipTx) error {
		if err := tx.AddEdge(ctx, ids[0], ids[1], baseTime); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	ok, err := db.EdgeExists(ctx, ids[0], ids[1])
	require.NoError(t, err)
	assert.False(t, ok, "failed transaction leaves no edge")

	assert.Panics(t, func() {
		_ = db.WithTx(ctx, func(tx FriendshipTx) error {
			_ = tx.AddEdge(ctx, ids[0], ids[1], baseTime)
			panic("boom")
		})
	})
	ok, err = db.EdgeExists(ctx, ids[0], ids[1])
	require.NoError(t, err)
	assert.False(t, ok, "panicking transaction leaves no edge")

	err = db.WithTx(ctx, func(tx FriendshipTx) error {
		return tx.AddEdge(ctx, ids[0], ids[1], baseTime)
	})
	require.NoError(t, err)
	ok, err = db.EdgeExists(ctx, ids[0], ids[1])
	require.NoError(t, err)
	assert.True(t, ok)
}
