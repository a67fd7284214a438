package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"friendgraph/friendship"
)

func TestDecodeAddFriend(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/friends/", strings.NewReader(`{"user_id": 7, "message": "Hi there!"}`))
		r.Header.Set("Content-Type", "application/json; charset=utf-8")

		req, err := decodeAddFriend(r)
		require.NoError(t, err)
		assert.Equal(t, int64(7), req.UserID)
		assert.Equal(t, "Hi there!", req.Message)
	})

	t.Run("urlencoded", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/friends/", strings.NewReader("user_id=8&message=hey"))
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		req, err := decodeAddFriend(r)
		require.NoError(t, err)
		assert.Equal(t, int64(8), req.UserID)
		assert.Equal(t, "hey", req.Message)
	})

	t.Run("multipart", func(t *testing.T) {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		require.NoError(t, mw.WriteField("user_id", "9"))
		require.NoError(t, mw.WriteField("message", "Hi there!"))
		require.NoError(t, mw.Close())

		r := httptest.NewRequest(http.MethodPost, "/friends/", &body)
		r.Header.Set("Content-Type", mw.FormDataContentType())

		req, err := decodeAddFriend(r)
		require.NoError(t, err)
		assert.Equal(t, int64(9), req.UserID)
		assert.Equal(t, "Hi there!", req.Message)
	})

	t.Run("bad id", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/friends/", strings.NewReader("user_id=abc"))
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		_, err := decodeAddFriend(r)
		assert.Error(t, err)
	})
}

func TestWriteError(t *testing.T) {
	testCases := []struct {
		err  error
		want int
	}{
		{friendship.ErrSelfRequest, http.StatusBadRequest},
		{friendship.ErrAlreadyFriends, http.StatusConflict},
		{fmt.Errorf("%w: %w", friendship.ErrDuplicatePending, friendship.ErrConflict), http.StatusConflict},
		{friendship.ErrUnauthorized, http.StatusForbidden},
		{friendship.ErrInvalidState, http.StatusConflict},
		{friendship.ErrNotFound, http.StatusNotFound},
		{friendship.ErrConflict, http.StatusConflict},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}

	for _, tc := range testCases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeError(rec, httptest.NewRequest(http.MethodGet, "/", nil), tc.err)
			assert.Equal(t, tc.want, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		})
	}
}

func TestWriteErrorCanceled(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, httptest.NewRequest(http.MethodGet, "/", nil), fmt.Errorf("list friends: %w", context.Canceled))

	assert.Equal(t, statusClientClosedRequest, rec.Code)
	assert.Empty(t, rec.Body.String())
}

type downDB struct{}

func (downDB) Ping(context.Context) error { return errors.New("connection refused") }

func TestHealthUnhealthy(t *testing.T) {
	h := New(Deps{DB: downDB{}})

	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
