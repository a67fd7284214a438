package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"friendgraph/database"
	"friendgraph/models"
	"friendgraph/serializer"
)

type addFriendRequest struct {
	UserID  int64  `json:"user_id"`
	Message string `json:"message"`
}

// decodeAddFriend accepts a JSON body or form fields
func decodeAddFriend(r *http.Request) (addFriendRequest, error) {
	var req addFriendRequest

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		err := json.NewDecoder(r.Body).Decode(&req)
		return req, err
	}

	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			return req, err
		}
	} else if err := r.ParseForm(); err != nil {
		return req, err
	}

	if v := strings.TrimSpace(r.FormValue("user_id")); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return req, err
		}
		req.UserID = id
	}
	req.Message = r.FormValue("message")
	return req, nil
}

// GetFriends returns all friends for the current user
func (h *Handler) GetFriends(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	friends, err := h.queries.ListFriends(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	rendered, err := serializer.Users(r.Context(), h.renderer, friends)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, rendered)
}

// AddFriend sends a friend request
func (h *Handler) AddFriend(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	req, err := decodeAddFriend(r)
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.UserID <= 0 {
		writeErrorMessage(w, http.StatusBadRequest, "user_id is required")
		return
	}

	// The recipient must be a known user
	if _, err := h.users.GetUserByID(r.Context(), req.UserID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeErrorMessage(w, http.StatusNotFound, "User not found")
			return
		}
		writeError(w, r, err)
		return
	}

	created, err := h.engine.AddFriend(r.Context(), user.ID, req.UserID, req.Message)
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.writeRequest(w, r, http.StatusCreated, created)
}

// RemoveFriend removes a friend
func (h *Handler) RemoveFriend(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	friendID, err := pathID(r, "id")
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "Invalid friend ID")
		return
	}

	if err := h.engine.RemoveFriend(r.Context(), user.ID, friendID); err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetFriendRequests returns pending friend requests addressed to the current user
func (h *Handler) GetFriendRequests(w http.ResponseWriter, r *http.Request) {
	h.listRequests(w, r, h.queries.ListIncomingRequests)
}

// GetSentFriendRequests returns pending friend requests the current user sent
func (h *Handler) GetSentFriendRequests(w http.ResponseWriter, r *http.Request) {
	h.listRequests(w, r, h.queries.ListSentRequests)
}

// GetRejectedFriendRequests returns friend requests the current user rejected
func (h *Handler) GetRejectedFriendRequests(w http.ResponseWriter, r *http.Request) {
	h.listRequests(w, r, h.queries.ListRejectedRequests)
}

type requestLister func(ctx context.Context, user int64) ([]models.FriendRequest, error)

func (h *Handler) listRequests(w http.ResponseWriter, r *http.Request, list requestLister) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	requests, err := list(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	rendered, err := serializer.Requests(r.Context(), h.renderer, requests)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, rendered)
}

func (h *Handler) writeRequest(w http.ResponseWriter, r *http.Request, status int, req *models.FriendRequest) {
	rendered, err := serializer.Request(r.Context(), h.renderer, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, status, rendered)
}
