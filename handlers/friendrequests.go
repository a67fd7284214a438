package handlers

import (
	"net/http"
)

// GetFriendRequest returns one friend request the current user sent or received
func (h *Handler) GetFriendRequest(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	requestID, err := pathID(r, "id")
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "Invalid request ID")
		return
	}

	req, err := h.engine.Request(r.Context(), requestID, user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.writeRequest(w, r, http.StatusOK, req)
}

// AcceptFriendRequest accepts a friend request addressed to the current user
func (h *Handler) AcceptFriendRequest(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	requestID, err := pathID(r, "id")
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "Invalid request ID")
		return
	}

	if _, err := h.engine.Accept(r.Context(), requestID, user.ID); err != nil {
		writeError(w, r, err)
		return
	}

	req, err := h.engine.Request(r.Context(), requestID, user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.writeRequest(w, r, http.StatusCreated, req)
}

// RejectFriendRequest rejects a friend request addressed to the current user
func (h *Handler) RejectFriendRequest(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	requestID, err := pathID(r, "id")
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "Invalid request ID")
		return
	}

	req, err := h.engine.Reject(r.Context(), requestID, user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.writeRequest(w, r, http.StatusCreated, req)
}
