package models

import "time"

// RequestStatus represents the state of a friend request
type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusAccepted RequestStatus = "accepted"
	RequestStatusRejected RequestStatus = "rejected"
)

// Valid reports whether s is one of the known statuses
func (s RequestStatus) Valid() bool {
	switch s {
	case RequestStatusPending, RequestStatusAccepted, RequestStatusRejected:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed from s
func (s RequestStatus) Terminal() bool {
	return s == RequestStatusAccepted || s == RequestStatusRejected
}

// FriendRequest is a directional proposal from one user to another
type FriendRequest struct {
	ID          int64         `json:"id"`
	FromUser    int64         `json:"from_user"`
	ToUser      int64         `json:"to_user"`
	Message     string        `json:"message"`
	Status      RequestStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	RespondedAt *time.Time    `json:"responded_at,omitempty"`
}

// Involves reports whether userID is the sender or the recipient
func (r *FriendRequest) Involves(userID int64) bool {
	return r.FromUser == userID || r.ToUser == userID
}

// FriendEdge is the symmetric friendship between two users.
// UserA is always the smaller id.
type FriendEdge struct {
	UserA     int64     `json:"user_a"`
	UserB     int64     `json:"user_b"`
	CreatedAt time.Time `json:"created_at"`
}

// NewFriendEdge normalizes the pair so (a, b) and (b, a) produce the same edge
func NewFriendEdge(a, b int64, createdAt time.Time) FriendEdge {
	low, high := OrderedPair(a, b)
	return FriendEdge{UserA: low, UserB: high, CreatedAt: createdAt}
}

// OrderedPair returns the two ids smallest first
func OrderedPair(a, b int64) (int64, int64) {
	if a > b {
		return b, a
	}
	return a, b
}
