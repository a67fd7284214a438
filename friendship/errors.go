package friendship

import (
	"errors"

	"friendgraph/database"
)

var (
	ErrSelfRequest      = errors.New("cannot send a friend request to yourself")
	ErrAlreadyFriends   = errors.New("already friends")
	ErrDuplicatePending = errors.New("friend request already pending")
	ErrUnauthorized     = errors.New("not allowed to act on this friend request")

	// Store errors, re-exported so callers only import this package.
	ErrNotFound     = database.ErrNotFound
	ErrInvalidState = database.ErrInvalidState
	ErrConflict     = database.ErrConflict
)
