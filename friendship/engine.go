package friendship

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"friendgraph/database"
	"friendgraph/models"
)

// errDuplicatePending matches both ErrDuplicatePending and ErrConflict.
var errDuplicatePending = fmt.Errorf("%w: %w", ErrDuplicatePending, ErrConflict)

// Engine enforces the friend request state machine
type Engine struct {
	store    database.Friendships
	notifier Notifier
	metrics  *Metrics
	clock    TimeProvider
}

// Option configures an Engine
type Option func(*Engine)

// WithNotifier publishes committed lifecycle events through n
func WithNotifier(n Notifier) Option {
	return func(e *Engine) {
		if n != nil {
			e.notifier = n
		}
	}
}

// WithMetrics records operation outcomes in m
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithTimeProvider overrides the clock used for created_at / responded_at
func WithTimeProvider(tp TimeProvider) Option {
	return func(e *Engine) {
		if tp != nil {
			e.clock = tp
		}
	}
}

// NewEngine creates an Engine on top of store
func NewEngine(store database.Friendships, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		notifier: nopNotifier{},
		clock:    systemClock{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) now() time.Time {
	return e.clock.Now().UTC()
}

// AddFriend opens a pending request from sender to recipient
func (e *Engine) AddFriend(ctx context.Context, sender, recipient int64, message string) (_ *models.FriendRequest, err error) {
	defer func() { e.metrics.observe(opAddFriend, err) }()

	if sender == recipient {
		return nil, ErrSelfRequest
	}

	req := &models.FriendRequest{
		FromUser:  sender,
		ToUser:    recipient,
		Message:   message,
		CreatedAt: e.now(),
	}

	err = e.store.WithTx(ctx, func(tx database.FriendshipTx) error {
		if err := tx.LockPair(ctx, sender, recipient); err != nil {
			return err
		}
		friends, err := tx.EdgeExists(ctx, sender, recipient)
		if err != nil {
			return err
		}
		if friends {
			return ErrAlreadyFriends
		}

		_, err = tx.PendingBetween(ctx, sender, recipient)
		switch {
		case err == nil:
			return errDuplicatePending
		case !errors.Is(err, ErrNotFound):
			return err
		}

		if _, err := tx.SaveRequest(ctx, req); err != nil {
			if errors.Is(err, ErrConflict) {
				return errDuplicatePending
			}
			return err
		}
		return nil
	})
	if err != nil {
		logFailure("AddFriend", err, logrus.Fields{"from_user": sender, "to_user": recipient})
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"function":   "AddFriend",
		"request_id": req.ID,
		"from_user":  sender,
		"to_user":    recipient,
	}).Info("Friend request created")

	e.notifier.Notify(recipient, models.WebSocketMessage{
		Type:    models.EventFriendRequest,
		Payload: req,
	})
	return req, nil
}

// Accept answers a pending request on behalf of its recipient and creates
// the friend edge in the same transaction
func (e *Engine) Accept(ctx context.Context, requestID, actingUser int64) (_ *models.FriendEdge, err error) {
	defer func() { e.metrics.observe(opAccept, err) }()

	now := e.now()
	var req *models.FriendRequest
	err = e.store.WithTx(ctx, func(tx database.FriendshipTx) error {
		answered, err := answer(ctx, tx, requestID, actingUser, models.RequestStatusAccepted, now)
		if err != nil {
			return err
		}
		req = answered
		return tx.AddEdge(ctx, answered.FromUser, answered.ToUser, now)
	})
	if err != nil {
		logFailure("Accept", err, logrus.Fields{"request_id": requestID, "user_id": actingUser})
		return nil, err
	}

	edge := models.NewFriendEdge(req.FromUser, req.ToUser, now)

	logrus.WithFields(logrus.Fields{
		"function":   "Accept",
		"request_id": req.ID,
		"from_user":  req.FromUser,
		"to_user":    req.ToUser,
	}).Info("Friend request accepted")

	e.notifier.Notify(req.FromUser, models.WebSocketMessage{
		Type:    models.EventFriendAccepted,
		Payload: req,
	})
	return &edge, nil
}

// Reject answers a pending request on behalf of its recipient. No edge is
// created.
func (e *Engine) Reject(ctx context.Context, requestID, actingUser int64) (_ *models.FriendRequest, err error) {
	defer func() { e.metrics.observe(opReject, err) }()

	now := e.now()
	var req *models.FriendRequest
	err = e.store.WithTx(ctx, func(tx database.FriendshipTx) error {
		answered, err := answer(ctx, tx, requestID, actingUser, models.RequestStatusRejected, now)
		if err != nil {
			return err
		}
		req = answered
		return nil
	})
	if err != nil {
		logFailure("Reject", err, logrus.Fields{"request_id": requestID, "user_id": actingUser})
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"function":   "Reject",
		"request_id": req.ID,
		"from_user":  req.FromUser,
		"to_user":    req.ToUser,
	}).Info("Friend request rejected")

	e.notifier.Notify(req.FromUser, models.WebSocketMessage{
		Type:    models.EventFriendRejected,
		Payload: req,
	})
	return req, nil
}

func answer(ctx context.Context, tx database.FriendshipTx, requestID, actingUser int64, status models.RequestStatus, at time.Time) (*models.FriendRequest, error) {
	req, err := tx.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.ToUser != actingUser {
		return nil, ErrUnauthorized
	}
	if err := tx.LockPair(ctx, req.FromUser, req.ToUser); err != nil {
		return nil, err
	}
	if req.Status != models.RequestStatusPending {
		return nil, ErrInvalidState
	}
	if err := tx.UpdateRequestStatus(ctx, requestID, status, at); err != nil {
		return nil, err
	}
	req.Status = status
	req.RespondedAt = &at
	return req, nil
}

// AreFriends reports whether a and b share a friend edge
func (e *Engine) AreFriends(ctx context.Context, a, b int64) (bool, error) {
	if a == b {
		return false, nil
	}
	return e.store.EdgeExists(ctx, a, b)
}

// RemoveFriend deletes the edge between user and friend. Past requests are
// kept, so the two may send each other a new request later.
func (e *Engine) RemoveFriend(ctx context.Context, user, friend int64) (err error) {
	defer func() { e.metrics.observe(opRemoveFriend, err) }()

	err = e.store.WithTx(ctx, func(tx database.FriendshipTx) error {
		if err := tx.LockPair(ctx, user, friend); err != nil {
			return err
		}
		removed, err := tx.RemoveEdge(ctx, user, friend)
		if err != nil {
			return err
		}
		if !removed {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		logFailure("RemoveFriend", err, logrus.Fields{"user_id": user, "friend_id": friend})
		return err
	}

	logrus.WithFields(logrus.Fields{
		"function":  "RemoveFriend",
		"user_id":   user,
		"friend_id": friend,
	}).Info("Friend removed")

	e.notifier.Notify(friend, models.WebSocketMessage{
		Type: models.EventFriendRemoved,
		Payload: map[string]interface{}{
			"user_id": user,
		},
	})
	return nil
}

// Request returns a single request if actingUser sent or received it.
// Requests of other users are reported as not found.
func (e *Engine) Request(ctx context.Context, requestID, actingUser int64) (*models.FriendRequest, error) {
	req, err := e.store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !req.Involves(actingUser) {
		return nil, ErrNotFound
	}
	return req, nil
}

func logFailure(function string, err error, fields logrus.Fields) {
	fields["function"] = function
	fields["error"] = err.Error()
	entry := logrus.WithFields(fields)
	if isDomainError(err) {
		entry.Debug("Friendship operation refused")
		return
	}
	entry.Error("Friendship operation failed")
}

func isDomainError(err error) bool {
	for _, target := range []error{
		ErrSelfRequest, ErrAlreadyFriends, ErrDuplicatePending, ErrUnauthorized,
		ErrNotFound, ErrInvalidState, ErrConflict,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
