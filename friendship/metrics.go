package friendship

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	opAddFriend    = "add_friend"
	opAccept       = "accept"
	opReject       = "reject"
	opRemoveFriend = "remove_friend"
)

// Metrics counts lifecycle operations by outcome
type Metrics struct {
	operations *prometheus.CounterVec
}

// NewMetrics creates the counters and registers them with reg when reg is
// not nil
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "friendgraph",
			Subsystem: "friendship",
			Name:      "operations_total",
			Help:      "Friend request lifecycle operations by operation and outcome.",
		}, []string{"operation", "outcome"}),
	}
	if reg != nil {
		reg.MustRegister(m.operations)
	}
	return m
}

func (m *Metrics) observe(op string, err error) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(op, outcome(err)).Inc()
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrSelfRequest):
		return "self_request"
	case errors.Is(err, ErrAlreadyFriends):
		return "already_friends"
	case errors.Is(err, ErrDuplicatePending):
		return "duplicate_pending"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrConflict):
		return "conflict"
	default:
		return "error"
	}
}
