package friendship

import (
	"time"

	"friendgraph/models"
)

// Notifier delivers lifecycle events to a user. Implementations must not
// block.
type Notifier interface {
	Notify(userID int64, msg models.WebSocketMessage)
}

type nopNotifier struct{}

func (nopNotifier) Notify(int64, models.WebSocketMessage) {}

// TimeProvider abstracts time so tests can pin timestamps
type TimeProvider interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }
