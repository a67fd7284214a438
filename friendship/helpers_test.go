package friendship

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"friendgraph/database"
	"friendgraph/models"
)

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(context.Background(), "sqlite3", filepath.Join(t.TempDir(), "friendship.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// newPostgresDB connects to DATABASE_URL when it names a PostgreSQL server
// and skips the test otherwise
func newPostgresDB(t *testing.T) *database.DB {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if !strings.HasPrefix(dsn, "postgres://") && !strings.HasPrefix(dsn, "postgresql://") {
		t.Skip("DATABASE_URL does not point at PostgreSQL")
	}
	db, err := database.Open(context.Background(), "postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// createUsers adds n users with names unique across runs, so a shared
// PostgreSQL database can be reused
func createUsers(t *testing.T, db *database.DB, n int) []int64 {
	t.Helper()
	run := uuid.NewString()[:8]
	ids := make([]int64, 0, n)
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("user%d-%s", i+1, run)
		user, err := db.CreateUser(context.Background(), name, name+"@example.com", "hash")
		require.NoError(t, err)
		ids = append(ids, user.ID)
	}
	return ids
}

// stepClock advances one second on every call
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func newStepClock() *stepClock {
	return &stepClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

type notification struct {
	UserID int64
	Msg    models.WebSocketMessage
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notification
}

func (n *recordingNotifier) Notify(userID int64, msg models.WebSocketMessage) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification{UserID: userID, Msg: msg})
}

func (n *recordingNotifier) all() []notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notification(nil), n.sent...)
}
