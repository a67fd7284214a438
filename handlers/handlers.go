package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"friendgraph/database"
	"friendgraph/friendship"
	"friendgraph/middleware"
	"friendgraph/models"
	"friendgraph/serializer"
)

// UserStore is the identity side of the database used by the handlers
type UserStore interface {
	CreateUser(ctx context.Context, username, email, passwordHash string) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateSession(ctx context.Context, session *models.Session) error
	DeleteSession(ctx context.Context, sessionID string) error
}

// Pinger reports database health
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators of Handler
type Deps struct {
	Engine     *friendship.Engine
	Queries    *friendship.Queries
	Users      UserStore
	Renderer   serializer.Renderer
	Hub        *Hub
	DB         Pinger
	SessionTTL time.Duration
}

// Handler serves the HTTP API
type Handler struct {
	engine     *friendship.Engine
	queries    *friendship.Queries
	users      UserStore
	renderer   serializer.Renderer
	hub        *Hub
	db         Pinger
	sessionTTL time.Duration
}

// New creates a Handler
func New(deps Deps) *Handler {
	h := &Handler{
		engine:     deps.Engine,
		queries:    deps.Queries,
		users:      deps.Users,
		renderer:   deps.Renderer,
		hub:        deps.Hub,
		db:         deps.DB,
		sessionTTL: deps.SessionTTL,
	}
	if h.renderer == nil {
		h.renderer = serializer.IDRenderer{}
	}
	if h.sessionTTL <= 0 {
		h.sessionTTL = 7 * 24 * time.Hour
	}
	return h
}

// statusClientClosedRequest is nginx's non-standard code for a request the
// client abandoned
const statusClientClosedRequest = 499

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "writeJSON",
			"error":    err.Error(),
		}).Warn("Failed to encode response")
	}
}

func writeErrorMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeError maps domain errors to HTTP statuses
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, friendship.ErrSelfRequest):
		writeErrorMessage(w, http.StatusBadRequest, "You cannot add yourself as a friend")
	case errors.Is(err, friendship.ErrAlreadyFriends):
		writeErrorMessage(w, http.StatusConflict, "Already friends")
	case errors.Is(err, friendship.ErrDuplicatePending):
		writeErrorMessage(w, http.StatusConflict, "Friend request already pending")
	case errors.Is(err, friendship.ErrUnauthorized):
		writeErrorMessage(w, http.StatusForbidden, "Not allowed to answer this friend request")
	case errors.Is(err, friendship.ErrInvalidState):
		writeErrorMessage(w, http.StatusConflict, "Friend request was already answered")
	case errors.Is(err, friendship.ErrNotFound):
		writeErrorMessage(w, http.StatusNotFound, "Not found")
	case errors.Is(err, friendship.ErrConflict):
		writeErrorMessage(w, http.StatusConflict, "Conflict")
	case errors.Is(err, context.Canceled):
		// client went away; the status is only for the access log
		w.WriteHeader(statusClientClosedRequest)
	default:
		logrus.WithFields(logrus.Fields{
			"function": "writeError",
			"method":   r.Method,
			"path":     r.URL.Path,
			"error":    err.Error(),
		}).Error("Unhandled error")
		writeErrorMessage(w, http.StatusInternalServerError, "Internal server error")
	}
}

// currentUser returns the authenticated user or writes 401
func currentUser(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	user := middleware.GetUserFromContext(r)
	if user == nil {
		writeErrorMessage(w, http.StatusUnauthorized, "Unauthorized")
		return nil, false
	}
	return user, true
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}

// Health reports whether the service and its database are reachable
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		if err := h.db.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// HandleWebSocket attaches the caller to the realtime event stream
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	if h.hub == nil {
		writeErrorMessage(w, http.StatusServiceUnavailable, "Realtime events are disabled")
		return
	}
	h.hub.Serve(w, r, user.ID)
}

var _ UserStore = (*database.DB)(nil)
