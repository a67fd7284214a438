package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"friendgraph/models"
)

type contextKey string

const UserContextKey contextKey = "user"

// SessionCookie is the cookie carrying the session id
const SessionCookie = "session"

// SessionStore resolves a session id to its user
type SessionStore interface {
	GetSession(ctx context.Context, sessionID string, now time.Time) (*models.Session, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
}

// Auth checks for a valid session and adds the user to the context. The
// session id is read from the session cookie or an Authorization: Bearer
// header.
func Auth(store SessionStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID := SessionID(r)
			if sessionID == "" {
				unauthorized(w, "Unauthorized")
				return
			}

			session, err := store.GetSession(r.Context(), sessionID, time.Now())
			if err != nil {
				unauthorized(w, "Invalid session")
				return
			}

			user, err := store.GetUserByID(r.Context(), session.UserID)
			if err != nil {
				logrus.WithFields(logrus.Fields{
					"function": "Auth",
					"user_id":  session.UserID,
					"error":    err.Error(),
				}).Warn("Session refers to unknown user")
				unauthorized(w, "User not found")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// SessionID extracts the session id from the request, if any
func SessionID(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		return cookie.Value
	}
	return ""
}

// WithUser returns a copy of ctx carrying user
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, UserContextKey, user)
}

// GetUserFromContext retrieves the user from the request context
func GetUserFromContext(r *http.Request) *models.User {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		return nil
	}
	return user
}
