// Package app wires the store, the friendship core and the HTTP surface
// into one handler. main and the serverless entry point both build on it.
package app

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"friendgraph/config"
	"friendgraph/database"
	"friendgraph/friendship"
	"friendgraph/handlers"
	"friendgraph/middleware"
	"friendgraph/serializer"
)

// sessionSweepInterval is how often expired sessions are purged
const sessionSweepInterval = time.Hour

// App is a fully wired service
type App struct {
	Handler  http.Handler
	DB       *database.DB
	Hub      *handlers.Hub
	Engine   *friendship.Engine
	Queries  *friendship.Queries
	Registry *prometheus.Registry
}

// New opens the configured database and wires the service on top of it
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	db, err := database.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	a, err := NewWithDB(db, cfg)
	if err != nil {
		db.Close()
		return nil, err
	}
	return a, nil
}

// NewWithDB wires the service on an already opened database
func NewWithDB(db *database.DB, cfg *config.Config) (*App, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	queries := friendship.NewQueries(db)
	hub := handlers.NewHub(queries.ListFriends)

	renderer, err := serializer.New(cfg.UserSerializer, db, hub)
	if err != nil {
		return nil, fmt.Errorf("user serializer: %w", err)
	}

	engine := friendship.NewEngine(db,
		friendship.WithNotifier(hub),
		friendship.WithMetrics(friendship.NewMetrics(registry)),
	)

	h := handlers.New(handlers.Deps{
		Engine:     engine,
		Queries:    queries,
		Users:      db,
		Renderer:   renderer,
		Hub:        hub,
		DB:         db,
		SessionTTL: cfg.SessionTTL,
	})

	router := mux.NewRouter()
	router.Use(middleware.NewHTTPMetrics(registry).Middleware)
	registerRoutes(router, h, middleware.Auth(db))
	router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", middleware.RequestIDHeader},
		AllowCredentials: true,
	})

	return &App{
		Handler:  corsHandler.Handler(middleware.Logging(router)),
		DB:       db,
		Hub:      hub,
		Engine:   engine,
		Queries:  queries,
		Registry: registry,
	}, nil
}

func registerRoutes(r *mux.Router, h *handlers.Handler, auth func(http.Handler) http.Handler) {
	public := func(path string, fn http.HandlerFunc, methods ...string) {
		route(r, path, fn, methods...)
	}
	protect := func(path string, fn http.HandlerFunc, methods ...string) {
		route(r, path, auth(fn), methods...)
	}

	public("/health", h.Health, http.MethodGet)

	public("/auth/signup", h.Signup, http.MethodPost)
	public("/auth/login", h.Login, http.MethodPost)
	public("/auth/logout", h.Logout, http.MethodPost)
	protect("/auth/me", h.Me, http.MethodGet)

	protect("/friends/", h.GetFriends, http.MethodGet)
	protect("/friends/", h.AddFriend, http.MethodPost)
	protect("/friends/requests/", h.GetFriendRequests, http.MethodGet)
	protect("/friends/sent_requests/", h.GetSentFriendRequests, http.MethodGet)
	protect("/friends/rejected_requests/", h.GetRejectedFriendRequests, http.MethodGet)
	protect("/friends/{id:[0-9]+}/", h.RemoveFriend, http.MethodDelete)

	protect("/friendrequests/{id:[0-9]+}/", h.GetFriendRequest, http.MethodGet)
	protect("/friendrequests/{id:[0-9]+}/accept/", h.AcceptFriendRequest, http.MethodPost)
	protect("/friendrequests/{id:[0-9]+}/reject/", h.RejectFriendRequest, http.MethodPost)

	protect("/ws", h.HandleWebSocket, http.MethodGet)
}

// route registers path with and without its trailing slash
func route(r *mux.Router, path string, handler http.Handler, methods ...string) {
	r.Handle(path, handler).Methods(methods...)
	if trimmed := strings.TrimSuffix(path, "/"); trimmed != path && trimmed != "" {
		r.Handle(trimmed, handler).Methods(methods...)
	}
}

// Start runs the background workers until ctx is cancelled
func (a *App) Start(ctx context.Context) {
	go a.Hub.Run(ctx)
	go a.sweepSessions(ctx)
}

func (a *App) sweepSessions(ctx context.Context) {
	ticker := time.NewTicker(sessionSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := a.DB.DeleteExpiredSessions(ctx, time.Now())
			if err != nil {
				logrus.WithFields(logrus.Fields{
					"function": "sweepSessions",
					"error":    err.Error(),
				}).Warn("Failed to delete expired sessions")
				continue
			}
			if n > 0 {
				logrus.WithFields(logrus.Fields{
					"function": "sweepSessions",
					"deleted":  n,
				}).Info("Expired sessions deleted")
			}
		}
	}
}

// Close releases the database
func (a *App) Close() error {
	return a.DB.Close()
}
