package handler

import (
	"context"
	"net/http"
	"sync"

	"github.com/sirupsen/logrus"

	"friendgraph/app"
	"friendgraph/config"
)

var (
	once     sync.Once
	instance *app.App
	initErr  error
)

// Handler is the serverless function entry point for Vercel. The service
// is wired on the first invocation and reused while the instance is warm.
func Handler(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		cfg, err := config.FromEnv()
		if err != nil {
			initErr = err
			return
		}
		cfg.ConfigureLogging()

		instance, initErr = app.New(context.Background(), cfg)
		if initErr != nil {
			return
		}
		// hub lives as long as the warm instance
		go instance.Hub.Run(context.Background())
	})

	if initErr != nil {
		logrus.WithError(initErr).Error("Serverless init failed")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Service unavailable"}`))
		return
	}

	instance.Handler.ServeHTTP(w, r)
}
