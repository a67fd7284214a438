// Command seed fills a database with fake users and friend requests.
// Requests go through the lifecycle engine, so the seeded data obeys the
// same rules as data created over the API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"friendgraph/config"
	"friendgraph/database"
	"friendgraph/friendship"
)

const defaultPassword = "123456"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Invalid configuration")
	}
	cfg.ConfigureLogging()

	users := flag.Int("users", 20, "number of users to create")
	requests := flag.Int("requests", 60, "number of friend requests to attempt")
	acceptRatio := flag.Float64("accept", 0.5, "share of requests to accept")
	rejectRatio := flag.Float64("reject", 0.2, "share of requests to reject")
	seed := flag.Int64("seed", 0, "random seed (0 picks one)")
	flag.Parse()

	gofakeit.Seed(*seed)

	ctx := context.Background()
	db, err := database.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to open database")
	}
	defer db.Close()

	ids, err := seedUsers(ctx, db, *users)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to create users")
	}

	stats, err := seedRequests(ctx, friendship.NewEngine(db), ids, *requests, *acceptRatio, *rejectRatio)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to create friend requests")
	}

	logrus.WithFields(logrus.Fields{
		"users":    len(ids),
		"created":  stats.created,
		"accepted": stats.accepted,
		"rejected": stats.rejected,
		"skipped":  stats.skipped,
	}).Info("Seeding finished")
}

func seedUsers(ctx context.Context, db *database.DB, n int) ([]int64, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(defaultPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, n)
	for len(ids) < n {
		username := strings.ToLower(gofakeit.Username())
		if len(username) > 20 {
			username = username[:20]
		}
		email := fmt.Sprintf("%s.%d@%s", username, gofakeit.Number(1000, 9999), gofakeit.DomainName())

		user, err := db.CreateUser(ctx, username, email, string(hash))
		if errors.Is(err, database.ErrConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}
		ids = append(ids, user.ID)
	}
	return ids, nil
}

type seedStats struct {
	created, accepted, rejected, skipped int
}

func seedRequests(ctx context.Context, engine *friendship.Engine, ids []int64, n int, acceptRatio, rejectRatio float64) (seedStats, error) {
	var stats seedStats
	if len(ids) < 2 {
		return stats, nil
	}

	for i := 0; i < n; i++ {
		from := ids[gofakeit.Number(0, len(ids)-1)]
		to := ids[gofakeit.Number(0, len(ids)-1)]

		req, err := engine.AddFriend(ctx, from, to, gofakeit.Sentence(6))
		if isRefusal(err) {
			stats.skipped++
			continue
		}
		if err != nil {
			return stats, err
		}
		stats.created++

		switch roll := gofakeit.Float64Range(0, 1); {
		case roll < acceptRatio:
			if _, err := engine.Accept(ctx, req.ID, req.ToUser); err != nil {
				return stats, err
			}
			stats.accepted++
		case roll < acceptRatio+rejectRatio:
			if _, err := engine.Reject(ctx, req.ID, req.ToUser); err != nil {
				return stats, err
			}
			stats.rejected++
		}
	}
	return stats, nil
}

func isRefusal(err error) bool {
	return errors.Is(err, friendship.ErrSelfRequest) ||
		errors.Is(err, friendship.ErrAlreadyFriends) ||
		errors.Is(err, friendship.ErrDuplicatePending)
}
