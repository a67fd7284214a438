// Package serializer renders identity references in API output. The
// strategy is chosen once at startup by name and handed to the handlers.
package serializer

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"friendgraph/models"
)

// Strategy names accepted by New
const (
	StrategyID      = "id"
	StrategyProfile = "profile"
)

// Renderer turns user ids into their API representation. Ids missing from
// the returned map are rendered as the bare id.
type Renderer interface {
	Render(ctx context.Context, ids []int64) (map[int64]any, error)
}

// UserLookup loads users by id
type UserLookup interface {
	GetUsersByIDs(ctx context.Context, ids []int64) (map[int64]*models.User, error)
}

// Presence reports whether a user currently has a live connection
type Presence interface {
	IsUserOnline(userID int64) bool
}

// New resolves a strategy by name. users is required by the profile
// strategy; presence is optional.
func New(name string, users UserLookup, presence Presence) (Renderer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", StrategyID:
		return IDRenderer{}, nil
	case StrategyProfile:
		if users == nil {
			return nil, fmt.Errorf("serializer %q needs a user lookup", StrategyProfile)
		}
		return &ProfileRenderer{Users: users, Presence: presence}, nil
	}
	return nil, fmt.Errorf("unknown user serializer %q", name)
}

// IDRenderer renders every user as its id
type IDRenderer struct{}

func (IDRenderer) Render(_ context.Context, ids []int64) (map[int64]any, error) {
	out := make(map[int64]any, len(ids))
	for _, id := range ids {
		out[id] = id
	}
	return out, nil
}

// ProfileRenderer embeds the public user object
type ProfileRenderer struct {
	Users    UserLookup
	Presence Presence
}

func (p *ProfileRenderer) Render(ctx context.Context, ids []int64) (map[int64]any, error) {
	users, err := p.Users.GetUsersByIDs(ctx, unique(ids))
	if err != nil {
		return nil, err
	}
	out := make(map[int64]any, len(users))
	for id, user := range users {
		resp := user.ToResponse()
		if p.Presence != nil {
			resp.Online = p.Presence.IsUserOnline(id)
		}
		out[id] = resp
	}
	return out, nil
}

func unique(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func lookup(rendered map[int64]any, id int64) any {
	if v, ok := rendered[id]; ok {
		return v
	}
	return id
}

// FriendRequest is the API shape of a friend request
type FriendRequest struct {
	ID          int64                `json:"id"`
	FromUser    any                  `json:"from_user"`
	ToUser      any                  `json:"to_user"`
	Message     string               `json:"message"`
	Status      models.RequestStatus `json:"status"`
	CreatedAt   time.Time            `json:"created_at"`
	RespondedAt *time.Time           `json:"responded_at"`
}

// Requests renders requests in order. The result is never nil.
func Requests(ctx context.Context, r Renderer, reqs []models.FriendRequest) ([]FriendRequest, error) {
	ids := make([]int64, 0, 2*len(reqs))
	for _, req := range reqs {
		ids = append(ids, req.FromUser, req.ToUser)
	}
	rendered, err := r.Render(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]FriendRequest, 0, len(reqs))
	for _, req := range reqs {
		out = append(out, FriendRequest{
			ID:          req.ID,
			FromUser:    lookup(rendered, req.FromUser),
			ToUser:      lookup(rendered, req.ToUser),
			Message:     req.Message,
			Status:      req.Status,
			CreatedAt:   req.CreatedAt,
			RespondedAt: req.RespondedAt,
		})
	}
	return out, nil
}

// Request renders a single request
func Request(ctx context.Context, r Renderer, req *models.FriendRequest) (FriendRequest, error) {
	out, err := Requests(ctx, r, []models.FriendRequest{*req})
	if err != nil {
		return FriendRequest{}, err
	}
	return out[0], nil
}

// Users renders ids in order. The result is never nil.
func Users(ctx context.Context, r Renderer, ids []int64) ([]any, error) {
	rendered, err := r.Render(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]any, 0, len(ids))
	for _, id := range ids {
		out = append(out, lookup(rendered, id))
	}
	return out, nil
}
