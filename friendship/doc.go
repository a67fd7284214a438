// Package friendship implements the friend-request lifecycle and the
// read model over the social graph.
//
// # Lifecycle
//
// A request starts pending and is answered exactly once:
//
//	pending ──accept──▶ accepted   (creates the friend edge)
//	pending ──reject──▶ rejected   (no edge)
//
// Engine runs every mutation as one store transaction, so a reader never
// observes an accepted request without its edge. Only the recipient may
// answer a request. At most one pending request exists per pair of users,
// whichever of them sent it; the store enforces this with a unique index so
// concurrent AddFriend calls cannot both succeed.
//
//	engine := friendship.NewEngine(db, friendship.WithNotifier(hub))
//	req, err := engine.AddFriend(ctx, alice, bob, "hi")
//	edge, err := engine.Accept(ctx, req.ID, bob)
//
// A rejected request is history, not a block: the same pair may exchange
// a new request afterwards.
//
// # Queries
//
// Queries is read only. Request listings are ordered newest first.
//
// # Errors
//
// Failures are reported with the sentinel errors of this package and should
// be compared with errors.Is. ErrDuplicatePending also matches ErrConflict.
package friendship
