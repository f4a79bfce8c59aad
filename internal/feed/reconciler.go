// Package feed subscribes to the backend's realtime change feed and merges
// inbound events into the entity store under the store's revision rules.
package feed

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/jonathan/applypilot/internal/store"
	"github.com/jonathan/applypilot/internal/types"
)

// Transport is the push-subscription collaborator. One subscription covers
// one (identity, kind) pair; the handler receives raw envelope payloads.
type Transport interface {
	Subscribe(ctx context.Context, owner types.Identity, kind types.Kind, handler func(payload []byte)) (Subscription, error)
}

// Subscription is an open push channel that can be torn down.
type Subscription interface {
	Unsubscribe() error
}

// Reconciler opens change-feed subscriptions for an identity and applies
// their events to the store. Events that lose the store's revision check are
// stale duplicates and are dropped silently.
type Reconciler struct {
	transport Transport
	store     *store.EntityStore
	log       zerolog.Logger
}

// NewReconciler creates a reconciler over the given transport and store.
func NewReconciler(transport Transport, st *store.EntityStore, log zerolog.Logger) *Reconciler {
	return &Reconciler{
		transport: transport,
		store:     st,
		log:       log.With().Str("component", "feed").Logger(),
	}
}

// Attach opens one subscription per entity kind for the identity and returns
// the scope holding them. The caller must Close the scope when the identity
// deactivates; events delivered after Close, or for a different identity than
// the store's current one, are ignored.
func (r *Reconciler) Attach(ctx context.Context, owner types.Identity) (*Scope, error) {
	if owner.IsZero() {
		return nil, fmt.Errorf("cannot attach feed without an identity")
	}

	scope := &Scope{owner: owner}
	for _, kind := range types.Kinds() {
		sub, err := r.transport.Subscribe(ctx, owner, kind, func(payload []byte) {
			r.handle(scope, payload)
		})
		if err != nil {
			scope.Close()
			return nil, fmt.Errorf("failed to subscribe %s feed: %w", kind, err)
		}
		scope.subs = append(scope.subs, sub)
	}

	r.log.Info().Str("identity", owner.String()).Int("subscriptions", len(scope.subs)).Msg("change feed attached")
	return scope, nil
}

func (r *Reconciler) handle(scope *Scope, payload []byte) {
	if scope.closed() {
		return
	}
	if r.store.Identity() != scope.owner {
		// Stale subscription delivering into a newer identity's cache.
		return
	}

	ev, err := DecodeEnvelope(payload)
	if err != nil {
		r.log.Warn().Err(err).Msg("dropping malformed change event")
		return
	}
	if !ownedBy(ev, scope.owner) {
		r.log.Warn().Str("kind", string(ev.Kind)).Msg("dropping change event for another identity")
		return
	}

	if applied := r.store.Reconcile(ev); applied {
		r.log.Debug().
			Str("op", string(ev.Op)).
			Str("kind", string(ev.Kind)).
			Str("row", ev.RowID.String()).
			Msg("reconciled change event")
	}
}

// ownedBy checks the row image's owner against the subscription's identity.
// Delete events carry no image and are trusted to the channel scope.
func ownedBy(ev types.ChangeEvent, owner types.Identity) bool {
	switch row := ev.Row.(type) {
	case nil:
		return true
	case types.Profile:
		return row.ID == owner
	case types.Resume:
		return row.UserID == owner
	case types.Application:
		return row.UserID == owner
	case types.WishlistItem:
		return row.UserID == owner
	default:
		return false
	}
}

// Scope holds the open subscriptions for one identity activation. Close
// releases them exactly once.
type Scope struct {
	owner types.Identity
	subs  []Subscription

	mu   sync.Mutex
	done bool
}

// Close tears down every subscription in the scope. Safe to call more than
// once; only the first call unsubscribes.
func (s *Scope) Close() {
	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		return
	}
	s.done = true
	s.mu.Unlock()

	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
}

func (s *Scope) closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}
