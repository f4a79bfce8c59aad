// Package session tracks the current authenticated identity and publishes
// identity-change notifications to the rest of the sync core.
package session

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/jonathan/applypilot/internal/types"
)

// AuthClient is the authentication collaborator the tracker consumes. The
// core never looks inside the auth protocol; it only needs the current
// identity and push notifications when it changes.
type AuthClient interface {
	CurrentIdentity(ctx context.Context) (types.Identity, error)
	OnIdentityChange(fn func(types.Identity))
	EndSession(ctx context.Context) error
}

// Tracker owns the current identity. It fires at most one notification per
// actual identity transition.
type Tracker struct {
	auth AuthClient
	log  zerolog.Logger

	mu      sync.Mutex
	current types.Identity
	subs    map[int]func(types.Identity)
	nextSub int
}

// NewTracker creates a tracker and performs one blocking fetch of the ambient
// session. A failed fetch is not an error state: the identity is simply
// absent, the same as a true logout.
func NewTracker(ctx context.Context, auth AuthClient, log zerolog.Logger) *Tracker {
	t := &Tracker{
		auth: auth,
		log:  log.With().Str("component", "session").Logger(),
		subs: make(map[int]func(types.Identity)),
	}

	id, err := auth.CurrentIdentity(ctx)
	if err != nil {
		t.log.Warn().Err(err).Msg("initial identity fetch failed, treating as signed out")
		id = types.NoIdentity
	}
	t.current = id

	auth.OnIdentityChange(t.setIdentity)
	return t
}

// Current returns the current identity, or the zero identity when signed out.
func (t *Tracker) Current() types.Identity {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// OnChange registers fn to be called on every identity transition. The
// returned cancel func removes the registration.
func (t *Tracker) OnChange(fn func(types.Identity)) (cancel func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := t.nextSub
	t.nextSub++
	t.subs[key] = fn

	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		delete(t.subs, key)
	}
}

// EndSession signs out via the auth collaborator and clears the identity.
func (t *Tracker) EndSession(ctx context.Context) error {
	if err := t.auth.EndSession(ctx); err != nil {
		return err
	}
	t.setIdentity(types.NoIdentity)
	return nil
}

// setIdentity records the new identity and notifies subscribers. Repeated
// pushes of the same identity are deduplicated.
func (t *Tracker) setIdentity(id types.Identity) {
	t.mu.Lock()
	if id == t.current {
		t.mu.Unlock()
		return
	}
	t.current = id
	fns := make([]func(types.Identity), 0, len(t.subs))
	for _, fn := range t.subs {
		fns = append(fns, fn)
	}
	t.mu.Unlock()

	t.log.Info().Str("identity", id.String()).Msg("identity changed")
	for _, fn := range fns {
		fn(id)
	}
}
