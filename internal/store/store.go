// Package store provides the in-memory entity cache that is the single
// source of truth read by every view. It is keyed to the active identity and
// mutated only through its own operations: Load, Apply, Reconcile, Clear.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/jonathan/applypilot/internal/types"
)

// Fetcher performs one remote bulk read of all rows of a kind owned by the
// given identity.
type Fetcher func(ctx context.Context, owner types.Identity) ([]types.Row, error)

// revision orders competing updates to the same row. ts is the row's
// last-modified timestamp when the backend supplies one; seq is the store's
// arrival counter, used as the tie-breaker and as the fallback when
// timestamps are missing. Equal timestamps mean the later arrival wins.
type revision struct {
	ts  time.Time
	seq uint64
}

// isStale reports whether an incoming revision is strictly older than the
// cached one. A zero incoming timestamp falls back to arrival order and is
// never considered stale.
func (cached revision) isStale(incoming time.Time) bool {
	if incoming.IsZero() || cached.ts.IsZero() {
		return false
	}
	return incoming.Before(cached.ts)
}

// EntityStore caches the current identity's entities per kind.
type EntityStore struct {
	log zerolog.Logger

	mu       sync.RWMutex
	identity types.Identity
	gen      uint64
	rows     map[types.Kind]map[uuid.UUID]types.Row
	// revs outlives row deletion: a tombstone entry keeps a delete's revision
	// around so a slower load or a stale feed event cannot resurrect the row.
	revs map[types.Kind]map[uuid.UUID]revision
	seq  uint64

	flight singleflight.Group
}

// New creates an empty store with no active identity.
func New(log zerolog.Logger) *EntityStore {
	s := &EntityStore{log: log.With().Str("component", "store").Logger()}
	s.reset()
	return s
}

func (s *EntityStore) reset() {
	s.rows = make(map[types.Kind]map[uuid.UUID]types.Row)
	s.revs = make(map[types.Kind]map[uuid.UUID]revision)
	for _, k := range types.Kinds() {
		s.rows[k] = make(map[uuid.UUID]types.Row)
		s.revs[k] = make(map[uuid.UUID]revision)
	}
}

// Activate evicts all cached state and binds the store to a new identity.
func (s *EntityStore) Activate(id types.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity = id
	s.gen++
	s.reset()
}

// Clear evicts all cached state. Invoked on identity loss.
func (s *EntityStore) Clear() {
	s.Activate(types.NoIdentity)
}

// Identity returns the identity the cache is currently bound to.
func (s *EntityStore) Identity() types.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity
}

// Load replaces the cached rows for kind with a fresh remote read. Concurrent
// loads for the same kind and identity are coalesced into one fetch. A load
// whose identity was deactivated before it resolved is silently dropped, and
// rows older than an already-reconciled delete or update do not win.
func (s *EntityStore) Load(ctx context.Context, kind types.Kind, fetch Fetcher) error {
	s.mu.RLock()
	owner := s.identity
	gen := s.gen
	startSeq := s.seq
	s.mu.RUnlock()

	if owner.IsZero() {
		return nil
	}

	started := time.Now()
	key := fmt.Sprintf("%d:%s", gen, kind)
	rows, err, _ := s.flight.Do(key, func() (any, error) {
		return fetch(ctx, owner)
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		s.log.Debug().Str("kind", string(kind)).Msg("dropping load result for deactivated identity")
		return nil
	}

	fetched := make(map[uuid.UUID]bool)
	for _, row := range rows.([]types.Row) {
		fetched[row.EntityID()] = true
		s.put(kind, row)
	}
	// Rows the backend no longer returns are gone, unless something newer
	// than this load already put them there.
	for id, rev := range s.revs[kind] {
		if fetched[id] || rev.seq > startSeq || rev.ts.After(started) {
			continue
		}
		delete(s.rows[kind], id)
	}
	return nil
}

// Apply overwrites a single entity after a successful local write. Local
// writes always win over the cached value (last local write wins).
func (s *EntityStore) Apply(row types.Row) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity.IsZero() {
		return
	}
	kind := row.EntityKind()
	s.seq++
	s.rows[kind][row.EntityID()] = row
	s.revs[kind][row.EntityID()] = revision{ts: row.ModifiedAt(), seq: s.seq}
}

// Reconcile merges one inbound change-feed event. It returns false when the
// event is a stale duplicate and was discarded; discards are routine, never
// errors.
func (s *EntityStore) Reconcile(ev types.ChangeEvent) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.identity.IsZero() || !ev.Kind.Valid() {
		return false
	}
	cached, known := s.revs[ev.Kind][ev.RowID]
	if known && cached.isStale(ev.At) {
		s.log.Debug().
			Str("kind", string(ev.Kind)).
			Str("row", ev.RowID.String()).
			Msg("discarding stale change event")
		return false
	}

	s.seq++
	rev := revision{ts: ev.At, seq: s.seq}

	switch ev.Op {
	case types.OpDelete:
		delete(s.rows[ev.Kind], ev.RowID)
		s.revs[ev.Kind][ev.RowID] = rev
	case types.OpInsert, types.OpUpdate:
		if ev.Row == nil {
			return false
		}
		s.rows[ev.Kind][ev.RowID] = ev.Row
		s.revs[ev.Kind][ev.RowID] = rev
	default:
		return false
	}
	return true
}

// put inserts a loaded row through the same revision guard Reconcile uses.
// Caller holds the lock.
func (s *EntityStore) put(kind types.Kind, row types.Row) {
	id := row.EntityID()
	cached, known := s.revs[kind][id]
	if known {
		if cached.isStale(row.ModifiedAt()) {
			return
		}
		if _, present := s.rows[kind][id]; !present {
			// Tombstone: only a strictly newer row image resurrects the row.
			if cached.ts.IsZero() || !row.ModifiedAt().After(cached.ts) {
				return
			}
		}
	}
	s.seq++
	s.rows[kind][id] = row
	s.revs[kind][id] = revision{ts: row.ModifiedAt(), seq: s.seq}
}

// Profile returns the cached profile, if any.
func (s *EntityStore) Profile() (types.Profile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, row := range s.rows[types.KindProfile] {
		if p, ok := row.(types.Profile); ok {
			return p, true
		}
	}
	return types.Profile{}, false
}

// Resumes returns all cached resume rows, most recent first.
func (s *EntityStore) Resumes() []types.Resume {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.Resume, 0, len(s.rows[types.KindResume]))
	for _, row := range s.rows[types.KindResume] {
		if r, ok := row.(types.Resume); ok {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// CurrentResume returns the most recently created resume, if any. Historical
// rows are tolerated; only the newest one is current.
func (s *EntityStore) CurrentResume() (types.Resume, bool) {
	resumes := s.Resumes()
	if len(resumes) == 0 {
		return types.Resume{}, false
	}
	return resumes[0], true
}

// Applications returns all cached applications, oldest first.
func (s *EntityStore) Applications() []types.Application {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.Application, 0, len(s.rows[types.KindApplication]))
	for _, row := range s.rows[types.KindApplication] {
		if a, ok := row.(types.Application); ok {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Wishlist returns all cached wishlist items in creation order.
func (s *EntityStore) Wishlist() []types.WishlistItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.WishlistItem, 0, len(s.rows[types.KindWishlistItem]))
	for _, row := range s.rows[types.KindWishlistItem] {
		if w, ok := row.(types.WishlistItem); ok {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}
