// Package syncer orchestrates the session lifecycle: on identity activation
// it cold-loads every entity kind and attaches the change feed; on identity
// loss it cancels in-flight work, tears down subscriptions, and clears the
// cache.
package syncer

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/applypilot/internal/feed"
	"github.com/jonathan/applypilot/internal/session"
	"github.com/jonathan/applypilot/internal/store"
	"github.com/jonathan/applypilot/internal/types"
)

// DataReader is the read side of the data collaborator, one bulk fetch per
// entity kind.
type DataReader interface {
	FetchProfile(ctx context.Context, owner types.Identity) (*types.Profile, error)
	FetchResumes(ctx context.Context, owner types.Identity) ([]types.Resume, error)
	FetchApplications(ctx context.Context, owner types.Identity) ([]types.Application, error)
	FetchWishlist(ctx context.Context, owner types.Identity) ([]types.WishlistItem, error)
}

// Coordinator drives the store and feed from session identity transitions.
type Coordinator struct {
	session *session.Tracker
	store   *store.EntityStore
	data    DataReader
	feed    *feed.Reconciler
	log     zerolog.Logger

	// OnSynced, when set, is called after a cold load for an identity
	// completes and its change feed is attached.
	OnSynced func(types.Identity)

	mu     sync.Mutex
	cancel context.CancelFunc
	scope  *feed.Scope
}

// NewCoordinator creates a coordinator over the given collaborators.
func NewCoordinator(sess *session.Tracker, st *store.EntityStore, data DataReader, rec *feed.Reconciler, log zerolog.Logger) *Coordinator {
	return &Coordinator{
		session: sess,
		store:   st,
		data:    data,
		feed:    rec,
		log:     log.With().Str("component", "syncer").Logger(),
	}
}

// Run activates the current identity, then follows identity transitions
// until ctx is done.
func (c *Coordinator) Run(ctx context.Context) error {
	unsubscribe := c.session.OnChange(func(id types.Identity) {
		c.activate(ctx, id)
	})
	defer unsubscribe()

	c.activate(ctx, c.session.Current())

	<-ctx.Done()
	c.deactivate()
	return ctx.Err()
}

// activate tears down the previous identity's work and starts syncing the
// new one. A zero identity just clears the cache.
func (c *Coordinator) activate(parent context.Context, id types.Identity) {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if c.scope != nil {
		c.scope.Close()
		c.scope = nil
	}
	if id.IsZero() {
		c.store.Clear()
		c.mu.Unlock()
		c.log.Info().Msg("identity cleared, cache evicted")
		return
	}

	ctx, cancel := context.WithCancel(parent)
	c.cancel = cancel
	c.store.Activate(id)
	c.mu.Unlock()

	go c.sync(ctx, id)
}

func (c *Coordinator) deactivate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if c.scope != nil {
		c.scope.Close()
		c.scope = nil
	}
}

// sync cold-loads all entity kinds in parallel, then attaches the change
// feed. A failed load is retryable by the next activation; it never crashes
// the process.
func (c *Coordinator) sync(ctx context.Context, id types.Identity) {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.store.Load(gctx, types.KindProfile, profileFetcher(c.data)) })
	g.Go(func() error { return c.store.Load(gctx, types.KindResume, resumeFetcher(c.data)) })
	g.Go(func() error { return c.store.Load(gctx, types.KindApplication, applicationFetcher(c.data)) })
	g.Go(func() error { return c.store.Load(gctx, types.KindWishlistItem, wishlistFetcher(c.data)) })
	if err := g.Wait(); err != nil {
		c.log.Warn().Err(err).Str("identity", id.String()).Msg("cold load failed")
		return
	}
	if ctx.Err() != nil {
		return
	}

	scope, err := c.feed.Attach(ctx, id)
	if err != nil {
		c.log.Warn().Err(err).Str("identity", id.String()).Msg("failed to attach change feed")
		return
	}

	c.mu.Lock()
	if ctx.Err() != nil {
		// Identity changed while we were attaching; these subscriptions are
		// already stale.
		c.mu.Unlock()
		scope.Close()
		return
	}
	c.scope = scope
	c.mu.Unlock()

	c.log.Info().Str("identity", id.String()).Msg("sync complete")
	if c.OnSynced != nil {
		c.OnSynced(id)
	}
}

func profileFetcher(data DataReader) store.Fetcher {
	return func(ctx context.Context, owner types.Identity) ([]types.Row, error) {
		p, err := data.FetchProfile(ctx, owner)
		if err != nil {
			return nil, err
		}
		if p == nil {
			return nil, nil
		}
		return []types.Row{*p}, nil
	}
}

func resumeFetcher(data DataReader) store.Fetcher {
	return func(ctx context.Context, owner types.Identity) ([]types.Row, error) {
		resumes, err := data.FetchResumes(ctx, owner)
		if err != nil {
			return nil, err
		}
		rows := make([]types.Row, 0, len(resumes))
		for _, r := range resumes {
			rows = append(rows, r)
		}
		return rows, nil
	}
}

func applicationFetcher(data DataReader) store.Fetcher {
	return func(ctx context.Context, owner types.Identity) ([]types.Row, error) {
		apps, err := data.FetchApplications(ctx, owner)
		if err != nil {
			return nil, err
		}
		rows := make([]types.Row, 0, len(apps))
		for _, a := range apps {
			rows = append(rows, a)
		}
		return rows, nil
	}
}

func wishlistFetcher(data DataReader) store.Fetcher {
	return func(ctx context.Context, owner types.Identity) ([]types.Row, error) {
		items, err := data.FetchWishlist(ctx, owner)
		if err != nil {
			return nil, err
		}
		rows := make([]types.Row, 0, len(items))
		for _, w := range items {
			rows = append(rows, w)
		}
		return rows, nil
	}
}
