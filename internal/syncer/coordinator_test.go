package syncer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/applypilot/internal/feed"
	"github.com/jonathan/applypilot/internal/session"
	"github.com/jonathan/applypilot/internal/store"
	"github.com/jonathan/applypilot/internal/types"
)

type fakeAuth struct {
	identity    types.Identity
	subscribers []func(types.Identity)
}

func (f *fakeAuth) CurrentIdentity(_ context.Context) (types.Identity, error) {
	return f.identity, nil
}

func (f *fakeAuth) OnIdentityChange(fn func(types.Identity)) {
	f.subscribers = append(f.subscribers, fn)
}

func (f *fakeAuth) EndSession(_ context.Context) error {
	f.push(types.NoIdentity)
	return nil
}

func (f *fakeAuth) push(id types.Identity) {
	f.identity = id
	for _, fn := range f.subscribers {
		fn(id)
	}
}

// fakeReader serves canned rows for one owner.
type fakeReader struct {
	owner    types.Identity
	profile  *types.Profile
	resumes  []types.Resume
	apps     []types.Application
	wishlist []types.WishlistItem
	err      error
}

func (f *fakeReader) FetchProfile(_ context.Context, _ types.Identity) (*types.Profile, error) {
	return f.profile, f.err
}

func (f *fakeReader) FetchResumes(_ context.Context, _ types.Identity) ([]types.Resume, error) {
	return f.resumes, f.err
}

func (f *fakeReader) FetchApplications(_ context.Context, _ types.Identity) ([]types.Application, error) {
	return f.apps, f.err
}

func (f *fakeReader) FetchWishlist(_ context.Context, _ types.Identity) ([]types.WishlistItem, error) {
	return f.wishlist, f.err
}

// fakeTransport counts subscriptions and teardowns across goroutines.
type fakeTransport struct {
	mu   sync.Mutex
	subs []*fakeSubscription
}

type fakeSubscription struct {
	mu           sync.Mutex
	unsubscribes int
}

func (s *fakeSubscription) Unsubscribe() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unsubscribes++
	return nil
}

func (s *fakeSubscription) closed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unsubscribes
}

func (f *fakeTransport) Subscribe(_ context.Context, _ types.Identity, _ types.Kind, _ func(payload []byte)) (feed.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sub := &fakeSubscription{}
	f.subs = append(f.subs, sub)
	return sub, nil
}

func (f *fakeTransport) snapshot() []*fakeSubscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*fakeSubscription{}, f.subs...)
}

type coordinatorFixture struct {
	coordinator *Coordinator
	auth        *fakeAuth
	store       *store.EntityStore
	reader      *fakeReader
	transport   *fakeTransport
	owner       types.Identity
	synced      chan types.Identity
}

func newCoordinatorFixture(t *testing.T, signedIn bool) *coordinatorFixture {
	t.Helper()
	owner := types.Identity(uuid.New())
	now := time.Now()

	reader := &fakeReader{
		owner:   owner,
		profile: &types.Profile{ID: owner, FullName: "Ada Lovelace", UpdatedAt: now},
		resumes: []types.Resume{{ID: uuid.New(), UserID: owner, FileURL: "https://cdn.example.com/a.pdf", CreatedAt: now}},
		apps:    []types.Application{{ID: uuid.New(), UserID: owner, Status: types.StatusSubmitted, CreatedAt: now}},
	}

	auth := &fakeAuth{}
	if signedIn {
		auth.identity = owner
	}
	tracker := session.NewTracker(context.Background(), auth, zerolog.Nop())
	st := store.New(zerolog.Nop())
	transport := &fakeTransport{}
	rec := feed.NewReconciler(transport, st, zerolog.Nop())

	fx := &coordinatorFixture{
		coordinator: NewCoordinator(tracker, st, reader, rec, zerolog.Nop()),
		auth:        auth,
		store:       st,
		reader:      reader,
		transport:   transport,
		owner:       owner,
		synced:      make(chan types.Identity, 4),
	}
	fx.coordinator.OnSynced = func(id types.Identity) {
		fx.synced <- id
	}
	return fx
}

func (fx *coordinatorFixture) run(t *testing.T) (stop func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = fx.coordinator.Run(ctx)
	}()
	return func() {
		cancel()
		<-done
	}
}

func (fx *coordinatorFixture) waitSynced(t *testing.T) types.Identity {
	t.Helper()
	select {
	case id := <-fx.synced:
		return id
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for sync")
		return types.NoIdentity
	}
}

func TestCoordinator_ColdLoadsAndAttachesFeed(t *testing.T) {
	fx := newCoordinatorFixture(t, true)
	stop := fx.run(t)
	defer stop()

	id := fx.waitSynced(t)
	assert.Equal(t, fx.owner, id)

	profile, ok := fx.store.Profile()
	require.True(t, ok)
	assert.Equal(t, "Ada Lovelace", profile.FullName)
	assert.Len(t, fx.store.Resumes(), 1)
	assert.Len(t, fx.store.Applications(), 1)

	// One feed subscription per entity kind.
	assert.Len(t, fx.transport.snapshot(), len(types.Kinds()))
}

func TestCoordinator_SignedOutStartsEmpty(t *testing.T) {
	fx := newCoordinatorFixture(t, false)
	stop := fx.run(t)
	defer stop()

	time.Sleep(50 * time.Millisecond)

	_, ok := fx.store.Profile()
	assert.False(t, ok)
	assert.Empty(t, fx.transport.snapshot())
}

func TestCoordinator_IdentityLossClearsAndUnsubscribes(t *testing.T) {
	fx := newCoordinatorFixture(t, true)
	stop := fx.run(t)
	defer stop()

	fx.waitSynced(t)
	fx.auth.push(types.NoIdentity)

	_, ok := fx.store.Profile()
	assert.False(t, ok)
	assert.True(t, fx.store.Identity().IsZero())

	// Every subscription from the old identity is released exactly once.
	for _, sub := range fx.transport.snapshot() {
		assert.Equal(t, 1, sub.closed())
	}
}

func TestCoordinator_SignInAfterStart(t *testing.T) {
	fx := newCoordinatorFixture(t, false)
	stop := fx.run(t)
	defer stop()

	fx.auth.push(fx.owner)

	id := fx.waitSynced(t)
	assert.Equal(t, fx.owner, id)
	_, ok := fx.store.Profile()
	assert.True(t, ok)
}

func TestCoordinator_IdentitySwitchReplacesSubscriptions(t *testing.T) {
	fx := newCoordinatorFixture(t, true)
	stop := fx.run(t)
	defer stop()

	fx.waitSynced(t)
	firstSubs := fx.transport.snapshot()

	next := types.Identity(uuid.New())
	fx.reader.profile = &types.Profile{ID: next, FullName: "Grace Hopper", UpdatedAt: time.Now()}
	fx.auth.push(next)
	fx.waitSynced(t)

	for _, sub := range firstSubs {
		assert.Equal(t, 1, sub.closed())
	}
	assert.Len(t, fx.transport.snapshot(), 2*len(types.Kinds()))
	assert.Equal(t, next, fx.store.Identity())
}

func TestCoordinator_LoadFailureLeavesFeedDetached(t *testing.T) {
	fx := newCoordinatorFixture(t, true)
	fx.reader.err = errors.New("backend down")
	stop := fx.run(t)
	defer stop()

	time.Sleep(50 * time.Millisecond)

	select {
	case <-fx.synced:
		t.Fatal("sync must not complete when the cold load fails")
	default:
	}
	assert.Empty(t, fx.transport.snapshot())
}

func TestCoordinator_StopTearsDown(t *testing.T) {
	fx := newCoordinatorFixture(t, true)
	stop := fx.run(t)

	fx.waitSynced(t)
	stop()

	for _, sub := range fx.transport.snapshot() {
		assert.Equal(t, 1, sub.closed())
	}
}
