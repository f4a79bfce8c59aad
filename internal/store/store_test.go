package store

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/applypilot/internal/types"
)

func newTestStore(t *testing.T) (*EntityStore, types.Identity) {
	t.Helper()
	s := New(zerolog.Nop())
	owner := types.Identity(uuid.New())
	s.Activate(owner)
	return s, owner
}

func staticFetcher(rows ...types.Row) Fetcher {
	return func(_ context.Context, _ types.Identity) ([]types.Row, error) {
		return rows, nil
	}
}

func TestLoad_PopulatesKind(t *testing.T) {
	s, owner := newTestStore(t)
	profile := types.Profile{ID: owner, FullName: "Ada Lovelace", UpdatedAt: time.Now()}

	require.NoError(t, s.Load(context.Background(), types.KindProfile, staticFetcher(profile)))

	got, ok := s.Profile()
	require.True(t, ok)
	assert.Equal(t, "Ada Lovelace", got.FullName)
}

func TestLoad_NoIdentityIsNoop(t *testing.T) {
	s := New(zerolog.Nop())

	calls := 0
	err := s.Load(context.Background(), types.KindProfile, func(_ context.Context, _ types.Identity) ([]types.Row, error) {
		calls++
		return nil, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 0, calls)
}

func TestLoad_FetchErrorPropagates(t *testing.T) {
	s, _ := newTestStore(t)
	boom := errors.New("backend down")

	err := s.Load(context.Background(), types.KindProfile, func(_ context.Context, _ types.Identity) ([]types.Row, error) {
		return nil, boom
	})

	assert.ErrorIs(t, err, boom)
	_, ok := s.Profile()
	assert.False(t, ok)
}

func TestLoad_ConcurrentLoadsCoalesce(t *testing.T) {
	s, owner := newTestStore(t)

	var calls atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})
	fetch := func(_ context.Context, _ types.Identity) ([]types.Row, error) {
		calls.Add(1)
		close(started)
		<-release
		return []types.Row{types.Resume{ID: uuid.New(), UserID: owner, CreatedAt: time.Now()}}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Load(context.Background(), types.KindResume, fetch))
		}()
	}

	<-started
	// Let the remaining loads reach the in-flight fetch before it resolves.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	assert.Len(t, s.Resumes(), 1)
}

func TestLoad_ResultDroppedAfterIdentityChange(t *testing.T) {
	s, owner := newTestStore(t)

	started := make(chan struct{})
	release := make(chan struct{})
	fetch := func(_ context.Context, _ types.Identity) ([]types.Row, error) {
		close(started)
		<-release
		return []types.Row{types.Profile{ID: owner, FullName: "Stale"}}, nil
	}

	done := make(chan error, 1)
	go func() {
		done <- s.Load(context.Background(), types.KindProfile, fetch)
	}()

	<-started
	next := types.Identity(uuid.New())
	s.Activate(next)
	close(release)
	require.NoError(t, <-done)

	// The slow load belonged to the previous identity; nothing lands.
	_, ok := s.Profile()
	assert.False(t, ok)
}

func TestLoad_RemovesRowsMissingFromFetch(t *testing.T) {
	s, owner := newTestStore(t)
	keep := types.Resume{ID: uuid.New(), UserID: owner, CreatedAt: time.Now().Add(-time.Hour)}
	gone := types.Resume{ID: uuid.New(), UserID: owner, CreatedAt: time.Now().Add(-2 * time.Hour)}
	require.NoError(t, s.Load(context.Background(), types.KindResume, staticFetcher(keep, gone)))

	require.NoError(t, s.Load(context.Background(), types.KindResume, staticFetcher(keep)))

	resumes := s.Resumes()
	require.Len(t, resumes, 1)
	assert.Equal(t, keep.ID, resumes[0].ID)
}

func TestLoad_LocalWriteDuringLoadSurvives(t *testing.T) {
	s, owner := newTestStore(t)
	applied := types.Resume{ID: uuid.New(), UserID: owner, CreatedAt: time.Now(), UpdatedAt: time.Now()}

	started := make(chan struct{})
	release := make(chan struct{})
	fetch := func(_ context.Context, _ types.Identity) ([]types.Row, error) {
		close(started)
		<-release
		return nil, nil
	}

	done := make(chan error, 1)
	go func() {
		done <- s.Load(context.Background(), types.KindResume, fetch)
	}()

	// A mutation lands while the bulk read is still in flight. The fetch
	// result predates it and must not wipe it out.
	<-started
	s.Apply(applied)
	close(release)
	require.NoError(t, <-done)

	resumes := s.Resumes()
	require.Len(t, resumes, 1)
	assert.Equal(t, applied.ID, resumes[0].ID)
}

func TestReconcile_InsertAndUpdate(t *testing.T) {
	s, owner := newTestStore(t)
	rowID := uuid.New()
	base := time.Now()

	ok := s.Reconcile(types.ChangeEvent{
		Op:    types.OpInsert,
		Kind:  types.KindApplication,
		RowID: rowID,
		Row:   types.Application{ID: rowID, UserID: owner, Company: "Initech", CreatedAt: base},
		At:    base,
	})
	require.True(t, ok)

	ok = s.Reconcile(types.ChangeEvent{
		Op:    types.OpUpdate,
		Kind:  types.KindApplication,
		RowID: rowID,
		Row:   types.Application{ID: rowID, UserID: owner, Company: "Globex", CreatedAt: base},
		At:    base.Add(time.Minute),
	})
	require.True(t, ok)

	apps := s.Applications()
	require.Len(t, apps, 1)
	assert.Equal(t, "Globex", apps[0].Company)
}

func TestReconcile_StaleEventDiscarded(t *testing.T) {
	s, owner := newTestStore(t)
	now := time.Now()
	profile := types.Profile{ID: owner, FullName: "Current", UpdatedAt: now}
	s.Apply(profile)

	ok := s.Reconcile(types.ChangeEvent{
		Op:    types.OpUpdate,
		Kind:  types.KindProfile,
		RowID: uuid.UUID(owner),
		Row:   types.Profile{ID: owner, FullName: "Stale", UpdatedAt: now.Add(-time.Hour)},
		At:    now.Add(-time.Hour),
	})

	assert.False(t, ok)
	got, found := s.Profile()
	require.True(t, found)
	assert.Equal(t, "Current", got.FullName)
}

func TestReconcile_EqualTimestampLaterArrivalWins(t *testing.T) {
	s, owner := newTestStore(t)
	now := time.Now()
	s.Apply(types.Profile{ID: owner, FullName: "First", UpdatedAt: now})

	ok := s.Reconcile(types.ChangeEvent{
		Op:    types.OpUpdate,
		Kind:  types.KindProfile,
		RowID: uuid.UUID(owner),
		Row:   types.Profile{ID: owner, FullName: "Second", UpdatedAt: now},
		At:    now,
	})

	assert.True(t, ok)
	got, _ := s.Profile()
	assert.Equal(t, "Second", got.FullName)
}

func TestReconcile_DeleteRemovesRow(t *testing.T) {
	s, owner := newTestStore(t)
	rowID := uuid.New()
	s.Apply(types.WishlistItem{ID: rowID, UserID: owner, CreatedAt: time.Now().Add(-time.Minute)})

	ok := s.Reconcile(types.ChangeEvent{
		Op:    types.OpDelete,
		Kind:  types.KindWishlistItem,
		RowID: rowID,
		At:    time.Now(),
	})

	assert.True(t, ok)
	assert.Empty(t, s.Wishlist())
}

func TestReconcile_DeleteBeatsSlowerLoad(t *testing.T) {
	s, owner := newTestStore(t)
	rowID := uuid.New()
	deletedAt := time.Now()
	stale := types.WishlistItem{ID: rowID, UserID: owner, CreatedAt: deletedAt.Add(-time.Hour)}

	started := make(chan struct{})
	release := make(chan struct{})
	fetch := func(_ context.Context, _ types.Identity) ([]types.Row, error) {
		close(started)
		<-release
		return []types.Row{stale}, nil
	}

	done := make(chan error, 1)
	go func() {
		done <- s.Load(context.Background(), types.KindWishlistItem, fetch)
	}()

	// The delete arrives while the bulk read is still in flight.
	<-started
	require.True(t, s.Reconcile(types.ChangeEvent{
		Op:    types.OpDelete,
		Kind:  types.KindWishlistItem,
		RowID: rowID,
		At:    deletedAt,
	}))

	close(release)
	require.NoError(t, <-done)

	// The load's older row image must not resurrect the deleted row.
	assert.Empty(t, s.Wishlist())
}

func TestReconcile_NewerImageResurrectsDeletedRow(t *testing.T) {
	s, owner := newTestStore(t)
	rowID := uuid.New()
	deletedAt := time.Now()

	require.True(t, s.Reconcile(types.ChangeEvent{
		Op:    types.OpDelete,
		Kind:  types.KindWishlistItem,
		RowID: rowID,
		At:    deletedAt,
	}))

	ok := s.Reconcile(types.ChangeEvent{
		Op:    types.OpInsert,
		Kind:  types.KindWishlistItem,
		RowID: rowID,
		Row:   types.WishlistItem{ID: rowID, UserID: owner, CreatedAt: deletedAt.Add(time.Minute)},
		At:    deletedAt.Add(time.Minute),
	})

	assert.True(t, ok)
	assert.Len(t, s.Wishlist(), 1)
}

func TestReconcile_NoIdentityDiscards(t *testing.T) {
	s := New(zerolog.Nop())

	ok := s.Reconcile(types.ChangeEvent{
		Op:    types.OpInsert,
		Kind:  types.KindProfile,
		RowID: uuid.New(),
		Row:   types.Profile{ID: types.Identity(uuid.New())},
		At:    time.Now(),
	})

	assert.False(t, ok)
}

func TestReconcile_InsertWithoutRowDiscards(t *testing.T) {
	s, _ := newTestStore(t)

	ok := s.Reconcile(types.ChangeEvent{
		Op:    types.OpInsert,
		Kind:  types.KindProfile,
		RowID: uuid.New(),
		At:    time.Now(),
	})

	assert.False(t, ok)
}

func TestApply_LocalWriteAlwaysWins(t *testing.T) {
	s, owner := newTestStore(t)
	now := time.Now()
	s.Apply(types.Profile{ID: owner, FullName: "Newer", UpdatedAt: now})

	// Even an older local write image overwrites; the pipeline just finished
	// it, so it is the latest state the user confirmed.
	s.Apply(types.Profile{ID: owner, FullName: "Latest local", UpdatedAt: now.Add(-time.Hour)})

	got, _ := s.Profile()
	assert.Equal(t, "Latest local", got.FullName)
}

func TestClear_EvictsEverything(t *testing.T) {
	s, owner := newTestStore(t)
	s.Apply(types.Profile{ID: owner, FullName: "Ada", UpdatedAt: time.Now()})
	s.Apply(types.Resume{ID: uuid.New(), UserID: owner, CreatedAt: time.Now()})

	s.Clear()

	_, ok := s.Profile()
	assert.False(t, ok)
	assert.Empty(t, s.Resumes())
	assert.True(t, s.Identity().IsZero())
}

func TestCurrentResume_NewestWins(t *testing.T) {
	s, owner := newTestStore(t)
	older := types.Resume{ID: uuid.New(), UserID: owner, CreatedAt: time.Now().Add(-time.Hour)}
	newer := types.Resume{ID: uuid.New(), UserID: owner, CreatedAt: time.Now()}
	s.Apply(older)
	s.Apply(newer)

	current, ok := s.CurrentResume()

	require.True(t, ok)
	assert.Equal(t, newer.ID, current.ID)
	require.Len(t, s.Resumes(), 2)
	assert.Equal(t, newer.ID, s.Resumes()[0].ID)
}
