package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// #region fakes
type fakeIdentity struct {
	user       *User
	err        error
	signOutErr error

	// entered is closed on the first CurrentUser call; release gates its return.
	entered chan struct{}
	release chan struct{}
	once    sync.Once

	mu       sync.Mutex
	calls    int
	signOuts int
}

func (f *fakeIdentity) CurrentUser(ctx context.Context) (*User, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.entered != nil {
		f.once.Do(func() { close(f.entered) })
	}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.user, f.err
}

func (f *fakeIdentity) SignOut(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signOuts++
	return f.signOutErr
}

type fakeProfiles struct {
	names map[string]string
	err   error
}

func (f *fakeProfiles) DisplayName(_ context.Context, userID string) (string, bool, error) {
	if f.err != nil {
		return "", false, f.err
	}
	name, ok := f.names[userID]
	return name, ok, nil
}

type memSlot struct {
	mu     sync.Mutex
	values map[string]string
	getErr error
	setErr error
	writes []string
}

func newMemSlot() *memSlot { return &memSlot{values: map[string]string{}} }

func (m *memSlot) Get(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return "", false, m.getErr
	}
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *memSlot) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.values[key] = value
	m.writes = append(m.writes, value)
	return nil
}

func (m *memSlot) value(key string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.values[key]
}

func newTestBridge(t *testing.T, idp IdentityProvider, profiles ProfileStore, slot FlagSlot) *Bridge {
	t.Helper()
	return NewBridge(idp, profiles, slot, WithLogger(zaptest.NewLogger(t)))
}

// hookSlot runs onTrue once, inside the first Set that writes "true".
type hookSlot struct {
	*memSlot
	onTrue func()
	once   sync.Once
}

func (h *hookSlot) Set(key, value string) error {
	if value == "true" {
		h.once.Do(h.onTrue)
	}
	return h.memSlot.Set(key, value)
}

// stallFirstIdentity blocks its first CurrentUser call until that caller's
// context ends; later calls answer at once.
type stallFirstIdentity struct {
	user    *User
	entered chan struct{}

	mu    sync.Mutex
	calls int
}

func (s *stallFirstIdentity) CurrentUser(ctx context.Context) (*User, error) {
	s.mu.Lock()
	s.calls++
	first := s.calls == 1
	s.mu.Unlock()
	if first {
		close(s.entered)
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return s.user, nil
}

func (s *stallFirstIdentity) SignOut(context.Context) error { return nil }

// #endregion fakes

// #region verify-tests
func TestVerifyAuthenticated(t *testing.T) {
	slot := newMemSlot()
	b := newTestBridge(t,
		&fakeIdentity{user: &User{ID: "u1"}},
		&fakeProfiles{names: map[string]string{"u1": "Ada"}},
		slot,
	)

	snap := b.Verify(context.Background())

	require.True(t, snap.Authenticated())
	require.Equal(t, PhaseVerified, snap.Phase)
	require.NotNil(t, snap.Profile)
	assert.Equal(t, "Ada", snap.Profile.DisplayName)
	assert.Equal(t, "true", slot.value(AuthFlagKey))
}

func TestVerifyIdentityFailure(t *testing.T) {
	slot := newMemSlot()
	slot.values[AuthFlagKey] = "true"
	b := newTestBridge(t,
		&fakeIdentity{err: errors.New("network down")},
		&fakeProfiles{},
		slot,
	)

	snap := b.Verify(context.Background())

	assert.Equal(t, StatusUnauthenticated, snap.Status)
	assert.False(t, snap.Authenticated())
	assert.Equal(t, "false", slot.value(AuthFlagKey))
}

func TestVerifyNoUser(t *testing.T) {
	b := newTestBridge(t, &fakeIdentity{}, &fakeProfiles{}, newMemSlot())
	snap := b.Verify(context.Background())
	assert.Equal(t, StatusUnauthenticated, snap.Status)
}

func TestVerifyProfileFailureCollapses(t *testing.T) {
	slot := newMemSlot()
	b := newTestBridge(t,
		&fakeIdentity{user: &User{ID: "u1"}},
		&fakeProfiles{err: errors.New("profile store unavailable")},
		slot,
	)

	snap := b.Verify(context.Background())

	assert.Equal(t, StatusAuthenticatedNoProfile, snap.Status)
	assert.False(t, snap.Authenticated(), "no-profile state must display as unauthenticated")
	assert.Nil(t, snap.Profile)
	assert.Equal(t, "false", slot.value(AuthFlagKey))
}

func TestVerifyMissingProfileCollapses(t *testing.T) {
	b := newTestBridge(t,
		&fakeIdentity{user: &User{ID: "u2"}},
		&fakeProfiles{names: map[string]string{"u1": "Ada"}},
		newMemSlot(),
	)
	snap := b.Verify(context.Background())
	assert.Equal(t, StatusAuthenticatedNoProfile, snap.Status)
	assert.False(t, snap.Authenticated())
}

func TestVerifyIdempotent(t *testing.T) {
	b := newTestBridge(t,
		&fakeIdentity{user: &User{ID: "u1"}},
		&fakeProfiles{names: map[string]string{"u1": "Ada"}},
		newMemSlot(),
	)
	first := b.Verify(context.Background())
	second := b.Verify(context.Background())
	assert.Equal(t, first, second)
}

func TestVerifySlotWriteFailureIgnored(t *testing.T) {
	slot := newMemSlot()
	slot.setErr = errors.New("disk full")
	b := newTestBridge(t,
		&fakeIdentity{user: &User{ID: "u1"}},
		&fakeProfiles{names: map[string]string{"u1": "Ada"}},
		slot,
	)
	snap := b.Verify(context.Background())
	assert.True(t, snap.Authenticated())
}

func TestVerifyCancelledLeaderDoesNotCollapseFollowers(t *testing.T) {
	slot := newMemSlot()
	idp := &stallFirstIdentity{user: &User{ID: "u1"}, entered: make(chan struct{})}
	b := newTestBridge(t, idp, &fakeProfiles{names: map[string]string{"u1": "Ada"}}, slot)

	leaderCtx, cancel := context.WithCancel(context.Background())
	leader := make(chan Snapshot, 1)
	go func() { leader <- b.Verify(leaderCtx) }()
	<-idp.entered

	follower := make(chan Snapshot, 1)
	go func() { follower <- b.Verify(context.Background()) }()
	cancel()

	got := <-follower
	assert.Equal(t, StatusAuthenticated, got.Status)
	require.NotNil(t, got.Profile)
	assert.Equal(t, "Ada", got.Profile.DisplayName)

	// The cancelled caller never applies its own result.
	<-leader
	assert.NotContains(t, slot.writes, "false")
	assert.Equal(t, "true", slot.value(AuthFlagKey))
}

func TestVerifyCancelledKeepsCachedState(t *testing.T) {
	slot := newMemSlot()
	slot.values[AuthFlagKey] = "true"
	idp := &fakeIdentity{user: &User{ID: "u1"}, release: make(chan struct{})}
	b := newTestBridge(t, idp, &fakeProfiles{}, slot)
	b.Restore()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	snap := b.Verify(ctx)

	assert.Equal(t, PhaseCached, snap.Phase)
	assert.Equal(t, "true", slot.value(AuthFlagKey))
	assert.Empty(t, slot.writes)
}

// #endregion verify-tests

// #region restore-tests
func TestRestoreCachedFlag(t *testing.T) {
	slot := newMemSlot()
	slot.values[AuthFlagKey] = "true"
	b := newTestBridge(t, &fakeIdentity{}, &fakeProfiles{}, slot)

	snap := b.Restore()

	assert.True(t, snap.Authenticated())
	assert.Equal(t, PhaseCached, snap.Phase)
	assert.Nil(t, snap.Profile)
}

func TestRestoreMissingOrBrokenFlag(t *testing.T) {
	b := newTestBridge(t, &fakeIdentity{}, &fakeProfiles{}, newMemSlot())
	assert.False(t, b.Restore().Authenticated())

	slot := newMemSlot()
	slot.getErr = errors.New("corrupt")
	b = newTestBridge(t, &fakeIdentity{}, &fakeProfiles{}, slot)
	assert.False(t, b.Restore().Authenticated())
}

func TestRestoreDoesNotOverrideVerified(t *testing.T) {
	slot := newMemSlot()
	b := newTestBridge(t,
		&fakeIdentity{user: &User{ID: "u1"}},
		&fakeProfiles{names: map[string]string{"u1": "Ada"}},
		slot,
	)
	b.Verify(context.Background())
	slot.values[AuthFlagKey] = "false"

	snap := b.Restore()
	assert.Equal(t, PhaseVerified, snap.Phase)
	assert.True(t, snap.Authenticated())
}

// #endregion restore-tests

// #region start-tests
func TestStartCachedThenVerified(t *testing.T) {
	slot := newMemSlot()
	slot.values[AuthFlagKey] = "true"
	idp := &fakeIdentity{
		err:     errors.New("expired token"),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	b := newTestBridge(t, idp, &fakeProfiles{}, slot)

	done := b.Start(context.Background())
	<-idp.entered

	cached := b.Current()
	require.Equal(t, PhaseCached, cached.Phase)
	require.True(t, cached.Authenticated(), "optimistic flag should render first")

	close(idp.release)
	select {
	case snap := <-done:
		assert.Equal(t, PhaseVerified, snap.Phase)
		assert.False(t, snap.Authenticated(), "failed check must reset the optimistic flag")
	case <-time.After(2 * time.Second):
		t.Fatal("verify did not finish")
	}
	_, open := <-done
	assert.False(t, open, "channel should close after the verified snapshot")
	assert.Equal(t, "false", slot.value(AuthFlagKey))
}

func TestStaleVerifyDroppedAfterSignOut(t *testing.T) {
	slot := newMemSlot()
	idp := &fakeIdentity{
		user:    &User{ID: "u1"},
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	b := newTestBridge(t, idp, &fakeProfiles{names: map[string]string{"u1": "Ada"}}, slot)

	done := b.Start(context.Background())
	<-idp.entered

	require.NoError(t, b.SignOut(context.Background()))
	close(idp.release)

	snap := <-done
	assert.False(t, snap.Authenticated(), "late lookup must not resurrect the session")
	assert.Nil(t, b.Current().Profile)
	assert.Equal(t, "false", slot.value(AuthFlagKey))
}

func TestInvalidateDropsInFlightResult(t *testing.T) {
	idp := &fakeIdentity{
		user:    &User{ID: "u1"},
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	b := newTestBridge(t, idp, &fakeProfiles{names: map[string]string{"u1": "Ada"}}, newMemSlot())

	done := b.Start(context.Background())
	<-idp.entered
	b.Invalidate()
	close(idp.release)

	snap := <-done
	assert.Equal(t, PhaseCached, snap.Phase)
	assert.False(t, snap.Authenticated())
}

func TestStartCancelledContext(t *testing.T) {
	idp := &fakeIdentity{user: &User{ID: "u1"}, release: make(chan struct{})}
	b := newTestBridge(t, idp, &fakeProfiles{}, newMemSlot())

	ctx, cancel := context.WithCancel(context.Background())
	done := b.Start(ctx)
	cancel()

	snap := <-done
	assert.False(t, snap.Authenticated())
}

// #endregion start-tests

// #region sign-out-tests
func TestSignOutClearsState(t *testing.T) {
	slot := newMemSlot()
	idp := &fakeIdentity{user: &User{ID: "u1"}}
	b := newTestBridge(t, idp, &fakeProfiles{names: map[string]string{"u1": "Ada"}}, slot)
	require.True(t, b.Verify(context.Background()).Authenticated())

	var seen []Snapshot
	unsubscribe := b.Subscribe(func(s Snapshot) { seen = append(seen, s) })
	defer unsubscribe()

	require.NoError(t, b.SignOut(context.Background()))

	snap := b.Current()
	assert.False(t, snap.Authenticated())
	assert.Nil(t, snap.Profile)
	assert.Equal(t, "false", slot.value(AuthFlagKey))
	assert.Equal(t, 1, idp.signOuts)
	require.Len(t, seen, 1)
	assert.Equal(t, StatusUnauthenticated, seen[0].Status)
}

func TestSignOutProviderErrorStillClears(t *testing.T) {
	idp := &fakeIdentity{user: &User{ID: "u1"}, signOutErr: errors.New("503")}
	b := newTestBridge(t, idp, &fakeProfiles{names: map[string]string{"u1": "Ada"}}, newMemSlot())
	b.Verify(context.Background())

	err := b.SignOut(context.Background())
	require.Error(t, err)
	assert.False(t, b.Current().Authenticated())
}

func TestSignOutAdvancesGeneration(t *testing.T) {
	b := newTestBridge(t, &fakeIdentity{}, &fakeProfiles{}, newMemSlot())
	before := b.Generation()
	require.NoError(t, b.SignOut(context.Background()))
	assert.Equal(t, before+1, b.Generation())
}

func TestSignOutDuringFlagWriteWins(t *testing.T) {
	var b *Bridge
	slot := &hookSlot{memSlot: newMemSlot()}
	slot.onTrue = func() { _ = b.SignOut(context.Background()) }
	b = newTestBridge(t,
		&fakeIdentity{user: &User{ID: "u1"}},
		&fakeProfiles{names: map[string]string{"u1": "Ada"}},
		slot,
	)

	var mu sync.Mutex
	var seen []Status
	unsubscribe := b.Subscribe(func(s Snapshot) {
		mu.Lock()
		seen = append(seen, s.Status)
		mu.Unlock()
	})
	defer unsubscribe()

	snap := b.Verify(context.Background())

	assert.False(t, snap.Authenticated())
	assert.False(t, b.Current().Authenticated())
	assert.Equal(t, "false", slot.value(AuthFlagKey))
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []Status{StatusUnauthenticated}, seen)
}

// #endregion sign-out-tests

// #region static-identity-tests
func TestStaticIdentity(t *testing.T) {
	ctx := context.Background()
	s := NewStaticIdentity("local")

	u, err := s.CurrentUser(ctx)
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "local", u.ID)

	require.NoError(t, s.SignOut(ctx))
	u, err = s.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Nil(t, u)

	s.SignIn()
	u, _ = s.CurrentUser(ctx)
	assert.NotNil(t, u)

	anon := NewStaticIdentity("")
	u, _ = anon.CurrentUser(ctx)
	assert.Nil(t, u)
}

func TestMemorySlot(t *testing.T) {
	m := NewMemorySlot()
	_, ok, err := m.Get(AuthFlagKey)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, m.Set(AuthFlagKey, "true"))
	v, ok, err := m.Get(AuthFlagKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "true", v)
}

// #endregion static-identity-tests
