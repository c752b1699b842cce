package session

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// #region bridge-struct
// Bridge mirrors the external identity state into a Snapshot.
//
// State moves through two phases: Restore loads the durable flag (cached), and
// Verify replaces it with the result of real lookups (verified). Every lookup is
// tagged with the generation it started in; SignOut and Invalidate advance the
// generation so a late result cannot overwrite newer state.
type Bridge struct {
	idp      IdentityProvider
	profiles ProfileStore
	slot     FlagSlot
	log      *zap.Logger

	mu         sync.Mutex
	snap       Snapshot
	generation uint64
	nextSubID  uint64
	subs       []subscription

	verifies singleflight.Group
}

type subscription struct {
	id uint64
	fn func(Snapshot)
}

// BridgeOption configures a Bridge.
type BridgeOption func(*Bridge)

// WithLogger attaches a logger; the default discards everything.
func WithLogger(l *zap.Logger) BridgeOption {
	return func(b *Bridge) {
		if l != nil {
			b.log = l
		}
	}
}

// #endregion bridge-struct

// #region constructor
// NewBridge returns a bridge in the unauthenticated cached state.
func NewBridge(idp IdentityProvider, profiles ProfileStore, slot FlagSlot, opts ...BridgeOption) *Bridge {
	b := &Bridge{
		idp:      idp,
		profiles: profiles,
		slot:     slot,
		log:      zap.NewNop(),
		snap:     Snapshot{Status: StatusUnauthenticated, Phase: PhaseCached},
	}
	for _, o := range opts {
		o(b)
	}
	b.log = b.log.With(zap.String("component", "session"))
	return b
}

// #endregion constructor

// #region read
// Current returns the latest snapshot.
func (b *Bridge) Current() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snap
}

// Generation returns the current lookup generation.
func (b *Bridge) Generation() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.generation
}

// #endregion read

// #region restore
// Restore loads the last known flag so the header can render before Verify
// completes. It never overrides a snapshot already verified in this generation.
func (b *Bridge) Restore() Snapshot {
	authed := false
	v, ok, err := b.slot.Get(AuthFlagKey)
	switch {
	case err != nil:
		b.log.Warn("read auth flag failed", zap.Error(err))
	case ok:
		authed = v == "true"
	}

	b.mu.Lock()
	if b.snap.Phase == PhaseVerified && b.snap.Generation == b.generation {
		snap := b.snap
		b.mu.Unlock()
		return snap
	}
	status := StatusUnauthenticated
	if authed {
		status = StatusAuthenticated
	}
	b.snap = Snapshot{Status: status, Phase: PhaseCached, Generation: b.generation}
	snap := b.snap
	b.mu.Unlock()

	b.log.Debug("restored cached auth flag", zap.Bool("authenticated", authed))
	b.notify(snap)
	return snap
}

// #endregion restore

// #region verify
// Verify runs the identity and profile lookups and applies the outcome.
// Concurrent calls within one generation share a single lookup. A lookup cut
// short by its caller's context is not an auth result: it is never applied,
// and callers whose own context is still live run the lookup again. If the
// generation moves on while the lookup is in flight, the result is dropped
// and the current snapshot is returned.
func (b *Bridge) Verify(ctx context.Context) Snapshot {
	for {
		gen := b.Generation()
		v, _, _ := b.verifies.Do(strconv.FormatUint(gen, 10), func() (interface{}, error) {
			status, profile, err := b.lookup(ctx)
			if err != nil {
				return nil, err
			}
			return b.apply(gen, status, profile), nil
		})
		if snap, ok := v.(Snapshot); ok {
			return snap
		}
		if ctx.Err() != nil {
			return b.Current()
		}
	}
}

// lookup returns an error only when ctx ended before the lookups settled.
func (b *Bridge) lookup(ctx context.Context) (Status, *Profile, error) {
	user, err := b.idp.CurrentUser(ctx)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", nil, ctxErr
	}
	if err != nil {
		b.log.Warn("identity lookup failed", zap.Error(err))
		return StatusUnauthenticated, nil, nil
	}
	if user == nil || user.ID == "" {
		return StatusUnauthenticated, nil, nil
	}

	name, ok, err := b.profiles.DisplayName(ctx, user.ID)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", nil, ctxErr
	}
	if err != nil {
		b.log.Warn("profile lookup failed", zap.String("user_id", user.ID), zap.Error(err))
		return StatusAuthenticatedNoProfile, nil, nil
	}
	if !ok {
		b.log.Info("no profile for user", zap.String("user_id", user.ID))
		return StatusAuthenticatedNoProfile, nil, nil
	}
	return StatusAuthenticated, &Profile{DisplayName: name}, nil
}

func (b *Bridge) apply(gen uint64, status Status, profile *Profile) Snapshot {
	b.mu.Lock()
	if gen != b.generation {
		snap := b.snap
		b.mu.Unlock()
		b.log.Debug("dropped stale lookup result",
			zap.Uint64("started", gen),
			zap.Uint64("current", snap.Generation),
		)
		return snap
	}
	b.snap = Snapshot{Status: status, Phase: PhaseVerified, Profile: profile, Generation: gen}
	snap := b.snap
	b.mu.Unlock()

	b.persist(snap.Authenticated())

	// A sign-out may land while the flag is written. Its state wins: put its
	// flag back and keep the superseded snapshot from reaching subscribers.
	if cur := b.Current(); cur.Generation != snap.Generation {
		b.persist(cur.Authenticated())
		b.log.Debug("verified result superseded during publish",
			zap.Uint64("started", gen),
			zap.Uint64("current", cur.Generation),
		)
		return cur
	}

	b.log.Info("auth verified", zap.String("status", string(status)))
	b.notify(snap)
	return snap
}

// #endregion verify

// #region start
// Start restores the cached flag synchronously and verifies in the background.
// The returned channel yields the snapshot Verify settled on, then closes.
func (b *Bridge) Start(ctx context.Context) <-chan Snapshot {
	b.Restore()
	out := make(chan Snapshot, 1)
	go func() {
		defer close(out)
		out <- b.Verify(ctx)
	}()
	return out
}

// #endregion start

// #region sign-out
// SignOut clears local state, records the signed-out flag and asks the
// provider to end the session. Local state stays cleared if the provider fails.
func (b *Bridge) SignOut(ctx context.Context) error {
	b.mu.Lock()
	b.generation++
	b.snap = Snapshot{Status: StatusUnauthenticated, Phase: PhaseVerified, Generation: b.generation}
	snap := b.snap
	b.mu.Unlock()

	b.persist(false)
	b.notify(snap)

	if err := b.idp.SignOut(ctx); err != nil {
		b.log.Warn("provider sign out failed", zap.Error(err))
		return fmt.Errorf("sign out: %w", err)
	}
	return nil
}

// Invalidate advances the generation so in-flight lookups are discarded,
// keeping the current snapshot. Call when the owning view goes away.
func (b *Bridge) Invalidate() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.generation++
}

// #endregion sign-out

// #region subscribe
// Subscribe registers fn for every snapshot change. The returned func unsubscribes.
func (b *Bridge) Subscribe(fn func(Snapshot)) func() {
	b.mu.Lock()
	b.nextSubID++
	id := b.nextSubID
	b.subs = append(b.subs, subscription{id: id, fn: fn})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, s := range b.subs {
			if s.id == id {
				b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
				return
			}
		}
	}
}

func (b *Bridge) notify(snap Snapshot) {
	b.mu.Lock()
	subs := append([]subscription(nil), b.subs...)
	b.mu.Unlock()
	for _, s := range subs {
		s.fn(snap)
	}
}

// #endregion subscribe

// #region helpers
func (b *Bridge) persist(authenticated bool) {
	if err := b.slot.Set(AuthFlagKey, strconv.FormatBool(authenticated)); err != nil {
		b.log.Warn("write auth flag failed", zap.Error(err))
	}
}

// #endregion helpers
