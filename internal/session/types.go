package session

import "context"

// #region collaborators
// User is the identity record returned by the identity provider.
type User struct {
	ID string
}

// IdentityProvider answers who is signed in and ends sessions.
// CurrentUser returns a nil user and nil error when nobody is signed in.
type IdentityProvider interface {
	CurrentUser(ctx context.Context) (*User, error)
	SignOut(ctx context.Context) error
}

// ProfileStore looks up display names keyed by user ID.
// ok is false when the user has no profile.
type ProfileStore interface {
	DisplayName(ctx context.Context, userID string) (name string, ok bool, err error)
}

// FlagSlot is a durable key-value slot that survives restarts.
type FlagSlot interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
}

// AuthFlagKey is the slot key holding the last known authenticated flag.
const AuthFlagKey = "auth"

// #endregion collaborators

// #region status
// Status is the resolved authentication state.
type Status string

const (
	StatusUnauthenticated Status = "unauthenticated"
	StatusAuthenticated   Status = "authenticated"
	// StatusAuthenticatedNoProfile means the identity lookup found a user but the
	// profile lookup failed or came back empty. Displayed as unauthenticated.
	StatusAuthenticatedNoProfile Status = "authenticated_no_profile"
)

// Phase tells whether a snapshot came from the durable flag or a completed lookup.
type Phase string

const (
	PhaseCached   Phase = "cached"
	PhaseVerified Phase = "verified"
)

// #endregion status

// #region snapshot
// Profile is the display profile of the signed-in user.
type Profile struct {
	DisplayName string
}

// Snapshot is an immutable view of the bridge state.
type Snapshot struct {
	Status     Status
	Phase      Phase
	Profile    *Profile
	Generation uint64
}

// Authenticated is what the header reacts to. A user without a profile counts
// as signed out.
func (s Snapshot) Authenticated() bool {
	return s.Status == StatusAuthenticated
}

// #endregion snapshot
