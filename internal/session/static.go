package session

import (
	"context"
	"sync"
)

// StaticIdentity is a single-user provider for running without an identity
// service. An empty user ID means nobody is ever signed in.
type StaticIdentity struct {
	mu        sync.Mutex
	userID    string
	signedOut bool
}

// NewStaticIdentity returns a provider reporting userID as signed in.
func NewStaticIdentity(userID string) *StaticIdentity {
	return &StaticIdentity{userID: userID}
}

// CurrentUser implements IdentityProvider.
func (s *StaticIdentity) CurrentUser(context.Context) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.signedOut || s.userID == "" {
		return nil, nil
	}
	return &User{ID: s.userID}, nil
}

// SignOut implements IdentityProvider.
func (s *StaticIdentity) SignOut(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signedOut = true
	return nil
}

// SignIn undoes SignOut.
func (s *StaticIdentity) SignIn() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signedOut = false
}

// MemorySlot is a FlagSlot that lives only as long as the process.
type MemorySlot struct {
	mu     sync.Mutex
	values map[string]string
}

// NewMemorySlot returns an empty slot.
func NewMemorySlot() *MemorySlot {
	return &MemorySlot{values: make(map[string]string)}
}

// Get implements FlagSlot.
func (m *MemorySlot) Get(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

// Set implements FlagSlot.
func (m *MemorySlot) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}
