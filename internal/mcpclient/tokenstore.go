package mcpclient

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// StoredToken is one OAuth/bearer credential for a (user, server) pair.
// Encryption of the stored value is explicitly out of scope here (an
// external collaborator's responsibility); TokenStore only manages
// expiry, refresh and last-used bookkeeping.
type StoredToken struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

func (t StoredToken) expired(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && now.After(t.ExpiresAt)
}

// Refresher exchanges a refresh token for a new access token. Supplied by
// the caller that owns the OAuth client credentials for a server; the MCP
// client layer never talks to an authorization server directly.
type Refresher interface {
	Refresh(ctx context.Context, serverID, refreshToken string) (StoredToken, error)
}

// TokenStore is keyed by (userID, serverID) and tracks token expiry,
// refresh and last-used time. The in-memory implementation below is the
// only one in this package, used by tests and by callers that don't need
// persistence across process restarts.
type TokenStore interface {
	Get(ctx context.Context, userID, serverID string) (StoredToken, error)
	Put(ctx context.Context, userID, serverID string, token StoredToken) error
	Touch(ctx context.Context, userID, serverID string) error
}

type tokenKey struct {
	userID, serverID string
}

// MemoryTokenStore is a process-local TokenStore, optionally backed by a
// Refresher that is consulted when a stored token has expired and carries a
// refresh token. The prototype leaves refresh as a TODO; AgentShip closes
// that gap here.
type MemoryTokenStore struct {
	mu        sync.Mutex
	tokens    map[tokenKey]StoredToken
	lastUsed  map[tokenKey]time.Time
	refresher Refresher
}

// NewMemoryTokenStore builds an empty store. refresher may be nil, in which
// case an expired token with a refresh token available produces an error
// stating that a refresh token is present but no Refresher is configured.
func NewMemoryTokenStore(refresher Refresher) *MemoryTokenStore {
	return &MemoryTokenStore{
		tokens:    make(map[tokenKey]StoredToken),
		lastUsed:  make(map[tokenKey]time.Time),
		refresher: refresher,
	}
}

func (s *MemoryTokenStore) Get(ctx context.Context, userID, serverID string) (StoredToken, error) {
	s.mu.Lock()
	key := tokenKey{userID, serverID}
	tok, ok := s.tokens[key]
	s.mu.Unlock()

	if !ok {
		return StoredToken{}, fmt.Errorf("no stored token for user %q server %q: reconnect/authorize required", userID, serverID)
	}
	if !tok.expired(time.Now()) {
		return tok, nil
	}
	if tok.RefreshToken == "" {
		return StoredToken{}, fmt.Errorf("token for user %q server %q expired and carries no refresh token: reauthorize required", userID, serverID)
	}
	if s.refresher == nil {
		return StoredToken{}, fmt.Errorf("token for user %q server %q expired; refresh token present but no Refresher configured", userID, serverID)
	}
	refreshed, err := s.refresher.Refresh(ctx, serverID, tok.RefreshToken)
	if err != nil {
		return StoredToken{}, fmt.Errorf("refresh token for user %q server %q: %w", userID, serverID, err)
	}
	if err := s.Put(ctx, userID, serverID, refreshed); err != nil {
		return StoredToken{}, err
	}
	return refreshed, nil
}

func (s *MemoryTokenStore) Put(_ context.Context, userID, serverID string, token StoredToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[tokenKey{userID, serverID}] = token
	return nil
}

func (s *MemoryTokenStore) Touch(_ context.Context, userID, serverID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUsed[tokenKey{userID, serverID}] = time.Now()
	return nil
}

// LastUsed returns the last recorded Touch time for (userID, serverID), and
// whether one was ever recorded. Exposed for idle-connection eviction
// policies a caller may build on top (see SPEC_FULL.md item 4).
func (s *MemoryTokenStore) LastUsed(userID, serverID string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.lastUsed[tokenKey{userID, serverID}]
	return t, ok
}
