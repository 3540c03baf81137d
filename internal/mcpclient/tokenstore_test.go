package mcpclient

import (
	"context"
	"testing"
	"time"
)

type fakeRefresher struct {
	called bool
	result StoredToken
	err    error
}

func (f *fakeRefresher) Refresh(_ context.Context, _ string, _ string) (StoredToken, error) {
	f.called = true
	return f.result, f.err
}

func TestMemoryTokenStore_ReturnsValidToken(t *testing.T) {
	store := NewMemoryTokenStore(nil)
	tok := StoredToken{AccessToken: "abc", ExpiresAt: time.Now().Add(time.Hour)}
	if err := store.Put(context.Background(), "user1", "server1", tok); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := store.Get(context.Background(), "user1", "server1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.AccessToken != "abc" {
		t.Errorf("expected access token 'abc', got %q", got.AccessToken)
	}
}

func TestMemoryTokenStore_MissingTokenErrors(t *testing.T) {
	store := NewMemoryTokenStore(nil)
	if _, err := store.Get(context.Background(), "user1", "server1"); err == nil {
		t.Fatal("expected error for missing token")
	}
}

func TestMemoryTokenStore_ExpiredWithoutRefreshTokenErrors(t *testing.T) {
	store := NewMemoryTokenStore(nil)
	tok := StoredToken{AccessToken: "abc", ExpiresAt: time.Now().Add(-time.Hour)}
	_ = store.Put(context.Background(), "user1", "server1", tok)
	if _, err := store.Get(context.Background(), "user1", "server1"); err == nil {
		t.Fatal("expected error for expired token without refresh token")
	}
}

func TestMemoryTokenStore_ExpiredWithoutRefresherErrors(t *testing.T) {
	store := NewMemoryTokenStore(nil)
	tok := StoredToken{AccessToken: "abc", RefreshToken: "r1", ExpiresAt: time.Now().Add(-time.Hour)}
	_ = store.Put(context.Background(), "user1", "server1", tok)
	if _, err := store.Get(context.Background(), "user1", "server1"); err == nil {
		t.Fatal("expected error when refresh token present but no Refresher configured")
	}
}

func TestMemoryTokenStore_RefreshesExpiredToken(t *testing.T) {
	refresher := &fakeRefresher{result: StoredToken{AccessToken: "new-token", ExpiresAt: time.Now().Add(time.Hour)}}
	store := NewMemoryTokenStore(refresher)
	tok := StoredToken{AccessToken: "old-token", RefreshToken: "r1", ExpiresAt: time.Now().Add(-time.Hour)}
	_ = store.Put(context.Background(), "user1", "server1", tok)

	got, err := store.Get(context.Background(), "user1", "server1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !refresher.called {
		t.Fatal("expected refresher to be invoked")
	}
	if got.AccessToken != "new-token" {
		t.Errorf("expected refreshed token, got %q", got.AccessToken)
	}

	// The refreshed token must also be persisted for subsequent Get calls.
	again, err := store.Get(context.Background(), "user1", "server1")
	if err != nil {
		t.Fatalf("second Get: %v", err)
	}
	if again.AccessToken != "new-token" {
		t.Errorf("expected persisted refreshed token, got %q", again.AccessToken)
	}
}

func TestMemoryTokenStore_Touch(t *testing.T) {
	store := NewMemoryTokenStore(nil)
	if _, ok := store.LastUsed("user1", "server1"); ok {
		t.Fatal("expected no last-used entry before Touch")
	}
	if err := store.Touch(context.Background(), "user1", "server1"); err != nil {
		t.Fatalf("Touch: %v", err)
	}
	if _, ok := store.LastUsed("user1", "server1"); !ok {
		t.Fatal("expected last-used entry after Touch")
	}
}

func TestIsCleanupNoise(t *testing.T) {
	cases := []struct {
		msg  string
		want bool
	}{
		{"Attempted to exit cancel scope in a different task than it was entered in", true},
		{"CANCEL SCOPE mismatch", true},
		{"connection refused", false},
		{"context deadline exceeded", false},
	}
	for _, c := range cases {
		if got := isCleanupNoise(errString(c.msg)); got != c.want {
			t.Errorf("isCleanupNoise(%q) = %v, want %v", c.msg, got, c.want)
		}
	}
}

type errString string

func (e errString) Error() string { return string(e) }
