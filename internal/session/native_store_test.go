package session

import (
	"context"
	"testing"
)

func TestNativeStore_EnsureSessionExists_OpensInMemoryByDefault(t *testing.T) {
	t.Setenv(envShortTermMemory, "")
	store := NewNativeStore("agent")
	if err := store.EnsureSessionExists(context.Background(), "user1", "sess1"); err != nil {
		t.Fatalf("EnsureSessionExists: %v", err)
	}
}

func TestNativeStore_RequiresURIWhenDatabaseBackendSelected(t *testing.T) {
	t.Setenv(envShortTermMemory, "Database")
	t.Setenv(envSessionStoreURI, "")
	store := NewNativeStore("agent")
	if err := store.EnsureSessionExists(context.Background(), "user1", "sess1"); err == nil {
		t.Fatal("expected error when AGENT_SHORT_TERM_MEMORY=Database but AGENT_SESSION_STORE_URI is unset")
	}
}

func TestNativeStore_CheckpointRoundTrip(t *testing.T) {
	t.Setenv(envShortTermMemory, "")
	store := NewNativeStore("agent")
	ctx := context.Background()

	cp, err := store.GetCheckpointer(ctx)
	if err != nil {
		t.Fatalf("GetCheckpointer: %v", err)
	}

	threadID := ThreadID("user1", "sess1")
	if loaded, err := cp.Load(ctx, threadID); err != nil {
		t.Fatalf("Load: %v", err)
	} else if loaded != nil {
		t.Fatalf("expected no checkpoint before first Save, got %+v", loaded)
	}

	if err := cp.Save(ctx, threadID, []byte(`{"messages":[]}`)); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := cp.Load(ctx, threadID)
	if err != nil {
		t.Fatalf("Load after Save: %v", err)
	}
	if loaded == nil {
		t.Fatal("expected a checkpoint after Save")
	}
	if string(loaded.State) != `{"messages":[]}` {
		t.Errorf("expected saved state round-tripped, got %q", loaded.State)
	}

	// Saving again for the same thread must update, not duplicate.
	if err := cp.Save(ctx, threadID, []byte(`{"messages":["hi"]}`)); err != nil {
		t.Fatalf("second Save: %v", err)
	}
	loaded, err = cp.Load(ctx, threadID)
	if err != nil {
		t.Fatalf("Load after second Save: %v", err)
	}
	if string(loaded.State) != `{"messages":["hi"]}` {
		t.Errorf("expected updated state, got %q", loaded.State)
	}
}
