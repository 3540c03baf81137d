package session

import "testing"

func TestThreadID_Format(t *testing.T) {
	if got := ThreadID("user-1", "session-1"); got != "user-1:session-1" {
		t.Errorf("expected %q, got %q", "user-1:session-1", got)
	}
}

func TestStoreFactory_UnsupportedEngine(t *testing.T) {
	if _, err := StoreFactory("bogus", "agent", nil, nil); err == nil {
		t.Fatal("expected error for unsupported engine name")
	}
}

func TestStoreFactory_SelectsByEngineName(t *testing.T) {
	native := NewNativeStore("agent")
	orchestrated := NewOrchestratedStore("agent", nil)

	got, err := StoreFactory("native", "agent", native, orchestrated)
	if err != nil {
		t.Fatalf("StoreFactory: %v", err)
	}
	if got != Store(native) {
		t.Error("expected native store to be selected for engine 'native'")
	}

	got, err = StoreFactory("orchestrated", "agent", native, orchestrated)
	if err != nil {
		t.Fatalf("StoreFactory: %v", err)
	}
	if got != Store(orchestrated) {
		t.Error("expected orchestrated store to be selected for engine 'orchestrated'")
	}
}
