package session

import (
	"context"
	"strings"
)

// Store is the abstract interface every engine depends on for session
// lifecycle management, independent of which engine owns conversation
// history. Its surface mirrors exactly what engines need today: confirming
// a session/thread exists before a run starts.
type Store interface {
	EnsureSessionExists(ctx context.Context, userID, sessionID string) error
}

// ThreadID builds the canonical checkpoint/thread key under which the SQL
// checkpointer stores a session's history. The orchestrated engine's
// SessionService keys sessions by appName/userID/sessionID instead.
func ThreadID(userID, sessionID string) string {
	return userID + ":" + sessionID
}

// StoreFactory builds the right Store implementation for an execution
// engine, mirroring SessionStoreFactory.create in the prototype.
func StoreFactory(engineName, agentName string, native *NativeStore, orchestrated *OrchestratedStore) (Store, error) {
	switch engineName {
	case "native":
		return native, nil
	case "orchestrated":
		return orchestrated, nil
	default:
		return nil, storeFactoryError(engineName)
	}
}

// IsAlreadyExists reports whether err looks like a "session already
// exists" failure, the tolerance both SessionService.CreateSession callers
// apply (mirroring the prototype's AdkSessionStore.ensure_session
// swallowing a duplicate-create error as success).
func IsAlreadyExists(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "already exists")
}

func storeFactoryError(engineName string) error {
	return &unsupportedEngineError{engineName: engineName}
}

type unsupportedEngineError struct{ engineName string }

func (e *unsupportedEngineError) Error() string {
	return "unsupported engine_name '" + e.engineName + "' for session.StoreFactory; expected one of: 'native', 'orchestrated'"
}
