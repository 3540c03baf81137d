package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// SessionService is the framework-managed session surface the orchestrated
// engine's runner owns (the Go analogue of ADK's DatabaseSessionService /
// InMemorySessionService). AgentShip ships an in-memory implementation;
// a real deployment wires this to whatever eino's own session/conversation
// store is for the chosen model backend.
type SessionService interface {
	CreateSession(ctx context.Context, appName, userID, sessionID string) error
}

// InMemorySessionService is a process-local SessionService, the default
// NewOrchestratedStore uses whenever it is given a nil service, matching
// the prototype's InMemorySessionService fallback.
type InMemorySessionService struct {
	mu       sync.Mutex
	sessions map[string]bool
}

// NewInMemorySessionService builds an empty InMemorySessionService.
func NewInMemorySessionService() *InMemorySessionService {
	return &InMemorySessionService{sessions: make(map[string]bool)}
}

func (s *InMemorySessionService) CreateSession(_ context.Context, appName, userID, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := appName + "/" + userID + "/" + sessionID
	if s.sessions[key] {
		return fmt.Errorf("session already exists: %s", key)
	}
	s.sessions[key] = true
	return nil
}

// OrchestratedStore is the orchestrated engine's Store implementation,
// delegating actual conversation-history bookkeeping to the engine's own
// runner via SessionService, and only handling session bootstrap here.
type OrchestratedStore struct {
	agentName string
	service   SessionService
}

// NewOrchestratedStore builds an OrchestratedStore. A nil service defaults
// to an InMemorySessionService.
func NewOrchestratedStore(agentName string, service SessionService) *OrchestratedStore {
	if service == nil {
		service = NewInMemorySessionService()
	}
	return &OrchestratedStore{agentName: agentName, service: service}
}

// Service exposes the underlying SessionService for the orchestrated
// engine's runner wiring. Callers outside internal/engine should not depend
// on this.
func (s *OrchestratedStore) Service() SessionService { return s.service }

// EnsureSessionExists creates the session, tolerating a
// duplicate/already-exists error exactly like AdkSessionStore does.
func (s *OrchestratedStore) EnsureSessionExists(ctx context.Context, userID, sessionID string) error {
	err := s.service.CreateSession(ctx, s.agentName, userID, sessionID)
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "duplicate") || strings.Contains(msg, "already exists") {
		return nil
	}
	return fmt.Errorf("create orchestrated session: %w", err)
}

var _ Store = (*OrchestratedStore)(nil)
