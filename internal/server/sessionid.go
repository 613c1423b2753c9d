package server

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// sessionIDManager issues UUID v4 session ids for the streamable
// transport and tracks terminated ids so a stale client can't resume one.
type sessionIDManager struct {
	mu         sync.Mutex
	terminated map[string]struct{}
}

func newSessionIDManager() *sessionIDManager {
	return &sessionIDManager{terminated: make(map[string]struct{})}
}

func (m *sessionIDManager) Generate() string {
	return uuid.NewString()
}

func (m *sessionIDManager) Validate(sessionID string) (isTerminated bool, err error) {
	if _, err := uuid.Parse(sessionID); err != nil {
		return false, fmt.Errorf("invalid session id: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	_, dead := m.terminated[sessionID]
	return dead, nil
}

func (m *sessionIDManager) Terminate(sessionID string) (isNotAllowed bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.terminated[sessionID] = struct{}{}
	return false, nil
}
