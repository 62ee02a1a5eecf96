package service

import (
	"context"
	"sync"

	"github.com/yongmin01/musiot-server/internal/storage"
)

// SessionManager hands out one AppState per signed-in user. States are
// created lazily on first access and live for the process lifetime; the
// store behind them is shared.
type SessionManager struct {
	store storage.Store

	mu     sync.Mutex
	states map[string]*AppState
}

// NewSessionManager creates a manager backed by the given store.
func NewSessionManager(store storage.Store) *SessionManager {
	return &SessionManager{
		store:  store,
		states: make(map[string]*AppState),
	}
}

// ForUser returns the user's session state, initializing it on first use.
// Initialization loads the group registry synchronously so the first
// request after sign-in already sees the summary list.
func (m *SessionManager) ForUser(ctx context.Context, userID string) (*AppState, error) {
	m.mu.Lock()
	state, ok := m.states[userID]
	if !ok {
		state = NewAppState(m.store)
		m.states[userID] = state
	}
	m.mu.Unlock()

	if !ok {
		if err := state.SetIdentity(ctx, userID); err != nil {
			m.mu.Lock()
			delete(m.states, userID)
			m.mu.Unlock()
			return nil, err
		}
	}
	return state, nil
}

// Drop removes the user's session state (sign-out).
func (m *SessionManager) Drop(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, userID)
}
