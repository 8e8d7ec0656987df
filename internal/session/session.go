package session

import (
	"context"
	"strconv"
	"sync"
)

// Store remembers which profile each chat session is talking to.
type Store interface {
	ActiveProfile(ctx context.Context, key string) (string, bool, error)
	SetActiveProfile(ctx context.Context, key, profileName string) error
	Reset(ctx context.Context, key string) error
}

// UserKey is the session key of a messaging-platform user.
func UserKey(userID int64) string {
	return "tg:" + strconv.FormatInt(userID, 10)
}

// Memory keeps sessions for the lifetime of the process.
type Memory struct {
	mu       sync.RWMutex
	sessions map[string]string
}

func NewMemory() *Memory {
	return &Memory{sessions: make(map[string]string)}
}

func (m *Memory) ActiveProfile(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	name, ok := m.sessions[key]
	return name, ok, nil
}

func (m *Memory) SetActiveProfile(_ context.Context, key, profileName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[key] = profileName
	return nil
}

func (m *Memory) Reset(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, key)
	return nil
}
