// Copyright 2024 Atom Onboarding Project
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

// MemoryStorage keeps sessions in a TTL cache whose janitor purges expired
// entries every cleanup interval. Sessions are stored by pointer so the
// state machine they carry is shared with callers.
type MemoryStorage struct {
	cache       *cache.Cache
	maxSessions int
	// serializes capacity checks with inserts
	mutex sync.Mutex
}

// NewMemoryStorage creates a new in-memory session storage. maxSessions of
// zero or less means unbounded.
func NewMemoryStorage(maxSessions int, defaultTTL, cleanupInterval time.Duration) *MemoryStorage {
	return &MemoryStorage{
		cache:       cache.New(defaultTTL, cleanupInterval),
		maxSessions: maxSessions,
	}
}

// Get retrieves a live session by ID
func (m *MemoryStorage) Get(_ context.Context, sessionID string) (*Session, error) {
	if x, found := m.cache.Get(sessionID); found {
		return x.(*Session), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
}

// Set stores a session for ttl, evicting the session closest to expiry
// when the store is full.
func (m *MemoryStorage) Set(_ context.Context, session *Session, ttl time.Duration) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, exists := m.cache.Get(session.ID); !exists && m.maxSessions > 0 && m.cache.ItemCount() >= m.maxSessions {
		m.evictOldestSession()
	}

	if ttl <= 0 {
		ttl = cache.DefaultExpiration
	}
	m.cache.Set(session.ID, session, ttl)
	return nil
}

// Delete removes a session
func (m *MemoryStorage) Delete(_ context.Context, sessionID string) error {
	if _, found := m.cache.Get(sessionID); !found {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	m.cache.Delete(sessionID)
	return nil
}

// Exists checks if a session exists
func (m *MemoryStorage) Exists(_ context.Context, sessionID string) (bool, error) {
	_, found := m.cache.Get(sessionID)
	return found, nil
}

// Count returns the number of stored sessions, including expired ones the
// janitor has not purged yet
func (m *MemoryStorage) Count(_ context.Context) (int, error) {
	return m.cache.ItemCount(), nil
}

// Cleanup removes expired sessions
func (m *MemoryStorage) Cleanup(_ context.Context) error {
	m.cache.DeleteExpired()
	return nil
}

// Close clears all data
func (m *MemoryStorage) Close() error {
	m.cache.Flush()
	return nil
}

// evictOldestSession removes the session that would expire first, which is
// the least recently touched one
func (m *MemoryStorage) evictOldestSession() {
	var oldestID string
	var oldest int64
	for id, item := range m.cache.Items() {
		if oldestID == "" || item.Expiration < oldest {
			oldestID = id
			oldest = item.Expiration
		}
	}
	if oldestID != "" {
		m.cache.Delete(oldestID)
	}
}
