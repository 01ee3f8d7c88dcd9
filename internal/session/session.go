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

// Package session keeps one onboarding state machine per user session. Each
// session carries its own lock; callers hold it for every operation that
// reads or mutates the session's flow state.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/your-org/atom-onboarding/internal/flow"
	"github.com/your-org/atom-onboarding/internal/recommend"
	"go.uber.org/zap"
)

// ErrSessionNotFound is returned for unknown or expired session IDs
var ErrSessionNotFound = errors.New("session not found")

// Config holds configuration for session management
type Config struct {
	DefaultTTL      time.Duration `json:"default_ttl"`
	MaxSessions     int           `json:"max_sessions"`
	CleanupInterval time.Duration `json:"cleanup_interval"`
}

// DefaultConfig returns default session configuration
func DefaultConfig() Config {
	return Config{
		DefaultTTL:      30 * time.Minute,
		MaxSessions:     1000,
		CleanupInterval: 5 * time.Minute,
	}
}

// Session is one user's onboarding conversation
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	ExpiresAt time.Time `json:"expires_at"`

	// Step is the step the user is currently answering
	Step flow.Step `json:"step"`
	// FollowUps counts follow-up questions asked for Step
	FollowUps int `json:"follow_ups"`

	Flow        *flow.Machine     `json:"-"`
	Recommender *recommend.Engine `json:"-"`

	mu sync.Mutex
	// guards UpdatedAt and ExpiresAt, which the manager refreshes
	// without holding mu
	meta sync.Mutex
}

// Lock acquires exclusive access to the session's flow state
func (s *Session) Lock() { s.mu.Lock() }

// Unlock releases the session lock
func (s *Session) Unlock() { s.mu.Unlock() }

// Expiry returns the current expiry time
func (s *Session) Expiry() time.Time {
	s.meta.Lock()
	defer s.meta.Unlock()
	return s.ExpiresAt
}

// Advance moves the session to step and resets the follow-up counter
func (s *Session) Advance(step flow.Step) {
	s.Step = step
	s.FollowUps = 0
}

// Initializer wires the per-session collaborators of a new session
type Initializer func(s *Session)

// Storage defines the interface for session storage backends
type Storage interface {
	// Get retrieves a live session by ID
	Get(ctx context.Context, sessionID string) (*Session, error)
	// Set stores a session for ttl
	Set(ctx context.Context, session *Session, ttl time.Duration) error
	// Delete removes a session
	Delete(ctx context.Context, sessionID string) error
	// Exists checks if a session exists
	Exists(ctx context.Context, sessionID string) (bool, error)
	// Count returns the number of live sessions
	Count(ctx context.Context) (int, error)
	// Cleanup removes expired sessions
	Cleanup(ctx context.Context) error
	// Close closes the storage backend
	Close() error
}

// Manager handles session lifecycle and storage operations
type Manager struct {
	storage Storage
	config  Config
	init    Initializer
	logger  *zap.Logger
	now     func() time.Time
}

// NewManager creates a session manager over the in-memory store. init is
// called once for each new session to attach its state machine and
// recommender.
func NewManager(config Config, init Initializer, logger *zap.Logger) *Manager {
	if config.DefaultTTL <= 0 {
		config.DefaultTTL = DefaultConfig().DefaultTTL
	}
	return NewManagerWithStorage(config, NewMemoryStorage(config.MaxSessions, config.DefaultTTL, config.CleanupInterval), init, logger)
}

// NewManagerWithStorage creates a session manager over storage
func NewManagerWithStorage(config Config, storage Storage, init Initializer, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.DefaultTTL <= 0 {
		config.DefaultTTL = DefaultConfig().DefaultTTL
	}
	return &Manager{
		storage: storage,
		config:  config,
		init:    init,
		logger:  logger,
		now:     time.Now,
	}
}

// GenerateSessionID returns a new random session ID
func GenerateSessionID() string {
	return uuid.NewString()
}

// ValidateSessionID reports whether id has the shape of a generated ID
func ValidateSessionID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// CreateSession starts a new session at the first step
func (m *Manager) CreateSession(ctx context.Context) (*Session, error) {
	now := m.now()
	s := &Session{
		ID:        GenerateSessionID(),
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(m.config.DefaultTTL),
		Step:      flow.StepProduct,
	}
	if m.init != nil {
		m.init(s)
	}
	if s.Flow == nil {
		s.Flow = flow.NewMachine(nil, m.logger)
	}

	if err := m.storage.Set(ctx, s, m.config.DefaultTTL); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	m.logger.Info("Created new session", zap.String("session_id", s.ID))
	return s, nil
}

// GetSession retrieves a session by ID and extends its expiry
func (m *Manager) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	if !ValidateSessionID(sessionID) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}

	s, err := m.storage.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if err := m.touch(ctx, s); err != nil {
		m.logger.Warn("Failed to extend session", zap.String("session_id", sessionID), zap.Error(err))
	}
	return s, nil
}

func (m *Manager) touch(ctx context.Context, s *Session) error {
	now := m.now()
	s.meta.Lock()
	s.UpdatedAt = now
	s.ExpiresAt = now.Add(m.config.DefaultTTL)
	s.meta.Unlock()
	return m.storage.Set(ctx, s, m.config.DefaultTTL)
}

// DeleteSession removes a session
func (m *Manager) DeleteSession(ctx context.Context, sessionID string) error {
	if err := m.storage.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	m.logger.Info("Deleted session", zap.String("session_id", sessionID))
	return nil
}

// Count returns the number of live sessions
func (m *Manager) Count(ctx context.Context) (int, error) {
	return m.storage.Count(ctx)
}

// Cleanup removes expired sessions immediately
func (m *Manager) Cleanup(ctx context.Context) error {
	return m.storage.Cleanup(ctx)
}

// Close gracefully closes the session manager
func (m *Manager) Close() error {
	if err := m.storage.Close(); err != nil {
		return fmt.Errorf("failed to close storage: %w", err)
	}
	return nil
}

// GetStats returns session statistics
func (m *Manager) GetStats(ctx context.Context) (map[string]interface{}, error) {
	count, err := m.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count sessions: %w", err)
	}

	return map[string]interface{}{
		"active_sessions": count,
		"max_sessions":    m.config.MaxSessions,
		"default_ttl":     m.config.DefaultTTL.String(),
	}, nil
}
