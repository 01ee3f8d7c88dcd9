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

// Package health aggregates named dependency checks into one status report
package health

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	// StatusHealthy represents healthy status
	StatusHealthy = "healthy"
	// StatusUnhealthy represents unhealthy status
	StatusUnhealthy = "unhealthy"
	// StatusDegraded represents degraded status
	StatusDegraded = "degraded"
	// DefaultTimeout is the default timeout for health checks
	DefaultTimeout = 5 * time.Second
)

// CheckResult represents the result of a health check
type CheckResult struct {
	Status    string                 `json:"status"`
	Latency   time.Duration          `json:"latency"`
	Error     string                 `json:"error,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// Response represents the complete health check response
type Response struct {
	Status       string                 `json:"status"`
	Service      string                 `json:"service"`
	Version      string                 `json:"version"`
	Environment  string                 `json:"environment"`
	Uptime       time.Duration          `json:"uptime"`
	Dependencies map[string]CheckResult `json:"dependencies"`
	Metadata     map[string]interface{} `json:"metadata"`
	Timestamp    time.Time              `json:"timestamp"`
}

// Checker interface for health checks
type Checker interface {
	Check(ctx context.Context) CheckResult
}

// CheckerFunc is a function adapter for the Checker interface
type CheckerFunc func(ctx context.Context) CheckResult

// Check implements the Checker interface
func (f CheckerFunc) Check(ctx context.Context) CheckResult {
	return f(ctx)
}

// Manager manages health checks for a service
type Manager struct {
	serviceName string
	version     string
	startTime   time.Time
	checkers    map[string]Checker
	timeout     time.Duration
	logger      *zap.Logger
	mu          sync.RWMutex
}

// NewManager creates a new health check manager
func NewManager(serviceName, version string, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		serviceName: serviceName,
		version:     version,
		startTime:   time.Now(),
		checkers:    make(map[string]Checker),
		timeout:     DefaultTimeout,
		logger:      logger,
	}
}

// SetTimeout sets the timeout for health checks
func (m *Manager) SetTimeout(timeout time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timeout = timeout
}

// AddChecker adds a health checker
func (m *Manager) AddChecker(name string, checker Checker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkers[name] = checker
}

// AddCheckerFunc adds a health checker function
func (m *Manager) AddCheckerFunc(name string, checkFunc func(ctx context.Context) CheckResult) {
	m.AddChecker(name, CheckerFunc(checkFunc))
}

// Check performs all health checks and returns the result. One unhealthy
// dependency makes the service unhealthy; a degraded one degrades it.
func (m *Manager) Check(ctx context.Context) Response {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	dependencies := make(map[string]CheckResult, len(m.checkers))
	overallStatus := StatusHealthy

	for name, checker := range m.checkers {
		start := time.Now()
		result := checker.Check(ctx)
		result.Latency = time.Since(start)
		result.Timestamp = time.Now()

		dependencies[name] = result

		if result.Status == StatusUnhealthy {
			overallStatus = StatusUnhealthy
		} else if result.Status == StatusDegraded && overallStatus != StatusUnhealthy {
			overallStatus = StatusDegraded
		}
	}

	if overallStatus != StatusHealthy {
		m.logger.Warn("Health check not healthy", zap.String("status", overallStatus))
	}

	return Response{
		Status:       overallStatus,
		Service:      m.serviceName,
		Version:      m.version,
		Environment:  getEnvironment(),
		Uptime:       time.Since(m.startTime),
		Dependencies: dependencies,
		Metadata:     getSystemMetadata(),
		Timestamp:    time.Now(),
	}
}

func getSystemMetadata() map[string]interface{} {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	return map[string]interface{}{
		"go_version":   runtime.Version(),
		"goroutines":   runtime.NumGoroutine(),
		"memory_alloc": memStats.Alloc,
		"process_id":   os.Getpid(),
	}
}

func getEnvironment() string {
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "development"
	}
	return env
}

// Provider is the part of the LLM gateway the provider check inspects
type Provider interface {
	Configured() bool
	ProviderName() string
}

// ProviderChecker reports degraded when no LLM credential is configured
func ProviderChecker(p Provider) Checker {
	return CheckerFunc(func(_ context.Context) CheckResult {
		if p == nil || !p.Configured() {
			return CheckResult{
				Status: StatusDegraded,
				Error:  "no LLM provider configured; serving templates and mock recommendations",
			}
		}
		return CheckResult{
			Status:   StatusHealthy,
			Metadata: map[string]interface{}{"provider": p.ProviderName()},
		}
	})
}

// SessionStats is the part of the session registry the session check inspects
type SessionStats interface {
	GetStats(ctx context.Context) (map[string]interface{}, error)
}

// SessionChecker reports the registry statistics. A full registry is
// degraded because new sessions start evicting old ones.
func SessionChecker(sessions SessionStats) Checker {
	return CheckerFunc(func(ctx context.Context) CheckResult {
		stats, err := sessions.GetStats(ctx)
		if err != nil {
			return CheckResult{
				Status: StatusUnhealthy,
				Error:  fmt.Sprintf("session registry unavailable: %v", err),
			}
		}

		status := StatusHealthy
		active, _ := stats["active_sessions"].(int)
		maxSessions, _ := stats["max_sessions"].(int)
		if maxSessions > 0 && active >= maxSessions {
			status = StatusDegraded
		}
		return CheckResult{
			Status:   status,
			Metadata: stats,
		}
	})
}

// StoreChecker pings a storage backend. A failed ping is degraded; onboarding
// continues without the audit trail.
func StoreChecker(name string, ping func() error) Checker {
	return CheckerFunc(func(_ context.Context) CheckResult {
		if err := ping(); err != nil {
			return CheckResult{
				Status: StatusDegraded,
				Error:  fmt.Sprintf("%s ping failed: %v", name, err),
			}
		}
		return CheckResult{
			Status:   StatusHealthy,
			Metadata: map[string]interface{}{"backend": name},
		}
	})
}
