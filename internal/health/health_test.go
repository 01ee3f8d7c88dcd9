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

package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

type stubProvider struct {
	configured bool
}

func (p stubProvider) Configured() bool     { return p.configured }
func (p stubProvider) ProviderName() string { return "gemini" }

type stubStats struct {
	active, max int
	err         error
}

func (s stubStats) GetStats(context.Context) (map[string]interface{}, error) {
	if s.err != nil {
		return nil, s.err
	}
	return map[string]interface{}{"active_sessions": s.active, "max_sessions": s.max}, nil
}

func TestManager_Check(t *testing.T) {
	manager := NewManager("atom", "1.0.0", zap.NewNop())

	manager.AddCheckerFunc("healthy", func(ctx context.Context) CheckResult {
		return CheckResult{Status: StatusHealthy}
	})
	manager.AddCheckerFunc("unhealthy", func(ctx context.Context) CheckResult {
		return CheckResult{Status: StatusUnhealthy, Error: "service is down"}
	})

	result := manager.Check(context.Background())

	if result.Status != StatusUnhealthy {
		t.Errorf("Expected status to be unhealthy, got %s", result.Status)
	}
	if result.Service != "atom" {
		t.Errorf("Expected service to be atom, got %s", result.Service)
	}
	if result.Version != "1.0.0" {
		t.Errorf("Expected version to be 1.0.0, got %s", result.Version)
	}
	if len(result.Dependencies) != 2 {
		t.Errorf("Expected 2 dependencies, got %d", len(result.Dependencies))
	}
	if got := result.Dependencies["unhealthy"].Error; got != "service is down" {
		t.Errorf("Expected error message, got %s", got)
	}
	if result.Dependencies["healthy"].Timestamp.IsZero() {
		t.Error("Expected timestamp to be set")
	}
}

func TestManager_Check_DegradedStatus(t *testing.T) {
	manager := NewManager("atom", "1.0.0", zap.NewNop())
	manager.AddCheckerFunc("healthy", func(ctx context.Context) CheckResult {
		return CheckResult{Status: StatusHealthy}
	})
	manager.AddCheckerFunc("degraded", func(ctx context.Context) CheckResult {
		return CheckResult{Status: StatusDegraded}
	})

	if got := manager.Check(context.Background()).Status; got != StatusDegraded {
		t.Errorf("Expected status to be degraded, got %s", got)
	}
}

func TestManager_Check_NoCheckers(t *testing.T) {
	manager := NewManager("atom", "1.0.0", nil)
	result := manager.Check(context.Background())

	if result.Status != StatusHealthy {
		t.Errorf("Expected status to be healthy, got %s", result.Status)
	}
	if result.Metadata["go_version"] == nil {
		t.Error("Expected go_version metadata")
	}
}

func TestManager_Check_Timeout(t *testing.T) {
	manager := NewManager("atom", "1.0.0", zap.NewNop())
	manager.SetTimeout(20 * time.Millisecond)
	manager.AddCheckerFunc("slow", func(ctx context.Context) CheckResult {
		<-ctx.Done()
		return CheckResult{Status: StatusUnhealthy, Error: ctx.Err().Error()}
	})

	result := manager.Check(context.Background())
	if result.Status != StatusUnhealthy {
		t.Errorf("Expected status to be unhealthy, got %s", result.Status)
	}
}

func TestProviderChecker(t *testing.T) {
	ctx := context.Background()

	if got := ProviderChecker(stubProvider{configured: true}).Check(ctx); got.Status != StatusHealthy {
		t.Errorf("Configured provider status = %s, want healthy", got.Status)
	} else if got.Metadata["provider"] != "gemini" {
		t.Errorf("Expected provider metadata, got %v", got.Metadata)
	}

	if got := ProviderChecker(stubProvider{}).Check(ctx); got.Status != StatusDegraded {
		t.Errorf("Unconfigured provider status = %s, want degraded", got.Status)
	}

	if got := ProviderChecker(nil).Check(ctx); got.Status != StatusDegraded {
		t.Errorf("Nil provider status = %s, want degraded", got.Status)
	}
}

func TestSessionChecker(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name  string
		stats stubStats
		want  string
	}{
		{"room left", stubStats{active: 3, max: 10}, StatusHealthy},
		{"unbounded", stubStats{active: 3}, StatusHealthy},
		{"full", stubStats{active: 10, max: 10}, StatusDegraded},
		{"error", stubStats{err: errors.New("closed")}, StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SessionChecker(tt.stats).Check(ctx)
			if got.Status != tt.want {
				t.Errorf("Status = %s, want %s", got.Status, tt.want)
			}
		})
	}

	got := SessionChecker(stubStats{active: 2, max: 5}).Check(ctx)
	if got.Metadata["active_sessions"] != 2 || got.Metadata["max_sessions"] != 5 {
		t.Errorf("Expected registry stats in metadata, got %v", got.Metadata)
	}
}

func TestStoreChecker(t *testing.T) {
	ctx := context.Background()

	if got := StoreChecker("sqlite", func() error { return nil }).Check(ctx); got.Status != StatusHealthy {
		t.Errorf("Status = %s, want healthy", got.Status)
	}

	got := StoreChecker("sqlite", func() error { return errors.New("database is locked") }).Check(ctx)
	if got.Status != StatusDegraded {
		t.Errorf("Status = %s, want degraded", got.Status)
	}
	if got.Error != "sqlite ping failed: database is locked" {
		t.Errorf("Unexpected error message %q", got.Error)
	}
}
