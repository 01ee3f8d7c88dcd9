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

package resilience

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const (
	// QuestionTimeout bounds a single question or follow-up generation call
	QuestionTimeout = 5 * time.Second
	// KeywordTimeout bounds a single keyword synthesis call
	KeywordTimeout = 10 * time.Second
	// RecommendationTimeout bounds a full recommendation generation call
	RecommendationTimeout = 90 * time.Second
)

// TimeoutFunc is a function that can be executed with a timeout
type TimeoutFunc func(ctx context.Context) error

// WithTimeout executes fn with a deadline. The call is attempted once; a
// deadline hit returns a timeout ServiceError even if fn ignores ctx.
func WithTimeout(ctx context.Context, timeout time.Duration, logger *zap.Logger, fn TimeoutFunc) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- fn(timeoutCtx)
	}()

	select {
	case err := <-done:
		if err != nil {
			logger.Debug("Operation completed with error",
				zap.Error(err),
				zap.Duration("timeout", timeout))
		}
		return err
	case <-timeoutCtx.Done():
		if ctx.Err() != nil {
			// caller cancelled, not our deadline
			return ctx.Err()
		}
		logger.Warn("Operation timed out",
			zap.Duration("timeout", timeout),
			zap.Error(timeoutCtx.Err()))
		return NewTimeoutError("Operation timed out", timeoutCtx.Err())
	}
}
