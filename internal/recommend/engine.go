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

package recommend

import (
	"context"
	"fmt"
	"time"

	"github.com/your-org/atom-onboarding/internal/llm"
	"github.com/your-org/atom-onboarding/internal/resilience"
	"go.uber.org/zap"
)

// DefaultCount is used when a caller asks for zero or fewer records
const DefaultCount = 3

// Generation parameters
const (
	standardTemperature = 0.2
	detailedTemperature = 0.4
	standardMaxTokens   = 4096
	detailedMaxTokens   = 8192
)

// Engine generates recommendations for one session
type Engine struct {
	source        ContextSource
	gateway       llm.Generator
	ranker        *Ranker
	logger        *zap.Logger
	timeout       time.Duration
	detailedModel string
	now           func() time.Time
}

// EngineOption configures an Engine
type EngineOption func(*Engine)

// WithTimeout overrides the generation timeout
func WithTimeout(timeout time.Duration) EngineOption {
	return func(e *Engine) {
		if timeout > 0 {
			e.timeout = timeout
		}
	}
}

// WithDetailedModel sets the model used when a focus amplifier applies
func WithDetailedModel(model string) EngineOption {
	return func(e *Engine) { e.detailedModel = model }
}

// WithClock injects the clock used for the prompt date and ranking
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.now = now
		e.ranker = e.ranker.WithClock(now)
	}
}

// NewEngine creates an engine reading answers from source. gateway may be
// nil, in which case every request is served from the mock dataset.
func NewEngine(source ContextSource, gateway llm.Generator, logger *zap.Logger, opts ...EngineOption) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		source:  source,
		gateway: gateway,
		ranker:  NewRanker(),
		logger:  logger,
		timeout: resilience.RecommendationTimeout,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Generate returns at most count ranked recommendations. It never fails:
// every error path is reported through Result.FallbackReason and served
// from the mock dataset.
func (e *Engine) Generate(ctx context.Context, count int) *Result {
	if count <= 0 {
		count = DefaultCount
	}

	profile := ProfileFrom(e.source)
	e.logger.Info("Generating recommendations",
		zap.String("product", profile.Product),
		zap.String("market", profile.Market),
		zap.String("company_size", profile.CompanySize),
		zap.Bool("has_zip_code", profile.ZipCode != ""),
		zap.Int("keyword_count", len(profile.Keywords)),
		zap.Int("count", count))

	if e.gateway == nil || !e.gateway.Configured() {
		return e.fallback(profile, count, llm.ErrNotConfigured.Error())
	}

	records, err := e.generateWithLLM(ctx, profile, count)
	if err != nil {
		e.logger.Error("Recommendation generation failed, serving mock data", zap.Error(err))
		return e.fallback(profile, count, err.Error())
	}

	return &Result{
		Recommendations: e.ranker.Rank(records, profile.Keywords, profile.ZipCode),
		Source:          SourceLLM,
	}
}

func (e *Engine) generateWithLLM(ctx context.Context, profile Profile, count int) ([]Recommendation, error) {
	focus := DetectFocus(profile)
	opts := []llm.Option{
		llm.WithTemperature(standardTemperature),
		llm.WithTopP(0.95),
		llm.WithTopK(40),
		llm.WithMaxOutputTokens(standardMaxTokens),
	}
	if focus.Detailed() {
		opts = append(opts,
			llm.WithModel(e.detailedModel),
			llm.WithTemperature(detailedTemperature),
			llm.WithMaxOutputTokens(detailedMaxTokens))
	}

	text, err := e.gateway.Generate(ctx, BuildPrompt(profile, e.now()), e.timeout, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to generate recommendations: %w", err)
	}
	e.logger.Debug("Received recommendation response",
		zap.Int("length", len(text)),
		zap.Bool("detailed", focus.Detailed()))

	extraction, err := Extract(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse recommendations: %w", err)
	}
	e.logger.Info("Extracted recommendations",
		zap.String("strategy", string(extraction.Strategy)),
		zap.Int("records", len(extraction.Records)),
		zap.Int("dropped", extraction.Dropped))

	records := extraction.Records
	if len(records) > count {
		records = records[:count]
	}

	verified := e.verifyAll(records)
	if len(verified) == 0 {
		return nil, fmt.Errorf("no valid recommendations in response (%d extracted)", len(records))
	}
	return verified, nil
}

func (e *Engine) verifyAll(records []Recommendation) []Recommendation {
	verified := make([]Recommendation, 0, len(records))
	for i := range records {
		if err := Verify(&records[i]); err != nil {
			e.logger.Warn("Removed invalid recommendation",
				zap.String("name", records[i].Name),
				zap.Error(err))
			continue
		}
		verified = append(verified, records[i])
	}
	return verified
}

func (e *Engine) fallback(profile Profile, count int, reason string) *Result {
	records, err := MockRecommendations()
	if err != nil {
		e.logger.Error("Mock recommendations unavailable", zap.Error(err))
		return &Result{Recommendations: []Recommendation{}, Source: SourceMock, FallbackReason: reason}
	}

	ranked := e.ranker.Rank(e.verifyAll(records), profile.Keywords, profile.ZipCode)
	if len(ranked) > count {
		ranked = ranked[:count]
	}

	e.logger.Info("Serving mock recommendations",
		zap.String("reason", reason),
		zap.Int("count", len(ranked)))
	return &Result{Recommendations: ranked, Source: SourceMock, FallbackReason: reason}
}
