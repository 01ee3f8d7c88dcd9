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

// Package llm is the narrow boundary between onboarding logic and whichever
// text-generation provider is configured. Callers hand it a prompt and a
// timeout and get back verbatim text or a typed failure.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/your-org/atom-onboarding/internal/resilience"
	"go.uber.org/zap"
)

// ErrNotConfigured is returned when no provider credential is configured.
// Callers check for it before attempting a call and switch to their
// deterministic fallback.
var ErrNotConfigured = errors.New("llm: no provider credential configured")

// FailureKind classifies a failed generation call
type FailureKind string

const (
	// KindTimeout means the per-call deadline elapsed
	KindTimeout FailureKind = "timeout"
	// KindTransport covers network errors and client-side failures
	KindTransport FailureKind = "transport"
	// KindStatus means the provider answered with a non-success status
	KindStatus FailureKind = "status"
	// KindEmptyResponse means the provider answered without any text
	KindEmptyResponse FailureKind = "empty_response"
)

// Failure is the typed error returned for every unsuccessful generation call
type Failure struct {
	Kind       FailureKind
	Provider   string
	StatusCode int
	Err        error
}

func (f *Failure) Error() string {
	if f.StatusCode != 0 {
		return fmt.Sprintf("%s generation failed (%s, status %d): %v", f.Provider, f.Kind, f.StatusCode, f.Err)
	}
	return fmt.Sprintf("%s generation failed (%s): %v", f.Provider, f.Kind, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// IsFailureKind reports whether err is a Failure of the given kind
func IsFailureKind(err error, kind FailureKind) bool {
	var failure *Failure
	return errors.As(err, &failure) && failure.Kind == kind
}

// Request carries everything a provider needs for one completion
type Request struct {
	Prompt          string
	Model           string
	Temperature     float32
	TopP            float32
	TopK            int
	MaxOutputTokens int
}

// Provider is implemented by each concrete backend
type Provider interface {
	Name() string
	Complete(ctx context.Context, req Request) (string, error)
}

// Option tunes a single request
type Option func(*Request)

// WithModel overrides the provider's default model
func WithModel(model string) Option {
	return func(r *Request) {
		if model != "" {
			r.Model = model
		}
	}
}

// WithTemperature sets the sampling temperature
func WithTemperature(t float32) Option {
	return func(r *Request) { r.Temperature = t }
}

// WithTopP sets nucleus sampling
func WithTopP(p float32) Option {
	return func(r *Request) { r.TopP = p }
}

// WithTopK sets top-k sampling
func WithTopK(k int) Option {
	return func(r *Request) { r.TopK = k }
}

// WithMaxOutputTokens caps the response length
func WithMaxOutputTokens(n int) Option {
	return func(r *Request) { r.MaxOutputTokens = n }
}

// Generator is the capability the rest of the module depends on
type Generator interface {
	Configured() bool
	Generate(ctx context.Context, prompt string, timeout time.Duration, opts ...Option) (string, error)
}

// Gateway wraps a Provider with the per-call timeout and failure typing.
// A Gateway with a nil provider is valid and reports itself as not configured.
type Gateway struct {
	provider Provider
	logger   *zap.Logger
}

// NewGateway creates a gateway over provider, which may be nil
func NewGateway(provider Provider, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{provider: provider, logger: logger}
}

// Configured reports whether a provider credential is available
func (g *Gateway) Configured() bool {
	return g != nil && g.provider != nil
}

// ProviderName returns the backing provider's name, or "none"
func (g *Gateway) ProviderName() string {
	if !g.Configured() {
		return "none"
	}
	return g.provider.Name()
}

// Generate sends prompt to the provider exactly once and returns its text
// verbatim, markdown fences included.
func (g *Gateway) Generate(ctx context.Context, prompt string, timeout time.Duration, opts ...Option) (string, error) {
	if !g.Configured() {
		return "", ErrNotConfigured
	}

	req := Request{
		Prompt:          prompt,
		Temperature:     0.2,
		TopP:            0.95,
		TopK:            40,
		MaxOutputTokens: 1024,
	}
	for _, opt := range opts {
		opt(&req)
	}

	start := time.Now()
	var text string
	err := resilience.WithTimeout(ctx, timeout, g.logger, func(ctx context.Context) error {
		out, err := g.provider.Complete(ctx, req)
		if err != nil {
			return err
		}
		text = out
		return nil
	})
	if err != nil {
		failure := g.classify(err)
		g.logger.Warn("LLM generation failed",
			zap.String("provider", failure.Provider),
			zap.String("kind", string(failure.Kind)),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(failure.Err))
		return "", failure
	}

	if strings.TrimSpace(text) == "" {
		return "", &Failure{
			Kind:     KindEmptyResponse,
			Provider: g.provider.Name(),
			Err:      errors.New("provider returned no text"),
		}
	}

	g.logger.Debug("LLM generation completed",
		zap.String("provider", g.provider.Name()),
		zap.Int("prompt_length", len(prompt)),
		zap.Int("response_length", len(text)),
		zap.Duration("elapsed", time.Since(start)))

	return text, nil
}

func (g *Gateway) classify(err error) *Failure {
	var failure *Failure
	if errors.As(err, &failure) {
		if failure.Provider == "" {
			failure.Provider = g.provider.Name()
		}
		return failure
	}
	if resilience.IsTimeout(err) || errors.Is(err, context.DeadlineExceeded) {
		return &Failure{Kind: KindTimeout, Provider: g.provider.Name(), Err: err}
	}
	return &Failure{Kind: KindTransport, Provider: g.provider.Name(), Err: err}
}

// StripCodeFence removes a surrounding markdown code fence, with or without
// a language tag, and returns the trimmed inner text.
func StripCodeFence(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		// drop the language tag line
		first := strings.TrimSpace(s[:nl])
		if !strings.ContainsAny(first, "[{\"") {
			s = s[nl+1:]
		}
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
