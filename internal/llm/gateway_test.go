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

package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type stubProvider struct {
	text    string
	err     error
	delay   time.Duration
	lastReq Request
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) Complete(ctx context.Context, req Request) (string, error) {
	s.lastReq = req
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return s.text, s.err
}

func TestGatewayNotConfigured(t *testing.T) {
	g := NewGateway(nil, zaptest.NewLogger(t))

	assert.False(t, g.Configured())
	assert.Equal(t, "none", g.ProviderName())

	_, err := g.Generate(context.Background(), "hello", time.Second)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestGatewayGenerate(t *testing.T) {
	provider := &stubProvider{text: "```json\n[\"a\"]\n```"}
	g := NewGateway(provider, zaptest.NewLogger(t))

	text, err := g.Generate(context.Background(), "prompt", time.Second,
		WithTemperature(0.4), WithMaxOutputTokens(8192), WithModel("detailed"), WithTopK(20), WithTopP(0.8))
	require.NoError(t, err)

	assert.Equal(t, "```json\n[\"a\"]\n```", text, "text must be returned verbatim")
	assert.Equal(t, "prompt", provider.lastReq.Prompt)
	assert.Equal(t, float32(0.4), provider.lastReq.Temperature)
	assert.Equal(t, 8192, provider.lastReq.MaxOutputTokens)
	assert.Equal(t, "detailed", provider.lastReq.Model)
	assert.Equal(t, 20, provider.lastReq.TopK)
	assert.Equal(t, float32(0.8), provider.lastReq.TopP)
}

func TestGatewayDefaults(t *testing.T) {
	provider := &stubProvider{text: "ok"}
	g := NewGateway(provider, zaptest.NewLogger(t))

	_, err := g.Generate(context.Background(), "prompt", time.Second, WithModel(""))
	require.NoError(t, err)

	assert.Equal(t, float32(0.2), provider.lastReq.Temperature)
	assert.Equal(t, 1024, provider.lastReq.MaxOutputTokens)
	assert.Empty(t, provider.lastReq.Model)
}

func TestGatewayFailures(t *testing.T) {
	tests := []struct {
		name     string
		provider *stubProvider
		timeout  time.Duration
		kind     FailureKind
	}{
		{
			name:     "timeout",
			provider: &stubProvider{text: "late", delay: time.Second},
			timeout:  20 * time.Millisecond,
			kind:     KindTimeout,
		},
		{
			name:     "transport",
			provider: &stubProvider{err: errors.New("connection refused")},
			timeout:  time.Second,
			kind:     KindTransport,
		},
		{
			name:     "status",
			provider: &stubProvider{err: &Failure{Kind: KindStatus, StatusCode: 500, Err: errors.New("boom")}},
			timeout:  time.Second,
			kind:     KindStatus,
		},
		{
			name:     "empty",
			provider: &stubProvider{text: "   "},
			timeout:  time.Second,
			kind:     KindEmptyResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGateway(tt.provider, zaptest.NewLogger(t))
			_, err := g.Generate(context.Background(), "prompt", tt.timeout)
			require.Error(t, err)
			assert.True(t, IsFailureKind(err, tt.kind), "expected %s, got %v", tt.kind, err)

			var failure *Failure
			require.ErrorAs(t, err, &failure)
			assert.Equal(t, "stub", failure.Provider)
		})
	}
}

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"[\"a\", \"b\"]", "[\"a\", \"b\"]"},
		{"```json\n[\"a\"]\n```", "[\"a\"]"},
		{"```\n{\"k\": 1}\n```", "{\"k\": 1}"},
		{"  ```JSON\n[1]\n```  ", "[1]"},
		{"```[\"x\"]```", "[\"x\"]"},
		{"plain text", "plain text"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, StripCodeFence(tt.in), "input %q", tt.in)
	}
}
