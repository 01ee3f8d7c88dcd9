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

package factory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/atom-onboarding/internal/config"
	"go.uber.org/zap/zaptest"
)

func TestNewGatewayWithoutCredentials(t *testing.T) {
	cfg := &config.Config{LLM: config.LLMConfig{Provider: config.ProviderAuto}}

	gateway, err := NewGateway(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.False(t, gateway.Configured())
}

func TestNewGatewaySelectsProvider(t *testing.T) {
	tests := []struct {
		name     string
		cfg      *config.Config
		expected string
	}{
		{
			name: "gemini",
			cfg: &config.Config{
				LLM:    config.LLMConfig{Provider: config.ProviderAuto},
				Gemini: config.GeminiConfig{APIKey: "gm-test"},
			},
			expected: "gemini",
		},
		{
			name: "openai",
			cfg: &config.Config{
				LLM:    config.LLMConfig{Provider: config.ProviderOpenAI},
				OpenAI: config.OpenAIConfig{APIKey: "sk-test1234567890", Endpoint: "http://localhost:1/v1"}, // pragma: allowlist secret
			},
			expected: "openai",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gateway, err := NewGateway(context.Background(), tt.cfg, zaptest.NewLogger(t))
			require.NoError(t, err)
			assert.True(t, gateway.Configured())
			assert.Equal(t, tt.expected, gateway.ProviderName())
		})
	}
}

func TestNewGatewayInvalidOpenAIKey(t *testing.T) {
	cfg := &config.Config{
		LLM:    config.LLMConfig{Provider: config.ProviderOpenAI},
		OpenAI: config.OpenAIConfig{APIKey: "not-an-openai-key"}, // pragma: allowlist secret
	}

	_, err := NewGateway(context.Background(), cfg, zaptest.NewLogger(t))
	assert.Error(t, err)
}
