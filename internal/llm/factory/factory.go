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
	"fmt"

	"github.com/your-org/atom-onboarding/internal/config"
	"github.com/your-org/atom-onboarding/internal/gemini"
	"github.com/your-org/atom-onboarding/internal/llm"
	"github.com/your-org/atom-onboarding/internal/openai"
	"go.uber.org/zap"
)

// NewGateway builds the gateway for the configured provider. Missing
// credentials are not an error: the returned gateway reports itself as not
// configured and callers use their deterministic fallbacks.
func NewGateway(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*llm.Gateway, error) {
	provider, err := NewProvider(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	if provider == nil {
		logger.Warn("No LLM credential configured, using template questions and mock recommendations",
			zap.String("requested_provider", cfg.LLM.Provider))
		return llm.NewGateway(nil, logger), nil
	}

	return llm.NewGateway(provider, logger), nil
}

// NewProvider returns the concrete provider, or nil when no credential is set
func NewProvider(ctx context.Context, cfg *config.Config, logger *zap.Logger) (llm.Provider, error) {
	switch cfg.ResolvedProvider() {
	case config.ProviderGemini:
		client, err := gemini.NewClient(ctx, gemini.Config{
			APIKey:   cfg.Gemini.APIKey,
			Endpoint: cfg.Gemini.Endpoint,
			Model:    cfg.LLM.Model,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Gemini provider: %w", err)
		}
		return client, nil
	case config.ProviderOpenAI:
		client, err := openai.NewClient(openai.Config{
			APIKey:   cfg.OpenAI.APIKey,
			Endpoint: cfg.OpenAI.Endpoint,
			Model:    cfg.LLM.Model,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize OpenAI provider: %w", err)
		}
		return client, nil
	case "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.LLM.Provider)
	}
}
