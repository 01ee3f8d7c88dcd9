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

// Package gemini provides the Google Gemini backend for the LLM gateway.
package gemini

import (
	"context"
	"errors"
	"fmt"

	"github.com/your-org/atom-onboarding/internal/llm"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

const (
	// ProviderName identifies this backend in logs and failures
	ProviderName = "gemini"
	// DefaultModel is used when no model is configured
	DefaultModel = "gemini-2.0-flash"
)

// Config holds the settings for the Gemini provider
type Config struct {
	APIKey   string
	Endpoint string
	Model    string
}

// Client adapts the genai SDK to llm.Provider
type Client struct {
	client *genai.Client
	logger *zap.Logger
	model  string
}

// NewClient creates a Gemini provider. No network call is made here.
func NewClient(ctx context.Context, cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.Endpoint != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.Endpoint}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	logger.Info("Gemini provider initialized",
		zap.String("model", model),
		zap.String("endpoint", cfg.Endpoint))

	return &Client{client: client, logger: logger, model: model}, nil
}

// Name implements llm.Provider
func (c *Client) Name() string {
	return ProviderName
}

// Complete implements llm.Provider with a single GenerateContent call
func (c *Client) Complete(ctx context.Context, req llm.Request) (string, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}

	genConfig := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(req.Temperature),
	}
	if req.TopP > 0 {
		genConfig.TopP = genai.Ptr(req.TopP)
	}
	if req.TopK > 0 {
		genConfig.TopK = genai.Ptr(float32(req.TopK))
	}
	if req.MaxOutputTokens > 0 {
		genConfig.MaxOutputTokens = int32(req.MaxOutputTokens)
	}

	c.logger.Debug("Calling Gemini generateContent",
		zap.String("model", model),
		zap.Int("max_output_tokens", req.MaxOutputTokens),
		zap.Float64("temperature", float64(req.Temperature)))

	resp, err := c.client.Models.GenerateContent(ctx, model, genai.Text(req.Prompt), genConfig)
	if err != nil {
		return "", classifyError(err)
	}

	if resp == nil || len(resp.Candidates) == 0 {
		return "", &llm.Failure{
			Kind:     llm.KindEmptyResponse,
			Provider: ProviderName,
			Err:      errors.New("no candidates returned from Gemini"),
		}
	}

	return resp.Text(), nil
}

func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &llm.Failure{Kind: llm.KindTimeout, Provider: ProviderName, Err: err}
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &llm.Failure{
			Kind:       llm.KindStatus,
			Provider:   ProviderName,
			StatusCode: apiErr.Code,
			Err:        fmt.Errorf("Gemini API error: %s", apiErr.Message),
		}
	}

	return &llm.Failure{Kind: llm.KindTransport, Provider: ProviderName, Err: fmt.Errorf("Gemini client error: %w", err)}
}
