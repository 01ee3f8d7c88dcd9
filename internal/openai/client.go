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

package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"github.com/your-org/atom-onboarding/internal/llm"
	"go.uber.org/zap"
)

const (
	// ProviderName identifies this backend in logs and failures
	ProviderName = "openai"
	// DefaultModel is used when no model is configured
	DefaultModel = "gpt-4o-mini"
	// systemPrompt frames every completion as an onboarding assistant turn
	systemPrompt = "You are Atom, an assistant that helps B2B founders find potential customers. Follow the output format requested by the user exactly."
)

// Config holds the settings for the OpenAI provider
type Config struct {
	APIKey   string
	Endpoint string
	Model    string
}

// Client wraps the go-openai client as an llm.Provider
type Client struct {
	client *openai.Client
	logger *zap.Logger
	model  string
}

// NewClient creates a new OpenAI provider
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	if !strings.HasPrefix(cfg.APIKey, "sk-") {
		return nil, fmt.Errorf("invalid API key format")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.Endpoint != "" {
		clientConfig.BaseURL = strings.TrimSuffix(cfg.Endpoint, "/")
	}

	return NewClientWithConfig(clientConfig, cfg.Model, logger), nil
}

// NewClientWithConfig creates a provider from a prepared go-openai config
func NewClientWithConfig(clientConfig openai.ClientConfig, model string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if model == "" {
		model = DefaultModel
	}

	logger.Info("OpenAI provider initialized",
		zap.String("model", model),
		zap.String("endpoint", clientConfig.BaseURL))

	return &Client{
		client: openai.NewClientWithConfig(clientConfig),
		logger: logger,
		model:  model,
	}
}

// Name implements llm.Provider
func (c *Client) Name() string {
	return ProviderName
}

// Complete implements llm.Provider with a single chat completion attempt
func (c *Client) Complete(ctx context.Context, req llm.Request) (string, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}

	openaiReq := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
		MaxTokens:   req.MaxOutputTokens,
		Temperature: req.Temperature,
		TopP:        req.TopP,
	}

	c.logger.Debug("Creating chat completion",
		zap.String("model", model),
		zap.Int("max_tokens", req.MaxOutputTokens),
		zap.Float64("temperature", float64(req.Temperature)))

	resp, err := c.client.CreateChatCompletion(ctx, openaiReq)
	if err != nil {
		return "", c.handleAPIError(err)
	}

	if len(resp.Choices) == 0 {
		return "", &llm.Failure{
			Kind:     llm.KindEmptyResponse,
			Provider: ProviderName,
			Err:      errors.New("no choices returned from OpenAI"),
		}
	}

	c.logger.Debug("Chat completion successful",
		zap.String("finish_reason", string(resp.Choices[0].FinishReason)),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.Int("total_tokens", resp.Usage.TotalTokens))

	return resp.Choices[0].Message.Content, nil
}

// handleAPIError maps go-openai errors onto typed gateway failures
func (c *Client) handleAPIError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &llm.Failure{Kind: llm.KindTimeout, Provider: ProviderName, Err: err}
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &llm.Failure{
			Kind:       llm.KindStatus,
			Provider:   ProviderName,
			StatusCode: apiErr.HTTPStatusCode,
			Err:        fmt.Errorf("OpenAI API error: %s", apiErr.Message),
		}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &llm.Failure{
			Kind:       llm.KindStatus,
			Provider:   ProviderName,
			StatusCode: reqErr.HTTPStatusCode,
			Err:        err,
		}
	}

	return &llm.Failure{Kind: llm.KindTransport, Provider: ProviderName, Err: fmt.Errorf("OpenAI client error: %w", err)}
}
