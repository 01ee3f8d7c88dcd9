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

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/your-org/atom-onboarding/internal/config"
	"github.com/your-org/atom-onboarding/internal/interactions"
	"github.com/your-org/atom-onboarding/internal/llm"
	"github.com/your-org/atom-onboarding/internal/llm/factory"
	"github.com/your-org/atom-onboarding/internal/logging"
	"github.com/your-org/atom-onboarding/internal/onboarding"
	"github.com/your-org/atom-onboarding/internal/question"
	"github.com/your-org/atom-onboarding/internal/resilience"
	"github.com/your-org/atom-onboarding/internal/session"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// app is the wired dependency graph shared by the subcommands
type app struct {
	cfg          *config.Config
	logger       *zap.Logger
	level        zap.AtomicLevel
	gateway      *llm.Gateway
	interactions *interactions.Logger
	service      *onboarding.Service
}

// newApp loads configuration and wires every component. Terminal commands
// pass quiet so logs go to stderr and stdout stays readable.
func newApp(ctx context.Context, opts *rootOptions, quiet bool) (*app, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}
	var logOpts []logging.Option
	if quiet {
		logOpts = append(logOpts, logging.WithConsole(zapcore.Lock(os.Stderr)))
	}

	logger, level, err := logging.New(cfg.Logging, logOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	masked := cfg.MaskSensitiveValues()
	logger.Info("Configuration loaded successfully",
		zap.String("provider", cfg.ResolvedProvider()),
		zap.String("model", masked.LLM.Model),
		zap.String("gemini_api_key", masked.Gemini.APIKey),
		zap.String("openai_api_key", masked.OpenAI.APIKey),
		zap.String("interactions_storage", cfg.Interactions.StorageType))

	gateway, err := factory.NewGateway(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	store, err := interactions.NewLogger(interactions.Config{
		StorageType: cfg.Interactions.StorageType,
		FilePath:    cfg.Interactions.FilePath,
		DBPath:      cfg.Interactions.DBPath,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize interaction log: %w", err)
	}

	patterns, err := question.LoadPatterns(cfg.Flow.PatternsPath)
	if err != nil {
		logger.Warn("Failed to load targeting patterns, using defaults",
			zap.String("path", cfg.Flow.PatternsPath),
			zap.Error(err))
		patterns = question.DefaultPatterns()
	}

	questionTimeout := cfg.LLM.QuestionTimeout
	if questionTimeout <= 0 {
		questionTimeout = resilience.QuestionTimeout
	}

	service := onboarding.NewService(onboarding.Config{
		DefaultCount:          cfg.Recommendations.DefaultCount,
		MaxCount:              cfg.Recommendations.MaxCount,
		KeywordTimeout:        cfg.LLM.KeywordTimeout,
		RecommendationTimeout: cfg.LLM.RecommendationTimeout,
		DetailedModel:         cfg.LLM.DetailedModel,
		Session: session.Config{
			DefaultTTL:      cfg.Session.TTL,
			MaxSessions:     cfg.Session.MaxSessions,
			CleanupInterval: cfg.Session.CleanupInterval,
		},
	}, gateway, question.NewEngine(gateway, questionTimeout, logger), patterns, store, logger)

	return &app{
		cfg:          cfg,
		logger:       logger,
		level:        level,
		gateway:      gateway,
		interactions: store,
		service:      service,
	}, nil
}

func (a *app) close() {
	if err := a.service.Close(); err != nil {
		a.logger.Warn("Failed to close session registry", zap.Error(err))
	}
	if err := a.interactions.Close(); err != nil {
		a.logger.Warn("Failed to close interaction log", zap.Error(err))
	}
	_ = a.logger.Sync()
}
