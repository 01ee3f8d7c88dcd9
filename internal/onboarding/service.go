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

// Package onboarding is the boundary every front end talks to. It resolves
// a session by ID, serializes work on it and returns plain data for the
// HTTP API and the CLI alike.
package onboarding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/your-org/atom-onboarding/internal/flow"
	"github.com/your-org/atom-onboarding/internal/keywords"
	"github.com/your-org/atom-onboarding/internal/llm"
	"github.com/your-org/atom-onboarding/internal/question"
	"github.com/your-org/atom-onboarding/internal/recommend"
	"github.com/your-org/atom-onboarding/internal/resilience"
	"github.com/your-org/atom-onboarding/internal/session"
	"go.uber.org/zap"
)

const (
	// DefaultMaxCount caps a single recommendation request
	DefaultMaxCount = 10
	// CompletionMessage is returned alongside the final results
	CompletionMessage = "You're all set! Generating your results."
)

// ErrUnknownStep is returned when an answer names a step outside the flow
var ErrUnknownStep = errors.New("unknown onboarding step")

// Recorder receives the audit trail of answered steps
type Recorder interface {
	RecordWithQuestion(sessionID, step, question, answer string) error
}

// Config holds the tunables of the onboarding service
type Config struct {
	DefaultCount          int
	MaxCount              int
	KeywordTimeout        time.Duration
	RecommendationTimeout time.Duration
	DetailedModel         string
	Session               session.Config
}

// Turn is what a front end shows after an operation: the step the user is
// on, the question to ask and, once the flow completes, the results.
type Turn struct {
	SessionID        string            `json:"session_id"`
	Step             flow.Step         `json:"step"`
	Question         string            `json:"question,omitempty"`
	Keywords         []string          `json:"keywords"`
	Completed        bool              `json:"completed"`
	Recommendations  *recommend.Result `json:"recommendations,omitempty"`
	SuggestedMessage string            `json:"suggested_message,omitempty"`
}

// Service runs onboarding conversations over the session registry
type Service struct {
	sessions  *session.Manager
	questions *question.Engine
	patterns  *question.Patterns
	recorder  Recorder
	config    Config
	logger    *zap.Logger
}

// NewService creates the onboarding service. gateway may be nil or
// unconfigured; recorder may be nil.
func NewService(cfg Config, gateway llm.Generator, questions *question.Engine, patterns *question.Patterns, recorder Recorder, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DefaultCount <= 0 {
		cfg.DefaultCount = recommend.DefaultCount
	}
	if cfg.MaxCount <= 0 {
		cfg.MaxCount = DefaultMaxCount
	}
	if cfg.KeywordTimeout <= 0 {
		cfg.KeywordTimeout = resilience.KeywordTimeout
	}
	if cfg.RecommendationTimeout <= 0 {
		cfg.RecommendationTimeout = resilience.RecommendationTimeout
	}
	if questions == nil {
		questions = question.NewEngine(gateway, resilience.QuestionTimeout, logger)
	}
	if patterns == nil {
		patterns = question.DefaultPatterns()
	}

	s := &Service{
		questions: questions,
		patterns:  patterns,
		recorder:  recorder,
		config:    cfg,
		logger:    logger,
	}

	synthesizer := keywords.NewSynthesizer(gateway, cfg.KeywordTimeout, logger)
	s.sessions = session.NewManager(cfg.Session, func(sess *session.Session) {
		sess.Flow = flow.NewMachine(synthesizer, logger.With(zap.String("session_id", sess.ID)))
		sess.Recommender = recommend.NewEngine(sess.Flow, gateway, logger,
			recommend.WithTimeout(cfg.RecommendationTimeout),
			recommend.WithDetailedModel(cfg.DetailedModel))
	}, logger)

	return s
}

// Sessions exposes the registry for health reporting
func (s *Service) Sessions() *session.Manager {
	return s.sessions
}

// Close releases the session registry
func (s *Service) Close() error {
	return s.sessions.Close()
}

// CreateSession starts a conversation and returns its first question
func (s *Service) CreateSession(ctx context.Context) (*Turn, error) {
	sess, err := s.sessions.CreateSession(ctx)
	if err != nil {
		return nil, err
	}

	sess.Lock()
	defer sess.Unlock()
	return s.turn(ctx, sess), nil
}

// EndSession discards a conversation
func (s *Service) EndSession(ctx context.Context, sessionID string) error {
	return s.sessions.DeleteSession(ctx, sessionID)
}

// Reset clears every answer of a conversation and returns to the first step
func (s *Service) Reset(ctx context.Context, sessionID string) (*Turn, error) {
	sess, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	sess.Lock()
	defer sess.Unlock()

	sess.Flow.Reset()
	sess.Advance(flow.StepProduct)
	s.logger.Info("Reset onboarding session", zap.String("session_id", sessionID))
	return s.turn(ctx, sess), nil
}

// GetQuestion returns the question for step. An empty step means the step
// the session is currently on.
func (s *Service) GetQuestion(ctx context.Context, sessionID, step string) (string, error) {
	sess, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return "", err
	}

	sess.Lock()
	defer sess.Unlock()

	target := sess.Step
	if step != "" {
		target = flow.Step(step)
	}
	return s.questions.Question(ctx, target, sess.Flow.BuildContext()), nil
}

// StoreAnswer records answer for step, moves the session to the following
// step and returns its question. Completing the flow returns the cleaned
// keywords and the recommendations instead.
func (s *Service) StoreAnswer(ctx context.Context, sessionID, step, answer string) (*Turn, error) {
	parsed, ok := flow.ParseStep(step)
	if !ok || parsed == flow.StepComplete {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStep, step)
	}

	sess, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	sess.Lock()
	defer sess.Unlock()

	s.logger.Info("Onboarding answer",
		zap.String("session_id", sessionID),
		zap.String("step", step))

	sess.Flow.StoreAnswer(ctx, parsed, answer)
	s.record(sessionID, step, answer)

	sess.Advance(flow.NextStep(parsed))
	return s.turn(ctx, sess), nil
}

// NextStep returns the step following step; unknown steps restart the flow
func (s *Service) NextStep(step string) flow.Step {
	return flow.NextStep(flow.Step(step))
}

// GenerateRecommendations ranks companies for the session's answers.
// count is clamped to the configured maximum; zero or less means the
// default count.
func (s *Service) GenerateRecommendations(ctx context.Context, sessionID string, count int) (*recommend.Result, error) {
	sess, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	sess.Lock()
	defer sess.Unlock()
	return sess.Recommender.Generate(ctx, s.clampCount(count)), nil
}

// FollowUp asks a clarifying question about the answer just given
func (s *Service) FollowUp(ctx context.Context, sessionID string, req question.FollowUpRequest) (string, error) {
	sess, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return "", err
	}

	sess.Lock()
	defer sess.Unlock()

	if req.Step == "" {
		req.Step = sess.Step
	}
	if req.Step == sess.Step {
		req.FollowUpCount = max(req.FollowUpCount, sess.FollowUps)
		sess.FollowUps++
	}
	req.Context = sess.Flow.BuildContext()

	return s.questions.FollowUp(ctx, req), nil
}

// Keywords returns the session's cleaned keyword list
func (s *Service) Keywords(ctx context.Context, sessionID string) ([]string, error) {
	sess, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	sess.Lock()
	defer sess.Unlock()
	return sess.Flow.Keywords(), nil
}

// Context returns what the session has learned so far
func (s *Service) Context(ctx context.Context, sessionID string) (flow.Context, error) {
	sess, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return flow.Context{}, err
	}

	sess.Lock()
	defer sess.Unlock()
	return sess.Flow.BuildContext(), nil
}

// SaveInteraction appends a question/answer pair to the audit trail without
// touching the flow state
func (s *Service) SaveInteraction(ctx context.Context, sessionID, step, questionText, answer string) error {
	if _, err := s.sessions.GetSession(ctx, sessionID); err != nil {
		return err
	}
	if s.recorder == nil {
		return nil
	}
	if err := s.recorder.RecordWithQuestion(sessionID, step, questionText, answer); err != nil {
		return fmt.Errorf("failed to save interaction: %w", err)
	}
	return nil
}

// turn builds the view of sess at its current step. Callers hold the
// session lock.
func (s *Service) turn(ctx context.Context, sess *session.Session) *Turn {
	t := &Turn{
		SessionID: sess.ID,
		Step:      sess.Step,
		Keywords:  sess.Flow.Keywords(),
	}

	if sess.Step != flow.StepComplete {
		t.Question = s.questions.Question(ctx, sess.Step, sess.Flow.BuildContext())
		return t
	}

	t.Completed = true
	t.Question = CompletionMessage
	t.Recommendations = sess.Recommender.Generate(ctx, s.config.DefaultCount)
	t.SuggestedMessage = s.patterns.SuggestedMessage(sess.Flow.Product())

	s.logger.Info("Onboarding complete",
		zap.String("session_id", sess.ID),
		zap.Int("keyword_count", len(t.Keywords)),
		zap.Int("recommendation_count", len(t.Recommendations.Recommendations)),
		zap.String("source", string(t.Recommendations.Source)))

	return t
}

func (s *Service) clampCount(count int) int {
	if count <= 0 {
		return s.config.DefaultCount
	}
	if count > s.config.MaxCount {
		return s.config.MaxCount
	}
	return count
}

func (s *Service) record(sessionID, step, answer string) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.RecordWithQuestion(sessionID, step, "", answer); err != nil {
		s.logger.Warn("Failed to record interaction",
			zap.String("session_id", sessionID),
			zap.Error(err))
	}
}
