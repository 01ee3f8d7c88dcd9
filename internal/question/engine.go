// Package question produces the conversational prompts shown to the user at
// each onboarding step and the follow-ups asked after an answer.
package question

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/your-org/atom-onboarding/internal/flow"
	"github.com/your-org/atom-onboarding/internal/llm"
	"go.uber.org/zap"
)

const (
	// UnknownStepQuestion is asked for steps outside the flow
	UnknownStepQuestion = "Tell me more about your needs."
	// DefaultFollowUp is asked when no better follow-up can be generated
	DefaultFollowUp = "Can you tell me more about that?"
)

// FollowUpRequest describes the answer a follow-up reacts to
type FollowUpRequest struct {
	Step          flow.Step
	Answer        string
	FollowUpCount int
	SuggestNext   bool
	Context       flow.Context
}

// Engine generates questions through the LLM gateway and falls back to
// fixed templates whenever generation is unavailable or fails.
type Engine struct {
	gateway            llm.Generator
	logger             *zap.Logger
	timeout            time.Duration
	templates          map[flow.Step]string
	nextStepNames      map[flow.Step]string
	impatiencePatterns []*regexp.Regexp
}

// NewEngine creates a question engine; gateway may be nil
func NewEngine(gateway llm.Generator, timeout time.Duration, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Engine{
		gateway:            gateway,
		logger:             logger,
		timeout:            timeout,
		templates:          buildTemplates(),
		nextStepNames:      buildNextStepNames(),
		impatiencePatterns: buildImpatiencePatterns(),
	}
}

// Template returns the fixed question for step
func (e *Engine) Template(step flow.Step) string {
	if q, ok := e.templates[step]; ok {
		return q
	}
	return UnknownStepQuestion
}

// Question returns the question for step given what is known so far.
// The completion step always gets the fixed completion text.
func (e *Engine) Question(ctx context.Context, step flow.Step, c flow.Context) string {
	if step == flow.StepComplete {
		return e.Template(step)
	}
	if !e.llmAvailable() {
		return e.Template(step)
	}

	text, err := e.gateway.Generate(ctx, buildQuestionPrompt(step, c), e.timeout,
		llm.WithTemperature(0.7),
		llm.WithMaxOutputTokens(256))
	if err != nil {
		e.logger.Warn("Question generation failed, using template",
			zap.String("step", string(step)),
			zap.Error(err))
		return e.Template(step)
	}

	question := cleanResponse(text)
	if question == "" {
		return e.Template(step)
	}
	e.logger.Debug("Generated question", zap.String("step", string(step)), zap.String("question", question))
	return question
}

// FollowUp reacts to an answer: it offers to move on when asked to, jumps
// to the next question when the answer signals impatience, and otherwise
// asks the model for a short clarification.
func (e *Engine) FollowUp(ctx context.Context, req FollowUpRequest) string {
	next := flow.NextStep(req.Step)

	if req.SuggestNext {
		name, ok := e.nextStepNames[next]
		if !ok {
			name = "the next step"
		}
		return fmt.Sprintf("Thanks for that information. Would you like to add anything else or shall we move on to %s?", name)
	}

	if e.isImpatient(req.Answer) {
		return "Let's move on to the next question. " + e.Question(ctx, next, req.Context)
	}

	if !e.llmAvailable() {
		return DefaultFollowUp
	}

	text, err := e.gateway.Generate(ctx, buildFollowUpPrompt(req), e.timeout,
		llm.WithTemperature(0.2),
		llm.WithTopP(0.8),
		llm.WithMaxOutputTokens(256))
	if err != nil {
		e.logger.Warn("Follow-up generation failed", zap.String("step", string(req.Step)), zap.Error(err))
		return DefaultFollowUp
	}

	if followUp := cleanResponse(text); followUp != "" {
		return followUp
	}
	return DefaultFollowUp
}

func (e *Engine) isImpatient(answer string) bool {
	answer = strings.ToLower(answer)
	for _, p := range e.impatiencePatterns {
		if p.MatchString(answer) {
			return true
		}
	}
	return false
}

func (e *Engine) llmAvailable() bool {
	return e.gateway != nil && e.gateway.Configured()
}
