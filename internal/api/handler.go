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

// Package api exposes the onboarding service over HTTP with gin
package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/your-org/atom-onboarding/internal/flow"
	"github.com/your-org/atom-onboarding/internal/health"
	"github.com/your-org/atom-onboarding/internal/interactions"
	"github.com/your-org/atom-onboarding/internal/onboarding"
	"github.com/your-org/atom-onboarding/internal/question"
	"github.com/your-org/atom-onboarding/internal/resilience"
	"github.com/your-org/atom-onboarding/internal/session"
	"go.uber.org/zap"
)

const (
	// maxAnswerLength bounds a single answer
	maxAnswerLength = 4000

	defaultInteractionLimit = 20
	maxInteractionLimit     = 200
)

// InteractionLog is the query side of the interaction audit trail
type InteractionLog interface {
	Recent(limit int) ([]interactions.Interaction, error)
	StepCounts() (map[string]int, error)
}

// Handler serves the onboarding API
type Handler struct {
	service      *onboarding.Service
	health       *health.Manager
	interactions InteractionLog
	errors       *resilience.ErrorHandler
	logger       *zap.Logger
}

// NewHandler creates a new API handler; healthManager and interactionLog may be nil
func NewHandler(service *onboarding.Service, healthManager *health.Manager, interactionLog InteractionLog, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		service:      service,
		health:       healthManager,
		interactions: interactionLog,
		errors:       resilience.NewErrorHandler(logger),
		logger:       logger,
	}
}

// RegisterRoutes registers the onboarding routes with the Gin router
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.GET("/health", h.healthCheck)

	api := router.Group("/api")
	{
		api.POST("/sessions", h.createSession)
		api.DELETE("/sessions/:id", h.endSession)
		api.POST("/sessions/:id/reset", h.resetSession)
		api.POST("/onboarding", h.onboardingStep)
		api.GET("/get_question", h.getQuestion)
		api.POST("/follow_up", h.followUp)
		api.GET("/keywords", h.getKeywords)
		api.GET("/recommendations", h.getRecommendations)
		api.GET("/context", h.getContext)
		api.POST("/save_interaction", h.saveInteraction)
		api.GET("/interactions", h.listInteractions)
	}
}

// NewRouter builds a gin engine with the middleware stack and every route
func NewRouter(h *Handler) *gin.Engine {
	router := gin.New()
	router.Use(RequestID(), RequestLogger(h.logger), gin.Recovery(), NoCache())
	h.RegisterRoutes(router)
	return router
}

// OnboardingRequest submits the answer for one step
type OnboardingRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	Step      string `json:"step" binding:"required"`
	Answer    string `json:"answer"`
}

// FollowUpRequest asks for a clarifying question about an answer
type FollowUpRequest struct {
	SessionID     string `json:"session_id" binding:"required"`
	Step          string `json:"step"`
	Answer        string `json:"answer"`
	FollowUpCount int    `json:"follow_up_count"`
	SuggestNext   bool   `json:"suggest_next"`
}

// SaveInteractionRequest appends a question/answer pair to the audit trail
type SaveInteractionRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	Step      string `json:"step"`
	Question  string `json:"question"`
	Answer    string `json:"answer"`
}

// healthCheck handles GET /health
func (h *Handler) healthCheck(c *gin.Context) {
	if h.health == nil {
		c.JSON(http.StatusOK, gin.H{"status": health.StatusHealthy})
		return
	}

	result := h.health.Check(c.Request.Context())
	statusCode := http.StatusOK
	if result.Status == health.StatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}
	c.JSON(statusCode, result)
}

// createSession handles POST /api/sessions
func (h *Handler) createSession(c *gin.Context) {
	turn, err := h.service.CreateSession(c.Request.Context())
	if err != nil {
		h.fail(c, err, "creating session")
		return
	}
	c.JSON(http.StatusCreated, turn)
}

// endSession handles DELETE /api/sessions/:id
func (h *Handler) endSession(c *gin.Context) {
	if err := h.service.EndSession(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err, "ending session")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Session ended"})
}

// resetSession handles POST /api/sessions/:id/reset
func (h *Handler) resetSession(c *gin.Context) {
	turn, err := h.service.Reset(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err, "resetting session")
		return
	}
	c.JSON(http.StatusOK, turn)
}

// onboardingStep handles POST /api/onboarding
func (h *Handler) onboardingStep(c *gin.Context) {
	var req OnboardingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, resilience.NewBadRequestError("Invalid request format", err), "storing answer")
		return
	}
	if len(req.Answer) > maxAnswerLength {
		h.fail(c, resilience.NewBadRequestError("Answer is too long", nil), "storing answer")
		return
	}

	turn, err := h.service.StoreAnswer(c.Request.Context(), req.SessionID, req.Step, strings.TrimSpace(req.Answer))
	if err != nil {
		h.fail(c, err, "storing answer")
		return
	}
	c.JSON(http.StatusOK, turn)
}

// getQuestion handles GET /api/get_question
func (h *Handler) getQuestion(c *gin.Context) {
	sessionID := c.Query("session_id")
	step := c.Query("step")

	text, err := h.service.GetQuestion(c.Request.Context(), sessionID, step)
	if err != nil {
		h.fail(c, err, "generating question")
		return
	}

	keywords, err := h.service.Keywords(c.Request.Context(), sessionID)
	if err != nil {
		h.fail(c, err, "generating question")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"question": text,
		"keywords": keywords,
	})
}

// followUp handles POST /api/follow_up
func (h *Handler) followUp(c *gin.Context) {
	var req FollowUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, resilience.NewBadRequestError("Invalid request format", err), "generating follow-up")
		return
	}

	text, err := h.service.FollowUp(c.Request.Context(), req.SessionID, question.FollowUpRequest{
		Step:          flow.Step(req.Step),
		Answer:        req.Answer,
		FollowUpCount: req.FollowUpCount,
		SuggestNext:   req.SuggestNext,
	})
	if err != nil {
		h.fail(c, err, "generating follow-up")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "question": text})
}

// getKeywords handles GET /api/keywords
func (h *Handler) getKeywords(c *gin.Context) {
	keywords, err := h.service.Keywords(c.Request.Context(), c.Query("session_id"))
	if err != nil {
		h.fail(c, err, "loading keywords")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "keywords": keywords})
}

// getRecommendations handles GET /api/recommendations
func (h *Handler) getRecommendations(c *gin.Context) {
	count := 0
	if raw := c.Query("count"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			h.fail(c, resilience.NewBadRequestError("count must be an integer", err), "generating recommendations")
			return
		}
		count = parsed
	}

	result, err := h.service.GenerateRecommendations(c.Request.Context(), c.Query("session_id"), count)
	if err != nil {
		h.fail(c, err, "generating recommendations")
		return
	}
	c.JSON(http.StatusOK, result)
}

// getContext handles GET /api/context
func (h *Handler) getContext(c *gin.Context) {
	ctx, err := h.service.Context(c.Request.Context(), c.Query("session_id"))
	if err != nil {
		h.fail(c, err, "loading context")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "context": ctx.Fields()})
}

// saveInteraction handles POST /api/save_interaction
func (h *Handler) saveInteraction(c *gin.Context) {
	var req SaveInteractionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, resilience.NewBadRequestError("Invalid request format", err), "saving interaction")
		return
	}

	if err := h.service.SaveInteraction(c.Request.Context(), req.SessionID, req.Step, req.Question, req.Answer); err != nil {
		h.fail(c, err, "saving interaction")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Interaction saved successfully"})
}

// listInteractions handles GET /api/interactions
func (h *Handler) listInteractions(c *gin.Context) {
	const operation = "listing interactions"

	if h.interactions == nil {
		h.fail(c, resilience.NewServiceUnavailableError("Interaction log is disabled", interactions.ErrQueryUnsupported), operation)
		return
	}

	limit := defaultInteractionLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			h.fail(c, resilience.NewBadRequestError("limit must be a positive integer", err), operation)
			return
		}
		limit = min(parsed, maxInteractionLimit)
	}

	recent, err := h.interactions.Recent(limit)
	if err != nil {
		h.fail(c, queryError(err), operation)
		return
	}
	counts, err := h.interactions.StepCounts()
	if err != nil {
		h.fail(c, queryError(err), operation)
		return
	}

	if recent == nil {
		recent = []interactions.Interaction{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "interactions": recent, "step_counts": counts})
}

func queryError(err error) error {
	if errors.Is(err, interactions.ErrQueryUnsupported) {
		return resilience.NewServiceUnavailableError("Interaction queries require SQLite storage", err)
	}
	return err
}

// fail maps err to a ServiceError and writes it as the response body
func (h *Handler) fail(c *gin.Context, err error, operation string) {
	var serviceErr *resilience.ServiceError
	switch {
	case errors.As(err, &serviceErr):
	case errors.Is(err, session.ErrSessionNotFound):
		serviceErr = resilience.NewSessionNotFoundError(sessionIDFrom(c), err)
	case errors.Is(err, onboarding.ErrUnknownStep):
		serviceErr = resilience.NewInvalidStepError(err)
	default:
		serviceErr = h.errors.WrapError(err, operation)
	}

	h.errors.LogError(serviceErr, operation, zap.String("path", c.FullPath()))
	c.AbortWithStatusJSON(serviceErr.StatusCode, serviceErr.ToErrorResponse(c.GetString(requestIDKey)))
}

func sessionIDFrom(c *gin.Context) string {
	if id := c.Param("id"); id != "" {
		return id
	}
	return c.Query("session_id")
}
