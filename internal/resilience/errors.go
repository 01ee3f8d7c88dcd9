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

package resilience

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrorResponse represents the standard error response format across all APIs
type ErrorResponse struct {
	Error     string    `json:"error"`
	Code      string    `json:"code,omitempty"`
	Details   string    `json:"details,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorCode represents standard error codes used across the system
type ErrorCode string

const (
	// Client errors (4xx)
	ErrorCodeBadRequest      ErrorCode = "BAD_REQUEST"
	ErrorCodeNotFound        ErrorCode = "NOT_FOUND"
	ErrorCodeSessionNotFound ErrorCode = "SESSION_NOT_FOUND"
	ErrorCodeInvalidStep     ErrorCode = "INVALID_STEP"

	// Server errors (5xx)
	ErrorCodeInternalError      ErrorCode = "INTERNAL_ERROR"
	ErrorCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	ErrorCodeTimeout            ErrorCode = "TIMEOUT"
	ErrorCodeDependencyFailure  ErrorCode = "DEPENDENCY_FAILURE"
)

// ServiceError represents an error with additional context for proper handling
type ServiceError struct {
	Message    string
	Code       ErrorCode
	StatusCode int
	Internal   error
	Context    map[string]interface{}
}

// Error implements the error interface
func (e *ServiceError) Error() string {
	return e.Message
}

// Unwrap returns the underlying error
func (e *ServiceError) Unwrap() error {
	return e.Internal
}

// ToErrorResponse converts a ServiceError to an ErrorResponse
func (e *ServiceError) ToErrorResponse(requestID string) ErrorResponse {
	resp := ErrorResponse{
		Error:     e.Message,
		Code:      string(e.Code),
		RequestID: requestID,
		Timestamp: time.Now(),
	}
	if e.Code == ErrorCodeBadRequest || e.Code == ErrorCodeInvalidStep {
		if e.Internal != nil {
			resp.Details = e.Internal.Error()
		}
	}
	return resp
}

// NewServiceError creates a new ServiceError with the given parameters
func NewServiceError(message string, code ErrorCode, statusCode int, internal error) *ServiceError {
	return &ServiceError{
		Message:    message,
		Code:       code,
		StatusCode: statusCode,
		Internal:   internal,
		Context:    make(map[string]interface{}),
	}
}

// NewBadRequestError creates a new bad request error
func NewBadRequestError(message string, internal error) *ServiceError {
	return NewServiceError(message, ErrorCodeBadRequest, http.StatusBadRequest, internal)
}

// NewSessionNotFoundError creates an error for an unknown or expired onboarding session
func NewSessionNotFoundError(sessionID string, internal error) *ServiceError {
	se := NewServiceError("Onboarding session not found or expired", ErrorCodeSessionNotFound, http.StatusNotFound, internal)
	se.Context["session_id"] = sessionID
	return se
}

// NewInvalidStepError creates an error for a step name outside the onboarding sequence
func NewInvalidStepError(internal error) *ServiceError {
	return NewServiceError("Unknown onboarding step", ErrorCodeInvalidStep, http.StatusBadRequest, internal)
}

// NewInternalError creates a new internal server error
func NewInternalError(message string, internal error) *ServiceError {
	return NewServiceError(message, ErrorCodeInternalError, http.StatusInternalServerError, internal)
}

// NewServiceUnavailableError creates a new service unavailable error
func NewServiceUnavailableError(message string, internal error) *ServiceError {
	return NewServiceError(message, ErrorCodeServiceUnavailable, http.StatusServiceUnavailable, internal)
}

// NewTimeoutError creates a new timeout error
func NewTimeoutError(message string, internal error) *ServiceError {
	return NewServiceError(message, ErrorCodeTimeout, http.StatusGatewayTimeout, internal)
}

// IsTimeout reports whether err carries a timeout ServiceError anywhere in its chain
func IsTimeout(err error) bool {
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr.Code == ErrorCodeTimeout
	}
	return false
}

// ErrorHandler provides utilities for handling and formatting errors
type ErrorHandler struct {
	logger *zap.Logger
}

// NewErrorHandler creates a new error handler with the given logger
func NewErrorHandler(logger *zap.Logger) *ErrorHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ErrorHandler{logger: logger}
}

// WrapError wraps an error with user-friendly message and proper error code
func (eh *ErrorHandler) WrapError(err error, operation string) *ServiceError {
	if err == nil {
		return nil
	}

	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr
	}

	if eh == nil {
		return NewInternalError(fmt.Sprintf("An error occurred while %s", operation), err)
	}

	userMessage := eh.getUserFriendlyMessage(err, operation)
	code, statusCode := eh.categorizeError(err)

	eh.logger.Error("Error occurred during operation",
		zap.String("operation", operation),
		zap.Error(err),
		zap.String("user_message", userMessage),
		zap.String("error_code", string(code)))

	return NewServiceError(userMessage, code, statusCode, err)
}

// getUserFriendlyMessage converts technical errors to user-friendly messages
func (eh *ErrorHandler) getUserFriendlyMessage(err error, operation string) string {
	errStr := strings.ToLower(err.Error())

	switch {
	case strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline exceeded"):
		return "The assistant is taking longer than expected. Please try again."
	case strings.Contains(errStr, "connection refused") || strings.Contains(errStr, "connection reset"):
		return "Unable to reach the language model provider. Please try again later."
	case strings.Contains(errStr, "not found") || strings.Contains(errStr, "expired"):
		return "The requested onboarding session was not found."
	case strings.Contains(errStr, "invalid"):
		return "The request is invalid. Please check your input and try again."
	default:
		return fmt.Sprintf("An error occurred while %s. Please try again.", operation)
	}
}

// categorizeError determines the appropriate error code and HTTP status code
func (eh *ErrorHandler) categorizeError(err error) (ErrorCode, int) {
	errStr := strings.ToLower(err.Error())

	switch {
	case strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline exceeded"):
		return ErrorCodeTimeout, http.StatusGatewayTimeout
	case strings.Contains(errStr, "connection refused") || strings.Contains(errStr, "connection reset"):
		return ErrorCodeDependencyFailure, http.StatusBadGateway
	case strings.Contains(errStr, "not found") || strings.Contains(errStr, "expired"):
		return ErrorCodeNotFound, http.StatusNotFound
	case strings.Contains(errStr, "invalid"):
		return ErrorCodeBadRequest, http.StatusBadRequest
	default:
		return ErrorCodeInternalError, http.StatusInternalServerError
	}
}

// LogError logs an error with appropriate context
func (eh *ErrorHandler) LogError(err error, operation string, fields ...zap.Field) {
	if err == nil || eh == nil || eh.logger == nil {
		return
	}

	logFields := []zap.Field{
		zap.String("operation", operation),
		zap.Error(err),
	}
	logFields = append(logFields, fields...)

	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		logFields = append(logFields,
			zap.String("error_code", string(serviceErr.Code)),
			zap.Int("status_code", serviceErr.StatusCode))
	}

	eh.logger.Error("Operation failed", logFields...)
}
