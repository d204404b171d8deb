// Package api provides error handling utilities for the REST API.
package api

import (
	"errors"
	"net/http"

	"github.com/mabhinav2955-coder/kisan-sub000/internal/models"
)

// APIError represents a structured API error.
type APIError struct {
	HTTPStatus int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return e.Message
}

// Common API error codes.
const (
	ErrCodeInvalidJSON   = "INVALID_JSON"
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeAlreadyExists = "ALREADY_EXISTS"
	ErrCodeStoreError    = "STORE_ERROR"
	ErrCodeUpstream      = "UPSTREAM_ERROR"
	ErrCodeRateLimited   = "RATE_LIMITED"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// Predefined API errors.
var (
	ErrInvalidJSON = &APIError{
		HTTPStatus: http.StatusBadRequest,
		Code:       ErrCodeInvalidJSON,
		Message:    "Invalid JSON body",
	}
	ErrMessageRequired = &APIError{
		HTTPStatus: http.StatusBadRequest,
		Code:       ErrCodeValidation,
		Message:    "Message is required",
	}
	ErrActivityNotFound = &APIError{
		HTTPStatus: http.StatusNotFound,
		Code:       ErrCodeNotFound,
		Message:    "Activity not found",
	}
	ErrActivityAlreadyExists = &APIError{
		HTTPStatus: http.StatusConflict,
		Code:       ErrCodeAlreadyExists,
		Message:    "Activity already exists",
	}
	ErrProviderUnavailable = &APIError{
		HTTPStatus: http.StatusBadGateway,
		Code:       ErrCodeUpstream,
		Message:    "Unable to fetch response right now. Please try again later.",
	}
	ErrInternalError = &APIError{
		HTTPStatus: http.StatusInternalServerError,
		Code:       ErrCodeInternalError,
		Message:    "Internal server error",
	}
)

// NewValidationError creates a validation error with a custom message.
func NewValidationError(message string) *APIError {
	return &APIError{
		HTTPStatus: http.StatusBadRequest,
		Code:       ErrCodeValidation,
		Message:    message,
	}
}

// MapDomainError maps domain/model errors to API errors.
func MapDomainError(err error) *APIError {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, models.ErrMessageRequired):
		return ErrMessageRequired
	case errors.Is(err, models.ErrActivityNotFound):
		return ErrActivityNotFound
	case errors.Is(err, models.ErrActivityAlreadyExists):
		return ErrActivityAlreadyExists
	case errors.Is(err, models.ErrInvalidActivity):
		return NewValidationError(err.Error())
	case errors.Is(err, models.ErrProviderNotConfigured),
		errors.Is(err, models.ErrAllProvidersFailed):
		return ErrProviderUnavailable
	default:
		return &APIError{
			HTTPStatus: http.StatusInternalServerError,
			Code:       ErrCodeInternalError,
			Message:    "An unexpected error occurred",
		}
	}
}

// WriteAPIError writes an API error response.
func (h *Handler) WriteAPIError(w http.ResponseWriter, err *APIError) {
	h.writeError(w, err.HTTPStatus, err.Code, err.Message)
}

// HandleError maps a domain error to an API error and writes the response.
// Returns true if an error was handled, false if err was nil.
func (h *Handler) HandleError(w http.ResponseWriter, err error) bool {
	if err == nil {
		return false
	}

	h.WriteAPIError(w, MapDomainError(err))
	return true
}

// HandleStoreError handles storage errors with logging.
// Returns true if an error was handled, false if err was nil.
func (h *Handler) HandleStoreError(w http.ResponseWriter, err error, operation string) bool {
	if err == nil {
		return false
	}

	apiErr := MapDomainError(err)
	if apiErr.Code == ErrCodeInternalError {
		h.logger.Error().Err(err).Str("operation", operation).Msg("Storage operation failed")
		apiErr = &APIError{
			HTTPStatus: http.StatusInternalServerError,
			Code:       ErrCodeStoreError,
			Message:    "Failed to " + operation,
		}
	}

	h.WriteAPIError(w, apiErr)
	return true
}
