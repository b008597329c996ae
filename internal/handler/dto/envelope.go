// Package dto provides Data Transfer Objects for API requests and responses.
package dto

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/recipex/recipex/internal/model"
)

// SuccessResponse is the envelope wrapping every successful response.
type SuccessResponse struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Data    any            `json:"data"`
	Meta    map[string]any `json:"meta,omitempty"`
}

// ErrorResponse is the envelope wrapping every error response.
type ErrorResponse struct {
	Error                bool                    `json:"error"`
	Message              string                  `json:"message"`
	ErrorCode            string                  `json:"error_code"`
	StatusCode           int                     `json:"status_code"`
	Details              map[string]any          `json:"details,omitempty"`
	ValidationErrors     []model.ValidationError `json:"validation_errors,omitempty"`
	ValidationErrorCount int                     `json:"validation_error_count,omitempty"`
}

// NewSuccessResponse builds the success envelope.
func NewSuccessResponse(message string, data any, meta map[string]any) SuccessResponse {
	return SuccessResponse{
		Success: true,
		Message: message,
		Data:    data,
		Meta:    meta,
	}
}

// NewErrorResponse builds a generic error envelope.
func NewErrorResponse(status int, code, message string, details map[string]any) ErrorResponse {
	return ErrorResponse{
		Error:      true,
		Message:    message,
		ErrorCode:  code,
		StatusCode: status,
		Details:    details,
	}
}

// NewNotFoundResponse builds the 404 envelope for a missing resource.
// The resource type names which lookup failed, e.g. "Recipe" or
// "External recipe".
func NewNotFoundResponse(resourceType, id string) ErrorResponse {
	return NewErrorResponse(
		http.StatusNotFound,
		"not_found",
		fmt.Sprintf("%s not found with ID '%s'", resourceType, id),
		map[string]any{
			"requested_id":  id,
			"resource_type": strings.ToLower(resourceType),
		},
	)
}

// NewValidationErrorResponse builds the 422 envelope listing every failed
// field check.
func NewValidationErrorResponse(errs model.ValidationErrors) ErrorResponse {
	resp := NewErrorResponse(
		http.StatusUnprocessableEntity,
		"validation_failed",
		"Validation failed - please check your data and try again",
		map[string]any{
			"error_count":        len(errs),
			"validation_summary": "Multiple validation errors found",
		},
	)
	resp.ValidationErrors = errs
	resp.ValidationErrorCount = len(errs)
	return resp
}

// NewServerErrorResponse builds the 500 envelope.
func NewServerErrorResponse(message string) ErrorResponse {
	return NewErrorResponse(
		http.StatusInternalServerError,
		"internal_server_error",
		message,
		map[string]any{"suggestion": "Please try again later or contact support"},
	)
}
