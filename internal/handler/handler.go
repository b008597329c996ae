// Package handler translates HTTP requests into service calls and wraps
// the results in the shared response envelopes.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/recipex/recipex/internal/handler/dto"
	"github.com/recipex/recipex/internal/model"
)

// Handler serves the endpoints that need no service dependencies.
type Handler struct{}

// New returns the dependency-free handler set.
func New() *Handler {
	return &Handler{}
}

// Info is the root endpoint describing the service.
// GET /
func (h *Handler) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"name":    "Recipe Explorer API",
		"version": "1.0.0",
	})
}

// NotFound handles 404 responses for unknown routes.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, dto.NewErrorResponse(http.StatusNotFound, "not_found", "Resource not found", nil))
}

// MethodNotAllowed answers 405 for known routes hit with the wrong verb.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, dto.NewErrorResponse(http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed", nil))
}

// writeJSON serializes data with the given status. Every response in
// the API flows through here.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// The status line is already written; nothing to recover here.
		_ = err
	}
}

// writeSuccess writes a success envelope.
func writeSuccess(w http.ResponseWriter, status int, message string, data any, meta map[string]any) {
	writeJSON(w, status, dto.NewSuccessResponse(message, data, meta))
}

// writeError writes an error envelope using its embedded status code.
func writeError(w http.ResponseWriter, resp dto.ErrorResponse) {
	writeJSON(w, resp.StatusCode, resp)
}

// writeValidationError writes the 422 envelope for a failed validation.
// Errors that carry no field details degrade to a single generic entry.
func writeValidationError(w http.ResponseWriter, err error) {
	var verrs model.ValidationErrors
	if !errors.As(err, &verrs) {
		verrs = model.ValidationErrors{{Field: "request", Message: err.Error(), Code: "invalid"}}
	}
	writeError(w, dto.NewValidationErrorResponse(verrs))
}
