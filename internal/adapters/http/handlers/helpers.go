package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/conjugo/conjugo/internal/adapters/http/dto"
	"github.com/conjugo/conjugo/internal/domain"
)

// respondJSON writes a JSON response with the given status code
func respondJSON(w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError writes the error envelope
func respondError(w http.ResponseWriter, code, message string, status int) {
	respondJSON(w, dto.NewErrorResponse(code, message), status)
}

// respondDomainError maps a domain error to the envelope and status code.
func respondDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrVerbNotFound),
		errors.Is(err, domain.ErrProblemNotFound),
		errors.Is(err, domain.ErrRequestNotFound),
		errors.Is(err, domain.ErrSentenceNotFound),
		errors.Is(err, domain.ErrConjugationNotFound),
		errors.Is(err, domain.ErrAPIKeyNotFound):
		respondError(w, dto.CodeNotFound, err.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrInvalidInput):
		respondError(w, dto.CodeValidationError, err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrBrokerUnavailable):
		respondError(w, dto.CodeBrokerUnavailable, err.Error(), http.StatusServiceUnavailable)
	case domain.IsContentGenerationError(err):
		respondError(w, dto.CodeContentGenerationFailed, err.Error(), http.StatusServiceUnavailable)
	default:
		respondError(w, dto.CodeInternal, "internal server error", http.StatusInternalServerError)
	}
}

// decodeJSON decodes the request body with a 1MB size cap.
func decodeJSON[T any](r *http.Request, w http.ResponseWriter) (*T, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, 1024*1024)

	var req T
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, dto.CodeValidationError, "invalid request body", http.StatusBadRequest)
		return nil, false
	}
	return &req, true
}

// parseIntQuery parses an integer query parameter with a default value
func parseIntQuery(r *http.Request, name string, defaultValue int) int {
	value := r.URL.Query().Get(name)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intValue
}

// parseListQuery splits a comma-separated query parameter, dropping empties.
func parseListQuery(r *http.Request, name string) []string {
	value := r.URL.Query().Get(name)
	if value == "" {
		return nil
	}

	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
