package api

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// Machine-readable error codes carried in ErrorResponse.Code.
const (
	ErrBadRequest   = "bad_request"
	ErrInvalidBody  = "invalid_body"
	ErrTooLarge     = "payload_too_large"
	ErrUnauthorized = "unauthorized"
	ErrRateLimited  = "rate_limited"
	ErrQueueFull    = "queue_full"
	ErrUpstream     = "upstream_error"
	ErrInternal     = "internal_error"
)

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// ErrorResponse is the standard error response body.
type ErrorResponse struct {
	Error  string `json:"error"`
	Code   string `json:"code,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// WriteError writes a JSON error response.
func WriteError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, ErrorResponse{Error: msg})
}

// WriteErrorWithCode writes a JSON error response with a machine-readable code.
func WriteErrorWithCode(w http.ResponseWriter, status int, code, msg string) {
	WriteJSON(w, status, ErrorResponse{Error: msg, Code: code})
}

// WriteErrorDetail writes a JSON error response with detail.
func WriteErrorDetail(w http.ResponseWriter, status int, msg, detail string) {
	WriteJSON(w, status, ErrorResponse{Error: msg, Detail: detail})
}

// Pagination holds parsed pagination parameters.
type Pagination struct {
	Limit  int
	Offset int
}

const (
	defaultLimit = 50
	maxLimit     = 500
)

// ParsePagination extracts limit and offset from query params. Missing,
// malformed or out-of-range values fall back to the defaults.
func ParsePagination(r *http.Request) Pagination {
	p := Pagination{Limit: defaultLimit}
	if n, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && n >= 1 && n <= maxLimit {
		p.Limit = n
	}
	if n, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && n >= 0 {
		p.Offset = n
	}
	return p
}
