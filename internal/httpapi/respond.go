// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/holomush/authcore/internal/auth"
	"github.com/holomush/authcore/internal/ratelimit"
	"github.com/holomush/authcore/pkg/errutil"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error      string           `json:"error"`
	Message    string           `json:"message,omitempty"`
	Violations []auth.Violation `json:"violations,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	//nolint:errcheck // client may disconnect
	json.NewEncoder(w).Encode(v)
}

// decodeJSON reads a single JSON object into v. Unknown fields are rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid_request", Message: "request body must be a JSON object"})
		return false
	}
	return true
}

// classify maps an error onto a status and a public body. Order matters:
// a revoked refresh token is both a conflict and an authentication
// failure, and must surface as the latter.
func classify(err error) (int, errorBody) {
	switch {
	case errors.Is(err, ratelimit.ErrRateLimited):
		return http.StatusTooManyRequests, errorBody{Error: "rate_limited", Message: "too many requests"}
	case errors.Is(err, ratelimit.ErrStoreUnavailable), errors.Is(err, auth.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, errorBody{Error: "unavailable", Message: "service temporarily unavailable"}
	case errors.Is(err, auth.ErrUnauthenticated):
		return http.StatusUnauthorized, errorBody{Error: "unauthenticated", Message: "invalid credentials"}
	case errors.Is(err, auth.ErrForbidden):
		return http.StatusForbidden, errorBody{Error: "forbidden", Message: "insufficient permissions"}
	case errors.Is(err, auth.ErrNotFound), errors.Is(err, auth.ErrNotOwner):
		return http.StatusNotFound, errorBody{Error: "not_found", Message: "resource not found"}
	case errors.Is(err, auth.ErrConflict):
		msg := "resource conflict"
		if errutil.Code(err) == "AUTH_EMAIL_TAKEN" {
			msg = "email already registered"
		}
		return http.StatusConflict, errorBody{Error: "conflict", Message: msg}
	case errors.Is(err, auth.ErrValidation):
		return http.StatusBadRequest, errorBody{
			Error:      "validation_failed",
			Message:    err.Error(),
			Violations: auth.Violations(err),
		}
	default:
		return http.StatusInternalServerError, errorBody{Error: "internal", Message: "internal error"}
	}
}

// writeError logs err with its internal detail and answers with the
// public mapping only.
func (a *API) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := classify(err)

	switch status {
	case http.StatusUnauthorized:
		w.Header().Set("WWW-Authenticate", `Bearer realm="authcore"`)
	case http.StatusTooManyRequests:
		if d, ok := ratelimit.RetryAfter(err); ok {
			w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(d)))
		}
	}

	level := slog.LevelDebug
	switch {
	case status >= http.StatusInternalServerError:
		level = slog.LevelError
	case status == http.StatusTooManyRequests:
		level = slog.LevelWarn
	}
	errutil.LogErrorContext(r.Context(), a.logger, level, "request failed", err)

	writeJSON(w, status, body)
}

// retryAfterSeconds rounds up to whole seconds, never below one.
func retryAfterSeconds(d time.Duration) int {
	s := int(math.Ceil(d.Seconds()))
	if s < 1 {
		return 1
	}
	return s
}
