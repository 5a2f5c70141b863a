// Package handlers exposes the garage operations over HTTP/JSON.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/ukydev/garage-service/internal/apperr"
	"github.com/ukydev/garage-service/internal/middleware"
	"github.com/ukydev/garage-service/internal/models"
)

const maxBodyBytes = 1 << 20

var (
	writeJSON  = middleware.WriteJSON
	writeError = middleware.WriteError
)

// decode reads a single JSON object into v, rejecting unknown fields.
// An empty body leaves v untouched when optional is set.
func decode(r *http.Request, v any, optional bool) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) && optional {
			return nil
		}
		if errors.Is(err, io.EOF) {
			return apperr.Validation("request body is required")
		}
		return apperr.Validation("invalid JSON: %v", err)
	}
	if dec.More() {
		return apperr.Validation("invalid JSON: a single object is expected")
	}
	return nil
}

// principal returns the authenticated caller.
func principal(r *http.Request) (models.Claims, error) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		return models.Claims{}, apperr.Unauthorized("user context not found")
	}
	return *claims, nil
}

// queryTime parses an RFC 3339 timestamp or a date. A date stands for the
// start of the day, or its last instant when endOfDay is set.
func queryTime(r *http.Request, key string, endOfDay bool) (*time.Time, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return &t, nil
	}
	if t, err := time.Parse(time.DateOnly, v); err == nil {
		if endOfDay {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		return &t, nil
	}
	return nil, apperr.Validation("%s must be an RFC 3339 timestamp or a YYYY-MM-DD date", key)
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, apperr.Validation("%s must be a non-negative integer", key)
	}
	return n, nil
}
