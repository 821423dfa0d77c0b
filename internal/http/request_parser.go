// Package http serves the bill planning JSON API.
//
// This file implements body decoding and query parameter parsing shared by
// the handlers.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"cashplan/internal/core"
)

const maxBodyBytes = 1 << 20

// requestError is a malformed request: bad JSON, an unparsable parameter or
// a missing required value.
type requestError struct {
	msg string
}

func (e *requestError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &requestError{msg: fmt.Sprintf(format, args...)}
}

// decodeJSON reads one JSON object into dst. Unknown fields and trailing
// data are rejected. An empty body leaves dst untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return badRequest("request body too large")
		}
		return badRequest("invalid JSON body: %v", err)
	}
	if dec.More() {
		return badRequest("invalid JSON body: trailing data")
	}
	return nil
}

// queryDate parses a YYYY-MM-DD parameter. A missing parameter yields the
// zero Date unless required.
func queryDate(q url.Values, key string, required bool) (core.Date, error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		if required {
			return core.Date{}, badRequest("query parameter %q is required", key)
		}
		return core.Date{}, nil
	}
	d, err := core.ParseDate(v)
	if err != nil {
		return core.Date{}, badRequest("query parameter %q must be YYYY-MM-DD", key)
	}
	return d, nil
}

// queryInt parses an integer parameter, returning def when it is absent.
func queryInt(q url.Values, key string, def int) (int, error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, badRequest("query parameter %q must be an integer", key)
	}
	return n, nil
}

// requiredQueryInt parses an integer parameter that must be present.
func requiredQueryInt(q url.Values, key string) (int, error) {
	if strings.TrimSpace(q.Get(key)) == "" {
		return 0, badRequest("query parameter %q is required", key)
	}
	return queryInt(q, key, 0)
}

// parseMoney converts a JSON number in currency units to cents. Negative and
// oversized values are rejected.
func parseMoney(field string, n json.Number) (core.Money, error) {
	f, err := n.Float64()
	if err != nil {
		return core.Money{}, &core.ValidationError{Field: field, Reason: "must be a number"}
	}
	return core.ParseUnits(field, f)
}

// parseOptionalDate parses a YYYY-MM-DD body field; nil or empty yields the zero Date.
func parseOptionalDate(field string, s *string) (core.Date, error) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return core.Date{}, nil
	}
	d, err := core.ParseDate(*s)
	if err != nil {
		return core.Date{}, &core.ValidationError{Field: field, Reason: "must be YYYY-MM-DD"}
	}
	return d, nil
}

// sanitizeInput drops control characters other than tab and newlines and
// trims surrounding whitespace.
func sanitizeInput(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s))
}
