package services

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"

	"github.com/desertthunder/marquee/internal/shared"
)

// errorBody is the backend's structured failure shape.
type errorBody struct {
	Message string                     `json:"message"`
	Errors  map[string]json.RawMessage `json:"errors"`
}

// FieldErrors is a structured server rejection carrying one message per field.
type FieldErrors struct {
	StatusCode int
	Message    string
	Fields     map[string]string
}

func (e *FieldErrors) Error() string {
	fields := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		fields = append(fields, f)
	}
	slices.Sort(fields)

	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("%s (status %d; fields: %s)", msg, e.StatusCode, strings.Join(fields, ", "))
}

// FieldMessages returns field -> message for merging into validation errors.
func (e *FieldErrors) FieldMessages() map[string]string {
	return e.Fields
}

func (e *FieldErrors) Unwrap() error {
	return shared.ErrSubmissionFailed
}

// ParseErrorResponse turns a failed submission response into an error.
//
// A body with an "errors" object becomes [*FieldErrors], keeping the first
// message per field. Anything else is a generic [shared.ErrSubmissionFailed].
func ParseErrorResponse(status int, body []byte) error {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil && len(eb.Errors) > 0 {
		fields := make(map[string]string, len(eb.Errors))
		for field, raw := range eb.Errors {
			if msg := firstMessage(raw); msg != "" {
				fields[field] = msg
			}
		}
		if len(fields) > 0 {
			return &FieldErrors{StatusCode: status, Message: eb.Message, Fields: fields}
		}
	}

	if eb.Message != "" {
		return fmt.Errorf("%w: status %d: %s", shared.ErrSubmissionFailed, status, eb.Message)
	}
	return fmt.Errorf("%w: status %d", shared.ErrSubmissionFailed, status)
}

// firstMessage accepts either "msg" or ["msg", ...].
func firstMessage(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
		return list[0]
	}
	return ""
}

// StatusError maps a non-2xx read response onto a sentinel error. It returns nil for 2xx.
func StatusError(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var eb errorBody
	detail := ""
	if json.Unmarshal(body, &eb) == nil && eb.Message != "" {
		detail = ": " + eb.Message
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: status %d%s", shared.ErrNotAuthenticated, resp.StatusCode, detail)
	case http.StatusNotFound:
		return fmt.Errorf("%w: status %d%s", shared.ErrItemNotFound, resp.StatusCode, detail)
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		return fmt.Errorf("%w: status %d%s", shared.ErrServiceUnavailable, resp.StatusCode, detail)
	}
	return fmt.Errorf("%w: status %d%s", shared.ErrAPIRequest, resp.StatusCode, detail)
}
