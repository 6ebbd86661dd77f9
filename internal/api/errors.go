package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrRequestFailed is matched by every *Error via errors.Is.
var ErrRequestFailed = errors.New("request failed")

// Error is returned for any failed backend call. Transport failures and
// non-2xx responses are deliberately not distinguished by callers; Status is
// zero for transport failures and is kept for logging only.
type Error struct {
	Op     string // human readable operation, e.g. "follow user"
	Status int
	Detail string // response body text, if any
	// ContentType is the media type of Detail, without parameters.
	ContentType string
	Err    error  // underlying transport or decode error
}

func (e *Error) Error() string {
	return "failed to " + e.Op
}

// Unwrap exposes the underlying transport error.
func (e *Error) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrRequestFailed) true for every *Error.
func (e *Error) Is(target error) bool { return target == ErrRequestFailed }

// LogString includes status and detail for log lines.
func (e *Error) LogString() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Error(), e.Err)
	case e.Detail != "":
		return fmt.Sprintf("%s: status %d: %s", e.Error(), e.Status, e.Detail)
	default:
		return fmt.Sprintf("%s: status %d", e.Error(), e.Status)
	}
}

// ServerMessage returns the message the backend sent with a rejected
// request: a plain text 4xx body, or a 4xx body that is a JSON string. It
// returns "" for anything else, including JSON objects, HTML pages and 5xx
// responses.
func ServerMessage(err error) string {
	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.Status < 400 || apiErr.Status > 499 {
		return ""
	}
	detail := apiErr.Detail
	if detail == "" {
		return ""
	}

	var s string
	if strings.HasPrefix(detail, `"`) {
		if json.Unmarshal([]byte(detail), &s) == nil {
			return strings.TrimSpace(s)
		}
		return ""
	}
	switch apiErr.ContentType {
	case "", "text/plain":
	default:
		return ""
	}
	if strings.ContainsAny(detail[:1], "{[<") {
		return ""
	}
	return detail
}
