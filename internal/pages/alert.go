package pages

import (
	"errors"

	"github.com/anonto42/skillshare/internal/api"
)

// Alert is a blocking, user-facing error raised by a page action. The page
// state is unchanged when an action returns an Alert.
type Alert struct {
	Message string
	Fields  map[string]string // form field -> message
	Err     error
}

func (a *Alert) Error() string { return a.Message }

func (a *Alert) Unwrap() error { return a.Err }

func newAlert(msg string, err error) *Alert {
	return &Alert{Message: msg, Err: err}
}

// serverAlert prefers the text sent by the backend over fallback.
func serverAlert(fallback string, err error) *Alert {
	if msg := api.ServerMessage(err); msg != "" {
		return &Alert{Message: msg, Err: err}
	}
	return &Alert{Message: fallback, Err: err}
}

func formAlert(msg string, fields map[string]string) *Alert {
	return &Alert{Message: msg, Fields: fields}
}

// AsAlert returns the Alert in err's chain, if any.
func AsAlert(err error) (*Alert, bool) {
	var a *Alert
	ok := errors.As(err, &a)
	return a, ok
}
