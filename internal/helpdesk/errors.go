package helpdesk

import (
	"errors"
	"fmt"
)

// Failure kinds shared by AuthError and TicketError.
var (
	ErrRejected          = errors.New("rejected by helpdesk")
	ErrMalformedResponse = errors.New("malformed helpdesk response")
	ErrUnreachable       = errors.New("helpdesk unreachable")
	ErrNotConfigured     = errors.New("helpdesk credentials not configured")
)

// AuthError reports a failure to obtain helpdesk credentials.
// Body is an excerpt of the auth endpoint response and never holds secrets we sent.
type AuthError struct {
	Kind       error
	StatusCode int
	Body       string
	Err        error
}

func (e *AuthError) Error() string {
	return describe("helpdesk auth", e.Kind, e.StatusCode, e.Body, e.Err)
}

func (e *AuthError) Is(target error) bool { return target == e.Kind }

func (e *AuthError) Unwrap() error { return e.Err }

// TicketError reports a failed ticket creation call.
type TicketError struct {
	Kind       error
	StatusCode int
	Body       string
	Err        error
}

func (e *TicketError) Error() string {
	return describe("helpdesk create ticket", e.Kind, e.StatusCode, e.Body, e.Err)
}

func (e *TicketError) Is(target error) bool { return target == e.Kind }

func (e *TicketError) Unwrap() error { return e.Err }

func describe(prefix string, kind error, status int, body string, err error) string {
	msg := fmt.Sprintf("%s: %v", prefix, kind)
	if status != 0 {
		msg += fmt.Sprintf(" (status %d)", status)
	}
	if err != nil {
		msg += ": " + err.Error()
	}
	if body != "" {
		msg += ": " + body
	}
	return msg
}
