package upstream

import (
	"errors"
	"fmt"
)

// Source identifies which collaborator an error came from. The REST backend
// and the generator microservice are distinct failure domains and must never
// be conflated when surfacing errors to the user.
type Source string

const (
	SourceAPI       Source = "api"
	SourceGenerator Source = "generator"
)

// Kind classifies an upstream failure per the gateway's error taxonomy.
type Kind string

const (
	// KindTransport covers network failures, timeouts and 5xx responses.
	KindTransport Kind = "transport"
	// KindAuthorization covers 401/403 responses.
	KindAuthorization Kind = "authorization"
	// KindBusiness covers rejections that carry a server-provided message
	// meant to be shown to the user verbatim.
	KindBusiness Kind = "business"
)

// Error is a classified upstream failure.
type Error struct {
	Source  Source
	Kind    Kind
	Status  int    // HTTP status, 0 for connection-level failures
	Message string // Server-provided message, empty unless KindBusiness
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s (status %d): %v", e.Source, e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("%s %s (status %d): %s", e.Source, e.Kind, e.Status, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// AsError extracts an *Error from err, or nil.
func AsError(err error) *Error {
	var ue *Error
	if errors.As(err, &ue) {
		return ue
	}
	return nil
}

// IsAuthorization reports whether err is an upstream 401/403.
func IsAuthorization(err error) bool {
	ue := AsError(err)
	return ue != nil && ue.Kind == KindAuthorization
}

// BusinessMessage returns the server-provided message when err is a
// business-rule rejection, or "" otherwise.
func BusinessMessage(err error) string {
	if ue := AsError(err); ue != nil && ue.Kind == KindBusiness {
		return ue.Message
	}
	return ""
}
