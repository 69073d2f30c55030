package upstream

import (
	"context"
	"fmt"
)

// ErrorKind classifies a failed upstream interaction.
type ErrorKind int

const (
	// KindTransport is a connection level failure: DNS, refused, timeout or an
	// unreadable body.
	KindTransport ErrorKind = iota + 1
	// KindUpstream is a 4xx response from the API.
	KindUpstream
	// KindDecode is a body that could not be decoded into the expected shape.
	KindDecode
	// KindConfiguration is missing or unusable local configuration.
	KindConfiguration
	// KindExhaustedRetry is returned when every token attempt failed.
	KindExhaustedRetry
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindUpstream:
		return "upstream"
	case KindDecode:
		return "decode"
	case KindConfiguration:
		return "configuration"
	case KindExhaustedRetry:
		return "exhausted_retry"
	default:
		return "unknown"
	}
}

// APIError is a normalized upstream failure. It is reported and returned, never
// persisted.
type APIError struct {
	Kind      ErrorKind
	Intention string
	Message   string

	// Err is the underlying cause, if any.
	Err error
}

func NewError(kind ErrorKind, intention, message string) *APIError {
	return &APIError{
		Kind:      kind,
		Intention: intention,
		Message:   message,
	}
}

func (e *APIError) Error() string {
	switch e.Kind {
	case KindTransport, KindUpstream, KindDecode:
		return fmt.Sprintf("[%s] Invalid response. %s", e.Intention, e.Message)
	default:
		return fmt.Sprintf("[%s] %s", e.Intention, e.Message)
	}
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Reporter receives every APIError as it is produced. Reporting is a side
// effect only: it never alters the result returned to the caller.
type Reporter interface {
	Report(ctx context.Context, err *APIError)
}

// ReporterFunc adapts a function to the Reporter interface.
type ReporterFunc func(ctx context.Context, err *APIError)

func (f ReporterFunc) Report(ctx context.Context, err *APIError) {
	f(ctx, err)
}

// Discard is a Reporter that drops every error.
var Discard Reporter = ReporterFunc(func(context.Context, *APIError) {})
