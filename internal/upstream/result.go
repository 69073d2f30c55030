package upstream

// Source records where a Result's value came from.
type Source int

const (
	// SourceUnavailable means no value could be produced.
	SourceUnavailable Source = iota
	SourceNetwork
	SourceCache
	// SourceSnapshot is the last known good value, served when the network
	// path failed.
	SourceSnapshot
	// SourceSession is a value remembered for the caller's session.
	SourceSession
	// SourceEmpty means the upstream answered with nothing worth keeping.
	SourceEmpty
)

func (s Source) String() string {
	switch s {
	case SourceNetwork:
		return "network"
	case SourceCache:
		return "cache"
	case SourceSnapshot:
		return "snapshot"
	case SourceSession:
		return "session"
	case SourceEmpty:
		return "empty"
	default:
		return "unavailable"
	}
}

// Result is the outcome of an upstream backed operation. It distinguishes a
// value, an accepted empty payload, a degraded value served alongside the
// error that caused it, and an outright failure.
type Result[T any] struct {
	value  T
	source Source
	err    error
}

// NewSuccess creates a result holding a value obtained from source.
func NewSuccess[T any](value T, source Source) Result[T] {
	return Result[T]{value: value, source: source}
}

// NewEmpty creates a result for an accepted empty payload. The value is the
// declared empty value for the resource.
func NewEmpty[T any](empty T) Result[T] {
	return Result[T]{value: empty, source: SourceEmpty}
}

// NewDegraded creates a result serving the snapshot value after err.
func NewDegraded[T any](value T, err error) Result[T] {
	return Result[T]{value: value, source: SourceSnapshot, err: err}
}

// NewFailed creates a result with no value.
func NewFailed[T any](err error) Result[T] {
	return Result[T]{source: SourceUnavailable, err: err}
}

// Failed returns the error when no value could be produced.
func (r Result[T]) Failed() (error, bool) {
	if r.source == SourceUnavailable {
		return r.err, true
	}
	return nil, false
}

// Get returns the value if one is present. Empty and failed results return
// false.
func (r Result[T]) Get() (T, bool) {
	switch r.source {
	case SourceUnavailable, SourceEmpty:
		return r.value, false
	default:
		return r.value, true
	}
}

// Value returns the value regardless of availability: the zero or declared
// empty value when nothing was fetched.
func (r Result[T]) Value() T {
	return r.value
}

func (r Result[T]) Source() Source {
	return r.source
}

// Err returns the error attached to the result. Degraded results carry both a
// value and an error.
func (r Result[T]) Err() error {
	return r.err
}
