package vocab

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates the token is not in the vocabulary. Per-request,
// never fatal; the HTTP layer maps it to a 404.
var ErrNotFound = errors.New("token not found in vocabulary")

// ErrUnavailable indicates the store has not finished loading (or loading
// failed). Transient from the caller's point of view; mapped to a 503.
var ErrUnavailable = errors.New("vocabulary store not available")

// LoadError wraps a failure to build a store from a source: missing or
// unreadable files, truncated data, dimension mismatches, empty vocabulary.
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
