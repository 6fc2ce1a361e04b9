package rag

import (
	"errors"
	"fmt"
)

// Failure taxonomy shared by every stage. Adapters wrap these with %w so callers
// can branch with errors.Is.
var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrIndexUnavailable = errors.New("vector index unavailable")
	ErrSearchProvider   = errors.New("search provider error")
	ErrGeneration       = errors.New("generation error")
)

// Wrap tags err with one of the taxonomy sentinels.
func Wrap(kind error, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, kind) {
		return err
	}
	return fmt.Errorf("%w: %w", kind, err)
}

// Kind returns the taxonomy sentinel carried by err, or nil.
func Kind(err error) error {
	for _, k := range []error{ErrInvalidInput, ErrIndexUnavailable, ErrSearchProvider, ErrGeneration} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
