package genmap

import (
	"errors"
	"fmt"
)

var (
	// ErrIndexOutOfBounds is returned when a handle does not resolve to an
	// occupied slot (out of range, vacant, or stale generation).
	ErrIndexOutOfBounds = errors.New("genmap: index out of bounds")
	// ErrOverlappingIndices is returned when disjoint access is requested for
	// handles that share a slot index.
	ErrOverlappingIndices = errors.New("genmap: overlapping indices")
	// ErrMissingKey is returned when a key is not present.
	ErrMissingKey = errors.New("genmap: missing key")
	// ErrDuplicateKey is returned when a key is already present.
	ErrDuplicateKey = errors.New("genmap: duplicate key")
	// ErrInvalidID is returned when a handle is stale or was never issued.
	ErrInvalidID = errors.New("genmap: invalid id")
	// ErrEmptyKeys is returned when an entry would be left without any key.
	ErrEmptyKeys = errors.New("genmap: entry has no key")
	// ErrDuplicateKeyDecode is returned when decoded input reuses a key.
	ErrDuplicateKeyDecode = errors.New("duplicate key found during deserialization")
	// ErrCorrupted is returned by Validate when internal invariants do not hold.
	ErrCorrupted = errors.New("genmap: corrupted state")
)

// IndexOutOfBoundsError reports the first handle of a multi-access request
// that did not resolve.
type IndexOutOfBoundsError struct {
	ID       GenID
	Position int
}

func (e *IndexOutOfBoundsError) Error() string {
	return fmt.Sprintf("genmap: index out of bounds: %s at position %d", e.ID, e.Position)
}

func (e *IndexOutOfBoundsError) Unwrap() error { return ErrIndexOutOfBounds }

// OverlappingIndicesError reports two positions of a multi-access request that
// refer to the same slot.
type OverlappingIndicesError struct {
	Index  uint32
	First  int
	Second int
}

func (e *OverlappingIndicesError) Error() string {
	return fmt.Sprintf("genmap: overlapping indices: slot %d requested at positions %d and %d", e.Index, e.First, e.Second)
}

func (e *OverlappingIndicesError) Unwrap() error { return ErrOverlappingIndices }

// MissingKeyError is returned by the Try accessors of the keyed containers.
type MissingKeyError[K any] struct {
	Key K
}

func (e *MissingKeyError[K]) Error() string {
	return fmt.Sprintf("genmap: missing key %v", e.Key)
}

func (e *MissingKeyError[K]) Unwrap() error { return ErrMissingKey }

// DuplicateKeyError is returned when an operation would give a key to a
// second entry.
type DuplicateKeyError[K any] struct {
	Key K
}

func (e *DuplicateKeyError[K]) Error() string {
	return fmt.Sprintf("genmap: duplicate key %v", e.Key)
}

func (e *DuplicateKeyError[K]) Unwrap() error { return ErrDuplicateKey }

// RejectedKeysError hands the keys of a failed multi-key operation back to
// the caller unchanged. Reason is ErrDuplicateKey or ErrInvalidID.
type RejectedKeysError[K any] struct {
	Keys   []K
	Reason error
}

func (e *RejectedKeysError[K]) Error() string {
	return fmt.Sprintf("%v: rejected keys %v", e.Reason, e.Keys)
}

func (e *RejectedKeysError[K]) Unwrap() error { return e.Reason }

func corrupted(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrCorrupted, fmt.Sprintf(format, args...))
}
