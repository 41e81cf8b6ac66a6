// Package genmap provides generational slot maps: a dense arena with stable,
// ABA-safe handles (GenVec), a keyed index on top of it (GenMap), and a
// multi-key variant where one value is reachable through several keys
// (MultiMap).
//
// Handles are plain values. The containers never track who holds them;
// a removed element's handle is detected as stale on its next use because the
// slot's generation no longer matches.
//
// None of the containers are safe for concurrent use. Wrap the whole structure
// in a mutex when sharing it between goroutines.
package genmap

import (
	"fmt"
	"math"
)

// Generation is a per-slot counter incremented every time the slot is vacated.
type Generation uint32

// MaxGeneration is the last generation a slot can reach. A slot vacated at
// this generation is retired and never handed out again.
const MaxGeneration Generation = math.MaxUint32

// GenID represents a handle to a value stored in a GenVec. It pairs the slot
// index with the generation the slot had when the value was inserted, so a
// handle kept after its value was removed can never resolve to a newer value
// that reused the same slot.
type GenID struct {
	// Index is the position of the slot in the backing storage.
	Index uint32
	// Generation must match the slot's current generation for the handle
	// to be valid.
	Generation Generation
}

// NullGenID never resolves to a value in any container.
var NullGenID = GenID{Index: math.MaxUint32, Generation: MaxGeneration}

// IsNull reports whether id is NullGenID.
func (id GenID) IsNull() bool {
	return id == NullGenID
}

// String renders the handle for debugging purposes.
func (id GenID) String() string {
	if id.IsNull() {
		return "GenID(null)"
	}
	return fmt.Sprintf("GenID(%d:%d)", id.Index, id.Generation)
}
