package genmap

import (
	"iter"
	"math"

	"github.com/RoaringBitmap/roaring/v2"
)

const (
	// retired marks a vacant slot that reached MaxGeneration. It is never
	// linked into the free list again.
	retired = math.MaxUint32
	// maxSlots keeps every index+1 below the retired marker and every index
	// below NullGenID.Index.
	maxSlots = math.MaxUint32 - 1
)

// slot is one storage cell: occupied by a value, or vacant and linked into
// the free list through next.
type slot[T any] struct {
	value    T
	next     uint32 // index+1 of the next vacant slot, 0 ends the list
	gen      Generation
	occupied bool
}

// GenVec is a generational arena. It stores values in a dense slice of slots,
// reuses vacant slots through an intrusive free list, and hands out GenID
// handles that stop resolving once their value is removed.
//
// The zero value is an empty GenVec ready to use.
type GenVec[T any] struct {
	slots []slot[T]
	free  uint32 // index+1 of the first vacant slot, 0 when the list is empty
	len   int
}

// NewGenVec creates an empty GenVec.
func NewGenVec[T any]() *GenVec[T] {
	return &GenVec[T]{}
}

// NewGenVecWithCapacity creates an empty GenVec with room for capacity values
// before the backing storage has to grow.
func NewGenVecWithCapacity[T any](capacity int) *GenVec[T] {
	return &GenVec[T]{slots: make([]slot[T], 0, max(capacity, 0))}
}

// GenVecFromSeq collects seq into a new GenVec in iteration order.
func GenVecFromSeq[T any](seq iter.Seq[T]) *GenVec[T] {
	v := NewGenVec[T]()
	for value := range seq {
		v.Insert(value)
	}
	return v
}

// Insert stores value and returns its handle. A vacant slot is reused when
// one is available, keeping the generation it was given on removal;
// otherwise a new slot is appended with generation 0.
func (v *GenVec[T]) Insert(value T) GenID {
	id := v.NextID()
	v.insertAt(id, value)
	return id
}

// InsertWith stores the value built by fn, which receives the handle the
// value will be stored under. fn must not insert into or remove from v; doing
// so panics.
func (v *GenVec[T]) InsertWith(fn func(id GenID) T) GenID {
	id := v.NextID()
	value := fn(id)
	if v.NextID() != id {
		panic("genmap: GenVec modified during InsertWith")
	}
	v.insertAt(id, value)
	return id
}

// NextID returns the handle the next Insert will return.
func (v *GenVec[T]) NextID() GenID {
	if v.free != 0 {
		idx := v.free - 1
		return GenID{Index: idx, Generation: v.slots[idx].gen}
	}
	return GenID{Index: uint32(len(v.slots))}
}

func (v *GenVec[T]) insertAt(id GenID, value T) {
	if v.free != 0 {
		s := &v.slots[id.Index]
		v.free = s.next
		s.next = 0
		s.value = value
		s.occupied = true
	} else {
		if len(v.slots) >= maxSlots {
			panic("genmap: too many slots")
		}
		v.slots = append(v.slots, slot[T]{value: value, occupied: true})
	}
	v.len++
}

// slotOf returns the slot id refers to, or nil when id is out of range,
// vacant or stale.
func (v *GenVec[T]) slotOf(id GenID) *slot[T] {
	if int64(id.Index) >= int64(len(v.slots)) {
		return nil
	}
	s := &v.slots[id.Index]
	if !s.occupied || s.gen != id.Generation {
		return nil
	}
	return s
}

// IsValid reports whether id currently resolves to a value.
func (v *GenVec[T]) IsValid(id GenID) bool {
	return v.slotOf(id) != nil
}

// Get returns a copy of the value stored under id.
func (v *GenVec[T]) Get(id GenID) (T, bool) {
	s := v.slotOf(id)
	if s == nil {
		var zero T
		return zero, false
	}
	return s.value, true
}

// GetPtr returns a pointer to the value stored under id, or nil if id is
// invalid. The pointer must not be kept across an Insert, which may move the
// backing storage.
func (v *GenVec[T]) GetPtr(id GenID) *T {
	s := v.slotOf(id)
	if s == nil {
		return nil
	}
	return &s.value
}

// MustGet is like Get but panics when id is invalid.
func (v *GenVec[T]) MustGet(id GenID) T {
	s := v.slotOf(id)
	if s == nil {
		panic("genmap: invalid index")
	}
	return s.value
}

// MustGetPtr is like GetPtr but panics when id is invalid.
func (v *GenVec[T]) MustGetPtr(id GenID) *T {
	s := v.slotOf(id)
	if s == nil {
		panic("genmap: invalid index")
	}
	return &s.value
}

// GetUnchecked returns a pointer to the slot at id.Index without checking
// occupancy or generation. The caller must already know that id is valid;
// otherwise the result points at a vacant slot or at an unrelated value.
func (v *GenVec[T]) GetUnchecked(id GenID) *T {
	return &v.slots[id.Index].value
}

// Remove deletes the value stored under id and returns it. The slot's
// generation is incremented so id, and every copy of it, stops resolving.
// An invalid id leaves the GenVec untouched.
func (v *GenVec[T]) Remove(id GenID) (T, bool) {
	s := v.slotOf(id)
	if s == nil {
		var zero T
		return zero, false
	}
	value := s.value
	v.vacate(id.Index, s)
	v.len--
	return value, true
}

// vacate turns an occupied slot into a vacant one and links it at the head of
// the free list, or retires it if its generation cannot grow any further.
func (v *GenVec[T]) vacate(idx uint32, s *slot[T]) {
	var zero T
	s.value = zero
	s.occupied = false
	if s.gen == MaxGeneration {
		s.next = retired
		return
	}
	s.gen++
	s.next = v.free
	v.free = idx + 1
}

// TryGetMany returns pointers to the values of all ids at once. Every id must
// be valid and no two ids may share a slot index, whatever their generations;
// the checks run before any pointer is taken so a failed call hands out
// nothing.
//
// Returns:
//   - *IndexOutOfBoundsError for the first id that does not resolve.
//   - *OverlappingIndicesError for the first pair of ids sharing an index.
func (v *GenVec[T]) TryGetMany(ids ...GenID) ([]*T, error) {
	for i, id := range ids {
		if v.slotOf(id) == nil {
			return nil, &IndexOutOfBoundsError{ID: id, Position: i}
		}
	}
	if err := checkDisjoint(ids); err != nil {
		return nil, err
	}
	out := make([]*T, len(ids))
	for i, id := range ids {
		out[i] = &v.slots[id.Index].value
	}
	return out, nil
}

// GetMany is like TryGetMany but only reports success.
func (v *GenVec[T]) GetMany(ids ...GenID) ([]*T, bool) {
	out, err := v.TryGetMany(ids...)
	return out, err == nil
}

// disjointScanLimit is the request size up to which pairwise comparison beats
// building a set.
const disjointScanLimit = 16

func checkDisjoint(ids []GenID) error {
	if len(ids) <= disjointScanLimit {
		for i := 1; i < len(ids); i++ {
			for j := 0; j < i; j++ {
				if ids[i].Index == ids[j].Index {
					return &OverlappingIndicesError{Index: ids[i].Index, First: j, Second: i}
				}
			}
		}
		return nil
	}
	seen := make(map[uint32]int, len(ids))
	for i, id := range ids {
		if j, ok := seen[id.Index]; ok {
			return &OverlappingIndicesError{Index: id.Index, First: j, Second: i}
		}
		seen[id.Index] = i
	}
	return nil
}

// Len returns the number of stored values.
func (v *GenVec[T]) Len() int {
	return v.len
}

// IsEmpty reports whether the GenVec holds no values.
func (v *GenVec[T]) IsEmpty() bool {
	return v.len == 0
}

// Cap returns the capacity of the backing slot storage, vacant slots included.
func (v *GenVec[T]) Cap() int {
	return cap(v.slots)
}

// Reserve grows the backing storage so that at least additional more slots
// can be appended without reallocating.
func (v *GenVec[T]) Reserve(additional int) {
	v.slots = reserveSlice(v.slots, additional)
}

// ShrinkToFit releases unused backing capacity. Vacant slots are kept so
// that outstanding handles stay detectable as stale.
func (v *GenVec[T]) ShrinkToFit() {
	v.slots = shrinkSlice(v.slots)
}

// Clear removes every value. Slots are kept and their generations bumped, so
// every handle issued before the call stays invalid forever. Index 0 is the
// first slot reused afterwards.
func (v *GenVec[T]) Clear() {
	v.free = 0
	for i := len(v.slots) - 1; i >= 0; i-- {
		s := &v.slots[i]
		if s.occupied {
			v.vacate(uint32(i), s)
			continue
		}
		if s.next == retired {
			continue
		}
		s.next = v.free
		v.free = uint32(i) + 1
	}
	v.len = 0
}

// Reset drops every slot, generations included. Handles issued before the
// call may resolve again once their index is reused; use it only when no such
// handle survives, e.g. while rebuilding from decoded data.
func (v *GenVec[T]) Reset() {
	clear(v.slots)
	v.slots = v.slots[:0]
	v.free = 0
	v.len = 0
}

// Retain removes every value for which keep returns false. Values are visited
// in slot order and may be modified through the pointer.
func (v *GenVec[T]) Retain(keep func(id GenID, value *T) bool) {
	for i := range v.slots {
		s := &v.slots[i]
		if !s.occupied {
			continue
		}
		if !keep(GenID{Index: uint32(i), Generation: s.gen}, &s.value) {
			v.vacate(uint32(i), s)
			v.len--
		}
	}
}

// Clone returns a copy of v in which every handle of v resolves to the same
// position. copyValue, when not nil, is applied to each stored value.
func (v *GenVec[T]) Clone(copyValue func(T) T) *GenVec[T] {
	c := &GenVec[T]{
		slots: make([]slot[T], len(v.slots)),
		free:  v.free,
		len:   v.len,
	}
	copy(c.slots, v.slots)
	if copyValue != nil {
		for i := range c.slots {
			if c.slots[i].occupied {
				c.slots[i].value = copyValue(c.slots[i].value)
			}
		}
	}
	return c
}

// All iterates over the stored values in slot order, which matches insertion
// order only until a vacant slot is reused. Values may be modified through the
// pointer and removed with Remove during iteration.
func (v *GenVec[T]) All() iter.Seq2[GenID, *T] {
	return func(yield func(GenID, *T) bool) {
		for i := 0; i < len(v.slots); i++ {
			s := &v.slots[i]
			if !s.occupied {
				continue
			}
			if !yield(GenID{Index: uint32(i), Generation: s.gen}, &s.value) {
				return
			}
		}
	}
}

// Values iterates over copies of the stored values in slot order.
func (v *GenVec[T]) Values() iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, value := range v.All() {
			if !yield(*value) {
				return
			}
		}
	}
}

// IDs iterates over the handles of the stored values in slot order.
func (v *GenVec[T]) IDs() iter.Seq[GenID] {
	return func(yield func(GenID) bool) {
		for id := range v.All() {
			if !yield(id) {
				return
			}
		}
	}
}

// Validate checks the arena invariants: the free list only links vacant
// slots, has no cycle, reaches every vacant slot that is not retired, and
// Len matches the number of occupied slots.
func (v *GenVec[T]) Validate() error {
	visited := roaring.New()
	for cur := v.free; cur != 0; {
		idx := cur - 1
		if int64(idx) >= int64(len(v.slots)) {
			return corrupted("free list points past the end at slot %d", idx)
		}
		if !visited.CheckedAdd(idx) {
			return corrupted("free list cycles through slot %d", idx)
		}
		s := &v.slots[idx]
		if s.occupied {
			return corrupted("free list reaches occupied slot %d", idx)
		}
		if s.next == retired {
			return corrupted("free list reaches retired slot %d", idx)
		}
		cur = s.next
	}
	occupied := 0
	for i := range v.slots {
		s := &v.slots[i]
		switch {
		case s.occupied:
			occupied++
		case visited.Contains(uint32(i)):
		case s.next == retired && s.gen == MaxGeneration:
		default:
			return corrupted("vacant slot %d is not on the free list", i)
		}
	}
	if occupied != v.len {
		return corrupted("len is %d but %d slots are occupied", v.len, occupied)
	}
	return nil
}
