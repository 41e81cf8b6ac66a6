package genmap

import (
	"iter"

	"github.com/cockroachdb/swiss"
)

type mapEntry[K comparable, V any] struct {
	key   K
	value V
}

// GenMap maps keys to values stored in a GenVec. Every entry is reachable
// both by its key and by the GenID it was stored under; the two views are
// only ever modified together.
//
// The zero value is an empty GenMap ready to use.
type GenMap[K comparable, V any] struct {
	values GenVec[mapEntry[K, V]]
	search *swiss.Map[K, GenID]
}

// NewGenMap creates an empty GenMap.
func NewGenMap[K comparable, V any]() *GenMap[K, V] {
	return NewGenMapWithCapacity[K, V](0)
}

// NewGenMapWithCapacity creates an empty GenMap sized for capacity entries.
func NewGenMapWithCapacity[K comparable, V any](capacity int) *GenMap[K, V] {
	capacity = max(capacity, 0)
	return &GenMap[K, V]{
		values: GenVec[mapEntry[K, V]]{slots: make([]slot[mapEntry[K, V]], 0, capacity)},
		search: swiss.New[K, GenID](capacity),
	}
}

// GenMapFromSeq collects seq into a new GenMap. A key seen again replaces the
// value it had.
func GenMapFromSeq[K comparable, V any](seq iter.Seq2[K, V]) *GenMap[K, V] {
	m := NewGenMap[K, V]()
	for k, v := range seq {
		m.Insert(k, v)
	}
	return m
}

func (m *GenMap[K, V]) index() *swiss.Map[K, GenID] {
	if m.search == nil {
		m.search = swiss.New[K, GenID](0)
	}
	return m.search
}

// GetID returns the handle key is stored under.
func (m *GenMap[K, V]) GetID(key K) (GenID, bool) {
	if m.search == nil {
		return NullGenID, false
	}
	return m.search.Get(key)
}

// Contains reports whether key is present.
func (m *GenMap[K, V]) Contains(key K) bool {
	_, ok := m.GetID(key)
	return ok
}

// Insert stores value under key. When key was already present its entry is
// removed first, freeing its slot, and the evicted value is returned.
func (m *GenMap[K, V]) Insert(key K, value V) (V, bool) {
	var old V
	replaced := false
	if id, ok := m.GetID(key); ok {
		if e, ok := m.values.Remove(id); ok {
			old, replaced = e.value, true
		}
	}
	id := m.values.Insert(mapEntry[K, V]{key: key, value: value})
	m.index().Put(key, id)
	return old, replaced
}

// Get returns the value stored under key.
func (m *GenMap[K, V]) Get(key K) (V, bool) {
	if p := m.GetPtr(key); p != nil {
		return *p, true
	}
	var zero V
	return zero, false
}

// GetPtr returns a pointer to the value stored under key, or nil.
func (m *GenMap[K, V]) GetPtr(key K) *V {
	id, ok := m.GetID(key)
	if !ok {
		return nil
	}
	return m.GetPtrByID(id)
}

// TryGet is like Get but reports an absent key as *MissingKeyError.
func (m *GenMap[K, V]) TryGet(key K) (V, error) {
	v, ok := m.Get(key)
	if !ok {
		return v, &MissingKeyError[K]{Key: key}
	}
	return v, nil
}

// TryGetPtr is like GetPtr but reports an absent key as *MissingKeyError.
func (m *GenMap[K, V]) TryGetPtr(key K) (*V, error) {
	p := m.GetPtr(key)
	if p == nil {
		return nil, &MissingKeyError[K]{Key: key}
	}
	return p, nil
}

// MustGet is like Get but panics when key is absent.
func (m *GenMap[K, V]) MustGet(key K) V {
	v, err := m.TryGet(key)
	if err != nil {
		panic(err)
	}
	return v
}

// Remove deletes key and returns its value.
func (m *GenMap[K, V]) Remove(key K) (V, bool) {
	id, ok := m.GetID(key)
	if !ok {
		var zero V
		return zero, false
	}
	e, _ := m.values.Remove(id)
	m.search.Delete(key)
	return e.value, true
}

// TryRemove is like Remove but reports an absent key as *MissingKeyError.
func (m *GenMap[K, V]) TryRemove(key K) (V, error) {
	v, ok := m.Remove(key)
	if !ok {
		return v, &MissingKeyError[K]{Key: key}
	}
	return v, nil
}

// GetByID returns the value stored under id.
func (m *GenMap[K, V]) GetByID(id GenID) (V, bool) {
	if p := m.GetPtrByID(id); p != nil {
		return *p, true
	}
	var zero V
	return zero, false
}

// GetPtrByID returns a pointer to the value stored under id, or nil.
func (m *GenMap[K, V]) GetPtrByID(id GenID) *V {
	e := m.values.GetPtr(id)
	if e == nil {
		return nil
	}
	return &e.value
}

// KeyOf returns the key of the entry stored under id.
func (m *GenMap[K, V]) KeyOf(id GenID) (K, bool) {
	e := m.values.GetPtr(id)
	if e == nil {
		var zero K
		return zero, false
	}
	return e.key, true
}

// RemoveByID deletes the entry stored under id together with its key.
func (m *GenMap[K, V]) RemoveByID(id GenID) (K, V, bool) {
	e, ok := m.values.Remove(id)
	if !ok {
		return e.key, e.value, false
	}
	m.search.Delete(e.key)
	return e.key, e.value, true
}

// TryGetManyByID returns pointers to the values of several distinct entries.
// It fails like GenVec.TryGetMany.
func (m *GenMap[K, V]) TryGetManyByID(ids ...GenID) ([]*V, error) {
	entries, err := m.values.TryGetMany(ids...)
	if err != nil {
		return nil, err
	}
	out := make([]*V, len(entries))
	for i, e := range entries {
		out[i] = &e.value
	}
	return out, nil
}

// Rename moves the entry stored under from to the key to. The entry keeps its
// handle. Renaming a key to itself succeeds without changes.
func (m *GenMap[K, V]) Rename(from, to K) error {
	id, ok := m.GetID(from)
	if !ok {
		return &MissingKeyError[K]{Key: from}
	}
	if from == to {
		return nil
	}
	if m.Contains(to) {
		return &DuplicateKeyError[K]{Key: to}
	}
	m.values.GetUnchecked(id).key = to
	m.search.Delete(from)
	m.search.Put(to, id)
	return nil
}

// Len returns the number of entries.
func (m *GenMap[K, V]) Len() int {
	return m.values.Len()
}

// IsEmpty reports whether the map holds no entries.
func (m *GenMap[K, V]) IsEmpty() bool {
	return m.values.IsEmpty()
}

// Cap returns the capacity of the backing slot storage.
func (m *GenMap[K, V]) Cap() int {
	return m.values.Cap()
}

// Reserve makes room for additional more entries in both the slot storage and
// the key index.
func (m *GenMap[K, V]) Reserve(additional int) {
	if additional <= 0 {
		return
	}
	m.values.Reserve(additional)
	m.search = regrowIndex(m.search, m.values.Len()+additional)
}

// Clear removes every entry. Handles issued before the call stay invalid.
func (m *GenMap[K, V]) Clear() {
	m.values.Clear()
	m.search = swiss.New[K, GenID](0)
}

// Retain removes every entry for which keep returns false.
func (m *GenMap[K, V]) Retain(keep func(key K, value *V) bool) {
	m.values.Retain(func(_ GenID, e *mapEntry[K, V]) bool {
		if keep(e.key, &e.value) {
			return true
		}
		m.search.Delete(e.key)
		return false
	})
}

// All iterates over keys and values in slot order.
func (m *GenMap[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for _, e := range m.values.All() {
			if !yield(e.key, e.value) {
				return
			}
		}
	}
}

// Keys iterates over the keys in slot order.
func (m *GenMap[K, V]) Keys() iter.Seq[K] {
	return func(yield func(K) bool) {
		for _, e := range m.values.All() {
			if !yield(e.key) {
				return
			}
		}
	}
}

// Values iterates over the values in slot order.
func (m *GenMap[K, V]) Values() iter.Seq[V] {
	return func(yield func(V) bool) {
		for _, e := range m.values.All() {
			if !yield(e.value) {
				return
			}
		}
	}
}

// Entries iterates over the handle and key of every entry in slot order.
func (m *GenMap[K, V]) Entries() iter.Seq2[GenID, K] {
	return func(yield func(GenID, K) bool) {
		for id, e := range m.values.All() {
			if !yield(id, e.key) {
				return
			}
		}
	}
}

// Validate checks that the key index and the stored entries describe the
// same bijection between keys and handles.
func (m *GenMap[K, V]) Validate() error {
	if err := m.values.Validate(); err != nil {
		return err
	}
	indexed := 0
	if m.search != nil {
		indexed = m.search.Len()
	}
	if indexed != m.values.Len() {
		return corrupted("%d keys indexed for %d entries", indexed, m.values.Len())
	}
	for id, e := range m.values.All() {
		got, ok := m.GetID(e.key)
		if !ok {
			return corrupted("key %v of %s is not indexed", e.key, id)
		}
		if got != id {
			return corrupted("key %v indexed at %s but stored at %s", e.key, got, id)
		}
	}
	return nil
}

// regrowIndex returns an index holding the entries of search with room for
// capacity keys.
func regrowIndex[K comparable](search *swiss.Map[K, GenID], capacity int) *swiss.Map[K, GenID] {
	grown := swiss.New[K, GenID](capacity)
	if search != nil {
		search.All(func(k K, id GenID) bool {
			grown.Put(k, id)
			return true
		})
	}
	return grown
}
