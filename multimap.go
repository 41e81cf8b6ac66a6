package genmap

import (
	"iter"
	"slices"

	"github.com/cockroachdb/swiss"
)

// MultiEntry is a value together with every key it can be reached by. The
// first key is the main key; the others are backward-compatibility aliases in
// the order they were added.
type MultiEntry[K comparable, V any] struct {
	Keys  []K
	Value V
}

// MainKey returns the first key of the entry.
func (e MultiEntry[K, V]) MainKey() K {
	return e.Keys[0]
}

// BackwardCompatKeys returns the aliases that follow the main key.
func (e MultiEntry[K, V]) BackwardCompatKeys() []K {
	return e.Keys[1:]
}

// MultiMap stores values that can each be reached through one or more keys.
// A key belongs to at most one entry. An entry lives as long as it has at
// least one key: removing its last key removes the value.
//
// The zero value is an empty MultiMap ready to use.
type MultiMap[K comparable, V any] struct {
	values GenVec[MultiEntry[K, V]]
	search *swiss.Map[K, GenID]
}

// NewMultiMap creates an empty MultiMap.
func NewMultiMap[K comparable, V any]() *MultiMap[K, V] {
	return NewMultiMapWithCapacity[K, V](0)
}

// NewMultiMapWithCapacity creates an empty MultiMap sized for capacity
// entries with one key each.
func NewMultiMapWithCapacity[K comparable, V any](capacity int) *MultiMap[K, V] {
	capacity = max(capacity, 0)
	return &MultiMap[K, V]{
		values: GenVec[MultiEntry[K, V]]{slots: make([]slot[MultiEntry[K, V]], 0, capacity)},
		search: swiss.New[K, GenID](capacity),
	}
}

// MultiMapFromSeq collects seq into a new MultiMap. Inputs whose keys collide
// with an earlier input, or that carry no key, are skipped.
func MultiMapFromSeq[K comparable, V any](seq iter.Seq2[[]K, V]) *MultiMap[K, V] {
	m := NewMultiMap[K, V]()
	for keys, v := range seq {
		m.InsertWithKeys(keys, v)
	}
	return m
}

func (m *MultiMap[K, V]) index() *swiss.Map[K, GenID] {
	if m.search == nil {
		m.search = swiss.New[K, GenID](0)
	}
	return m.search
}

// GetID returns the handle of the entry key belongs to.
func (m *MultiMap[K, V]) GetID(key K) (GenID, bool) {
	if m.search == nil {
		return NullGenID, false
	}
	return m.search.Get(key)
}

// Contains reports whether key belongs to an entry.
func (m *MultiMap[K, V]) Contains(key K) bool {
	_, ok := m.GetID(key)
	return ok
}

// Insert stores value under a single key. It fails if key is taken.
func (m *MultiMap[K, V]) Insert(key K, value V) (GenID, bool) {
	return m.InsertWithKeys([]K{key}, value)
}

// InsertWithKeys stores value under all of keys, keys[0] being the main key.
// It fails without changing anything if keys is empty, repeats a key, or
// contains a key that is already taken.
func (m *MultiMap[K, V]) InsertWithKeys(keys []K, value V) (GenID, bool) {
	id, err := m.TryInsertWithKeys(keys, value)
	return id, err == nil
}

// TryInsertWithKeys is like InsertWithKeys but hands the keys back in a
// *RejectedKeysError on failure. The reason is ErrEmptyKeys or
// ErrDuplicateKey.
func (m *MultiMap[K, V]) TryInsertWithKeys(keys []K, value V) (GenID, error) {
	if len(keys) == 0 {
		return NullGenID, &RejectedKeysError[K]{Keys: keys, Reason: ErrEmptyKeys}
	}
	if !m.keysAvailable(keys) {
		return NullGenID, &RejectedKeysError[K]{Keys: keys, Reason: ErrDuplicateKey}
	}
	id := m.values.Insert(MultiEntry[K, V]{Keys: slices.Clone(keys), Value: value})
	search := m.index()
	for _, k := range keys {
		search.Put(k, id)
	}
	return id, nil
}

// keysAvailable reports whether keys holds no repeated key and none of them
// is taken.
func (m *MultiMap[K, V]) keysAvailable(keys []K) bool {
	if hasRepeat(keys) {
		return false
	}
	for _, k := range keys {
		if m.Contains(k) {
			return false
		}
	}
	return true
}

func hasRepeat[K comparable](keys []K) bool {
	if len(keys) <= disjointScanLimit {
		for i := 1; i < len(keys); i++ {
			if slices.Contains(keys[:i], keys[i]) {
				return true
			}
		}
		return false
	}
	seen := make(map[K]struct{}, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			return true
		}
		seen[k] = struct{}{}
	}
	return false
}

// AddKey makes the entry stored under id reachable through key as well.
func (m *MultiMap[K, V]) AddKey(id GenID, key K) error {
	return m.AddKeys(id, key)
}

// AddKeys appends keys, in order, to the aliases of the entry stored under
// id. Either all keys are added or none: on failure the keys come back in a
// *RejectedKeysError whose reason is ErrInvalidID or ErrDuplicateKey.
func (m *MultiMap[K, V]) AddKeys(id GenID, keys ...K) error {
	e := m.values.GetPtr(id)
	if e == nil {
		return &RejectedKeysError[K]{Keys: keys, Reason: ErrInvalidID}
	}
	if !m.keysAvailable(keys) {
		return &RejectedKeysError[K]{Keys: keys, Reason: ErrDuplicateKey}
	}
	e.Keys = append(e.Keys, keys...)
	search := m.index()
	for _, k := range keys {
		search.Put(k, id)
	}
	return nil
}

// RemoveEntryKey detaches key from its entry. If key was the entry's only
// key the whole entry is removed and returned with true. Otherwise the entry
// survives under its other keys and false is returned; a main key removed
// this way is succeeded by the next key in order.
func (m *MultiMap[K, V]) RemoveEntryKey(key K) (MultiEntry[K, V], bool) {
	var none MultiEntry[K, V]
	id, ok := m.GetID(key)
	if !ok {
		return none, false
	}
	e := m.values.GetPtr(id)
	if e == nil {
		return none, false
	}
	if len(e.Keys) == 1 {
		entry, _ := m.values.Remove(id)
		m.search.Delete(key)
		return entry, true
	}
	if i := slices.Index(e.Keys, key); i >= 0 {
		// copy first: entries handed out by All or Retain share the old slice
		e.Keys = slices.Delete(slices.Clone(e.Keys), i, i+1)
	}
	m.search.Delete(key)
	return none, false
}

// RemoveKey is like RemoveEntryKey but returns only the value.
func (m *MultiMap[K, V]) RemoveKey(key K) (V, bool) {
	e, ok := m.RemoveEntryKey(key)
	return e.Value, ok
}

// RemoveByID removes the entry stored under id along with all of its keys.
func (m *MultiMap[K, V]) RemoveByID(id GenID) (MultiEntry[K, V], bool) {
	e, ok := m.values.Remove(id)
	if !ok {
		return e, false
	}
	for _, k := range e.Keys {
		m.search.Delete(k)
	}
	return e, true
}

// Get returns the value reachable through key.
func (m *MultiMap[K, V]) Get(key K) (V, bool) {
	if p := m.GetPtr(key); p != nil {
		return *p, true
	}
	var zero V
	return zero, false
}

// GetPtr returns a pointer to the value reachable through key, or nil.
func (m *MultiMap[K, V]) GetPtr(key K) *V {
	id, ok := m.GetID(key)
	if !ok {
		return nil
	}
	return m.GetPtrByID(id)
}

// TryGet is like Get but reports an absent key as *MissingKeyError.
func (m *MultiMap[K, V]) TryGet(key K) (V, error) {
	v, ok := m.Get(key)
	if !ok {
		return v, &MissingKeyError[K]{Key: key}
	}
	return v, nil
}

// TryGetPtr is like GetPtr but reports an absent key as *MissingKeyError.
func (m *MultiMap[K, V]) TryGetPtr(key K) (*V, error) {
	p := m.GetPtr(key)
	if p == nil {
		return nil, &MissingKeyError[K]{Key: key}
	}
	return p, nil
}

// MustGet is like Get but panics when key is absent.
func (m *MultiMap[K, V]) MustGet(key K) V {
	v, err := m.TryGet(key)
	if err != nil {
		panic(err)
	}
	return v
}

// GetByID returns the value stored under id.
func (m *MultiMap[K, V]) GetByID(id GenID) (V, bool) {
	if p := m.GetPtrByID(id); p != nil {
		return *p, true
	}
	var zero V
	return zero, false
}

// GetPtrByID returns a pointer to the value stored under id, or nil.
func (m *MultiMap[K, V]) GetPtrByID(id GenID) *V {
	e := m.values.GetPtr(id)
	if e == nil {
		return nil
	}
	return &e.Value
}

// EntryByID returns a copy of the entry stored under id.
func (m *MultiMap[K, V]) EntryByID(id GenID) (MultiEntry[K, V], bool) {
	e := m.values.GetPtr(id)
	if e == nil {
		return MultiEntry[K, V]{}, false
	}
	return MultiEntry[K, V]{Keys: slices.Clone(e.Keys), Value: e.Value}, true
}

// Keys returns a copy of the keys of the entry stored under id, main key
// first.
func (m *MultiMap[K, V]) Keys(id GenID) []K {
	e := m.values.GetPtr(id)
	if e == nil {
		return nil
	}
	return slices.Clone(e.Keys)
}

// MainKey returns the main key of the entry stored under id.
func (m *MultiMap[K, V]) MainKey(id GenID) (K, bool) {
	e := m.values.GetPtr(id)
	if e == nil {
		var zero K
		return zero, false
	}
	return e.MainKey(), true
}

// TryGetManyByID returns pointers to the values of several distinct entries.
// It fails like GenVec.TryGetMany.
func (m *MultiMap[K, V]) TryGetManyByID(ids ...GenID) ([]*V, error) {
	entries, err := m.values.TryGetMany(ids...)
	if err != nil {
		return nil, err
	}
	out := make([]*V, len(entries))
	for i, e := range entries {
		out[i] = &e.Value
	}
	return out, nil
}

// Retain removes every entry for which keep returns false, keys included.
// keep must not modify the Keys slice it is given.
func (m *MultiMap[K, V]) Retain(keep func(entry MultiEntry[K, V]) bool) {
	m.values.Retain(func(_ GenID, e *MultiEntry[K, V]) bool {
		if keep(*e) {
			return true
		}
		m.dropKeys(e.Keys)
		return false
	})
}

// RetainMut is like Retain but hands out the handle and a pointer to the
// value, which keep may modify.
func (m *MultiMap[K, V]) RetainMut(keep func(id GenID, value *V) bool) {
	m.values.Retain(func(id GenID, e *MultiEntry[K, V]) bool {
		if keep(id, &e.Value) {
			return true
		}
		m.dropKeys(e.Keys)
		return false
	})
}

func (m *MultiMap[K, V]) dropKeys(keys []K) {
	for _, k := range keys {
		m.search.Delete(k)
	}
}

// Len returns the number of entries, not keys.
func (m *MultiMap[K, V]) Len() int {
	return m.values.Len()
}

// KeyCount returns the number of keys across all entries.
func (m *MultiMap[K, V]) KeyCount() int {
	if m.search == nil {
		return 0
	}
	return m.search.Len()
}

// IsEmpty reports whether the map holds no entries.
func (m *MultiMap[K, V]) IsEmpty() bool {
	return m.values.IsEmpty()
}

// Cap returns the capacity of the backing slot storage.
func (m *MultiMap[K, V]) Cap() int {
	return m.values.Cap()
}

// Reserve makes room for additional more single-key entries.
func (m *MultiMap[K, V]) Reserve(additional int) {
	if additional <= 0 {
		return
	}
	m.values.Reserve(additional)
	m.search = regrowIndex(m.search, m.KeyCount()+additional)
}

// Clear removes every entry. Handles issued before the call stay invalid.
func (m *MultiMap[K, V]) Clear() {
	m.values.Clear()
	m.search = swiss.New[K, GenID](0)
}

// All iterates over the handle and entry of every value in slot order. The
// Keys slice of the yielded entry must not be modified.
func (m *MultiMap[K, V]) All() iter.Seq2[GenID, MultiEntry[K, V]] {
	return func(yield func(GenID, MultiEntry[K, V]) bool) {
		for id, e := range m.values.All() {
			if !yield(id, *e) {
				return
			}
		}
	}
}

// Values iterates over the values in slot order.
func (m *MultiMap[K, V]) Values() iter.Seq[V] {
	return func(yield func(V) bool) {
		for _, e := range m.values.All() {
			if !yield(e.Value) {
				return
			}
		}
	}
}

// Validate checks that every entry has at least one key, that every key
// resolves to the entry listing it, and that no key is listed twice.
func (m *MultiMap[K, V]) Validate() error {
	if err := m.values.Validate(); err != nil {
		return err
	}
	listed := 0
	for id, e := range m.values.All() {
		if len(e.Keys) == 0 {
			return corrupted("entry %s has no key", id)
		}
		for _, k := range e.Keys {
			got, ok := m.GetID(k)
			if !ok {
				return corrupted("key %v of %s is not indexed", k, id)
			}
			if got != id {
				return corrupted("key %v listed by %s but indexed at %s", k, id, got)
			}
		}
		listed += len(e.Keys)
	}
	if listed != m.KeyCount() {
		return corrupted("%d keys listed but %d indexed", listed, m.KeyCount())
	}
	return nil
}
