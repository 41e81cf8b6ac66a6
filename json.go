package genmap

import (
	"encoding/json"
	"errors"
	"fmt"
)

// The JSON forms hold only the logical content: a list of entries in slot
// order. Handles, generations and the key index are rebuilt on decode.

type jsonMapEntry[K, V any] struct {
	Key   K `json:"key"`
	Value V `json:"value"`
}

type jsonMultiEntry[K, V any] struct {
	Keys  []K `json:"keys"`
	Value V   `json:"value"`
}

// MarshalJSON encodes the map as [{"key":k,"value":v},...].
func (m *GenMap[K, V]) MarshalJSON() ([]byte, error) {
	entries := make([]jsonMapEntry[K, V], 0, m.Len())
	for k, v := range m.All() {
		entries = append(entries, jsonMapEntry[K, V]{Key: k, Value: v})
	}
	return json.Marshal(entries)
}

// UnmarshalJSON replaces the content of m with the decoded entries. Input
// that repeats a key is rejected with ErrDuplicateKeyDecode and leaves m
// untouched.
func (m *GenMap[K, V]) UnmarshalJSON(data []byte) error {
	var entries []jsonMapEntry[K, V]
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	decoded := NewGenMapWithCapacity[K, V](len(entries))
	for _, e := range entries {
		if decoded.Contains(e.Key) {
			return fmt.Errorf("%w: %v", ErrDuplicateKeyDecode, e.Key)
		}
		decoded.Insert(e.Key, e.Value)
	}
	*m = *decoded
	return nil
}

// MarshalJSON encodes the map as [{"keys":[...],"value":v},...].
func (m *MultiMap[K, V]) MarshalJSON() ([]byte, error) {
	entries := make([]jsonMultiEntry[K, V], 0, m.Len())
	for _, e := range m.All() {
		entries = append(entries, jsonMultiEntry[K, V]{Keys: e.Keys, Value: e.Value})
	}
	return json.Marshal(entries)
}

// UnmarshalJSON replaces the content of m with the decoded entries. Input in
// which two entries share a key, or an entry has no key, is rejected and
// leaves m untouched.
func (m *MultiMap[K, V]) UnmarshalJSON(data []byte) error {
	var entries []jsonMultiEntry[K, V]
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	decoded := NewMultiMapWithCapacity[K, V](len(entries))
	for i, e := range entries {
		if _, err := decoded.TryInsertWithKeys(e.Keys, e.Value); err != nil {
			if errors.Is(err, ErrEmptyKeys) {
				return fmt.Errorf("entry %d: %w", i, ErrEmptyKeys)
			}
			return fmt.Errorf("%w: entry %d keys %v", ErrDuplicateKeyDecode, i, e.Keys)
		}
	}
	*m = *decoded
	return nil
}
