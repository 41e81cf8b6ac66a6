package genmap

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var propertySeeds = []uint64{1, 7, 42, 1337, 90210}

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Handles are valid until removed and never resolve again afterwards, even
// once their slot is reused. Len always matches iteration.
// go test -run ^TestGenVecHandleProperties$ . -count 1
func TestGenVecHandleProperties(t *testing.T) {
	for _, seed := range propertySeeds {
		t.Run(fmt.Sprint(seed), func(t *testing.T) {
			rng := newRand(seed)
			v := NewGenVec[int]()
			live := map[GenID]int{}
			var dead []GenID

			for step := range 4000 {
				switch op := rng.IntN(100); {
				case op < 55:
					id := v.Insert(step)
					_, exists := live[id]
					require.False(t, exists, "handle %s handed out twice", id)
					require.False(t, slices.Contains(dead, id), "dead handle %s revived", id)
					live[id] = step
				case op < 95:
					if len(live) == 0 {
						continue
					}
					id := pickKey(rng, live)
					got, ok := v.Remove(id)
					require.True(t, ok)
					require.Equal(t, live[id], got)
					delete(live, id)
					dead = append(dead, id)
				case op < 98:
					if len(dead) == 0 {
						continue
					}
					_, ok := v.Remove(dead[rng.IntN(len(dead))])
					require.False(t, ok)
				default:
					for id := range live {
						dead = append(dead, id)
					}
					clear(live)
					v.Clear()
				}

				require.Equal(t, len(live), v.Len())
				require.Len(t, slices.Collect(v.IDs()), v.Len())
				require.NoError(t, v.Validate())
			}

			for id, want := range live {
				got, ok := v.Get(id)
				require.True(t, ok)
				require.Equal(t, want, got)
			}
			for _, id := range dead {
				require.False(t, v.IsValid(id), "stale handle %s resolves", id)
			}
		})
	}
}

// The key index and the entries always describe the same bijection, and the
// map agrees with a plain Go map driven by the same operations.
// go test -run ^TestGenMapModel$ . -count 1
func TestGenMapModel(t *testing.T) {
	for _, seed := range propertySeeds {
		t.Run(fmt.Sprint(seed), func(t *testing.T) {
			rng := newRand(seed)
			keys := make([]string, 64)
			for i := range keys {
				keys[i] = uuid.NewString()
			}
			m := NewGenMap[string, int]()
			model := map[string]int{}

			for step := range 3000 {
				k := keys[rng.IntN(len(keys))]
				switch op := rng.IntN(100); {
				case op < 50:
					old, replaced := m.Insert(k, step)
					want, existed := model[k]
					require.Equal(t, existed, replaced)
					if existed {
						require.Equal(t, want, old)
					}
					model[k] = step
				case op < 80:
					got, ok := m.Remove(k)
					want, existed := model[k]
					require.Equal(t, existed, ok)
					if existed {
						require.Equal(t, want, got)
					}
					delete(model, k)
				case op < 90:
					to := keys[rng.IntN(len(keys))]
					err := m.Rename(k, to)
					_, fromOK := model[k]
					_, toTaken := model[to]
					switch {
					case !fromOK:
						require.ErrorIs(t, err, ErrMissingKey)
					case k == to:
						require.NoError(t, err)
					case toTaken:
						require.ErrorIs(t, err, ErrDuplicateKey)
					default:
						require.NoError(t, err)
						model[to] = model[k]
						delete(model, k)
					}
				case op < 99:
					if id, ok := m.GetID(k); ok {
						key, v, removed := m.RemoveByID(id)
						require.True(t, removed)
						require.Equal(t, k, key)
						require.Equal(t, model[k], v)
						delete(model, k)
					}
				default:
					m.Clear()
					clear(model)
				}

				require.Equal(t, len(model), m.Len())
				require.NoError(t, m.Validate())
			}

			for k, want := range model {
				require.Equal(t, want, m.MustGet(k))
			}
		})
	}
}

// No key is ever shared between entries, and an entry disappears together
// with its last key.
// go test -run ^TestMultiMapModel$ . -count 1
func TestMultiMapModel(t *testing.T) {
	for _, seed := range propertySeeds {
		t.Run(fmt.Sprint(seed), func(t *testing.T) {
			rng := newRand(seed)
			m := NewMultiMap[int, int]()
			owner := map[int]GenID{}     // key -> entry
			everHad := map[GenID][]int{} // entry -> every key it was given
			removed := map[GenID]bool{}

			for step := range 3000 {
				switch op := rng.IntN(100); {
				case op < 35:
					keys := randomKeys(rng, 1+rng.IntN(3))
					id, ok := m.InsertWithKeys(keys, step)
					require.Equal(t, keysFree(owner, keys), ok)
					if ok {
						for _, k := range keys {
							owner[k] = id
						}
						everHad[id] = slices.Clone(keys)
					}
				case op < 55:
					if len(everHad) == 0 {
						continue
					}
					id := pickKey(rng, everHad)
					keys := randomKeys(rng, 1+rng.IntN(2))
					err := m.AddKeys(id, keys...)
					if removed[id] {
						require.ErrorIs(t, err, ErrInvalidID)
						continue
					}
					if keysFree(owner, keys) {
						require.NoError(t, err)
						for _, k := range keys {
							owner[k] = id
						}
						everHad[id] = append(everHad[id], keys...)
					} else {
						require.ErrorIs(t, err, ErrDuplicateKey)
					}
				case op < 95:
					k := rng.IntN(200)
					id, known := owner[k]
					before := m.Len()
					entry, gone := m.RemoveEntryKey(k)
					if !known {
						require.False(t, gone)
						continue
					}
					delete(owner, k)
					last := true
					for _, other := range owner {
						if other == id {
							last = false
							break
						}
					}
					require.Equal(t, last, gone)
					if !gone {
						// a detached key may later go to another entry
						everHad[id] = slices.DeleteFunc(everHad[id], func(old int) bool { return old == k })
					} else {
						require.Equal(t, before-1, m.Len())
						require.Equal(t, []int{k}, entry.Keys)
						removed[id] = true
						for _, old := range everHad[id] {
							got, ok := m.GetID(old)
							require.True(t, !ok || got != id, "key %d of a removed entry resolves to it", old)
						}
					}
				default:
					m.RetainMut(func(_ GenID, v *int) bool { return *v%2 == 0 })
					for k, id := range owner {
						if _, ok := m.GetByID(id); !ok {
							delete(owner, k)
							removed[id] = true
						}
					}
				}

				require.Equal(t, len(owner), m.KeyCount())
				require.NoError(t, m.Validate())
			}
		})
	}
}

// go test -run ^TestMultiMapJSONRoundTrip$ . -count 1
func TestMultiMapJSONRoundTrip(t *testing.T) {
	rng := newRand(99)
	m := NewMultiMap[string, int]()
	for i := range 200 {
		keys := []string{uuid.NewString()}
		if rng.IntN(2) == 0 {
			keys = append(keys, uuid.NewString())
		}
		m.InsertWithKeys(keys, i)
	}
	var mains []string
	for _, e := range m.All() {
		mains = append(mains, e.MainKey())
	}
	for i, k := range mains {
		if i%3 == 0 {
			m.RemoveKey(k)
		}
	}

	data, err := m.MarshalJSON()
	require.NoError(t, err)
	back := NewMultiMap[string, int]()
	require.NoError(t, back.UnmarshalJSON(data))
	require.NoError(t, back.Validate())
	require.Equal(t, m.Len(), back.Len())
	require.Equal(t, m.KeyCount(), back.KeyCount())
	for _, e := range m.All() {
		id, ok := back.GetID(e.MainKey())
		require.True(t, ok)
		require.Equal(t, e.Keys, back.Keys(id))
		require.Equal(t, e.Value, back.MustGet(e.MainKey()))
	}
}

func pickKey[K comparable, V any](rng *rand.Rand, m map[K]V) K {
	n := rng.IntN(len(m))
	for k := range m {
		if n == 0 {
			return k
		}
		n--
	}
	panic("unreachable")
}

func randomKeys(rng *rand.Rand, n int) []int {
	keys := make([]int, 0, n)
	for len(keys) < n {
		k := rng.IntN(200)
		if !slices.Contains(keys, k) {
			keys = append(keys, k)
		}
	}
	return keys
}

func keysFree(owner map[int]GenID, keys []int) bool {
	for _, k := range keys {
		if _, taken := owner[k]; taken {
			return false
		}
	}
	return true
}
