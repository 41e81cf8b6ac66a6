package genmap

// reserveSlice grows the capacity of s so that n more elements can be
// appended without reallocating.
func reserveSlice[T any](s []T, n int) []T {
	if n <= 0 || cap(s)-len(s) >= n {
		return s
	}
	newCap := max(2*cap(s), len(s)+n)
	ns := make([]T, len(s), newCap)
	copy(ns, s)
	return ns
}

// shrinkSlice drops the unused capacity of s.
func shrinkSlice[T any](s []T) []T {
	if cap(s) == len(s) {
		return s
	}
	ns := make([]T, len(s))
	copy(ns, s)
	return ns
}
