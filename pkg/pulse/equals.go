package pulse

import "reflect"

// defaultEquals is the comparator used when no WithEquals override is set.
// Comparable values use ==; everything else falls back to reflect.DeepEqual.
func defaultEquals[T any](a, b T) bool {
	av, bv := any(a), any(b)
	if av == nil || bv == nil {
		return av == bv
	}
	if reflect.TypeOf(av).Comparable() && reflect.TypeOf(bv).Comparable() {
		return av == bv
	}
	return reflect.DeepEqual(av, bv)
}
