package chapters

import (
	"cmp"
	"slices"
	"strconv"
)

// Compare orders chapter identifiers numerically, so "99" sorts before
// "100". Non-numeric identifiers sort after numeric ones, lexically.
func Compare(a, b string) int {
	na, errA := strconv.Atoi(a)
	nb, errB := strconv.Atoi(b)
	switch {
	case errA == nil && errB == nil:
		if c := cmp.Compare(na, nb); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	case errA == nil:
		return -1
	case errB == nil:
		return 1
	default:
		return cmp.Compare(a, b)
	}
}

// Sort sorts ids in place with Compare.
func Sort(ids []string) {
	slices.SortFunc(ids, Compare)
}
