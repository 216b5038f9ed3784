// Package ordering computes sequence numbers for drag reordering and derives
// location groups from a flat product collection.
package ordering

// Gap is the spacing between freshly assigned sequence numbers. It leaves
// room for midpoint insertions before a group has to be renumbered.
const Gap = 10

// Baseline is the sequence given to the first item of an empty group.
const Baseline = Gap

// Allocation is the outcome of Allocate. When NeedsRenumber is set, Sequence
// collides with a neighbour and must not be used.
type Allocation struct {
	Sequence      int
	NeedsRenumber bool
}

// Allocate returns the sequence number for an item inserted at index into a
// group whose keys are ordered ascending. The moved item itself must not be
// part of keys. Out of range indexes are clamped.
func Allocate(keys []int, index int) Allocation {
	n := len(keys)
	if n == 0 {
		return Allocation{Sequence: Baseline}
	}
	index = max(0, min(index, n))

	switch index {
	case 0:
		return Allocation{Sequence: keys[0] - Gap}
	case n:
		return Allocation{Sequence: keys[n-1] + Gap}
	}

	prev, next := keys[index-1], keys[index]
	mid := floorDiv(prev+next, 2)
	if mid <= prev || mid >= next {
		return Allocation{Sequence: mid, NeedsRenumber: true}
	}
	return Allocation{Sequence: mid}
}

// Renumber returns fresh keys for a group of n items, preserving order.
func Renumber(n int) []int {
	keys := make([]int, n)
	for i := range keys {
		keys[i] = (i + 1) * Gap
	}
	return keys
}

// Plan describes how to place an item into a group. Renumbered is nil unless
// the existing group had to be given fresh keys first; when set it holds the
// new key for each existing item in its current order.
type Plan struct {
	Sequence   int
	Renumbered []int
}

// PlanInsert allocates a key at index and falls back to renumbering the group
// when the neighbours leave no room.
func PlanInsert(keys []int, index int) Plan {
	a := Allocate(keys, index)
	if !a.NeedsRenumber {
		return Plan{Sequence: a.Sequence}
	}
	fresh := Renumber(len(keys))
	return Plan{Sequence: Allocate(fresh, index).Sequence, Renumbered: fresh}
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
