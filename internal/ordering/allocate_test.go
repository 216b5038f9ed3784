package ordering

import (
	"slices"
	"testing"
)

func TestAllocate(t *testing.T) {
	tests := []struct {
		name  string
		keys  []int
		index int
		want  Allocation
	}{
		{"empty group", nil, 0, Allocation{Sequence: Baseline}},
		{"front", []int{10, 20, 30}, 0, Allocation{Sequence: 0}},
		{"end", []int{10, 20, 30}, 3, Allocation{Sequence: 40}},
		{"middle", []int{10, 20, 30}, 1, Allocation{Sequence: 15}},
		{"odd gap floors", []int{10, 13}, 1, Allocation{Sequence: 11}},
		{"negative floors down", []int{-11, -8}, 1, Allocation{Sequence: -10}},
		{"adjacent collide", []int{10, 11}, 1, Allocation{Sequence: 10, NeedsRenumber: true}},
		{"equal neighbours collide", []int{5, 5}, 1, Allocation{Sequence: 5, NeedsRenumber: true}},
		{"index clamped high", []int{10}, 7, Allocation{Sequence: 20}},
		{"index clamped low", []int{10}, -2, Allocation{Sequence: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Allocate(tt.keys, tt.index)
			if got != tt.want {
				t.Errorf("Allocate(%v, %d) = %+v, want %+v", tt.keys, tt.index, got, tt.want)
			}
		})
	}
}

func TestAllocateStrictlyBetweenNeighbours(t *testing.T) {
	keys := []int{-40, -3, 0, 1, 2, 9, 50, 51, 1000}
	for i := 0; i <= len(keys); i++ {
		a := Allocate(keys, i)
		if a.NeedsRenumber {
			if i > 0 && i < len(keys) && keys[i]-keys[i-1] > 1 {
				t.Errorf("index %d: renumber requested with room between %d and %d", i, keys[i-1], keys[i])
			}
			continue
		}
		if i > 0 && a.Sequence <= keys[i-1] {
			t.Errorf("index %d: %d not above %d", i, a.Sequence, keys[i-1])
		}
		if i < len(keys) && a.Sequence >= keys[i] {
			t.Errorf("index %d: %d not below %d", i, a.Sequence, keys[i])
		}
	}
}

func TestPlanInsertRenumbersOnCollision(t *testing.T) {
	plan := PlanInsert([]int{10, 11}, 1)
	if !slices.Equal(plan.Renumbered, []int{10, 20}) {
		t.Fatalf("renumbered = %v, want [10 20]", plan.Renumbered)
	}
	if plan.Sequence != 15 {
		t.Errorf("sequence = %d, want 15", plan.Sequence)
	}
}

func TestPlanInsertLeavesRoomyGroupAlone(t *testing.T) {
	plan := PlanInsert([]int{10, 20}, 1)
	if plan.Renumbered != nil {
		t.Errorf("renumbered = %v, want nil", plan.Renumbered)
	}
	if plan.Sequence != 15 {
		t.Errorf("sequence = %d, want 15", plan.Sequence)
	}
}

func TestRepeatedMidpointInsertsStayUnique(t *testing.T) {
	keys := []int{10, 20}
	for range 50 {
		plan := PlanInsert(keys, 1)
		if plan.Renumbered != nil {
			keys = plan.Renumbered
		}
		keys = slices.Insert(keys, 1, plan.Sequence)
		if !slices.IsSorted(keys) {
			t.Fatalf("keys not sorted: %v", keys)
		}
		for j := 1; j < len(keys); j++ {
			if keys[j] == keys[j-1] {
				t.Fatalf("duplicate key %d in %v", keys[j], keys)
			}
		}
	}
}

func TestRenumberPreservesOrder(t *testing.T) {
	names := []string{"a", "b", "c", "d"}
	fresh := Renumber(len(names))
	if !slices.IsSorted(fresh) {
		t.Fatalf("renumbered keys not ascending: %v", fresh)
	}
	// Re-sorting by the fresh keys must not move anything.
	idx := []int{0, 1, 2, 3}
	slices.SortStableFunc(idx, func(a, b int) int { return fresh[a] - fresh[b] })
	if !slices.Equal(idx, []int{0, 1, 2, 3}) {
		t.Errorf("order changed after renumber: %v", idx)
	}
	if fresh[0] != Gap || fresh[3] != 4*Gap {
		t.Errorf("fresh = %v, want multiples of %d", fresh, Gap)
	}
}
