package ordering

import (
	"testing"

	"github.com/dukerupert/aisle/internal/model"
)

func sampleProducts() []model.Product {
	return []model.Product{
		{ID: "p1", Name: "Milk", StoreLocationID: "dairy", SequenceNumber: 20},
		{ID: "p2", Name: "Butter", StoreLocationID: "dairy", SequenceNumber: 10},
		{ID: "p3", Name: "apples", StoreLocationID: "produce", SequenceNumber: 5},
		{ID: "p4", Name: "Bananas", StoreLocationID: "produce", SequenceNumber: 5},
		{ID: "p5", Name: "Cheese", StoreLocationID: "dairy", SequenceNumber: 20},
	}
}

func TestIndexCompleteness(t *testing.T) {
	products := sampleProducts()
	groups := Index(products)

	if groups.Count() != len(products) {
		t.Fatalf("count = %d, want %d", groups.Count(), len(products))
	}
	for _, p := range products {
		hits := 0
		for loc, members := range groups {
			for _, m := range members {
				if m.ID == p.ID {
					hits++
					if loc != p.StoreLocationID {
						t.Errorf("%s grouped under %s, want %s", p.ID, loc, p.StoreLocationID)
					}
				}
			}
		}
		if hits != 1 {
			t.Errorf("%s appears %d times, want 1", p.ID, hits)
		}
	}
}

func TestIndexOrdering(t *testing.T) {
	groups := Index(sampleProducts())

	wantDairy := []string{"p2", "p5", "p1"}
	for i, p := range groups["dairy"] {
		if p.ID != wantDairy[i] {
			t.Errorf("dairy[%d] = %s, want %s", i, p.ID, wantDairy[i])
		}
	}
	wantProduce := []string{"p3", "p4"}
	for i, p := range groups["produce"] {
		if p.ID != wantProduce[i] {
			t.Errorf("produce[%d] = %s, want %s", i, p.ID, wantProduce[i])
		}
	}
}

func TestIndexDoesNotMutateInput(t *testing.T) {
	products := sampleProducts()
	Index(products)
	if products[0].ID != "p1" || products[1].ID != "p2" {
		t.Error("input slice was reordered")
	}
}

func TestMaxAndSuggestSequence(t *testing.T) {
	groups := Index(sampleProducts())

	if got := groups.MaxSequence("dairy"); got != 20 {
		t.Errorf("MaxSequence(dairy) = %d, want 20", got)
	}
	if got := groups.MaxSequence("frozen"); got != 0 {
		t.Errorf("MaxSequence(frozen) = %d, want 0", got)
	}
	if got := groups.SuggestSequence("dairy"); got != 23 {
		t.Errorf("SuggestSequence(dairy) = %d, want 23", got)
	}
	if got := groups.SuggestSequence("frozen"); got != 3 {
		t.Errorf("SuggestSequence(frozen) = %d, want 3", got)
	}
}

func TestRoute(t *testing.T) {
	locations := []model.StoreLocation{
		{ID: "dairy", Name: "Dairy", SequenceNumber: 2},
		{ID: "frozen", Name: "Frozen", SequenceNumber: 3},
		{ID: "produce", Name: "Produce", SequenceNumber: 1},
	}
	products := append(sampleProducts(), model.Product{ID: "p6", Name: "Lost", StoreLocationID: "gone"})

	route := Route(locations, Index(products))
	if len(route) != 4 {
		t.Fatalf("route has %d stops, want 4", len(route))
	}
	want := []string{"produce", "dairy", "frozen", ""}
	for i, stop := range route {
		if stop.Location.ID != want[i] {
			t.Errorf("stop %d = %q, want %q", i, stop.Location.ID, want[i])
		}
	}
	if len(route[2].Products) != 0 {
		t.Errorf("frozen has %d products, want 0", len(route[2].Products))
	}
	if len(route[3].Products) != 1 || route[3].Products[0].ID != "p6" {
		t.Errorf("orphan stop = %+v, want p6", route[3].Products)
	}
}
