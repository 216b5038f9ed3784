package catalog

import (
	"testing"

	"github.com/dukerupert/aisle/internal/optimistic"
)

func TestSuggestAisle(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Apples", "Produce"},
		{"whole wheat bread", "Bakery"},
		{"Frozen peas", "Frozen"},
		{"chicken thighs", "Meat"},
		{"oat milk", "Dairy"},
		{"sparkling water", "Drinks"},
		{"blueberries", "Produce"},
		{"", ""},
		{"widget", ""},
	}
	for _, tt := range tests {
		got, _ := suggestAisle(tt.name)
		if got != tt.want {
			t.Errorf("suggestAisle(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestSuggestLocation(t *testing.T) {
	c, _ := newCatalog(t, seeded(), optimistic.Keep)

	if loc, ok := c.SuggestLocation("Granny Smith apple"); !ok || loc.ID != "produce" {
		t.Errorf("apple = %+v %v, want produce", loc, ok)
	}
	if loc, ok := c.SuggestLocation("sourdough loaf"); !ok || loc.ID != "bakery" {
		t.Errorf("loaf = %+v %v, want bakery", loc, ok)
	}
	if _, ok := c.SuggestLocation("milk"); ok {
		t.Error("milk matched a location, but there is no dairy aisle")
	}
}
