package listsort

import (
	"slices"
	"testing"

	"github.com/dukerupert/aisle/internal/model"
)

func item(id, name string, locSeq int, shelf model.ShelfHeight) model.WeeklyShopItem {
	return model.WeeklyShopItem{
		ID: id,
		Product: &model.Product{
			Name:        name,
			ShelfHeight: shelf,
			Location:    &model.StoreLocation{SequenceNumber: locSeq},
		},
	}
}

func ids(items []model.WeeklyShopItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func TestShopModeWalkingOrder(t *testing.T) {
	items := []model.WeeklyShopItem{
		item("A", "Apples", 2, model.ShelfTop),
		item("B", "Bread", 1, model.ShelfBottom),
		item("C", "Cereal", 1, model.ShelfTop),
	}
	got := ids(Sort(items, ModeShop))
	if want := []string{"C", "B", "A"}; !slices.Equal(got, want) {
		t.Errorf("shop order = %v, want %v", got, want)
	}
}

func TestShopModeDeterministicAcrossInputOrder(t *testing.T) {
	items := []model.WeeklyShopItem{
		item("A", "Apples", 2, model.ShelfTop),
		item("B", "Bread", 1, model.ShelfBottom),
		item("C", "Cereal", 1, model.ShelfTop),
		item("D", "Dates", 3, model.ShelfMiddle),
	}
	first := ids(Sort(items, ModeShop))

	reversed := slices.Clone(items)
	slices.Reverse(reversed)
	second := ids(Sort(reversed, ModeShop))

	if !slices.Equal(first, second) {
		t.Errorf("orders differ: %v vs %v", first, second)
	}
}

func TestShopModeMissingValues(t *testing.T) {
	noLocation := model.WeeklyShopItem{ID: "N", Product: &model.Product{Name: "Loose", ShelfHeight: model.ShelfTop}}
	noShelf := model.WeeklyShopItem{ID: "S", Product: &model.Product{Name: "Shelfless", Location: &model.StoreLocation{SequenceNumber: 0}}}
	noProduct := model.WeeklyShopItem{ID: "P"}
	first := item("F", "First", 1, model.ShelfTop)

	got := ids(Sort([]model.WeeklyShopItem{first, noShelf, noProduct, noLocation}, ModeShop))
	// Missing location ranks as 0 and missing shelf as bottom; ties keep input order.
	if want := []string{"N", "S", "P", "F"}; !slices.Equal(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
}

func TestShopModeUsesProductSequenceWithinShelf(t *testing.T) {
	a := item("A", "A", 1, model.ShelfTop)
	a.Product.SequenceNumber = 30
	b := item("B", "B", 1, model.ShelfTop)
	b.Product.SequenceNumber = 10

	got := ids(Sort([]model.WeeklyShopItem{a, b}, ModeShop))
	if want := []string{"B", "A"}; !slices.Equal(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
}

func TestListModeCaseInsensitive(t *testing.T) {
	items := []model.WeeklyShopItem{
		item("1", "milk", 0, ""),
		item("2", "Bread", 0, ""),
		{ID: "3"},
		item("4", "apples", 0, ""),
		item("5", "Cheese", 0, ""),
	}
	got := ids(Sort(items, ModeList))
	if want := []string{"4", "2", "5", "1", "3"}; !slices.Equal(got, want) {
		t.Errorf("list order = %v, want %v", got, want)
	}
}

func TestListModeStableForEqualNames(t *testing.T) {
	items := []model.WeeklyShopItem{
		item("x", "Eggs", 0, ""),
		item("y", "eggs", 0, ""),
		item("z", "EGGS", 0, ""),
	}
	got := ids(Sort(items, ModeList))
	if want := []string{"x", "y", "z"}; !slices.Equal(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
}

func TestSortDoesNotMutateInput(t *testing.T) {
	items := []model.WeeklyShopItem{
		item("A", "Zucchini", 2, model.ShelfTop),
		item("B", "Apples", 1, model.ShelfTop),
	}
	Sort(items, ModeList)
	Sort(items, ModeShop)
	if got := ids(items); !slices.Equal(got, []string{"A", "B"}) {
		t.Errorf("input reordered to %v", got)
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"", ModeList, false},
		{"list", ModeList, false},
		{"shop", ModeShop, false},
		{"aisle", "", true},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseMode(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseMode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
