// Package listsort orders weekly shop items for display, either
// alphabetically or as a walking route through the store.
package listsort

import (
	"cmp"
	"fmt"
	"slices"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/dukerupert/aisle/internal/model"
)

type Mode string

const (
	ModeList Mode = "list"
	ModeShop Mode = "shop"
)

// ParseMode maps a query value to a Mode. An empty value means list.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeList:
		return ModeList, nil
	case ModeShop:
		return ModeShop, nil
	}
	return "", fmt.Errorf("unknown sort mode %q", s)
}

// Sorter sorts items using the collation rules of one language.
type Sorter struct {
	tag language.Tag
}

func NewSorter(tag language.Tag) *Sorter {
	return &Sorter{tag: tag}
}

var defaultSorter = NewSorter(language.English)

// Sort returns a new, stably sorted slice using English collation.
func Sort(items []model.WeeklyShopItem, mode Mode) []model.WeeklyShopItem {
	return defaultSorter.Sort(items, mode)
}

// Sort returns a new slice; items is never modified. Items that compare equal
// keep their input order.
func (s *Sorter) Sort(items []model.WeeklyShopItem, mode Mode) []model.WeeklyShopItem {
	out := slices.Clone(items)
	if mode == ModeShop {
		slices.SortStableFunc(out, compareShop)
		return out
	}

	// A Collator keeps internal buffers and is not safe for concurrent use.
	c := collate.New(s.tag, collate.IgnoreCase)
	slices.SortStableFunc(out, func(a, b model.WeeklyShopItem) int {
		switch {
		case a.Product == nil && b.Product == nil:
			return 0
		case a.Product == nil:
			return 1
		case b.Product == nil:
			return -1
		}
		return c.CompareString(a.Product.Name, b.Product.Name)
	})
	return out
}

func compareShop(a, b model.WeeklyShopItem) int {
	return cmp.Or(
		cmp.Compare(locationSequence(a), locationSequence(b)),
		cmp.Compare(shelfOrdinal(a), shelfOrdinal(b)),
		cmp.Compare(productSequence(a), productSequence(b)),
	)
}

func locationSequence(item model.WeeklyShopItem) int {
	if item.Product == nil || item.Product.Location == nil {
		return 0
	}
	return item.Product.Location.SequenceNumber
}

func shelfOrdinal(item model.WeeklyShopItem) int {
	if item.Product == nil {
		return model.ShelfBottom.Ordinal()
	}
	return item.Product.ShelfHeight.Ordinal()
}

func productSequence(item model.WeeklyShopItem) int {
	if item.Product == nil {
		return 0
	}
	return item.Product.SequenceNumber
}
