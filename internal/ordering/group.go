package ordering

import (
	"cmp"
	"slices"
	"strings"

	"github.com/dukerupert/aisle/internal/model"
)

// NewProductHeadroom is added to a group's highest sequence to suggest a
// number for a new product.
const NewProductHeadroom = 3

// Groups maps a store location id to its products ordered by sequence number.
// It is a read-only projection; rebuild it with Index after any change.
type Groups map[string][]model.Product

// Index groups products by location. Within a group products are ordered by
// sequence number, then name (case-insensitive), then id.
func Index(products []model.Product) Groups {
	groups := make(Groups)
	for _, p := range products {
		groups[p.StoreLocationID] = append(groups[p.StoreLocationID], p)
	}
	for _, members := range groups {
		slices.SortStableFunc(members, CompareInGroup)
	}
	return groups
}

// CompareInGroup orders two products of the same location.
func CompareInGroup(a, b model.Product) int {
	return cmp.Or(
		cmp.Compare(a.SequenceNumber, b.SequenceNumber),
		strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)),
		strings.Compare(a.ID, b.ID),
	)
}

// Keys returns the ordered sequence numbers of a group.
func (g Groups) Keys(locationID string) []int {
	members := g[locationID]
	keys := make([]int, len(members))
	for i, p := range members {
		keys[i] = p.SequenceNumber
	}
	return keys
}

// MaxSequence returns the highest sequence number in a group, or 0 when the
// group is empty.
func (g Groups) MaxSequence(locationID string) int {
	members := g[locationID]
	if len(members) == 0 {
		return 0
	}
	return members[len(members)-1].SequenceNumber
}

// SuggestSequence proposes a sequence number for a product added to a group.
func (g Groups) SuggestSequence(locationID string) int {
	return g.MaxSequence(locationID) + NewProductHeadroom
}

// Count returns the total number of products across all groups.
func (g Groups) Count() int {
	n := 0
	for _, members := range g {
		n += len(members)
	}
	return n
}

// LocationGroup pairs a location with its ordered products.
type LocationGroup struct {
	Location model.StoreLocation `json:"location"`
	Products []model.Product     `json:"products"`
}

// Route lists every location in walking order with its products. Products
// whose location is not in locations are appended last under a zero
// location so nothing is dropped.
func Route(locations []model.StoreLocation, groups Groups) []LocationGroup {
	ordered := slices.Clone(locations)
	slices.SortStableFunc(ordered, func(a, b model.StoreLocation) int {
		return cmp.Or(
			cmp.Compare(a.SequenceNumber, b.SequenceNumber),
			strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)),
		)
	})

	route := make([]LocationGroup, 0, len(ordered))
	known := make(map[string]bool, len(ordered))
	for _, loc := range ordered {
		known[loc.ID] = true
		route = append(route, LocationGroup{Location: loc, Products: groups[loc.ID]})
	}

	var orphans []model.Product
	for id, members := range groups {
		if !known[id] {
			orphans = append(orphans, members...)
		}
	}
	if len(orphans) > 0 {
		slices.SortStableFunc(orphans, CompareInGroup)
		route = append(route, LocationGroup{Products: orphans})
	}
	return route
}
