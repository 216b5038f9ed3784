package catalog

import (
	"strings"

	"github.com/dukerupert/aisle/internal/model"
)

// aisleKeywords maps a typical aisle name to words that place a product
// there. More specific aisles come first.
var aisleKeywords = []struct {
	aisle string
	words []string
}{
	{"Frozen", []string{"frozen", "ice cream", "ice lolly", "fish fingers"}},
	{"Meat", []string{"chicken", "beef", "pork", "lamb", "mince", "bacon", "sausage", "ham", "turkey", "steak"}},
	{"Fish", []string{"salmon", "tuna", "cod", "prawn", "shrimp", "haddock"}},
	{"Dairy", []string{"milk", "cheese", "yoghurt", "yogurt", "butter", "cream", "eggs"}},
	{"Bakery", []string{"bread", "loaf", "bagel", "croissant", "muffin", "roll", "baguette", "tortilla", "wrap"}},
	{"Produce", []string{"apple", "banana", "orange", "lemon", "lime", "avocado", "tomato", "potato", "onion", "garlic", "lettuce", "spinach", "carrot", "pepper", "mushroom", "cucumber", "grape", "berries", "salad", "fruit"}},
	{"Drinks", []string{"water", "juice", "coffee", "tea", "soda", "cola", "beer", "wine", "squash"}},
	{"Snacks", []string{"crisps", "chips", "biscuit", "cookie", "chocolate", "sweets", "popcorn", "nuts"}},
	{"Household", []string{"toilet", "kitchen roll", "detergent", "washing", "bin bag", "foil", "cling", "soap", "sponge"}},
	{"Pantry", []string{"rice", "pasta", "flour", "sugar", "oil", "beans", "tinned", "canned", "cereal", "oats", "sauce", "spice", "stock"}},
}

// suggestAisle guesses the aisle a product name belongs in. A whole-word hit
// wins over a substring hit.
func suggestAisle(name string) (string, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return "", false
	}
	tokens := strings.Fields(name)
	for _, entry := range aisleKeywords {
		for _, w := range entry.words {
			for _, tok := range tokens {
				if tok == w || tok == w+"s" || tok == w+"es" {
					return entry.aisle, true
				}
			}
		}
	}
	for _, entry := range aisleKeywords {
		for _, w := range entry.words {
			if strings.Contains(name, w) {
				return entry.aisle, true
			}
		}
	}
	return "", false
}

// SuggestLocation picks the store location whose name contains the aisle a
// product name suggests, for prefilling a new product form.
func (c *Catalog) SuggestLocation(productName string) (model.StoreLocation, bool) {
	aisle, ok := suggestAisle(productName)
	if !ok {
		return model.StoreLocation{}, false
	}
	want := strings.ToLower(aisle)
	for _, loc := range c.Locations() {
		if strings.Contains(strings.ToLower(loc.Name), want) {
			return loc, true
		}
	}
	return model.StoreLocation{}, false
}
