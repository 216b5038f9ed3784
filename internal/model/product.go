package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type ShelfHeight string

const (
	ShelfTop    ShelfHeight = "top"
	ShelfMiddle ShelfHeight = "middle"
	ShelfBottom ShelfHeight = "bottom"
)

// Ordinal returns the walking rank of the shelf. Unknown or empty heights
// rank as bottom.
func (h ShelfHeight) Ordinal() int {
	switch h {
	case ShelfTop:
		return 1
	case ShelfMiddle:
		return 2
	default:
		return 3
	}
}

func (h ShelfHeight) Valid() bool {
	switch h {
	case ShelfTop, ShelfMiddle, ShelfBottom:
		return true
	}
	return false
}

type Product struct {
	ID              string              `json:"id"`
	Name            string              `json:"name"`
	Aliases         []string            `json:"aliases"`
	StoreLocationID string              `json:"store_location_id"`
	ShelfHeight     ShelfHeight         `json:"shelf_height"`
	SequenceNumber  int                 `json:"sequence_number"`
	TypicalPrice    decimal.NullDecimal `json:"typical_price"`
	DefaultQuantity int                 `json:"default_quantity"`
	ProductURL      string              `json:"product_url,omitempty"`
	ImageURL        string              `json:"image_url,omitempty"`
	Barcode         string              `json:"barcode,omitempty"`
	Notes           string              `json:"notes,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`

	Location *StoreLocation `json:"location,omitempty"`
}

// Placement is the (location, sequence) pair that positions a product in the
// walking order. Moving a product always writes both fields together.
type Placement struct {
	ProductID       string `json:"product_id"`
	StoreLocationID string `json:"store_location_id"`
	SequenceNumber  int    `json:"sequence_number"`
}

// ParseAliases splits comma-separated alias text, dropping blanks.
func ParseAliases(s string) []string {
	var aliases []string
	for _, part := range strings.Split(s, ",") {
		if a := strings.TrimSpace(part); a != "" {
			aliases = append(aliases, a)
		}
	}
	return aliases
}
