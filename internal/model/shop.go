package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type ItemStatus string

const (
	StatusRequired    ItemStatus = "required"
	StatusBought      ItemStatus = "bought"
	StatusUnavailable ItemStatus = "unavailable"
)

func (s ItemStatus) Valid() bool {
	switch s {
	case StatusRequired, StatusBought, StatusUnavailable:
		return true
	}
	return false
}

// WeeklyShop is one week's shopping list. ShopDate is the Sunday the week
// starts on.
type WeeklyShop struct {
	ID        string           `json:"id"`
	ShopDate  time.Time        `json:"shop_date"`
	CreatedAt time.Time        `json:"created_at"`
	Items     []WeeklyShopItem `json:"items"`
}

type WeeklyShopItem struct {
	ID           string              `json:"id"`
	WeeklyShopID string              `json:"weekly_shop_id"`
	ProductID    string              `json:"product_id"`
	Quantity     int                 `json:"quantity"`
	Status       ItemStatus          `json:"status"`
	MaxPrice     decimal.NullDecimal `json:"max_price"`
	CreatedAt    time.Time           `json:"created_at"`

	Product *Product `json:"product,omitempty"`
}
