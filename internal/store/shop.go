package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dukerupert/aisle/internal/model"
)

// shopDateLayout is how shop_date is stored: a calendar day.
const shopDateLayout = time.DateOnly

type ShopStore struct {
	db *sql.DB
}

func NewShopStore(db *sql.DB) *ShopStore {
	return &ShopStore{db: db}
}

// CurrentShop returns the newest shop dated in the week starting at
// weekStart, with its items, their products and locations, or nil when there
// is none.
func (s *ShopStore) CurrentShop(ctx context.Context, weekStart time.Time) (*model.WeeklyShop, error) {
	var shop model.WeeklyShop
	var date string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, shop_date, created_at FROM weekly_shops
		 WHERE shop_date >= ? AND shop_date < ? ORDER BY shop_date DESC, created_at DESC LIMIT 1`,
		weekStart.Format(shopDateLayout), weekStart.AddDate(0, 0, 7).Format(shopDateLayout),
	).Scan(&shop.ID, &date, &shop.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get current shop: %w", err)
	}
	if shop.ShopDate, err = time.ParseInLocation(shopDateLayout, date, weekStart.Location()); err != nil {
		return nil, fmt.Errorf("parse shop date %q: %w", date, err)
	}

	items, err := s.listItems(ctx, shop.ID)
	if err != nil {
		return nil, err
	}
	shop.Items = items
	return &shop, nil
}

const shopItemCols = `i.id, i.weekly_shop_id, i.product_id, i.quantity, i.status, i.max_price, i.created_at`

func scanShopItem(scanner interface{ Scan(...any) error }) (*model.WeeklyShopItem, error) {
	var item model.WeeklyShopItem
	var p model.Product
	var loc model.StoreLocation
	var aliases string

	err := scanner.Scan(
		&item.ID, &item.WeeklyShopID, &item.ProductID, &item.Quantity, &item.Status, &item.MaxPrice, &item.CreatedAt,
		&p.ID, &p.Name, &aliases, &p.StoreLocationID, &p.ShelfHeight,
		&p.SequenceNumber, &p.TypicalPrice, &p.DefaultQuantity, &p.ProductURL,
		&p.ImageURL, &p.Barcode, &p.Notes, &p.CreatedAt,
		&loc.ID, &loc.Name, &loc.SequenceNumber, &loc.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if p.Aliases, err = decodeAliases(aliases); err != nil {
		return nil, err
	}
	p.Location = &loc
	item.Product = &p
	return &item, nil
}

func (s *ShopStore) listItems(ctx context.Context, shopID string) ([]model.WeeklyShopItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+shopItemCols+`, `+productCols+`
		 FROM weekly_shop_items i
		 JOIN products p ON p.id = i.product_id
		 JOIN store_locations l ON l.id = p.store_location_id
		 WHERE i.weekly_shop_id = ?
		 ORDER BY i.created_at ASC`,
		shopID,
	)
	if err != nil {
		return nil, fmt.Errorf("list shop items: %w", err)
	}
	defer rows.Close()

	var items []model.WeeklyShopItem
	for rows.Next() {
		item, err := scanShopItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan shop item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

func (s *ShopStore) CreateShop(ctx context.Context, shop *model.WeeklyShop) error {
	if shop.CreatedAt.IsZero() {
		shop.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO weekly_shops (id, shop_date, created_at) VALUES (?, ?, ?)`,
		shop.ID, shop.ShopDate.Format(shopDateLayout), shop.CreatedAt.UTC(),
	)
	if err != nil {
		return constraintErr("insert shop", err)
	}
	return nil
}

// AddItem fails with model.ErrDuplicate when the product is already on the
// shop.
func (s *ShopStore) AddItem(ctx context.Context, item *model.WeeklyShopItem) error {
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now()
	}
	if item.Status == "" {
		item.Status = model.StatusRequired
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO weekly_shop_items (id, weekly_shop_id, product_id, quantity, status, max_price, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.WeeklyShopID, item.ProductID, item.Quantity, item.Status, item.MaxPrice, item.CreatedAt.UTC(),
	)
	if err != nil {
		return constraintErr("insert shop item", err)
	}
	return nil
}

func (s *ShopStore) UpdateItemQuantity(ctx context.Context, id string, quantity int) error {
	res, err := s.db.ExecContext(ctx, `UPDATE weekly_shop_items SET quantity = ? WHERE id = ?`, quantity, id)
	if err != nil {
		return constraintErr("update item quantity", err)
	}
	n, err := res.RowsAffected()
	return affected("update item quantity", n, err)
}

func (s *ShopStore) UpdateItemStatus(ctx context.Context, id string, status model.ItemStatus) error {
	res, err := s.db.ExecContext(ctx, `UPDATE weekly_shop_items SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return constraintErr("update item status", err)
	}
	n, err := res.RowsAffected()
	return affected("update item status", n, err)
}

func (s *ShopStore) DeleteItem(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM weekly_shop_items WHERE id = ?`, id)
	if err != nil {
		return constraintErr("delete shop item", err)
	}
	n, err := res.RowsAffected()
	return affected("delete shop item", n, err)
}
