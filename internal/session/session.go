// Package session owns the current weekly shopping list and routes every
// change to it through the optimistic coordinator.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/language"

	"github.com/dukerupert/aisle/internal/listsort"
	"github.com/dukerupert/aisle/internal/model"
	"github.com/dukerupert/aisle/internal/notify"
	"github.com/dukerupert/aisle/internal/optimistic"
	"github.com/dukerupert/aisle/internal/validation"
)

// ErrAlreadyInList is returned when a product is added to a shop that
// already contains it. It matches model.ErrDuplicate with errors.Is.
var ErrAlreadyInList error = alreadyInList{}

type alreadyInList struct{}

func (alreadyInList) Error() string { return "Product already in list" }
func (alreadyInList) Unwrap() error { return model.ErrDuplicate }

// ErrNoCurrentShop is returned by item mutations when no list exists.
var ErrNoCurrentShop = fmt.Errorf("no shopping list for this week: %w", model.ErrNotFound)

// Repository is the store the session persists to.
type Repository interface {
	// CurrentShop returns the newest shop dated in the week starting at
	// weekStart with its items, their products and locations, or nil when
	// there is none.
	CurrentShop(ctx context.Context, weekStart time.Time) (*model.WeeklyShop, error)
	CreateShop(ctx context.Context, shop *model.WeeklyShop) error
	AddItem(ctx context.Context, item *model.WeeklyShopItem) error
	UpdateItemQuantity(ctx context.Context, id string, quantity int) error
	UpdateItemStatus(ctx context.Context, id string, status model.ItemStatus) error
	DeleteItem(ctx context.Context, id string) error
}

// WeekStart returns local midnight of the most recent Sunday on or before t.
func WeekStart(t time.Time) time.Time {
	y, m, d := t.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	return midnight.AddDate(0, 0, -int(midnight.Weekday()))
}

// ProductLookup resolves a product with its current location. The catalog
// implements it.
type ProductLookup interface {
	Product(id string) (model.Product, bool)
}

// Manager is the session object for one editor. Construct it once and share
// it between views; it is safe for concurrent use.
type Manager struct {
	repo     Repository
	coord    *optimistic.Coordinator
	notifier notify.Notifier
	sorter   *listsort.Sorter
	products ProductLookup
	logger   *slog.Logger
	now      func() time.Time

	// createMu makes create-if-absent in Add a single step.
	createMu sync.Mutex

	// Guarded by the coordinator's lock.
	shop *model.WeeklyShop
}

type Options struct {
	Notifier notify.Notifier
	Sorter   *listsort.Sorter
	// Products, when set, replaces each item's product snapshot with the
	// live product on every read, so edits and moves show without a reload.
	Products ProductLookup
	Logger   *slog.Logger
	Now      func() time.Time
}

func New(repo Repository, coord *optimistic.Coordinator, opts Options) *Manager {
	if opts.Notifier == nil {
		opts.Notifier = notify.Discard
	}
	if opts.Sorter == nil {
		opts.Sorter = listsort.NewSorter(language.English)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Manager{
		repo:     repo,
		coord:    coord,
		notifier: opts.Notifier,
		sorter:   opts.Sorter,
		products: opts.Products,
		logger:   opts.Logger,
		now:      opts.Now,
	}
}

// Load fetches the current shop from the store, replacing local state. It is
// also the full refresh that drops items deleted behind the session's back.
func (m *Manager) Load(ctx context.Context) error {
	shop, err := m.repo.CurrentShop(ctx, WeekStart(m.now()))
	if err != nil {
		m.notifier.Notify(ctx, notify.Failure("Error fetching current shop", err))
		return fmt.Errorf("load current shop: %w", err)
	}
	m.coord.View(func() { m.shop = shop })
	return nil
}

// Current returns a copy of the current shop, or nil when there is none.
func (m *Manager) Current() *model.WeeklyShop {
	var out *model.WeeklyShop
	m.coord.View(func() {
		if m.shop != nil {
			cp := *m.shop
			cp.Items = slices.Clone(m.shop.Items)
			out = &cp
		}
	})
	if out != nil {
		m.resolve(out.Items)
	}
	return out
}

// HasCurrentShop reports whether a list exists for this week.
func (m *Manager) HasCurrentShop() bool {
	var ok bool
	m.coord.View(func() { ok = m.shop != nil })
	return ok
}

// Items returns the current items sorted for mode. The result is a fresh
// projection; the session never stores items pre-sorted.
func (m *Manager) Items(mode listsort.Mode) []model.WeeklyShopItem {
	var items []model.WeeklyShopItem
	m.coord.View(func() {
		if m.shop != nil {
			items = slices.Clone(m.shop.Items)
		}
	})
	m.resolve(items)
	return m.sorter.Sort(items, mode)
}

// resolve points copied items at the live products. Items whose product is
// unknown keep the snapshot they were loaded with.
func (m *Manager) resolve(items []model.WeeklyShopItem) {
	if m.products == nil {
		return
	}
	for i := range items {
		if p, ok := m.products.Product(items[i].ProductID); ok {
			items[i].Product = &p
		}
	}
}

// CreateList starts a new shop for this week and makes it current.
func (m *Manager) CreateList(ctx context.Context) (*model.WeeklyShop, error) {
	m.createMu.Lock()
	defer m.createMu.Unlock()
	shop, err := m.createShop(ctx)
	if err != nil {
		return nil, err
	}
	m.notifier.Notify(ctx, notify.Success("New shopping list created"))
	return shop, nil
}

// ensureShop creates this week's shop unless one is current. Concurrent
// callers wait for the first creation and reuse its shop.
func (m *Manager) ensureShop(ctx context.Context) error {
	m.createMu.Lock()
	defer m.createMu.Unlock()
	if m.HasCurrentShop() {
		return nil
	}
	_, err := m.createShop(ctx)
	return err
}

func (m *Manager) createShop(ctx context.Context) (*model.WeeklyShop, error) {
	shop := &model.WeeklyShop{
		ID:       uuid.NewString(),
		ShopDate: WeekStart(m.now()),
		Items:    []model.WeeklyShopItem{},
	}
	if err := m.repo.CreateShop(ctx, shop); err != nil {
		m.notifier.Notify(ctx, notify.Failure("Error creating new list", err))
		return nil, fmt.Errorf("create shop: %w", err)
	}
	m.coord.View(func() { m.shop = shop })
	m.logger.Info("created shop", "shop_id", shop.ID, "shop_date", shop.ShopDate.Format(time.DateOnly))

	cp := *shop
	cp.Items = nil
	return &cp, nil
}

// Add puts product on the current list. With no current shop one is created
// first; if that fails the add is not attempted. quantity below 1 means the
// product's default quantity.
func (m *Manager) Add(ctx context.Context, product model.Product, quantity int) (*optimistic.Pending, model.WeeklyShopItem, error) {
	v := validation.Violations{}
	validation.Required("product_id", product.ID, v)
	if err := v.Err(); err != nil {
		m.notifier.Notify(ctx, notify.Failure("", err))
		return nil, model.WeeklyShopItem{}, err
	}

	if err := m.ensureShop(ctx); err != nil {
		return nil, model.WeeklyShopItem{}, err
	}

	if quantity < 1 {
		quantity = max(1, product.DefaultQuantity)
	}

	itemID := uuid.NewString()
	var added model.WeeklyShopItem
	p, err := m.coord.Do(ctx, optimistic.Mutation{
		Key:     "shop_item:" + itemID,
		Failure: "Error adding product to list",
		Apply: func() (optimistic.Step, error) {
			if m.shop == nil {
				return optimistic.Step{}, ErrNoCurrentShop
			}
			if slices.ContainsFunc(m.shop.Items, func(it model.WeeklyShopItem) bool { return it.ProductID == product.ID }) {
				return optimistic.Step{}, ErrAlreadyInList
			}
			prod := product
			item := model.WeeklyShopItem{
				ID:           itemID,
				WeeklyShopID: m.shop.ID,
				ProductID:    product.ID,
				Quantity:     quantity,
				Status:       model.StatusRequired,
				CreatedAt:    m.now().UTC(),
				Product:      &prod,
			}
			m.shop.Items = append(m.shop.Items, item)
			added = item
			shop := m.shop

			return optimistic.Step{
				Persist: func(ctx context.Context) error {
					err := m.repo.AddItem(ctx, &item)
					if errors.Is(err, model.ErrDuplicate) {
						return ErrAlreadyInList
					}
					return err
				},
				Undo: func() {
					if m.shop == shop {
						shop.Items = slices.DeleteFunc(shop.Items, func(it model.WeeklyShopItem) bool { return it.ID == item.ID })
					}
				},
				Success: "Added to list",
			}, nil
		},
	})
	return p, added, err
}

// AdjustQuantity adds delta to the item's latest local quantity, never going
// below 1.
func (m *Manager) AdjustQuantity(ctx context.Context, itemID string, delta int) (*optimistic.Pending, error) {
	return m.updateQuantity(ctx, itemID, func(q int) int { return max(1, q+delta) })
}

// SetQuantity replaces the item's quantity.
func (m *Manager) SetQuantity(ctx context.Context, itemID string, quantity int) (*optimistic.Pending, error) {
	if quantity < 1 {
		err := validation.Violations{"quantity": "too_small"}
		m.notifier.Notify(ctx, notify.Failure("", err))
		return nil, err
	}
	return m.updateQuantity(ctx, itemID, func(int) int { return quantity })
}

func (m *Manager) updateQuantity(ctx context.Context, itemID string, next func(int) int) (*optimistic.Pending, error) {
	return m.coord.Do(ctx, optimistic.Mutation{
		Key:     "shop_item:" + itemID,
		Failure: "Failed to update quantity",
		Apply: func() (optimistic.Step, error) {
			item, err := m.itemLocked(itemID)
			if err != nil {
				return optimistic.Step{}, err
			}
			old := item.Quantity
			q := next(old)
			if q == old {
				return optimistic.Step{}, nil
			}
			item.Quantity = q
			return optimistic.Step{
				Persist: func(ctx context.Context) error {
					return m.repo.UpdateItemQuantity(ctx, itemID, q)
				},
				Undo: func() {
					if it, err := m.itemLocked(itemID); err == nil && it.Quantity == q {
						it.Quantity = old
					}
				},
			}, nil
		},
	})
}

// SetStatus marks the item required, bought or unavailable.
func (m *Manager) SetStatus(ctx context.Context, itemID string, status model.ItemStatus) (*optimistic.Pending, error) {
	return m.coord.Do(ctx, optimistic.Mutation{
		Key:     "shop_item:" + itemID,
		Failure: "Failed to update item status",
		Apply: func() (optimistic.Step, error) {
			if !status.Valid() {
				return optimistic.Step{}, validation.Violations{"status": "invalid"}
			}
			item, err := m.itemLocked(itemID)
			if err != nil {
				return optimistic.Step{}, err
			}
			old := item.Status
			if old == status {
				return optimistic.Step{}, nil
			}
			item.Status = status
			return optimistic.Step{
				Persist: func(ctx context.Context) error {
					return m.repo.UpdateItemStatus(ctx, itemID, status)
				},
				Undo: func() {
					if it, err := m.itemLocked(itemID); err == nil && it.Status == status {
						it.Status = old
					}
				},
			}, nil
		},
	})
}

// Remove deletes the item from the list.
func (m *Manager) Remove(ctx context.Context, itemID string) (*optimistic.Pending, error) {
	return m.coord.Do(ctx, optimistic.Mutation{
		Key:     "shop_item:" + itemID,
		Failure: "Failed to remove item",
		Apply: func() (optimistic.Step, error) {
			if m.shop == nil {
				return optimistic.Step{}, ErrNoCurrentShop
			}
			idx := slices.IndexFunc(m.shop.Items, func(it model.WeeklyShopItem) bool { return it.ID == itemID })
			if idx < 0 {
				return optimistic.Step{}, fmt.Errorf("item %s: %w", itemID, model.ErrNotFound)
			}
			removed := m.shop.Items[idx]
			m.shop.Items = slices.Delete(m.shop.Items, idx, idx+1)
			shop := m.shop

			return optimistic.Step{
				Persist: func(ctx context.Context) error {
					return m.repo.DeleteItem(ctx, itemID)
				},
				Undo: func() {
					if m.shop != shop || slices.ContainsFunc(shop.Items, func(it model.WeeklyShopItem) bool { return it.ID == itemID }) {
						return
					}
					at := min(idx, len(shop.Items))
					shop.Items = slices.Insert(shop.Items, at, removed)
				},
				Success: "Item removed from list",
			}, nil
		},
	})
}

// itemLocked finds an item of the current shop. Callers hold the
// coordinator's lock.
func (m *Manager) itemLocked(itemID string) (*model.WeeklyShopItem, error) {
	if m.shop == nil {
		return nil, ErrNoCurrentShop
	}
	for i := range m.shop.Items {
		if m.shop.Items[i].ID == itemID {
			return &m.shop.Items[i], nil
		}
	}
	return nil, fmt.Errorf("item %s: %w", itemID, model.ErrNotFound)
}
