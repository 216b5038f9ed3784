// Package catalog holds the product and store-location collections that the
// admin views edit, including drag reordering of products.
package catalog

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/dukerupert/aisle/internal/model"
	"github.com/dukerupert/aisle/internal/notify"
	"github.com/dukerupert/aisle/internal/optimistic"
	"github.com/dukerupert/aisle/internal/ordering"
	"github.com/dukerupert/aisle/internal/validation"
)

type ProductRepository interface {
	ListProducts(ctx context.Context) ([]model.Product, error)
	CreateProduct(ctx context.Context, p *model.Product) error
	UpdateProduct(ctx context.Context, p *model.Product) error
	DeleteProduct(ctx context.Context, id string) error
	// PlaceProducts writes every placement atomically.
	PlaceProducts(ctx context.Context, placements []model.Placement) error
}

type LocationRepository interface {
	ListLocations(ctx context.Context) ([]model.StoreLocation, error)
	CreateLocation(ctx context.Context, l *model.StoreLocation) error
	UpdateLocation(ctx context.Context, l *model.StoreLocation) error
	DeleteLocation(ctx context.Context, id string) error
}

// Preferences is best-effort device storage for form defaults. Losing it is
// harmless.
type Preferences interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

const (
	PrefLastLocation = "last_location_id"
	PrefLastSequence = "last_sequence_number"
)

// productKey serialises every product write. Moves, edits and deletes all
// touch placements, so they must reach the store in the order they were
// applied.
const productKey = "catalog:products"

// Catalog is safe for concurrent use. Its state is guarded by the
// coordinator's lock.
type Catalog struct {
	products  ProductRepository
	locations LocationRepository
	prefs     Preferences
	coord     *optimistic.Coordinator
	notifier  notify.Notifier
	logger    *slog.Logger
	now       func() time.Time

	productList  []model.Product
	locationList []model.StoreLocation
	// revs counts local changes per id so an undo only reverts what is
	// still its own write.
	revs map[string]uint64
}

func New(products ProductRepository, locations LocationRepository, prefs Preferences, coord *optimistic.Coordinator, notifier notify.Notifier, logger *slog.Logger) *Catalog {
	if notifier == nil {
		notifier = notify.Discard
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Catalog{
		products:  products,
		locations: locations,
		prefs:     prefs,
		coord:     coord,
		notifier:  notifier,
		logger:    logger,
		now:       time.Now,
		revs:      make(map[string]uint64),
	}
}

// Load fetches products and locations concurrently and replaces local state.
func (c *Catalog) Load(ctx context.Context) error {
	var products []model.Product
	var locations []model.StoreLocation

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		products, err = c.products.ListProducts(gctx)
		if err != nil {
			c.notifier.Notify(ctx, notify.Failure("Error fetching products", err))
			return fmt.Errorf("list products: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		locations, err = c.locations.ListLocations(gctx)
		if err != nil {
			c.notifier.Notify(ctx, notify.Failure("Error fetching locations", err))
			return fmt.Errorf("list locations: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	for i := range products {
		products[i].Location = nil
	}
	c.coord.View(func() {
		c.productList = products
		c.locationList = locations
	})
	return nil
}

// Products returns a copy of all products, each with its location attached.
func (c *Catalog) Products() []model.Product {
	var out []model.Product
	c.coord.View(func() { out = c.attachLocked(c.productList) })
	return out
}

// Product returns one product by id.
func (c *Catalog) Product(id string) (model.Product, bool) {
	var (
		out model.Product
		ok  bool
	)
	c.coord.View(func() {
		if i := c.productIndexLocked(id); i >= 0 {
			out = c.attachLocked(c.productList[i : i+1])[0]
			ok = true
		}
	})
	return out, ok
}

// Locations returns the locations in walking order.
func (c *Catalog) Locations() []model.StoreLocation {
	var out []model.StoreLocation
	c.coord.View(func() { out = slices.Clone(c.locationList) })
	slices.SortStableFunc(out, func(a, b model.StoreLocation) int {
		return cmp.Or(cmp.Compare(a.SequenceNumber, b.SequenceNumber), strings.Compare(a.Name, b.Name))
	})
	return out
}

// Groups derives the location grouping from the current products.
func (c *Catalog) Groups() ordering.Groups {
	return ordering.Index(c.Products())
}

// Route lists locations in walking order with their products.
func (c *Catalog) Route() []ordering.LocationGroup {
	return ordering.Route(c.Locations(), c.Groups())
}

// MoveEvent is a drag-and-drop (or keyboard, or voice) reorder: put the
// product at Index within LocationID's group.
type MoveEvent struct {
	ProductID  string `json:"product_id"`
	LocationID string `json:"location_id"`
	Index      int    `json:"index"`
}

// Move repositions a product, renumbering the destination group when the
// neighbours leave no room. The product's location and sequence, and any
// renumbered siblings, are written in one call.
func (c *Catalog) Move(ctx context.Context, ev MoveEvent) (*optimistic.Pending, error) {
	return c.coord.Do(ctx, optimistic.Mutation{
		Key:     productKey,
		Failure: "Failed to update product order",
		Apply: func() (optimistic.Step, error) {
			idx := c.productIndexLocked(ev.ProductID)
			if idx < 0 {
				return optimistic.Step{}, fmt.Errorf("product %s: %w", ev.ProductID, model.ErrNotFound)
			}
			dest := cmp.Or(ev.LocationID, c.productList[idx].StoreLocationID)
			if c.locationIndexLocked(dest) < 0 {
				return optimistic.Step{}, validation.Violations{"location_id": "invalid"}
			}

			others := slices.Concat(c.productList[:idx], c.productList[idx+1:])
			groups := ordering.Index(others)
			plan := ordering.PlanInsert(groups.Keys(dest), ev.Index)

			var placements []model.Placement
			if plan.Renumbered != nil {
				for i, p := range groups[dest] {
					if p.SequenceNumber != plan.Renumbered[i] {
						placements = append(placements, model.Placement{ProductID: p.ID, StoreLocationID: dest, SequenceNumber: plan.Renumbered[i]})
					}
				}
				c.logger.Info("renumbering location", "location_id", dest, "products", len(groups[dest]))
			}
			placements = append(placements, model.Placement{ProductID: ev.ProductID, StoreLocationID: dest, SequenceNumber: plan.Sequence})

			undo := c.placeLocked(placements)
			return optimistic.Step{
				Persist: func(ctx context.Context) error {
					return c.products.PlaceProducts(ctx, placements)
				},
				Undo: undo,
			}, nil
		},
	})
}

// placeLocked applies placements and returns a closure that reverts the ones
// nobody has touched since.
func (c *Catalog) placeLocked(placements []model.Placement) func() {
	type prior struct {
		placement model.Placement
		rev       uint64
	}
	var priors []prior
	for _, pl := range placements {
		i := c.productIndexLocked(pl.ProductID)
		if i < 0 {
			continue
		}
		p := &c.productList[i]
		priors = append(priors, prior{
			placement: model.Placement{ProductID: p.ID, StoreLocationID: p.StoreLocationID, SequenceNumber: p.SequenceNumber},
			rev:       c.bumpLocked(p.ID),
		})
		p.StoreLocationID = pl.StoreLocationID
		p.SequenceNumber = pl.SequenceNumber
	}
	return func() {
		for _, pr := range priors {
			i := c.productIndexLocked(pr.placement.ProductID)
			if i < 0 || c.revs[pr.placement.ProductID] != pr.rev {
				continue
			}
			c.productList[i].StoreLocationID = pr.placement.StoreLocationID
			c.productList[i].SequenceNumber = pr.placement.SequenceNumber
			c.bumpLocked(pr.placement.ProductID)
		}
	}
}

// ProductInput is the admin form. A nil SequenceNumber asks for the
// suggested next number in the chosen location.
type ProductInput struct {
	ID              string              `json:"id"`
	Name            string              `json:"name"`
	Aliases         []string            `json:"aliases"`
	StoreLocationID string              `json:"store_location_id"`
	ShelfHeight     model.ShelfHeight   `json:"shelf_height"`
	SequenceNumber  *int                `json:"sequence_number"`
	TypicalPrice    decimal.NullDecimal `json:"typical_price"`
	DefaultQuantity int                 `json:"default_quantity"`
	ProductURL      string              `json:"product_url"`
	ImageURL        string              `json:"image_url"`
	Barcode         string              `json:"barcode"`
	Notes           string              `json:"notes"`
}

func (in ProductInput) validate() error {
	v := validation.Violations{}
	validation.Required("name", in.Name, v)
	validation.Required("store_location_id", in.StoreLocationID, v)
	validation.OneOf("shelf_height", in.ShelfHeight == "" || in.ShelfHeight.Valid(), v)
	validation.MinInt("default_quantity", in.DefaultQuantity, 0, v)
	validation.NonNegative("typical_price", in.TypicalPrice, v)
	return v.Err()
}

// SaveProduct creates (empty ID) or updates a product.
func (c *Catalog) SaveProduct(ctx context.Context, in ProductInput) (*optimistic.Pending, model.Product, error) {
	if err := in.validate(); err != nil {
		c.notifier.Notify(ctx, notify.Failure("", err))
		return nil, model.Product{}, err
	}
	creating := in.ID == ""
	if creating {
		in.ID = uuid.NewString()
	}

	var saved model.Product
	p, err := c.coord.Do(ctx, optimistic.Mutation{
		Key:     productKey,
		Failure: "Error saving product",
		Apply: func() (optimistic.Step, error) {
			if c.locationIndexLocked(in.StoreLocationID) < 0 {
				return optimistic.Step{}, validation.Violations{"store_location_id": "invalid"}
			}
			idx := c.productIndexLocked(in.ID)
			if !creating && idx < 0 {
				return optimistic.Step{}, fmt.Errorf("product %s: %w", in.ID, model.ErrNotFound)
			}

			product := model.Product{
				ID:              in.ID,
				Name:            strings.TrimSpace(in.Name),
				Aliases:         in.Aliases,
				StoreLocationID: in.StoreLocationID,
				ShelfHeight:     cmp.Or(in.ShelfHeight, model.ShelfMiddle),
				TypicalPrice:    in.TypicalPrice,
				DefaultQuantity: max(1, in.DefaultQuantity),
				ProductURL:      in.ProductURL,
				ImageURL:        in.ImageURL,
				Barcode:         in.Barcode,
				Notes:           in.Notes,
			}
			switch {
			case in.SequenceNumber != nil:
				product.SequenceNumber = *in.SequenceNumber
			case !creating && c.productList[idx].StoreLocationID == in.StoreLocationID:
				product.SequenceNumber = c.productList[idx].SequenceNumber
			default:
				product.SequenceNumber = ordering.Index(c.productList).SuggestSequence(in.StoreLocationID)
			}

			rev := c.bumpLocked(product.ID)

			if creating {
				product.CreatedAt = c.now()
				c.productList = append(c.productList, product)
				saved = c.attachLocked([]model.Product{product})[0]
				return optimistic.Step{
					Persist: func(ctx context.Context) error {
						if err := c.products.CreateProduct(ctx, &product); err != nil {
							return err
						}
						c.rememberDefaults(ctx, product.StoreLocationID, product.SequenceNumber)
						return nil
					},
					Undo: func() {
						if c.revs[product.ID] == rev {
							c.removeProductLocked(product.ID)
						}
					},
					Success: "Product created",
				}, nil
			}

			old := c.productList[idx]
			product.CreatedAt = old.CreatedAt
			c.productList[idx] = product
			saved = c.attachLocked([]model.Product{product})[0]
			return optimistic.Step{
				Persist: func(ctx context.Context) error {
					return c.products.UpdateProduct(ctx, &product)
				},
				Undo: func() {
					if i := c.productIndexLocked(product.ID); i >= 0 && c.revs[product.ID] == rev {
						c.productList[i] = old
					}
				},
				Success: "Product updated",
			}, nil
		},
	})
	return p, saved, err
}

// DeleteProduct removes a product.
func (c *Catalog) DeleteProduct(ctx context.Context, id string) (*optimistic.Pending, error) {
	return c.coord.Do(ctx, optimistic.Mutation{
		Key:     productKey,
		Failure: "Error deleting product",
		Apply: func() (optimistic.Step, error) {
			idx := c.productIndexLocked(id)
			if idx < 0 {
				return optimistic.Step{}, fmt.Errorf("product %s: %w", id, model.ErrNotFound)
			}
			removed := c.productList[idx]
			c.removeProductLocked(id)
			rev := c.bumpLocked(id)
			return optimistic.Step{
				Persist: func(ctx context.Context) error {
					return c.products.DeleteProduct(ctx, id)
				},
				Undo: func() {
					if c.revs[id] == rev && c.productIndexLocked(id) < 0 {
						c.productList = append(c.productList, removed)
					}
				},
				Success: "Product deleted",
			}, nil
		},
	})
}

// LocationInput is the location admin form. A nil SequenceNumber places the
// location after the existing ones.
type LocationInput struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	SequenceNumber *int   `json:"sequence_number"`
}

// SaveLocation creates (empty ID) or updates a store location.
func (c *Catalog) SaveLocation(ctx context.Context, in LocationInput) (*optimistic.Pending, model.StoreLocation, error) {
	v := validation.Violations{}
	validation.Required("name", in.Name, v)
	if err := v.Err(); err != nil {
		c.notifier.Notify(ctx, notify.Failure("", err))
		return nil, model.StoreLocation{}, err
	}
	creating := in.ID == ""
	if creating {
		in.ID = uuid.NewString()
	}

	var saved model.StoreLocation
	p, err := c.coord.Do(ctx, optimistic.Mutation{
		Key:     "location:" + in.ID,
		Failure: "Error saving location",
		Apply: func() (optimistic.Step, error) {
			idx := c.locationIndexLocked(in.ID)
			if !creating && idx < 0 {
				return optimistic.Step{}, fmt.Errorf("location %s: %w", in.ID, model.ErrNotFound)
			}
			loc := model.StoreLocation{ID: in.ID, Name: strings.TrimSpace(in.Name)}
			switch {
			case in.SequenceNumber != nil:
				loc.SequenceNumber = *in.SequenceNumber
			case !creating:
				loc.SequenceNumber = c.locationList[idx].SequenceNumber
			default:
				loc.SequenceNumber = len(c.locationList) + 1
			}
			rev := c.bumpLocked(loc.ID)

			if creating {
				loc.CreatedAt = c.now()
				c.locationList = append(c.locationList, loc)
				saved = loc
				return optimistic.Step{
					Persist: func(ctx context.Context) error { return c.locations.CreateLocation(ctx, &loc) },
					Undo: func() {
						if c.revs[loc.ID] == rev {
							c.locationList = slices.DeleteFunc(c.locationList, func(l model.StoreLocation) bool { return l.ID == loc.ID })
						}
					},
					Success: "Location created",
				}, nil
			}

			old := c.locationList[idx]
			loc.CreatedAt = old.CreatedAt
			c.locationList[idx] = loc
			saved = loc
			return optimistic.Step{
				Persist: func(ctx context.Context) error { return c.locations.UpdateLocation(ctx, &loc) },
				Undo: func() {
					if i := c.locationIndexLocked(loc.ID); i >= 0 && c.revs[loc.ID] == rev {
						c.locationList[i] = old
					}
				},
				Success: "Location updated",
			}, nil
		},
	})
	return p, saved, err
}

// DeleteLocation removes a location. Whether products still assigned to it
// block the delete is up to the store; a referential rejection restores the
// location locally.
func (c *Catalog) DeleteLocation(ctx context.Context, id string) (*optimistic.Pending, error) {
	return c.coord.Do(ctx, optimistic.Mutation{
		Key:     "location:" + id,
		Failure: "Error deleting location",
		Apply: func() (optimistic.Step, error) {
			idx := c.locationIndexLocked(id)
			if idx < 0 {
				return optimistic.Step{}, fmt.Errorf("location %s: %w", id, model.ErrNotFound)
			}
			removed := c.locationList[idx]
			c.locationList = slices.Delete(c.locationList, idx, idx+1)
			rev := c.bumpLocked(id)
			return optimistic.Step{
				Persist: func(ctx context.Context) error { return c.locations.DeleteLocation(ctx, id) },
				Undo: func() {
					if c.revs[id] == rev && c.locationIndexLocked(id) < 0 {
						c.locationList = append(c.locationList, removed)
					}
				},
				Success: "Location deleted",
			}, nil
		},
	})
}

// Defaults are the prefilled values of a new product form.
type Defaults struct {
	StoreLocationID string `json:"store_location_id"`
	SequenceNumber  int    `json:"sequence_number"`
	MaxSequence     int    `json:"max_sequence"`
}

// Defaults proposes form values. With a location the suggestion comes from
// that group and is remembered as the last used choice; without one the
// remembered choice is returned.
func (c *Catalog) Defaults(ctx context.Context, locationID string) Defaults {
	groups := c.Groups()
	if locationID != "" {
		d := Defaults{
			StoreLocationID: locationID,
			SequenceNumber:  groups.SuggestSequence(locationID),
			MaxSequence:     groups.MaxSequence(locationID),
		}
		c.rememberDefaults(ctx, d.StoreLocationID, d.SequenceNumber)
		return d
	}

	var d Defaults
	if c.prefs == nil {
		return d
	}
	if loc, err := c.prefs.Get(ctx, PrefLastLocation); err == nil {
		d.StoreLocationID = loc
	}
	if raw, err := c.prefs.Get(ctx, PrefLastSequence); err == nil && raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			d.SequenceNumber = n
		}
	}
	if d.StoreLocationID != "" {
		d.MaxSequence = groups.MaxSequence(d.StoreLocationID)
		if d.SequenceNumber == 0 {
			d.SequenceNumber = groups.SuggestSequence(d.StoreLocationID)
		}
	}
	return d
}

func (c *Catalog) rememberDefaults(ctx context.Context, locationID string, sequence int) {
	if c.prefs == nil {
		return
	}
	if err := c.prefs.Set(ctx, PrefLastLocation, locationID); err != nil {
		c.logger.Debug("remember last location", "error", err)
		return
	}
	if err := c.prefs.Set(ctx, PrefLastSequence, strconv.Itoa(sequence)); err != nil {
		c.logger.Debug("remember last sequence", "error", err)
	}
}

func (c *Catalog) attachLocked(products []model.Product) []model.Product {
	out := slices.Clone(products)
	for i := range out {
		out[i].Aliases = slices.Clone(out[i].Aliases)
		if j := c.locationIndexLocked(out[i].StoreLocationID); j >= 0 {
			loc := c.locationList[j]
			out[i].Location = &loc
		} else {
			out[i].Location = nil
		}
	}
	return out
}

func (c *Catalog) productIndexLocked(id string) int {
	return slices.IndexFunc(c.productList, func(p model.Product) bool { return p.ID == id })
}

func (c *Catalog) locationIndexLocked(id string) int {
	return slices.IndexFunc(c.locationList, func(l model.StoreLocation) bool { return l.ID == id })
}

func (c *Catalog) removeProductLocked(id string) {
	c.productList = slices.DeleteFunc(c.productList, func(p model.Product) bool { return p.ID == id })
}

func (c *Catalog) bumpLocked(id string) uint64 {
	c.revs[id]++
	return c.revs[id]
}
