package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dukerupert/aisle/internal/model"
)

// SearchLimit caps the number of products a search returns.
const SearchLimit = 50

type ProductStore struct {
	db *sql.DB
}

func NewProductStore(db *sql.DB) *ProductStore {
	return &ProductStore{db: db}
}

// scanProduct reads productCols followed by the joined location columns.
func scanProduct(scanner interface{ Scan(...any) error }) (*model.Product, error) {
	var p model.Product
	var loc model.StoreLocation
	var aliases string

	err := scanner.Scan(
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
	return &p, nil
}

const productCols = `p.id, p.name, p.aliases, p.store_location_id, p.shelf_height,
	p.sequence_number, p.typical_price, p.default_quantity, p.product_url,
	p.image_url, p.barcode, p.notes, p.created_at,
	l.id, l.name, l.sequence_number, l.created_at`

const productFrom = ` FROM products p JOIN store_locations l ON l.id = p.store_location_id`

func (s *ProductStore) queryProducts(ctx context.Context, op, query string, args ...any) ([]model.Product, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var products []model.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

func (s *ProductStore) ListProducts(ctx context.Context) ([]model.Product, error) {
	return s.queryProducts(ctx, "list products",
		`SELECT `+productCols+productFrom+` ORDER BY l.sequence_number ASC, p.sequence_number ASC, p.name COLLATE NOCASE ASC`)
}

func (s *ProductStore) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+productCols+productFrom+` WHERE p.id = ?`, id)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get product %s: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

func decodeAliases(raw string) ([]string, error) {
	var aliases []string
	if err := json.Unmarshal([]byte(raw), &aliases); err != nil {
		return nil, fmt.Errorf("decode aliases: %w", err)
	}
	return aliases, nil
}

func encodeAliases(aliases []string) (string, error) {
	if aliases == nil {
		aliases = []string{}
	}
	b, err := json.Marshal(aliases)
	if err != nil {
		return "", fmt.Errorf("encode aliases: %w", err)
	}
	return string(b), nil
}

func (s *ProductStore) CreateProduct(ctx context.Context, p *model.Product) error {
	aliases, err := encodeAliases(p.Aliases)
	if err != nil {
		return err
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO products (id, name, aliases, store_location_id, shelf_height, sequence_number,
			typical_price, default_quantity, product_url, image_url, barcode, notes, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, aliases, p.StoreLocationID, p.ShelfHeight, p.SequenceNumber,
		p.TypicalPrice, p.DefaultQuantity, p.ProductURL, p.ImageURL, p.Barcode, p.Notes, p.CreatedAt.UTC(),
	)
	if err != nil {
		return constraintErr("insert product", err)
	}
	return nil
}

func (s *ProductStore) UpdateProduct(ctx context.Context, p *model.Product) error {
	aliases, err := encodeAliases(p.Aliases)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE products SET name = ?, aliases = ?, store_location_id = ?, shelf_height = ?,
			sequence_number = ?, typical_price = ?, default_quantity = ?, product_url = ?,
			image_url = ?, barcode = ?, notes = ?
		 WHERE id = ?`,
		p.Name, aliases, p.StoreLocationID, p.ShelfHeight, p.SequenceNumber, p.TypicalPrice,
		p.DefaultQuantity, p.ProductURL, p.ImageURL, p.Barcode, p.Notes, p.ID,
	)
	if err != nil {
		return constraintErr("update product", err)
	}
	n, err := res.RowsAffected()
	return affected("update product", n, err)
}

func (s *ProductStore) DeleteProduct(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return constraintErr("delete product", err)
	}
	n, err := res.RowsAffected()
	return affected("delete product", n, err)
}

// PlaceProducts writes every placement in one transaction so a renumbered
// group is never half-written.
func (s *ProductStore) PlaceProducts(ctx context.Context, placements []model.Placement) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, pl := range placements {
		res, err := tx.ExecContext(ctx,
			`UPDATE products SET store_location_id = ?, sequence_number = ? WHERE id = ?`,
			pl.StoreLocationID, pl.SequenceNumber, pl.ProductID,
		)
		if err != nil {
			return constraintErr("place product", err)
		}
		n, err := res.RowsAffected()
		if err := affected("place product "+pl.ProductID, n, err); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit placements: %w", err)
	}
	return nil
}

// Search matches term as a case-insensitive substring of the product name or
// any alias.
func (s *ProductStore) Search(ctx context.Context, term string) ([]model.Product, error) {
	pattern := "%" + escapeLike(strings.TrimSpace(term)) + "%"
	return s.queryProducts(ctx, "search products",
		`SELECT `+productCols+productFrom+`
		 WHERE p.name LIKE ? ESCAPE '\'
		    OR EXISTS (SELECT 1 FROM json_each(p.aliases) a WHERE a.value LIKE ? ESCAPE '\')
		 ORDER BY p.name COLLATE NOCASE ASC
		 LIMIT ?`,
		pattern, pattern, SearchLimit,
	)
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
