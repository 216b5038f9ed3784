package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dukerupert/aisle/internal/model"
)

type LocationStore struct {
	db *sql.DB
}

func NewLocationStore(db *sql.DB) *LocationStore {
	return &LocationStore{db: db}
}

func scanLocation(scanner interface{ Scan(...any) error }) (*model.StoreLocation, error) {
	var l model.StoreLocation
	err := scanner.Scan(&l.ID, &l.Name, &l.SequenceNumber, &l.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

const locationCols = `id, name, sequence_number, created_at`

func (s *LocationStore) ListLocations(ctx context.Context) ([]model.StoreLocation, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+locationCols+` FROM store_locations ORDER BY sequence_number ASC, name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	defer rows.Close()

	var locations []model.StoreLocation
	for rows.Next() {
		l, err := scanLocation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan location: %w", err)
		}
		locations = append(locations, *l)
	}
	return locations, rows.Err()
}

func (s *LocationStore) GetLocation(ctx context.Context, id string) (*model.StoreLocation, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+locationCols+` FROM store_locations WHERE id = ?`, id)
	l, err := scanLocation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get location %s: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get location: %w", err)
	}
	return l, nil
}

func (s *LocationStore) CreateLocation(ctx context.Context, l *model.StoreLocation) error {
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO store_locations (id, name, sequence_number, created_at) VALUES (?, ?, ?, ?)`,
		l.ID, l.Name, l.SequenceNumber, l.CreatedAt.UTC(),
	)
	if err != nil {
		return constraintErr("insert location", err)
	}
	return nil
}

func (s *LocationStore) UpdateLocation(ctx context.Context, l *model.StoreLocation) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE store_locations SET name = ?, sequence_number = ? WHERE id = ?`,
		l.Name, l.SequenceNumber, l.ID,
	)
	if err != nil {
		return constraintErr("update location", err)
	}
	n, err := res.RowsAffected()
	return affected("update location", n, err)
}

// DeleteLocation fails with model.ErrReferenced while products are still
// assigned to the location.
func (s *LocationStore) DeleteLocation(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM store_locations WHERE id = ?`, id)
	if err != nil {
		return constraintErr("delete location", err)
	}
	n, err := res.RowsAffected()
	return affected("delete location", n, err)
}
