// Package validation collects field-level input problems before any call is
// made to the store.
package validation

import (
	"maps"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
)

// Violations maps a field name to a short machine-readable reason. It
// implements error so it can be returned and matched with errors.As.
type Violations map[string]string

func (v Violations) Empty() bool { return len(v) == 0 }

func (v Violations) Error() string {
	fields := slices.Sorted(maps.Keys(v))
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = f + " " + strings.ReplaceAll(v[f], "_", " ")
	}
	return "invalid input: " + strings.Join(parts, ", ")
}

// Err returns v as an error, or nil when there is nothing to report.
func (v Violations) Err() error {
	if v.Empty() {
		return nil
	}
	return v
}

func Required(field, value string, v Violations) {
	if strings.TrimSpace(value) == "" {
		v[field] = "required"
	}
}

func MinInt(field string, val, minVal int, v Violations) {
	if val < minVal {
		v[field] = "too_small"
	}
}

func NonNegative(field string, val decimal.NullDecimal, v Violations) {
	if val.Valid && val.Decimal.IsNegative() {
		v[field] = "must_not_be_negative"
	}
}

func OneOf(field string, ok bool, v Violations) {
	if !ok {
		v[field] = "invalid"
	}
}
