package store

import (
	"errors"
	"fmt"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/dukerupert/aisle/internal/model"
)

// constraintErr converts SQLite constraint violations into model error kinds
// so callers can tell a rejected write from a failed one.
func constraintErr(op string, err error) error {
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return fmt.Errorf("%s: %w: %v", op, model.ErrDuplicate, err)
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			return fmt.Errorf("%s: %w: %v", op, model.ErrReferenced, err)
		}
		if se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT {
			switch msg := se.Error(); {
			case strings.Contains(msg, "FOREIGN KEY"):
				return fmt.Errorf("%s: %w: %v", op, model.ErrReferenced, err)
			case strings.Contains(msg, "UNIQUE"), strings.Contains(msg, "PRIMARY KEY"):
				return fmt.Errorf("%s: %w: %v", op, model.ErrDuplicate, err)
			}
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// affected returns ErrNotFound when an update or delete matched no rows.
func affected(op string, n int64, err error) error {
	if err != nil {
		return constraintErr(op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, model.ErrNotFound)
	}
	return nil
}
