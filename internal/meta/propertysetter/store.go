package propertysetter

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/odyssey-erp/odyssey-tax/internal/platform/db"
	"github.com/odyssey-erp/odyssey-tax/internal/shared"
)

// Store persists setters in the property_setters table.
type Store struct {
	db db.DBTX
}

// NewStore constructs a store bound to a pool or transaction.
func NewStore(conn db.DBTX) *Store {
	return &Store{db: conn}
}

// WithTx returns a store writing through tx.
func (s *Store) WithTx(tx db.DBTX) *Store {
	return &Store{db: tx}
}

// Make upserts the setter on (doctype, fieldname, property).
func (s *Store) Make(ctx context.Context, setter Setter) error {
	setter, err := setter.Normalize()
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `INSERT INTO property_setters (doctype, field_name, property, value, property_type, updated_at)
VALUES ($1, $2, $3, $4, $5, NOW())
ON CONFLICT (doctype, field_name, property)
DO UPDATE SET value = EXCLUDED.value, property_type = EXCLUDED.property_type, updated_at = NOW()`,
		setter.DocType, setter.FieldName, setter.Property, setter.Value, string(setter.PropertyType))
	if err != nil {
		return fmt.Errorf("propertysetter: make %s.%s.%s: %w", setter.DocType, setter.FieldName, setter.Property, err)
	}
	return nil
}

// ListForDocType returns every override of a doctype ordered by field and property.
func (s *Store) ListForDocType(ctx context.Context, doctype string) ([]Setter, error) {
	rows, err := s.db.Query(ctx, `SELECT id, doctype, field_name, property, value, property_type, updated_at
FROM property_setters WHERE doctype = $1 ORDER BY field_name, property`, doctype)
	if err != nil {
		return nil, fmt.Errorf("propertysetter: list %s: %w", doctype, err)
	}
	defer rows.Close()
	var out []Setter
	for rows.Next() {
		item, err := scanSetter(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// Get loads a single override.
func (s *Store) Get(ctx context.Context, doctype, field, property string) (Setter, error) {
	row := s.db.QueryRow(ctx, `SELECT id, doctype, field_name, property, value, property_type, updated_at
FROM property_setters WHERE doctype = $1 AND field_name = $2 AND property = $3`, doctype, field, property)
	item, err := scanSetter(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Setter{}, fmt.Errorf("propertysetter: %s.%s.%s: %w", doctype, field, property, shared.ErrNotFound)
	}
	return item, err
}

func scanSetter(row pgx.Row) (Setter, error) {
	var item Setter
	var typ string
	if err := row.Scan(&item.ID, &item.DocType, &item.FieldName, &item.Property, &item.Value, &typ, &item.UpdatedAt); err != nil {
		return Setter{}, err
	}
	item.PropertyType = PropertyType(typ)
	return item, nil
}
