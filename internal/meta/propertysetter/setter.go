// Package propertysetter stores field metadata overrides keyed by doctype,
// field and property.
package propertysetter

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/odyssey-erp/odyssey-tax/internal/shared"
)

// PropertyType describes how a setter value is interpreted.
type PropertyType string

const (
	TypeCheck PropertyType = "Check"
	TypeCode  PropertyType = "Code"
	TypeData  PropertyType = "Data"
	TypeInt   PropertyType = "Int"
)

// Setter is a single metadata override.
type Setter struct {
	ID           int64        `json:"id"`
	DocType      string       `json:"doctype"`
	FieldName    string       `json:"fieldname"`
	Property     string       `json:"property"`
	Value        string       `json:"value"`
	PropertyType PropertyType `json:"property_type"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// Writer is the narrow dependency documents use to emit overrides.
type Writer interface {
	Make(ctx context.Context, s Setter) error
}

// CheckValue renders a boolean the way Check properties are stored.
func CheckValue(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// Normalize validates the setter and canonicalises its value.
func (s Setter) Normalize() (Setter, error) {
	s.DocType = strings.TrimSpace(s.DocType)
	s.FieldName = strings.TrimSpace(s.FieldName)
	s.Property = strings.TrimSpace(s.Property)
	details := map[string]string{}
	if s.DocType == "" {
		details["doctype"] = "required"
	}
	if s.FieldName == "" {
		details["fieldname"] = "required"
	}
	if s.Property == "" {
		details["property"] = "required"
	}
	if s.PropertyType == "" {
		s.PropertyType = TypeData
	}
	switch s.PropertyType {
	case TypeCheck:
		switch strings.ToLower(strings.TrimSpace(s.Value)) {
		case "1", "true":
			s.Value = "1"
		case "0", "false", "":
			s.Value = "0"
		default:
			details["value"] = "check value must be 0 or 1"
		}
	case TypeInt:
		if _, err := strconv.Atoi(strings.TrimSpace(s.Value)); err != nil {
			details["value"] = "int value expected"
		}
	case TypeCode, TypeData:
	default:
		details["property_type"] = fmt.Sprintf("unsupported type %q", s.PropertyType)
	}
	if len(details) > 0 {
		return s, shared.NewValidationError(fmt.Errorf("property setter %s.%s.%s invalid", s.DocType, s.FieldName, s.Property), details)
	}
	return s, nil
}
