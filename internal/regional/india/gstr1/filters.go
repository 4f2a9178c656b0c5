// Package gstr1 builds the GSTR-1 outward supplies report of Indian companies
// and turns its rows into the filing JSON accepted by the GST portal.
package gstr1

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/odyssey-erp/odyssey-tax/internal/shared"
)

// TypeOfBusiness selects the filing section a report run targets.
type TypeOfBusiness string

const (
	B2B       TypeOfBusiness = "B2B"
	B2CLarge  TypeOfBusiness = "B2C Large"
	B2CSmall  TypeOfBusiness = "B2C Small"
	CDNRReg   TypeOfBusiness = "CDNR-REG"
	CDNRUnreg TypeOfBusiness = "CDNR-UNREG"
	Export    TypeOfBusiness = "EXPORT"
	Advances  TypeOfBusiness = "Advances"
)

// TypesOfBusiness lists every supported section in display order.
var TypesOfBusiness = []TypeOfBusiness{B2B, B2CLarge, B2CSmall, CDNRReg, CDNRUnreg, Export, Advances}

// Valid reports whether t is a supported section.
func (t TypeOfBusiness) Valid() bool {
	for _, candidate := range TypesOfBusiness {
		if t == candidate {
			return true
		}
	}
	return false
}

// IsCreditDebitNote reports whether t covers credit and debit notes.
func (t TypeOfBusiness) IsCreditDebitNote() bool {
	return t == CDNRReg || t == CDNRUnreg
}

// IsB2C reports whether t is one of the consumer sections.
func (t TypeOfBusiness) IsB2C() bool {
	return t == B2CLarge || t == B2CSmall
}

var (
	// ErrB2CLimitMissing is returned for consumer sections when GST Settings has no B2C limit.
	ErrB2CLimitMissing = errors.New("Please set B2C Limit in GST Settings.")
	// ErrPlaceOfSupplyMissing is returned when a filing entry has no place of supply.
	ErrPlaceOfSupplyMissing = errors.New("Place Of Supply not entered")
	// ErrUnknownTypeOfBusiness is returned for an unsupported section.
	ErrUnknownTypeOfBusiness = errors.New("unknown type of business")
	// ErrUnknownCategory is returned when a note carries a GST category the section cannot file.
	ErrUnknownCategory = errors.New("unsupported gst category")
)

// Filters select the invoices of a report run.
type Filters struct {
	Company        string         `json:"company"`
	CompanyAddress string         `json:"company_address,omitempty"`
	FromDate       Date           `json:"from_date,omitzero"`
	ToDate         Date           `json:"to_date"`
	TypeOfBusiness TypeOfBusiness `json:"type_of_business"`
}

// Validate checks required filters and defaults the section to B2B.
func (f *Filters) Validate() error {
	f.Company = strings.TrimSpace(f.Company)
	f.CompanyAddress = strings.TrimSpace(f.CompanyAddress)
	if f.TypeOfBusiness == "" {
		f.TypeOfBusiness = B2B
	}
	details := map[string]string{}
	if f.Company == "" {
		details["company"] = "required"
	}
	if f.ToDate.IsZero() {
		details["to_date"] = "required"
	}
	if !f.FromDate.IsZero() && !f.ToDate.IsZero() && f.FromDate.After(f.ToDate.Time) {
		details["from_date"] = "must not be after to_date"
	}
	if !f.TypeOfBusiness.Valid() {
		details["type_of_business"] = fmt.Sprintf("%q is not supported", f.TypeOfBusiness)
	}
	if len(details) > 0 {
		return shared.NewValidationError(errors.New("invalid gstr-1 filters"), details)
	}
	return nil
}

// CacheKeyParts identifies a run for caching.
func (f Filters) CacheKeyParts() []string {
	return []string{"gstr1", f.Company, f.CompanyAddress, f.FromDate.String(), f.ToDate.String(), string(f.TypeOfBusiness)}
}

// FiltersFromQuery reads filters from URL query parameters.
func FiltersFromQuery(q url.Values) (Filters, error) {
	f := Filters{
		Company:        q.Get("company"),
		CompanyAddress: q.Get("company_address"),
		TypeOfBusiness: TypeOfBusiness(q.Get("type_of_business")),
	}
	var err error
	if f.FromDate, err = ParseDate(q.Get("from_date")); err != nil {
		return Filters{}, shared.NewValidationError(err, map[string]string{"from_date": "invalid date"})
	}
	if f.ToDate, err = ParseDate(q.Get("to_date")); err != nil {
		return Filters{}, shared.NewValidationError(err, map[string]string{"to_date": "invalid date"})
	}
	if err := f.Validate(); err != nil {
		return Filters{}, err
	}
	return f, nil
}
