// Package gst holds the GST Settings of Indian companies: tax account heads,
// the B2C limit and company GSTIN lookups.
package gst

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/odyssey-erp/odyssey-tax/internal/shared"
)

var (
	// ErrAccountsNotConfigured is returned when a company has no GST account heads.
	ErrAccountsNotConfigured = fmt.Errorf("gst: accounts not configured: %w", shared.ErrUnprocessable)
	// ErrCompanyGSTINMissing is returned when no company address carries a GSTIN.
	ErrCompanyGSTINMissing = fmt.Errorf("gst: company gstin missing: %w", shared.ErrUnprocessable)
	// ErrInvalidPlaceOfSupply is returned when a place of supply has no numeric state code.
	ErrInvalidPlaceOfSupply = fmt.Errorf("gst: invalid place of supply: %w", shared.ErrUnprocessable)
)

// Accounts lists the account heads of each GST component for a company.
type Accounts struct {
	CGST []string `json:"cgst_account"`
	SGST []string `json:"sgst_account"`
	IGST []string `json:"igst_account"`
	Cess []string `json:"cess_account"`
}

func (a Accounts) HasCGST(account string) bool { return slices.Contains(a.CGST, account) }
func (a Accounts) HasSGST(account string) bool { return slices.Contains(a.SGST, account) }
func (a Accounts) HasIGST(account string) bool { return slices.Contains(a.IGST, account) }
func (a Accounts) HasCess(account string) bool { return slices.Contains(a.Cess, account) }

// Empty reports whether no account head is configured.
func (a Accounts) Empty() bool {
	return len(a.CGST)+len(a.SGST)+len(a.IGST)+len(a.Cess) == 0
}

// AccountRow is one row of the GST Settings accounts table.
type AccountRow struct {
	Company       string
	CGSTAccount   string
	SGSTAccount   string
	IGSTAccount   string
	CessAccount   string
	ReverseCharge bool
}

// CollectAccounts folds settings rows into Accounts, optionally skipping
// reverse charge rows.
func CollectAccounts(rows []AccountRow, onlyNonReverseCharge bool) Accounts {
	var out Accounts
	for _, row := range rows {
		if onlyNonReverseCharge && row.ReverseCharge {
			continue
		}
		out.CGST = appendAccount(out.CGST, row.CGSTAccount)
		out.SGST = appendAccount(out.SGST, row.SGSTAccount)
		out.IGST = appendAccount(out.IGST, row.IGSTAccount)
		out.Cess = appendAccount(out.Cess, row.CessAccount)
	}
	return out
}

func appendAccount(list []string, account string) []string {
	if account == "" || slices.Contains(list, account) {
		return list
	}
	return append(list, account)
}

// StateCode returns the two character state prefix of a GSTIN or of a
// "NN-State Name" place of supply.
func StateCode(s string) string {
	s = strings.TrimSpace(s)
	if head, _, found := strings.Cut(s, "-"); found {
		return head
	}
	if len(s) < 2 {
		return s
	}
	return s[:2]
}

// PlaceOfSupplyCode renders the state part of a place of supply as two digits.
func PlaceOfSupplyCode(pos string) (string, error) {
	head, _, _ := strings.Cut(strings.TrimSpace(pos), "-")
	n, err := strconv.Atoi(strings.TrimSpace(head))
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidPlaceOfSupply, pos)
	}
	return fmt.Sprintf("%02d", n), nil
}
