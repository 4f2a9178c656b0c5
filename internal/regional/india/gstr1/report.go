package gstr1

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/odyssey-erp/odyssey-tax/internal/regional/india/gst"
	"github.com/odyssey-erp/odyssey-tax/internal/shared"
)

// Store reads the documents a report run aggregates.
type Store interface {
	// Invoices returns submitted, non-opening sales invoices of the company in
	// the date range, newest first.
	Invoices(ctx context.Context, f Filters) ([]Invoice, error)
	InvoiceItems(ctx context.Context, invoices []string) ([]InvoiceItem, error)
	// TaxLines returns tax rows of the invoices ordered by account head.
	TaxLines(ctx context.Context, invoices []string) ([]TaxLine, error)
	AdvanceEntries(ctx context.Context, f Filters) ([]AdvanceEntry, error)
}

// GSTLookup resolves GST Settings.
type GSTLookup interface {
	GetGSTAccounts(ctx context.Context, company string, onlyNonReverseCharge bool) (gst.Accounts, error)
	B2CLimit(ctx context.Context) (float64, error)
	CompanyGSTIN(ctx context.Context, company, address string) (string, error)
}

// Report runs the GSTR-1 aggregation.
type Report struct {
	store  Store
	gst    GSTLookup
	logger *slog.Logger
}

// NewReport constructs a report runner.
func NewReport(store Store, lookup GSTLookup, logger *slog.Logger) *Report {
	if logger == nil {
		logger = slog.Default()
	}
	return &Report{store: store, gst: lookup, logger: logger}
}

// run carries the intermediate state of one execution.
type run struct {
	filters  Filters
	columns  ColumnSet
	accounts gst.Accounts
	invoices map[string]Invoice
	order    []string
	items    *invoiceItems
	taxes    *taxBuckets
	warnings []string
}

// Run executes the report for f.
func (r *Report) Run(ctx context.Context, f Filters) (Result, error) {
	if err := f.Validate(); err != nil {
		return Result{}, err
	}
	st := &run{filters: f, columns: Columns(f.TypeOfBusiness), invoices: map[string]Invoice{}}

	accounts, err := r.gst.GetGSTAccounts(ctx, f.Company, true)
	if err != nil {
		return Result{}, fmt.Errorf("gstr1: gst accounts: %w", err)
	}
	st.accounts = accounts

	var rows []Row
	if f.TypeOfBusiness == Advances {
		entries, err := r.store.AdvanceEntries(ctx, f)
		if err != nil {
			return Result{}, fmt.Errorf("gstr1: advance entries: %w", err)
		}
		rows = advanceRows(entries, accounts)
	} else {
		if err := r.loadInvoices(ctx, st); err != nil {
			return Result{}, err
		}
		if len(st.order) > 0 {
			if err := r.loadItemsAndTaxes(ctx, st); err != nil {
				return Result{}, err
			}
		}
		if f.TypeOfBusiness.IsB2C() {
			rows = st.b2cRows()
		} else {
			rows = st.invoiceRows()
		}
	}
	if rows == nil {
		rows = []Row{}
	}
	return Result{Columns: st.columns.All(), Data: rows, Warnings: st.warnings}, nil
}

func (r *Report) loadInvoices(ctx context.Context, st *run) error {
	var limit float64
	if st.filters.TypeOfBusiness.IsB2C() {
		var err error
		limit, err = r.gst.B2CLimit(ctx)
		if err != nil {
			return fmt.Errorf("gstr1: b2c limit: %w", err)
		}
		if limit == 0 {
			return fmt.Errorf("gstr1: %w", shared.NewValidationError(ErrB2CLimitMissing, nil))
		}
	}
	invoices, err := r.store.Invoices(ctx, st.filters)
	if err != nil {
		return fmt.Errorf("gstr1: invoices: %w", err)
	}
	for _, inv := range invoices {
		if !matchesSection(inv, st.filters.TypeOfBusiness, limit) {
			continue
		}
		if _, dup := st.invoices[inv.Number]; dup {
			continue
		}
		st.invoices[inv.Number] = inv
		st.order = append(st.order, inv.Number)
	}
	return nil
}

func (r *Report) loadItemsAndTaxes(ctx context.Context, st *run) error {
	items, err := r.store.InvoiceItems(ctx, st.order)
	if err != nil {
		return fmt.Errorf("gstr1: invoice items: %w", err)
	}
	st.items = collectInvoiceItems(items)

	lines, err := r.store.TaxLines(ctx, st.order)
	if err != nil {
		return fmt.Errorf("gstr1: tax lines: %w", err)
	}
	st.taxes = bucketTaxLines(lines, st.accounts)
	if len(st.taxes.unidentifiedAccounts) > 0 {
		msg := "Following accounts might be selected in GST Settings: " + strings.Join(st.taxes.unidentifiedAccounts, ", ")
		st.warnings = append(st.warnings, msg)
		r.logger.Warn("gstr1 unidentified gst accounts",
			slog.String("company", st.filters.Company),
			slog.Any("accounts", st.taxes.unidentifiedAccounts))
	}
	st.taxes.addZeroRatedExports(st.items, st.invoices)
	return nil
}

var registeredCategories = []string{categoryRegistered, categoryDeemedExport, categorySEZ}

// matchesSection applies the per-section invoice conditions.
func matchesSection(inv Invoice, t TypeOfBusiness, b2cLimit float64) bool {
	if inv.BillingAddressGSTIN == inv.CompanyGSTIN {
		return false
	}
	interState := prefix2(inv.PlaceOfSupply) != prefix2(inv.CompanyGSTIN)
	switch t {
	case B2B:
		return slices.Contains(registeredCategories, inv.GSTCategory) && !inv.IsReturn && !inv.IsDebitNote
	case B2CLarge:
		return interState && inv.GrandTotal > b2cLimit && !inv.IsReturn && !inv.IsDebitNote &&
			inv.GSTCategory == categoryUnregistered
	case B2CSmall:
		return (!interState || inv.GrandTotal <= b2cLimit) && !inv.IsReturn && inv.GSTCategory == categoryUnregistered
	case CDNRReg:
		return (inv.IsReturn || inv.IsDebitNote) && slices.Contains(registeredCategories, inv.GSTCategory)
	case CDNRUnreg:
		return interState && (inv.IsReturn || inv.IsDebitNote) &&
			(inv.GSTCategory == categoryUnregistered || inv.GSTCategory == categoryOverseas)
	case Export:
		return !inv.IsReturn && inv.GSTCategory == categoryOverseas
	}
	return false
}

func prefix2(s string) string {
	if len(s) < 2 {
		return s
	}
	return s[:2]
}

var preGSTCutoff = time.Date(2017, time.July, 1, 0, 0, 0, 0, time.UTC)

// invoiceRows emits one row per invoice and rate for the non consumer sections.
func (st *run) invoiceRows() []Row {
	if st.taxes == nil {
		return nil
	}
	fields := st.columns.InvoiceFields()
	withCess := st.columns.HasOther("cess_amount")
	var rows []Row
	for _, number := range st.taxes.buckets.order {
		inv := st.invoices[number]
		rates := st.taxes.buckets.byInvoice[number]
		for _, rate := range rates.rates {
			row := st.invoiceFields(inv, fields)
			row.Rate = rate
			row.TaxableValue = st.taxableValue(inv, rate, rates.items[rate])
			if withCess {
				row.CessAmount = round2(st.taxes.cess[number])
			}
			if st.filters.TypeOfBusiness.IsCreditDebitNote() {
				row.PreGST = "N"
				if !inv.PostingDate.After(preGSTCutoff) {
					row.PreGST = "Y"
				}
				row.DocumentType = "D"
				if inv.IsReturn {
					row.DocumentType = "C"
				}
			}
			if row.TaxableValue != 0 {
				rows = append(rows, row)
			}
		}
	}
	return rows
}

func (st *run) invoiceFields(inv Invoice, fields []string) Row {
	row := Row{SaleFromBondedWH: inv.SaleFromBondedWH}
	for _, field := range fields {
		switch field {
		case "customer_gstin":
			row.CustomerGSTIN = inv.CustomerGSTIN
		case "customer_name":
			row.CustomerName = inv.CustomerName
		case "return_against":
			row.ReturnAgainst = inv.ReturnAgainst
		case "invoice_number":
			row.InvoiceNumber = inv.Number
		case "posting_date":
			row.PostingDate = inv.PostingDate
		case "invoice_value":
			if st.filters.TypeOfBusiness.IsCreditDebitNote() {
				row.InvoiceValue = abs(inv.BaseRoundedTotal)
				if row.InvoiceValue == 0 {
					row.InvoiceValue = abs(inv.BaseGrandTotal)
				}
			} else {
				row.InvoiceValue = inv.BaseRoundedTotal
				if row.InvoiceValue == 0 {
					row.InvoiceValue = inv.BaseGrandTotal
				}
			}
		case "place_of_supply":
			row.PlaceOfSupply = inv.PlaceOfSupply
		case "reverse_charge":
			row.ReverseCharge = inv.ReverseCharge
		case "gst_category":
			row.GSTCategory = inv.GSTCategory
		case "ecommerce_gstin":
			row.ECommerceGSTIN = inv.ECommerceGSTIN
		case "export_type":
			row.ExportType = "WOPAY"
			if inv.ExportType == withPaymentOfTax {
				row.ExportType = "WPAY"
			}
		case "reason_for_issuing_document":
			row.ReasonForIssuingDocument = inv.ReasonForIssuingDocument
		case "port_code":
			row.PortCode = inv.PortCode
		case "shipping_bill_number":
			row.ShippingBillNumber = inv.ShippingBillNumber
		case "shipping_bill_date":
			row.ShippingBillDate = inv.ShippingBillDate
		}
	}
	return row
}

// taxableValue sums the item amounts of a rate bucket that carry the rate.
func (st *run) taxableValue(inv Invoice, rate float64, bucketItems []string) float64 {
	amounts, ok := st.items.items[inv.Number]
	if !ok {
		return 0
	}
	division := 1.0
	if st.taxes.cgstSGSTInvoices[inv.Number] {
		division = 2
	}
	itemRates := st.items.taxRates[inv.Number]
	var total float64
	for _, code := range amounts.codes {
		if !slices.Contains(bucketItems, code) {
			continue
		}
		net := abs(amounts.amounts[code])
		switch {
		case len(itemRates) > 0 && slices.Contains(itemRates[code], rate/division):
			total += net
		case len(itemRates) == 0:
			total += net
		case rate != 0:
			total += net
		case st.filters.TypeOfBusiness == Export && inv.ExportType == withoutPaymentOfTax:
			total += net
		}
	}
	return total
}

type b2cKey struct {
	rate float64
	pos  string
	etin string
}

// b2cRows aggregates consumer invoices by rate, place of supply and
// e-commerce GSTIN. Invoice fields on a row come from its first invoice.
func (st *run) b2cRows() []Row {
	if st.taxes == nil {
		return nil
	}
	index := map[b2cKey]int{}
	var rows []Row
	for _, number := range st.taxes.buckets.order {
		inv := st.invoices[number]
		rates := st.taxes.buckets.byInvoice[number]
		for _, rate := range rates.rates {
			key := b2cKey{rate: rate, pos: inv.PlaceOfSupply, etin: inv.ECommerceGSTIN}
			i, ok := index[key]
			if !ok {
				rows = append(rows, Row{
					InvoiceNumber:    inv.Number,
					PostingDate:      inv.PostingDate,
					InvoiceValue:     inv.BaseGrandTotal,
					SaleFromBondedWH: inv.SaleFromBondedWH,
				})
				i = len(rows) - 1
				index[key] = i
			}
			row := &rows[i]
			row.PlaceOfSupply = inv.PlaceOfSupply
			row.ECommerceGSTIN = inv.ECommerceGSTIN
			row.Rate = rate
			if amounts, ok := st.items.items[number]; ok {
				for _, code := range rates.items[rate] {
					row.TaxableValue += abs(amounts.amounts[code])
				}
			}
			row.CessAmount += round2(st.taxes.cess[number])
			row.Type = "OE"
			if inv.ECommerceGSTIN != "" {
				row.Type = "E"
			}
		}
	}
	return rows
}

type advanceKey struct {
	pos  string
	rate float64
}

// advanceRows groups advance taxes by place of supply and rate. Only IGST and
// SGST heads feed the taxable value so intra-state advances are not doubled.
func advanceRows(entries []AdvanceEntry, accounts gst.Accounts) []Row {
	index := map[advanceKey]int{}
	var rows []Row
	get := func(e AdvanceEntry) *Row {
		key := advanceKey{pos: e.PlaceOfSupply, rate: e.Rate}
		i, ok := index[key]
		if !ok {
			rows = append(rows, Row{PlaceOfSupply: e.PlaceOfSupply, Rate: e.Rate})
			i = len(rows) - 1
			index[key] = i
		}
		return &rows[i]
	}
	for _, e := range entries {
		switch {
		case e.Rate == 0:
			continue
		case accounts.HasIGST(e.AccountHead) || accounts.HasSGST(e.AccountHead):
			row := get(e)
			row.TaxableValue += e.Amount * 100 / e.Rate
		case accounts.HasCess(e.AccountHead):
			row := get(e)
			row.CessAmount += e.Amount
		}
	}
	for i := range rows {
		rows[i].TaxableValue = round2(rows[i].TaxableValue)
		rows[i].CessAmount = round2(rows[i].CessAmount)
	}
	return rows
}
