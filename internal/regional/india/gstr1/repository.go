package gstr1

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/odyssey-erp/odyssey-tax/internal/platform/db"
)

// Repository reads sales documents for the report from PostgreSQL.
type Repository struct {
	conn db.DBTX
}

// NewRepository constructs a repository over a pool or transaction.
func NewRepository(conn db.DBTX) *Repository {
	return &Repository{conn: conn}
}

const invoicesSQL = `SELECT name, COALESCE(customer_name, ''), posting_date,
	COALESCE(grand_total, 0)::float8, COALESCE(base_grand_total, 0)::float8, COALESCE(base_rounded_total, 0)::float8,
	COALESCE(NULLIF(customer_gstin, ''), NULLIF(billing_address_gstin, ''), ''), COALESCE(billing_address_gstin, ''), COALESCE(company_gstin, ''),
	COALESCE(place_of_supply, ''), COALESCE(ecommerce_gstin, ''), COALESCE(reverse_charge, 'N'),
	COALESCE(return_against, ''), is_return, is_debit_note, COALESCE(gst_category, ''),
	COALESCE(export_type, ''), COALESCE(port_code, ''), COALESCE(shipping_bill_number, ''), shipping_bill_date,
	COALESCE(reason_for_issuing_document, ''), sale_from_bonded_wh
FROM sales_invoices
WHERE docstatus = 1 AND is_opening = 'No' AND company = $1
	AND ($2::date IS NULL OR posting_date >= $2)
	AND posting_date <= $3
	AND ($4 = '' OR company_address = $4)
ORDER BY posting_date DESC, name`

// Invoices returns the submitted invoices matching the filters.
func (r *Repository) Invoices(ctx context.Context, f Filters) ([]Invoice, error) {
	rows, err := r.conn.Query(ctx, invoicesSQL, f.Company, pgDate(f.FromDate), pgDate(f.ToDate), f.CompanyAddress)
	if err != nil {
		return nil, fmt.Errorf("gstr1: query invoices: %w", err)
	}
	defer rows.Close()
	var out []Invoice
	for rows.Next() {
		var (
			inv          Invoice
			posting      time.Time
			shippingDate pgtype.Date
		)
		if err := rows.Scan(&inv.Number, &inv.CustomerName, &posting,
			&inv.GrandTotal, &inv.BaseGrandTotal, &inv.BaseRoundedTotal,
			&inv.CustomerGSTIN, &inv.BillingAddressGSTIN, &inv.CompanyGSTIN,
			&inv.PlaceOfSupply, &inv.ECommerceGSTIN, &inv.ReverseCharge,
			&inv.ReturnAgainst, &inv.IsReturn, &inv.IsDebitNote, &inv.GSTCategory,
			&inv.ExportType, &inv.PortCode, &inv.ShippingBillNumber, &shippingDate,
			&inv.ReasonForIssuingDocument, &inv.SaleFromBondedWH); err != nil {
			return nil, err
		}
		inv.PostingDate = NewDate(posting)
		if shippingDate.Valid {
			inv.ShippingBillDate = NewDate(shippingDate.Time)
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

// InvoiceItems returns the item lines of the invoices in entry order.
func (r *Repository) InvoiceItems(ctx context.Context, invoices []string) ([]InvoiceItem, error) {
	if len(invoices) == 0 {
		return nil, nil
	}
	rows, err := r.conn.Query(ctx, `SELECT parent, COALESCE(item_code, ''), COALESCE(taxable_value, 0)::float8,
	COALESCE(base_net_amount, 0)::float8, COALESCE(item_tax_rate, '')
FROM sales_invoice_items WHERE parent = ANY($1) ORDER BY parent, idx`, invoices)
	if err != nil {
		return nil, fmt.Errorf("gstr1: query invoice items: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (InvoiceItem, error) {
		var item InvoiceItem
		err := row.Scan(&item.Parent, &item.ItemCode, &item.TaxableValue, &item.BaseNetAmount, &item.ItemTaxRate)
		return item, err
	})
}

// TaxLines returns the tax rows of the invoices ordered by account head.
func (r *Repository) TaxLines(ctx context.Context, invoices []string) ([]TaxLine, error) {
	if len(invoices) == 0 {
		return nil, nil
	}
	rows, err := r.conn.Query(ctx, `SELECT parent, account_head, COALESCE(item_wise_tax_detail, ''), COALESCE(base_tax_amount_after_discount_amount, 0)::float8
FROM sales_taxes_and_charges
WHERE parenttype = 'Sales Invoice' AND docstatus = 1 AND parent = ANY($1)
ORDER BY account_head, parent, idx`, invoices)
	if err != nil {
		return nil, fmt.Errorf("gstr1: query tax lines: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (TaxLine, error) {
		var line TaxLine
		err := row.Scan(&line.Parent, &line.AccountHead, &line.ItemWiseTaxDetail, &line.TaxAmount)
		return line, err
	})
}

// AdvanceEntries sums the advance taxes of submitted receipts by place of
// supply, rate and account head.
func (r *Repository) AdvanceEntries(ctx context.Context, f Filters) ([]AdvanceEntry, error) {
	rows, err := r.conn.Query(ctx, `SELECT t.account_head, COALESCE(t.rate, 0)::float8, COALESCE(p.place_of_supply, ''), COALESCE(SUM(t.base_tax_amount), 0)::float8
FROM payment_entries p
JOIN advance_taxes_and_charges t ON t.parent = p.name
WHERE p.docstatus = 1 AND p.company = $1
	AND ($2::date IS NULL OR p.posting_date >= $2)
	AND p.posting_date <= $3
	AND ($4 = '' OR p.company_address = $4)
GROUP BY t.account_head, COALESCE(p.place_of_supply, ''), t.rate
ORDER BY 3, 2, 1`, f.Company, pgDate(f.FromDate), pgDate(f.ToDate), f.CompanyAddress)
	if err != nil {
		return nil, fmt.Errorf("gstr1: query advance entries: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (AdvanceEntry, error) {
		var e AdvanceEntry
		err := row.Scan(&e.AccountHead, &e.Rate, &e.PlaceOfSupply, &e.Amount)
		return e, err
	})
}

// RecordExport stores the outcome of a filing export.
func (r *Repository) RecordExport(ctx context.Context, run ExportRun) error {
	_, err := r.conn.Exec(ctx, `INSERT INTO gstr1_export_runs (id, company, type_of_business, from_date, to_date, path, digest, rows, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		run.ID, run.Filters.Company, string(run.Filters.TypeOfBusiness), pgDate(run.Filters.FromDate), pgDate(run.Filters.ToDate),
		run.Path, run.Digest, run.Rows, run.CreatedAt)
	if err != nil {
		return fmt.Errorf("gstr1: record export: %w", err)
	}
	return nil
}

func pgDate(d Date) pgtype.Date {
	if d.IsZero() {
		return pgtype.Date{}
	}
	return pgtype.Date{Time: d.Time, Valid: true}
}
