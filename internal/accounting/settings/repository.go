package settings

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-tax/internal/meta/propertysetter"
	"github.com/odyssey-erp/odyssey-tax/internal/platform/db"
	"github.com/odyssey-erp/odyssey-tax/internal/shared"
)

// TxRepository exposes the writes performed while saving the document.
type TxRepository interface {
	DefaultsWriter
	propertysetter.Writer
	SaveSettings(ctx context.Context, doc AccountsSettings) error
	RecordAudit(ctx context.Context, log shared.AuditLog) error
}

// Repository persists accounts settings in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx wraps callback in a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{
			tx:      tx,
			setters: propertysetter.NewStore(tx),
			audit:   shared.NewAuditLogger(tx),
		})
	})
}

// Get loads the singleton row, returning defaults when it was never saved.
func (r *Repository) Get(ctx context.Context) (AccountsSettings, error) {
	return loadSettings(ctx, r.pool)
}

// ListPropertySetters returns overrides recorded for a doctype.
func (r *Repository) ListPropertySetters(ctx context.Context, doctype string) ([]propertysetter.Setter, error) {
	return propertysetter.NewStore(r.pool).ListForDocType(ctx, doctype)
}

type txRepo struct {
	tx      pgx.Tx
	setters *propertysetter.Store
	audit   *shared.AuditLogger
}

func (t *txRepo) SetDefault(ctx context.Context, key, value string) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO global_defaults (key, value) VALUES ($1, $2)
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`, key, value)
	return err
}

func (t *txRepo) Make(ctx context.Context, s propertysetter.Setter) error {
	return t.setters.Make(ctx, s)
}

func (t *txRepo) SaveSettings(ctx context.Context, doc AccountsSettings) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO accounts_settings (id, add_taxes_from_item_tax_template, allow_stale, stale_days,
	show_payment_schedule_in_print, enable_discount_accounting, book_deferred_entries_based_on, credit_controller,
	check_supplier_invoice_uniqueness, unlink_payment_on_cancellation, determine_address_tax_category_from, updated_at)
VALUES (1, $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
ON CONFLICT (id) DO UPDATE SET
	add_taxes_from_item_tax_template = EXCLUDED.add_taxes_from_item_tax_template,
	allow_stale = EXCLUDED.allow_stale,
	stale_days = EXCLUDED.stale_days,
	show_payment_schedule_in_print = EXCLUDED.show_payment_schedule_in_print,
	enable_discount_accounting = EXCLUDED.enable_discount_accounting,
	book_deferred_entries_based_on = EXCLUDED.book_deferred_entries_based_on,
	credit_controller = EXCLUDED.credit_controller,
	check_supplier_invoice_uniqueness = EXCLUDED.check_supplier_invoice_uniqueness,
	unlink_payment_on_cancellation = EXCLUDED.unlink_payment_on_cancellation,
	determine_address_tax_category_from = EXCLUDED.determine_address_tax_category_from,
	updated_at = NOW()`,
		doc.AddTaxesFromItemTaxTemplate, doc.AllowStale, doc.StaleDays, doc.ShowPaymentScheduleInPrint,
		doc.EnableDiscountAccounting, doc.BookDeferredEntriesBasedOn, doc.CreditControllerRole,
		doc.CheckSupplierInvoiceUniqueness, doc.UnlinkPaymentOnCancellation, doc.DetermineAddressTaxCategoryFrom)
	if err != nil {
		return fmt.Errorf("save accounts settings: %w", err)
	}
	return nil
}

func (t *txRepo) RecordAudit(ctx context.Context, log shared.AuditLog) error {
	return t.audit.Record(ctx, log)
}

func loadSettings(ctx context.Context, conn db.DBTX) (AccountsSettings, error) {
	var doc AccountsSettings
	err := conn.QueryRow(ctx, `SELECT add_taxes_from_item_tax_template, allow_stale, stale_days, show_payment_schedule_in_print,
	enable_discount_accounting, book_deferred_entries_based_on, credit_controller, check_supplier_invoice_uniqueness,
	unlink_payment_on_cancellation, determine_address_tax_category_from, updated_at
FROM accounts_settings WHERE id = 1`).Scan(
		&doc.AddTaxesFromItemTaxTemplate, &doc.AllowStale, &doc.StaleDays, &doc.ShowPaymentScheduleInPrint,
		&doc.EnableDiscountAccounting, &doc.BookDeferredEntriesBasedOn, &doc.CreditControllerRole,
		&doc.CheckSupplierInvoiceUniqueness, &doc.UnlinkPaymentOnCancellation, &doc.DetermineAddressTaxCategoryFrom,
		&doc.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Defaults(), nil
	}
	if err != nil {
		return AccountsSettings{}, fmt.Errorf("load accounts settings: %w", err)
	}
	return doc, nil
}

// Defaults mirrors the initial values of a fresh installation.
func Defaults() AccountsSettings {
	return AccountsSettings{
		AddTaxesFromItemTaxTemplate:     true,
		AllowStale:                      true,
		StaleDays:                       1,
		ShowPaymentScheduleInPrint:      true,
		BookDeferredEntriesBasedOn:      "Days",
		UnlinkPaymentOnCancellation:     true,
		DetermineAddressTaxCategoryFrom: "Billing Address",
	}
}
