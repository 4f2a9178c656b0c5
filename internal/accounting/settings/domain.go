// Package settings implements the Accounts Settings single document and the
// metadata overrides it emits when saved.
package settings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/odyssey-erp/odyssey-tax/internal/meta/propertysetter"
	"github.com/odyssey-erp/odyssey-tax/internal/shared"
)

// ErrStaleDays is returned when stale rates are disallowed without a positive window.
var ErrStaleDays = errors.New("Stale Days should start from 1.")

// DefaultAddTaxesFromItemTaxTemplate is the global default mirrored from the document.
const DefaultAddTaxesFromItemTaxTemplate = "add_taxes_from_item_tax_template"

const discountDependsOn = "eval: doc.discount_amount"

var (
	paymentScheduleDocTypes = []string{"Sales Order", "Sales Invoice", "Purchase Order", "Purchase Invoice"}
	itemDocTypes            = []string{"Sales Invoice Item", "Purchase Invoice Item"}
	invoiceDocTypes         = []string{"Sales Invoice", "Purchase Invoice"}
)

// AccountsSettings is the company wide accounting configuration.
type AccountsSettings struct {
	AddTaxesFromItemTaxTemplate     bool      `json:"add_taxes_from_item_tax_template"`
	AllowStale                      bool      `json:"allow_stale"`
	StaleDays                       int       `json:"stale_days"`
	ShowPaymentScheduleInPrint      bool      `json:"show_payment_schedule_in_print"`
	EnableDiscountAccounting        bool      `json:"enable_discount_accounting"`
	BookDeferredEntriesBasedOn      string    `json:"book_deferred_entries_based_on" validate:"omitempty,oneof=Days Months"`
	CreditControllerRole            string    `json:"credit_controller" validate:"max=140"`
	CheckSupplierInvoiceUniqueness  bool      `json:"check_supplier_invoice_uniqueness"`
	UnlinkPaymentOnCancellation     bool      `json:"unlink_payment_on_cancellation_of_invoice"`
	DetermineAddressTaxCategoryFrom string    `json:"determine_address_tax_category_from" validate:"omitempty,oneof='Billing Address' 'Shipping Address'"`
	UpdatedAt                       time.Time `json:"updated_at"`
}

// DefaultsWriter stores global defaults.
type DefaultsWriter interface {
	SetDefault(ctx context.Context, key, value string) error
}

// Hooks carries the side-effect targets of Validate.
type Hooks struct {
	Defaults DefaultsWriter
	Setters  propertysetter.Writer
}

// Validate applies the document rules in order: mirror the item tax template
// default, check the stale window, then emit the print and discount overrides.
func (s *AccountsSettings) Validate(ctx context.Context, hooks Hooks) error {
	if hooks.Defaults == nil || hooks.Setters == nil {
		return errors.New("settings: validate hooks not configured")
	}
	if err := hooks.Defaults.SetDefault(ctx, DefaultAddTaxesFromItemTaxTemplate, propertysetter.CheckValue(s.AddTaxesFromItemTaxTemplate)); err != nil {
		return fmt.Errorf("settings: set default: %w", err)
	}
	if err := s.validateStaleDays(); err != nil {
		return err
	}
	if err := s.enablePaymentScheduleInPrint(ctx, hooks.Setters); err != nil {
		return err
	}
	return s.toggleDiscountAccountingFields(ctx, hooks.Setters)
}

func (s *AccountsSettings) validateStaleDays() error {
	if !s.AllowStale && s.StaleDays <= 0 {
		return shared.NewValidationError(ErrStaleDays, map[string]string{"stale_days": ErrStaleDays.Error()})
	}
	return nil
}

func (s *AccountsSettings) enablePaymentScheduleInPrint(ctx context.Context, w propertysetter.Writer) error {
	show := s.ShowPaymentScheduleInPrint
	for _, doctype := range paymentScheduleDocTypes {
		if err := w.Make(ctx, propertysetter.Setter{
			DocType: doctype, FieldName: "due_date", Property: "print_hide",
			Value: propertysetter.CheckValue(show), PropertyType: propertysetter.TypeCheck,
		}); err != nil {
			return err
		}
		if err := w.Make(ctx, propertysetter.Setter{
			DocType: doctype, FieldName: "payment_schedule", Property: "print_hide",
			Value: propertysetter.CheckValue(!show), PropertyType: propertysetter.TypeCheck,
		}); err != nil {
			return err
		}
	}
	return nil
}

func (s *AccountsSettings) toggleDiscountAccountingFields(ctx context.Context, w propertysetter.Writer) error {
	enable := s.EnableDiscountAccounting
	for _, doctype := range itemDocTypes {
		if err := makeDiscountField(ctx, w, doctype, "discount_account", enable); err != nil {
			return err
		}
	}
	for _, doctype := range invoiceDocTypes {
		if err := makeDiscountField(ctx, w, doctype, "additional_discount_account", enable); err != nil {
			return err
		}
	}
	return w.Make(ctx, propertysetter.Setter{
		DocType: "Item", FieldName: "default_discount_account", Property: "hidden",
		Value: propertysetter.CheckValue(!enable), PropertyType: propertysetter.TypeCheck,
	})
}

func makeDiscountField(ctx context.Context, w propertysetter.Writer, doctype, field string, enable bool) error {
	if err := w.Make(ctx, propertysetter.Setter{
		DocType: doctype, FieldName: field, Property: "hidden",
		Value: propertysetter.CheckValue(!enable), PropertyType: propertysetter.TypeCheck,
	}); err != nil {
		return err
	}
	dependsOn := ""
	if enable {
		dependsOn = discountDependsOn
	}
	return w.Make(ctx, propertysetter.Setter{
		DocType: doctype, FieldName: field, Property: "mandatory_depends_on",
		Value: dependsOn, PropertyType: propertysetter.TypeCode,
	})
}
