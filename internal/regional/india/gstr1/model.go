package gstr1

import (
	"strconv"
)

const (
	withPaymentOfTax    = "With Payment of Tax"
	withoutPaymentOfTax = "Without Payment of Tax"

	categoryRegistered   = "Registered Regular"
	categoryDeemedExport = "Deemed Export"
	categorySEZ          = "SEZ"
	categoryUnregistered = "Unregistered"
	categoryOverseas     = "Overseas"
)

// Invoice is a submitted sales invoice as read for the report.
type Invoice struct {
	Number                   string
	CustomerName             string
	PostingDate              Date
	GrandTotal               float64
	BaseGrandTotal           float64
	BaseRoundedTotal         float64
	CustomerGSTIN            string
	BillingAddressGSTIN      string
	CompanyGSTIN             string
	PlaceOfSupply            string
	ECommerceGSTIN           string
	ReverseCharge            string
	ReturnAgainst            string
	IsReturn                 bool
	IsDebitNote              bool
	GSTCategory              string
	ExportType               string
	PortCode                 string
	ShippingBillNumber       string
	ShippingBillDate         Date
	ReasonForIssuingDocument string
	SaleFromBondedWH         bool
}

// InvoiceItem is one line of a sales invoice.
type InvoiceItem struct {
	Parent        string
	ItemCode      string
	TaxableValue  float64
	BaseNetAmount float64
	ItemTaxRate   string
}

// TaxLine is one sales taxes and charges row.
type TaxLine struct {
	Parent            string
	AccountHead       string
	ItemWiseTaxDetail string
	TaxAmount         float64
}

// AdvanceEntry is the summed advance tax of a payment entry account head.
type AdvanceEntry struct {
	AccountHead   string
	Rate          float64
	PlaceOfSupply string
	Amount        float64
}

// Row is one report row. Only the fields of the section's columns are populated.
type Row struct {
	CustomerGSTIN            string  `json:"customer_gstin,omitempty"`
	CustomerName             string  `json:"customer_name,omitempty"`
	ReturnAgainst            string  `json:"return_against,omitempty"`
	InvoiceNumber            string  `json:"invoice_number,omitempty"`
	PostingDate              Date    `json:"posting_date,omitzero"`
	InvoiceValue             float64 `json:"invoice_value,omitempty"`
	PlaceOfSupply            string  `json:"place_of_supply,omitempty"`
	ReverseCharge            string  `json:"reverse_charge,omitempty"`
	GSTCategory              string  `json:"gst_category,omitempty"`
	ECommerceGSTIN           string  `json:"ecommerce_gstin,omitempty"`
	ExportType               string  `json:"export_type,omitempty"`
	ReasonForIssuingDocument string  `json:"reason_for_issuing_document,omitempty"`
	PortCode                 string  `json:"port_code,omitempty"`
	ShippingBillNumber       string  `json:"shipping_bill_number,omitempty"`
	ShippingBillDate         Date    `json:"shipping_bill_date,omitzero"`
	Rate                     float64 `json:"rate"`
	TaxableValue             float64 `json:"taxable_value"`
	CessAmount               float64 `json:"cess_amount"`
	PreGST                   string  `json:"pre_gst,omitempty"`
	DocumentType             string  `json:"document_type,omitempty"`
	Type                     string  `json:"type,omitempty"`
	SaleFromBondedWH         bool    `json:"sale_from_bonded_wh,omitempty"`
	IsTotalRow               bool    `json:"is_total_row,omitempty"`
}

// Value renders the row field behind a column fieldname.
func (r Row) Value(fieldname string) string {
	switch fieldname {
	case "customer_gstin":
		return r.CustomerGSTIN
	case "customer_name":
		return r.CustomerName
	case "return_against":
		return r.ReturnAgainst
	case "invoice_number":
		return r.InvoiceNumber
	case "posting_date":
		return r.PostingDate.Display()
	case "invoice_value":
		return formatAmount(r.InvoiceValue)
	case "place_of_supply":
		return r.PlaceOfSupply
	case "reverse_charge":
		return r.ReverseCharge
	case "gst_category":
		return r.GSTCategory
	case "ecommerce_gstin":
		return r.ECommerceGSTIN
	case "export_type":
		return r.ExportType
	case "reason_for_issuing_document":
		return r.ReasonForIssuingDocument
	case "port_code":
		return r.PortCode
	case "shipping_bill_number":
		return r.ShippingBillNumber
	case "shipping_bill_date":
		return r.ShippingBillDate.Display()
	case "rate":
		return strconv.FormatFloat(r.Rate, 'f', -1, 64)
	case "taxable_value":
		return formatAmount(r.TaxableValue)
	case "cess_amount":
		return formatAmount(r.CessAmount)
	case "pre_gst":
		return r.PreGST
	case "document_type":
		return r.DocumentType
	case "type":
		return r.Type
	}
	return ""
}

// Result is the output of a report run.
type Result struct {
	Columns  []Column `json:"columns"`
	Data     []Row    `json:"data"`
	Warnings []string `json:"warnings,omitempty"`
}
