package gstr1

// Column describes one report column.
type Column struct {
	FieldName string `json:"fieldname"`
	Label     string `json:"label"`
	FieldType string `json:"fieldtype"`
	Options   string `json:"options,omitempty"`
	Width     int    `json:"width,omitempty"`
	Hidden    bool   `json:"hidden,omitempty"`
}

// ColumnSet groups the columns of a section.
type ColumnSet struct {
	Invoice []Column
	Tax     []Column
	Other   []Column
}

// All returns invoice, tax and other columns in display order.
func (c ColumnSet) All() []Column {
	out := make([]Column, 0, len(c.Invoice)+len(c.Tax)+len(c.Other))
	out = append(out, c.Invoice...)
	out = append(out, c.Tax...)
	return append(out, c.Other...)
}

// InvoiceFields lists the fieldnames of the invoice columns.
func (c ColumnSet) InvoiceFields() []string {
	out := make([]string, 0, len(c.Invoice))
	for _, col := range c.Invoice {
		out = append(out, col.FieldName)
	}
	return out
}

// HasOther reports whether an other column with fieldname exists.
func (c ColumnSet) HasOther(fieldname string) bool {
	for _, col := range c.Other {
		if col.FieldName == fieldname {
			return true
		}
	}
	return false
}

func linkColumn(fieldname, label string, width int) Column {
	return Column{FieldName: fieldname, Label: label, FieldType: "Link", Options: "Sales Invoice", Width: width}
}

func dataColumn(fieldname, label string, width int) Column {
	return Column{FieldName: fieldname, Label: label, FieldType: "Data", Width: width}
}

func currencyColumn(fieldname, label string, width int) Column {
	return Column{FieldName: fieldname, Label: label, FieldType: "Currency", Width: width}
}

var (
	cessColumn     = currencyColumn("cess_amount", "Cess Amount", 100)
	preGSTColumn   = dataColumn("pre_gst", "PRE GST", 80)
	docTypeColumn  = dataColumn("document_type", "Document Type", 80)
	hiddenExportTy = Column{FieldName: "export_type", Label: "Export Type", FieldType: "Data", Hidden: true}
)

// Columns returns the column set for a section.
func Columns(t TypeOfBusiness) ColumnSet {
	set := ColumnSet{Tax: []Column{
		{FieldName: "rate", Label: "Rate", FieldType: "Int", Width: 60},
		currencyColumn("taxable_value", "Taxable Value", 100),
	}}

	switch t {
	case B2B:
		set.Invoice = []Column{
			dataColumn("customer_gstin", "GSTIN/UIN of Recipient", 150),
			dataColumn("customer_name", "Receiver Name", 100),
			linkColumn("invoice_number", "Invoice Number", 100),
			dataColumn("posting_date", "Invoice date", 80),
			currencyColumn("invoice_value", "Invoice Value", 100),
			dataColumn("place_of_supply", "Place Of Supply", 100),
			dataColumn("reverse_charge", "Reverse Charge", 0),
			dataColumn("gst_category", "Invoice Type", 0),
			dataColumn("ecommerce_gstin", "E-Commerce GSTIN", 120),
		}
		set.Other = []Column{cessColumn}
	case B2CLarge:
		set.Invoice = []Column{
			linkColumn("invoice_number", "Invoice Number", 120),
			dataColumn("posting_date", "Invoice date", 100),
			currencyColumn("invoice_value", "Invoice Value", 100),
			dataColumn("place_of_supply", "Place Of Supply", 120),
			dataColumn("ecommerce_gstin", "E-Commerce GSTIN", 130),
		}
		set.Other = []Column{cessColumn}
	case CDNRReg:
		set.Invoice = []Column{
			dataColumn("customer_gstin", "GSTIN/UIN of Recipient", 150),
			dataColumn("customer_name", "Receiver Name", 120),
			linkColumn("return_against", "Invoice/Advance Receipt Number", 120),
			dataColumn("posting_date", "Invoice/Advance Receipt date", 120),
			linkColumn("invoice_number", "Invoice/Advance Receipt Number", 120),
			dataColumn("reverse_charge", "Reverse Charge", 0),
			hiddenExportTy,
			dataColumn("reason_for_issuing_document", "Reason For Issuing document", 140),
			dataColumn("place_of_supply", "Place Of Supply", 120),
			dataColumn("gst_category", "GST Category", 0),
			currencyColumn("invoice_value", "Invoice Value", 120),
		}
		set.Other = []Column{cessColumn, preGSTColumn, docTypeColumn}
	case CDNRUnreg:
		set.Invoice = []Column{
			dataColumn("customer_name", "Receiver Name", 120),
			linkColumn("return_against", "Issued Against", 120),
			{FieldName: "posting_date", Label: "Note Date", FieldType: "Date", Width: 120},
			linkColumn("invoice_number", "Note Number", 120),
			hiddenExportTy,
			dataColumn("reason_for_issuing_document", "Reason For Issuing document", 140),
			dataColumn("place_of_supply", "Place Of Supply", 120),
			dataColumn("gst_category", "GST Category", 0),
			currencyColumn("invoice_value", "Invoice Value", 120),
		}
		set.Other = []Column{cessColumn, preGSTColumn, docTypeColumn}
	case B2CSmall:
		set.Invoice = []Column{
			dataColumn("place_of_supply", "Place Of Supply", 120),
			dataColumn("ecommerce_gstin", "E-Commerce GSTIN", 130),
		}
		set.Other = []Column{cessColumn, dataColumn("type", "Type", 50)}
	case Export:
		set.Invoice = []Column{
			dataColumn("export_type", "Export Type", 120),
			linkColumn("invoice_number", "Invoice Number", 120),
			dataColumn("posting_date", "Invoice date", 120),
			currencyColumn("invoice_value", "Invoice Value", 120),
			dataColumn("port_code", "Port Code", 120),
			dataColumn("shipping_bill_number", "Shipping Bill Number", 120),
			dataColumn("shipping_bill_date", "Shipping Bill Date", 120),
		}
	case Advances:
		set.Invoice = []Column{dataColumn("place_of_supply", "Place Of Supply", 120)}
		set.Other = []Column{cessColumn}
	}
	return set
}
