package gstr1

import (
	"fmt"
	"strings"

	"github.com/odyssey-erp/odyssey-tax/internal/regional/india/gst"
	"github.com/odyssey-erp/odyssey-tax/internal/shared"
)

const (
	filingVersion = "GST3.0.4"
	filingHash    = "hash"
)

// FilingDocument is the response of a filing JSON build.
type FilingDocument struct {
	ReportName string         `json:"report_name"`
	ReportType TypeOfBusiness `json:"report_type"`
	Data       Envelope       `json:"data"`
}

// Envelope is the GSTR-1 upload payload. Exactly one section is set.
type Envelope struct {
	Version string       `json:"version"`
	Hash    string       `json:"hash"`
	GSTIN   string       `json:"gstin"`
	FP      string       `json:"fp"`
	B2B     []B2BEntry   `json:"b2b,omitzero"`
	B2CL    []B2CLEntry  `json:"b2cl,omitzero"`
	B2CS    []B2CSEntry  `json:"b2cs,omitzero"`
	Exp     []ExpEntry   `json:"exp,omitzero"`
	CDNR    []CDNREntry  `json:"cdnr,omitzero"`
	CDNUR   []Note       `json:"cdnur,omitzero"`
	AT      []AdvanceTax `json:"at,omitzero"`
}

// ItemDetail carries the tax of one rate line. Either IGST or the CGST and
// SGST halves are set.
type ItemDetail struct {
	TaxableValue float64  `json:"txval"`
	Rate         float64  `json:"rt"`
	Cess         float64  `json:"csamt"`
	CGST         *float64 `json:"camt,omitempty"`
	SGST         *float64 `json:"samt,omitempty"`
	IGST         *float64 `json:"iamt,omitempty"`
}

// RateItem is a numbered rate line.
type RateItem struct {
	Num    int        `json:"num"`
	Detail ItemDetail `json:"itm_det"`
}

// FilingInvoice is an invoice of the b2b and b2cl sections.
type FilingInvoice struct {
	Number        string     `json:"inum"`
	Date          string     `json:"idt"`
	Value         float64    `json:"val"`
	PlaceOfSupply string     `json:"pos,omitempty"`
	ReverseCharge string     `json:"rchrg,omitempty"`
	InvoiceType   string     `json:"inv_typ,omitempty"`
	Items         []RateItem `json:"itms"`
}

type B2BEntry struct {
	CTIN     string          `json:"ctin"`
	Invoices []FilingInvoice `json:"inv"`
}

type B2CLEntry struct {
	PlaceOfSupply string          `json:"pos"`
	Invoices      []FilingInvoice `json:"inv"`
}

type B2CSEntry struct {
	SupplyType    string  `json:"sply_ty"`
	PlaceOfSupply string  `json:"pos"`
	Type          string  `json:"typ"`
	TaxableValue  float64 `json:"txval"`
	Rate          float64 `json:"rt"`
	IGST          float64 `json:"iamt"`
	CGST          float64 `json:"camt"`
	SGST          float64 `json:"samt"`
	Cess          float64 `json:"csamt"`
	ETIN          string  `json:"etin,omitempty"`
}

type ExpEntry struct {
	ExportType string       `json:"exp_typ"`
	Invoices   []ExpInvoice `json:"inv"`
}

type ExpInvoice struct {
	Number string    `json:"inum"`
	Date   string    `json:"idt"`
	Value  float64   `json:"val"`
	Items  []ExpItem `json:"itms"`
}

type ExpItem struct {
	TaxableValue float64 `json:"txval"`
	Rate         float64 `json:"rt"`
	IGST         float64 `json:"iamt"`
	Cess         float64 `json:"csamt"`
}

type CDNREntry struct {
	CTIN  string `json:"ctin"`
	Notes []Note `json:"nt"`
}

// Note is a credit or debit note of the cdnr and cdnur sections.
type Note struct {
	Number        string     `json:"nt_num"`
	Date          string     `json:"nt_dt"`
	Value         float64    `json:"val"`
	NoteType      string     `json:"ntty"`
	PlaceOfSupply string     `json:"pos"`
	ReverseCharge string     `json:"rchrg,omitempty"`
	InvoiceType   string     `json:"inv_typ,omitempty"`
	Type          string     `json:"typ,omitempty"`
	Items         []RateItem `json:"itms"`
}

type AdvanceTax struct {
	PlaceOfSupply string        `json:"pos"`
	Items         []AdvanceItem `json:"itms"`
	SupplyType    string        `json:"sply_ty"`
}

type AdvanceItem struct {
	Rate     float64  `json:"rt"`
	AdAmount float64  `json:"ad_amount"`
	Cess     float64  `json:"csamt"`
	SGST     *float64 `json:"samt,omitempty"`
	CGST     *float64 `json:"camt,omitempty"`
	IGST     *float64 `json:"iamt,omitempty"`
}

var b2bInvoiceTypes = map[string]string{
	categoryRegistered:   "R",
	categoryDeemedExport: "DE",
	"URD":                "URD",
	categorySEZ:          "SEZ",
}

// group keeps values per key in first-seen key order.
type group[K comparable, V any] struct {
	keys   []K
	values map[K][]V
}

func newGroup[K comparable, V any]() *group[K, V] {
	return &group[K, V]{values: map[K][]V{}}
}

func (g *group[K, V]) add(key K, v V) {
	if _, ok := g.values[key]; !ok {
		g.keys = append(g.keys, key)
	}
	g.values[key] = append(g.values[key], v)
}

// BuildFilingJSON turns report rows into the filing document of the section
// named by f.TypeOfBusiness. A trailing total row is ignored.
func BuildFilingJSON(f Filters, reportName, gstin string, rows []Row) (FilingDocument, error) {
	if n := len(rows); n > 0 && rows[n-1].IsTotalRow {
		rows = rows[:n-1]
	}
	env := Envelope{
		Version: filingVersion,
		Hash:    filingHash,
		GSTIN:   gstin,
		FP:      fmt.Sprintf("%02d%d", int(f.ToDate.Month()), f.ToDate.Year()),
	}
	companyState := prefix2(gstin)

	var err error
	switch f.TypeOfBusiness {
	case B2B:
		env.B2B, err = b2bJSON(rows, companyState)
	case B2CLarge:
		env.B2CL, err = b2clJSON(rows, companyState)
	case B2CSmall:
		env.B2CS, err = b2csJSON(rows, companyState)
	case Export:
		env.Exp = exportJSON(rows)
	case CDNRReg:
		env.CDNR, err = cdnrJSON(rows, companyState)
	case CDNRUnreg:
		env.CDNUR, err = cdnurJSON(rows, companyState)
	case Advances:
		env.AT, err = advancesJSON(rows, companyState)
	default:
		err = fmt.Errorf("gstr1: %w: %q", ErrUnknownTypeOfBusiness, f.TypeOfBusiness)
	}
	if err != nil {
		return FilingDocument{}, err
	}
	return FilingDocument{ReportName: reportName, ReportType: f.TypeOfBusiness, Data: env}, nil
}

func unprocessable(invoice string, err error) error {
	if invoice == "" {
		return fmt.Errorf("gstr1: %w: %w", shared.ErrUnprocessable, err)
	}
	return fmt.Errorf("gstr1: %w: invoice %s: %w", shared.ErrUnprocessable, invoice, err)
}

func posCode(row Row) (string, error) {
	if strings.TrimSpace(row.PlaceOfSupply) == "" {
		return "", unprocessable(row.InvoiceNumber, ErrPlaceOfSupplyMissing)
	}
	code, err := gst.PlaceOfSupplyCode(row.PlaceOfSupply)
	if err != nil {
		return "", unprocessable(row.InvoiceNumber, err)
	}
	return code, nil
}

func groupByInvoice(rows []Row) *group[string, Row] {
	g := newGroup[string, Row]()
	for _, row := range rows {
		g.add(row.InvoiceNumber, row)
	}
	return g
}

func b2bJSON(rows []Row, companyState string) ([]B2BEntry, error) {
	byCustomer := newGroup[string, Row]()
	for _, row := range rows {
		byCustomer.add(row.CustomerGSTIN, row)
	}
	out := []B2BEntry{}
	for _, ctin := range byCustomer.keys {
		if ctin == "" {
			continue
		}
		invoices := groupByInvoice(byCustomer.values[ctin])
		entry := B2BEntry{CTIN: ctin}
		for _, number := range invoices.keys {
			lines := invoices.values[number]
			first := lines[0]
			pos, err := posCode(first)
			if err != nil {
				return nil, err
			}
			if pos == "00" {
				continue
			}
			inv := basicInvoice(first)
			inv.PlaceOfSupply = pos
			inv.ReverseCharge = first.ReverseCharge
			inv.InvoiceType = b2bInvoiceTypes[first.GSTCategory]
			inv.Items = rateItems(lines, companyState)
			entry.Invoices = append(entry.Invoices, inv)
		}
		if len(entry.Invoices) == 0 {
			continue
		}
		out = append(out, entry)
	}
	return out, nil
}

func b2clJSON(rows []Row, companyState string) ([]B2CLEntry, error) {
	byPOS := newGroup[string, Row]()
	for _, row := range rows {
		if strings.TrimSpace(row.PlaceOfSupply) == "" {
			return nil, unprocessable(row.InvoiceNumber, ErrPlaceOfSupplyMissing)
		}
		byPOS.add(row.PlaceOfSupply, row)
	}
	out := []B2CLEntry{}
	for _, pos := range byPOS.keys {
		code, err := gst.PlaceOfSupplyCode(pos)
		if err != nil {
			return nil, unprocessable("", err)
		}
		entry := B2CLEntry{PlaceOfSupply: code, Invoices: []FilingInvoice{}}
		for _, row := range byPOS.values[pos] {
			inv := basicInvoice(row)
			if row.SaleFromBondedWH {
				inv.InvoiceType = "CBW"
			}
			inv.Items = []RateItem{rateItem(row, companyState)}
			entry.Invoices = append(entry.Invoices, inv)
		}
		out = append(out, entry)
	}
	return out, nil
}

func b2csJSON(rows []Row, companyState string) ([]B2CSEntry, error) {
	out := []B2CSEntry{}
	for _, row := range rows {
		if strings.TrimSpace(row.PlaceOfSupply) == "" {
			return nil, unprocessable(row.InvoiceNumber, ErrPlaceOfSupplyMissing)
		}
		pos := gst.StateCode(row.PlaceOfSupply)
		tax := round2(row.TaxableValue * row.Rate / 100)
		entry := B2CSEntry{
			SupplyType:    "INTER",
			PlaceOfSupply: pos,
			Type:          row.Type,
			TaxableValue:  round2(row.TaxableValue),
			Rate:          row.Rate,
			Cess:          round2(row.CessAmount),
		}
		if pos == companyState {
			entry.SupplyType = "INTRA"
			entry.CGST = round2(tax / 2)
			entry.SGST = round2(tax / 2)
		} else {
			entry.IGST = tax
		}
		if row.Type == "E" && row.ECommerceGSTIN != "" {
			entry.ETIN = row.ECommerceGSTIN
		}
		out = append(out, entry)
	}
	return out, nil
}

func exportJSON(rows []Row) []ExpEntry {
	byType := newGroup[string, Row]()
	for _, row := range rows {
		byType.add(row.ExportType, row)
	}
	out := []ExpEntry{}
	for _, exportType := range byType.keys {
		entry := ExpEntry{ExportType: exportType, Invoices: []ExpInvoice{}}
		for _, row := range byType.values[exportType] {
			entry.Invoices = append(entry.Invoices, ExpInvoice{
				Number: row.InvoiceNumber,
				Date:   row.PostingDate.Filing(),
				Value:  round2(row.InvoiceValue),
				Items: []ExpItem{{
					TaxableValue: round2(row.TaxableValue),
					Rate:         row.Rate,
				}},
			})
		}
		out = append(out, entry)
	}
	return out
}

func cdnrJSON(rows []Row, companyState string) ([]CDNREntry, error) {
	byCustomer := newGroup[string, Row]()
	for _, row := range rows {
		byCustomer.add(row.CustomerGSTIN, row)
	}
	out := []CDNREntry{}
	for _, ctin := range byCustomer.keys {
		if ctin == "" {
			continue
		}
		notes := groupByInvoice(byCustomer.values[ctin])
		entry := CDNREntry{CTIN: ctin}
		for _, number := range notes.keys {
			lines := notes.values[number]
			first := lines[0]
			pos, err := posCode(first)
			if err != nil {
				return nil, err
			}
			invType, err := cdnrInvoiceType(first)
			if err != nil {
				return nil, err
			}
			note := basicNote(first, pos)
			note.ReverseCharge = first.ReverseCharge
			note.InvoiceType = invType
			note.Items = rateItems(lines, companyState)
			entry.Notes = append(entry.Notes, note)
		}
		if len(entry.Notes) == 0 {
			continue
		}
		out = append(out, entry)
	}
	return out, nil
}

func cdnurJSON(rows []Row, companyState string) ([]Note, error) {
	notes := groupByInvoice(rows)
	out := []Note{}
	for _, number := range notes.keys {
		lines := notes.values[number]
		first := lines[0]
		pos, err := posCode(first)
		if err != nil {
			return nil, err
		}
		typ, err := cdnurType(first)
		if err != nil {
			return nil, err
		}
		note := basicNote(first, pos)
		note.Type = typ
		note.Items = rateItems(lines, companyState)
		out = append(out, note)
	}
	return out, nil
}

func advancesJSON(rows []Row, companyState string) ([]AdvanceTax, error) {
	byPOS := newGroup[string, Row]()
	for _, row := range rows {
		if strings.TrimSpace(row.PlaceOfSupply) == "" {
			return nil, unprocessable("", ErrPlaceOfSupplyMissing)
		}
		byPOS.add(row.PlaceOfSupply, row)
	}
	out := []AdvanceTax{}
	for _, pos := range byPOS.keys {
		state := gst.StateCode(pos)
		entry := AdvanceTax{PlaceOfSupply: state, SupplyType: "INTER", Items: []AdvanceItem{}}
		intra := state == companyState
		if intra {
			entry.SupplyType = "INTRA"
		}
		for _, row := range byPOS.values[pos] {
			item := AdvanceItem{
				Rate:     row.Rate,
				AdAmount: row.TaxableValue,
				Cess:     row.CessAmount,
			}
			tax := item.AdAmount * item.Rate / 100
			if intra {
				item.SGST = &tax
				item.CGST = &tax
				item.Rate *= 2
			} else {
				item.IGST = &tax
			}
			entry.Items = append(entry.Items, item)
		}
		out = append(out, entry)
	}
	return out, nil
}

func basicInvoice(row Row) FilingInvoice {
	return FilingInvoice{
		Number: row.InvoiceNumber,
		Date:   row.PostingDate.Filing(),
		Value:  round2(row.InvoiceValue),
	}
}

func basicNote(row Row, pos string) Note {
	return Note{
		Number:        row.InvoiceNumber,
		Date:          row.PostingDate.Filing(),
		Value:         abs(row.InvoiceValue),
		NoteType:      row.DocumentType,
		PlaceOfSupply: pos,
	}
}

func rateItems(rows []Row, companyState string) []RateItem {
	items := make([]RateItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, rateItem(row, companyState))
	}
	return items
}

// rateItem builds the numbered item detail of one rate row. The tax is split
// into CGST and SGST when the customer is in the company's state.
func rateItem(row Row, companyState string) RateItem {
	num := 1
	if row.Rate != 0 {
		num = int(row.Rate)*100 + 1
	}
	detail := ItemDetail{
		TaxableValue: round2(row.TaxableValue),
		Rate:         row.Rate,
		Cess:         round2(row.CessAmount),
	}
	tax := round2(row.TaxableValue * row.Rate / 100)
	if row.CustomerGSTIN != "" && prefix2(row.CustomerGSTIN) == companyState {
		half := round2(tax / 2)
		cgst, sgst := half, half
		detail.CGST, detail.SGST = &cgst, &sgst
	} else {
		detail.IGST = &tax
	}
	return RateItem{Num: num, Detail: detail}
}

func cdnrInvoiceType(row Row) (string, error) {
	switch row.GSTCategory {
	case categorySEZ:
		if row.ExportType == "WPAY" {
			return "SEWP", nil
		}
		return "SEWOP", nil
	case categoryDeemedExport:
		return "DE", nil
	case categoryRegistered:
		return "R", nil
	}
	return "", unprocessable(row.InvoiceNumber, fmt.Errorf("%w: %q", ErrUnknownCategory, row.GSTCategory))
}

func cdnurType(row Row) (string, error) {
	switch row.GSTCategory {
	case categoryOverseas:
		if row.ExportType == "WPAY" {
			return "EXPWP", nil
		}
		return "EXPWOP", nil
	case categoryUnregistered:
		return "B2CL", nil
	}
	return "", unprocessable(row.InvoiceNumber, fmt.Errorf("%w: %q", ErrUnknownCategory, row.GSTCategory))
}
