package gstr1

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/odyssey-erp/odyssey-tax/internal/regional/india/gst"
)

// itemAmounts keeps an invoice's item codes in first-seen order.
type itemAmounts struct {
	codes   []string
	amounts map[string]float64
}

func (a *itemAmounts) add(code string, amount float64) {
	if _, ok := a.amounts[code]; !ok {
		a.codes = append(a.codes, code)
	}
	a.amounts[code] += amount
}

// invoiceItems holds per invoice item amounts and item-wise tax rates.
type invoiceItems struct {
	order    []string
	items    map[string]*itemAmounts
	taxRates map[string]map[string][]float64
}

func collectInvoiceItems(rows []InvoiceItem) *invoiceItems {
	out := &invoiceItems{
		items:    map[string]*itemAmounts{},
		taxRates: map[string]map[string][]float64{},
	}
	for _, row := range rows {
		amounts, ok := out.items[row.Parent]
		if !ok {
			amounts = &itemAmounts{amounts: map[string]float64{}}
			out.items[row.Parent] = amounts
			out.order = append(out.order, row.Parent)
		}
		_, seen := amounts.amounts[row.ItemCode]
		value := row.TaxableValue
		if value == 0 {
			value = row.BaseNetAmount
		}
		amounts.add(row.ItemCode, value)
		if seen || strings.TrimSpace(row.ItemTaxRate) == "" {
			continue
		}
		rates, err := parseItemTaxRate(row.ItemTaxRate)
		if err != nil || len(rates) == 0 {
			continue
		}
		byItem, ok := out.taxRates[row.Parent]
		if !ok {
			byItem = map[string][]float64{}
			out.taxRates[row.Parent] = byItem
		}
		byItem[row.ItemCode] = append(byItem[row.ItemCode], rates...)
	}
	return out
}

func parseItemTaxRate(raw string) ([]float64, error) {
	var byAccount map[string]float64
	if err := json.Unmarshal([]byte(raw), &byAccount); err != nil {
		return nil, err
	}
	rates := make([]float64, 0, len(byAccount))
	for _, rate := range byAccount {
		rates = append(rates, rate)
	}
	return rates, nil
}

// rateBuckets maps invoice to tax rate to item codes, preserving first-seen order.
type rateBuckets struct {
	order     []string
	byInvoice map[string]*invoiceRates
}

type invoiceRates struct {
	rates []float64
	items map[float64][]string
}

func newRateBuckets() *rateBuckets {
	return &rateBuckets{byInvoice: map[string]*invoiceRates{}}
}

func (b *rateBuckets) has(invoice string) bool {
	_, ok := b.byInvoice[invoice]
	return ok
}

func (b *rateBuckets) invoice(invoice string) *invoiceRates {
	ir, ok := b.byInvoice[invoice]
	if !ok {
		ir = &invoiceRates{items: map[float64][]string{}}
		b.byInvoice[invoice] = ir
		b.order = append(b.order, invoice)
	}
	return ir
}

func (ir *invoiceRates) add(rate float64, item string) {
	list, ok := ir.items[rate]
	if !ok {
		ir.rates = append(ir.rates, rate)
	}
	if !slices.Contains(list, item) {
		ir.items[rate] = append(list, item)
	}
}

// taxBuckets is the outcome of classifying the tax lines of the selected invoices.
type taxBuckets struct {
	buckets              *rateBuckets
	cess                 map[string]float64
	cgstSGSTInvoices     map[string]bool
	unidentifiedAccounts []string
	unidentifiedInvoices map[string]bool
}

func bucketTaxLines(lines []TaxLine, accounts gst.Accounts) *taxBuckets {
	out := &taxBuckets{
		buckets:              newRateBuckets(),
		cess:                 map[string]float64{},
		cgstSGSTInvoices:     map[string]bool{},
		unidentifiedInvoices: map[string]bool{},
	}
	for _, line := range lines {
		if accounts.HasCess(line.AccountHead) {
			if _, ok := out.cess[line.Parent]; !ok {
				out.cess[line.Parent] = line.TaxAmount
			}
			continue
		}
		if strings.TrimSpace(line.ItemWiseTaxDetail) == "" {
			continue
		}
		detail, err := parseItemWiseTaxDetail(line.ItemWiseTaxDetail)
		if err != nil {
			continue
		}
		cgstOrSGST := accounts.HasCGST(line.AccountHead) || accounts.HasSGST(line.AccountHead)
		if !cgstOrSGST && !accounts.HasIGST(line.AccountHead) {
			if strings.Contains(strings.ToLower(line.AccountHead), "gst") && !slices.Contains(out.unidentifiedAccounts, line.AccountHead) {
				out.unidentifiedAccounts = append(out.unidentifiedAccounts, line.AccountHead)
				out.unidentifiedInvoices[line.Parent] = true
			}
			continue
		}
		for _, entry := range detail {
			rate := entry.rate
			if rate == 0 {
				continue
			}
			if cgstOrSGST {
				rate *= 2
				out.cgstSGSTInvoices[line.Parent] = true
			}
			out.buckets.invoice(line.Parent).add(rate, entry.itemCode)
		}
	}
	return out
}

// addZeroRatedExports gives export invoices without payment of tax and without
// tax rows a zero rate bucket holding all their items.
func (t *taxBuckets) addZeroRatedExports(items *invoiceItems, invoices map[string]Invoice) {
	for _, number := range items.order {
		if t.buckets.has(number) || t.unidentifiedInvoices[number] {
			continue
		}
		inv, ok := invoices[number]
		if !ok || inv.ExportType != withoutPaymentOfTax || inv.GSTCategory != categoryOverseas {
			continue
		}
		ir := t.buckets.invoice(number)
		for _, code := range items.items[number].codes {
			ir.add(0, code)
		}
	}
}

type itemTaxEntry struct {
	itemCode string
	rate     float64
}

// parseItemWiseTaxDetail decodes {"item": [rate, amount], ...} keeping key order.
// A bare number is read as the rate.
func parseItemWiseTaxDetail(raw string) ([]itemTaxEntry, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("gstr1: item wise tax detail must be an object")
	}
	var out []itemTaxEntry
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := keyTok.(string)
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, err
		}
		rate, err := leadingRate(value)
		if err != nil {
			return nil, err
		}
		out = append(out, itemTaxEntry{itemCode: key, rate: rate})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return out, nil
}

func leadingRate(value json.RawMessage) (float64, error) {
	var list []json.RawMessage
	if err := json.Unmarshal(value, &list); err == nil {
		if len(list) == 0 {
			return 0, nil
		}
		value = list[0]
	}
	var rate *float64
	if err := json.Unmarshal(value, &rate); err != nil {
		return 0, fmt.Errorf("gstr1: tax rate must be numeric: %w", err)
	}
	if rate == nil {
		return 0, nil
	}
	return *rate, nil
}
