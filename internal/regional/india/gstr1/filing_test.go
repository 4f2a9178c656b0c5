package gstr1

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-tax/internal/shared"
)

func filingFilters(t TypeOfBusiness) Filters {
	return Filters{Company: "Acme India", FromDate: MustDate("2024-04-01"), ToDate: MustDate("2024-04-30"), TypeOfBusiness: t}
}

func TestBuildFilingJSONB2B(t *testing.T) {
	rows := []Row{
		{CustomerGSTIN: "29AABCB5678B1Z2", InvoiceNumber: "SINV-1", PostingDate: MustDate("2024-04-10"), InvoiceValue: 1180,
			PlaceOfSupply: "29-Karnataka", ReverseCharge: "N", GSTCategory: categoryRegistered, Rate: 18, TaxableValue: 1000},
		{CustomerGSTIN: "27AABCC9999C1Z1", InvoiceNumber: "SINV-2", PostingDate: MustDate("2024-04-11"), InvoiceValue: 826,
			PlaceOfSupply: "27-Maharashtra", ReverseCharge: "N", GSTCategory: categoryDeemedExport, Rate: 18, TaxableValue: 500},
		{CustomerGSTIN: "27AABCC9999C1Z1", InvoiceNumber: "SINV-2", PostingDate: MustDate("2024-04-11"), InvoiceValue: 826,
			PlaceOfSupply: "27-Maharashtra", ReverseCharge: "N", GSTCategory: categoryDeemedExport, Rate: 5, TaxableValue: 200},
		{InvoiceNumber: "SINV-9", PlaceOfSupply: "29-Karnataka", Rate: 18, TaxableValue: 10},
		{IsTotalRow: true, TaxableValue: 1710},
	}
	doc, err := BuildFilingJSON(filingFilters(B2B), "GSTR-1", companyGSTIN, rows)
	require.NoError(t, err)

	assert.Equal(t, "GSTR-1", doc.ReportName)
	assert.Equal(t, B2B, doc.ReportType)
	assert.Equal(t, "GST3.0.4", doc.Data.Version)
	assert.Equal(t, "hash", doc.Data.Hash)
	assert.Equal(t, "042024", doc.Data.FP)

	require.Len(t, doc.Data.B2B, 2)
	inter := doc.Data.B2B[0]
	assert.Equal(t, "29AABCB5678B1Z2", inter.CTIN)
	require.Len(t, inter.Invoices, 1)
	inv := inter.Invoices[0]
	assert.Equal(t, "10-04-2024", inv.Date)
	assert.Equal(t, "29", inv.PlaceOfSupply)
	assert.Equal(t, "R", inv.InvoiceType)
	require.Len(t, inv.Items, 1)
	assert.Equal(t, 1801, inv.Items[0].Num)
	require.NotNil(t, inv.Items[0].Detail.IGST)
	assert.Equal(t, 180.0, *inv.Items[0].Detail.IGST)
	assert.Nil(t, inv.Items[0].Detail.CGST)

	intra := doc.Data.B2B[1].Invoices[0]
	assert.Equal(t, "DE", intra.InvoiceType)
	require.Len(t, intra.Items, 2)
	assert.Equal(t, 45.0, *intra.Items[0].Detail.CGST)
	assert.Equal(t, 45.0, *intra.Items[0].Detail.SGST)
	assert.Equal(t, 501, intra.Items[1].Num)
	assert.Equal(t, 5.0, *intra.Items[1].Detail.SGST)

	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"b2b":[`)
	assert.NotContains(t, string(raw), `"b2cl"`)
	assert.NotContains(t, string(raw), `"iamt"`+":null")
}

func TestBuildFilingJSONEmptySection(t *testing.T) {
	doc, err := BuildFilingJSON(filingFilters(B2B), "GSTR-1", companyGSTIN, nil)
	require.NoError(t, err)
	raw, err := json.Marshal(doc.Data)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"b2b":[]`)
}

func TestBuildFilingJSONRequiresPlaceOfSupply(t *testing.T) {
	rows := []Row{{CustomerGSTIN: "29AABCB5678B1Z2", InvoiceNumber: "SINV-1", Rate: 18, TaxableValue: 100}}
	_, err := BuildFilingJSON(filingFilters(B2B), "GSTR-1", companyGSTIN, rows)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPlaceOfSupplyMissing)
	assert.ErrorIs(t, err, shared.ErrUnprocessable)
	assert.Contains(t, err.Error(), "SINV-1")
}

func TestBuildFilingJSONSkipsStateZero(t *testing.T) {
	rows := []Row{{CustomerGSTIN: "29AABCB5678B1Z2", InvoiceNumber: "SINV-1", PlaceOfSupply: "00-Unknown", Rate: 18, TaxableValue: 100}}
	doc, err := BuildFilingJSON(filingFilters(B2B), "GSTR-1", companyGSTIN, rows)
	require.NoError(t, err)
	assert.Empty(t, doc.Data.B2B)
}

func TestBuildFilingJSONB2CL(t *testing.T) {
	rows := []Row{
		{InvoiceNumber: "SINV-12", PostingDate: MustDate("2024-04-15"), InvoiceValue: 300000, PlaceOfSupply: "29-Karnataka",
			Rate: 18, TaxableValue: 254237.29, SaleFromBondedWH: true},
	}
	doc, err := BuildFilingJSON(filingFilters(B2CLarge), "GSTR-1", companyGSTIN, rows)
	require.NoError(t, err)
	require.Len(t, doc.Data.B2CL, 1)
	assert.Equal(t, "29", doc.Data.B2CL[0].PlaceOfSupply)
	inv := doc.Data.B2CL[0].Invoices[0]
	assert.Equal(t, "CBW", inv.InvoiceType)
	assert.Equal(t, 45762.71, *inv.Items[0].Detail.IGST)
}

func TestBuildFilingJSONB2CS(t *testing.T) {
	rows := []Row{
		{PlaceOfSupply: "27-Maharashtra", Rate: 18, TaxableValue: 600, CessAmount: 10, Type: "OE"},
		{PlaceOfSupply: "29-Karnataka", ECommerceGSTIN: "29AAACE1111E1Z9", Rate: 12, TaxableValue: 100, Type: "E"},
	}
	doc, err := BuildFilingJSON(filingFilters(B2CSmall), "GSTR-1", companyGSTIN, rows)
	require.NoError(t, err)
	require.Len(t, doc.Data.B2CS, 2)

	assert.Equal(t, B2CSEntry{SupplyType: "INTRA", PlaceOfSupply: "27", Type: "OE", TaxableValue: 600, Rate: 18,
		CGST: 54, SGST: 54, Cess: 10}, doc.Data.B2CS[0])
	assert.Equal(t, B2CSEntry{SupplyType: "INTER", PlaceOfSupply: "29", Type: "E", TaxableValue: 100, Rate: 12,
		IGST: 12, ETIN: "29AAACE1111E1Z9"}, doc.Data.B2CS[1])
}

func TestBuildFilingJSONExport(t *testing.T) {
	rows := []Row{
		{ExportType: "WOPAY", InvoiceNumber: "SINV-20", PostingDate: MustDate("2024-04-12"), InvoiceValue: 1000, TaxableValue: 1000},
		{ExportType: "WPAY", InvoiceNumber: "SINV-21", PostingDate: MustDate("2024-04-13"), InvoiceValue: 1180, Rate: 18, TaxableValue: 1000},
	}
	doc, err := BuildFilingJSON(filingFilters(Export), "GSTR-1", companyGSTIN, rows)
	require.NoError(t, err)
	require.Len(t, doc.Data.Exp, 2)
	assert.Equal(t, "WOPAY", doc.Data.Exp[0].ExportType)
	assert.Equal(t, ExpItem{TaxableValue: 1000}, doc.Data.Exp[0].Invoices[0].Items[0])
	assert.Equal(t, "13-04-2024", doc.Data.Exp[1].Invoices[0].Date)
}

func TestBuildFilingJSONCreditNotes(t *testing.T) {
	rows := []Row{
		{CustomerGSTIN: "29AABCB5678B1Z2", InvoiceNumber: "SINV-30", PostingDate: MustDate("2024-04-20"), InvoiceValue: -1180,
			PlaceOfSupply: "29-Karnataka", ReverseCharge: "N", GSTCategory: categorySEZ, ExportType: "WPAY",
			Rate: 18, TaxableValue: 1000, DocumentType: "C"},
	}
	doc, err := BuildFilingJSON(filingFilters(CDNRReg), "GSTR-1", companyGSTIN, rows)
	require.NoError(t, err)
	require.Len(t, doc.Data.CDNR, 1)
	note := doc.Data.CDNR[0].Notes[0]
	assert.Equal(t, "SEWP", note.InvoiceType)
	assert.Equal(t, 1180.0, note.Value)
	assert.Equal(t, "C", note.NoteType)
	assert.Equal(t, "20-04-2024", note.Date)

	rows[0].GSTCategory = categoryUnregistered
	_, err = BuildFilingJSON(filingFilters(CDNRReg), "GSTR-1", companyGSTIN, rows)
	assert.ErrorIs(t, err, ErrUnknownCategory)

	unreg, err := BuildFilingJSON(filingFilters(CDNRUnreg), "GSTR-1", companyGSTIN, rows)
	require.NoError(t, err)
	require.Len(t, unreg.Data.CDNUR, 1)
	assert.Equal(t, "B2CL", unreg.Data.CDNUR[0].Type)
	assert.Equal(t, "29", unreg.Data.CDNUR[0].PlaceOfSupply)
}

func TestBuildFilingJSONAdvances(t *testing.T) {
	rows := []Row{
		{PlaceOfSupply: "27-Maharashtra", Rate: 9, TaxableValue: 500},
		{PlaceOfSupply: "29-Karnataka", Rate: 18, TaxableValue: 1000, CessAmount: 10},
	}
	doc, err := BuildFilingJSON(filingFilters(Advances), "GSTR-1", companyGSTIN, rows)
	require.NoError(t, err)
	require.Len(t, doc.Data.AT, 2)

	intra := doc.Data.AT[0]
	assert.Equal(t, "INTRA", intra.SupplyType)
	assert.Equal(t, "27", intra.PlaceOfSupply)
	assert.Equal(t, 18.0, intra.Items[0].Rate)
	assert.Equal(t, 45.0, *intra.Items[0].SGST)
	assert.Equal(t, 45.0, *intra.Items[0].CGST)
	assert.Nil(t, intra.Items[0].IGST)

	inter := doc.Data.AT[1]
	assert.Equal(t, "INTER", inter.SupplyType)
	assert.Equal(t, 180.0, *inter.Items[0].IGST)
	assert.Equal(t, 10.0, inter.Items[0].Cess)

	_, err = BuildFilingJSON(filingFilters(Advances), "GSTR-1", companyGSTIN, []Row{{Rate: 18, TaxableValue: 1}})
	assert.ErrorIs(t, err, ErrPlaceOfSupplyMissing)
}

func TestDownload(t *testing.T) {
	assert.Equal(t, "gstr_1_b2c_large", Scrub("GSTR-1 B2C Large"))
	assert.Equal(t, "gstr_1_cdnr_reg.json", FileName("GSTR-1", "CDNR-REG"))

	file, err := NewDownload(DownloadRequest{ReportName: "GSTR-1", ReportType: "B2B", Data: json.RawMessage(`"{\"gstin\":\"27AAACA1234A1Z5\"}"`)})
	require.NoError(t, err)
	assert.Equal(t, "gstr_1_b2b.json", file.Name)
	assert.Equal(t, "application/json", file.ContentType)
	assert.Equal(t, `{"gstin":"27AAACA1234A1Z5"}`, string(file.Content))
	assert.Equal(t, `"`+Digest(file.Content)+`"`, file.ETag)
	assert.Len(t, Digest(file.Content), 64)

	object, err := NewDownload(DownloadRequest{ReportName: "GSTR-1", ReportType: "B2B", Data: json.RawMessage(`{"gstin":"27AAACA1234A1Z5"}`)})
	require.NoError(t, err)
	assert.Equal(t, file.ETag, object.ETag)

	_, err = NewDownload(DownloadRequest{ReportName: "GSTR-1", ReportType: "B2B", Data: json.RawMessage(`"not json"`)})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestWriteCSV(t *testing.T) {
	result := Result{
		Columns:  Columns(B2B).All(),
		Data:     []Row{{CustomerGSTIN: "29AABCB5678B1Z2", InvoiceNumber: "SINV-1", PostingDate: MustDate("2024-04-10"), InvoiceValue: 1180, Rate: 18, TaxableValue: 1000}},
		Warnings: []string{"Following accounts might be selected in GST Settings: GST Misc - AI"},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, filingFilters(B2B), result))

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\r\n"), "\r\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "# Report: GSTR-1 B2B", lines[0])
	assert.Equal(t, "# Company: Acme India | From: 2024-04-01 | To: 2024-04-30", lines[1])
	assert.Contains(t, lines[2], "GST Misc - AI")
	assert.True(t, strings.HasPrefix(lines[3], "GSTIN/UIN of Recipient,Receiver Name,Invoice Number"))
	assert.Equal(t, "29AABCB5678B1Z2,,SINV-1,10-Apr-24,1180.00,,,,,18,1000.00,0.00", lines[4])
}

func TestWriteCSVHidesHiddenColumns(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, filingFilters(CDNRReg), Result{Columns: Columns(CDNRReg).All()}))
	assert.NotContains(t, buf.String(), "Export Type")
	assert.Contains(t, buf.String(), "# Warnings: none")
}

func TestCSVStreamerFlushInterval(t *testing.T) {
	var buf bytes.Buffer
	streamer := newCSVStreamer(&buf)
	for i := 0; i < csvFlushEvery; i++ {
		require.NoError(t, streamer.writeRow([]string{"row"}))
	}
	assert.Equal(t, 0, streamer.pendingLines)
	require.NoError(t, streamer.writeRow([]string{"next"}))
	assert.Equal(t, 1, streamer.pendingLines)
	require.NoError(t, streamer.Flush())
}
