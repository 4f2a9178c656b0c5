package gst

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// SettingsFile is the decoded form of a GST settings seed file:
//
//	b2c_limit = 250000
//
//	account "Acme India" {
//	  cgst_account   = "Output Tax CGST - AI"
//	  sgst_account   = "Output Tax SGST - AI"
//	  igst_account   = "Output Tax IGST - AI"
//	  cess_account   = "Cess - AI"
//	  reverse_charge = false
//	}
//
//	address "Acme Mumbai-Billing" {
//	  company = "Acme India"
//	  gstin   = "27AAACA1234A1Z5"
//	  primary = true
//	}
type SettingsFile struct {
	B2CLimit  float64        `hcl:"b2c_limit,optional"`
	Accounts  []AccountBlock `hcl:"account,block"`
	Addresses []AddressBlock `hcl:"address,block"`
}

// AccountBlock configures one accounts row for a company.
type AccountBlock struct {
	Company       string `hcl:"company,label"`
	CGST          string `hcl:"cgst_account,optional"`
	SGST          string `hcl:"sgst_account,optional"`
	IGST          string `hcl:"igst_account,optional"`
	Cess          string `hcl:"cess_account,optional"`
	ReverseCharge bool   `hcl:"reverse_charge,optional"`
}

// AddressBlock registers a company address carrying a GSTIN.
type AddressBlock struct {
	Name    string `hcl:"name,label"`
	Company string `hcl:"company"`
	GSTIN   string `hcl:"gstin"`
	Primary bool   `hcl:"primary,optional"`
}

// LoadSettingsFile parses and validates an HCL settings file from disk.
func LoadSettingsFile(path string) (SettingsFile, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return SettingsFile{}, fmt.Errorf("gst: read settings file: %w", err)
	}
	return ParseSettings(src, path)
}

// ParseSettings decodes HCL source into a SettingsFile.
func ParseSettings(src []byte, filename string) (SettingsFile, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return SettingsFile{}, fmt.Errorf("gst: parse %s: %w", filename, diags)
	}
	var out SettingsFile
	if diags := gohcl.DecodeBody(file.Body, nil, &out); diags.HasErrors() {
		return SettingsFile{}, fmt.Errorf("gst: decode %s: %w", filename, diags)
	}
	if err := out.validate(); err != nil {
		return SettingsFile{}, fmt.Errorf("gst: %s: %w", filename, err)
	}
	return out, nil
}

func (f SettingsFile) validate() error {
	var errs []error
	if f.B2CLimit < 0 {
		errs = append(errs, errors.New("b2c_limit must not be negative"))
	}
	for _, acc := range f.Accounts {
		if acc.CGST == "" && acc.SGST == "" && acc.IGST == "" && acc.Cess == "" {
			errs = append(errs, fmt.Errorf("account %q declares no account heads", acc.Company))
		}
	}
	for _, addr := range f.Addresses {
		if len(addr.GSTIN) != 15 {
			errs = append(errs, fmt.Errorf("address %q: gstin must be 15 characters", addr.Name))
		}
	}
	return errors.Join(errs...)
}

func (f SettingsFile) companies() []string {
	var out []string
	for _, acc := range f.Accounts {
		if !slices.Contains(out, acc.Company) {
			out = append(out, acc.Company)
		}
	}
	return out
}

// AccountRows converts the file into settings rows.
func (f SettingsFile) AccountRows() []AccountRow {
	rows := make([]AccountRow, 0, len(f.Accounts))
	for _, acc := range f.Accounts {
		rows = append(rows, AccountRow{
			Company:       acc.Company,
			CGSTAccount:   acc.CGST,
			SGSTAccount:   acc.SGST,
			IGSTAccount:   acc.IGST,
			CessAccount:   acc.Cess,
			ReverseCharge: acc.ReverseCharge,
		})
	}
	return rows
}
