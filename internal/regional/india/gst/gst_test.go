package gst

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleSettings = `
b2c_limit = 250000

account "Acme India" {
  cgst_account = "Output Tax CGST - AI"
  sgst_account = "Output Tax SGST - AI"
  igst_account = "Output Tax IGST - AI"
  cess_account = "Cess - AI"
}

account "Acme India" {
  igst_account   = "Reverse IGST - AI"
  reverse_charge = true
}

address "Acme Mumbai-Billing" {
  company = "Acme India"
  gstin   = "27AAACA1234A1Z5"
  primary = true
}
`

func TestParseSettings(t *testing.T) {
	file, err := ParseSettings([]byte(sampleSettings), "gst.hcl")
	require.NoError(t, err)
	assert.Equal(t, 250000.0, file.B2CLimit)
	require.Len(t, file.Accounts, 2)
	assert.True(t, file.Accounts[1].ReverseCharge)
	require.Len(t, file.Addresses, 1)
	assert.Equal(t, "27AAACA1234A1Z5", file.Addresses[0].GSTIN)
	assert.Equal(t, []string{"Acme India"}, file.companies())

	all := CollectAccounts(file.AccountRows(), false)
	assert.Equal(t, []string{"Output Tax IGST - AI", "Reverse IGST - AI"}, all.IGST)

	nonRC := CollectAccounts(file.AccountRows(), true)
	assert.Equal(t, []string{"Output Tax IGST - AI"}, nonRC.IGST)
	assert.True(t, nonRC.HasCGST("Output Tax CGST - AI"))
	assert.True(t, nonRC.HasCess("Cess - AI"))
	assert.False(t, nonRC.HasSGST("Output Tax CGST - AI"))
}

func TestParseSettingsRejectsInvalid(t *testing.T) {
	_, err := ParseSettings([]byte(`address "x" {
  company = "Acme"
  gstin = "27ABC"
}`), "bad.hcl")
	require.ErrorContains(t, err, "gstin must be 15 characters")

	_, err = ParseSettings([]byte(`account "Acme" {}`), "bad.hcl")
	require.ErrorContains(t, err, "declares no account heads")

	_, err = ParseSettings([]byte(`b2c_limit = `), "broken.hcl")
	require.Error(t, err)
}

func TestLoadSettingsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gst.hcl")
	require.NoError(t, os.WriteFile(path, []byte(sampleSettings), 0o600))

	file, err := LoadSettingsFile(path)
	require.NoError(t, err)
	assert.Equal(t, 250000.0, file.B2CLimit)

	_, err = LoadSettingsFile(filepath.Join(t.TempDir(), "missing.hcl"))
	require.Error(t, err)
}

func TestStateCode(t *testing.T) {
	assert.Equal(t, "27", StateCode("27AAACA1234A1Z5"))
	assert.Equal(t, "29", StateCode("29-Karnataka"))
	assert.Equal(t, "7", StateCode("7-Delhi"))
	assert.Equal(t, "", StateCode(""))
}

func TestPlaceOfSupplyCode(t *testing.T) {
	code, err := PlaceOfSupplyCode("7-Delhi")
	require.NoError(t, err)
	assert.Equal(t, "07", code)

	code, err = PlaceOfSupplyCode("29-Karnataka")
	require.NoError(t, err)
	assert.Equal(t, "29", code)

	_, err = PlaceOfSupplyCode("Karnataka")
	require.ErrorIs(t, err, ErrInvalidPlaceOfSupply)
}
