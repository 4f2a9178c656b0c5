package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-tax/internal/regional/india/gst"
	"github.com/odyssey-erp/odyssey-tax/internal/regional/india/gstr1"
	"github.com/odyssey-erp/odyssey-tax/internal/shared"
)

type stubExporter struct {
	got gstr1.ExportRequest
	err error
}

func (s *stubExporter) Export(_ context.Context, req gstr1.ExportRequest) (gstr1.ExportRun, error) {
	s.got = req
	if s.err != nil {
		return gstr1.ExportRun{}, s.err
	}
	return gstr1.ExportRun{ID: uuid.New(), Path: "/exports/gstr_1.json", Digest: "d1g35t", Rows: 4}, nil
}

type stubSeeder struct {
	files []gst.SettingsFile
}

func (s *stubSeeder) Seed(_ context.Context, file gst.SettingsFile) error {
	s.files = append(s.files, file)
	return nil
}

func (s *stubSeeder) CompanyGSTINs(_ context.Context, company string) ([]string, error) {
	var out []string
	for _, file := range s.files {
		for _, addr := range file.Addresses {
			if addr.Company == company {
				out = append(out, addr.GSTIN)
			}
		}
	}
	if len(out) == 0 {
		return nil, gst.ErrCompanyGSTINMissing
	}
	return out, nil
}

func TestExportCommandJSON(t *testing.T) {
	exporter := &stubExporter{}
	cli, err := NewGSTR1CLI(exporter)
	require.NoError(t, err)

	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)
	code := cli.ExportCommand(context.Background(), GSTR1ExportOptions{
		Company:    "Acme India",
		From:       "2024-04-01",
		To:         "2024-04-30",
		Type:       "B2C Large",
		JSONOutput: true,
		Stdout:     stdout,
		Stderr:     stderr,
	})
	require.Equal(t, 0, code, stderr.String())
	assert.Equal(t, gstr1.B2CLarge, exporter.got.TypeOfBusiness)
	assert.Equal(t, gstr1.MustDate("2024-04-01"), exporter.got.FromDate)

	var summary map[string]any
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &summary))
	assert.Equal(t, "/exports/gstr_1.json", summary["path"])
	assert.EqualValues(t, 4, summary["rows"])
}

func TestExportCommandBadDate(t *testing.T) {
	cli, err := NewGSTR1CLI(&stubExporter{})
	require.NoError(t, err)

	stderr := new(bytes.Buffer)
	code := cli.ExportCommand(context.Background(), GSTR1ExportOptions{Company: "Acme India", To: "30/04/2024", Stderr: stderr})
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "--to")
}

func TestExportCommandExitCodes(t *testing.T) {
	validation := shared.NewValidationError(errors.New("invalid gstr-1 filters"), map[string]string{"to_date": "required", "company": "required"})
	cli, err := NewGSTR1CLI(&stubExporter{err: validation})
	require.NoError(t, err)
	stderr := new(bytes.Buffer)
	assert.Equal(t, 1, cli.ExportCommand(context.Background(), GSTR1ExportOptions{Stdout: new(bytes.Buffer), Stderr: stderr}))
	assert.Contains(t, stderr.String(), "  company: required\n  to_date: required")

	cli, err = NewGSTR1CLI(&stubExporter{err: fmt.Errorf("gstr1: %w", shared.ErrUnprocessable)})
	require.NoError(t, err)
	assert.Equal(t, 2, cli.ExportCommand(context.Background(), GSTR1ExportOptions{
		Company: "Acme India", To: "2024-04-30", Stdout: new(bytes.Buffer), Stderr: new(bytes.Buffer),
	}))
}

const seedFile = `b2c_limit = 250000

account "Acme India" {
  cgst_account = "Output Tax CGST - AI"
  sgst_account = "Output Tax SGST - AI"
  igst_account = "Output Tax IGST - AI"
}

address "Acme Mumbai-Billing" {
  company = "Acme India"
  gstin   = "27AAACA1234A1Z5"
  primary = true
}
`

func TestGSTSeedCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gst.hcl")
	require.NoError(t, os.WriteFile(path, []byte(seedFile), 0o600))

	seeder := &stubSeeder{}
	stdout := new(bytes.Buffer)
	code := GSTSeedCommand(context.Background(), seeder, GSTSeedOptions{File: path, Stdout: stdout, Stderr: new(bytes.Buffer)})
	require.Equal(t, 0, code)
	require.Len(t, seeder.files, 1)
	assert.Equal(t, 250000.0, seeder.files[0].B2CLimit)
	assert.Contains(t, stdout.String(), "seeded")
	assert.Contains(t, stdout.String(), "accounts=1 addresses=1")
	assert.Contains(t, stdout.String(), "  Acme India: 27AAACA1234A1Z5\n")
}

func TestGSTSeedCommandDryRunSkipsGSTINs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gst.hcl")
	require.NoError(t, os.WriteFile(path, []byte(seedFile), 0o600))

	stdout := new(bytes.Buffer)
	code := GSTSeedCommand(context.Background(), &stubSeeder{}, GSTSeedOptions{File: path, DryRun: true, Stdout: stdout, Stderr: new(bytes.Buffer)})
	require.Equal(t, 0, code)
	assert.NotContains(t, stdout.String(), "27AAACA1234A1Z5")
}

func TestGSTSeedCommandDryRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gst.hcl")
	require.NoError(t, os.WriteFile(path, []byte(seedFile), 0o600))

	stdout := new(bytes.Buffer)
	code := GSTSeedCommand(context.Background(), nil, GSTSeedOptions{File: path, DryRun: true, Stdout: stdout, Stderr: new(bytes.Buffer)})
	require.Equal(t, 0, code)
	assert.Contains(t, stdout.String(), "validated")
}

func TestGSTSeedCommandErrors(t *testing.T) {
	stderr := new(bytes.Buffer)
	assert.Equal(t, 1, GSTSeedCommand(context.Background(), &stubSeeder{}, GSTSeedOptions{Stderr: stderr}))
	assert.Contains(t, stderr.String(), "--file")

	path := filepath.Join(t.TempDir(), "bad.hcl")
	require.NoError(t, os.WriteFile(path, []byte(`address "x" {
  company = "Acme India"
  gstin   = "27AAA"
}`), 0o600))
	stderr.Reset()
	assert.Equal(t, 1, GSTSeedCommand(context.Background(), &stubSeeder{}, GSTSeedOptions{File: path, Stderr: stderr}))
	assert.Contains(t, stderr.String(), "15 characters")
}
