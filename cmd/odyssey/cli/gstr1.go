package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"

	"github.com/odyssey-erp/odyssey-tax/internal/regional/india/gstr1"
	"github.com/odyssey-erp/odyssey-tax/internal/shared"
)

// Exporter writes a filing document for one report run.
type Exporter interface {
	Export(ctx context.Context, req gstr1.ExportRequest) (gstr1.ExportRun, error)
}

// GSTR1CLI runs report exports outside the HTTP server.
type GSTR1CLI struct {
	exporter Exporter
}

// NewGSTR1CLI constructs the export helper.
func NewGSTR1CLI(exporter Exporter) (*GSTR1CLI, error) {
	if exporter == nil {
		return nil, errors.New("gstr1 cli: exporter required")
	}
	return &GSTR1CLI{exporter: exporter}, nil
}

// GSTR1ExportOptions defines available flags for the gstr1 export command.
type GSTR1ExportOptions struct {
	Company        string
	CompanyAddress string
	From           string
	To             string
	Type           string
	ReportName     string
	JSONOutput     bool
	Stdout         io.Writer
	Stderr         io.Writer
}

type exportSummary struct {
	ID     string `json:"id"`
	Path   string `json:"path"`
	Digest string `json:"digest"`
	Rows   int    `json:"rows"`
}

// ExportCommand writes the filing JSON and prints where it went. It exits 1 on
// bad input and 2 when the report data cannot be turned into a filing.
func (c *GSTR1CLI) ExportCommand(ctx context.Context, opts GSTR1ExportOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	from, err := gstr1.ParseDate(opts.From)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "gstr1 export: invalid --from %q\n", opts.From)
		return 1
	}
	to, err := gstr1.ParseDate(opts.To)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "gstr1 export: invalid --to %q\n", opts.To)
		return 1
	}
	req := gstr1.ExportRequest{
		Filters: gstr1.Filters{
			Company:        opts.Company,
			CompanyAddress: opts.CompanyAddress,
			FromDate:       from,
			ToDate:         to,
			TypeOfBusiness: gstr1.TypeOfBusiness(opts.Type),
		},
		ReportName: opts.ReportName,
	}
	run, err := c.exporter.Export(ctx, req)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "gstr1 export: %v\n", err)
		var verr *shared.ValidationError
		if errors.As(err, &verr) {
			for _, field := range slices.Sorted(maps.Keys(verr.Details)) {
				_, _ = fmt.Fprintf(opts.Stderr, "  %s: %s\n", field, verr.Details[field])
			}
		}
		if errors.Is(err, shared.ErrUnprocessable) {
			return 2
		}
		return 1
	}
	summary := exportSummary{ID: run.ID.String(), Path: run.Path, Digest: run.Digest, Rows: run.Rows}
	if opts.JSONOutput {
		if err := json.NewEncoder(opts.Stdout).Encode(summary); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "gstr1 export: encode json: %v\n", err)
			return 1
		}
		return 0
	}
	_, _ = fmt.Fprintf(opts.Stdout, "wrote %s (%d rows)\nblake2b %s\n", summary.Path, summary.Rows, summary.Digest)
	return 0
}
