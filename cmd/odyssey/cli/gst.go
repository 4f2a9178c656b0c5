package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/odyssey-erp/odyssey-tax/internal/regional/india/gst"
)

// Seeder persists a parsed settings file and reads back company GSTINs.
type Seeder interface {
	Seed(ctx context.Context, file gst.SettingsFile) error
	CompanyGSTINs(ctx context.Context, company string) ([]string, error)
}

// GSTSeedOptions defines flags for the gst seed command.
type GSTSeedOptions struct {
	File   string
	DryRun bool
	Stdout io.Writer
	Stderr io.Writer
}

// GSTSeedCommand loads an HCL settings file and upserts it, then lists the
// stored GSTINs of every company with an address block. A dry run only
// validates the file.
func GSTSeedCommand(ctx context.Context, seeder Seeder, opts GSTSeedOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.File == "" {
		_, _ = fmt.Fprintln(opts.Stderr, "gst seed: --file is required")
		return 1
	}
	file, err := gst.LoadSettingsFile(opts.File)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "gst seed: %v\n", err)
		return 1
	}
	if !opts.DryRun {
		if seeder == nil {
			_, _ = fmt.Fprintln(opts.Stderr, "gst seed:", errors.New("database not configured"))
			return 1
		}
		if err := seeder.Seed(ctx, file); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "gst seed: %v\n", err)
			return 1
		}
	}
	verb := "seeded"
	if opts.DryRun {
		verb = "validated"
	}
	_, _ = fmt.Fprintf(opts.Stdout, "%s %s: b2c_limit=%.2f accounts=%d addresses=%d\n",
		verb, opts.File, file.B2CLimit, len(file.Accounts), len(file.Addresses))
	if opts.DryRun {
		return 0
	}
	for _, company := range addressCompanies(file) {
		gstins, err := seeder.CompanyGSTINs(ctx, company)
		if err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "gst seed: %v\n", err)
			return 1
		}
		_, _ = fmt.Fprintf(opts.Stdout, "  %s: %s\n", company, strings.Join(gstins, ", "))
	}
	return 0
}

func addressCompanies(file gst.SettingsFile) []string {
	var companies []string
	for _, addr := range file.Addresses {
		if !slices.Contains(companies, addr.Company) {
			companies = append(companies, addr.Company)
		}
	}
	return companies
}
