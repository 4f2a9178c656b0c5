package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-tax/cmd/odyssey/cli"
	"github.com/odyssey-erp/odyssey-tax/internal/app"
	"github.com/odyssey-erp/odyssey-tax/internal/platform/db"
	"github.com/odyssey-erp/odyssey-tax/internal/regional/india/gst"
	"github.com/odyssey-erp/odyssey-tax/internal/regional/india/gstr1"
)

const usage = `usage:
  odyssey                                   start the HTTP server
  odyssey gstr1 export -company C -to DATE [-from DATE] [-type T] [-address A] [-name N] [-json]
  odyssey gst seed -file gst.hcl [-dry-run]
  odyssey jobs trigger gstr1:export -company C
  odyssey jobs inspect
`

func runCommand(ctx context.Context, cfg *app.Config, logger *slog.Logger, args []string) int {
	if len(args) < 2 {
		_, _ = fmt.Fprint(os.Stderr, usage)
		return 1
	}
	switch args[0] + " " + args[1] {
	case "gstr1 export":
		return gstr1Export(ctx, cfg, logger, args[2:])
	case "gst seed":
		return gstSeed(ctx, cfg, args[2:])
	case "jobs trigger", "jobs inspect":
		return jobsCommand(ctx, cfg, args[1], args[2:])
	default:
		_, _ = fmt.Fprint(os.Stderr, usage)
		return 1
	}
}

func gstr1Export(ctx context.Context, cfg *app.Config, logger *slog.Logger, args []string) int {
	fs := flag.NewFlagSet("gstr1 export", flag.ContinueOnError)
	opts := cli.GSTR1ExportOptions{}
	fs.StringVar(&opts.Company, "company", "", "company name")
	fs.StringVar(&opts.CompanyAddress, "address", "", "company address")
	fs.StringVar(&opts.From, "from", "", "from date (YYYY-MM-DD)")
	fs.StringVar(&opts.To, "to", "", "to date (YYYY-MM-DD)")
	fs.StringVar(&opts.Type, "type", string(gstr1.B2B), "type of business")
	fs.StringVar(&opts.ReportName, "name", "", "report name")
	fs.BoolVar(&opts.JSONOutput, "json", false, "print a JSON summary")
	exportDir := fs.String("out", cfg.GSTR1ExportDir, "export directory")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	pool, err := db.New(ctx, cfg.PGDSN, db.PoolOptions{MaxConns: 2})
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "gstr1 export: %v\n", err)
		return 1
	}
	defer pool.Close()

	gstRepo := gst.NewRepository(pool)
	repo := gstr1.NewRepository(pool)
	service := gstr1.NewService(gstr1.NewReport(repo, gstRepo, logger), gstRepo, gstr1.ServiceOptions{
		Recorder:  repo,
		ExportDir: *exportDir,
		Logger:    logger,
	})
	command, err := cli.NewGSTR1CLI(service)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "gstr1 export: %v\n", err)
		return 1
	}
	return command.ExportCommand(ctx, opts)
}

func gstSeed(ctx context.Context, cfg *app.Config, args []string) int {
	fs := flag.NewFlagSet("gst seed", flag.ContinueOnError)
	opts := cli.GSTSeedOptions{}
	fs.StringVar(&opts.File, "file", cfg.GSTSettingsFile, "HCL settings file")
	fs.BoolVar(&opts.DryRun, "dry-run", false, "validate without writing")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if opts.DryRun {
		return cli.GSTSeedCommand(ctx, nil, opts)
	}
	pool, err := db.New(ctx, cfg.PGDSN, db.PoolOptions{MaxConns: 2})
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "gst seed: %v\n", err)
		return 1
	}
	defer pool.Close()
	return cli.GSTSeedCommand(ctx, gst.NewRepository(pool), opts)
}

func jobsCommand(ctx context.Context, cfg *app.Config, action string, args []string) int {
	jobsCLI, err := cli.NewJobsCLI(asynq.RedisClientOpt{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "jobs: %v\n", err)
		return 1
	}
	defer func() { _ = jobsCLI.Close() }()

	if action == "inspect" {
		stats, err := jobsCLI.InspectQueue(ctx)
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "jobs inspect: %v\n", err)
			return 1
		}
		printStats(os.Stdout, stats)
		return 0
	}

	if len(args) == 0 {
		_, _ = fmt.Fprintln(os.Stderr, "jobs trigger: job name required")
		return 1
	}
	fs := flag.NewFlagSet("jobs trigger", flag.ContinueOnError)
	company := fs.String("company", "", "company to export")
	if err := fs.Parse(args[1:]); err != nil {
		return 1
	}
	info, err := jobsCLI.Trigger(ctx, args[0], *company)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "jobs trigger: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintf(os.Stdout, "enqueued %s as %s\n", info.Type, info.ID)
	return 0
}

func printStats(w io.Writer, stats cli.QueueStats) {
	_, _ = fmt.Fprintf(w, "queue=%s pending=%d active=%d scheduled=%d retry=%d\n",
		stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry)
}
