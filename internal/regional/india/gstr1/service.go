package gstr1

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/odyssey-tax/internal/observability"
	"github.com/odyssey-erp/odyssey-tax/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-tax/internal/shared"
)

const reportLabel = "gstr1"

// FilingRequest asks for the filing JSON of a section. Filters and Data may
// be JSON objects or strings holding JSON. Without Data the report is run.
type FilingRequest struct {
	Filters    json.RawMessage `json:"filters"`
	ReportName string          `json:"report_name"`
	Data       json.RawMessage `json:"data,omitempty"`
}

// ExportRequest is the payload of an asynchronous filing export.
type ExportRequest struct {
	Filters
	ReportName string `json:"report_name,omitempty"`
}

// ExportRun describes a filing JSON written to disk.
type ExportRun struct {
	ID         uuid.UUID `json:"id"`
	Filters    Filters   `json:"filters"`
	ReportName string    `json:"report_name"`
	Path       string    `json:"path"`
	Digest     string    `json:"digest"`
	Rows       int       `json:"rows"`
	CreatedAt  time.Time `json:"created_at"`
}

// ExportRecorder persists export runs.
type ExportRecorder interface {
	RecordExport(ctx context.Context, run ExportRun) error
}

// ServiceOptions configures optional collaborators of Service.
type ServiceOptions struct {
	Cache     *cache.Versioned
	Metrics   *observability.ReportMetrics
	Recorder  ExportRecorder
	ExportDir string
	Logger    *slog.Logger
}

// Service coordinates cached report runs, filing JSON and exports.
type Service struct {
	report    *Report
	gst       GSTLookup
	cache     *cache.Versioned
	metrics   *observability.ReportMetrics
	recorder  ExportRecorder
	exportDir string
	logger    *slog.Logger
	builds    singleflight.Group
	now       func() time.Time
}

// NewService constructs the service.
func NewService(report *Report, lookup GSTLookup, opts ServiceOptions) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		report:    report,
		gst:       lookup,
		cache:     opts.Cache,
		metrics:   opts.Metrics,
		recorder:  opts.Recorder,
		exportDir: opts.ExportDir,
		logger:    logger,
		now:       time.Now,
	}
}

// Run returns the report for f, served from cache when warm. Concurrent
// identical runs share one build.
func (s *Service) Run(ctx context.Context, f Filters) (Result, error) {
	if err := f.Validate(); err != nil {
		return Result{}, err
	}
	typ := string(f.TypeOfBusiness)
	key, err := s.cache.BuildKey(ctx, f.CacheKeyParts()...)
	if err != nil {
		s.logger.Warn("gstr1 cache key", slog.Any("error", err))
		return s.build(ctx, f)
	}
	ch := s.builds.DoChan(key, func() (any, error) {
		var result Result
		hit, err := s.cache.FetchJSON(ctx, key, &result, func(ctx context.Context) (any, error) {
			return s.build(ctx, f)
		})
		if err != nil {
			return nil, err
		}
		if hit {
			s.metrics.Hit(reportLabel, typ)
		}
		return result, nil
	})
	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Result{}, res.Err
		}
		return res.Val.(Result), nil
	}
}

func (s *Service) build(ctx context.Context, f Filters) (Result, error) {
	typ := string(f.TypeOfBusiness)
	s.metrics.Miss(reportLabel, typ)
	start := time.Now()
	defer func() { s.metrics.ObserveBuild(reportLabel, typ, time.Since(start)) }()
	return s.report.Run(ctx, f)
}

// FilingJSON builds the filing document for req.
func (s *Service) FilingJSON(ctx context.Context, req FilingRequest) (FilingDocument, error) {
	var f Filters
	if err := decodeLoose(req.Filters, &f); err != nil {
		return FilingDocument{}, shared.NewValidationError(err, map[string]string{"filters": "invalid json"})
	}
	if err := f.Validate(); err != nil {
		return FilingDocument{}, err
	}
	var rows []Row
	if len(bytes.TrimSpace(req.Data)) > 0 {
		if err := decodeLoose(req.Data, &rows); err != nil {
			return FilingDocument{}, shared.NewValidationError(err, map[string]string{"data": "invalid json"})
		}
	}
	return s.filing(ctx, f, req.ReportName, rows)
}

func (s *Service) filing(ctx context.Context, f Filters, reportName string, rows []Row) (FilingDocument, error) {
	gstin, err := s.gst.CompanyGSTIN(ctx, f.Company, f.CompanyAddress)
	if err != nil {
		return FilingDocument{}, fmt.Errorf("gstr1: company gstin: %w", err)
	}
	if rows == nil {
		result, err := s.Run(ctx, f)
		if err != nil {
			return FilingDocument{}, err
		}
		rows = result.Data
	}
	return BuildFilingJSON(f, reportName, gstin, rows)
}

// Export runs the report for req, writes its filing JSON under the export
// directory and records the run.
func (s *Service) Export(ctx context.Context, req ExportRequest) (ExportRun, error) {
	f := req.Filters
	if err := f.Validate(); err != nil {
		return ExportRun{}, err
	}
	if s.exportDir == "" {
		return ExportRun{}, errors.New("gstr1: export directory not configured")
	}
	reportName := req.ReportName
	if reportName == "" {
		reportName = DefaultReportName(f)
	}
	result, err := s.Run(ctx, f)
	if err != nil {
		return ExportRun{}, err
	}
	doc, err := s.filing(ctx, f, reportName, result.Data)
	if err != nil {
		return ExportRun{}, err
	}
	content, err := json.Marshal(doc.Data)
	if err != nil {
		return ExportRun{}, fmt.Errorf("gstr1: encode filing: %w", err)
	}
	path := filepath.Join(s.exportDir, FileName(reportName, string(f.TypeOfBusiness)))
	if err := writeFileAtomic(path, content); err != nil {
		return ExportRun{}, err
	}
	run := ExportRun{
		ID:         uuid.New(),
		Filters:    f,
		ReportName: reportName,
		Path:       path,
		Digest:     Digest(content),
		Rows:       len(result.Data),
		CreatedAt:  s.now().UTC(),
	}
	if s.recorder != nil {
		if err := s.recorder.RecordExport(ctx, run); err != nil {
			return ExportRun{}, err
		}
	}
	s.logger.Info("gstr1 filing exported",
		slog.String("run_id", run.ID.String()),
		slog.String("company", f.Company),
		slog.String("type", string(f.TypeOfBusiness)),
		slog.String("path", path),
		slog.String("digest", run.Digest),
		slog.Int("rows", run.Rows))
	return run, nil
}

// DefaultReportName names an export after its company and return period.
func DefaultReportName(f Filters) string {
	return fmt.Sprintf("GSTR-1 %s %02d%d", f.Company, int(f.ToDate.Month()), f.ToDate.Year())
}

func writeFileAtomic(path string, content []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("gstr1: create export dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".gstr1-*")
	if err != nil {
		return fmt.Errorf("gstr1: create export file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("gstr1: write export file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("gstr1: close export file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("gstr1: move export file: %w", err)
	}
	return nil
}

// decodeLoose decodes raw into dest, unwrapping a JSON string first.
func decodeLoose(raw json.RawMessage, dest any) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return err
		}
		raw = []byte(inner)
	}
	return json.Unmarshal(raw, dest)
}
