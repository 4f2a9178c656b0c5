package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/odyssey-tax/internal/jobs"
	"github.com/odyssey-erp/odyssey-tax/internal/regional/india/gstr1"
	"github.com/odyssey-erp/odyssey-tax/internal/shared"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// Exporter writes filing documents.
type Exporter interface {
	Export(ctx context.Context, req gstr1.ExportRequest) (gstr1.ExportRun, error)
}

// GSTR1ExportJob handles TaskGSTR1Export tasks.
type GSTR1ExportJob struct {
	Exporter Exporter
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
	clock    func() time.Time
}

// NewGSTR1ExportJob wires dependencies for the export handler.
func NewGSTR1ExportJob(exporter Exporter, logger *slog.Logger, metrics *jobmetrics.Metrics) *GSTR1ExportJob {
	return &GSTR1ExportJob{
		Exporter: exporter,
		Logger:   logger,
		Metrics:  metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle runs the export. Malformed payloads and rejected filters are not retried.
func (j *GSTR1ExportJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Exporter == nil {
		return errors.New("gstr1 export: handler not configured")
	}
	var payload GSTR1ExportPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("gstr1 export: decode payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.PreviousMonth {
		payload.FromDate, payload.ToDate = previousMonth(j.now())
	}
	req := payload.ExportRequest
	if err := req.Filters.Validate(); err != nil {
		return fmt.Errorf("gstr1 export: %v: %w", err, asynq.SkipRetry)
	}

	tracker := j.metrics().Track(TaskGSTR1Export)
	defer func() {
		err = tracker.End(err)
	}()

	logger := j.logger().With(
		slog.String("company", req.Company),
		slog.String("type", string(req.TypeOfBusiness)),
		slog.String("to_date", req.ToDate.String()))
	logger.Info("starting gstr1 export")

	run, err := j.Exporter.Export(ctx, req)
	if err != nil {
		logger.Error("gstr1 export", slog.Any("error", err))
		if errors.Is(err, shared.ErrValidation) || errors.Is(err, shared.ErrUnprocessable) {
			return fmt.Errorf("gstr1 export: %v: %w", err, asynq.SkipRetry)
		}
		return err
	}
	j.metrics().AddExport(string(req.TypeOfBusiness), req.Company)
	logger.Info("completed gstr1 export",
		slog.String("run_id", run.ID.String()),
		slog.String("path", run.Path),
		slog.String("digest", run.Digest),
		slog.Int("rows", run.Rows))
	return nil
}

func (j *GSTR1ExportJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskGSTR1Export))
	}
	return slog.Default().With(slog.String("job", TaskGSTR1Export))
}

func (j *GSTR1ExportJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *GSTR1ExportJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
