package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-tax/internal/regional/india/gstr1"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskGSTR1Export writes a GSTR-1 filing JSON to the export directory.
	TaskGSTR1Export = "gstr1:export"
)

// GSTR1ExportPayload describes one export. When PreviousMonth is set the
// dates are resolved at run time to the calendar month before the run.
type GSTR1ExportPayload struct {
	gstr1.ExportRequest
	PreviousMonth bool `json:"previous_month,omitempty"`
}

// NewGSTR1ExportTask constructs an Asynq task.
func NewGSTR1ExportTask(payload GSTR1ExportPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("jobs: encode gstr1 export payload: %w", err)
	}
	return asynq.NewTask(TaskGSTR1Export, data), nil
}

// MonthlyExportCron registers one previous-month B2B export per company.
func MonthlyExportCron(spec string, companies []string) ([]CronRegistration, error) {
	if spec == "" {
		return nil, nil
	}
	out := make([]CronRegistration, 0, len(companies))
	for _, company := range companies {
		if company == "" {
			continue
		}
		task, err := NewGSTR1ExportTask(GSTR1ExportPayload{
			ExportRequest: gstr1.ExportRequest{Filters: gstr1.Filters{Company: company, TypeOfBusiness: gstr1.B2B}},
			PreviousMonth: true,
		})
		if err != nil {
			return nil, err
		}
		out = append(out, CronRegistration{
			Spec:    spec,
			Task:    task,
			Options: []asynq.Option{asynq.MaxRetry(3), asynq.Unique(time.Hour)},
		})
	}
	return out, nil
}

// previousMonth returns the first and last day of the month before now.
func previousMonth(now time.Time) (gstr1.Date, gstr1.Date) {
	firstOfThis := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	from := firstOfThis.AddDate(0, -1, 0)
	to := firstOfThis.AddDate(0, 0, -1)
	return gstr1.NewDate(from), gstr1.NewDate(to)
}
