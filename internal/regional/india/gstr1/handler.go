package gstr1

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/odyssey-tax/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-tax/internal/shared"
)

// IdempotencyHeader carries the client key deduplicating export requests.
const IdempotencyHeader = "Idempotency-Key"

const idempotencyModule = "gstr1.export"

// ExportEnqueuer schedules asynchronous exports and returns the task id.
type ExportEnqueuer interface {
	EnqueueExport(ctx context.Context, req ExportRequest) (string, error)
}

// IdempotencyGuard deduplicates requests by client key.
type IdempotencyGuard interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// Handler exposes the report over HTTP.
type Handler struct {
	logger      *slog.Logger
	service     *Service
	enqueuer    ExportEnqueuer
	idempotency IdempotencyGuard
	validator   *validator.Validate
}

// NewHandler builds Handler instance. enqueuer and idempotency may be nil.
func NewHandler(logger *slog.Logger, service *Service, enqueuer ExportEnqueuer, idempotency IdempotencyGuard) *Handler {
	return &Handler{
		logger:      logger,
		service:     service,
		enqueuer:    enqueuer,
		idempotency: idempotency,
		validator:   httpx.NewValidator(),
	}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.report)
	r.Post("/json", h.filingJSON)
	r.Post("/download", h.download)
	r.Post("/exports", h.export)
}

func (h *Handler) report(w http.ResponseWriter, r *http.Request) {
	filters, err := FiltersFromQuery(r.URL.Query())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	result, err := h.service.Run(r.Context(), filters)
	if err != nil {
		h.logger.Warn("gstr1 report", slog.Any("error", err), slog.String("company", filters.Company))
		httpx.RespondError(w, err)
		return
	}
	if r.URL.Query().Get("format") != "csv" {
		httpx.JSON(w, http.StatusOK, result)
		return
	}
	buf := &bytes.Buffer{}
	if err := WriteCSV(buf, filters, result); err != nil {
		h.logger.Error("gstr1 csv", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+Scrub("gstr-1 "+string(filters.TypeOfBusiness))+`.csv"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) filingJSON(w http.ResponseWriter, r *http.Request) {
	var req FilingRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	doc, err := h.service.FilingJSON(r.Context(), req)
	if err != nil {
		h.logger.Warn("gstr1 filing json", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, doc)
}

func (h *Handler) download(w http.ResponseWriter, r *http.Request) {
	var req DownloadRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := httpx.ValidateStruct(h.validator, req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	file, err := NewDownload(req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("ETag", file.ETag)
	if r.Header.Get("If-None-Match") == file.ETag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+file.Name+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(file.Content)
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	if h.enqueuer == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "Unavailable", "export queue not configured")
		return
	}
	var req ExportRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := req.Filters.Validate(); err != nil {
		httpx.RespondError(w, err)
		return
	}
	key := r.Header.Get(IdempotencyHeader)
	if key != "" && h.idempotency != nil {
		if err := h.idempotency.CheckAndInsert(r.Context(), key, idempotencyModule); err != nil {
			if !errors.Is(err, shared.ErrIdempotencyConflict) {
				h.logger.Error("gstr1 export idempotency", slog.Any("error", err))
			}
			httpx.RespondError(w, err)
			return
		}
	}
	taskID, err := h.enqueuer.EnqueueExport(r.Context(), req)
	if err != nil {
		h.logger.Error("gstr1 enqueue export", slog.Any("error", err), slog.String("company", req.Company))
		if key != "" && h.idempotency != nil {
			_ = h.idempotency.Delete(r.Context(), key)
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusAccepted, map[string]string{"task_id": taskID})
}
