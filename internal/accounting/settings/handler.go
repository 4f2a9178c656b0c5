package settings

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/odyssey-tax/internal/platform/httpx"
)

// ActorHeader identifies the user performing a change.
const ActorHeader = "X-Actor-ID"

// Handler exposes the settings document over HTTP.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: httpx.NewValidator()}
}

// MountRoutes registers settings routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.get)
	r.Put("/", h.put)
	r.Get("/property-setters", h.propertySetters)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	doc, err := h.service.Get(r.Context())
	if err != nil {
		h.logger.Error("get accounts settings", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, doc)
}

func (h *Handler) put(w http.ResponseWriter, r *http.Request) {
	var doc AccountsSettings
	if err := httpx.DecodeJSON(r, &doc); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := httpx.ValidateStruct(h.validator, doc); err != nil {
		httpx.RespondError(w, err)
		return
	}
	actorID, _ := strconv.ParseInt(r.Header.Get(ActorHeader), 10, 64)
	saved, err := h.service.Save(r.Context(), actorID, doc)
	if err != nil {
		h.logger.Warn("save accounts settings", slog.Any("error", err), slog.Int64("actor_id", actorID))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, saved)
}

func (h *Handler) propertySetters(w http.ResponseWriter, r *http.Request) {
	setters, err := h.service.PropertySetters(r.Context(), r.URL.Query().Get("doctype"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": setters})
}
