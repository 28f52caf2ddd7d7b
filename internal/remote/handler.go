package remote

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ayush/useradmin/internal/apperr"
	"github.com/ayush/useradmin/internal/httpx"
)

// MsgUnavailable is returned when the manifest cannot be loaded.
const MsgUnavailable = "remote components are unavailable"

// Handler exposes component resolution over HTTP.
type Handler struct {
	loader *Loader
	logger *slog.Logger
}

// NewHandler creates a Handler.
func NewHandler(loader *Loader, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{loader: loader, logger: logger}
}

// Resolve answers GET /remote/{module} with the component's asset URL.
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	module := chi.URLParam(r, "module")

	assetURL, err := h.loader.Resolve(r.Context(), module)
	if apperr.Is(err, apperr.CodeNotFound) {
		httpx.WriteError(w, err)
		return
	}
	if err != nil {
		apperr.LogError(h.logger, "remote manifest load failed", err)
		httpx.WriteJSON(w, http.StatusBadGateway, httpx.Response{
			Errors: apperr.FieldErrors{apperr.GeneralField: MsgUnavailable},
		})
		return
	}

	httpx.WriteSuccess(w, map[string]string{"module": module, "url": assetURL}, "")
}
