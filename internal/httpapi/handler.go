// Package httpapi exposes the collection over JSON HTTP and streams change
// events to browsers over a websocket.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"inked/internal/blob"
	"inked/internal/core"
	"inked/internal/events"
	"inked/internal/state"
	"inked/pkg/domain"
)

// maxBodyBytes leaves room for a base64 encoded logo next to the draft.
const maxBodyBytes = 4 << 20

// Handler serves the pen and ink API.
type Handler struct {
	Service *core.Service
	// Events feeds /api/events. The route is not mounted when nil.
	Events *events.Bus
	// Gatherer feeds /metrics. The route is not mounted when nil.
	Gatherer prometheus.Gatherer
	Logger   zerolog.Logger
	// LogoURLExpiry enables redirects to presigned logo URLs when the blob
	// driver supports them. Zero always serves the bytes.
	LogoURLExpiry time.Duration
	// StreamBuffer bounds the per-connection event queue.
	StreamBuffer int
}

// NewHandler constructs a handler over svc.
func NewHandler(svc *core.Service, bus *events.Bus) *Handler {
	return &Handler{Service: svc, Events: bus, Logger: zerolog.Nop(), StreamBuffer: defaultStreamBuffer}
}

// Routes builds the router.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	})
	if h.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(h.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/pens", func(r chi.Router) {
			r.Get("/", h.listPens)
			r.Post("/", h.createPen)
			r.Put("/{id}", h.updatePen)
			r.Delete("/{id}", h.deletePen)
			r.Post("/{id}/ink", h.inkPen)
			r.Post("/{id}/clean", h.cleanPen)
		})
		r.Route("/inks", func(r chi.Router) {
			r.Get("/", h.listInks)
			r.Post("/", h.createInk)
			r.Put("/{id}", h.updateInk)
			r.Delete("/{id}", h.deleteInk)
			r.Get("/{id}/usage", h.inkUsage)
		})
		r.Get("/logos/{brand}", h.logo)
		if h.Events != nil {
			r.Get("/events", h.stream)
		}
	})
	return r
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.Logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("http request")
	})
}

type penRequest struct {
	core.PenDraft
	Logo string `json:"logo,omitempty"`
}

type inkRequest struct {
	core.InkDraft
	Logo string `json:"logo,omitempty"`
}

type inkPenRequest struct {
	InkID string `json:"inkId"`
}

func (h *Handler) listPens(w http.ResponseWriter, r *http.Request) {
	st, err := state.FromValues(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	views, err := h.Service.Pens(r.Context(), st.PenQuery())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"pens": views})
}

func (h *Handler) listInks(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	st, err := state.FromValues(values)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	// On this route q searches inks.
	st = st.WithInkSearch(firstNonEmpty(values.Get("inkq"), values.Get("q")))
	views, err := h.Service.Inks(r.Context(), st.InkQuery())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"inks": views})
}

func (h *Handler) createPen(w http.ResponseWriter, r *http.Request) {
	var req penRequest
	logo, ok := h.decodeDraft(w, r, &req, &req.Logo)
	if !ok {
		return
	}
	pen, res, err := h.Service.AddPen(r.Context(), req.PenDraft, logo)
	h.writeMutation(w, http.StatusCreated, pen, res, err)
}

func (h *Handler) updatePen(w http.ResponseWriter, r *http.Request) {
	var req penRequest
	logo, ok := h.decodeDraft(w, r, &req, &req.Logo)
	if !ok {
		return
	}
	pen, res, err := h.Service.UpdatePen(r.Context(), chi.URLParam(r, "id"), req.PenDraft, logo)
	h.writeMutation(w, http.StatusOK, pen, res, err)
}

func (h *Handler) createInk(w http.ResponseWriter, r *http.Request) {
	var req inkRequest
	logo, ok := h.decodeDraft(w, r, &req, &req.Logo)
	if !ok {
		return
	}
	ink, res, err := h.Service.AddInk(r.Context(), req.InkDraft, logo)
	h.writeMutation(w, http.StatusCreated, ink, res, err)
}

func (h *Handler) updateInk(w http.ResponseWriter, r *http.Request) {
	var req inkRequest
	logo, ok := h.decodeDraft(w, r, &req, &req.Logo)
	if !ok {
		return
	}
	ink, res, err := h.Service.UpdateInk(r.Context(), chi.URLParam(r, "id"), req.InkDraft, logo)
	h.writeMutation(w, http.StatusOK, ink, res, err)
}

func (h *Handler) inkPen(w http.ResponseWriter, r *http.Request) {
	var req inkPenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.InkID == "" {
		writeError(w, http.StatusBadRequest, "inkId is required")
		return
	}
	pen, res, err := h.Service.InkPen(r.Context(), chi.URLParam(r, "id"), req.InkID)
	h.writeMutation(w, http.StatusOK, pen, res, err)
}

func (h *Handler) cleanPen(w http.ResponseWriter, r *http.Request) {
	pen, res, err := h.Service.CleanPen(r.Context(), chi.URLParam(r, "id"))
	h.writeMutation(w, http.StatusOK, pen, res, err)
}

func (h *Handler) deletePen(w http.ResponseWriter, r *http.Request) {
	confirmed, ok := confirmParam(w, r)
	if !ok {
		return
	}
	deletion, _, err := h.Service.DeletePen(r.Context(), chi.URLParam(r, "id"), core.Confirmed(confirmed))
	h.writeDeletion(w, deletion, err)
}

func (h *Handler) deleteInk(w http.ResponseWriter, r *http.Request) {
	confirmed, ok := confirmParam(w, r)
	if !ok {
		return
	}
	deletion, _, err := h.Service.DeleteInk(r.Context(), chi.URLParam(r, "id"), core.Confirmed(confirmed))
	h.writeDeletion(w, deletion, err)
}

func (h *Handler) inkUsage(w http.ResponseWriter, r *http.Request) {
	usage, err := h.Service.InkUsage(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, usage)
}

func (h *Handler) logo(w http.ResponseWriter, r *http.Request) {
	brand := chi.URLParam(r, "brand")
	if h.LogoURLExpiry > 0 {
		url, err := h.Service.LogoURL(r.Context(), brand, h.LogoURLExpiry)
		switch {
		case err == nil:
			http.Redirect(w, r, url, http.StatusTemporaryRedirect)
			return
		case errors.Is(err, core.ErrNoLogo):
			writeError(w, http.StatusNotFound, "logo not found")
			return
		case !errors.Is(err, blob.ErrUnsupported):
			h.writeServiceError(w, err)
			return
		}
	}
	img, ok, err := h.Service.BrandLogo(r.Context(), brand)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "logo not found")
		return
	}
	w.Header().Set("Content-Type", img.Logo.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(img.Data)))
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img.Data)
}

// decodeDraft reads a draft body and its optional logo data URL. It writes
// the error response itself and reports whether the handler should go on.
func (h *Handler) decodeDraft(w http.ResponseWriter, r *http.Request, dst any, logoField *string) (*core.LogoUpload, bool) {
	if err := decodeJSON(w, r, dst); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	if *logoField == "" {
		return nil, true
	}
	logo, err := core.ParseDataURL(*logoField)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	return logo, true
}

func (h *Handler) writeMutation(w http.ResponseWriter, status int, entity any, res domain.Result, err error) {
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if res.HasBlocking() {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":      "validation failed",
			"violations": res.Violations,
		})
		return
	}
	writeJSON(w, status, entity)
}

func (h *Handler) writeDeletion(w http.ResponseWriter, deletion core.Deletion, err error) {
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if !deletion.Confirmed {
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":  "confirmation required",
			"prompt": deletion.Prompt,
		})
		return
	}
	writeJSON(w, http.StatusOK, deletion)
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	var (
		notFound domain.ErrNotFound
		blocked  domain.RuleViolationError
	)
	switch {
	case errors.As(err, &notFound):
		writeError(w, http.StatusNotFound, notFound.Error())
	case errors.As(err, &blocked):
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":      blocked.Error(),
			"violations": blocked.Result.Violations,
		})
	case errors.Is(err, core.ErrInvalidLogo):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.Logger.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func confirmParam(w http.ResponseWriter, r *http.Request) (bool, bool) {
	raw := r.URL.Query().Get("confirm")
	if raw == "" {
		return false, true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("confirm: invalid boolean %q", raw))
		return false, false
	}
	return v, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode request: %w", err)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
