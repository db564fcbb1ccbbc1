// Package api provides the HTTP transport for the lineage engine. Every
// field of a lineage result is preserved verbatim in the JSON shapes.
package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"dota/internal/config"
	"dota/internal/domain"
	"dota/internal/middleware"
	"dota/internal/service/lineage"
)

// Handler serves the lineage API.
type Handler struct {
	lineage *lineage.Service
	logger  *slog.Logger
}

// NewHandler creates a Handler over the lineage service.
func NewHandler(svc *lineage.Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{lineage: svc, logger: logger}
}

// NewRouter assembles the chi router with the standard middleware stack.
func NewRouter(h *Handler, cfg *config.Config) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RateLimiter(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		Burst:             cfg.RateLimitBurst,
	}))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/healthz", h.Health)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/refresh", h.Refresh)
		r.Get("/columns/{column}/tables", h.FindTables)
		r.Get("/population/{column}", h.ResolvePopulation)
		r.Get("/tables/{table}/columns/{column}/dependency-entry", h.DependencyEntry)
		r.Get("/jobs/{job}", h.JobStatus)
		r.Get("/ask", h.Ask)
	})
	return r
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Refresh pulls a new catalog snapshot.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	counts, err := h.lineage.Refresh(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, refreshToAPI(counts))
}

// FindTables lists every table containing the named column.
func (h *Handler) FindTables(w http.ResponseWriter, r *http.Request) {
	baseOnly := true
	if v := r.URL.Query().Get("base_only"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			baseOnly = b
		}
	}
	tables, err := h.lineage.FindTablesWithColumn(r.Context(), chi.URLParam(r, "column"), baseOnly)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tables": candidatesToAPI(tables)})
}

// ResolvePopulation answers "where does this column get populated".
func (h *Handler) ResolvePopulation(w http.ResponseWriter, r *http.Request) {
	req := lineage.PopulationRequest{
		Column: chi.URLParam(r, "column"),
		Hint:   r.URL.Query().Get("hint"),
		Table:  r.URL.Query().Get("table"),
	}
	if v := r.URL.Query().Get("max_depth"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 || n > config.HardLineageDepthCap {
			writeError(w, r, domain.ErrValidation("max_depth %q must be an integer in [0, %d]", v, config.HardLineageDepthCap))
			return
		}
		req.MaxDepth = n
	}
	res, err := h.lineage.ResolvePopulation(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, populationToAPI(res))
}

// DependencyEntry returns the raw index entry for one (table, column).
func (h *Handler) DependencyEntry(w http.ResponseWriter, r *http.Request) {
	entry, err := h.lineage.DependencyEntry(r.Context(), chi.URLParam(r, "table"), chi.URLParam(r, "column"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entryToAPI(entry))
}

// JobStatus reports last-run metadata for a source-database job.
func (h *Handler) JobStatus(w http.ResponseWriter, r *http.Request) {
	job, err := h.lineage.JobStatus(r.Context(), chi.URLParam(r, "job"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jobToAPI(job))
}

// Ask resolves a free-text lineage question.
func (h *Handler) Ask(w http.ResponseWriter, r *http.Request) {
	res, err := h.lineage.Ask(r.Context(), r.URL.Query().Get("prompt"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, populationToAPI(res))
}
