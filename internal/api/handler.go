// Package api exposes the test service over HTTP.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"sqlregress/internal/domain"
	"sqlregress/internal/history"
	"sqlregress/internal/middleware"
	"sqlregress/internal/report"
	"sqlregress/internal/service"
)

// Handler serves the test endpoints.
type Handler struct {
	svc    *service.Service
	logger *slog.Logger
}

// NewHandler creates an API handler.
func NewHandler(svc *service.Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger.With("component", "api")}
}

// RouterConfig carries the HTTP-surface settings.
type RouterConfig struct {
	CORSAllowedOrigins []string
	RateLimit          middleware.RateLimitConfig
}

// Routes builds the chi router with the standard middleware stack.
func (h *Handler) Routes(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))
	if cfg.RateLimit.RequestsPerSecond > 0 {
		r.Use(middleware.RateLimiter(cfg.RateLimit))
	}

	r.Get("/healthz", h.health)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/procedure-tests", h.createProcedureTest)
		r.Post("/pipe-tests", h.createPipeTest)
		r.Get("/runs", h.listRuns)
	})
	return r
}

// testRequest is the body of both test-creation endpoints.
type testRequest struct {
	Name   string `json:"name"`
	Schema string `json:"schema"`
}

func (h *Handler) decodeTestRequest(r *http.Request) (*testRequest, error) {
	var req testRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, domain.ErrValidation("invalid request body: %v", err)
	}
	if req.Name == "" || req.Schema == "" {
		return nil, domain.ErrValidation("name and schema are required")
	}
	return &req, nil
}

type procedureTestResponse struct {
	Procedure   string                 `json:"procedure"`
	Summary     report.Summary         `json:"summary"`
	Results     []domain.FixtureResult `json:"test_results"`
	Diagnostics []string               `json:"diagnostics"`
	ReportPath  string                 `json:"report_path"`
}

func (h *Handler) createProcedureTest(w http.ResponseWriter, r *http.Request) {
	req, err := h.decodeTestRequest(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	outcome, err := h.svc.TestProcedure(r.Context(), req.Name, req.Schema)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, procedureTestResponse{
		Procedure:   req.Schema + "." + req.Name,
		Summary:     outcome.Summary,
		Results:     outcome.State.Results,
		Diagnostics: outcome.State.Log,
		ReportPath:  outcome.ReportPath,
	})
}

type pipeTestResponse struct {
	Pipe              string   `json:"pipe"`
	FinalMessage      string   `json:"final_message"`
	ErrorMessage      string   `json:"error_message,omitempty"`
	Uploaded          bool     `json:"upload_status"`
	VerificationCount *int64   `json:"verification_count,omitempty"`
	Diagnostics       []string `json:"diagnostics"`
	ReportPath        string   `json:"report_path"`
}

func (h *Handler) createPipeTest(w http.ResponseWriter, r *http.Request) {
	req, err := h.decodeTestRequest(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	outcome, err := h.svc.TestPipe(r.Context(), req.Name, req.Schema)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	state := outcome.State
	h.writeJSON(w, http.StatusCreated, pipeTestResponse{
		Pipe:              req.Schema + "." + req.Name,
		FinalMessage:      state.FinalMessage,
		ErrorMessage:      state.ErrMessage,
		Uploaded:          state.Uploaded,
		VerificationCount: state.VerificationCount,
		Diagnostics:       state.Log,
		ReportPath:        outcome.ReportPath,
	})
}

func (h *Handler) listRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.svc.History(r.Context(), 50)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if runs == nil {
		runs = []history.Run{}
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"runs": runs})
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := httpStatusFromDomainError(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			"method", r.Method, "path", r.URL.Path,
			"request_id", middleware.RequestIDFromContext(r.Context()),
			"error", err)
	}
	h.writeJSON(w, status, map[string]interface{}{
		"code":    status,
		"message": err.Error(),
	})
}
