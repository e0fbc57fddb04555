// Package server exposes the operator HTTP API: manual job triggers, the
// emergency stop, and system status.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/MikohMick/SEO-MACHINE/internal/audit"
	"github.com/MikohMick/SEO-MACHINE/internal/keywords"
	"github.com/MikohMick/SEO-MACHINE/internal/ledger"
	"github.com/MikohMick/SEO-MACHINE/internal/pipeline"
	"github.com/MikohMick/SEO-MACHINE/internal/scheduler"
	"github.com/MikohMick/SEO-MACHINE/pkg/config"
	apperrors "github.com/MikohMick/SEO-MACHINE/pkg/errors"
)

// Server handles operator requests.
type Server struct {
	scheduler  *scheduler.Scheduler
	pipeline   *pipeline.Pipeline
	budget     ledger.Ledger
	keywords   *keywords.Store
	auditStore *audit.Store
	duplicates *keywords.DuplicateScanner
	monCfg     config.MonitoringConfig
	logger     *slog.Logger
}

// New creates the operator API server.
func New(
	sched *scheduler.Scheduler,
	pipe *pipeline.Pipeline,
	budget ledger.Ledger,
	kw *keywords.Store,
	auditStore *audit.Store,
	duplicates *keywords.DuplicateScanner,
	monCfg config.MonitoringConfig,
) *Server {
	return &Server{
		scheduler:  sched,
		pipeline:   pipe,
		budget:     budget,
		keywords:   kw,
		auditStore: auditStore,
		duplicates: duplicates,
		monCfg:     monCfg,
		logger:     slog.Default().With("component", "operator_api"),
	}
}

// Register mounts the operator routes on the mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/jobs/{name}/run", s.handleRunJob)
	mux.HandleFunc("POST /api/v1/emergency-stop", s.handleEmergencyStop)
	mux.HandleFunc("POST /api/v1/resume", s.handleResume)
	mux.HandleFunc("POST /api/v1/schedule/reset", s.handleScheduleReset)
	mux.HandleFunc("GET /api/v1/status", s.handleStatus)
	mux.HandleFunc("POST /api/v1/keywords/{id}/generate", s.handleGenerate)
	mux.HandleFunc("GET /api/v1/duplicates", s.handleListDuplicates)
	mux.HandleFunc("POST /api/v1/duplicates/{id}/resolve", s.handleResolveDuplicate)
}

func (s *Server) handleRunJob(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	summary, err := s.scheduler.RunJob(r.Context(), name)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"job": name, "summary": summary})
}

func (s *Server) handleEmergencyStop(w http.ResponseWriter, r *http.Request) {
	if err := s.scheduler.EmergencyStop(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"state": "stopped"})
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	if err := s.scheduler.Resume(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"state": "running"})
}

func (s *Server) handleScheduleReset(w http.ResponseWriter, _ *http.Request) {
	s.scheduler.ResetSchedule()
	s.writeJSON(w, http.StatusOK, map[string]string{"state": "schedules reset"})
}

// statusResponse aggregates the system view the operator dashboard polls.
type statusResponse struct {
	Stopped         bool                  `json:"emergency_stopped"`
	Jobs            []scheduler.JobStatus `json:"jobs"`
	Keywords        keywords.Stats        `json:"keywords"`
	PublishedToday  int                   `json:"published_today"`
	KeywordBudget   int                   `json:"keyword_budget_remaining"`
	ContentBudget   int                   `json:"content_budget_remaining"`
	GeneratedAt     time.Time             `json:"generated_at"`
	RecentContent   []audit.ContentRecord `json:"recent_content"`
	DuplicateGroups int                   `json:"duplicate_groups_open"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resp := statusResponse{
		Stopped:     s.scheduler.Stopped(ctx),
		Jobs:        s.scheduler.Status(),
		GeneratedAt: time.Now().UTC(),
	}

	var err error
	if resp.Keywords, err = s.keywords.Stats(ctx, s.monCfg.SurgeThreshold); err != nil {
		s.writeError(w, err)
		return
	}
	if resp.PublishedToday, err = s.auditStore.CountPublishedToday(ctx); err != nil {
		s.writeError(w, err)
		return
	}
	if resp.KeywordBudget, err = s.budget.Remaining(ctx, ledger.APIKeyword); err != nil {
		s.writeError(w, err)
		return
	}
	if resp.ContentBudget, err = s.budget.Remaining(ctx, ledger.APIContent); err != nil {
		s.writeError(w, err)
		return
	}
	if resp.RecentContent, err = s.auditStore.RecentContent(ctx, 10); err != nil {
		s.writeError(w, err)
		return
	}
	groups, err := s.duplicates.Unresolved(ctx)
	if err != nil {
		s.writeError(w, err)
		return
	}
	resp.DuplicateGroups = len(groups)

	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid keyword id"})
		return
	}
	regenerate := r.URL.Query().Get("regenerate") == "true"

	sum, err := s.pipeline.GenerateFor(r.Context(), id, regenerate)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"keyword_id": id,
		"summary":    sum.String(),
	})
}

func (s *Server) handleListDuplicates(w http.ResponseWriter, r *http.Request) {
	groups, err := s.duplicates.Unresolved(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if groups == nil {
		groups = []keywords.DuplicateGroup{}
	}
	s.writeJSON(w, http.StatusOK, groups)
}

func (s *Server) handleResolveDuplicate(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid group id"})
		return
	}
	if err := s.duplicates.Resolve(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"state": "resolved"})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatusCode(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}
