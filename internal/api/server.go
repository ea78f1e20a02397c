package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bharatcrest/hrmatcher/internal/cache"
	"github.com/bharatcrest/hrmatcher/internal/mailbox"
	"github.com/bharatcrest/hrmatcher/internal/models"
	"github.com/bharatcrest/hrmatcher/internal/pipeline"
)

// dateLayout is the calendar-date format accepted on match requests
const dateLayout = "2006-01-02"

// Server exposes the trigger/poll HTTP boundary used by the external
// presentation and scheduling collaborators
type Server struct {
	pipeline *pipeline.Pipeline
	cache    cache.ResultCache
	mailCfg  models.MailboxConfig
	log      *zap.Logger
}

// NewServer creates the API server
func NewServer(p *pipeline.Pipeline, c cache.ResultCache, mailCfg models.MailboxConfig, log *zap.Logger) *Server {
	return &Server{
		pipeline: p,
		cache:    c,
		mailCfg:  mailCfg,
		log:      log,
	}
}

// Router returns the HTTP router
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /match", s.handleMatch)
	mux.HandleFunc("GET /results/{id}", s.handleResults)
	mux.HandleFunc("GET /status/{id}", s.handleStatus)
	mux.HandleFunc("POST /mailbox/test", s.handleMailboxTest)
	mux.HandleFunc("GET /health", s.handleHealth)

	return s.loggingMiddleware(mux)
}

// matchRequest is the payload that triggers a matching run
type matchRequest struct {
	JobRequirementID string  `json:"job_requirement_id"`
	Position         string  `json:"position"`
	Skills           string  `json:"skills"` // comma-separated
	MinExperience    int     `json:"min_experience"`
	MinScore         float64 `json:"min_score"`
	Priority         string  `json:"priority"`
	DateFrom         string  `json:"date_from"` // YYYY-MM-DD, optional
	DateTo           string  `json:"date_to"`   // YYYY-MM-DD, optional
	Source           string  `json:"source"`    // "mailbox" (default) or "directory"
}

// handleMatch validates the request, starts the run in the background, and
// returns the run ID for status polling
func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	var req matchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	skills := models.ParseSkills(req.Skills)
	if len(skills) == 0 {
		s.respondError(w, http.StatusBadRequest, "skills is required")
		return
	}
	if req.MinExperience < 0 {
		s.respondError(w, http.StatusBadRequest, "min_experience must be non-negative")
		return
	}
	if req.JobRequirementID == "" {
		req.JobRequirementID = uuid.NewString()
	}

	window, err := parseWindow(req.DateFrom, req.DateTo)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	job := models.JobRequirement{
		ID:            req.JobRequirementID,
		Position:      req.Position,
		Skills:        skills,
		MinExperience: req.MinExperience,
		MinScore:      req.MinScore,
		Priority:      req.Priority,
	}

	runID := uuid.NewString()
	source := req.Source
	if source == "" {
		source = "mailbox"
	}

	go func() {
		// Runs are not abortable mid-flight; detach from the request context.
		ctx := context.Background()
		var err error
		switch source {
		case "directory":
			_, err = s.pipeline.MatchDirectory(ctx, runID, job)
		default:
			_, err = s.pipeline.MatchMailbox(ctx, runID, job, s.mailCfg, window)
		}
		if err != nil {
			s.log.Error("matching run failed",
				zap.String("run_id", runID), zap.Error(err))
		}
	}()

	s.respondJSON(w, http.StatusAccepted, map[string]string{
		"run_id":             runID,
		"job_requirement_id": job.ID,
	})
}

func parseWindow(from, to string) (mailbox.DateWindow, error) {
	var window mailbox.DateWindow
	if from != "" {
		t, err := time.Parse(dateLayout, from)
		if err != nil {
			return window, fmt.Errorf("invalid date_from %q: expected YYYY-MM-DD", from)
		}
		window.From = t
	}
	if to != "" {
		t, err := time.Parse(dateLayout, to)
		if err != nil {
			return window, fmt.Errorf("invalid date_to %q: expected YYYY-MM-DD", to)
		}
		window.To = t
	}
	return window, nil
}

// handleResults returns the cached ranked result set for a job requirement
func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	report, ok, err := s.cache.Get(r.Context(), id)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !ok {
		s.respondError(w, http.StatusNotFound, "no results available, run matching first")
		return
	}

	s.respondJSON(w, http.StatusOK, report)
}

// handleStatus returns the progress snapshot of a run
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	runID := r.PathValue("id")

	progress, ok := s.pipeline.Status(runID)
	if !ok {
		s.respondError(w, http.StatusNotFound, "unknown run")
		return
	}
	s.respondJSON(w, http.StatusOK, progress)
}

// handleMailboxTest probes connectivity and credentials with a detailed
// diagnosis
func (s *Server) handleMailboxTest(w http.ResponseWriter, r *http.Request) {
	message, err := mailbox.TestConnection(s.mailCfg)
	if err != nil {
		s.respondJSON(w, http.StatusOK, map[string]interface{}{
			"ok":    false,
			"error": err.Error(),
		})
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"ok":      true,
		"message": message,
	})
}

// handleHealth provides a health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// respondJSON sends a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error("failed to encode JSON response", zap.Error(err))
	}
}

// respondError sends an error response
func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.log.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("remote", r.RemoteAddr))
		next.ServeHTTP(w, r)
	})
}
