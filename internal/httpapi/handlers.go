package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/transparent-search/crawlcore/internal/model"
)

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

// handleHealth reports liveness only; it never touches the Store so it
// stays cheap under load, matching the teacher's handlers/health.go.
//
// @Summary Health check
// @Success 200 {object} map[string]string
// @Router /health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok", "time": time.Now().UTC().Format(time.RFC3339)})
}

// handleStartSession starts a new crawl session for a domain.
//
// @Summary Start a crawl session
// @Param request body StartSessionRequest true "Session parameters"
// @Success 200 {object} StartSessionResponse
// @Failure 400 {object} map[string]string
// @Security AdminToken
// @Router /sessions [post]
func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req StartSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := validate.Struct(req); err != nil {
		respondJSON(w, http.StatusBadRequest, writeValidationError(err))
		return
	}

	if !req.IncludeExisting {
		if existing, err := s.store.FindSessionByDomain(r.Context(), req.Domain); err == nil {
			respondJSON(w, http.StatusOK, StartSessionResponse{
				SessionID: existing.ID, Domain: existing.Domain,
				PageLimit: existing.PageLimit, MaxDepth: existing.MaxDepth,
			})
			return
		}
	}

	pageLimit := req.PageLimit
	if pageLimit == 0 {
		pageLimit = 1000
	}
	maxDepth := req.MaxDepth
	if maxDepth == 0 {
		maxDepth = 2
	}

	id, err := s.store.CreateSession(r.Context(), &model.Session{
		Domain: req.Domain, Status: model.SessionRunning,
		PageLimit: pageLimit, MaxDepth: maxDepth, CreatedAt: time.Now(),
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to create session")
		return
	}
	respondJSON(w, http.StatusOK, StartSessionResponse{SessionID: id, Domain: req.Domain, PageLimit: pageLimit, MaxDepth: maxDepth})
}

// handleGetSession returns a session and its aggregate counters.
//
// @Summary Get session stats
// @Param id path string true "Session ID"
// @Success 200 {object} model.Session
// @Failure 404 {object} map[string]string
// @Security AdminToken
// @Router /sessions/{id} [get]
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	session, err := s.store.GetSession(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusNotFound, "session not found")
		return
	}
	respondJSON(w, http.StatusOK, session)
}

// handleReindexSession triggers an M4 reindex sweep over a session.
//
// @Summary Reindex a session
// @Param id path string true "Session ID"
// @Param skip_existing query bool false "Skip URLs that already have a SearchRecord"
// @Success 200 {object} indexer.BulkResult
// @Security AdminToken
// @Router /sessions/{id}/reindex [post]
func (s *Server) handleReindexSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	skipExisting := r.URL.Query().Get("skip_existing") != "false"

	result, err := s.indexer.ReindexSession(r.Context(), id, skipExisting)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "reindex failed")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// handleCreateJob creates one Job directly, bypassing bulk import.
//
// @Summary Create a crawl job
// @Param request body CreateJobRequest true "Job parameters"
// @Success 200 {object} CreateJobResponse
// @Failure 400 {object} map[string]string
// @Security AdminToken
// @Router /jobs [post]
func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var req CreateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := validate.Struct(req); err != nil {
		respondJSON(w, http.StatusBadRequest, writeValidationError(err))
		return
	}

	priority := 1
	job := &model.Job{
		SessionID: req.SessionID, Domain: req.Domain, URL: req.URL,
		Status: model.JobPending, Priority: priority, Depth: req.Depth,
		MaxDepth: req.MaxDepth, EnableJSRendering: req.EnableJS, CreatedAt: time.Now(),
	}
	id, err := s.store.CreateJob(r.Context(), job)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to create job")
		return
	}
	respondJSON(w, http.StatusOK, CreateJobResponse{JobID: id, Priority: priority})
}

// handleGetJob returns one Job's current status.
//
// @Summary Get job status
// @Param id path string true "Job ID"
// @Success 200 {object} model.Job
// @Failure 404 {object} map[string]string
// @Security AdminToken
// @Router /jobs/{id} [get]
func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	job, err := s.store.GetJob(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusNotFound, "job not found")
		return
	}
	respondJSON(w, http.StatusOK, job)
}

// handleListJobs lists Jobs for a session or domain.
//
// @Summary List jobs
// @Param session_id query string false "Session ID"
// @Param domain query string false "Domain"
// @Success 200 {array} model.Job
// @Security AdminToken
// @Router /jobs [get]
func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	var jobs []model.Job
	var err error

	switch {
	case r.URL.Query().Get("session_id") != "":
		jobs, err = s.store.ListJobsBySession(r.Context(), r.URL.Query().Get("session_id"))
	case r.URL.Query().Get("domain") != "":
		jobs, err = s.store.ListJobsByDomain(r.Context(), r.URL.Query().Get("domain"))
	default:
		respondError(w, http.StatusBadRequest, "session_id or domain is required")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list jobs")
		return
	}
	limit := parseLimit(r, int64(len(jobs)))
	if int64(len(jobs)) > limit {
		jobs = jobs[:limit]
	}
	respondJSON(w, http.StatusOK, jobs)
}

// handleAdminStatus reports the current admin control flags.
//
// @Summary Admin status
// @Success 200 {object} AdminStatusResponse
// @Security AdminToken
// @Router /admin/status [get]
func (s *Server) handleAdminStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.adminStatus())
}

// handleForceStop sets the force_stop flag, which makes the Scheduler's
// discovery and queue-tick loops skip their work while it is set. It does
// not stop a Worker Pool loop that is already running, and in-flight Jobs
// are not cancelled or marked failed.
//
// @Summary Force-stop crawling
// @Success 200 {object} AdminStatusResponse
// @Security AdminToken
// @Router /admin/force-stop [post]
func (s *Server) handleForceStop(w http.ResponseWriter, r *http.Request) {
	s.flags.SetForceStop(true)
	log.Warn().Msg("httpapi: force-stop requested")
	respondJSON(w, http.StatusOK, s.adminStatus())
}

// handleForcePauseIndex pauses M4 without affecting crawling.
//
// @Summary Pause indexing
// @Success 200 {object} AdminStatusResponse
// @Security AdminToken
// @Router /admin/force-pause-index [post]
func (s *Server) handleForcePauseIndex(w http.ResponseWriter, r *http.Request) {
	s.flags.SetForcePauseIndex(true)
	respondJSON(w, http.StatusOK, s.adminStatus())
}

// handleResume clears every admin control and resumes normal operation.
//
// @Summary Resume
// @Success 200 {object} AdminStatusResponse
// @Security AdminToken
// @Router /admin/resume [post]
func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	s.flags.Resume()
	respondJSON(w, http.StatusOK, s.adminStatus())
}

func (s *Server) adminStatus() AdminStatusResponse {
	snap := s.flags.Snapshot()
	return AdminStatusResponse{
		CrawlEnabled: snap.CrawlEnabled,
		IndexEnabled: snap.IndexEnabled,
		ForceStopped: snap.ForceStop,
		IndexPaused:  snap.ForcePauseIndex,
	}
}

func parseLimit(r *http.Request, def int64) int64 {
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			return n
		}
	}
	return def
}
