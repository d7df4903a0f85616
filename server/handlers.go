package server

import (
	"net/http"
	"strings"

	"github.com/cheapskatecoder/draconic/errors"
	"github.com/cheapskatecoder/draconic/queue"
)

// handleJobsCollection serves GET /v1/jobs (list) and POST /v1/jobs (submit).
func (s *Server) handleJobsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListJobs(w, r)
	case http.MethodPost:
		s.handleSubmitJob(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.scheduler.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, jobListResponse{Jobs: jobs})
}

func (s *Server) handleSubmitJob(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := readJSON(w, r, &req); err != nil {
		return
	}

	job, err := s.scheduler.Submit(req.toSpec())
	if err != nil {
		writeSubmissionError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, job)
}

// handleJobsItem serves /v1/jobs/{id} (GET) and /v1/jobs/{id}/cancel (POST).
func (s *Server) handleJobsItem(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/jobs/")
	rest = strings.Trim(rest, "/")
	if rest == "" {
		writeError(w, http.StatusNotFound, "missing job id")
		return
	}

	parts := strings.SplitN(rest, "/", 2)
	id := parts[0]

	if len(parts) == 2 && parts[1] == "cancel" {
		s.handleCancelJob(w, r, id)
		return
	}
	if len(parts) > 1 {
		writeError(w, http.StatusNotFound, "unknown job sub-resource")
		return
	}
	s.handleGetJob(w, r, id)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request, id string) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	job, err := s.scheduler.Get(id)
	if err != nil {
		s.writeLookupError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request, id string) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	if err := s.scheduler.Cancel(id); err != nil {
		if errors.Is(err, queue.ErrAlreadyTerminal) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		s.writeLookupError(w, err)
		return
	}
	job, err := s.scheduler.Get(id)
	if err != nil {
		s.writeLookupError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, s.scheduler.Metrics())
}

func (s *Server) handleDLQList(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	ids, err := s.scheduler.DLQList()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, dlqListResponse{JobIDs: ids})
}

// handleDLQRetry serves POST /v1/dlq/{id}/retry.
func (s *Server) handleDLQRetry(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/v1/dlq/")
	rest = strings.Trim(rest, "/")
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 || parts[1] != "retry" {
		writeError(w, http.StatusNotFound, "expected /v1/dlq/{id}/retry")
		return
	}

	job, err := s.scheduler.DLQRetry(parts[0])
	if err != nil {
		s.writeLookupError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// writeLookupError maps a store lookup failure onto 404, falling back to
// 500 for anything else.
func (s *Server) writeLookupError(w http.ResponseWriter, err error) {
	if errors.Is(err, queue.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}
