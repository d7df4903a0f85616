package server

import "net/http"

// setupRoutes registers every HTTP/WebSocket endpoint, following the
// teacher's routing.go convention of one http.HandleFunc call per route
// wrapped in corsMiddleware.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/health", s.corsMiddleware(s.handleHealth))
	s.mux.HandleFunc("/v1/events", s.corsMiddleware(s.handleEvents))

	s.mux.HandleFunc("/v1/metrics", s.corsMiddleware(s.handleMetrics))

	s.mux.HandleFunc("/v1/dlq", s.corsMiddleware(s.handleDLQList))
	s.mux.HandleFunc("/v1/dlq/", s.corsMiddleware(s.handleDLQRetry)) // /v1/dlq/{id}/retry

	s.mux.HandleFunc("/v1/jobs", s.corsMiddleware(s.handleJobsCollection)) // GET list, POST submit
	s.mux.HandleFunc("/v1/jobs/", s.corsMiddleware(s.handleJobsItem))      // /v1/jobs/{id}[/cancel]
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
