package server

import (
	"encoding/json"
	"net/http"

	"github.com/cheapskatecoder/draconic/errors"
	"github.com/cheapskatecoder/draconic/queue"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeSubmissionError maps a queue.SubmissionError onto the HTTP status
// a client should treat as a permanent rejection (400), carrying the
// machine-readable code so callers don't have to parse the message.
func writeSubmissionError(w http.ResponseWriter, err error) {
	var subErr *queue.SubmissionError
	if !errors.As(err, &subErr) {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: subErr.Error(), Code: subErr.Code})
}

// readJSON reads and decodes a JSON request body, writing a 400 response
// on failure.
func readJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return err
	}
	return nil
}

// requireMethod checks the request method, writing a 405 response if it
// doesn't match.
func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return false
	}
	return true
}
