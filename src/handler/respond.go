// Package handler contains the HTTP handlers of the dashboard API. Handlers
// parse and validate input, delegate to the service and repository layers and
// translate failures into the JSON error envelope the frontend expects.
package handler

import (
	"encoding/json"
	"net/http"

	logger "github.com/sirupsen/logrus"
)

// writeJSON serializes payload with the given status. Encoding failures are
// logged only; headers are already gone at that point.
func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.WithError(err).Error("failed to encode response")
	}
}

// writeError emits the {"error": message} envelope used across the API.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// decodeLenient reads the request body into dst, treating an empty or
// malformed body as "no options given".
func decodeLenient(r *http.Request, dst interface{}) error {
	return json.NewDecoder(r.Body).Decode(dst)
}

// decodeJSON reads the request body into dst. On failure it answers 400 and
// returns false; the caller just returns.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		logger.WithError(err).Warn("invalid request payload")
		writeError(w, http.StatusBadRequest, "无效的请求数据")
		return false
	}
	return true
}
