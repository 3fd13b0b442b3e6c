package server

import (
	"encoding/json"
	"net/http"

	"github.com/openskills/openskills/pkg/apierrors"
	"github.com/openskills/openskills/pkg/logger"
	"github.com/openskills/openskills/pkg/telemetry"
)

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeJSONResponse(w http.ResponseWriter, r *http.Request, statusCode int, data any) {
	body, err := json.Marshal(data)
	if err != nil {
		logger.G(r.Context()).WithError(err).Error("failed to encode JSON response")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	w.Write(append(body, '\n'))
}

// writeErrorResponse logs err, when present, and writes {"error": message}.
func (s *Server) writeErrorResponse(w http.ResponseWriter, r *http.Request, statusCode int, message string, err error) {
	log := logger.G(r.Context()).WithField("status", statusCode)
	switch {
	case err != nil && statusCode >= http.StatusInternalServerError:
		log.WithError(err).Error(message)
		telemetry.RecordError(r.Context(), err)
	case err != nil:
		log.WithError(err).Debug(message)
	}

	s.writeJSONResponse(w, r, statusCode, ErrorResponse{Error: message})
}

// writeAPIError maps err through the apierrors taxonomy. Errors without a
// client-facing message are reported with fallback.
func (s *Server) writeAPIError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	s.writeErrorResponse(w, r, apierrors.HTTPStatus(err), apierrors.MessageOf(err, fallback), err)
}
