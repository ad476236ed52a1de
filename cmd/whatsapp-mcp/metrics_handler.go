package main

import (
	"encoding/json"
	"net/http"

	"github.com/ab2005/whatsapp-mcp/internal/metrics"
	"github.com/ab2005/whatsapp-mcp/internal/service"
	"github.com/ab2005/whatsapp-mcp/internal/tracing"
)

// handleMetrics serves the registry snapshot as indented JSON. This is
// an operational endpoint outside /api/v1, so it skips the response
// envelope and must never be cached.
func (s *Server) handleMetrics() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snapshot := metrics.GetAllMetrics()

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")

		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(snapshot); err != nil {
			requestInfo := tracing.GetRequestInfo(r.Context())
			s.logger.WithError(err).
				WithField(service.LogFieldRequestID, requestInfo.RequestID).
				Error("Failed to encode metrics response")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
		}
	}
}
