// File path: internal/api/rates_handler.go
package api

import (
	"fmt"
	"net/http"
)

// handleRates returns the current mortgage rate table.
func (s *Server) handleRates(w http.ResponseWriter, r *http.Request) {
	if s.rates == nil {
		writeError(w, http.StatusServiceUnavailable, fmt.Errorf("rate source not configured"))
		return
	}
	rates, err := s.rates.MortgageRates(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, fmt.Errorf("fetch rates: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, ratesResponse{Rates: rates})
}

// handleResources returns guideline summaries for the major loan programs.
func (s *Server) handleResources(w http.ResponseWriter, r *http.Request) {
	if s.rates == nil {
		writeError(w, http.StatusServiceUnavailable, fmt.Errorf("rate source not configured"))
		return
	}
	writeJSON(w, http.StatusOK, resourcesResponse{Programs: s.rates.ProgramSummaries(r.Context())})
}
