// File path: internal/api/amort_handler.go
package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/harborlend/loanbridge/internal/amort"
)

// handleCalculate runs the amortization calculator.
func (s *Server) handleCalculate(w http.ResponseWriter, r *http.Request) {
	var inputs amort.Inputs
	if err := json.NewDecoder(r.Body).Decode(&inputs); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	results, err := amort.Calculate(inputs)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("calculation error: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, results)
}
