// File path: internal/api/logs_handler.go
package api

import (
	"net/http"

	"github.com/harborlend/loanbridge/internal/common"
)

// handleLogs returns the in-memory tail of recent log entries.
func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"logs": common.LogEntries()})
}
