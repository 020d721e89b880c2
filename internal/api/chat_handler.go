// File path: internal/api/chat_handler.go
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/harborlend/loanbridge/internal/common"
	"github.com/harborlend/loanbridge/internal/common/telemetry"
	"github.com/harborlend/loanbridge/internal/flow"
	"github.com/harborlend/loanbridge/internal/storage"
)

const maxMultipartMemory = 32 << 20

// statusClientClosedRequest is the nginx convention for a request abandoned
// by the caller before a response was written.
const statusClientClosedRequest = 499

// handleChat accepts one conversational turn. Plain JSON carries text-only
// turns; multipart form data carries text plus bank-statement files.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	logger := common.Logger()
	var (
		turn     flow.Turn
		rejected []string
	)

	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("parse multipart form: %w", err))
			return
		}
		turn.UserID = strings.TrimSpace(r.FormValue("email"))
		turn.Text = r.FormValue("message")
		if turn.UserID == "" {
			writeError(w, http.StatusBadRequest, fmt.Errorf("email is required"))
			return
		}
		if r.MultipartForm != nil {
			for _, header := range r.MultipartForm.File["files"] {
				file, err := header.Open()
				if err != nil {
					writeError(w, http.StatusBadRequest, fmt.Errorf("open upload %s: %w", header.Filename, err))
					return
				}
				record, err := s.uploads.Accept(r.Context(), header.Filename, file, header.Size, turn.UserID)
				file.Close()
				if err != nil {
					if storage.IsRejection(err) {
						// A refused file never aborts the turn; the
						// caller is told per file and the rest proceed.
						telemetry.RecordUpload(false)
						rejected = append(rejected, err.Error())
						continue
					}
					writeError(w, http.StatusInternalServerError, fmt.Errorf("store upload: %w", err))
					return
				}
				telemetry.RecordUpload(true)
				turn.Files = append(turn.Files, record)
				if s.store != nil {
					if err := s.store.RecordFileUpload(r.Context(), turn.UserID, record.OriginalName); err != nil {
						logger.Warn("api: file upload transcript failed", "user", turn.UserID, "error", err)
					}
				}
			}
		}
	} else {
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
			return
		}
		turn.UserID = strings.TrimSpace(req.Email)
		turn.Text = req.Message
		if turn.UserID == "" {
			writeError(w, http.StatusBadRequest, fmt.Errorf("email is required"))
			return
		}
	}

	turnStart := time.Now()
	result, err := s.engine.HandleTurn(r.Context(), turn)
	telemetry.RecordTurn(time.Since(turnStart))
	if err != nil {
		if errors.Is(err, flow.ErrCancelled) {
			writeJSON(w, statusClientClosedRequest, map[string]string{"error": "Request cancelled by client"})
			return
		}
		logger.Error("api: chat turn failed", "user", turn.UserID, "error", err)
		writeJSON(w, http.StatusInternalServerError, chatResponse{
			Response: "Sorry, something went wrong on our side. Please resend your last message.",
		})
		return
	}

	reply := result.Reply
	if len(rejected) > 0 {
		var b strings.Builder
		b.WriteString(reply)
		b.WriteString("\n\n⚠️ Some files could not be accepted:")
		for _, reason := range rejected {
			b.WriteString("\n• ")
			b.WriteString(reason)
		}
		reply = b.String()
	}
	writeJSON(w, http.StatusOK, chatResponse{Response: reply, Submitted: result.Submitted, Rejected: rejected})
}

// handleChatState reports where a user's questionnaire currently sits.
func (s *Server) handleChatState(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.URL.Query().Get("email"))
	if email == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("email is required"))
		return
	}
	resp := chatStateResponse{Email: email, State: flow.StateIdle.String()}
	if s.sessions != nil {
		if conv, ok := s.sessions.Snapshot(email); ok {
			resp.Active = conv.Active
			resp.Cursor = conv.Cursor
			resp.State = flow.StateOf(conv, s.engine.Catalog()).String()
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
