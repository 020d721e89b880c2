// File path: internal/api/admin_handler.go
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	chi "github.com/go-chi/chi/v5"

	"github.com/harborlend/loanbridge/internal/auth"
	"github.com/harborlend/loanbridge/internal/sqlite"
)

// handleLogin exchanges staff credentials for a bearer token.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.store == nil || s.tokens == nil || !s.tokens.Enabled() {
		writeError(w, http.StatusServiceUnavailable, fmt.Errorf("admin login not configured"))
		return
	}
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("email and password are required"))
		return
	}
	admin, err := s.store.AdminByEmail(r.Context(), email)
	if err != nil {
		if errors.Is(err, sqlite.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, fmt.Errorf("invalid credentials"))
			return
		}
		writeError(w, http.StatusInternalServerError, fmt.Errorf("lookup admin: %w", err))
		return
	}
	if !auth.CheckPassword(admin.PasswordHash, req.Password) {
		writeError(w, http.StatusUnauthorized, fmt.Errorf("invalid credentials"))
		return
	}
	token, err := s.tokens.Issue(email)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("issue token: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: token})
}

// handleAdminChats lists transcript entries, optionally filtered by email.
func (s *Server) handleAdminChats(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, fmt.Errorf("database not configured"))
		return
	}
	email := strings.TrimSpace(r.URL.Query().Get("email"))
	limit := parseLimit(r.URL.Query().Get("limit"))
	chats, err := s.store.ListChats(r.Context(), email, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("list chats: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"chats": chats})
}

// handleAdminSubmissions lists completed applications, newest first.
func (s *Server) handleAdminSubmissions(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, fmt.Errorf("database not configured"))
		return
	}
	limit := parseLimit(r.URL.Query().Get("limit"))
	subs, err := s.store.ListSubmissions(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("list submissions: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"submissions": subs})
}

// handleAdminSubmission returns one application with answers in question
// order and its file records.
func (s *Server) handleAdminSubmission(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, fmt.Errorf("database not configured"))
		return
	}
	id := chi.URLParam(r, "id")
	answers, err := s.store.SubmissionAnswers(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("load answers: %w", err))
		return
	}
	files, err := s.store.SubmissionFiles(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("load files: %w", err))
		return
	}
	if len(answers) == 0 && len(files) == 0 {
		writeError(w, http.StatusNotFound, fmt.Errorf("submission %s not found", id))
		return
	}
	detail := submissionDetail{ID: id}
	for _, a := range answers {
		detail.Answers = append(detail.Answers, submissionField{Key: a.FieldKey, Value: a.Answer})
	}
	for _, f := range files {
		detail.Files = append(detail.Files, submissionFile{
			OriginalName: f.OriginalName,
			StoredID:     f.StoredID,
			SizeBytes:    f.SizeBytes,
		})
	}
	writeJSON(w, http.StatusOK, detail)
}

func parseLimit(raw string) int {
	if raw == "" {
		return 0
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0
	}
	return limit
}
