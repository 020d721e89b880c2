// File path: internal/api/server.go
package api

import (
	"encoding/json"
	"expvar"
	"fmt"
	"net/http"
	"time"

	chi "github.com/go-chi/chi/v5"

	"github.com/harborlend/loanbridge/internal/auth"
	"github.com/harborlend/loanbridge/internal/chat"
	"github.com/harborlend/loanbridge/internal/common"
	"github.com/harborlend/loanbridge/internal/flow"
	"github.com/harborlend/loanbridge/internal/sqlite"
	"github.com/harborlend/loanbridge/internal/storage"
)

type Server struct {
	router   chi.Router
	engine   *flow.Engine
	chat     *chat.Service
	uploads  *storage.Store
	store    *sqlite.Store
	tokens   *auth.Manager
	rates    chat.RateSource
	sessions *flow.Sessions
}

func NewServer(engine *flow.Engine, chatSvc *chat.Service, uploads *storage.Store, store *sqlite.Store, tokens *auth.Manager, rates chat.RateSource, sessions *flow.Sessions) (*Server, error) {
	if engine == nil {
		return nil, fmt.Errorf("flow engine required")
	}
	if uploads == nil {
		return nil, fmt.Errorf("upload store required")
	}
	srv := &Server{
		router:   chi.NewRouter(),
		engine:   engine,
		chat:     chatSvc,
		uploads:  uploads,
		store:    store,
		tokens:   tokens,
		rates:    rates,
		sessions: sessions,
	}
	srv.routes()
	common.Logger().Info("api: server ready")
	return srv, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	logger := common.Logger()
	logger.Info("api: configuring routes")
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Debug("request", "method", r.Method, "path", r.URL.Path, "dur", time.Since(start), "remote", r.RemoteAddr)
		})
	})

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	s.router.Get("/debug/vars", expvar.Handler().ServeHTTP)

	s.router.Post("/v1/chat", s.handleChat)
	s.router.Get("/v1/chat/state", s.handleChatState)
	s.router.Get("/v1/rates", s.handleRates)
	s.router.Get("/v1/resources", s.handleResources)
	s.router.Post("/v1/amortization/calculate", s.handleCalculate)
	s.router.Post("/v1/auth/login", s.handleLogin)
	s.router.Get("/v1/logs", s.handleLogs)

	if s.tokens != nil && s.tokens.Enabled() {
		s.router.Route("/v1/admin", func(r chi.Router) {
			r.Use(s.tokens.Middleware)
			r.Get("/chats", s.handleAdminChats)
			r.Get("/submissions", s.handleAdminSubmissions)
			r.Get("/submissions/{id}", s.handleAdminSubmission)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	logger := common.Logger()
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "status", status, "error", err)
	} else {
		logger.Warn("request failed", "status", status, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
