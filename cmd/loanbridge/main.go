// File path: cmd/loanbridge/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/harborlend/loanbridge/internal/api"
	"github.com/harborlend/loanbridge/internal/auth"
	"github.com/harborlend/loanbridge/internal/chat"
	"github.com/harborlend/loanbridge/internal/common"
	"github.com/harborlend/loanbridge/internal/flow"
	"github.com/harborlend/loanbridge/internal/llm"
	"github.com/harborlend/loanbridge/internal/notify"
	"github.com/harborlend/loanbridge/internal/rates"
	"github.com/harborlend/loanbridge/internal/sqlite"
	"github.com/harborlend/loanbridge/internal/storage"
	"github.com/harborlend/loanbridge/internal/submit"
)

func main() {
	logger := common.Logger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := godotenv.Load(); err != nil {
		logger.Warn("loanbridge: .env file not loaded", "error", err)
	} else {
		logger.Info("loanbridge: environment loaded from .env")
	}

	addr := flag.String("addr", ":8080", "listen address")
	dbPath := flag.String("db", defaultDBPath(), "path to the SQLite database")
	uploadRoot := flag.String("uploads", defaultUploadRoot(), "directory for accepted bank-statement uploads")
	pdfDir := flag.String("pdf-dir", filepath.Join("data", "pdfs"), "directory for generated submission PDFs")
	sheetPath := flag.String("sheet", filepath.Join("data", "submissions.xlsx"), "path to the submission tracking workbook")
	sessionTTL := flag.Duration("session-ttl", 24*time.Hour, "idle lifetime of a conversation session")
	flag.Parse()

	logger.Info("loanbridge: startup initiated", "addr", *addr, "db", *dbPath)

	dbCfg, err := sqlite.LoadConfig()
	if err != nil {
		fail(logger, "database config", err)
	}
	if trimmed := strings.TrimSpace(*dbPath); trimmed != "" {
		dbCfg.Path = trimmed
	}
	store, err := sqlite.OpenWithConfig(dbCfg)
	if err != nil {
		fail(logger, "open database", err)
	}
	defer store.Close()

	if err := seedAdmin(ctx, store); err != nil {
		fail(logger, "seed admin", err)
	}

	uploads, err := storage.NewStore(*uploadRoot)
	if err != nil {
		fail(logger, "upload store", err)
	}

	provider := llm.NewProvider()
	logger.Info("loanbridge: llm provider ready", "provider", provider.Name())

	rateClient := rates.NewClient()
	chatSvc := chat.NewService(provider, chat.NewHistoryStore(), rateClient, store)

	mailer := notify.NewMailer(notify.LoadConfig())
	sink := submit.NewService(store, uploads, mailer, *pdfDir, *sheetPath)

	sessions := flow.NewSessions(*sessionTTL)
	sessions.StartReaper(time.Hour)
	defer sessions.Close()

	engine := flow.NewEngine(flow.DefaultCatalog(), sessions, sink, chatSvc)

	tokens := auth.NewManager("", 0)
	if !tokens.Enabled() {
		logger.Warn("loanbridge: ADMIN_JWT_SECRET unset; admin endpoints disabled")
	}

	server, err := api.NewServer(engine, chatSvc, uploads, store, tokens, rateClient, sessions)
	if err != nil {
		fail(logger, "server construction", err)
	}

	logger.Info("loanbridge: server listening", "addr", *addr, "health", "/healthz")
	fmt.Printf("Serving on %s\n", *addr)
	if err := http.ListenAndServe(*addr, server); err != nil {
		logger.Error("loanbridge: server stopped", "error", err)
		fmt.Println("server stopped:", err)
	}
}

// seedAdmin ensures the bootstrap staff login exists when ADMIN_EMAIL and
// ADMIN_PASSWORD are provided.
func seedAdmin(ctx context.Context, store *sqlite.Store) error {
	email := strings.TrimSpace(os.Getenv("ADMIN_EMAIL"))
	password := os.Getenv("ADMIN_PASSWORD")
	if email == "" || password == "" {
		return nil
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	return store.UpsertAdmin(ctx, email, hash)
}

func fail(logger *slog.Logger, stage string, err error) {
	logger.Error("loanbridge: startup failed", "stage", stage, "error", err)
	fmt.Printf("%s error: %v\n", stage, err)
	os.Exit(1)
}

func defaultDBPath() string {
	return filepath.Join("data", "loanbridge.db")
}

func defaultUploadRoot() string {
	return filepath.Join("data", "uploads")
}
