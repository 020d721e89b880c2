// File path: internal/chat/service.go
package chat

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/harborlend/loanbridge/internal/common"
	"github.com/harborlend/loanbridge/internal/common/telemetry"
	"github.com/harborlend/loanbridge/internal/llm"
)

// RateSource supplies the informational helpers routed by keyword instead
// of the language model.
type RateSource interface {
	MortgageRates(ctx context.Context) (map[string]string, error)
	ProgramSummaries(ctx context.Context) map[string]string
}

// Transcript persists chat messages for the admin console. A nil transcript
// disables persistence.
type Transcript interface {
	RecordMessage(ctx context.Context, userID, message, sender string) error
}

var (
	rateKeywords    = []string{"mortgage rates", "home loan rates", "current rates", "rates"}
	programKeywords = []string{"fannie mae", "freddie mac", "hud", "government loan"}
)

// Service answers free-form turns: it keeps per-user history, routes rate
// and housing-program questions to scraped sources, and defers everything
// else to the language model. It implements flow.Oracle.
type Service struct {
	provider   llm.Provider
	histories  *HistoryStore
	rates      RateSource
	transcript Transcript
}

func NewService(provider llm.Provider, histories *HistoryStore, rates RateSource, transcript Transcript) *Service {
	if histories == nil {
		histories = NewHistoryStore()
	}
	return &Service{provider: provider, histories: histories, rates: rates, transcript: transcript}
}

// Answer handles one free-form turn for a user and returns the reply.
func (s *Service) Answer(ctx context.Context, userID, text string, fileNames []string) (string, error) {
	logger := common.Logger()
	message := strings.TrimSpace(text)
	if message != "" {
		s.histories.Append(userID, llm.Message{Role: "user", Content: message})
		s.record(ctx, userID, message, "user")
	}
	if len(fileNames) > 0 {
		s.histories.Append(userID, llm.Message{
			Role:    "system",
			Content: "User uploaded files: " + strings.Join(fileNames, ", "),
		})
	}

	reply, err := s.compose(ctx, userID, message)
	if err != nil {
		return "", err
	}
	reply = ApplyReferralPolicy(reply)

	if len(fileNames) > 0 {
		reply += fmt.Sprintf("\n\n✅ I've received your file(s): %s.", strings.Join(fileNames, ", "))
	}
	s.histories.Append(userID, llm.Message{Role: "assistant", Content: reply})
	if strings.TrimSpace(reply) != "" {
		s.record(ctx, userID, reply, "bot")
	}
	logger.Debug("chat: reply composed", "user", userID, "length", len(reply))
	return reply, nil
}

func (s *Service) compose(ctx context.Context, userID, message string) (string, error) {
	logger := common.Logger()
	lower := strings.ToLower(message)
	start := time.Now()

	if s.rates != nil && containsAny(lower, rateKeywords) {
		defer func() { telemetry.RecordOracle("rates", time.Since(start)) }()
		rates, err := s.rates.MortgageRates(ctx)
		if err != nil || len(rates) == 0 {
			logger.Warn("chat: live rates unavailable", "error", err)
			return "Sorry, I couldn't fetch the latest mortgage rates right now.", nil
		}
		keys := make([]string, 0, len(rates))
		for k := range rates {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var b strings.Builder
		b.WriteString("Today's current mortgage rates:\n")
		for _, k := range keys {
			fmt.Fprintf(&b, "%s: %s\n", k, rates[k])
		}
		b.WriteString("\nPlease reach out to us to get a personalized quote. Let me know if you would like to connect with a Loan Officer.")
		return b.String(), nil
	}

	if s.rates != nil && containsAny(lower, programKeywords) {
		defer func() { telemetry.RecordOracle("programs", time.Since(start)) }()
		summaries := s.rates.ProgramSummaries(ctx)
		names := make([]string, 0, len(summaries))
		for name := range summaries {
			names = append(names, name)
		}
		sort.Strings(names)
		var b strings.Builder
		b.WriteString("Here is official information on U.S. housing finance programs:\n\n")
		for _, name := range names {
			fmt.Fprintf(&b, "**%s**\n%s\n\n", name, summaries[name])
		}
		return strings.TrimRight(b.String(), "\n"), nil
	}

	if s.provider == nil {
		return "", fmt.Errorf("no chat provider configured")
	}
	defer func() { telemetry.RecordOracle("model", time.Since(start)) }()
	answer, err := s.provider.Chat(ctx, s.histories.Messages(userID))
	if err != nil {
		logger.Error("chat: completion failed", "user", userID, "error", err)
		return "", fmt.Errorf("chat completion: %w", err)
	}
	return strings.TrimSpace(answer), nil
}

func (s *Service) record(ctx context.Context, userID, message, sender string) {
	if s.transcript == nil {
		return
	}
	if err := s.transcript.RecordMessage(ctx, userID, message, sender); err != nil {
		common.Logger().Warn("chat: transcript write failed", "user", userID, "error", err)
	}
}

func containsAny(lower string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
