// File path: internal/chat/history.go
package chat

import (
	"sync"

	"github.com/harborlend/loanbridge/internal/llm"
)

// SystemPrompt frames the free-form assistant. Structured pre-approval turns
// never reach the model; everything else is answered under this persona.
const SystemPrompt = `You are a knowledgeable and friendly assistant specializing in U.S. home loans and mortgages.
You provide clear, accurate, and up-to-date information about:
- Home loan types (fixed-rate, adjustable-rate, FHA, VA, USDA, jumbo, etc.)
- Mortgage interest rates and factors affecting them
- Loan eligibility, credit scores, and down payment requirements
- The home buying process, including pre-approval, application, underwriting, and closing
- Refinancing options and strategies
- Federal and state-specific programs for first-time buyers

Guidelines:
1. Only answer questions related to U.S. home loans, mortgages, or closely related financial topics.
2. If the question is outside your scope, politely say:
   "I specialize in U.S. home loans. Could you ask something related to that?"
3. Use plain, easy-to-understand language.
4. Provide examples, numbers, and explanations when helpful.
5. Keep tone professional but approachable, like a trusted loan advisor.`

// HistoryStore keeps the per-user free-form conversation log. It is
// independent of the structured flow state and append-only for the life of
// the process.
type HistoryStore struct {
	mu       sync.Mutex
	messages map[string][]llm.Message
}

func NewHistoryStore() *HistoryStore {
	return &HistoryStore{messages: make(map[string][]llm.Message)}
}

// Messages returns a copy of the user's history, seeding the system prompt
// on first access.
func (h *HistoryStore) Messages(userID string) []llm.Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	history := h.ensure(userID)
	out := make([]llm.Message, len(history))
	copy(out, history)
	return out
}

// Append adds a message to the user's history.
func (h *HistoryStore) Append(userID string, msg llm.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages[userID] = append(h.ensure(userID), msg)
}

// Reset drops a user's history; the system prompt is re-seeded on next use.
func (h *HistoryStore) Reset(userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.messages, userID)
}

func (h *HistoryStore) ensure(userID string) []llm.Message {
	history, ok := h.messages[userID]
	if !ok || len(history) == 0 {
		history = []llm.Message{{Role: "system", Content: SystemPrompt}}
		h.messages[userID] = history
	}
	return history
}
