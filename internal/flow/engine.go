// File path: internal/flow/engine.go
package flow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/harborlend/loanbridge/internal/common"
)

// ErrCancelled marks a turn abandoned because the caller's context ended.
// Handlers surface it as a distinct "request cancelled" outcome.
var ErrCancelled = errors.New("request cancelled")

// State enumerates where a conversation sits in the questionnaire.
type State int

const (
	StateIdle State = iota
	StateAwaitingEmailConfirm
	StateAwaitingAnswer
	StateAwaitingUpload
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingEmailConfirm:
		return "awaiting_email_confirm"
	case StateAwaitingAnswer:
		return "awaiting_answer"
	case StateAwaitingUpload:
		return "awaiting_upload"
	case StateCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// StateOf derives the enumerated state of a conversation against a catalog.
func StateOf(c Conversation, catalog *Catalog) State {
	if !c.Active {
		return StateIdle
	}
	if c.Cursor >= catalog.Len() {
		return StateCompleted
	}
	field := catalog.Field(c.Cursor)
	switch {
	case field.Key == FieldEmail:
		return StateAwaitingEmailConfirm
	case field.RequiresUpload:
		return StateAwaitingUpload
	default:
		return StateAwaitingAnswer
	}
}

// Turn is one inbound message for a user: free text plus zero or more files
// already accepted by the upload store.
type Turn struct {
	UserID string
	Text   string
	Files  []UploadedFile
}

// SubmissionRequest carries a completed answer set to the submission sink.
// Order lists the answered catalog keys in canonical question order so
// exports can re-project the map deterministically.
type SubmissionRequest struct {
	UserID  string
	Answers map[string]string
	Order   []string
	Files   []UploadedFile
}

// SubmissionSink persists a completed application and notifies staff. The
// engine calls it at most once per flow instance.
type SubmissionSink interface {
	Submit(ctx context.Context, req SubmissionRequest) error
}

// Oracle answers turns that fall outside the structured flow.
type Oracle interface {
	Answer(ctx context.Context, userID, text string, fileNames []string) (string, error)
}

// Result is the outcome of one processed turn.
type Result struct {
	Reply     string
	Submitted bool
}

var startTriggers = []string{"preapproval", "pre-approval", "pre approval", "pre app", "pre-app", "preapp"}

const (
	invalidInputPrefix = "Invalid input. Please try again.\n\n"
	uploadReminder     = "\n\n\U0001F4CE Important: You must upload your bank statement files to proceed. Text responses will not be accepted for this step."
	uploadRetryReply   = "❌ Please upload your bank statements (PDF, JPG, or PNG files) to continue with the pre-approval process.\n\nYou can upload multiple files if needed."
	uploadRequired     = "❌ Error: Bank statements are required to complete your pre-approval. Please upload your recent bank statements (PDF, JPG, or PNG files)."
	alreadyCompleted   = "Pre-approval process already completed!"
	completionReply    = "✅ Thanks! We've received your complete pre-approval application with all required documents."
)

// Engine drives the pre-approval state machine. Transitions are computed by
// the pure transition function; HandleTurn is the thin effect runner that
// serializes per user, fires the submission sink, and commits state only
// after effects succeed.
type Engine struct {
	catalog  *Catalog
	sessions *Sessions
	sink     SubmissionSink
	oracle   Oracle
}

func NewEngine(catalog *Catalog, sessions *Sessions, sink SubmissionSink, oracle Oracle) *Engine {
	return &Engine{catalog: catalog, sessions: sessions, sink: sink, oracle: oracle}
}

// Catalog exposes the engine's field catalog.
func (e *Engine) Catalog() *Catalog { return e.catalog }

// HandleTurn processes one inbound turn to completion. Turns for the same
// user are serialized on the per-user session lock; collaborator failures
// leave the conversation exactly as it was so the caller can retry the turn.
func (e *Engine) HandleTurn(ctx context.Context, turn Turn) (Result, error) {
	logger := common.Logger()
	userID := strings.TrimSpace(turn.UserID)
	if userID == "" {
		return Result{}, fmt.Errorf("user id required")
	}
	turn.UserID = userID

	sess := e.sessions.acquire(userID)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return Result{}, ErrCancelled
	}

	tr := transition(e.catalog, sess.conv, turn)
	if tr.toOracle {
		if e.oracle == nil {
			return Result{}, fmt.Errorf("no oracle configured")
		}
		names := make([]string, 0, len(turn.Files))
		for _, f := range turn.Files {
			names = append(names, f.OriginalName)
		}
		reply, err := e.oracle.Answer(ctx, userID, turn.Text, names)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return Result{}, ErrCancelled
			}
			logger.Error("flow: oracle call failed", "user", userID, "error", err)
			return Result{}, fmt.Errorf("answer question: %w", err)
		}
		return Result{Reply: reply}, nil
	}

	if tr.submission != nil {
		if e.sink == nil {
			return Result{}, fmt.Errorf("no submission sink configured")
		}
		if err := e.sink.Submit(ctx, *tr.submission); err != nil {
			if errors.Is(err, context.Canceled) {
				return Result{}, ErrCancelled
			}
			// State is left untouched so resending the turn retries the
			// submission instead of losing the application.
			logger.Error("flow: submission failed", "user", userID, "error", err)
			return Result{}, fmt.Errorf("submit application: %w", err)
		}
		logger.Info("flow: application submitted", "user", userID, "answers", len(tr.submission.Answers), "files", len(tr.submission.Files))
		sess.conv = newConversation()
		sess.touched = time.Now()
		return Result{Reply: tr.reply, Submitted: true}, nil
	}

	sess.conv = tr.conv
	sess.touched = time.Now()
	return Result{Reply: tr.reply}, nil
}

// transitionResult is the outcome of the pure transition: the would-be next
// conversation, the reply, and at most one requested side effect.
type transitionResult struct {
	conv       Conversation
	reply      string
	submission *SubmissionRequest
	toOracle   bool
}

// transition computes the next conversation for one turn without performing
// any I/O. Precedence: restart, back, start trigger, active-flow step,
// oracle fallback.
func transition(catalog *Catalog, conv Conversation, turn Turn) transitionResult {
	next := conv.clone()
	text := strings.TrimSpace(turn.Text)
	lower := strings.ToLower(text)

	// 1. Restart wins unconditionally and discards prior progress.
	if lower == "restart" {
		next = newConversation()
		next.Active = true
		return transitionResult{
			conv:  next,
			reply: "Pre-approval process restarted.\n\n" + catalog.Field(0).Prompt,
		}
	}

	// 2. Back steps the cursor toward the first question. Earlier answers
	// stay recorded; re-answering overwrites them.
	if lower == "back" && next.Active {
		if next.Cursor > 0 {
			next.Cursor--
		}
		prompt := alreadyCompleted
		if next.Cursor < catalog.Len() {
			prompt = catalog.Field(next.Cursor).Prompt
		}
		return transitionResult{conv: next, reply: "Okay, let's go back.\n" + prompt}
	}

	// 3. Start trigger activates a fresh flow and pre-seeds the caller's
	// asserted email identity.
	if !next.Active && containsStartTrigger(lower) {
		next = newConversation()
		next.Active = true
		next.Answers[FieldEmail] = turn.UserID
		intro := "Great! Let's begin your pre-approval process.\n\n"
		if catalog.Field(0).Key == FieldEmail {
			return transitionResult{conv: next, reply: intro + emailConfirmPrompt(turn.UserID)}
		}
		return transitionResult{conv: next, reply: intro + catalog.Field(0).Prompt}
	}

	// 4. Active-flow step.
	if next.Active {
		if next.Cursor >= catalog.Len() {
			return transitionResult{conv: next, reply: alreadyCompleted}
		}
		next.Files = append(next.Files, turn.Files...)
		field := catalog.Field(next.Cursor)
		switch {
		case field.Key == FieldEmail:
			return stepEmail(catalog, next, turn, text, lower)
		case field.RequiresUpload:
			return stepUpload(catalog, next, turn, field, text)
		default:
			return stepAnswer(catalog, next, field, text)
		}
	}

	// 5. No active flow and no trigger: hand the turn to the oracle.
	return transitionResult{conv: conv, toOracle: true}
}

func stepEmail(catalog *Catalog, next Conversation, turn Turn, text, lower string) transitionResult {
	current := next.Answers[FieldEmail]
	if current == "" {
		next.Answers[FieldEmail] = turn.UserID
		return transitionResult{conv: next, reply: emailConfirmPrompt(turn.UserID)}
	}
	switch {
	case lower == "yes" || lower == "y":
		next.Cursor++
		if next.Cursor < catalog.Len() {
			reply := fmt.Sprintf("✅ Email kept as %s.\n\n%s", current, nextPrompt(catalog, next.Cursor))
			return transitionResult{conv: next, reply: reply}
		}
		return transitionResult{conv: next, reply: fmt.Sprintf("✅ Email kept as %s.", current)}
	case lower == "no" || lower == "n":
		return transitionResult{conv: next, reply: "Please enter your preferred email:"}
	case strings.Contains(text, "@"):
		next.Answers[FieldEmail] = text
		next.Cursor++
		if next.Cursor < catalog.Len() {
			reply := fmt.Sprintf("✅ Email updated to %s.\n\n%s", text, nextPrompt(catalog, next.Cursor))
			return transitionResult{conv: next, reply: reply}
		}
		return transitionResult{conv: next, reply: fmt.Sprintf("✅ Email updated to %s.", text)}
	default:
		// Parse failure, not a validation failure: re-emit the
		// confirmation without mutating anything.
		return transitionResult{conv: next, reply: emailConfirmPrompt(turn.UserID)}
	}
}

func stepUpload(catalog *Catalog, next Conversation, turn Turn, field Field, text string) transitionResult {
	if len(turn.Files) == 0 {
		if text == "" {
			return transitionResult{conv: next, reply: uploadRetryReply}
		}
		return transitionResult{conv: next, reply: uploadRequired}
	}
	names := make([]string, 0, len(turn.Files))
	for _, f := range turn.Files {
		names = append(names, f.OriginalName)
	}
	joined := strings.Join(names, ", ")
	next.Answers[field.Key] = "Files uploaded: " + joined
	next.Cursor++
	if next.Cursor < catalog.Len() {
		reply := fmt.Sprintf("✅ Thank you! I've received your bank statements: %s\n\n%s", joined, nextPrompt(catalog, next.Cursor))
		return transitionResult{conv: next, reply: reply}
	}
	req := buildSubmission(catalog, next, turn.UserID)
	reply := fmt.Sprintf("I've received your bank statements: %s\n\n%s", joined, completionReply)
	return transitionResult{conv: next, reply: reply, submission: &req}
}

func stepAnswer(catalog *Catalog, next Conversation, field Field, text string) transitionResult {
	if !catalog.Validate(field, text) {
		return transitionResult{conv: next, reply: invalidInputPrefix + field.Prompt}
	}
	next.Answers[field.Key] = text
	next.Cursor++
	if next.Cursor < catalog.Len() {
		return transitionResult{conv: next, reply: nextPrompt(catalog, next.Cursor)}
	}
	// The production catalog ends on the upload field, so an ordinary field
	// finishing the flow only happens with a custom catalog; there is no
	// terminal side effect in that configuration.
	return transitionResult{conv: next, reply: alreadyCompleted}
}

func buildSubmission(catalog *Catalog, conv Conversation, userID string) SubmissionRequest {
	order := make([]string, 0, len(conv.Answers))
	for _, f := range catalog.Fields() {
		if _, ok := conv.Answers[f.Key]; ok {
			order = append(order, f.Key)
		}
	}
	answers := make(map[string]string, len(conv.Answers))
	for k, v := range conv.Answers {
		answers[k] = v
	}
	return SubmissionRequest{
		UserID:  userID,
		Answers: answers,
		Order:   order,
		Files:   append([]UploadedFile(nil), conv.Files...),
	}
}

func nextPrompt(catalog *Catalog, cursor int) string {
	field := catalog.Field(cursor)
	prompt := field.Prompt
	if field.RequiresUpload {
		prompt += uploadReminder
	}
	return prompt
}

func emailConfirmPrompt(email string) string {
	return fmt.Sprintf("• Your email is: %s\n• Do you want to keep this email? (yes/no)", email)
}

func containsStartTrigger(lower string) bool {
	for _, trigger := range startTriggers {
		if strings.Contains(lower, trigger) {
			return true
		}
	}
	return false
}
