// File path: internal/flow/engine_test.go
package flow

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

type recordingSink struct {
	mu    sync.Mutex
	calls int
	last  SubmissionRequest
	err   error
}

func (s *recordingSink) Submit(ctx context.Context, req SubmissionRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.calls++
	s.last = req
	return nil
}

type cannedOracle struct {
	calls int
	reply string
}

func (o *cannedOracle) Answer(ctx context.Context, userID, text string, fileNames []string) (string, error) {
	o.calls++
	return o.reply, nil
}

func newTestEngine(t *testing.T) (*Engine, *recordingSink, *cannedOracle) {
	t.Helper()
	sink := &recordingSink{}
	oracle := &cannedOracle{reply: "happy to help"}
	engine := NewEngine(DefaultCatalog(), NewSessions(0), sink, oracle)
	return engine, sink, oracle
}

func send(t *testing.T, engine *Engine, user, text string, files ...UploadedFile) Result {
	t.Helper()
	res, err := engine.HandleTurn(context.Background(), Turn{UserID: user, Text: text, Files: files})
	if err != nil {
		t.Fatalf("turn %q failed: %v", text, err)
	}
	return res
}

func TestStartTriggerOpensEmailConfirmation(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	res := send(t, engine, "buyer@example.com", "I'd like to get a preapproval")
	if !strings.Contains(res.Reply, "Great! Let's begin your pre-approval process.") {
		t.Fatalf("missing intro: %q", res.Reply)
	}
	if !strings.Contains(res.Reply, "Your email is: buyer@example.com") {
		t.Fatalf("missing email confirmation: %q", res.Reply)
	}
	if !strings.Contains(res.Reply, "keep this email? (yes/no)") {
		t.Fatalf("missing keep prompt: %q", res.Reply)
	}
}

func TestStartTriggerVariants(t *testing.T) {
	for _, text := range []string{"PRE-APPROVAL please", "pre app", "can we do a pre-app", "preapp now"} {
		engine, _, oracle := newTestEngine(t)
		res := send(t, engine, "buyer@example.com", text)
		if !strings.Contains(res.Reply, "begin your pre-approval") {
			t.Fatalf("trigger %q not detected: %q", text, res.Reply)
		}
		if oracle.calls != 0 {
			t.Fatalf("trigger %q reached the oracle", text)
		}
	}
}

func TestNonTriggerGoesToOracle(t *testing.T) {
	engine, _, oracle := newTestEngine(t)
	res := send(t, engine, "buyer@example.com", "what are current mortgage rates?")
	if res.Reply != "happy to help" {
		t.Fatalf("expected oracle reply, got %q", res.Reply)
	}
	if oracle.calls != 1 {
		t.Fatalf("oracle calls = %d, want 1", oracle.calls)
	}
}

func TestEmailConfirmationKeep(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	send(t, engine, "buyer@example.com", "preapproval")
	res := send(t, engine, "buyer@example.com", "yes")
	if !strings.Contains(res.Reply, "Email kept as buyer@example.com") {
		t.Fatalf("email not kept: %q", res.Reply)
	}
	if !strings.Contains(res.Reply, "Borrower First Name") {
		t.Fatalf("next prompt missing: %q", res.Reply)
	}
}

func TestEmailConfirmationReplace(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	send(t, engine, "buyer@example.com", "preapproval")
	res := send(t, engine, "buyer@example.com", "no")
	if !strings.Contains(res.Reply, "preferred email") {
		t.Fatalf("expected email re-entry prompt: %q", res.Reply)
	}
	res = send(t, engine, "buyer@example.com", "other@example.com")
	if !strings.Contains(res.Reply, "Email updated to other@example.com") {
		t.Fatalf("email not updated: %q", res.Reply)
	}
}

func TestInvalidAnswerDoesNotAdvance(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	user := "buyer@example.com"
	send(t, engine, user, "preapproval")
	send(t, engine, user, "yes")
	send(t, engine, user, "Jane Doe")
	send(t, engine, user, "None")

	res := send(t, engine, user, "not-a-phone")
	if !strings.HasPrefix(res.Reply, "Invalid input. Please try again.") {
		t.Fatalf("expected invalid-input reply, got %q", res.Reply)
	}
	if !strings.Contains(res.Reply, "Phone Number") {
		t.Fatalf("prompt not re-emitted: %q", res.Reply)
	}
	// A valid answer still lands on the same question.
	res = send(t, engine, user, "1234567890")
	if !strings.Contains(res.Reply, "Purchase Price") {
		t.Fatalf("cursor did not advance after valid answer: %q", res.Reply)
	}
}

func TestBackRevisitsAndOverwrites(t *testing.T) {
	engine, sink, _ := newTestEngine(t)
	user := "buyer@example.com"
	send(t, engine, user, "preapproval")
	send(t, engine, user, "yes")
	send(t, engine, user, "Jane Doe")

	res := send(t, engine, user, "back")
	if !strings.Contains(res.Reply, "Okay, let's go back.") {
		t.Fatalf("missing back acknowledgment: %q", res.Reply)
	}
	if !strings.Contains(res.Reply, "Borrower First Name") {
		t.Fatalf("previous prompt not re-shown: %q", res.Reply)
	}
	send(t, engine, user, "Janet Doe")
	completeFlowFrom(t, engine, user, 2)
	if got := sink.last.Answers["borrower_name"]; got != "Janet Doe" {
		t.Fatalf("re-answer did not overwrite: %q", got)
	}
}

func TestBackAtFirstQuestionStays(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	user := "buyer@example.com"
	send(t, engine, user, "preapproval")
	res := send(t, engine, user, "back")
	if !strings.Contains(res.Reply, "Email Address") {
		t.Fatalf("expected first prompt, got %q", res.Reply)
	}
}

func TestRestartDiscardsProgress(t *testing.T) {
	engine, sink, _ := newTestEngine(t)
	user := "buyer@example.com"
	send(t, engine, user, "preapproval")
	send(t, engine, user, "yes")
	send(t, engine, user, "Jane Doe")

	res := send(t, engine, user, "restart")
	if !strings.HasPrefix(res.Reply, "Pre-approval process restarted.") {
		t.Fatalf("missing restart reply: %q", res.Reply)
	}
	if !strings.Contains(res.Reply, "Email Address") {
		t.Fatalf("first prompt missing after restart: %q", res.Reply)
	}
	// Redo the flow; the final submission must not contain stale answers.
	res = send(t, engine, user, "hello")
	if !strings.Contains(res.Reply, "keep this email? (yes/no)") {
		t.Fatalf("email confirmation missing after restart: %q", res.Reply)
	}
	send(t, engine, user, "no")
	send(t, engine, user, "fresh@example.com")
	completeFlowFrom(t, engine, user, 1)
	if got := sink.last.Answers[FieldEmail]; got != "fresh@example.com" {
		t.Fatalf("restart kept stale email: %q", got)
	}
}

// completeFlowFrom answers the remaining text questions starting at the
// given cursor and finishes with an upload, driving the flow to submission.
func completeFlowFrom(t *testing.T, engine *Engine, user string, cursor int) Result {
	t.Helper()
	answers := map[string]string{
		"borrower_name":    "Jane Doe",
		"co_borrower_name": "None",
		"phone":            "1234567890",
		"purchase_price":   "500,000",
		"loan_amount":      "400000",
		"down_payment":     "100000",
		"property_address": "TBD",
		"gross_pay":        "150000",
		"foreign_assets":   "No",
		"credit_score":     "720",
	}
	catalog := engine.Catalog()
	for i := cursor; i < catalog.Len()-1; i++ {
		send(t, engine, user, answers[catalog.Field(i).Key])
	}
	return send(t, engine, user, "", UploadedFile{
		OriginalName: "statement.pdf",
		StoredID:     "abc_statement.pdf",
		Size:         1024,
		MimeCategory: "pdf",
		UploadedAt:   time.Now().UTC(),
		UserID:       user,
	})
}

func TestUploadStepRejectsText(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	user := "buyer@example.com"
	send(t, engine, user, "preapproval")
	send(t, engine, user, "yes")
	for _, answer := range []string{"Jane Doe", "None", "1234567890", "500000", "400000", "100000", "TBD", "150000", "No"} {
		send(t, engine, user, answer)
	}
	res := send(t, engine, user, "720")
	if !strings.Contains(res.Reply, "upload your bank statement") {
		t.Fatalf("upload reminder missing: %q", res.Reply)
	}

	res = send(t, engine, user, "here you go")
	if !strings.Contains(res.Reply, "Bank statements are required") {
		t.Fatalf("text at upload step not refused: %q", res.Reply)
	}
	res = send(t, engine, user, "")
	if !strings.Contains(res.Reply, "Please upload your bank statements") {
		t.Fatalf("empty turn at upload step not prompted: %q", res.Reply)
	}
}

func TestCompletionSubmitsExactlyOnce(t *testing.T) {
	engine, sink, _ := newTestEngine(t)
	user := "buyer@example.com"
	send(t, engine, user, "preapproval")
	send(t, engine, user, "yes")

	res := completeFlowFrom(t, engine, user, 1)
	if !res.Submitted {
		t.Fatal("completion not reported")
	}
	if !strings.Contains(res.Reply, "✅ Thanks! We've received your complete pre-approval application") {
		t.Fatalf("completion reply missing: %q", res.Reply)
	}
	if sink.calls != 1 {
		t.Fatalf("sink calls = %d, want 1", sink.calls)
	}

	wantOrder := []string{
		"email", "borrower_name", "co_borrower_name", "phone", "purchase_price",
		"loan_amount", "down_payment", "property_address", "gross_pay",
		"foreign_assets", "credit_score", "bank_statements",
	}
	if len(sink.last.Order) != len(wantOrder) {
		t.Fatalf("order length = %d, want %d", len(sink.last.Order), len(wantOrder))
	}
	for i, key := range wantOrder {
		if sink.last.Order[i] != key {
			t.Fatalf("order[%d] = %q, want %q", i, sink.last.Order[i], key)
		}
	}
	if len(sink.last.Files) != 1 || sink.last.Files[0].OriginalName != "statement.pdf" {
		t.Fatalf("submission files wrong: %+v", sink.last.Files)
	}

	// The flow resets after submission; another message goes to the oracle.
	res = send(t, engine, user, "thanks!")
	if res.Submitted {
		t.Fatal("second turn must not submit")
	}
	if sink.calls != 1 {
		t.Fatalf("sink fired again: %d calls", sink.calls)
	}
}

func TestSinkFailurePreservesStateForRetry(t *testing.T) {
	engine, sink, _ := newTestEngine(t)
	user := "buyer@example.com"
	send(t, engine, user, "preapproval")
	send(t, engine, user, "yes")
	for _, answer := range []string{"Jane Doe", "None", "1234567890", "500000", "400000", "100000", "TBD", "150000", "No", "720"} {
		send(t, engine, user, answer)
	}

	sink.err = errors.New("database offline")
	file := UploadedFile{OriginalName: "statement.pdf", StoredID: "x_statement.pdf", MimeCategory: "pdf"}
	_, err := engine.HandleTurn(context.Background(), Turn{UserID: user, Text: "", Files: []UploadedFile{file}})
	if err == nil {
		t.Fatal("expected submission failure")
	}
	if sink.calls != 0 {
		t.Fatalf("failed submit counted: %d", sink.calls)
	}

	// Retrying the same turn after recovery completes the flow.
	sink.err = nil
	res := send(t, engine, user, "", file)
	if !res.Submitted {
		t.Fatal("retry did not submit")
	}
	if sink.calls != 1 {
		t.Fatalf("sink calls after retry = %d, want 1", sink.calls)
	}
}

func TestCancelledContextReturnsErrCancelled(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := engine.HandleTurn(ctx, Turn{UserID: "buyer@example.com", Text: "preapproval"})
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("got %v, want ErrCancelled", err)
	}
}

func TestRestartTriggersOnlyOutsideActiveFlow(t *testing.T) {
	engine, _, oracle := newTestEngine(t)
	user := "buyer@example.com"
	send(t, engine, user, "preapproval")
	// Mid-flow, a message containing a trigger word is treated as an answer,
	// not a second flow start.
	res := send(t, engine, user, "no")
	if !strings.Contains(res.Reply, "preferred email") {
		t.Fatalf("mid-flow input misrouted: %q", res.Reply)
	}
	if oracle.calls != 0 {
		t.Fatal("active flow leaked to oracle")
	}
}

func TestUsersAreIsolated(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	send(t, engine, "a@example.com", "preapproval")
	res := send(t, engine, "b@example.com", "hello there")
	if res.Reply != "happy to help" {
		t.Fatalf("second user inherited first user's flow: %q", res.Reply)
	}
}
