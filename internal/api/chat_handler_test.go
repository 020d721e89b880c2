// File path: internal/api/chat_handler_test.go
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/harborlend/loanbridge/internal/flow"
	"github.com/harborlend/loanbridge/internal/storage"
)

type stubSink struct{ calls int }

func (s *stubSink) Submit(ctx context.Context, req flow.SubmissionRequest) error {
	s.calls++
	return nil
}

type stubOracle struct{ reply string }

func (o *stubOracle) Answer(ctx context.Context, userID, text string, fileNames []string) (string, error) {
	return o.reply, nil
}

func newTestServer(t *testing.T) (*Server, *stubSink) {
	t.Helper()
	uploads, err := storage.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("upload store: %v", err)
	}
	sink := &stubSink{}
	sessions := flow.NewSessions(0)
	engine := flow.NewEngine(flow.DefaultCatalog(), sessions, sink, &stubOracle{reply: "ask me about mortgages"})
	srv, err := NewServer(engine, nil, uploads, nil, nil, nil, sessions)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	return srv, sink
}

func postJSON(t *testing.T, srv *Server, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/v1/chat", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func decodeChat(t *testing.T, rec *httptest.ResponseRecorder) chatResponse {
	t.Helper()
	var resp chatResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func TestChatRequiresEmail(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := postJSON(t, srv, chatRequest{Message: "hello"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestChatStartTrigger(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := postJSON(t, srv, chatRequest{Email: "buyer@example.com", Message: "preapproval please"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	resp := decodeChat(t, rec)
	if !strings.Contains(resp.Response, "begin your pre-approval") {
		t.Fatalf("reply = %q", resp.Response)
	}
}

func TestChatFallsBackToOracle(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := postJSON(t, srv, chatRequest{Email: "buyer@example.com", Message: "what is PMI?"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if resp := decodeChat(t, rec); resp.Response != "ask me about mortgages" {
		t.Fatalf("reply = %q", resp.Response)
	}
}

func postMultipart(t *testing.T, srv *Server, email, message string, files map[string][]byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if err := writer.WriteField("email", email); err != nil {
		t.Fatalf("write email: %v", err)
	}
	if err := writer.WriteField("message", message); err != nil {
		t.Fatalf("write message: %v", err)
	}
	for name, content := range files {
		part, err := writer.CreateFormFile("files", name)
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		if _, err := part.Write(content); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/v1/chat", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func driveToUploadStep(t *testing.T, srv *Server, email string) {
	t.Helper()
	answers := []string{
		"preapproval", "yes", "Jane Doe", "None", "1234567890", "500000",
		"400000", "100000", "TBD", "150000", "No", "720",
	}
	for _, msg := range answers {
		rec := postJSON(t, srv, chatRequest{Email: email, Message: msg})
		if rec.Code != http.StatusOK {
			t.Fatalf("turn %q: status %d", msg, rec.Code)
		}
	}
}

func TestChatUploadCompletesFlow(t *testing.T) {
	srv, sink := newTestServer(t)
	driveToUploadStep(t, srv, "buyer@example.com")

	rec := postMultipart(t, srv, "buyer@example.com", "", map[string][]byte{
		"statement.pdf": []byte("%PDF-1.4 data"),
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	resp := decodeChat(t, rec)
	if !resp.Submitted {
		t.Fatalf("flow not submitted: %q", resp.Response)
	}
	if !strings.Contains(resp.Response, "complete pre-approval application") {
		t.Fatalf("completion reply missing: %q", resp.Response)
	}
	if sink.calls != 1 {
		t.Fatalf("sink calls = %d, want 1", sink.calls)
	}
}

func TestChatRejectedFileDoesNotAbortTurn(t *testing.T) {
	srv, sink := newTestServer(t)
	driveToUploadStep(t, srv, "buyer@example.com")

	rec := postMultipart(t, srv, "buyer@example.com", "", map[string][]byte{
		"statement.pdf": []byte("%PDF-1.4 data"),
		"malware.exe":   []byte("nope"),
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	resp := decodeChat(t, rec)
	if len(resp.Rejected) != 1 || !strings.Contains(resp.Rejected[0], "malware.exe") {
		t.Fatalf("rejections = %v", resp.Rejected)
	}
	// The accepted file still completes the flow.
	if !resp.Submitted || sink.calls != 1 {
		t.Fatalf("submitted=%v sink=%d", resp.Submitted, sink.calls)
	}
	if !strings.Contains(resp.Response, "Some files could not be accepted") {
		t.Fatalf("rejection notice missing: %q", resp.Response)
	}
}

func TestChatCancelledContext(t *testing.T) {
	srv, _ := newTestServer(t)
	payload, _ := json.Marshal(chatRequest{Email: "buyer@example.com", Message: "hi"})
	req := httptest.NewRequest(http.MethodPost, "/v1/chat", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	ctx, cancel := context.WithCancel(req.Context())
	cancel()
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req.WithContext(ctx))
	if rec.Code != statusClientClosedRequest {
		t.Fatalf("status = %d, want %d", rec.Code, statusClientClosedRequest)
	}
	if !strings.Contains(rec.Body.String(), "Request cancelled by client") {
		t.Fatalf("body = %q", rec.Body.String())
	}
}

func TestChatState(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/v1/chat/state?email=buyer@example.com", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var state chatStateResponse
	if err := json.NewDecoder(rec.Body).Decode(&state); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if state.State != "idle" || state.Active {
		t.Fatalf("fresh state = %+v", state)
	}

	postJSON(t, srv, chatRequest{Email: "buyer@example.com", Message: "preapproval"})
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/chat/state?email=buyer@example.com", nil))
	if err := json.NewDecoder(rec.Body).Decode(&state); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !state.Active || state.State != "awaiting_email_confirm" {
		t.Fatalf("active state = %+v", state)
	}
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthz: %d %q", rec.Code, rec.Body.String())
	}
}

func TestAmortizationEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	body := `{"homePrice":400000,"downPayment":20,"downPaymentType":"percent","loanTerm":30,"interestRate":6,"startMonth":1,"startYear":2025}`
	req := httptest.NewRequest(http.MethodPost, "/v1/amortization/calculate", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var res map[string]interface{}
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res["loanAmount"].(float64) != 320000 {
		t.Fatalf("loanAmount = %v", res["loanAmount"])
	}
}
