// File path: internal/submit/sink_test.go
package submit

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/harborlend/loanbridge/internal/export"
	"github.com/harborlend/loanbridge/internal/flow"
	"github.com/harborlend/loanbridge/internal/sqlite"
	"github.com/harborlend/loanbridge/internal/storage"
)

type countingMailer struct {
	mu        sync.Mutex
	staff     int
	applicant int
	fail      bool
}

func (m *countingMailer) NotifyStaff(ctx context.Context, rec export.Record, attachmentPaths []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("smtp down")
	}
	m.staff++
	return nil
}

func (m *countingMailer) ConfirmApplicant(ctx context.Context, to string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("smtp down")
	}
	m.applicant++
	return nil
}

func testRequest() flow.SubmissionRequest {
	return flow.SubmissionRequest{
		UserID: "buyer@example.com",
		Order:  []string{"email", "borrower_name"},
		Answers: map[string]string{
			"email":         "buyer@example.com",
			"borrower_name": "Jane Doe",
		},
		Files: []flow.UploadedFile{{
			OriginalName: "statement.pdf",
			StoredID:     "uuid_statement.pdf",
			Size:         1024,
			MimeCategory: "pdf",
			UploadedAt:   time.Now().UTC(),
			UserID:       "buyer@example.com",
		}},
	}
}

func newTestService(t *testing.T, mailer Mailer) (*Service, *sqlite.Store) {
	t.Helper()
	dir := t.TempDir()
	store, err := sqlite.Open(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	uploads, err := storage.NewStore(filepath.Join(dir, "uploads"))
	if err != nil {
		t.Fatalf("upload store: %v", err)
	}
	svc := NewService(store, uploads, mailer, filepath.Join(dir, "pdfs"), filepath.Join(dir, "submissions.xlsx"))
	svc.mailBackoff = time.Millisecond
	return svc, store
}

func TestSubmitPersistsAndNotifies(t *testing.T) {
	mailer := &countingMailer{}
	svc, store := newTestService(t, mailer)

	if err := svc.Submit(context.Background(), testRequest()); err != nil {
		t.Fatalf("submit: %v", err)
	}

	subs, err := store.ListSubmissions(context.Background(), 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(subs) != 1 {
		t.Fatalf("submissions = %d, want 1", len(subs))
	}
	if mailer.staff != 1 || mailer.applicant != 1 {
		t.Fatalf("mail legs: staff=%d applicant=%d", mailer.staff, mailer.applicant)
	}
	if _, err := os.Stat(svc.pdfDir); err != nil {
		t.Fatalf("pdf dir missing: %v", err)
	}
	if _, err := os.Stat(svc.sheetPath); err != nil {
		t.Fatalf("workbook missing: %v", err)
	}
}

func TestSubmitSurvivesMailFailure(t *testing.T) {
	mailer := &countingMailer{fail: true}
	svc, store := newTestService(t, mailer)

	// The row is durable; mail failures must never fail the submission.
	if err := svc.Submit(context.Background(), testRequest()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	subs, err := store.ListSubmissions(context.Background(), 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(subs) != 1 {
		t.Fatalf("submissions = %d, want 1", len(subs))
	}
}

func TestSubmitWithoutMailer(t *testing.T) {
	svc, store := newTestService(t, nil)
	if err := svc.Submit(context.Background(), testRequest()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	rows, err := store.SubmissionAnswers(context.Background(), mustSubmissionID(t, store))
	if err != nil {
		t.Fatalf("answers: %v", err)
	}
	if len(rows) != 2 || rows[0].FieldKey != "email" {
		t.Fatalf("answers = %+v", rows)
	}
}

func mustSubmissionID(t *testing.T, store *sqlite.Store) string {
	t.Helper()
	subs, err := store.ListSubmissions(context.Background(), 0)
	if err != nil || len(subs) == 0 {
		t.Fatalf("no submissions: %v", err)
	}
	return subs[0].ID
}
