// File path: internal/submit/sink.go
package submit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/harborlend/loanbridge/internal/common"
	"github.com/harborlend/loanbridge/internal/common/telemetry"
	"github.com/harborlend/loanbridge/internal/export"
	"github.com/harborlend/loanbridge/internal/flow"
	"github.com/harborlend/loanbridge/internal/sqlite"
	"github.com/harborlend/loanbridge/internal/storage"
)

// Mailer is the notification surface the sink needs; *notify.Mailer
// satisfies it.
type Mailer interface {
	NotifyStaff(ctx context.Context, rec export.Record, attachmentPaths []string) error
	ConfirmApplicant(ctx context.Context, to string) error
}

// Service receives completed applications from the flow engine and fans them
// out: database row first, then PDF, spreadsheet and email legs. Only the
// database write can fail the submission; once the row is committed the
// remaining legs are best effort and logged on failure.
type Service struct {
	store   *sqlite.Store
	uploads *storage.Store
	mailer  Mailer

	pdfDir    string
	sheetPath string

	mailAttempts uint64
	mailBackoff  time.Duration
}

func NewService(store *sqlite.Store, uploads *storage.Store, mailer Mailer, pdfDir, sheetPath string) *Service {
	return &Service{
		store:        store,
		uploads:      uploads,
		mailer:       mailer,
		pdfDir:       pdfDir,
		sheetPath:    sheetPath,
		mailAttempts: 3,
		mailBackoff:  2 * time.Second,
	}
}

// Submit persists the application and runs the notification legs. Satisfies
// flow.SubmissionSink.
func (s *Service) Submit(ctx context.Context, req flow.SubmissionRequest) error {
	id := uuid.NewString()
	submittedAt := time.Now().UTC()
	if err := s.store.InsertSubmission(ctx, id, req.UserID, submittedAt, req.Order, req.Answers, req.Files); err != nil {
		telemetry.RecordSubmission(false)
		return fmt.Errorf("persist submission: %w", err)
	}
	telemetry.RecordSubmission(true)

	rec := buildRecord(req, submittedAt)
	log := common.Logger()
	log.Info("submission persisted", "submission_id", id, "email", req.UserID, "fields", len(rec.Answers), "files", len(rec.Files))

	attachments := make([]string, 0, len(req.Files))
	for _, f := range req.Files {
		if s.uploads != nil {
			attachments = append(attachments, s.uploads.Path(f.StoredID))
		}
	}

	if s.pdfDir != "" {
		if path, err := export.WritePDF(s.pdfDir, rec); err != nil {
			log.Warn("submission pdf failed", "submission_id", id, "error", err)
		} else {
			attachments = append(attachments, path)
		}
	}
	if s.sheetPath != "" {
		if err := export.AppendSheet(s.sheetPath, rec); err != nil {
			log.Warn("submission sheet append failed", "submission_id", id, "error", err)
		}
	}

	if s.mailer != nil {
		s.sendMail(ctx, id, rec, attachments)
	}
	return nil
}

// sendMail delivers staff and applicant notifications with bounded retries.
// Failures never surface to the caller; the submission is already durable.
func (s *Service) sendMail(ctx context.Context, id string, rec export.Record, attachments []string) {
	log := common.Logger()
	backoff := retry.WithMaxRetries(s.mailAttempts, retry.NewExponential(s.mailBackoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := s.mailer.NotifyStaff(ctx, rec, attachments); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		log.Warn("staff notification failed", "submission_id", id, "error", err)
	}
	if err := s.mailer.ConfirmApplicant(ctx, rec.Email); err != nil {
		log.Warn("applicant confirmation failed", "submission_id", id, "error", err)
	}
}

func buildRecord(req flow.SubmissionRequest, submittedAt time.Time) export.Record {
	rec := export.Record{
		Email:       req.UserID,
		SubmittedAt: submittedAt,
		Answers:     make([]export.Answer, 0, len(req.Order)),
		Files:       make([]string, 0, len(req.Files)),
	}
	for _, key := range req.Order {
		rec.Answers = append(rec.Answers, export.Answer{Key: key, Value: req.Answers[key]})
	}
	for _, f := range req.Files {
		rec.Files = append(rec.Files, f.OriginalName)
	}
	return rec
}
