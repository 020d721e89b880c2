// File path: internal/sqlite/queries.go
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/harborlend/loanbridge/internal/flow"
)

// ErrNotFound marks a lookup that matched no rows.
var ErrNotFound = errors.New("not found")

// RecordMessage appends one transcript entry. Satisfies chat.Transcript.
func (s *Store) RecordMessage(ctx context.Context, email, message, sender string) error {
	if s == nil || s.db == nil {
		return errors.New("sqlite store not initialised")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chats (email, message, sender, message_type, created_at) VALUES (?, ?, ?, 'text', ?)`,
		email, message, sender, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("insert chat: %w", err)
	}
	return nil
}

// RecordFileUpload appends a transcript entry marking an accepted upload.
func (s *Store) RecordFileUpload(ctx context.Context, email, originalName string) error {
	if s == nil || s.db == nil {
		return errors.New("sqlite store not initialised")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chats (email, message, sender, message_type, created_at) VALUES (?, ?, 'user', 'file_upload', ?)`,
		email, originalName, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("insert file upload chat: %w", err)
	}
	return nil
}

// ListChats returns the newest transcript entries, optionally filtered by
// email.
func (s *Store) ListChats(ctx context.Context, email string, limit int) ([]ChatRow, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("sqlite store not initialised")
	}
	if limit <= 0 {
		limit = 100
	}
	chats := []ChatRow{}
	if strings.TrimSpace(email) == "" {
		if err := s.db.SelectContext(ctx, &chats,
			`SELECT * FROM chats ORDER BY created_at DESC, id DESC LIMIT ?`, limit); err != nil {
			return nil, fmt.Errorf("select chats: %w", err)
		}
		return chats, nil
	}
	if err := s.db.SelectContext(ctx, &chats,
		`SELECT * FROM chats WHERE email = ? ORDER BY created_at DESC, id DESC LIMIT ?`, email, limit); err != nil {
		return nil, fmt.Errorf("select chats: %w", err)
	}
	return chats, nil
}

// InsertSubmission persists a completed application with its answers (in
// catalog order) and file records in a single transaction. Inserting the
// same submission id twice is an error; callers generate a fresh id per
// completed flow instance.
func (s *Store) InsertSubmission(ctx context.Context, id, email string, submittedAt time.Time, order []string, answers map[string]string, files []flow.UploadedFile) error {
	if s == nil || s.db == nil {
		return errors.New("sqlite store not initialised")
	}
	if strings.TrimSpace(id) == "" {
		return errors.New("submission id required")
	}
	return withTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO submissions (id, email, submitted_at) VALUES (?, ?, ?)`,
			id, email, submittedAt.UTC()); err != nil {
			return fmt.Errorf("insert submission: %w", err)
		}
		for pos, key := range order {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO submission_answers (submission_id, position, field_key, answer) VALUES (?, ?, ?, ?)`,
				id, pos, key, answers[key]); err != nil {
				return fmt.Errorf("insert answer %s: %w", key, err)
			}
		}
		for _, f := range files {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO submission_files (submission_id, original_name, stored_id, size_bytes, mime_category, uploaded_at)
                                 VALUES (?, ?, ?, ?, ?, ?)`,
				id, f.OriginalName, f.StoredID, f.Size, f.MimeCategory, f.UploadedAt.UTC()); err != nil {
				return fmt.Errorf("insert submission file: %w", err)
			}
		}
		return nil
	})
}

// ListSubmissions returns submission headers, newest first.
func (s *Store) ListSubmissions(ctx context.Context, limit int) ([]SubmissionRow, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("sqlite store not initialised")
	}
	if limit <= 0 {
		limit = 50
	}
	rows := []SubmissionRow{}
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT * FROM submissions ORDER BY submitted_at DESC LIMIT ?`, limit); err != nil {
		return nil, fmt.Errorf("select submissions: %w", err)
	}
	return rows, nil
}

// SubmissionAnswers returns a submission's answers in catalog order.
func (s *Store) SubmissionAnswers(ctx context.Context, submissionID string) ([]AnswerRow, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("sqlite store not initialised")
	}
	rows := []AnswerRow{}
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT * FROM submission_answers WHERE submission_id = ? ORDER BY position`, submissionID); err != nil {
		return nil, fmt.Errorf("select submission answers: %w", err)
	}
	return rows, nil
}

// SubmissionFiles returns the file records attached to a submission.
func (s *Store) SubmissionFiles(ctx context.Context, submissionID string) ([]FileRow, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("sqlite store not initialised")
	}
	rows := []FileRow{}
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT * FROM submission_files WHERE submission_id = ? ORDER BY id`, submissionID); err != nil {
		return nil, fmt.Errorf("select submission files: %w", err)
	}
	return rows, nil
}

// AdminByEmail fetches a staff login record.
func (s *Store) AdminByEmail(ctx context.Context, email string) (*AdminRow, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("sqlite store not initialised")
	}
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return nil, errors.New("admin email required")
	}
	var row AdminRow
	if err := s.db.GetContext(ctx, &row, `SELECT * FROM admins WHERE email = ?`, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select admin: %w", err)
	}
	return &row, nil
}

// UpsertAdmin creates or updates a staff login.
func (s *Store) UpsertAdmin(ctx context.Context, email, passwordHash string) error {
	if s == nil || s.db == nil {
		return errors.New("sqlite store not initialised")
	}
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return errors.New("admin email required")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO admins (email, password_hash, created_at) VALUES (?, ?, ?)
                 ON CONFLICT(email) DO UPDATE SET password_hash = excluded.password_hash`,
		email, passwordHash, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert admin: %w", err)
	}
	return nil
}
