// File path: internal/sqlite/types.go
package sqlite

import "time"

// ChatRow is one persisted chat transcript entry.
type ChatRow struct {
	ID          int64     `db:"id" json:"id"`
	Email       string    `db:"email" json:"email"`
	Message     string    `db:"message" json:"message"`
	Sender      string    `db:"sender" json:"sender"`
	MessageType string    `db:"message_type" json:"message_type"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// SubmissionRow is the header record of a completed pre-approval
// application.
type SubmissionRow struct {
	ID          string    `db:"id" json:"id"`
	Email       string    `db:"email" json:"email"`
	SubmittedAt time.Time `db:"submitted_at" json:"submitted_at"`
}

// AnswerRow is one answered field of a submission, ordered by Position
// (canonical catalog order).
type AnswerRow struct {
	SubmissionID string `db:"submission_id"`
	Position     int    `db:"position"`
	FieldKey     string `db:"field_key"`
	Answer       string `db:"answer"`
}

// FileRow records one uploaded bank statement attached to a submission.
type FileRow struct {
	ID           int64     `db:"id"`
	SubmissionID string    `db:"submission_id"`
	OriginalName string    `db:"original_name"`
	StoredID     string    `db:"stored_id"`
	SizeBytes    int64     `db:"size_bytes"`
	MimeCategory string    `db:"mime_category"`
	UploadedAt   time.Time `db:"uploaded_at"`
}

// AdminRow is a staff login record.
type AdminRow struct {
	ID           int64     `db:"id"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
}
