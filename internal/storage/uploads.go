// File path: internal/storage/uploads.go
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/harborlend/loanbridge/internal/common"
	"github.com/harborlend/loanbridge/internal/flow"
)

// MaxFileSize caps individual bank-statement uploads at 10 MiB.
const MaxFileSize = 10 << 20

var allowedExtensions = map[string]string{
	".pdf":  "pdf",
	".jpg":  "jpg",
	".jpeg": "jpg",
	".png":  "png",
}

// RejectionError reports why an individual upload was refused. Rejections
// are per-file and never abort the rest of the turn.
type RejectionError struct {
	Name   string
	Reason string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Name, e.Reason)
}

// IsRejection reports whether err is an upload rejection.
func IsRejection(err error) bool {
	var rej *RejectionError
	return errors.As(err, &rej)
}

// Store writes accepted uploads under a root directory. Stored files are
// never deleted here; retention belongs to the operator.
type Store struct {
	root string
}

func NewStore(root string) (*Store, error) {
	trimmed := strings.TrimSpace(root)
	if trimmed == "" {
		return nil, errors.New("upload root required")
	}
	if err := os.MkdirAll(trimmed, 0o755); err != nil {
		return nil, fmt.Errorf("create upload root: %w", err)
	}
	return &Store{root: trimmed}, nil
}

// Root returns the directory accepted uploads are written to.
func (s *Store) Root() string { return s.root }

// Path resolves a stored identifier to its on-disk location.
func (s *Store) Path(storedID string) string {
	return filepath.Join(s.root, storedID)
}

// Accept validates one upload (extension whitelist, size cap), writes it
// under a UUID-prefixed name, and returns the immutable file record. A
// *RejectionError means the file was refused; other errors are I/O faults.
func (s *Store) Accept(ctx context.Context, name string, r io.Reader, declaredSize int64, userID string) (flow.UploadedFile, error) {
	logger := common.Logger()
	if err := ctx.Err(); err != nil {
		return flow.UploadedFile{}, err
	}
	base := filepath.Base(strings.TrimSpace(name))
	if base == "" || base == "." {
		return flow.UploadedFile{}, &RejectionError{Name: name, Reason: "file name required"}
	}
	ext := strings.ToLower(filepath.Ext(base))
	category, ok := allowedExtensions[ext]
	if !ok {
		return flow.UploadedFile{}, &RejectionError{
			Name:   base,
			Reason: fmt.Sprintf("file type %s not allowed; please upload PDF, JPG, JPEG, or PNG files only", ext),
		}
	}
	if declaredSize > MaxFileSize {
		return flow.UploadedFile{}, &RejectionError{
			Name:   base,
			Reason: fmt.Sprintf("file size exceeds maximum allowed size of %dMB", MaxFileSize/1024/1024),
		}
	}

	storedID := uuid.NewString() + "_" + base
	dest := filepath.Join(s.root, storedID)
	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return flow.UploadedFile{}, fmt.Errorf("create upload: %w", err)
	}
	written, err := io.Copy(out, io.LimitReader(r, MaxFileSize+1))
	closeErr := out.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(dest)
		return flow.UploadedFile{}, fmt.Errorf("write upload: %w", err)
	}
	if written > MaxFileSize {
		_ = os.Remove(dest)
		return flow.UploadedFile{}, &RejectionError{
			Name:   base,
			Reason: fmt.Sprintf("file size exceeds maximum allowed size of %dMB", MaxFileSize/1024/1024),
		}
	}

	record := flow.UploadedFile{
		OriginalName: base,
		StoredID:     storedID,
		Size:         written,
		MimeCategory: category,
		UploadedAt:   time.Now().UTC(),
		UserID:       userID,
	}
	logger.Info("storage: upload accepted", "file", base, "stored", storedID, "bytes", written, "user", userID)
	return record, nil
}
