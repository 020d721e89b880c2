// File path: internal/export/export_test.go
package export

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
)

func sampleRecord() Record {
	return Record{
		Email:       "buyer@example.com",
		SubmittedAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		Answers: []Answer{
			{Key: "email", Value: "buyer@example.com"},
			{Key: "borrower_name", Value: "Jane Doe"},
			{Key: "gross_pay", Value: "150000"},
		},
		Files: []string{"statement.pdf"},
	}
}

func TestAnswerLabel(t *testing.T) {
	cases := map[string]string{
		"email":            "Email",
		"borrower_name":    "Borrower Name",
		"gross_pay":        "Gross Pay",
		"co_borrower_name": "Co Borrower Name",
	}
	for key, want := range cases {
		if got := (Answer{Key: key}).Label(); got != want {
			t.Fatalf("label(%q) = %q, want %q", key, got, want)
		}
	}
}

func TestWritePDF(t *testing.T) {
	dir := t.TempDir()
	path, err := WritePDF(dir, sampleRecord())
	if err != nil {
		t.Fatalf("write pdf: %v", err)
	}
	if filepath.Base(path) != "preapproval_buyer_at_example.com.pdf" {
		t.Fatalf("pdf name = %q", filepath.Base(path))
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat pdf: %v", err)
	}
	if info.Size() == 0 {
		t.Fatal("pdf is empty")
	}
}

func TestAppendSheetCreatesAndAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "submissions.xlsx")
	rec := sampleRecord()

	if err := AppendSheet(path, rec); err != nil {
		t.Fatalf("first append: %v", err)
	}
	if err := AppendSheet(path, rec); err != nil {
		t.Fatalf("second append: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows("Sheet1")
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	// Header plus two data rows.
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}
	if rows[0][1] != "Email" || rows[0][2] != "Email" {
		// Column 1 is the timestamp header, column 2 the contact email,
		// column 3 the answered email field.
		t.Fatalf("header = %v", rows[0])
	}
	if rows[1][1] != "buyer@example.com" {
		t.Fatalf("data row = %v", rows[1])
	}
}
