// File path: internal/export/pdf.go
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-pdf/fpdf"
)

// WritePDF renders the application summary document and returns its path.
func WritePDF(dir string, rec Record) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create pdf dir: %w", err)
	}
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 10, "Pre-Approval Submission", "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "", 12)
	pdf.CellFormat(0, 8, "Email: "+rec.Email, "", 1, "L", false, 0, "")
	pdf.Ln(2)
	for _, ans := range rec.Answers {
		pdf.MultiCell(0, 8, fmt.Sprintf("%s: %s", ans.Label(), ans.Value), "", "L", false)
	}
	if len(rec.Files) > 0 {
		pdf.Ln(2)
		pdf.MultiCell(0, 8, "Uploaded files: "+strings.Join(rec.Files, ", "), "", "L", false)
	}
	pdf.Ln(4)
	pdf.CellFormat(0, 8, "Submitted: "+rec.SubmittedAt.UTC().Format("2006-01-02 15:04:05")+" UTC", "", 1, "L", false, 0, "")

	name := fmt.Sprintf("preapproval_%s.pdf", strings.ReplaceAll(rec.Email, "@", "_at_"))
	path := filepath.Join(dir, name)
	if err := pdf.OutputFileAndClose(path); err != nil {
		return "", fmt.Errorf("write pdf: %w", err)
	}
	return path, nil
}
