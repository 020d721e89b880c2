// File path: internal/export/sheet.go
package export

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Sheet1"

// AppendSheet appends one application as a row to the tracking workbook,
// creating the workbook with a header row if it does not exist yet.
func AppendSheet(path string, rec Record) error {
	var f *excelize.File
	if _, err := os.Stat(path); err == nil {
		f, err = excelize.OpenFile(path)
		if err != nil {
			return fmt.Errorf("open workbook: %w", err)
		}
	} else if errors.Is(err, os.ErrNotExist) {
		f = excelize.NewFile()
		header := []interface{}{"Submitted At", "Email"}
		for _, ans := range rec.Answers {
			header = append(header, ans.Label())
		}
		header = append(header, "Uploaded Files")
		if err := setRow(f, 1, header); err != nil {
			return err
		}
	} else {
		return fmt.Errorf("stat workbook: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return fmt.Errorf("read workbook rows: %w", err)
	}
	row := []interface{}{rec.SubmittedAt.UTC().Format("2006-01-02 15:04:05"), rec.Email}
	for _, ans := range rec.Answers {
		row = append(row, ans.Value)
	}
	row = append(row, strings.Join(rec.Files, ", "))
	if err := setRow(f, len(rows)+1, row); err != nil {
		return err
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, rowIdx int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, rowIdx)
	if err != nil {
		return fmt.Errorf("resolve cell: %w", err)
	}
	if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
		return fmt.Errorf("set row %d: %w", rowIdx, err)
	}
	return nil
}
