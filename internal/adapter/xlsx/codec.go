// Package xlsx converts product records to and from Excel workbooks.
package xlsx

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/heartmarshall/qrfactory/internal/domain"
)

const (
	SheetName   = "Products"
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	timeLayout  = "2006-01-02 15:04:05"
)

// Header is the column order written by Encode.
var Header = []string{"code", "productName", "batchSerial", "mfgDate", "expDate", "note", "status", "updatedAt"}

// ErrNoCodeColumn is returned when the header row has no code column.
var ErrNoCodeColumn = errors.New("xlsx: header has no code column")

// headerAliases maps normalized header labels to field names.
var headerAliases = map[string]string{
	"code":        "code",
	"qr":          "code",
	"token":       "code",
	"productname": "productName",
	"product":     "productName",
	"name":        "productName",
	"batchserial": "batchSerial",
	"batch":       "batchSerial",
	"serial":      "batchSerial",
	"mfgdate":     "mfgDate",
	"mfg":         "mfgDate",
	"expdate":     "expDate",
	"exp":         "expDate",
	"note":        "note",
	"notes":       "note",
	"noteextra":   "note",
	"status":      "status",
	"updatedat":   "updatedAt",
}

// Encode writes records as a single-sheet workbook with a header row.
func Encode(w io.Writer, records []domain.Record) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("xlsx: rename sheet: %w", err)
	}

	header := make([]any, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("xlsx: write header: %w", err)
	}

	for i, rec := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("xlsx: cell name: %w", err)
		}
		row := []any{
			rec.Code, rec.ProductName, rec.BatchSerial, rec.MfgDate, rec.ExpDate,
			rec.Note, rec.Status.String(), rec.UpdatedAt.UTC().Format(timeLayout),
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("xlsx: write row %d: %w", i+2, err)
		}
	}

	if err := f.SetColWidth(SheetName, "A", "H", 20); err != nil {
		return fmt.Errorf("xlsx: column width: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("xlsx: write workbook: %w", err)
	}
	return nil
}

// Decode reads the first sheet of a workbook. The first row is the header;
// columns are matched by name ignoring case, spaces, '_' and '-'. Fully blank
// rows are skipped. Values are returned as-is; normalization is left to the
// caller.
func Decode(r io.Reader) ([]domain.Record, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("xlsx: open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("xlsx: workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("xlsx: read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrNoCodeColumn
	}

	columns := make(map[string]int)
	for i, label := range rows[0] {
		if field, ok := headerAliases[normalizeHeader(label)]; ok {
			if _, dup := columns[field]; !dup {
				columns[field] = i
			}
		}
	}
	if _, ok := columns["code"]; !ok {
		return nil, ErrNoCodeColumn
	}

	records := make([]domain.Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		get := func(field string) string {
			i, ok := columns[field]
			if !ok || i >= len(row) {
				return ""
			}
			return row[i]
		}
		records = append(records, domain.Record{
			Code:        get("code"),
			ProductName: get("productName"),
			BatchSerial: get("batchSerial"),
			MfgDate:     get("mfgDate"),
			ExpDate:     get("expDate"),
			Note:        get("note"),
			Status:      domain.Status(get("status")),
		})
	}

	return records, nil
}

func normalizeHeader(s string) string {
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(strings.ToLower(strings.TrimSpace(s)))
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
