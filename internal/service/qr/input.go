package qr

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/heartmarshall/qrfactory/internal/domain"
)

// UpsertInput holds the client-supplied fields of a record.
// Code may be blank, in which case a code is generated unless the
// service requires one.
type UpsertInput struct {
	Code        string
	ProductName string
	BatchSerial string
	MfgDate     string
	ExpDate     string
	Note        string
	Status      string
}

// toRecord trims every field and coerces the status.
func (i UpsertInput) toRecord() domain.Record {
	return domain.NormalizeRecord(domain.Record{
		Code:        i.Code,
		ProductName: i.ProductName,
		BatchSerial: i.BatchSerial,
		MfgDate:     i.MfgDate,
		ExpDate:     i.ExpDate,
		Note:        i.Note,
		Status:      domain.Status(i.Status),
	})
}

// validateRecord checks a normalized record and collects all errors.
func validateRecord(rec domain.Record) []domain.FieldError {
	var errs []domain.FieldError

	switch {
	case rec.Code == "":
		errs = append(errs, domain.FieldError{Field: "code", Message: "required"})
	case utf8.RuneCountInString(rec.Code) > MaxCodeLength:
		errs = append(errs, domain.FieldError{Field: "code", Message: fmt.Sprintf("max %d characters", MaxCodeLength)})
	case !domain.IsValidCode(rec.Code):
		errs = append(errs, domain.FieldError{Field: "code", Message: "must not contain whitespace or control characters"})
	}

	for _, f := range []struct{ name, value string }{
		{"productName", rec.ProductName},
		{"batchSerial", rec.BatchSerial},
		{"mfgDate", rec.MfgDate},
		{"expDate", rec.ExpDate},
		{"note", rec.Note},
	} {
		if utf8.RuneCountInString(f.value) > MaxTextLength {
			errs = append(errs, domain.FieldError{Field: f.name, Message: fmt.Sprintf("max %d characters", MaxTextLength)})
		}
	}

	return errs
}

// ImportInput holds the rows of a bulk import.
type ImportInput struct {
	Rows []UpsertInput
}

// ScanInput identifies the scanned token and carries request metadata
// stored with the scan log entry.
type ScanInput struct {
	Code string
	Meta map[string]any
}

// Validate checks all fields and collects all errors.
func (i ScanInput) Validate() error {
	if strings.TrimSpace(i.Code) == "" {
		return domain.NewValidationError("token", "required")
	}
	return nil
}

// ListInput holds the record listing filter.
type ListInput struct {
	Query string
}

// HistoryInput holds the scan log query. Limit 0 means the default.
type HistoryInput struct {
	Code   string
	Action string
	Limit  int
}

// Validate checks all fields and collects all errors.
func (i HistoryInput) Validate() error {
	var errs []domain.FieldError

	if i.Limit < 0 {
		errs = append(errs, domain.FieldError{Field: "limit", Message: "must be >= 0"})
	}
	if a := strings.TrimSpace(i.Action); a != "" && !domain.ScanAction(strings.ToLower(a)).IsValid() {
		errs = append(errs, domain.FieldError{Field: "action", Message: "must be one of created, scan, import"})
	}

	if len(errs) > 0 {
		return domain.NewValidationErrors(errs)
	}
	return nil
}
