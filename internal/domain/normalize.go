package domain

import (
	"strings"
)

// NormalizeRecord trims every text field and coerces the status.
// UpdatedAt is left untouched.
func NormalizeRecord(r Record) Record {
	return Record{
		Code:        strings.TrimSpace(r.Code),
		ProductName: strings.TrimSpace(r.ProductName),
		BatchSerial: strings.TrimSpace(r.BatchSerial),
		MfgDate:     strings.TrimSpace(r.MfgDate),
		ExpDate:     strings.TrimSpace(r.ExpDate),
		Note:        strings.TrimSpace(r.Note),
		Status:      ParseStatus(string(r.Status)),
		UpdatedAt:   r.UpdatedAt,
	}
}

// IsValidCode reports whether code is non-empty and free of whitespace and
// control characters.
func IsValidCode(code string) bool {
	if code == "" {
		return false
	}
	for _, r := range code {
		if r <= ' ' || r == 0x7f {
			return false
		}
	}
	return true
}
