package domain

import (
	"testing"
	"time"
)

func TestNormalizeRecord(t *testing.T) {
	t.Parallel()

	ts := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	got := NormalizeRecord(Record{
		Code:        "  QR1 ",
		ProductName: "\tMilk\n",
		BatchSerial: " B-7 ",
		MfgDate:     " 2025-01-01",
		ExpDate:     "2025-06-01 ",
		Note:        "  ",
		Status:      " Inactive ",
		UpdatedAt:   ts,
	})

	want := Record{
		Code:        "QR1",
		ProductName: "Milk",
		BatchSerial: "B-7",
		MfgDate:     "2025-01-01",
		ExpDate:     "2025-06-01",
		Note:        "",
		Status:      StatusInactive,
		UpdatedAt:   ts,
	}
	if got != want {
		t.Errorf("NormalizeRecord() = %+v, want %+v", got, want)
	}
}

func TestIsValidCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		code string
		want bool
	}{
		{name: "plain", code: "QR1", want: true},
		{name: "punctuation", code: "LOT-2025/07", want: true},
		{name: "unicode", code: "Ä1", want: true},
		{name: "empty", code: "", want: false},
		{name: "inner space", code: "QR 1", want: false},
		{name: "tab", code: "QR\t1", want: false},
		{name: "newline", code: "QR1\n", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := IsValidCode(tt.code); got != tt.want {
				t.Errorf("IsValidCode(%q) = %v, want %v", tt.code, got, tt.want)
			}
		})
	}
}
