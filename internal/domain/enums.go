package domain

import "strings"

// Status is the lifecycle state of a QR record.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusRevoked  Status = "revoked"
)

func (s Status) String() string { return string(s) }

func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusRevoked:
		return true
	}
	return false
}

// ParseStatus maps free-form input onto a Status. Matching ignores case and
// surrounding whitespace; empty or unrecognized input yields StatusActive.
func ParseStatus(s string) Status {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if st.IsValid() {
		return st
	}
	return StatusActive
}

// ScanAction identifies the event recorded in the scan log.
type ScanAction string

const (
	ScanActionCreated ScanAction = "created"
	ScanActionScan    ScanAction = "scan"
	ScanActionImport  ScanAction = "import"
)

func (a ScanAction) String() string { return string(a) }

func (a ScanAction) IsValid() bool {
	switch a {
	case ScanActionCreated, ScanActionScan, ScanActionImport:
		return true
	}
	return false
}
