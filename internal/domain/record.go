package domain

import "time"

// Record is a product record addressed by its QR code.
type Record struct {
	Code        string    `json:"code"`
	ProductName string    `json:"productName"`
	BatchSerial string    `json:"batchSerial"`
	MfgDate     string    `json:"mfgDate"`
	ExpDate     string    `json:"expDate"`
	Note        string    `json:"note"`
	Status      Status    `json:"status"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ScanLogEntry is an immutable event in the scan log.
// Code is not required to reference an existing record.
type ScanLogEntry struct {
	ID        int64          `json:"id"`
	Code      string         `json:"code"`
	Action    ScanAction     `json:"action"`
	CreatedAt time.Time      `json:"createdAt"`
	Meta      map[string]any `json:"meta,omitempty"`
}

// RecordFilter narrows a record listing. An empty Query matches everything.
type RecordFilter struct {
	Query string
}

// ScanLogFilter narrows a scan log query. Zero values mean "any".
type ScanLogFilter struct {
	Code   string
	Action ScanAction
	Limit  int
}
