package qr

import (
	"context"
	"strings"

	"github.com/heartmarshall/qrfactory/internal/domain"
)

// List returns records, newest first, optionally filtered by a substring
// of code, product name or batch serial.
func (s *Service) List(ctx context.Context, input ListInput) ([]domain.Record, error) {
	return s.records.List(ctx, domain.RecordFilter{Query: strings.TrimSpace(input.Query)})
}

// History returns the most recent scan log entries. The limit defaults to
// DefaultHistorySize and is capped at MaxHistorySize.
func (s *Service) History(ctx context.Context, input HistoryInput) ([]domain.ScanLogEntry, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	limit := input.Limit
	switch {
	case limit == 0:
		limit = DefaultHistorySize
	case limit > MaxHistorySize:
		limit = MaxHistorySize
	}

	return s.scanLogs.Recent(ctx, domain.ScanLogFilter{
		Code:   strings.TrimSpace(input.Code),
		Action: domain.ScanAction(strings.ToLower(strings.TrimSpace(input.Action))),
		Limit:  limit,
	})
}
