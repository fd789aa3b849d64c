package qr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"strings"

	"github.com/heartmarshall/qrfactory/internal/domain"
	"github.com/heartmarshall/qrfactory/pkg/ctxutil"
)

// Scan looks up the record behind a scanned token and records exactly one
// scan log entry, whether or not the record exists.
func (s *Service) Scan(ctx context.Context, input ScanInput) (*domain.Record, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	code := strings.TrimSpace(input.Code)

	rec, err := s.records.GetByCode(ctx, code)
	found := err == nil

	meta := make(map[string]any, len(input.Meta)+3)
	maps.Copy(meta, input.Meta)
	if c := ctxutil.ClientFromCtx(ctx); c != (ctxutil.Client{}) {
		meta["userAgent"] = c.UserAgent
		meta["remoteAddr"] = c.RemoteAddr
	}
	meta["found"] = found
	s.logEntry(code, domain.ScanActionScan, meta)

	switch {
	case found:
		return rec, nil
	case errors.Is(err, domain.ErrNotFound):
		s.log.DebugContext(ctx, "scan of unknown code", slog.String("code", code))
		return nil, err
	default:
		return nil, fmt.Errorf("get record: %w", err)
	}
}

// Get returns the record with the given code without logging a scan.
func (s *Service) Get(ctx context.Context, code string) (*domain.Record, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, domain.NewValidationError("code", "required")
	}
	return s.records.GetByCode(ctx, code)
}
