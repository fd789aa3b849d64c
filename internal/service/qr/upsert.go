package qr

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/heartmarshall/qrfactory/internal/domain"
)

// UpsertResult is the stored record together with its scan link.
type UpsertResult struct {
	Code    string
	ScanURL string
	Record  domain.Record
}

// Upsert creates the record or overwrites the one with the same code.
// A blank code is replaced by a generated one unless RequireCode is set.
func (s *Service) Upsert(ctx context.Context, input UpsertInput) (*UpsertResult, error) {
	rec := input.toRecord()

	if rec.Code == "" && !s.cfg.RequireCode {
		code, err := domain.GenerateCode(s.cfg.CodePrefix, s.cfg.CodeLength)
		if err != nil {
			return nil, err
		}
		rec.Code = code
	}

	if errs := validateRecord(rec); len(errs) > 0 {
		return nil, domain.NewValidationErrors(errs)
	}

	rec.UpdatedAt = s.now()

	code, err := s.records.Upsert(ctx, rec)
	if err != nil {
		return nil, fmt.Errorf("upsert record: %w", err)
	}

	s.logEntry(code, domain.ScanActionCreated, nil)

	s.log.InfoContext(ctx, "record upserted",
		slog.String("code", code),
		slog.String("status", rec.Status.String()),
	)

	return &UpsertResult{
		Code:    code,
		ScanURL: s.ScanURL(code),
		Record:  rec,
	}, nil
}
