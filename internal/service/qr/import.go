package qr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/heartmarshall/qrfactory/internal/domain"
)

// ImportResult contains the outcome of a bulk import.
type ImportResult struct {
	Received int
	Imported int
	Skipped  int
	Errors   []ImportError
}

// ImportError describes a skipped row. Row is 1-based.
type ImportError struct {
	Row    int
	Code   string
	Reason string
}

// Import upserts every row of the batch in a single transaction. Rows must
// carry an explicit code. Invalid rows and rows whose statement fails are
// skipped and reported; a transaction failure fails the whole batch.
func (s *Service) Import(ctx context.Context, input ImportInput) (*ImportResult, error) {
	result := &ImportResult{Received: len(input.Rows)}
	if len(input.Rows) == 0 {
		return result, nil
	}

	var (
		imported []string
		rowErrs  []ImportError
	)

	txErr := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		now := s.now()
		for i, row := range input.Rows {
			rowNumber := i + 1
			rec := row.toRecord()

			if errs := validateRecord(rec); len(errs) > 0 {
				rowErrs = append(rowErrs, ImportError{
					Row:    rowNumber,
					Code:   rec.Code,
					Reason: reasonOf(errs),
				})
				continue
			}

			rec.UpdatedAt = now
			if _, err := s.records.Upsert(txCtx, rec); err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				rowErrs = append(rowErrs, ImportError{
					Row:    rowNumber,
					Code:   rec.Code,
					Reason: err.Error(),
				})
				continue
			}

			imported = append(imported, rec.Code)
		}
		return nil
	})
	if txErr != nil {
		return nil, fmt.Errorf("import batch: %w", txErr)
	}

	for _, code := range imported {
		s.logEntry(code, domain.ScanActionImport, nil)
	}

	result.Imported = len(imported)
	result.Skipped = len(rowErrs)
	result.Errors = rowErrs

	s.log.InfoContext(ctx, "records imported",
		slog.Int("received", result.Received),
		slog.Int("imported", result.Imported),
		slog.Int("skipped", result.Skipped),
	)

	return result, nil
}

func reasonOf(errs []domain.FieldError) string {
	parts := make([]string, len(errs))
	for i, e := range errs {
		parts[i] = e.Field + ": " + e.Message
	}
	return strings.Join(parts, "; ")
}
