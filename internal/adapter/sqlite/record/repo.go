// Package record implements the product record repository on SQLite.
package record

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"

	"github.com/heartmarshall/qrfactory/internal/adapter/sqlite"
	"github.com/heartmarshall/qrfactory/internal/domain"
)

const table = "products"

var columns = []string{
	"code", "product_name", "batch_serial", "mfg_date", "exp_date", "note", "status", "updated_at",
}

// Repo provides product record persistence.
type Repo struct {
	db *sql.DB
}

// New creates a new record repository.
func New(db *sql.DB) *Repo {
	return &Repo{db: db}
}

// Upsert inserts rec or, when its code already exists, overwrites every
// mutable field. Participates in the transaction carried by ctx.
func (r *Repo) Upsert(ctx context.Context, rec domain.Record) (string, error) {
	query := sqlite.Builder().
		Insert(table).
		Columns(columns...).
		Values(
			rec.Code, rec.ProductName, rec.BatchSerial, rec.MfgDate, rec.ExpDate,
			rec.Note, string(rec.Status), sqlite.FormatTime(rec.UpdatedAt),
		).
		Suffix(`ON CONFLICT(code) DO UPDATE SET
			product_name = excluded.product_name,
			batch_serial = excluded.batch_serial,
			mfg_date     = excluded.mfg_date,
			exp_date     = excluded.exp_date,
			note         = excluded.note,
			status       = excluded.status,
			updated_at   = excluded.updated_at`)

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return "", fmt.Errorf("build upsert product: %w", err)
	}

	if _, err := sqlite.QuerierFromCtx(ctx, r.db).ExecContext(ctx, sqlStr, args...); err != nil {
		return "", sqlite.MapError(err, "product", rec.Code)
	}

	return rec.Code, nil
}

// GetByCode returns the record with the given code or domain.ErrNotFound.
func (r *Repo) GetByCode(ctx context.Context, code string) (*domain.Record, error) {
	sqlStr, args, err := sqlite.Builder().
		Select(columns...).
		From(table).
		Where(squirrel.Eq{"code": code}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get product: %w", err)
	}

	row := sqlite.QuerierFromCtx(ctx, r.db).QueryRowContext(ctx, sqlStr, args...)
	rec, err := scanRecord(row)
	if err != nil {
		return nil, sqlite.MapError(err, "product", code)
	}

	return rec, nil
}

// List returns records ordered by updated_at DESC, then code ASC.
// A non-empty filter query matches case-insensitively as a substring of
// code, product name or batch serial.
func (r *Repo) List(ctx context.Context, filter domain.RecordFilter) ([]domain.Record, error) {
	query := sqlite.Builder().
		Select(columns...).
		From(table).
		OrderBy("updated_at DESC", "code ASC")

	if q := strings.TrimSpace(filter.Query); q != "" {
		pattern := "%" + escapeLike(strings.ToLower(q)) + "%"
		query = query.Where(squirrel.Or{
			squirrel.Expr(`LOWER(code) LIKE ? ESCAPE '\'`, pattern),
			squirrel.Expr(`LOWER(product_name) LIKE ? ESCAPE '\'`, pattern),
			squirrel.Expr(`LOWER(batch_serial) LIKE ? ESCAPE '\'`, pattern),
		})
	}

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list products: %w", err)
	}

	rows, err := sqlite.QuerierFromCtx(ctx, r.db).QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	records := make([]domain.Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	return records, nil
}

// Count returns the number of stored records.
func (r *Repo) Count(ctx context.Context) (int, error) {
	sqlStr, args, err := sqlite.Builder().Select("COUNT(*)").From(table).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count products: %w", err)
	}

	var n int
	if err := sqlite.QuerierFromCtx(ctx, r.db).QueryRowContext(ctx, sqlStr, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*domain.Record, error) {
	var (
		rec       domain.Record
		status    string
		updatedAt string
	)
	if err := s.Scan(
		&rec.Code, &rec.ProductName, &rec.BatchSerial, &rec.MfgDate, &rec.ExpDate,
		&rec.Note, &status, &updatedAt,
	); err != nil {
		return nil, err
	}

	rec.Status = domain.Status(status)

	ts, err := sqlite.ParseTime(updatedAt)
	if err != nil {
		return nil, err
	}
	rec.UpdatedAt = ts

	return &rec, nil
}

// escapeLike escapes LIKE wildcards so user input matches literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
