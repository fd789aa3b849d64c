// Package scanlog implements the append-only scan log repository on SQLite.
package scanlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/Masterminds/squirrel"

	"github.com/heartmarshall/qrfactory/internal/adapter/sqlite"
	"github.com/heartmarshall/qrfactory/internal/domain"
)

const table = "scan_logs"

// Repo provides scan log persistence.
type Repo struct {
	db *sql.DB
}

// New creates a new scan log repository.
func New(db *sql.DB) *Repo {
	return &Repo{db: db}
}

// Append stores entry and returns its id. Meta is stored as a JSON object;
// an empty map is stored as NULL.
func (r *Repo) Append(ctx context.Context, entry domain.ScanLogEntry) (int64, error) {
	var meta any
	if len(entry.Meta) > 0 {
		b, err := json.Marshal(entry.Meta)
		if err != nil {
			return 0, fmt.Errorf("scan_log marshal meta: %w", err)
		}
		meta = string(b)
	}

	sqlStr, args, err := sqlite.Builder().
		Insert(table).
		Columns("code", "action", "created_at", "meta").
		Values(entry.Code, string(entry.Action), sqlite.FormatTime(entry.CreatedAt), meta).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build append scan_log: %w", err)
	}

	res, err := sqlite.QuerierFromCtx(ctx, r.db).ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return 0, sqlite.MapError(err, "scan_log", entry.Code)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("scan_log last insert id: %w", err)
	}
	return id, nil
}

// Recent returns up to filter.Limit entries ordered by id DESC, optionally
// restricted to one code and one action. A non-positive limit returns nothing.
func (r *Repo) Recent(ctx context.Context, filter domain.ScanLogFilter) ([]domain.ScanLogEntry, error) {
	entries := make([]domain.ScanLogEntry, 0)
	if filter.Limit <= 0 {
		return entries, nil
	}

	query := sqlite.Builder().
		Select("id", "code", "action", "created_at", "meta").
		From(table).
		OrderBy("id DESC").
		Limit(uint64(filter.Limit))

	if filter.Code != "" {
		query = query.Where(squirrel.Eq{"code": filter.Code})
	}
	if filter.Action != "" {
		query = query.Where(squirrel.Eq{"action": string(filter.Action)})
	}

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build recent scan_logs: %w", err)
	}

	rows, err := sqlite.QuerierFromCtx(ctx, r.db).QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("recent scan_logs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			e         domain.ScanLogEntry
			action    string
			createdAt string
			meta      sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.Code, &action, &createdAt, &meta); err != nil {
			return nil, fmt.Errorf("scan scan_log: %w", err)
		}

		e.Action = domain.ScanAction(action)
		if e.CreatedAt, err = sqlite.ParseTime(createdAt); err != nil {
			return nil, fmt.Errorf("scan_log %d: %w", e.ID, err)
		}
		if meta.Valid && meta.String != "" {
			if err := json.Unmarshal([]byte(meta.String), &e.Meta); err != nil {
				return nil, fmt.Errorf("scan_log %d unmarshal meta: %w", e.ID, err)
			}
		}

		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("recent scan_logs: %w", err)
	}

	return entries, nil
}
