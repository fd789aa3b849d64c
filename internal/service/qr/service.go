package qr

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/heartmarshall/qrfactory/internal/domain"
)

type recordRepo interface {
	Upsert(ctx context.Context, rec domain.Record) (string, error)
	GetByCode(ctx context.Context, code string) (*domain.Record, error)
	List(ctx context.Context, filter domain.RecordFilter) ([]domain.Record, error)
	Count(ctx context.Context) (int, error)
}

type scanLogRepo interface {
	Recent(ctx context.Context, filter domain.ScanLogFilter) ([]domain.ScanLogEntry, error)
}

// scanRecorder writes log entries asynchronously. Record never blocks and
// never fails the caller.
type scanRecorder interface {
	Record(entry domain.ScanLogEntry)
}

type txManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

const (
	MaxCodeLength      = 64
	MaxTextLength      = 1000
	DefaultHistorySize = 50
	MaxHistorySize     = 500
)

// Config holds the record code policy and the public base URL used to
// build scan links.
type Config struct {
	BaseURL     string
	RequireCode bool
	CodePrefix  string
	CodeLength  int
}

// Service provides record upsert, import, scan and lookup operations.
type Service struct {
	records  recordRepo
	scanLogs scanLogRepo
	recorder scanRecorder
	tx       txManager
	cfg      Config
	log      *slog.Logger
	now      func() time.Time
}

// NewService creates a new QR service.
func NewService(
	log *slog.Logger,
	records recordRepo,
	scanLogs scanLogRepo,
	recorder scanRecorder,
	tx txManager,
	cfg Config,
) *Service {
	if cfg.CodePrefix == "" && cfg.CodeLength == 0 {
		cfg.CodePrefix, cfg.CodeLength = "QR", 8
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &Service{
		records:  records,
		scanLogs: scanLogs,
		recorder: recorder,
		tx:       tx,
		cfg:      cfg,
		log:      log.With("service", "qr"),
		now:      func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

// ScanURL returns the public scan link for code.
func (s *Service) ScanURL(code string) string {
	return s.cfg.BaseURL + "/qr.html?token=" + url.QueryEscape(code)
}

// Count returns the number of stored records.
func (s *Service) Count(ctx context.Context) (int, error) {
	return s.records.Count(ctx)
}

func (s *Service) logEntry(code string, action domain.ScanAction, meta map[string]any) {
	s.recorder.Record(domain.ScanLogEntry{
		Code:      code,
		Action:    action,
		CreatedAt: s.now(),
		Meta:      meta,
	})
}
