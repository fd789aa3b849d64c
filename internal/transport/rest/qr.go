package rest

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/heartmarshall/qrfactory/internal/domain"
	"github.com/heartmarshall/qrfactory/internal/service/qr"
)

type qrService interface {
	Upsert(ctx context.Context, input qr.UpsertInput) (*qr.UpsertResult, error)
	Import(ctx context.Context, input qr.ImportInput) (*qr.ImportResult, error)
	Scan(ctx context.Context, input qr.ScanInput) (*domain.Record, error)
	Get(ctx context.Context, code string) (*domain.Record, error)
	List(ctx context.Context, input qr.ListInput) ([]domain.Record, error)
	History(ctx context.Context, input qr.HistoryInput) ([]domain.ScanLogEntry, error)
}

// QRHandler serves the record endpoints.
type QRHandler struct {
	svc qrService
	log *slog.Logger
}

// NewQRHandler creates a QRHandler.
func NewQRHandler(svc qrService, logger *slog.Logger) *QRHandler {
	return &QRHandler{
		svc: svc,
		log: logger.With("handler", "qr"),
	}
}

type recordRequest struct {
	Code        string `json:"code"`
	ProductName string `json:"productName"`
	BatchSerial string `json:"batchSerial"`
	MfgDate     string `json:"mfgDate"`
	ExpDate     string `json:"expDate"`
	Note        string `json:"note"`
	Status      string `json:"status"`
}

func (r recordRequest) toInput() qr.UpsertInput {
	return qr.UpsertInput{
		Code:        r.Code,
		ProductName: r.ProductName,
		BatchSerial: r.BatchSerial,
		MfgDate:     r.MfgDate,
		ExpDate:     r.ExpDate,
		Note:        r.Note,
		Status:      r.Status,
	}
}

type upsertResponse struct {
	OK      bool          `json:"ok"`
	Code    string        `json:"code"`
	ScanURL string        `json:"scanUrl"`
	Data    domain.Record `json:"data"`
}

type recordResponse struct {
	OK   bool           `json:"ok"`
	Data *domain.Record `json:"data"`
}

type rowsResponse[T any] struct {
	OK   bool `json:"ok"`
	Rows []T  `json:"rows"`
}

type importRequest struct {
	Rows []recordRequest `json:"rows"`
}

type importErrorDTO struct {
	Row    int    `json:"row"`
	Code   string `json:"code,omitempty"`
	Reason string `json:"reason"`
}

type importResponse struct {
	OK       bool             `json:"ok"`
	Received int              `json:"received"`
	Imported int              `json:"imported"`
	Skipped  int              `json:"skipped"`
	Errors   []importErrorDTO `json:"errors"`
}

func toImportResponse(res *qr.ImportResult) importResponse {
	errs := make([]importErrorDTO, len(res.Errors))
	for i, e := range res.Errors {
		errs[i] = importErrorDTO{Row: e.Row, Code: e.Code, Reason: e.Reason}
	}
	return importResponse{
		OK:       true,
		Received: res.Received,
		Imported: res.Imported,
		Skipped:  res.Skipped,
		Errors:   errs,
	}
}

// Upsert creates or replaces a record.
// POST /api/qr
func (h *QRHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	var req recordRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, r, h.log, err)
		return
	}

	res, err := h.svc.Upsert(r.Context(), req.toInput())
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, upsertResponse{
		OK:      true,
		Code:    res.Code,
		ScanURL: res.ScanURL,
		Data:    res.Record,
	})
}

// Scan resolves a scanned token.
// GET /api/scan?token=QR123
func (h *QRHandler) Scan(w http.ResponseWriter, r *http.Request) {
	rec, err := h.svc.Scan(r.Context(), qr.ScanInput{Code: r.URL.Query().Get("token")})
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, recordResponse{OK: true, Data: rec})
}

// Product returns one record without recording a scan.
// GET /api/products/QR123
func (h *QRHandler) Product(w http.ResponseWriter, r *http.Request) {
	rec, err := h.svc.Get(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, recordResponse{OK: true, Data: rec})
}

// Products lists records.
// GET /api/products?q=widget
func (h *QRHandler) Products(w http.ResponseWriter, r *http.Request) {
	rows, err := h.svc.List(r.Context(), qr.ListInput{Query: r.URL.Query().Get("q")})
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	if rows == nil {
		rows = []domain.Record{}
	}

	writeJSON(w, http.StatusOK, rowsResponse[domain.Record]{OK: true, Rows: rows})
}

// History lists recent scan log entries.
// GET /api/history?limit=50&code=QR123&action=scan
func (h *QRHandler) History(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var limit int
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			handleError(w, r, h.log, domain.NewValidationError("limit", "must be an integer"))
			return
		}
		limit = n
	}

	rows, err := h.svc.History(r.Context(), qr.HistoryInput{
		Code:   q.Get("code"),
		Action: q.Get("action"),
		Limit:  limit,
	})
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	if rows == nil {
		rows = []domain.ScanLogEntry{}
	}

	writeJSON(w, http.StatusOK, rowsResponse[domain.ScanLogEntry]{OK: true, Rows: rows})
}

// Import upserts a batch of records.
// POST /api/import
func (h *QRHandler) Import(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, r, h.log, err)
		return
	}

	rows := make([]qr.UpsertInput, len(req.Rows))
	for i, row := range req.Rows {
		rows[i] = row.toInput()
	}

	res, err := h.svc.Import(r.Context(), qr.ImportInput{Rows: rows})
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, toImportResponse(res))
}
