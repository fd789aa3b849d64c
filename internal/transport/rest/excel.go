package rest

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/heartmarshall/qrfactory/internal/adapter/xlsx"
	"github.com/heartmarshall/qrfactory/internal/domain"
	"github.com/heartmarshall/qrfactory/internal/service/qr"
)

// ExportFilename is the attachment name of the workbook export.
const ExportFilename = "qr-products.xlsx"

const maxMultipartMemory = 8 << 20

type workbookService interface {
	Import(ctx context.Context, input qr.ImportInput) (*qr.ImportResult, error)
	List(ctx context.Context, input qr.ListInput) ([]domain.Record, error)
}

// ExcelHandler serves workbook import and export.
type ExcelHandler struct {
	svc workbookService
	log *slog.Logger
}

// NewExcelHandler creates an ExcelHandler.
func NewExcelHandler(svc workbookService, logger *slog.Logger) *ExcelHandler {
	return &ExcelHandler{
		svc: svc,
		log: logger.With("handler", "excel"),
	}
}

// Import reads a workbook from the multipart field "file" or from the raw
// request body and imports its rows.
// POST /api/excel/import
func (h *ExcelHandler) Import(w http.ResponseWriter, r *http.Request) {
	body, closeBody, err := workbookBody(r)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	defer closeBody()

	records, err := xlsx.Decode(body)
	if err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			handleError(w, r, h.log, err)
		case errors.Is(err, xlsx.ErrNoCodeColumn):
			handleError(w, r, h.log, domain.NewValidationError("file", "header row has no code column"))
		default:
			h.log.DebugContext(r.Context(), "workbook decode failed", slog.String("error", err.Error()))
			handleError(w, r, h.log, domain.NewValidationError("file", "not a valid xlsx workbook"))
		}
		return
	}

	rows := make([]qr.UpsertInput, len(records))
	for i, rec := range records {
		rows[i] = qr.UpsertInput{
			Code:        rec.Code,
			ProductName: rec.ProductName,
			BatchSerial: rec.BatchSerial,
			MfgDate:     rec.MfgDate,
			ExpDate:     rec.ExpDate,
			Note:        rec.Note,
			Status:      rec.Status.String(),
		}
	}

	res, err := h.svc.Import(r.Context(), qr.ImportInput{Rows: rows})
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, toImportResponse(res))
}

// Export writes every record as a workbook attachment.
// GET /api/excel/export
func (h *ExcelHandler) Export(w http.ResponseWriter, r *http.Request) {
	records, err := h.svc.List(r.Context(), qr.ListInput{})
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	var buf bytes.Buffer
	if err := xlsx.Encode(&buf, records); err != nil {
		handleError(w, r, h.log, err)
		return
	}

	w.Header().Set("Content-Type", xlsx.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": ExportFilename}))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w) //nolint:errcheck
}

func workbookBody(r *http.Request) (io.Reader, func(), error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		return r.Body, func() {}, nil
	}

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, nil, err
		}
		return nil, nil, domain.NewValidationError("file", "invalid multipart form")
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		return nil, nil, domain.NewValidationError("file", "required")
	}
	return file, func() {
		file.Close()
		r.MultipartForm.RemoveAll() //nolint:errcheck
	}, nil
}
