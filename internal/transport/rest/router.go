package rest

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/heartmarshall/qrfactory/internal/transport/middleware"
)

// RouterConfig holds the handlers and settings the router is built from.
type RouterConfig struct {
	Health       *HealthHandler
	QR           *QRHandler
	Excel        *ExcelHandler
	AdminToken   string
	MaxBodyBytes int64
	Logger       *slog.Logger
}

// NewRouter builds the HTTP handler of the backend. Record writes, listings
// and workbook routes require the admin token when one is configured;
// health and scan routes are public.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Stack(cfg.Logger, cfg.MaxBodyBytes))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/live", cfg.Health.Live)
	r.Get("/ready", cfg.Health.Ready)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", cfg.Health.Health)
		r.Get("/scan", cfg.QR.Scan)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin(cfg.AdminToken))

			r.Post("/qr", cfg.QR.Upsert)
			r.Post("/qr/upsert", cfg.QR.Upsert)
			r.Post("/admin/create", cfg.QR.Upsert)
			r.Get("/products", cfg.QR.Products)
			r.Get("/products/{code}", cfg.QR.Product)
			r.Get("/history", cfg.QR.History)
			r.Post("/import", cfg.QR.Import)
			r.Post("/excel/import", cfg.Excel.Import)
			r.Get("/excel/export", cfg.Excel.Export)
		})
	})

	return r
}
