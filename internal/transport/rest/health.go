package rest

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/heartmarshall/qrfactory/internal/service/scanlog"
)

// dbPinger defines the minimal interface for DB health checks.
type dbPinger interface {
	PingContext(ctx context.Context) error
}

type recordCounter interface {
	Count(ctx context.Context) (int, error)
}

type recorderStats interface {
	Stats() scanlog.Stats
}

// HealthInfo describes the running backend for the health payload.
type HealthInfo struct {
	Version string
	BaseURL string
	DBPath  string
}

// HealthHandler serves health check endpoints.
type HealthHandler struct {
	db       dbPinger
	records  recordCounter
	recorder recorderStats
	info     HealthInfo
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(db dbPinger, records recordCounter, recorder recorderStats, info HealthInfo) *HealthHandler {
	return &HealthHandler{db: db, records: records, recorder: recorder, info: info}
}

// HealthResponse is the JSON response for /api/health, /live and /ready.
type HealthResponse struct {
	OK         bool                  `json:"ok"`
	Status     string                `json:"status"`
	Version    string                `json:"version,omitempty"`
	DB         *DBInfo               `json:"db,omitempty"`
	BaseURL    string                `json:"baseUrl,omitempty"`
	Records    *int                  `json:"records,omitempty"`
	ScanLog    *scanlog.Stats        `json:"scanLog,omitempty"`
	Components map[string]CompStatus `json:"components,omitempty"`
	Timestamp  time.Time             `json:"timestamp"`
}

// DBInfo describes the database file.
type DBInfo struct {
	Path string `json:"path"`
	Size string `json:"size,omitempty"`
}

// CompStatus is the status of an individual component.
type CompStatus struct {
	Status  string `json:"status"`
	Latency string `json:"latency,omitempty"`
}

// Live is the liveness probe. Always returns 200.
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		OK:        true,
		Status:    "ok",
		Timestamp: time.Now().UTC(),
	})
}

// Ready is the readiness probe. Pings DB: 200 if OK, 503 if not.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{
			Status:    "down",
			Timestamp: time.Now().UTC(),
		})
		return
	}

	writeJSON(w, http.StatusOK, HealthResponse{
		OK:        true,
		Status:    "ok",
		Timestamp: time.Now().UTC(),
	})
}

// Health is the full health check polled by the shell. It pings the DB
// with latency measurement and reports the base URL, record count and
// scan log recorder counters.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	components := make(map[string]CompStatus)

	start := time.Now()
	err := h.db.PingContext(ctx)
	latency := time.Since(start)

	if err != nil {
		components["database"] = CompStatus{Status: "down"}
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{
			Status:     "down",
			Version:    h.info.Version,
			Components: components,
			Timestamp:  time.Now().UTC(),
		})
		return
	}
	components["database"] = CompStatus{Status: "ok", Latency: latency.String()}

	resp := HealthResponse{
		OK:         true,
		Status:     "ok",
		Version:    h.info.Version,
		DB:         h.dbInfo(),
		BaseURL:    h.info.BaseURL,
		Components: components,
		Timestamp:  time.Now().UTC(),
	}

	if n, err := h.records.Count(ctx); err == nil {
		resp.Records = &n
	} else {
		components["records"] = CompStatus{Status: "degraded"}
		resp.Status = "degraded"
	}

	if h.recorder != nil {
		stats := h.recorder.Stats()
		resp.ScanLog = &stats
		if stats.Failed > 0 || stats.Dropped > 0 {
			components["scanlog"] = CompStatus{Status: "degraded"}
		} else {
			components["scanlog"] = CompStatus{Status: "ok"}
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *HealthHandler) dbInfo() *DBInfo {
	if h.info.DBPath == "" {
		return nil
	}
	info := &DBInfo{Path: h.info.DBPath}
	if fi, err := os.Stat(h.info.DBPath); err == nil {
		info.Size = humanize.Bytes(uint64(fi.Size()))
	}
	return info
}
