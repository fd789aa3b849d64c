package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartmarshall/qrfactory/internal/bootstrap"
	"github.com/heartmarshall/qrfactory/internal/config"
)

const testAdminToken = "e2e-token"

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Server: config.ServerConfig{
			Host:            "127.0.0.1",
			PortFile:        filepath.Join(dir, "backend.port"),
			ReadTimeout:     5 * time.Second,
			WriteTimeout:    5 * time.Second,
			IdleTimeout:     5 * time.Second,
			ShutdownTimeout: 5 * time.Second,
			MaxBodyBytes:    1 << 20,
		},
		Database: config.DatabaseConfig{Dir: filepath.Join(dir, "data"), File: "qr.sqlite", BusyTimeout: 5 * time.Second},
		Auth:     config.AuthConfig{AdminToken: testAdminToken},
		QR:       config.QRConfig{CodePrefix: "QR", CodeLength: 8},
		ScanLog:  config.ScanLogConfig{Buffer: 16},
		Log:      config.LogConfig{Level: "error", Format: "json"},
	}
}

// startBackend runs a backend until the test ends and returns its base URL.
func startBackend(t *testing.T, cfg *config.Config) string {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	b, err := NewBackend(ctx, cfg, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(10 * time.Second):
			t.Error("backend did not stop")
		}
	})

	require.Eventually(t, func() bool {
		_, err := bootstrap.ReadPortFile(cfg.Server.PortFile)
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)

	return b.BaseURL()
}

type apiClient struct {
	t       *testing.T
	baseURL string
}

func (c apiClient) do(method, path, body string) (int, map[string]any) {
	c.t.Helper()

	req, err := http.NewRequest(method, c.baseURL+path, strings.NewReader(body))
	require.NoError(c.t, err)
	req.Header.Set("Authorization", "Bearer "+testAdminToken)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(c.t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func (c apiClient) history(query string) []any {
	c.t.Helper()
	status, body := c.do(http.MethodGet, "/api/history?"+query, "")
	require.Equal(c.t, http.StatusOK, status)
	rows, _ := body["rows"].([]any)
	return rows
}

func TestBackend_PortFileAndHealth(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	baseURL := startBackend(t, cfg)

	port, err := bootstrap.ReadPortFile(cfg.Server.PortFile)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("http://127.0.0.1:%d", port), baseURL)

	status, body := apiClient{t, baseURL}.do(http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, baseURL, body["baseUrl"])
	assert.EqualValues(t, 0, body["records"])
}

func TestBackend_PortFileRemovedOnShutdown(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	ctx, cancel := context.WithCancel(context.Background())

	b, err := NewBackend(ctx, cfg, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()

	require.Eventually(t, func() bool {
		_, err := os.Stat(cfg.Server.PortFile)
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	_, err = os.Stat(cfg.Server.PortFile)
	assert.True(t, os.IsNotExist(err))
}

func TestBackend_UpsertScanHistory(t *testing.T) {
	t.Parallel()

	baseURL := startBackend(t, testConfig(t))
	api := apiClient{t, baseURL}

	status, body := api.do(http.MethodPost, "/api/qr", `{"code":" QR1 ","productName":"Widget","status":"bogus"}`)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "QR1", body["code"])
	assert.Equal(t, baseURL+"/qr.html?token=QR1", body["scanUrl"])
	assert.Equal(t, "active", body["data"].(map[string]any)["status"])

	status, body = api.do(http.MethodPost, "/api/qr", `{"code":"QR1","productName":"Widget v2"}`)
	require.Equal(t, http.StatusOK, status)

	status, body = api.do(http.MethodGet, "/api/scan?token=QR1", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Widget v2", body["data"].(map[string]any)["productName"])

	status, body = api.do(http.MethodGet, "/api/products", "")
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["rows"], 1)

	require.Eventually(t, func() bool {
		return len(api.history("code=QR1")) == 3
	}, 5*time.Second, 20*time.Millisecond)
	assert.Len(t, api.history("code=QR1&action=created"), 2)
}

func TestBackend_UnknownScanLogsOnce(t *testing.T) {
	t.Parallel()

	baseURL := startBackend(t, testConfig(t))
	api := apiClient{t, baseURL}

	status, body := api.do(http.MethodGet, "/api/scan?token=NOPE", "")
	require.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, false, body["ok"])

	require.Eventually(t, func() bool {
		return len(api.history("code=NOPE")) == 1
	}, 5*time.Second, 20*time.Millisecond)

	// Give a stray duplicate time to show up.
	time.Sleep(100 * time.Millisecond)
	rows := api.history("code=NOPE")
	require.Len(t, rows, 1)

	entry := rows[0].(map[string]any)
	assert.Equal(t, "scan", entry["action"])
	assert.Equal(t, false, entry["meta"].(map[string]any)["found"])
}

func TestBackend_ImportSkipsMalformedRow(t *testing.T) {
	t.Parallel()

	baseURL := startBackend(t, testConfig(t))
	api := apiClient{t, baseURL}

	status, body := api.do(http.MethodPost, "/api/import", `{"rows":[
		{"code":"A1","productName":"One"},
		{"code":"A2","productName":"Two"},
		{"code":"","productName":"No code"},
		{"code":"A4","productName":"Four"}
	]}`)
	require.Equal(t, http.StatusOK, status, body)
	assert.EqualValues(t, 4, body["received"])
	assert.EqualValues(t, 3, body["imported"])
	assert.EqualValues(t, 1, body["skipped"])

	status, body = api.do(http.MethodGet, "/api/products", "")
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["rows"], 3)

	status, body = api.do(http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 3, body["records"])
}

func TestBackend_RequiresAdminToken(t *testing.T) {
	t.Parallel()

	baseURL := startBackend(t, testConfig(t))

	resp, err := http.Get(baseURL + "/api/products")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestBackend_UpsertResponseMatchesStoredRecord(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	api := apiClient{t, startBackend(t, cfg)}

	status, created := api.do(http.MethodPost, "/api/qr",
		`{"code":"QR1","productName":"Widget","batchSerial":"B-7","status":"bogus"}`)
	require.Equal(t, http.StatusOK, status)

	status, scanned := api.do(http.MethodGet, "/api/scan?token=QR1", "")
	require.Equal(t, http.StatusOK, status)

	status, looked := api.do(http.MethodGet, "/api/products/QR1", "")
	require.Equal(t, http.StatusOK, status)

	assert.Equal(t, created["data"], scanned["data"])
	assert.Equal(t, created["data"], looked["data"])

	data, ok := created["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "active", data["status"])

	// The lookup route does not add scan entries.
	require.Eventually(t, func() bool {
		return len(api.history("code=QR1")) == 2
	}, 5*time.Second, 10*time.Millisecond)
	assert.Len(t, api.history("code=QR1&action=scan"), 1)
}
