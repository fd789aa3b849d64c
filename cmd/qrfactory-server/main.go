// Command qrfactory-server runs the QR Factory backend: the SQLite record
// store and the REST API. It is normally started by the qrfactory shell,
// which passes PORT=0 and PORT_FILE and waits for /api/health.
//
// Exit codes: 0 = clean shutdown, 1 = error.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/heartmarshall/qrfactory/internal/app"
)

func main() {
	if err := app.RunBackend(context.Background()); err != nil {
		slog.Error("backend failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
