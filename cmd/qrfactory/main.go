// Command qrfactory is the desktop shell. It starts qrfactory-server, waits
// until it is healthy and serves the UI bridge.
//
// Usage:
//
//	qrfactory                              run the shell
//	qrfactory call get /api/health         call a running shell's bridge
//	qrfactory call post /api/qr '{"productName":"Widget"}'
//	qrfactory call qr 'http://127.0.0.1:8080/qr.html?token=QR1'
//
// Exit codes: 0 = success, 1 = error.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/heartmarshall/qrfactory/internal/app"
	"github.com/heartmarshall/qrfactory/internal/bridge"
	"github.com/heartmarshall/qrfactory/internal/config"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "call" {
		if err := call(os.Args[2:]); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	if err := app.RunShell(context.Background()); err != nil {
		slog.Error("shell failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func call(args []string) error {
	if len(args) < 2 {
		return errors.New("usage: qrfactory call get|post|qr <path-or-text> [json-body]")
	}

	cfg, err := config.LoadShell()
	if err != nil {
		return err
	}
	client, err := bridge.Dial(cfg.Bridge.Network, cfg.BridgeAddress())
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var out any
	switch strings.ToLower(args[0]) {
	case "get":
		out, err = client.APIGet(ctx, args[1])
	case "post":
		var body any
		if len(args) > 2 {
			if err := json.Unmarshal([]byte(args[2]), &body); err != nil {
				return fmt.Errorf("parse body: %w", err)
			}
		}
		out, err = client.APIPost(ctx, args[1], body)
	case "qr":
		out, err = client.ToDataURL(ctx, args[1], 0)
	default:
		return fmt.Errorf("unknown call %q", args[0])
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
