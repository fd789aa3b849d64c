package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/heartmarshall/qrfactory/internal/adapter/sqlite"
	recordrepo "github.com/heartmarshall/qrfactory/internal/adapter/sqlite/record"
	scanlogrepo "github.com/heartmarshall/qrfactory/internal/adapter/sqlite/scanlog"
	"github.com/heartmarshall/qrfactory/internal/bootstrap"
	"github.com/heartmarshall/qrfactory/internal/config"
	"github.com/heartmarshall/qrfactory/internal/service/qr"
	"github.com/heartmarshall/qrfactory/internal/service/scanlog"
	"github.com/heartmarshall/qrfactory/internal/transport/rest"
)

// Backend owns the store, services and HTTP server of one backend
// process. It is built once by NewBackend and released by Run.
type Backend struct {
	cfg      *config.Config
	log      *slog.Logger
	db       *sql.DB
	listener net.Listener
	server   *http.Server
	recorder *scanlog.Recorder
	baseURL  string
}

// RunBackend is the entry point of the backend binary. It loads the
// configuration, builds the backend and serves until ctx is cancelled or
// SIGINT/SIGTERM arrives.
func RunBackend(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := NewLogger(cfg.Log)
	logger.Info("starting backend",
		slog.String("version", BuildVersion()),
		slog.String("log_level", cfg.Log.Level),
	)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := NewBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	return b.Run(ctx)
}

// NewBackend opens the store, binds the listener and wires the services.
// The listener is bound first so scan links carry the real port.
func NewBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Backend, error) {
	db, err := sqlite.Open(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	ln, err := net.Listen("tcp", cfg.Server.Addr())
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("listen %s: %w", cfg.Server.Addr(), err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	baseURL := cfg.Server.BaseURL(port)

	records := recordrepo.New(db)
	scanLogs := scanlogrepo.New(db)
	recorder := scanlog.NewRecorder(logger, scanLogs, cfg.ScanLog.Buffer)

	qrService := qr.NewService(logger, records, scanLogs, recorder, sqlite.NewTxManager(db), qr.Config{
		BaseURL:     baseURL,
		RequireCode: cfg.QR.RequireCode,
		CodePrefix:  cfg.QR.CodePrefix,
		CodeLength:  cfg.QR.CodeLength,
	})

	router := rest.NewRouter(rest.RouterConfig{
		Health: rest.NewHealthHandler(db, qrService, recorder, rest.HealthInfo{
			Version: Version,
			BaseURL: baseURL,
			DBPath:  cfg.Database.Path(),
		}),
		QR:           rest.NewQRHandler(qrService, logger),
		Excel:        rest.NewExcelHandler(qrService, logger),
		AdminToken:   cfg.Auth.AdminToken,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
		Logger:       logger,
	})

	return &Backend{
		cfg:      cfg,
		log:      logger,
		db:       db,
		listener: ln,
		recorder: recorder,
		baseURL:  baseURL,
		server: &http.Server{
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			IdleTimeout:  cfg.Server.IdleTimeout,
			ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
		},
	}, nil
}

// BaseURL returns the base URL scan links are built from.
func (b *Backend) BaseURL() string { return b.baseURL }

// Run publishes the port file when configured, serves until ctx is done and
// then shuts down: HTTP server first, then the scan log recorder, then the
// store.
func (b *Backend) Run(ctx context.Context) error {
	defer b.db.Close()

	port := b.listener.Addr().(*net.TCPAddr).Port
	if b.cfg.Server.PortFile != "" {
		if err := bootstrap.WritePortFile(b.cfg.Server.PortFile, port); err != nil {
			b.listener.Close()
			b.closeRecorder()
			return err
		}
	}

	b.log.Info("server listening",
		slog.String("addr", b.listener.Addr().String()),
		slog.Int("port", port),
		slog.String("base_url", b.baseURL),
		slog.Bool("admin_auth", b.cfg.Auth.Enabled()),
		slog.String("db", b.cfg.Database.Path()),
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := b.server.Serve(b.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), b.cfg.Server.ShutdownTimeout)
		defer cancel()

		b.log.Info("shutting down server")
		if err := b.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	err := g.Wait()
	b.closeRecorder()

	if b.cfg.Server.PortFile != "" {
		if rmErr := os.Remove(b.cfg.Server.PortFile); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			b.log.Warn("remove port file", slog.String("error", rmErr.Error()))
		}
	}

	if err != nil {
		return err
	}
	b.log.Info("backend stopped")
	return nil
}

func (b *Backend) closeRecorder() {
	ctx, cancel := context.WithTimeout(context.Background(), b.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := b.recorder.Close(ctx); err != nil {
		b.log.Warn("scan log recorder did not drain", slog.String("error", err.Error()))
	}
	stats := b.recorder.Stats()
	b.log.Info("scan log recorder closed",
		slog.Int64("written", stats.Written),
		slog.Int64("dropped", stats.Dropped),
		slog.Int64("failed", stats.Failed),
	)
}
