package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/heartmarshall/qrfactory/internal/bootstrap"
	"github.com/heartmarshall/qrfactory/internal/bridge"
	"github.com/heartmarshall/qrfactory/internal/config"
	"github.com/heartmarshall/qrfactory/internal/domain"
	"github.com/heartmarshall/qrfactory/internal/proxy"
)

// Shell owns the backend child process and the UI bridge.
type Shell struct {
	cfg   *config.ShellConfig
	log   *slog.Logger
	coord *bootstrap.Coordinator
}

// RunShell is the entry point of the shell binary: it starts the backend,
// waits until it is healthy and serves the bridge until a signal arrives
// or the backend exits.
func RunShell(ctx context.Context) error {
	cfg, err := config.LoadShell()
	if err != nil {
		return err
	}

	logger := NewLogger(cfg.Log)
	logger.Info("starting shell",
		slog.String("version", BuildVersion()),
		slog.String("backend", cfg.Backend.Bin),
		slog.String("port_mode", cfg.Bootstrap.PortMode),
	)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return NewShell(cfg, logger, nil).Run(ctx)
}

// NewShell creates a Shell. A nil start launches cfg.Backend.Bin.
func NewShell(cfg *config.ShellConfig, logger *slog.Logger, start bootstrap.StartFunc) *Shell {
	if start == nil {
		start = bootstrap.NewStartFunc(logger, bootstrap.ProcessConfig{
			Bin:       cfg.Backend.Bin,
			Env:       backendEnv(cfg),
			StopGrace: cfg.Bootstrap.StopGrace,
		})
	}
	portFile := filepath.Join(cfg.Database.Dir, "backend.port")

	return &Shell{
		cfg:   cfg,
		log:   logger,
		coord: bootstrap.New(logger, start, bootstrap.OptionsFromConfig(cfg, portFile)),
	}
}

// backendEnv is the configuration handed to the child on top of the
// inherited environment.
func backendEnv(cfg *config.ShellConfig) []string {
	return []string{
		"SERVER_HOST=127.0.0.1",
		"APP_DB_DIR=" + cfg.Database.Dir,
		"DB_FILE=" + cfg.Database.File,
		"ADMIN_TOKEN=" + cfg.Auth.AdminToken,
		"LOG_LEVEL=" + cfg.Log.Level,
		"LOG_FORMAT=json",
	}
}

// Coordinator returns the bootstrap coordinator.
func (s *Shell) Coordinator() *bootstrap.Coordinator { return s.coord }

// Run bootstraps the backend and serves the bridge until ctx is done or the
// backend exits. The backend is always stopped before Run returns.
func (s *Shell) Run(ctx context.Context) error {
	baseURL, err := s.coord.Start(ctx)
	if err != nil {
		s.log.Error("backend did not become ready, exiting",
			slog.String("state", s.coord.State().String()),
			slog.String("error", err.Error()),
		)
		return err
	}

	child := s.coord.Child()
	defer func() {
		if err := child.Stop(); err != nil {
			s.log.Warn("stop backend", slog.String("error", err.Error()))
		}
	}()

	network, address := s.cfg.Bridge.Network, s.cfg.BridgeAddress()
	ln, err := bridge.Listen(network, address)
	if err != nil {
		return err
	}
	if network == "unix" {
		defer os.Remove(address)
	}

	srv := bridge.NewServer(s.log, proxy.New(baseURL, s.cfg.Auth.AdminToken), s.cfg.Export.Dir)
	gs := bridge.NewGRPCServer(s.log, srv)

	s.log.Info("bridge listening",
		slog.String("network", network),
		slog.String("address", ln.Addr().String()),
		slog.String("backend", baseURL),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return bridge.Serve(gctx, gs, ln)
	})
	g.Go(func() error {
		select {
		case <-child.Done():
			return fmt.Errorf("%w: backend exited: %v", domain.ErrBackendUnavailable, child.Err())
		case <-gctx.Done():
			return nil
		}
	})

	err = g.Wait()
	s.log.Info("shell stopped")
	return err
}
