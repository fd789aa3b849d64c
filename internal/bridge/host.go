package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

// Listen opens the bridge listener. A stale unix socket file is removed
// first.
func Listen(network, address string) (net.Listener, error) {
	if network == "unix" {
		if err := os.MkdirAll(filepath.Dir(address), 0o755); err != nil {
			return nil, fmt.Errorf("create socket dir: %w", err)
		}
		if err := os.Remove(address); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("remove stale socket: %w", err)
		}
	}

	ln, err := net.Listen(network, address)
	if err != nil {
		return nil, fmt.Errorf("bridge listen %s %s: %w", network, address, err)
	}
	return ln, nil
}

// NewGRPCServer creates a grpc.Server with srv registered and calls logged.
func NewGRPCServer(log *slog.Logger, srv BridgeServer) *grpc.Server {
	s := grpc.NewServer(grpc.ChainUnaryInterceptor(loggingInterceptor(log.With("component", "bridge"))))
	RegisterBridgeServer(s, srv)
	return s
}

// Serve serves s on ln until ctx is done, then stops gracefully.
func Serve(ctx context.Context, s *grpc.Server, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() { errCh <- s.Serve(ln) }()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("bridge serve: %w", err)
		}
		return nil
	case <-ctx.Done():
		s.GracefulStop()
		<-errCh
		return nil
	}
}

func loggingInterceptor(log *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		code := status.Code(err)
		level := slog.LevelInfo
		if err != nil {
			level = slog.LevelWarn
		}
		log.LogAttrs(ctx, level, "bridge.call",
			slog.String("method", info.FullMethod),
			slog.String("code", code.String()),
			slog.Duration("duration", time.Since(start)),
		)
		return resp, err
	}
}
