// Package bootstrap starts the backend process, discovers the port it
// listens on and waits until it reports healthy.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/heartmarshall/qrfactory/internal/config"
	"github.com/heartmarshall/qrfactory/internal/domain"
)

const loopbackHost = "127.0.0.1"

// Options configures a Coordinator.
type Options struct {
	PortMode     string
	Port         int
	PortFile     string
	Timeout      time.Duration
	PollInterval time.Duration
	HealthPath   string
}

// OptionsFromConfig builds Options from the shell configuration. The port
// file lives in the data directory.
func OptionsFromConfig(cfg *config.ShellConfig, portFile string) Options {
	return Options{
		PortMode:     cfg.Bootstrap.PortMode,
		Port:         cfg.Backend.Port,
		PortFile:     portFile,
		Timeout:      cfg.Bootstrap.Timeout,
		PollInterval: cfg.Bootstrap.PollInterval,
		HealthPath:   cfg.Bootstrap.HealthPath,
	}
}

// Coordinator drives NotStarted → Starting → PortDiscovered →
// WaitingHealthy → Ready, or Failed.
type Coordinator struct {
	opts   Options
	start  StartFunc
	client *http.Client
	log    *slog.Logger
	sm     *stateMachine

	mu      sync.RWMutex
	child   Child
	baseURL string
}

// New creates a Coordinator.
func New(log *slog.Logger, start StartFunc, opts Options) *Coordinator {
	if opts.PortMode == "" {
		opts.PortMode = config.PortModeFile
	}
	if opts.HealthPath == "" {
		opts.HealthPath = "/api/health"
	}
	return &Coordinator{
		opts:   opts,
		start:  start,
		client: &http.Client{Timeout: 2 * time.Second},
		log:    log.With("component", "bootstrap"),
		sm:     newStateMachine(),
	}
}

// State returns the current state.
func (c *Coordinator) State() State {
	s, _ := c.sm.current()
	return s
}

// Err returns the failure cause once the coordinator is Failed.
func (c *Coordinator) Err() error {
	_, err := c.sm.current()
	return err
}

// Done is closed when the coordinator reaches Ready or Failed.
func (c *Coordinator) Done() <-chan struct{} { return c.sm.done }

// BaseURL returns the backend base URL, empty until the port is known.
func (c *Coordinator) BaseURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.baseURL
}

// Child returns the started backend process, nil before Start.
func (c *Coordinator) Child() Child {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.child
}

// Start launches the backend and blocks until it is healthy. The whole
// bootstrap is bounded by Options.Timeout. On failure the child is stopped
// and the returned error wraps domain.ErrBackendUnavailable.
func (c *Coordinator) Start(ctx context.Context) (string, error) {
	if err := c.sm.transition(StateStarting, nil); err != nil {
		return "", err
	}

	baseURL, err := c.run(ctx)
	if err != nil {
		err = fmt.Errorf("%w: %w", domain.ErrBackendUnavailable, err)
		if child := c.Child(); child != nil {
			if stopErr := child.Stop(); stopErr != nil {
				c.log.Warn("stop backend", slog.String("error", stopErr.Error()))
			}
		}
		c.sm.transition(StateFailed, err) //nolint:errcheck
		c.log.Error("backend bootstrap failed", slog.String("error", err.Error()))
		return "", err
	}

	if err := c.sm.transition(StateReady, nil); err != nil {
		return "", err
	}
	c.log.Info("backend ready", slog.String("base_url", baseURL))
	return baseURL, nil
}

func (c *Coordinator) run(ctx context.Context) (string, error) {
	bootCtx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	env, port, err := c.portEnv()
	if err != nil {
		return "", err
	}

	// The child outlives the bootstrap deadline, so it gets the parent ctx.
	child, err := c.start(ctx, env)
	if err != nil {
		return "", err
	}
	c.mu.Lock()
	c.child = child
	c.mu.Unlock()

	if port == 0 {
		if port, err = c.waitPortFile(bootCtx, child); err != nil {
			return "", err
		}
	}

	baseURL := "http://" + net.JoinHostPort(loopbackHost, strconv.Itoa(port))
	c.mu.Lock()
	c.baseURL = baseURL
	c.mu.Unlock()
	if err := c.sm.transition(StatePortDiscovered, nil); err != nil {
		return "", err
	}
	c.log.Info("backend port discovered", slog.Int("port", port), slog.String("mode", c.opts.PortMode))

	if err := c.sm.transition(StateWaitingHealthy, nil); err != nil {
		return "", err
	}
	if err := c.waitHealthy(bootCtx, child, baseURL+c.opts.HealthPath); err != nil {
		return "", err
	}
	return baseURL, nil
}

// portEnv returns the env passed to the child and the port when it is
// known before the start.
func (c *Coordinator) portEnv() ([]string, int, error) {
	switch c.opts.PortMode {
	case config.PortModeFixed:
		if c.opts.Port <= 0 {
			return nil, 0, errors.New("fixed port mode requires a port")
		}
		return []string{"PORT=" + strconv.Itoa(c.opts.Port)}, c.opts.Port, nil

	case config.PortModeProbe:
		port, err := probePort()
		if err != nil {
			return nil, 0, err
		}
		return []string{"PORT=" + strconv.Itoa(port)}, port, nil

	case config.PortModeFile:
		if c.opts.PortFile == "" {
			return nil, 0, errors.New("file port mode requires a port file")
		}
		if err := os.Remove(c.opts.PortFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, 0, fmt.Errorf("remove stale port file: %w", err)
		}
		return []string{"PORT=0", "PORT_FILE=" + c.opts.PortFile}, 0, nil

	default:
		return nil, 0, fmt.Errorf("unknown port mode %q", c.opts.PortMode)
	}
}

// probePort asks the OS for a free loopback port and releases it. Another
// process may grab it before the child binds; the health poll catches that.
func probePort() (int, error) {
	ln, err := net.Listen("tcp", net.JoinHostPort(loopbackHost, "0"))
	if err != nil {
		return 0, fmt.Errorf("probe port: %w", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	if err := ln.Close(); err != nil {
		return 0, fmt.Errorf("release probed port: %w", err)
	}
	return port, nil
}

func (c *Coordinator) waitPortFile(ctx context.Context, child Child) (int, error) {
	var port int
	err := retry.Do(ctx, retry.NewConstant(c.opts.PollInterval), func(ctx context.Context) error {
		if err := exited(child); err != nil {
			return err
		}
		p, err := ReadPortFile(c.opts.PortFile)
		if errors.Is(err, ErrNoPortFile) {
			return retry.RetryableError(err)
		}
		if err != nil {
			return err
		}
		port = p
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("discover port: %w", err)
	}
	return port, nil
}

func (c *Coordinator) waitHealthy(ctx context.Context, child Child, url string) error {
	var lastErr error
	err := retry.Do(ctx, retry.NewConstant(c.opts.PollInterval), func(ctx context.Context) error {
		if err := exited(child); err != nil {
			return err
		}
		if err := c.probeHealth(ctx, url); err != nil {
			if ctx.Err() == nil {
				lastErr = err
			}
			c.log.Debug("backend not healthy yet", slog.String("error", err.Error()))
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		if lastErr != nil && errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("wait healthy: %w (last: %v)", err, lastErr)
		}
		return fmt.Errorf("wait healthy: %w", err)
	}
	return nil
}

func (c *Coordinator) probeHealth(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body) //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("health status %d", resp.StatusCode)
	}
	return nil
}

func exited(child Child) error {
	select {
	case <-child.Done():
		if err := child.Err(); err != nil {
			return fmt.Errorf("backend exited before ready: %w", err)
		}
		return errors.New("backend exited before ready")
	default:
		return nil
	}
}
