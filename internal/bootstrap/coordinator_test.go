package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartmarshall/qrfactory/internal/config"
	"github.com/heartmarshall/qrfactory/internal/domain"
)

type fakeChild struct {
	done     chan struct{}
	once     sync.Once
	exitErr  error
	stopped  atomic.Int32
	onStopFn func()
}

func newFakeChild() *fakeChild {
	return &fakeChild{done: make(chan struct{})}
}

func (c *fakeChild) Done() <-chan struct{} { return c.done }

func (c *fakeChild) Err() error {
	select {
	case <-c.done:
		return c.exitErr
	default:
		return nil
	}
}

func (c *fakeChild) Stop() error {
	c.stopped.Add(1)
	c.exit(nil)
	return nil
}

func (c *fakeChild) exit(err error) {
	c.once.Do(func() {
		c.exitErr = err
		if c.onStopFn != nil {
			c.onStopFn()
		}
		close(c.done)
	})
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func serverPort(t *testing.T, srv *httptest.Server) int {
	t.Helper()
	return srv.Listener.Addr().(*net.TCPAddr).Port
}

func healthyServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/health" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{"ok":true}`)) //nolint:errcheck
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testOptions(mode string) Options {
	return Options{
		PortMode:     mode,
		Timeout:      2 * time.Second,
		PollInterval: 10 * time.Millisecond,
		HealthPath:   "/api/health",
	}
}

func envValue(env []string, key string) string {
	for _, kv := range env {
		if v, ok := strings.CutPrefix(kv, key+"="); ok {
			return v
		}
	}
	return ""
}

func TestCoordinator_FixedPort(t *testing.T) {
	t.Parallel()

	srv := healthyServer(t)
	port := serverPort(t, srv)

	var gotEnv []string
	child := newFakeChild()
	start := func(_ context.Context, env []string) (Child, error) {
		gotEnv = env
		return child, nil
	}

	opts := testOptions(config.PortModeFixed)
	opts.Port = port
	c := New(testLogger(), start, opts)

	baseURL, err := c.Start(context.Background())
	require.NoError(t, err)

	assert.Equal(t, srv.URL, baseURL)
	assert.Equal(t, StateReady, c.State())
	assert.Equal(t, strconv.Itoa(port), envValue(gotEnv, "PORT"))
	assert.Zero(t, child.stopped.Load())

	select {
	case <-c.Done():
	default:
		t.Fatal("Done should be closed after Ready")
	}
}

func TestCoordinator_PortFile(t *testing.T) {
	t.Parallel()

	srv := healthyServer(t)
	portFile := filepath.Join(t.TempDir(), "backend.port")
	require.NoError(t, WritePortFile(portFile, 1), "stale file must be removed before start")

	var gotEnv []string
	start := func(_ context.Context, env []string) (Child, error) {
		gotEnv = env
		go func() {
			time.Sleep(50 * time.Millisecond)
			WritePortFile(envValue(env, "PORT_FILE"), serverPort(t, srv)) //nolint:errcheck
		}()
		return newFakeChild(), nil
	}

	opts := testOptions(config.PortModeFile)
	opts.PortFile = portFile
	c := New(testLogger(), start, opts)

	baseURL, err := c.Start(context.Background())
	require.NoError(t, err)
	assert.Equal(t, srv.URL, baseURL)
	assert.Equal(t, "0", envValue(gotEnv, "PORT"))
	assert.Equal(t, portFile, envValue(gotEnv, "PORT_FILE"))
}

func TestCoordinator_ProbePort(t *testing.T) {
	t.Parallel()

	start := func(_ context.Context, env []string) (Child, error) {
		ln, err := net.Listen("tcp", net.JoinHostPort(loopbackHost, envValue(env, "PORT")))
		if err != nil {
			return nil, err
		}
		srv := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})}
		go srv.Serve(ln) //nolint:errcheck

		child := newFakeChild()
		child.onStopFn = func() { srv.Close() }
		t.Cleanup(func() { child.Stop() })
		return child, nil
	}

	c := New(testLogger(), start, testOptions(config.PortModeProbe))

	baseURL, err := c.Start(context.Background())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(baseURL, "http://127.0.0.1:"))
	assert.Equal(t, baseURL, c.BaseURL())
}

func TestCoordinator_NeverHealthy(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	child := newFakeChild()
	start := func(context.Context, []string) (Child, error) { return child, nil }

	opts := testOptions(config.PortModeFixed)
	opts.Port = serverPort(t, srv)
	opts.Timeout = 200 * time.Millisecond
	c := New(testLogger(), start, opts)

	began := time.Now()
	_, err := c.Start(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrBackendUnavailable)
	assert.Contains(t, err.Error(), "health status 503")
	assert.Less(t, time.Since(began), 2*time.Second)
	assert.Equal(t, StateFailed, c.State())
	assert.ErrorIs(t, c.Err(), domain.ErrBackendUnavailable)
	assert.Equal(t, int32(1), child.stopped.Load(), "child must be terminated")
}

func TestCoordinator_ChildExitsEarly(t *testing.T) {
	t.Parallel()

	child := newFakeChild()
	child.exit(errors.New("exit status 1"))
	start := func(context.Context, []string) (Child, error) { return child, nil }

	opts := testOptions(config.PortModeFile)
	opts.PortFile = filepath.Join(t.TempDir(), "backend.port")
	c := New(testLogger(), start, opts)

	_, err := c.Start(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrBackendUnavailable)
	assert.Contains(t, err.Error(), "exited before ready")
	assert.Equal(t, StateFailed, c.State())
}

func TestCoordinator_StartFails(t *testing.T) {
	t.Parallel()

	start := func(context.Context, []string) (Child, error) {
		return nil, errors.New("exec: not found")
	}
	opts := testOptions(config.PortModeFixed)
	opts.Port = 18080
	c := New(testLogger(), start, opts)

	_, err := c.Start(context.Background())
	require.ErrorIs(t, err, domain.ErrBackendUnavailable)
	assert.Nil(t, c.Child())
	assert.Equal(t, StateFailed, c.State())
}

func TestCoordinator_Cancelled(t *testing.T) {
	t.Parallel()

	child := newFakeChild()
	start := func(context.Context, []string) (Child, error) { return child, nil }

	opts := testOptions(config.PortModeFile)
	opts.PortFile = filepath.Join(t.TempDir(), "backend.port")
	c := New(testLogger(), start, opts)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	_, err := c.Start(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateFailed, c.State())
	assert.Equal(t, int32(1), child.stopped.Load())
}

func TestCoordinator_StartTwice(t *testing.T) {
	t.Parallel()

	srv := healthyServer(t)
	start := func(context.Context, []string) (Child, error) { return newFakeChild(), nil }

	opts := testOptions(config.PortModeFixed)
	opts.Port = serverPort(t, srv)
	c := New(testLogger(), start, opts)

	_, err := c.Start(context.Background())
	require.NoError(t, err)

	_, err = c.Start(context.Background())
	assert.ErrorIs(t, err, ErrIllegalTransition)
	assert.Equal(t, StateReady, c.State())
}

func TestCoordinator_UnknownMode(t *testing.T) {
	t.Parallel()

	called := false
	start := func(context.Context, []string) (Child, error) {
		called = true
		return newFakeChild(), nil
	}

	c := New(testLogger(), start, testOptions("stdout"))
	_, err := c.Start(context.Background())

	require.ErrorIs(t, err, domain.ErrBackendUnavailable)
	assert.False(t, called)
	assert.Equal(t, StateFailed, c.State())
}
