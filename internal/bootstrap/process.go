package bootstrap

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

// Child is a started backend process.
type Child interface {
	// Done is closed when the process has exited.
	Done() <-chan struct{}
	// Err returns the exit error once Done is closed.
	Err() error
	// Stop terminates the process. It is safe to call more than once.
	Stop() error
}

// StartFunc starts the backend with extra environment variables.
type StartFunc func(ctx context.Context, env []string) (Child, error)

// ProcessConfig describes how the backend binary is run.
type ProcessConfig struct {
	Bin       string
	Args      []string
	Env       []string
	StopGrace time.Duration
}

// Process is a backend child process whose output is re-logged line by
// line through the shell logger.
type Process struct {
	cmd   *exec.Cmd
	log   *slog.Logger
	grace time.Duration

	done    chan struct{}
	waitErr error

	stopOnce sync.Once
	stopErr  error
}

// NewStartFunc returns a StartFunc running cfg.Bin. The child inherits
// the shell environment, then cfg.Env, then the per-start env.
func NewStartFunc(log *slog.Logger, cfg ProcessConfig) StartFunc {
	return func(ctx context.Context, env []string) (Child, error) {
		return StartProcess(ctx, log, cfg, env)
	}
}

// StartProcess starts the backend. Cancelling ctx terminates it the same
// way Stop does.
func StartProcess(ctx context.Context, log *slog.Logger, cfg ProcessConfig, env []string) (*Process, error) {
	log = log.With("component", "backend")

	cmd := exec.CommandContext(ctx, cfg.Bin, cfg.Args...)
	cmd.Env = append(append(os.Environ(), cfg.Env...), env...)
	cmd.Stdout = &lineWriter{log: log, stream: "stdout"}
	cmd.Stderr = &lineWriter{log: log, stream: "stderr"}
	cmd.Cancel = func() error { return cmd.Process.Signal(syscall.SIGTERM) }
	cmd.WaitDelay = cfg.StopGrace
	configureChild(cmd)

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start backend %s: %w", cfg.Bin, err)
	}
	log.Info("backend started", slog.Int("pid", cmd.Process.Pid), slog.String("bin", cfg.Bin))

	p := &Process{
		cmd:   cmd,
		log:   log,
		grace: cfg.StopGrace,
		done:  make(chan struct{}),
	}
	go p.wait()
	return p, nil
}

func (p *Process) wait() {
	err := p.cmd.Wait()
	for _, w := range []any{p.cmd.Stdout, p.cmd.Stderr} {
		if lw, ok := w.(*lineWriter); ok {
			lw.flush()
		}
	}
	p.waitErr = err
	close(p.done)

	if err != nil {
		p.log.Warn("backend exited", slog.String("error", err.Error()))
		return
	}
	p.log.Info("backend exited")
}

// Done is closed when the process has exited.
func (p *Process) Done() <-chan struct{} { return p.done }

// Err returns the exit error. It is nil until Done is closed.
func (p *Process) Err() error {
	select {
	case <-p.done:
		return p.waitErr
	default:
		return nil
	}
}

// Stop sends SIGTERM and kills the process if it has not exited after the
// grace period.
func (p *Process) Stop() error {
	p.stopOnce.Do(func() {
		p.stopErr = p.stop()
	})
	return p.stopErr
}

func (p *Process) stop() error {
	select {
	case <-p.done:
		return nil
	default:
	}

	if err := p.cmd.Process.Signal(syscall.SIGTERM); err != nil && !errors.Is(err, os.ErrProcessDone) {
		p.log.Warn("backend terminate signal failed", slog.String("error", err.Error()))
	}

	timer := time.NewTimer(p.grace)
	defer timer.Stop()

	select {
	case <-p.done:
		return nil
	case <-timer.C:
	}

	p.log.Warn("backend did not exit in time, killing", slog.Duration("grace", p.grace))
	if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("kill backend: %w", err)
	}
	<-p.done
	return nil
}

// lineWriter re-logs child output one line at a time.
type lineWriter struct {
	log    *slog.Logger
	stream string

	mu  sync.Mutex
	buf []byte
}

func (w *lineWriter) Write(b []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf = append(w.buf, b...)
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		w.emit(w.buf[:i])
		w.buf = w.buf[i+1:]
	}
	return len(b), nil
}

func (w *lineWriter) flush() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.buf) > 0 {
		w.emit(w.buf)
		w.buf = nil
	}
}

func (w *lineWriter) emit(line []byte) {
	line = bytes.TrimRight(line, "\r")
	if len(line) == 0 {
		return
	}
	w.log.Info("backend output", slog.String("stream", w.stream), slog.String("line", string(line)))
}
