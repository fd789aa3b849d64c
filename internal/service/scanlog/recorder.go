// Package scanlog provides the asynchronous, best-effort writer for scan
// log entries.
package scanlog

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/heartmarshall/qrfactory/internal/domain"
)

type appender interface {
	Append(ctx context.Context, entry domain.ScanLogEntry) (int64, error)
}

const (
	DefaultBuffer = 256
	writeTimeout  = 5 * time.Second
)

// Stats is a snapshot of the recorder counters.
type Stats struct {
	Queued  int   `json:"queued"`
	Written int64 `json:"written"`
	Dropped int64 `json:"dropped"`
	Failed  int64 `json:"failed"`
}

// Recorder queues entries on a buffered channel drained by one worker.
// A full buffer drops the entry; write failures are logged. Neither ever
// reaches the caller.
type Recorder struct {
	repo appender
	log  *slog.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan domain.ScanLogEntry
	done   chan struct{}

	written atomic.Int64
	dropped atomic.Int64
	failed  atomic.Int64
}

// NewRecorder creates a Recorder and starts its worker. A non-positive
// buffer uses DefaultBuffer.
func NewRecorder(log *slog.Logger, repo appender, buffer int) *Recorder {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	r := &Recorder{
		repo:  repo,
		log:   log.With("service", "scanlog"),
		queue: make(chan domain.ScanLogEntry, buffer),
		done:  make(chan struct{}),
	}
	go r.run()
	return r
}

// Record enqueues entry without blocking.
func (r *Recorder) Record(entry domain.ScanLogEntry) {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		r.drop(entry, "recorder closed")
		return
	}

	select {
	case r.queue <- entry:
	default:
		r.drop(entry, "buffer full")
	}
}

// Close stops accepting entries and waits until queued entries are written
// or ctx is done.
func (r *Recorder) Close(ctx context.Context) error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.queue)
	}
	r.mu.Unlock()

	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns the current counters.
func (r *Recorder) Stats() Stats {
	return Stats{
		Queued:  len(r.queue),
		Written: r.written.Load(),
		Dropped: r.dropped.Load(),
		Failed:  r.failed.Load(),
	}
}

func (r *Recorder) run() {
	defer close(r.done)

	for entry := range r.queue {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		_, err := r.repo.Append(ctx, entry)
		cancel()

		if err != nil {
			r.failed.Add(1)
			r.log.Error("scan log write failed",
				slog.String("code", entry.Code),
				slog.String("action", entry.Action.String()),
				slog.String("error", err.Error()),
			)
			continue
		}
		r.written.Add(1)
	}
}

func (r *Recorder) drop(entry domain.ScanLogEntry, reason string) {
	r.dropped.Add(1)
	r.log.Warn("scan log entry dropped",
		slog.String("code", entry.Code),
		slog.String("action", entry.Action.String()),
		slog.String("reason", reason),
	)
}
