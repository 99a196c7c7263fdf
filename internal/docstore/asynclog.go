package docstore

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// defaultQueueSize bounds the number of pending log records. Chat latency must
// never depend on the log backend, so writes queue here and a full queue drops
// the record rather than blocking the response path.
const defaultQueueSize = 256

// writeTimeout bounds a single backend insert so one slow write cannot stall
// the worker indefinitely.
const writeTimeout = 10 * time.Second

// AsyncLog wraps a ConversationLog with a background worker so Enqueue never
// blocks the caller. Records are written in order by a single goroutine.
type AsyncLog struct {
	backend ConversationLog
	log     *slog.Logger
	queue   chan LogRecord

	closeOnce sync.Once
	done      chan struct{}
}

// NewAsyncLog starts the background writer over the given backend. queueSize
// <= 0 selects the default.
func NewAsyncLog(backend ConversationLog, log *slog.Logger, queueSize int) *AsyncLog {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	a := &AsyncLog{
		backend: backend,
		log:     log,
		queue:   make(chan LogRecord, queueSize),
		done:    make(chan struct{}),
	}
	go a.run()
	return a
}

// run drains the queue until it is closed, then signals done.
func (a *AsyncLog) run() {
	defer close(a.done)
	for rec := range a.queue {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		if err := a.backend.Insert(ctx, rec); err != nil {
			a.log.Warn("conversation log write failed",
				slog.String("error", err.Error()),
			)
		}
		cancel()
	}
}

// Enqueue submits a record for background persistence. When the queue is full
// the record is dropped and a warning logged; the caller is never blocked.
func (a *AsyncLog) Enqueue(rec LogRecord) {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	select {
	case a.queue <- rec:
	default:
		a.log.Warn("conversation log queue full, dropping record",
			slog.Int("queue_size", cap(a.queue)),
		)
	}
}

// Close stops accepting new records, waits for the queue to drain (bounded by
// ctx), then closes the backend.
func (a *AsyncLog) Close(ctx context.Context) error {
	a.closeOnce.Do(func() {
		close(a.queue)
	})

	select {
	case <-a.done:
	case <-ctx.Done():
		a.log.Warn("conversation log shutdown timed out before queue drained")
	}

	return a.backend.Close(ctx)
}
