package call

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// RequestHandler serializes all call-control work onto one worker
// goroutine. Registry mutations and state-machine transitions only ever
// run on this goroutine, so operations on the same call observe a total
// order and never race each other.
type RequestHandler struct {
	logger *slog.Logger
	queue  chan func()

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
	stopped chan struct{}

	processed atomic.Uint64
}

// NewRequestHandler creates a handler with the given queue capacity.
func NewRequestHandler(queueSize int, logger *slog.Logger) *RequestHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if queueSize <= 0 {
		queueSize = 256
	}
	return &RequestHandler{
		logger:  logger.With("subsystem", "request_handler"),
		queue:   make(chan func(), queueSize),
		stopped: make(chan struct{}),
	}
}

// Start launches the worker goroutine. It returns immediately. A
// handler whose worker has stopped stays stopped; queued requests are
// not replayed.
func (h *RequestHandler) Start(ctx context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.started {
		return
	}
	select {
	case <-h.stopped:
		return
	default:
	}
	ctx, h.cancel = context.WithCancel(ctx)
	h.started = true
	h.wg.Add(1)
	go h.run(ctx)
	h.logger.Info("request worker started", "queue_size", cap(h.queue))
}

// Stop cancels the worker and waits for it to exit.
func (h *RequestHandler) Stop() {
	h.mu.Lock()
	if !h.started {
		h.mu.Unlock()
		return
	}
	h.cancel()
	h.started = false
	h.mu.Unlock()
	h.wg.Wait()
	h.logger.Info("request worker stopped")
}

func (h *RequestHandler) run(ctx context.Context) {
	defer h.wg.Done()
	defer close(h.stopped)
	for {
		select {
		case <-ctx.Done():
			return
		case fn := <-h.queue:
			h.invoke(fn)
			h.processed.Add(1)
		}
	}
}

func (h *RequestHandler) invoke(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("request panicked", "panic", r)
		}
	}()
	fn()
}

// Post enqueues work for the worker. It blocks while the queue is full
// so callers apply natural backpressure instead of dropping requests.
// After Stop the work is dropped.
func (h *RequestHandler) Post(fn func()) {
	select {
	case h.queue <- fn:
	case <-h.stopped:
	}
}

// PostAndWait enqueues work and blocks until it ran, returning its
// error. The control API uses it to hand a synchronous result back.
// Requests still queued when the worker stops fail with
// ErrWorkerStopped instead of blocking forever.
func (h *RequestHandler) PostAndWait(fn func() error) error {
	done := make(chan error, 1)
	select {
	case h.queue <- func() { done <- fn() }:
	case <-h.stopped:
		return ErrWorkerStopped
	}
	select {
	case err := <-done:
		return err
	case <-h.stopped:
		return ErrWorkerStopped
	}
}

// QueueDepth and ProcessedCount feed the metrics collector.
func (h *RequestHandler) QueueDepth() int { return len(h.queue) }

func (h *RequestHandler) ProcessedCount() uint64 { return h.processed.Load() }
