package cart

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// writer coalesces snapshot writes. The first scheduled snapshot arms a timer;
// snapshots scheduled before it fires replace the pending one, so a burst of
// mutations produces a single write of the latest state. Writes never overlap.
type writer struct {
	save    func(ctx context.Context, data []byte) error
	delay   time.Duration
	timeout time.Duration
	logger  *zap.Logger
	onError func(error)

	mu      sync.Mutex
	pending []byte
	timer   *time.Timer
	closed  bool

	saveMu sync.Mutex
}

func (w *writer) schedule(data []byte) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		w.logger.Debug("cart writer closed, dropping snapshot")
		return
	}
	w.pending = data
	if w.timer == nil {
		w.timer = time.AfterFunc(w.delay, w.fire)
	}
}

func (w *writer) fire() {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()
	_ = w.writePending(ctx)
}

func (w *writer) writePending(ctx context.Context) error {
	w.saveMu.Lock()
	defer w.saveMu.Unlock()

	w.mu.Lock()
	data := w.pending
	w.pending = nil
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.mu.Unlock()

	if data == nil {
		return nil
	}
	if err := w.save(ctx, data); err != nil {
		w.logger.Warn("cart snapshot save failed", zap.Error(err))
		if w.onError != nil {
			w.onError(err)
		}
		return err
	}
	return nil
}

func (w *writer) close(ctx context.Context) error {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	return w.writePending(ctx)
}
