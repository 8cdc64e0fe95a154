package service

import (
	"context"
	"sync"
	"time"

	"urlstore/pkg/logging"
	"urlstore/pkg/storage"
)

type ViewMode string

const (
	ViewModeAsync ViewMode = "async"
	ViewModeSync  ViewMode = "sync"

	DefaultViewTimeout = 5 * time.Second
)

// ViewRecorder writes view upserts. In async mode writes outlive the request
// that triggered them and are drained by Wait.
type ViewRecorder struct {
	ledger  storage.ViewLedger
	logger  *logging.Logger
	mode    ViewMode
	timeout time.Duration
	now     func() time.Time
	wg      sync.WaitGroup
}

func NewViewRecorder(ledger storage.ViewLedger, logger *logging.Logger, mode ViewMode, timeout time.Duration) *ViewRecorder {
	if timeout <= 0 {
		timeout = DefaultViewTimeout
	}
	return &ViewRecorder{
		ledger:  ledger,
		logger:  logger,
		mode:    mode,
		timeout: timeout,
		now:     time.Now,
	}
}

// Record counts one view of code. In async mode the returned error is always nil.
func (r *ViewRecorder) Record(ctx context.Context, code string) error {
	at := r.now()
	if r.mode != ViewModeAsync {
		return r.ledger.Increment(ctx, code, at)
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
		defer cancel()

		if err := r.ledger.Increment(ctx, code, at); err != nil {
			r.logger.Error(ctx, "failed to record view", "code", code, "error", err)
		}
	}()
	return nil
}

// Wait blocks until scheduled writes finish or ctx is done.
func (r *ViewRecorder) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
