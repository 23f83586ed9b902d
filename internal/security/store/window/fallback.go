package window

import (
	"context"
	"log/slog"
	"time"

	"amlguard/pkg/platform/circuit"
)

// FallbackWindow serves from a primary window and degrades to a local one
// while the primary is failing. Every failure is also written locally so the
// fallback holds recent history when the circuit opens.
type FallbackWindow struct {
	primary  FailureWindow
	fallback FailureWindow
	breaker  *circuit.Breaker
	logger   *slog.Logger
}

func NewFallback(primary, fallback FailureWindow, breaker *circuit.Breaker, logger *slog.Logger) *FallbackWindow {
	if breaker == nil {
		breaker = circuit.New("failure-window")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FallbackWindow{primary: primary, fallback: fallback, breaker: breaker, logger: logger}
}

func (w *FallbackWindow) Record(ctx context.Context, ip string, at time.Time) error {
	localErr := w.fallback.Record(ctx, ip, at)
	if err := w.primary.Record(ctx, ip, at); err != nil {
		w.failed(ctx, err)
		return localErr
	}
	w.succeeded(ctx)
	return localErr
}

func (w *FallbackWindow) Count(ctx context.Context, ip string, from, to time.Time) (int, error) {
	n, err := w.primary.Count(ctx, ip, from, to)
	if err != nil {
		w.failed(ctx, err)
		return w.fallback.Count(ctx, ip, from, to)
	}
	if usePrimary := w.succeeded(ctx); !usePrimary {
		return w.fallback.Count(ctx, ip, from, to)
	}
	return n, nil
}

// Degraded reports whether the circuit is open.
func (w *FallbackWindow) Degraded() bool {
	return w.breaker.IsOpen()
}

func (w *FallbackWindow) failed(ctx context.Context, err error) {
	_, change := w.breaker.RecordFailure()
	if change.Opened {
		w.logger.WarnContext(ctx, "failure window degraded to in-memory fallback",
			"breaker", w.breaker.Name(),
			"error", err,
		)
	}
}

func (w *FallbackWindow) succeeded(ctx context.Context) bool {
	usePrimary, change := w.breaker.RecordSuccess()
	if change.Closed {
		w.logger.InfoContext(ctx, "failure window recovered", "breaker", w.breaker.Name())
	}
	return usePrimary
}
