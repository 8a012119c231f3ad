// Copyright (c) 2026 Waitgate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultSendTimeout bounds a single delivery attempt.
const DefaultSendTimeout = 10 * time.Second

// Observer receives the outcome of every delivery.
type Observer interface {
	ObserveNotification(kind string, delivered bool)
}

// Dispatcher sends messages in the background, throttled by a token bucket.
type Dispatcher struct {
	notifier Notifier
	limiter  *rate.Limiter
	timeout  time.Duration
	logger   *slog.Logger
	observer Observer

	mu      sync.Mutex
	closed  bool
	pending sync.WaitGroup
}

// NewDispatcher creates a dispatcher allowing perSecond sends with the given
// burst. observer may be nil.
func NewDispatcher(notifier Notifier, perSecond float64, burst int, logger *slog.Logger, observer Observer) *Dispatcher {
	if burst < 1 {
		burst = 1
	}
	return &Dispatcher{
		notifier: notifier,
		limiter:  rate.NewLimiter(rate.Limit(perSecond), burst),
		timeout:  DefaultSendTimeout,
		logger:   logger,
		observer: observer,
	}
}

// Dispatch queues message and returns immediately. The send outlives the
// caller's cancellation but not the dispatcher's timeout.
func (dispatcher *Dispatcher) Dispatch(ctx context.Context, message Message) {
	dispatcher.mu.Lock()
	if dispatcher.closed {
		dispatcher.mu.Unlock()
		dispatcher.logger.WarnContext(ctx, "verification_dispatch_dropped",
			slog.String("kind", message.Kind),
			slog.String("destination", message.Destination),
		)
		return
	}
	dispatcher.pending.Add(1)
	dispatcher.mu.Unlock()

	go func() {
		defer dispatcher.pending.Done()

		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), dispatcher.timeout)
		defer cancel()

		err := dispatcher.limiter.Wait(sendCtx)
		if err == nil {
			err = dispatcher.notifier.SendVerification(sendCtx, message)
		}

		if dispatcher.observer != nil {
			dispatcher.observer.ObserveNotification(message.Kind, err == nil)
		}

		if err != nil {
			dispatcher.logger.ErrorContext(sendCtx, "verification_dispatch_failed",
				slog.String("kind", message.Kind),
				slog.String("destination", message.Destination),
				slog.Any("error", err),
			)
		}
	}()
}

// Close stops accepting messages and waits for in-flight sends until ctx ends.
func (dispatcher *Dispatcher) Close(ctx context.Context) error {
	dispatcher.mu.Lock()
	dispatcher.closed = true
	dispatcher.mu.Unlock()

	done := make(chan struct{})
	go func() {
		dispatcher.pending.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
