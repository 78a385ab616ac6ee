// Package events carries claim lifecycle events from the service to the
// audit trail, notifications and optional mirrors, after the commit.
package events

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"incapacity-claims/internal/domain"
)

// Handler consumes one event.
type Handler interface {
	HandleEvent(ctx context.Context, ev domain.ClaimEvent) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, ev domain.ClaimEvent) error

func (f HandlerFunc) HandleEvent(ctx context.Context, ev domain.ClaimEvent) error {
	return f(ctx, ev)
}

// Emitter publishes events. Emit never fails from the caller's point of view.
type Emitter interface {
	Emit(ctx context.Context, ev domain.ClaimEvent)
}

// LocalEmitter runs every handler in its own goroutine.
type LocalEmitter struct {
	handlers []Handler
	logger   *zap.Logger
	wg       sync.WaitGroup
}

func NewLocalEmitter(logger *zap.Logger, handlers ...Handler) *LocalEmitter {
	return &LocalEmitter{handlers: handlers, logger: logger}
}

func (e *LocalEmitter) Emit(ctx context.Context, ev domain.ClaimEvent) {
	base := context.WithoutCancel(ctx)
	for _, h := range e.handlers {
		e.wg.Add(1)
		go func(h Handler) {
			defer e.wg.Done()
			invoke(base, h, ev, e.logger)
		}(h)
	}
}

// Wait blocks until all started handlers return.
func (e *LocalEmitter) Wait() {
	e.wg.Wait()
}

// invoke runs h, logging errors and panics.
func invoke(ctx context.Context, h Handler, ev domain.ClaimEvent, logger *zap.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("event handler panicked",
				zap.String("event_id", ev.EventID),
				zap.String("kind", string(ev.Kind)),
				zap.String("panic", fmt.Sprint(r)),
			)
		}
	}()
	if err := h.HandleEvent(ctx, ev); err != nil {
		logger.Error("event handler failed",
			zap.String("event_id", ev.EventID),
			zap.String("kind", string(ev.Kind)),
			zap.Int64("claim_id", ev.ClaimID),
			zap.Error(err),
		)
	}
}
