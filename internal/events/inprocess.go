package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/yungbote/coursehub-backend/internal/platform/logger"
)

type inProcessBus struct {
	log      *logger.Logger
	mu       sync.RWMutex
	handlers []Handler
}

// NewInProcessBus dispatches events synchronously to the subscribed handlers.
func NewInProcessBus(log *logger.Logger) Bus {
	return &inProcessBus{log: log.With("service", "InProcessEventBus")}
}

func (b *inProcessBus) Subscribe(h Handler) {
	if h == nil {
		return
	}
	b.mu.Lock()
	b.handlers = append(b.handlers, h)
	b.mu.Unlock()
}

func (b *inProcessBus) Publish(ctx context.Context, ev CourseContentChanged) error {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	return b.dispatch(ctx, ev)
}

func (b *inProcessBus) dispatch(ctx context.Context, ev CourseContentChanged) error {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.handlers...)
	b.mu.RUnlock()

	var errs []error
	for i, h := range handlers {
		if err := safeCall(ctx, h, ev); err != nil {
			b.log.Warn("Event handler failed", "course_id", ev.CourseID, "reason", ev.Reason, "handler", i, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (b *inProcessBus) Close() error { return nil }

func safeCall(ctx context.Context, h Handler, ev CourseContentChanged) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("event handler panic: %v", r)
		}
	}()
	return h(ctx, ev)
}
