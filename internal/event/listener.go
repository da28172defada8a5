package event

import (
	"context"
	"log/slog"
)

var events = make(chan Event, 256)

// Send publishes an event to the process-wide bus. It never blocks the
// caller: if the bus is saturated the event is dropped, lifecycle events
// are advisory and must not stall bot work.
func Send(e Event) {
	select {
	case events <- e:
	default:
	}
}

type Handler func(ctx context.Context, e Event) error

type Listener struct {
	logger   *slog.Logger
	handlers []Handler
}

func NewListener(logger *slog.Logger) *Listener {
	return &Listener{
		logger: logger,
	}
}

func (l *Listener) Register(h Handler) {
	l.handlers = append(l.handlers, h)
}

// Listen dispatches events to every registered handler until ctx is done.
// Handler errors are logged and swallowed, one broken observer must not
// take the bus down.
func (l *Listener) Listen(ctx context.Context) error {
	for {
		select {
		case e := <-events:
			for _, h := range l.handlers {
				if err := h(ctx, e); err != nil {
					l.logger.Error("error running event handler", slog.Any("error", err))
				}
			}
		case <-ctx.Done():
			return nil
		}
	}
}
