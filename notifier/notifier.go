// Package notifier fans out platform events (badge earned, content flagged,
// points milestones) to external sinks. Dispatch is fire-and-forget: sink
// failures are logged and never propagate to the request that triggered
// them.
package notifier

import (
	"context"
	"log/slog"
	"time"
)

// Event names used by the submission pipeline.
const (
	EventBadgeEarned    = "badge-earned"
	EventContentFlagged = "content-flagged"
	EventContentBlocked = "content-blocked"
	EventWarningIssued  = "warning-issued"
	EventLevelUp        = "level-up"
)

// Notifier delivers a single event to one sink. Implementations must apply
// their own bounded timeouts; callers never await delivery.
type Notifier interface {
	Send(ctx context.Context, event string, payload map[string]any) error
}

// Dispatcher hands events to its notifiers on background goroutines with a
// bounded delivery timeout, detached from the caller's request context.
type Dispatcher struct {
	Logger    *slog.Logger
	Notifiers []Notifier
	Timeout   time.Duration
}

func NewDispatcher(logger *slog.Logger, notifiers ...Notifier) *Dispatcher {
	if logger == nil {
		logger = slog.Default().With("system", "notifier")
	}
	return &Dispatcher{
		Logger:    logger,
		Notifiers: notifiers,
		Timeout:   10 * time.Second,
	}
}

// Dispatch never blocks and never returns delivery errors.
func (d *Dispatcher) Dispatch(event string, payload map[string]any) {
	for _, n := range d.Notifiers {
		go func(n Notifier) {
			ctx, cancel := context.WithTimeout(context.Background(), d.Timeout)
			defer cancel()
			if err := n.Send(ctx, event, payload); err != nil {
				d.Logger.Warn("notification delivery failed", "event", event, "err", err)
				sentCount.WithLabelValues(event, "failed").Inc()
				return
			}
			sentCount.WithLabelValues(event, "delivered").Inc()
		}(n)
	}
}
