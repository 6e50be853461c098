// Package notify provides the best-effort notification collaborators:
// channel-routed notifiers, an in-process event bus, and an outbound
// webhook sender. Delivery failures are logged and swallowed; they never
// propagate to the caller.
package notify

import (
	"context"
	"log/slog"
)

// Notifier delivers a notification over one channel. Implementations are
// fire-and-forget: errors are handled internally.
type Notifier interface {
	Send(ctx context.Context, channel, recipient, subject, body string)
}

// Func adapts a function to the Notifier interface.
type Func func(ctx context.Context, channel, recipient, subject, body string)

// Send calls f.
func (f Func) Send(ctx context.Context, channel, recipient, subject, body string) {
	f(ctx, channel, recipient, subject, body)
}

// LogNotifier writes notifications to the log. It is the fallback delivery
// path when no transport is configured for a channel.
type LogNotifier struct {
	Logger *slog.Logger
}

// Send logs the notification.
func (n *LogNotifier) Send(_ context.Context, channel, recipient, subject, body string) {
	n.Logger.Info("notification",
		slog.String("channel", channel),
		slog.String("recipient", recipient),
		slog.String("subject", subject),
		slog.String("body", body),
	)
}

// Router dispatches notifications to per-channel notifiers, falling back
// to Default for unknown channels.
type Router struct {
	routes  map[string]Notifier
	Default Notifier
}

// NewRouter creates a Router with the given fallback notifier.
func NewRouter(fallback Notifier) *Router {
	return &Router{routes: make(map[string]Notifier), Default: fallback}
}

// Route binds a channel name to a notifier.
func (r *Router) Route(channel string, n Notifier) { r.routes[channel] = n }

// Send routes the notification by channel name.
func (r *Router) Send(ctx context.Context, channel, recipient, subject, body string) {
	if n, ok := r.routes[channel]; ok {
		n.Send(ctx, channel, recipient, subject, body)
		return
	}
	if r.Default != nil {
		r.Default.Send(ctx, channel, recipient, subject, body)
	}
}
