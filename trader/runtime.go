// Copyright (c) 2023 BVK Chaitanya

package trader

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bvk/autotrader/exchange"
	"github.com/bvk/autotrader/gobs"
	"github.com/bvkgo/kv"
	"github.com/visvasity/topic"
)

// Messenger delivers a human-readable message to the user's notification
// channel. Implementations must not block for long; failures are swallowed
// by the trading loop.
type Messenger interface {
	SendMessage(ctx context.Context, at time.Time, text string) error
}

// Runtime bundles the external collaborators one trading session works
// against.
type Runtime struct {
	Database kv.Database

	Exchange exchange.Exchange

	Messenger Messenger

	Events *topic.Topic[*gobs.EngineEvent]
}

// Notify formats and sends one user-visible message, prefixed by the
// phase it originates from. Messenger failures never fail the cycle.
func (rt *Runtime) Notify(ctx context.Context, phase, format string, args ...interface{}) {
	text := fmt.Sprintf("[%s] %s", phase, fmt.Sprintf(format, args...))
	if rt.Messenger == nil {
		slog.Info("notification (no messenger)", "text", text)
		return
	}
	if err := rt.Messenger.SendMessage(ctx, time.Now(), text); err != nil {
		slog.Warn("could not send notification (ignored)", "text", text, "err", err)
	}
}

// Publish sends an engine event to subscribers, if any. Publish failures
// never fail the cycle.
func (rt *Runtime) Publish(ev *gobs.EngineEvent) {
	if rt.Events == nil {
		return
	}
	if err := rt.Events.Send(ev); err != nil {
		slog.Warn("could not publish engine event (ignored)", "type", ev.Type, "err", err)
	}
}
