package observability

import (
	"context"
	"log/slog"

	"github.com/shrinex/warden/event"
)

// Audit subscribes an audit logger to every authentication topic on
// bus. Log lines carry topic, event id, principal and failure kind,
// never credential material
func Audit(bus event.Bus, logger *slog.Logger) (cancel func()) {
	if logger == nil {
		logger = slog.Default()
	}

	handler := func(_ context.Context, ev event.Event) {
		attrs := []any{
			"topic", ev.Topic,
			"event", ev.ID,
			"principal", ev.Principal,
			"at", ev.At,
		}

		switch ev.Topic {
		case event.TopicLoginFailed:
			logger.Warn("authentication failed", append(attrs, "kind", ev.Failure)...)
		case event.TopicLoginSucceeded:
			logger.Info("authentication succeeded", attrs...)
		default:
			logger.Info("subject logged out", attrs...)
		}
	}

	cancels := []func(){
		bus.Subscribe(event.TopicLoginSucceeded, handler),
		bus.Subscribe(event.TopicLoginFailed, handler),
		bus.Subscribe(event.TopicLogout, handler),
	}

	return func() {
		for _, f := range cancels {
			f()
		}
	}
}
