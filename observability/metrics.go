// Package observability provides Prometheus metrics and audit
// logging for the authentication engine, attached as event bus
// subscribers so the engine itself stays free of instrumentation.
package observability

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/shrinex/warden/event"
)

var (
	// LoginAttemptsTotal counts login attempts by outcome.
	LoginAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warden_login_attempts_total",
			Help: "Login attempts",
		},
		[]string{"outcome"},
	)

	// LoginFailuresTotal counts failed logins by failure kind.
	LoginFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warden_login_failures_total",
			Help: "Failed logins",
		},
		[]string{"kind"},
	)

	// LogoutsTotal counts logouts.
	LogoutsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "warden_logouts_total",
			Help: "Logouts",
		},
	)
)

// Register registers the collectors with reg,
// or the default registerer when reg is nil
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	for _, c := range []prometheus.Collector{
		LoginAttemptsTotal, LoginFailuresTotal, LogoutsTotal,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}

	return nil
}

// Observe subscribes the collectors to bus. The returned cancel
// function detaches them again
func Observe(bus event.Bus) (cancel func()) {
	cancels := []func(){
		bus.Subscribe(event.TopicLoginSucceeded, func(context.Context, event.Event) {
			LoginAttemptsTotal.WithLabelValues("success").Inc()
		}),
		bus.Subscribe(event.TopicLoginFailed, func(_ context.Context, ev event.Event) {
			LoginAttemptsTotal.WithLabelValues("failure").Inc()
			LoginFailuresTotal.WithLabelValues(ev.Failure).Inc()
		}),
		bus.Subscribe(event.TopicLogout, func(context.Context, event.Event) {
			LogoutsTotal.Inc()
		}),
	}

	return func() {
		for _, f := range cancels {
			f()
		}
	}
}
