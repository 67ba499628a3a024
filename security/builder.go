package security

import (
	"context"
	"log/slog"

	"github.com/shrinex/warden/authc"
	"github.com/shrinex/warden/event"
)

// Builder provides a way to create Subject
type Builder struct {
	authenticator authc.Authenticator
	rememberMe    RememberMeManager
	bus           event.Bus
}

// NewBuilder returns a newly created Builder
func NewBuilder() *Builder {
	return &Builder{}
}

// Authenticator supplies the authenticator used by Subject
func (b *Builder) Authenticator(authenticator authc.Authenticator) *Builder {
	b.authenticator = authenticator
	return b
}

// RememberMe supplies an optional remember-me manager consulted at
// construction and notified on login/logout
func (b *Builder) RememberMe(rememberMe RememberMeManager) *Builder {
	b.rememberMe = rememberMe
	return b
}

// EventBus supplies the bus logout events are published on
func (b *Builder) EventBus(bus event.Bus) *Builder {
	b.bus = bus
	return b
}

// Build creates the Subject. A remembered identity, when the
// remember-me manager holds one, yields a subject in the remembered
// state; otherwise the subject starts anonymous
func (b *Builder) Build(ctx context.Context) Subject {
	if b.authenticator == nil {
		panic("nil authenticator")
	}

	s := &subject{
		authenticator: b.authenticator,
		rememberMe:    b.rememberMe,
		bus:           b.bus,
	}

	if b.rememberMe != nil {
		identity, ok, err := b.rememberMe.Load(ctx)
		switch {
		case err != nil:
			// a corrupt or unreadable remembered identity yields an
			// anonymous subject, never an error
			slog.Warn("security: discarding remembered identity", "err", err)
		case ok:
			s.state = stateRemembered
			s.identity = identity
		}
	}

	return s
}
