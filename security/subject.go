package security

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/shrinex/warden/authc"
	"github.com/shrinex/warden/event"
)

type (
	// Identity is the remembered or authenticated identity a Subject
	// carries. It is serializable so a remember-me manager can
	// persist it between sessions
	Identity struct {
		// Principal is the canonical principal
		Principal string `json:"principal"`
		// Principals holds every principal reported by contributing
		// realms, canonical first
		Principals []string `json:"principals"`
		// Realms names the realms that vouched for the identity
		Realms []string `json:"realms,omitempty"`
	}

	// A Subject is a per-caller identity state holder. It is always
	// in exactly one of three states: anonymous, remembered or
	// authenticated. State transitions are atomic with respect to
	// concurrent Login/Logout calls on the same instance
	Subject interface {
		// Login authenticates the token, moving the subject to the
		// authenticated state on success. A failed login leaves the
		// prior state untouched and surfaces the discriminated failure
		Login(context.Context, authc.Token) error
		// Logout unconditionally returns the subject to the
		// anonymous state. Idempotent
		Logout(context.Context) error
		// Authenticated reports whether the subject proved its
		// identity during the current session
		Authenticated() bool
		// Remembered reports whether the subject carries an identity
		// recalled from a prior session without fresh proof.
		// Never true together with Authenticated
		Remembered() bool
		// Identity returns the current identity, remembered or
		// authenticated, and whether one is present
		Identity() (Identity, bool)
		// Principal returns the canonical principal, if any
		Principal() (string, bool)
	}

	state int

	subject struct {
		mu            sync.Mutex
		state         state
		identity      Identity
		authenticator authc.Authenticator
		rememberMe    RememberMeManager
		bus           event.Bus
	}
)

const (
	stateAnonymous state = iota
	stateRemembered
	stateAuthenticated
)

var _ Subject = (*subject)(nil)

// Login holds the subject's lock for the whole attempt so concurrent
// Login/Logout calls serialize rather than interleave. Subjects are
// intended for single-caller use, so contention is not a concern
func (s *subject) Login(ctx context.Context, token authc.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, err := s.authenticator.Authenticate(ctx, token)
	if err != nil {
		s.notifyFailedLogin(ctx, token)
		return err
	}

	identity := Identity{
		Principal:  info.Principal(),
		Principals: info.Principals(),
		Realms:     info.Realms(),
	}

	// a fresh authentication discards any remembered status
	s.state = stateAuthenticated
	s.identity = identity

	s.notifySuccessfulLogin(ctx, token, identity)

	return nil
}

func (s *subject) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == stateAnonymous {
		return nil
	}

	principal := s.identity.Principal
	s.state = stateAnonymous
	s.identity = Identity{}

	s.notifyLogout(ctx)

	if s.bus != nil {
		s.bus.Publish(ctx, event.Event{
			Topic:     event.TopicLogout,
			Principal: principal,
		})
	}

	return nil
}

func (s *subject) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state == stateAuthenticated
}

func (s *subject) Remembered() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state == stateRemembered
}

func (s *subject) Identity() (Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == stateAnonymous {
		return Identity{}, false
	}

	return s.identity, true
}

func (s *subject) Principal() (string, bool) {
	identity, ok := s.Identity()
	if !ok {
		return "", false
	}

	return identity.Principal, true
}

//=====================================
//	  Remember-me notifications
//=====================================

// A faulting remember-me manager never fails the login or logout
// itself; the fault is logged and the state transition stands

func (s *subject) notifySuccessfulLogin(ctx context.Context, token authc.Token, identity Identity) {
	if s.rememberMe == nil {
		return
	}

	if err := guard(func() error {
		return s.rememberMe.OnSuccessfulLogin(ctx, token, identity)
	}); err != nil {
		slog.Warn("security: remember-me manager failed during successful login",
			"principal", identity.Principal, "err", err)
	}
}

func (s *subject) notifyFailedLogin(ctx context.Context, token authc.Token) {
	if s.rememberMe == nil {
		return
	}

	if err := guard(func() error {
		return s.rememberMe.OnFailedLogin(ctx, token)
	}); err != nil {
		slog.Warn("security: remember-me manager failed during failed login", "err", err)
	}
}

func (s *subject) notifyLogout(ctx context.Context) {
	if s.rememberMe == nil {
		return
	}

	if err := guard(func() error {
		return s.rememberMe.OnLogout(ctx)
	}); err != nil {
		slog.Warn("security: remember-me manager failed during logout", "err", err)
	}
}

func guard(f func() error) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = fmt.Errorf("panic: %v", v)
		}
	}()

	return f()
}
