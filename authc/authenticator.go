package authc

import (
	"context"
	"errors"
	"fmt"

	"github.com/shrinex/warden/event"
)

type (
	authenticator struct {
		realms   []Realm
		strategy StrategyFactory
		bus      event.Bus
		lockout  *Lockout
	}

	// AuthenticatorOption customizes a modular-realm authenticator
	AuthenticatorOption func(*authenticator)
)

var _ Authenticator = (*authenticator)(nil)

// WithStrategy selects the consolidation policy.
// The default is AtLeastOneSuccessful
func WithStrategy(factory StrategyFactory) AuthenticatorOption {
	return func(a *authenticator) {
		if factory != nil {
			a.strategy = factory
		}
	}
}

// WithLockout installs a cross-cutting failure window consulted
// before any realm is queried
func WithLockout(lockout *Lockout) AuthenticatorOption {
	return func(a *authenticator) {
		a.lockout = lockout
	}
}

// NewAuthenticator builds a modular-realm authenticator over the
// given realms, queried in the order supplied. Every attempt
// publishes exactly one outcome event on bus before returning
func NewAuthenticator(bus event.Bus, realm Realm, realms ...Realm) Authenticator {
	a := &authenticator{
		realms:   append([]Realm{realm}, realms...),
		strategy: AtLeastOneSuccessful,
		bus:      bus,
	}

	return a
}

// NewAuthenticatorWith is NewAuthenticator plus options
func NewAuthenticatorWith(bus event.Bus, realms []Realm, opts ...AuthenticatorOption) Authenticator {
	if len(realms) == 0 {
		panic("authc: no realms")
	}

	a := &authenticator{
		realms:   append([]Realm(nil), realms...),
		strategy: AtLeastOneSuccessful,
		bus:      bus,
	}

	for _, f := range opts {
		f(a)
	}

	return a
}

// Authenticate drives every configured realm through the strategy,
// honoring early termination, and consolidates the verdicts.
//
// Enumeration is sequential in configuration order: each built-in
// strategy may short-circuit, so realms after a stop signal are
// never invoked
func (a *authenticator) Authenticate(ctx context.Context, token Token) (*AuthenticationInfo, error) {
	if token == nil || len(token.Principal()) == 0 {
		return nil, ErrInvalidToken
	}

	if !a.lockout.Allow(token.Principal()) {
		return nil, a.failed(ctx, token, NewError(KindExcessiveAttempts, "", nil))
	}

	strategy := a.strategy()
	if err := strategy.BeforeAll(ctx, len(a.realms)); err != nil {
		return nil, a.failed(ctx, token, asError(err))
	}

	for _, r := range a.realms {
		if err := strategy.BeforeAttempt(ctx, r.Name()); err != nil {
			if errors.Is(err, ErrStopAttempts) {
				break
			}
			return nil, a.failed(ctx, token, asError(err))
		}

		if err := strategy.AfterAttempt(ctx, a.attempt(ctx, r, token)); err != nil {
			if errors.Is(err, ErrStopAttempts) {
				break
			}
			return nil, a.failed(ctx, token, asError(err))
		}
	}

	info, err := strategy.AfterAll(ctx)
	if err != nil {
		return nil, a.failed(ctx, token, asError(err))
	}

	if len(info.Principals()) == 0 {
		// a success verdict without a principal is a strategy bug
		return nil, a.failed(ctx, token,
			NewError(KindAggregateFailure, "", fmt.Errorf("empty principal set")))
	}

	a.lockout.RecordSuccess(token.Principal())
	a.publish(ctx, event.Event{
		Topic:     event.TopicLoginSucceeded,
		Principal: info.Principal(),
	})

	return info, nil
}

// attempt produces a single realm's outcome. Realm-internal faults,
// including panics, are converted to failure outcomes here and never
// escape to the caller
func (a *authenticator) attempt(ctx context.Context, r Realm, token Token) Outcome {
	if !r.Supports(token) {
		return Outcome{Realm: r.Name(), Status: OutcomeNotApplicable}
	}

	account, err := loadAccount(ctx, r, token)
	if err != nil {
		if errors.Is(err, ErrUnknownAccount) {
			return Outcome{Realm: r.Name(), Status: OutcomeNotApplicable}
		}
		return Outcome{Realm: r.Name(), Status: OutcomeFailure, Cause: realmFailure(r.Name(), err)}
	}

	if account == nil {
		return Outcome{Realm: r.Name(), Status: OutcomeNotApplicable}
	}

	if len(account.Realm) == 0 {
		account.Realm = r.Name()
	}

	if account.Locked {
		return Outcome{
			Realm:  r.Name(),
			Status: OutcomeFailure,
			Cause:  NewError(KindLockedAccount, r.Name(), nil),
		}
	}

	match, err := credentialsMatch(ctx, r, token, account)
	if err != nil {
		return Outcome{Realm: r.Name(), Status: OutcomeFailure, Cause: realmFailure(r.Name(), err)}
	}

	if !match {
		return Outcome{
			Realm:  r.Name(),
			Status: OutcomeFailure,
			Cause:  NewError(KindIncorrectCredentials, r.Name(), nil),
		}
	}

	return Outcome{Realm: r.Name(), Status: OutcomeSuccess, Account: account}
}

// failed records the failure, publishes the outcome event and hands
// the discriminated failure back for the caller. Realm infrastructure
// faults do not count against the principal's failure window
func (a *authenticator) failed(ctx context.Context, token Token, cause *Error) *Error {
	if cause.Kind() != KindRealmUnavailable && cause.Kind() != KindExcessiveAttempts {
		a.lockout.RecordFailure(token.Principal())
	}

	// bearer-style tokens carry the credential as their principal;
	// those never reach an event payload
	principal := token.Principal()
	if principal == token.Credentials() {
		principal = ""
	}

	a.publish(ctx, event.Event{
		Topic:     event.TopicLoginFailed,
		Principal: principal,
		Failure:   cause.Kind().String(),
	})

	return cause
}

func (a *authenticator) publish(ctx context.Context, ev event.Event) {
	if a.bus != nil {
		a.bus.Publish(ctx, ev)
	}
}

// realmFailure classifies a realm-boundary error: discriminated
// failures keep their kind, anything else is the realm faulting
func realmFailure(realm string, err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		if len(e.realm) != 0 {
			return e
		}
		return NewError(e.kind, realm, e.cause)
	}

	return NewError(KindRealmUnavailable, realm, err)
}

func loadAccount(ctx context.Context, r Realm, token Token) (account *AccountInfo, err error) {
	defer func() {
		if v := recover(); v != nil {
			account, err = nil, fmt.Errorf("realm panicked: %v", v)
		}
	}()

	return r.LoadAccount(ctx, token)
}

func credentialsMatch(ctx context.Context, r Realm, token Token, account *AccountInfo) (match bool, err error) {
	defer func() {
		if v := recover(); v != nil {
			match, err = false, fmt.Errorf("realm panicked: %v", v)
		}
	}()

	return r.CredentialsMatch(ctx, token, account)
}
