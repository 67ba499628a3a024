package authc

import (
	"context"
	"fmt"
)

type (
	// OutcomeStatus classifies a single realm's verdict
	OutcomeStatus int

	// An Outcome is one realm's verdict on an attempt. Outcomes are
	// fed to the Strategy in realm configuration order
	Outcome struct {
		// Realm that produced the outcome
		Realm string
		// Status of the verdict
		Status OutcomeStatus
		// Account is populated on success
		Account *AccountInfo
		// Cause is populated on failure
		Cause *Error
	}

	// A Strategy decides overall success or failure from the ordered
	// sequence of per-realm outcomes. Callbacks are invoked
	// incrementally so short-circuiting strategies can halt realm
	// enumeration by returning ErrStopAttempts.
	//
	// A Strategy instance serves exactly one attempt
	Strategy interface {
		// BeforeAll runs once before any realm is queried
		BeforeAll(ctx context.Context, realms int) error
		// BeforeAttempt runs before the named realm is queried
		BeforeAttempt(ctx context.Context, realm string) error
		// AfterAttempt observes the realm's outcome
		AfterAttempt(ctx context.Context, outcome Outcome) error
		// AfterAll yields the consolidated verdict
		AfterAll(ctx context.Context) (*AuthenticationInfo, error)
	}

	// A StrategyFactory produces a fresh Strategy per attempt
	StrategyFactory func() Strategy

	atLeastOneSuccessful struct {
		successes []*AccountInfo
		failures  []*Error
	}

	firstSuccessful struct {
		success  *AccountInfo
		failures []*Error
	}

	allSuccessful struct {
		successes []*AccountInfo
		abort     *Error
	}
)

const (
	// OutcomeNotApplicable means the realm has no knowledge of the principal
	OutcomeNotApplicable OutcomeStatus = iota
	// OutcomeSuccess means the realm located the account and verified credentials
	OutcomeSuccess
	// OutcomeFailure means the realm reached a negative verdict or faulted
	OutcomeFailure
)

var (
	_ Strategy = (*atLeastOneSuccessful)(nil)
	_ Strategy = (*firstSuccessful)(nil)
	_ Strategy = (*allSuccessful)(nil)
)

// AtLeastOneSuccessful succeeds if one or more realms report success
// and merges every successful account. Failures are retained for the
// final verdict when nothing succeeds
func AtLeastOneSuccessful() Strategy {
	return &atLeastOneSuccessful{}
}

// FirstSuccessful stops at the first successful realm; realms
// configured after it are never invoked
func FirstSuccessful() Strategy {
	return &firstSuccessful{}
}

// AllSuccessful requires every configured realm to succeed. A realm
// with no knowledge of the principal is a configuration error, and
// any failure aborts enumeration immediately
func AllSuccessful() Strategy {
	return &allSuccessful{}
}

//=====================================
//		 AtLeastOneSuccessful
//=====================================

func (s *atLeastOneSuccessful) BeforeAll(context.Context, int) error {
	return nil
}

func (s *atLeastOneSuccessful) BeforeAttempt(context.Context, string) error {
	return nil
}

func (s *atLeastOneSuccessful) AfterAttempt(_ context.Context, outcome Outcome) error {
	switch outcome.Status {
	case OutcomeSuccess:
		s.successes = append(s.successes, outcome.Account)
	case OutcomeFailure:
		s.failures = append(s.failures, outcome.Cause)
	}

	return nil
}

func (s *atLeastOneSuccessful) AfterAll(context.Context) (*AuthenticationInfo, error) {
	if len(s.successes) > 0 {
		return newAuthenticationInfo(s.successes...), nil
	}

	return nil, verdictOf(s.failures)
}

//=====================================
//		   FirstSuccessful
//=====================================

func (s *firstSuccessful) BeforeAll(context.Context, int) error {
	return nil
}

func (s *firstSuccessful) BeforeAttempt(context.Context, string) error {
	return nil
}

func (s *firstSuccessful) AfterAttempt(_ context.Context, outcome Outcome) error {
	switch outcome.Status {
	case OutcomeSuccess:
		s.success = outcome.Account
		return ErrStopAttempts
	case OutcomeFailure:
		s.failures = append(s.failures, outcome.Cause)
	}

	return nil
}

func (s *firstSuccessful) AfterAll(context.Context) (*AuthenticationInfo, error) {
	if s.success != nil {
		return newAuthenticationInfo(s.success), nil
	}

	return nil, verdictOf(s.failures)
}

//=====================================
//		    AllSuccessful
//=====================================

func (s *allSuccessful) BeforeAll(_ context.Context, realms int) error {
	if realms == 0 {
		return NewError(KindAggregateFailure, "", fmt.Errorf("no realms configured"))
	}

	return nil
}

func (s *allSuccessful) BeforeAttempt(context.Context, string) error {
	return nil
}

func (s *allSuccessful) AfterAttempt(_ context.Context, outcome Outcome) error {
	switch outcome.Status {
	case OutcomeSuccess:
		s.successes = append(s.successes, outcome.Account)
		return nil
	case OutcomeFailure:
		s.abort = outcome.Cause
	default:
		// a realm that does not know the principal cannot vouch for
		// it, which this policy treats as a configuration error
		s.abort = NewError(KindAggregateFailure, outcome.Realm,
			fmt.Errorf("realm %s has no account for the principal", outcome.Realm))
	}

	return ErrStopAttempts
}

func (s *allSuccessful) AfterAll(context.Context) (*AuthenticationInfo, error) {
	if s.abort != nil {
		return nil, s.abort
	}

	if len(s.successes) == 0 {
		return nil, ErrUnknownAccount
	}

	return newAuthenticationInfo(s.successes...), nil
}

// verdictOf derives the final failure for strategies with no
// successful realm: the first failure in configuration order wins,
// and an attempt no realm had knowledge of is an unknown account
func verdictOf(failures []*Error) *Error {
	if len(failures) == 0 {
		return ErrUnknownAccount
	}

	return failures[0]
}
