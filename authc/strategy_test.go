package authc

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func success(realm string, principals ...string) Outcome {
	return Outcome{
		Realm:   realm,
		Status:  OutcomeSuccess,
		Account: &AccountInfo{Principals: principals, Realm: realm},
	}
}

func failure(realm string, kind Kind) Outcome {
	return Outcome{
		Realm:  realm,
		Status: OutcomeFailure,
		Cause:  NewError(kind, realm, nil),
	}
}

func notApplicable(realm string) Outcome {
	return Outcome{Realm: realm, Status: OutcomeNotApplicable}
}

func TestAtLeastOneTieBreakByRealmOrder(t *testing.T) {
	s := AtLeastOneSuccessful()
	ctx := context.TODO()

	assert.NoError(t, s.BeforeAll(ctx, 2))
	assert.NoError(t, s.AfterAttempt(ctx, success("r1", "alice", "shared")))
	assert.NoError(t, s.AfterAttempt(ctx, success("r2", "bob", "shared")))

	info, err := s.AfterAll(ctx)
	assert.NoError(t, err)
	// the realm listed first is authoritative for the canonical
	// principal; duplicates are dropped, order preserved
	assert.Equal(t, "alice", info.Principal())
	assert.Equal(t, []string{"alice", "shared", "bob"}, info.Principals())
}

func TestAtLeastOneFirstFailureWins(t *testing.T) {
	s := AtLeastOneSuccessful()
	ctx := context.TODO()

	assert.NoError(t, s.AfterAttempt(ctx, failure("r1", KindRealmUnavailable)))
	assert.NoError(t, s.AfterAttempt(ctx, failure("r2", KindIncorrectCredentials)))

	info, err := s.AfterAll(ctx)
	assert.Nil(t, info)
	assert.ErrorIs(t, err, ErrRealmUnavailable)
}

func TestFirstSuccessfulStopsEnumeration(t *testing.T) {
	s := FirstSuccessful()
	ctx := context.TODO()

	assert.NoError(t, s.AfterAttempt(ctx, failure("r1", KindIncorrectCredentials)))
	assert.ErrorIs(t, s.AfterAttempt(ctx, success("r2", "p2")), ErrStopAttempts)

	info, err := s.AfterAll(ctx)
	assert.NoError(t, err)
	assert.Equal(t, "p2", info.Principal())
	assert.Equal(t, []string{"r2"}, info.Realms())
}

func TestFirstSuccessfulAllNotApplicable(t *testing.T) {
	s := FirstSuccessful()
	ctx := context.TODO()

	assert.NoError(t, s.AfterAttempt(ctx, notApplicable("r1")))
	assert.NoError(t, s.AfterAttempt(ctx, notApplicable("r2")))

	info, err := s.AfterAll(ctx)
	assert.Nil(t, info)
	assert.ErrorIs(t, err, ErrUnknownAccount)
}

func TestAllSuccessfulRequiresRealms(t *testing.T) {
	s := AllSuccessful()
	assert.ErrorIs(t, s.BeforeAll(context.TODO(), 0), ErrAggregateFailure)
}

func TestAllSuccessfulMergesEveryRealm(t *testing.T) {
	s := AllSuccessful()
	ctx := context.TODO()

	assert.NoError(t, s.BeforeAll(ctx, 2))
	assert.NoError(t, s.AfterAttempt(ctx, success("r1", "alice")))
	assert.NoError(t, s.AfterAttempt(ctx, success("r2", "alice", "ops")))

	info, err := s.AfterAll(ctx)
	assert.NoError(t, err)
	assert.Equal(t, "alice", info.Principal())
	assert.Equal(t, []string{"alice", "ops"}, info.Principals())
	assert.Equal(t, []string{"r1", "r2"}, info.Realms())
}

func TestAllSuccessfulNotApplicableIsConfigError(t *testing.T) {
	s := AllSuccessful()
	ctx := context.TODO()

	assert.NoError(t, s.BeforeAll(ctx, 2))
	assert.NoError(t, s.AfterAttempt(ctx, success("r1", "alice")))
	assert.ErrorIs(t, s.AfterAttempt(ctx, notApplicable("r2")), ErrStopAttempts)

	info, err := s.AfterAll(ctx)
	assert.Nil(t, info)
	assert.ErrorIs(t, err, ErrAggregateFailure)

	var cause *Error
	assert.ErrorAs(t, err, &cause)
	assert.Equal(t, "r2", cause.Realm())
}
