package security

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shrinex/warden/authc"
	"github.com/shrinex/warden/credential"
	"github.com/shrinex/warden/event"
	"github.com/shrinex/warden/realm"
	"github.com/stretchr/testify/assert"
)

func newTestAuthenticator(bus event.Bus) authc.Authenticator {
	users := realm.NewMemoryRealm("users", credential.Plain())
	users.AddAccount("alice", "s3cret", "alice@example.com")
	users.AddAccount("bob", "hunter2")
	return authc.NewAuthenticator(bus, users)
}

func newTestSubject(rememberMe RememberMeManager, bus event.Bus) Subject {
	return NewBuilder().
		Authenticator(newTestAuthenticator(bus)).
		RememberMe(rememberMe).
		EventBus(bus).
		Build(context.TODO())
}

func TestSubjectStartsAnonymous(t *testing.T) {
	subject := newTestSubject(nil, nil)

	assert.False(t, subject.Authenticated())
	assert.False(t, subject.Remembered())

	_, ok := subject.Identity()
	assert.False(t, ok)

	_, ok = subject.Principal()
	assert.False(t, ok)
}

func TestLoginMovesToAuthenticated(t *testing.T) {
	subject := newTestSubject(nil, nil)

	err := subject.Login(context.TODO(), authc.NewUsernamePasswordToken("alice", "s3cret"))
	assert.NoError(t, err)

	assert.True(t, subject.Authenticated())
	assert.False(t, subject.Remembered())

	principal, ok := subject.Principal()
	assert.True(t, ok)
	assert.Equal(t, "alice", principal)

	identity, ok := subject.Identity()
	assert.True(t, ok)
	assert.Contains(t, identity.Principals, "alice@example.com")
	assert.Equal(t, []string{"users"}, identity.Realms)
}

func TestFailedLoginLeavesStateUntouched(t *testing.T) {
	subject := newTestSubject(nil, nil)

	assert.NoError(t, subject.Login(context.TODO(), authc.NewUsernamePasswordToken("alice", "s3cret")))

	err := subject.Login(context.TODO(), authc.NewUsernamePasswordToken("alice", "wrong"))
	assert.ErrorIs(t, err, authc.ErrIncorrectCredentials)

	// the prior authenticated state survives the failed attempt
	assert.True(t, subject.Authenticated())
	principal, _ := subject.Principal()
	assert.Equal(t, "alice", principal)
}

func TestFailedLoginPreservesRememberedState(t *testing.T) {
	rememberMe := NewMemoryRememberMe(nil)
	assert.NoError(t, rememberMe.OnSuccessfulLogin(context.TODO(),
		authc.NewRememberMeToken("alice", "s3cret"),
		Identity{Principal: "alice", Principals: []string{"alice"}}))

	subject := newTestSubject(rememberMe, nil)
	assert.True(t, subject.Remembered())

	err := subject.Login(context.TODO(), authc.NewUsernamePasswordToken("alice", "wrong"))
	assert.Error(t, err)

	assert.True(t, subject.Remembered())
	assert.False(t, subject.Authenticated())
	principal, ok := subject.Principal()
	assert.True(t, ok)
	assert.Equal(t, "alice", principal)
}

func TestStatesAreMutuallyExclusive(t *testing.T) {
	rememberMe := NewMemoryRememberMe(nil)
	assert.NoError(t, rememberMe.OnSuccessfulLogin(context.TODO(),
		authc.NewRememberMeToken("alice", "s3cret"),
		Identity{Principal: "alice", Principals: []string{"alice"}}))

	subject := newTestSubject(rememberMe, nil)

	// remembered, not authenticated
	assert.True(t, subject.Remembered())
	assert.False(t, subject.Authenticated())

	// fresh proof discards remembered status
	assert.NoError(t, subject.Login(context.TODO(), authc.NewUsernamePasswordToken("alice", "s3cret")))
	assert.True(t, subject.Authenticated())
	assert.False(t, subject.Remembered())

	// logout returns to anonymous
	assert.NoError(t, subject.Logout(context.TODO()))
	assert.False(t, subject.Authenticated())
	assert.False(t, subject.Remembered())
}

func TestLogoutIsIdempotent(t *testing.T) {
	bus := event.NewBus()
	defer bus.Close()

	var logouts int
	bus.Subscribe(event.TopicLogout, func(context.Context, event.Event) {
		logouts++
	})

	subject := newTestSubject(nil, bus)
	assert.NoError(t, subject.Login(context.TODO(), authc.NewUsernamePasswordToken("bob", "hunter2")))

	assert.NoError(t, subject.Logout(context.TODO()))
	assert.NoError(t, subject.Logout(context.TODO()))
	assert.NoError(t, subject.Logout(context.TODO()))

	// only the transition out of a non-anonymous state publishes
	assert.Equal(t, 1, logouts)
	_, ok := subject.Identity()
	assert.False(t, ok)
}

func TestLogoutPublishesPrincipal(t *testing.T) {
	bus := event.NewBus()
	defer bus.Close()

	var got event.Event
	bus.Subscribe(event.TopicLogout, func(_ context.Context, ev event.Event) {
		got = ev
	})

	subject := newTestSubject(nil, bus)
	assert.NoError(t, subject.Login(context.TODO(), authc.NewUsernamePasswordToken("alice", "s3cret")))
	assert.NoError(t, subject.Logout(context.TODO()))

	assert.Equal(t, "alice", got.Principal)
	assert.NotEmpty(t, got.ID)
}

func TestConcurrentLoginLogout(t *testing.T) {
	subject := newTestSubject(nil, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = subject.Login(context.TODO(), authc.NewUsernamePasswordToken("alice", "s3cret"))
		}()
		go func() {
			defer wg.Done()
			_ = subject.Logout(context.TODO())
		}()
	}
	wg.Wait()

	// whatever interleaving happened, the subject settles in exactly
	// one coherent state
	if subject.Authenticated() {
		principal, ok := subject.Principal()
		assert.True(t, ok)
		assert.Equal(t, "alice", principal)
	} else {
		_, ok := subject.Identity()
		assert.False(t, ok)
	}
}

//=====================================
//	  Remember-me lifecycle
//=====================================

func TestRememberMeRoundTrip(t *testing.T) {
	rememberMe := NewMemoryRememberMe(nil)

	first := newTestSubject(rememberMe, nil)
	assert.NoError(t, first.Login(context.TODO(), authc.NewRememberMeToken("alice", "s3cret")))
	assert.NotEmpty(t, rememberMe.Marker())

	// a later subject built from the same manager recalls the identity
	second := newTestSubject(rememberMe, nil)
	assert.True(t, second.Remembered())
	assert.False(t, second.Authenticated())

	principal, ok := second.Principal()
	assert.True(t, ok)
	assert.Equal(t, "alice", principal)
}

func TestLoginWithoutRetentionForgetsPriorIdentity(t *testing.T) {
	rememberMe := NewMemoryRememberMe(nil)

	first := newTestSubject(rememberMe, nil)
	assert.NoError(t, first.Login(context.TODO(), authc.NewRememberMeToken("alice", "s3cret")))
	assert.NotEmpty(t, rememberMe.Marker())

	// a fresh login that does not request retention clears the store
	assert.NoError(t, first.Login(context.TODO(), authc.NewUsernamePasswordToken("bob", "hunter2")))
	assert.Empty(t, rememberMe.Marker())

	second := newTestSubject(rememberMe, nil)
	assert.False(t, second.Remembered())
}

func TestFailedLoginForgetsRememberedIdentity(t *testing.T) {
	rememberMe := NewMemoryRememberMe(nil)

	first := newTestSubject(rememberMe, nil)
	assert.NoError(t, first.Login(context.TODO(), authc.NewRememberMeToken("alice", "s3cret")))

	assert.Error(t, first.Login(context.TODO(), authc.NewUsernamePasswordToken("alice", "wrong")))
	assert.Empty(t, rememberMe.Marker())

	second := newTestSubject(rememberMe, nil)
	assert.False(t, second.Remembered())
}

func TestLogoutForgetsRememberedIdentity(t *testing.T) {
	rememberMe := NewMemoryRememberMe(nil)

	first := newTestSubject(rememberMe, nil)
	assert.NoError(t, first.Login(context.TODO(), authc.NewRememberMeToken("alice", "s3cret")))
	assert.NoError(t, first.Logout(context.TODO()))

	assert.Empty(t, rememberMe.Marker())

	second := newTestSubject(rememberMe, nil)
	assert.False(t, second.Remembered())
}

func TestFaultingRememberMeNeverFailsLogin(t *testing.T) {
	subject := newTestSubject(&faultingRememberMe{}, nil)

	err := subject.Login(context.TODO(), authc.NewRememberMeToken("alice", "s3cret"))
	assert.NoError(t, err)
	assert.True(t, subject.Authenticated())

	assert.NoError(t, subject.Logout(context.TODO()))
	assert.False(t, subject.Authenticated())
}

func TestPanickingRememberMeIsContained(t *testing.T) {
	subject := newTestSubject(&panickingRememberMe{}, nil)

	assert.NotPanics(t, func() {
		assert.NoError(t, subject.Login(context.TODO(), authc.NewRememberMeToken("alice", "s3cret")))
	})
	assert.True(t, subject.Authenticated())
}

func TestCorruptedRememberedIdentityYieldsAnonymous(t *testing.T) {
	rememberMe := NewMemoryRememberMe(nil)
	rememberMe.stored = "{not json"

	subject := newTestSubject(rememberMe, nil)

	assert.False(t, subject.Remembered())
	assert.False(t, subject.Authenticated())

	// the corrupt entry is gone for good
	_, ok, err := rememberMe.Load(context.TODO())
	assert.False(t, ok)
	assert.NoError(t, err)
}

func TestBuildWithoutAuthenticatorPanics(t *testing.T) {
	assert.Panics(t, func() {
		NewBuilder().Build(context.TODO())
	})
}

type faultingRememberMe struct{}

var _ RememberMeManager = (*faultingRememberMe)(nil)

func (*faultingRememberMe) Load(context.Context) (Identity, bool, error) {
	return Identity{}, false, errors.New("store offline")
}

func (*faultingRememberMe) OnSuccessfulLogin(context.Context, authc.Token, Identity) error {
	return errors.New("store offline")
}

func (*faultingRememberMe) OnFailedLogin(context.Context, authc.Token) error {
	return errors.New("store offline")
}

func (*faultingRememberMe) OnLogout(context.Context) error {
	return errors.New("store offline")
}

type panickingRememberMe struct{}

var _ RememberMeManager = (*panickingRememberMe)(nil)

func (*panickingRememberMe) Load(context.Context) (Identity, bool, error) {
	return Identity{}, false, nil
}

func (*panickingRememberMe) OnSuccessfulLogin(context.Context, authc.Token, Identity) error {
	panic("remember-me store gone")
}

func (*panickingRememberMe) OnFailedLogin(context.Context, authc.Token) error {
	panic("remember-me store gone")
}

func (*panickingRememberMe) OnLogout(context.Context) error {
	panic("remember-me store gone")
}
