// Package credential provides CredentialsMatcher implementations for
// the password schemes used by built-in realms.
//
// A matcher is injected per realm, so heterogeneous realms can verify
// against different storage schemes within one authenticator.
package credential

import (
	"context"
	"crypto/subtle"

	"golang.org/x/crypto/bcrypt"

	"github.com/shrinex/warden/authc"
)

type (
	bcryptMatcher struct{}

	plainMatcher struct{}
)

var (
	_ authc.CredentialsMatcher = (*bcryptMatcher)(nil)
	_ authc.CredentialsMatcher = (*plainMatcher)(nil)
)

// Bcrypt matches presented passwords against stored bcrypt hashes
func Bcrypt() authc.CredentialsMatcher {
	return &bcryptMatcher{}
}

// Plain matches presented credentials against stored plaintext using
// a constant-time comparison. Meant for opaque API keys and tests,
// not passwords
func Plain() authc.CredentialsMatcher {
	return &plainMatcher{}
}

func (m *bcryptMatcher) Match(ctx context.Context, presented, stored string) (bool, error) {
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	default:
	}

	err := bcrypt.CompareHashAndPassword([]byte(stored), []byte(presented))
	if err == nil {
		return true, nil
	}
	if err == bcrypt.ErrMismatchedHashAndPassword {
		return false, nil
	}

	return false, err
}

func (m *plainMatcher) Match(ctx context.Context, presented, stored string) (bool, error) {
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	default:
	}

	return subtle.ConstantTimeCompare([]byte(presented), []byte(stored)) == 1, nil
}
