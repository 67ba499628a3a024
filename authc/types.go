package authc

import "context"

type (
	// A Token is a consolidation of an account's principal and
	// supporting credentials submitted during an authentication attempt
	Token interface {
		// Principal being authenticated
		Principal() string
		// Credentials that prove the identity of the Principal
		Credentials() string
		// RememberMe reports whether the identity should be
		// retained across sessions after a successful attempt
		RememberMe() bool
	}

	// AccountInfo is what a single Realm knows about an account.
	// It lives only for the duration of an authentication attempt
	AccountInfo struct {
		// Principals attributable to the account, primary first
		Principals []string
		// Credentials holds the stored reference material used
		// for verification, e.g. an encoded password hash
		Credentials string
		// Realm that produced this account info
		Realm string
		// Locked marks the account as administratively locked
		Locked bool
	}

	// AuthenticationInfo is the consolidated outcome of a successful
	// attempt, merged across every contributing Realm
	AuthenticationInfo struct {
		principals []string
		realms     []string
	}

	// A CredentialsMatcher compares presented credential material
	// against the stored reference material of an account
	CredentialsMatcher interface {
		// Match returns true if presented proves ownership of stored
		Match(ctx context.Context, presented, stored string) (bool, error)
	}

	// A Realm is a pluggable identity source. Realms are queried
	// independently and must not share mutable state with each other
	Realm interface {
		// Name uniquely identifies this Realm within an Authenticator
		Name() string
		// Supports returns true if the specified Token can be handled by this Realm
		Supports(Token) bool
		// LoadAccount locates account data for the token's principal,
		// or reports ErrUnknownAccount when the principal is not known here
		LoadAccount(context.Context, Token) (*AccountInfo, error)
		// CredentialsMatch verifies the token's credentials against the account
		CredentialsMatch(context.Context, Token, *AccountInfo) (bool, error)
	}

	// An Authenticator is responsible for authenticating accounts
	// by consolidating the verdicts of its configured Realms
	Authenticator interface {
		// Authenticate a user based on the submitted Token
		Authenticate(context.Context, Token) (*AuthenticationInfo, error)
	}
)

// Primary returns the canonical principal of the account
func (a *AccountInfo) Primary() string {
	if a == nil || len(a.Principals) == 0 {
		return ""
	}

	return a.Principals[0]
}

// Clone returns a deep copy so callers can hold outcomes
// without aliasing realm-owned state
func (a *AccountInfo) Clone() *AccountInfo {
	if a == nil {
		return nil
	}

	dup := *a
	dup.Principals = append([]string(nil), a.Principals...)
	return &dup
}

// Principal returns the canonical principal. When multiple realms
// contribute, the realm listed first in configuration order wins
func (i *AuthenticationInfo) Principal() string {
	if i == nil || len(i.principals) == 0 {
		return ""
	}

	return i.principals[0]
}

// Principals returns every principal reported by contributing
// realms, canonical principal first, in realm configuration order
func (i *AuthenticationInfo) Principals() []string {
	if i == nil {
		return nil
	}

	return append([]string(nil), i.principals...)
}

// Realms returns the names of the realms that contributed
func (i *AuthenticationInfo) Realms() []string {
	if i == nil {
		return nil
	}

	return append([]string(nil), i.realms...)
}

func newAuthenticationInfo(accounts ...*AccountInfo) *AuthenticationInfo {
	info := &AuthenticationInfo{}
	seen := make(map[string]struct{})
	for _, account := range accounts {
		if account == nil {
			continue
		}
		for _, principal := range account.Principals {
			if _, ok := seen[principal]; ok {
				continue
			}
			seen[principal] = struct{}{}
			info.principals = append(info.principals, principal)
		}
		info.realms = append(info.realms, account.Realm)
	}

	return info
}
