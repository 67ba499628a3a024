// Package realm provides built-in identity sources for the
// modular-realm authenticator: an in-memory account realm, a JWT
// bearer realm and a Postgres-backed realm. Realm backing stores
// beyond these live entirely outside this module.
package realm

import (
	"context"
	"sync"

	"github.com/shrinex/warden/authc"
)

// MemoryRealm keeps accounts in process memory. Intended for tests,
// tooling and small fixed account sets
type MemoryRealm struct {
	name    string
	matcher authc.CredentialsMatcher
	mu      sync.RWMutex
	lookup  map[string]*authc.AccountInfo
}

var _ authc.Realm = (*MemoryRealm)(nil)

func NewMemoryRealm(name string, matcher authc.CredentialsMatcher) *MemoryRealm {
	return &MemoryRealm{
		name:    name,
		matcher: matcher,
		lookup:  make(map[string]*authc.AccountInfo),
	}
}

// AddAccount registers an account under its primary principal plus
// any aliases. stored is the reference material the realm's matcher
// understands, e.g. a bcrypt hash
func (r *MemoryRealm) AddAccount(principal, stored string, aliases ...string) {
	account := &authc.AccountInfo{
		Principals:  append([]string{principal}, aliases...),
		Credentials: stored,
		Realm:       r.name,
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range account.Principals {
		r.lookup[p] = account
	}
}

// SetLocked marks the account administratively locked or unlocked
func (r *MemoryRealm) SetLocked(principal string, locked bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if account, ok := r.lookup[principal]; ok {
		account.Locked = locked
	}
}

func (r *MemoryRealm) Name() string {
	return r.name
}

func (r *MemoryRealm) Supports(token authc.Token) bool {
	_, ok := token.(*authc.UsernamePasswordToken)
	return ok
}

func (r *MemoryRealm) LoadAccount(ctx context.Context, token authc.Token) (*authc.AccountInfo, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	r.mu.RLock()
	account, ok := r.lookup[token.Principal()]
	r.mu.RUnlock()

	if !ok {
		return nil, authc.ErrUnknownAccount
	}

	return account.Clone(), nil
}

func (r *MemoryRealm) CredentialsMatch(ctx context.Context, token authc.Token, account *authc.AccountInfo) (bool, error) {
	return r.matcher.Match(ctx, token.Credentials(), account.Credentials)
}
