package security

import (
	"context"
	"fmt"
	"sync"

	"github.com/shrinex/warden/authc"
	"github.com/shrinex/warden/codec"
)

type (
	// A RememberMeManager persists a long-lived identity marker
	// across sessions. Implementations must never store credential
	// material, only identifying attributes.
	//
	// Lifecycle: a successful login always forgets any previously
	// stored identity first and stores the new one only when the
	// token asked for retention; failed logins and logouts forget
	// unconditionally
	RememberMeManager interface {
		// Load returns the previously remembered identity, if any.
		// Called once at Subject construction
		Load(context.Context) (Identity, bool, error)
		// OnSuccessfulLogin reacts to a successful attempt
		OnSuccessfulLogin(context.Context, authc.Token, Identity) error
		// OnFailedLogin forgets any stored identity so stale
		// identity data cannot outlive a failed attempt
		OnFailedLogin(context.Context, authc.Token) error
		// OnLogout forgets any stored identity
		OnLogout(context.Context) error
	}

	// MemoryRememberMe keeps the serialized identity in process
	// memory. The marker models the opaque value a transport layer
	// would hand to the client; storage of that marker is outside
	// this module
	MemoryRememberMe struct {
		mu     sync.Mutex
		codec  codec.Codec
		marker string
		stored string
	}
)

var _ RememberMeManager = (*MemoryRememberMe)(nil)

func NewMemoryRememberMe(c codec.Codec) *MemoryRememberMe {
	if c == nil {
		c = codec.JSON
	}

	return &MemoryRememberMe{codec: c}
}

// Marker returns the opaque identifier minted for the currently
// remembered identity, or empty when nothing is remembered
func (m *MemoryRememberMe) Marker() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.marker
}

func (m *MemoryRememberMe) Load(ctx context.Context) (Identity, bool, error) {
	select {
	case <-ctx.Done():
		return Identity{}, false, ctx.Err()
	default:
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.stored) == 0 {
		return Identity{}, false, nil
	}

	var identity Identity
	if err := m.codec.Decode(m.stored, &identity); err != nil {
		// corrupted identity data is forgotten, not surfaced
		m.forget()
		return Identity{}, false, fmt.Errorf("security: decode remembered identity: %w", err)
	}

	return identity, true, nil
}

func (m *MemoryRememberMe) OnSuccessfulLogin(ctx context.Context, token authc.Token, identity Identity) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// always clear any previous identity first
	m.forget()

	if !token.RememberMe() {
		return nil
	}

	data, err := m.codec.Encode(identity)
	if err != nil {
		return fmt.Errorf("security: encode remembered identity: %w", err)
	}

	m.stored = data
	m.marker = GetGlobalOptions().NewMarker()

	return nil
}

func (m *MemoryRememberMe) OnFailedLogin(ctx context.Context, _ authc.Token) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.forget()

	return nil
}

func (m *MemoryRememberMe) OnLogout(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.forget()

	return nil
}

// forget clears stored identity and marker; callers hold the lock
func (m *MemoryRememberMe) forget() {
	m.stored = ""
	m.marker = ""
}
