package credential

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"

	"github.com/shrinex/warden/authc"
)

// ErrInvalidHash reports a malformed or unsupported encoded hash
var ErrInvalidHash = errors.New("credential: invalid argon2id hash")

type (
	// Argon2Params tune key derivation for HashArgon2
	Argon2Params struct {
		MemoryKiB   uint32
		Iterations  uint32
		Parallelism uint8
		SaltLength  uint32
		KeyLength   uint32
	}

	argon2Matcher struct{}
)

var _ authc.CredentialsMatcher = (*argon2Matcher)(nil)

// DefaultArgon2Params follows the RFC 9106 low-memory profile
var DefaultArgon2Params = Argon2Params{
	MemoryKiB:   65536,
	Iterations:  3,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

// Argon2 matches presented passwords against stored hashes in the
// $argon2id$v=19$m=<mem>,t=<iter>,p=<par>$<salt>$<hash> encoded form
func Argon2() authc.CredentialsMatcher {
	return &argon2Matcher{}
}

// HashArgon2 derives an encoded argon2id hash suitable as stored
// reference material for the Argon2 matcher
func HashArgon2(password string, params Argon2Params) (string, error) {
	if params.SaltLength == 0 || params.KeyLength == 0 ||
		params.MemoryKiB == 0 || params.Iterations == 0 || params.Parallelism == 0 {
		params = DefaultArgon2Params
	}

	salt := make([]byte, params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("credential: salt: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt,
		params.Iterations, params.MemoryKiB, params.Parallelism, params.KeyLength)

	b64 := base64.RawStdEncoding
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, params.MemoryKiB, params.Iterations, params.Parallelism,
		b64.EncodeToString(salt), b64.EncodeToString(key)), nil
}

func (m *argon2Matcher) Match(ctx context.Context, presented, stored string) (bool, error) {
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	default:
	}

	params, salt, expected, err := decodeArgon2(stored)
	if err != nil {
		return false, err
	}

	key := argon2.IDKey([]byte(presented), salt,
		params.Iterations, params.MemoryKiB, params.Parallelism, uint32(len(expected)))

	return subtle.ConstantTimeCompare(key, expected) == 1, nil
}

func decodeArgon2(encoded string) (Argon2Params, []byte, []byte, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return Argon2Params{}, nil, nil, ErrInvalidHash
	}

	if parts[2] != fmt.Sprintf("v=%d", argon2.Version) {
		return Argon2Params{}, nil, nil, ErrInvalidHash
	}

	var mem, it, par uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &mem, &it, &par); err != nil {
		return Argon2Params{}, nil, nil, ErrInvalidHash
	}
	if mem == 0 || it == 0 || par == 0 || par > 255 {
		return Argon2Params{}, nil, nil, ErrInvalidHash
	}

	// refuse attacker-controlled hash strings demanding pathological
	// resource usage
	if mem > DefaultArgon2Params.MemoryKiB*2 || it > DefaultArgon2Params.Iterations*2 {
		return Argon2Params{}, nil, nil, ErrInvalidHash
	}

	b64 := base64.RawStdEncoding
	salt, err := b64.DecodeString(parts[4])
	if err != nil || len(salt) < 8 || len(salt) > 64 {
		return Argon2Params{}, nil, nil, ErrInvalidHash
	}
	hash, err := b64.DecodeString(parts[5])
	if err != nil || len(hash) < 16 || len(hash) > 128 {
		return Argon2Params{}, nil, nil, ErrInvalidHash
	}

	return Argon2Params{
		MemoryKiB:   mem,
		Iterations:  it,
		Parallelism: uint8(par),
		SaltLength:  uint32(len(salt)),
		KeyLength:   uint32(len(hash)),
	}, salt, hash, nil
}
