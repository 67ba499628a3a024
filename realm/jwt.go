package realm

import (
	"context"
	"fmt"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"github.com/shrinex/warden/authc"
)

type (
	// JWTConfig holds the JWT realm configuration
	JWTConfig struct {
		// Key is the HMAC signing secret
		Key []byte
		// Issuer is the expected iss claim; empty skips the check
		Issuer string
		// Leeway tolerates clock skew when validating time claims
		Leeway time.Duration
		// SubjectClaim names the claim carrying the principal;
		// empty means the registered sub claim
		SubjectClaim string
	}

	// JWTRealm accepts HMAC-signed bearer tokens. The token itself
	// carries the account: lookup extracts the subject claim, and
	// credential verification validates signature and time claims
	JWTRealm struct {
		name   string
		config JWTConfig
		parser *jwtlib.Parser
	}
)

var _ authc.Realm = (*JWTRealm)(nil)

func NewJWTRealm(name string, config JWTConfig) *JWTRealm {
	opts := []jwtlib.ParserOption{
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
		jwtlib.WithExpirationRequired(),
	}
	if len(config.Issuer) != 0 {
		opts = append(opts, jwtlib.WithIssuer(config.Issuer))
	}
	if config.Leeway > 0 {
		opts = append(opts, jwtlib.WithLeeway(config.Leeway))
	}

	return &JWTRealm{
		name:   name,
		config: config,
		parser: jwtlib.NewParser(opts...),
	}
}

func (r *JWTRealm) Name() string {
	return r.name
}

func (r *JWTRealm) Supports(token authc.Token) bool {
	_, ok := token.(*authc.BearerToken)
	return ok
}

// LoadAccount extracts the subject claim without verifying the
// signature; verification belongs to CredentialsMatch. A bearer
// credential this realm cannot even parse is treated as not known
// here so other realms may still claim it
func (r *JWTRealm) LoadAccount(ctx context.Context, token authc.Token) (*authc.AccountInfo, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	claims := jwtlib.MapClaims{}
	_, _, err := jwtlib.NewParser().ParseUnverified(token.Credentials(), claims)
	if err != nil {
		return nil, authc.ErrUnknownAccount
	}

	name := r.config.SubjectClaim
	if len(name) == 0 {
		name = "sub"
	}

	subject, _ := claims[name].(string)
	if len(subject) == 0 {
		return nil, authc.ErrUnknownAccount
	}

	return &authc.AccountInfo{
		Principals:  []string{subject},
		Credentials: token.Credentials(),
		Realm:       r.name,
	}, nil
}

func (r *JWTRealm) CredentialsMatch(ctx context.Context, token authc.Token, _ *authc.AccountInfo) (bool, error) {
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	default:
	}

	_, err := r.parser.Parse(token.Credentials(), func(*jwtlib.Token) (any, error) {
		return r.config.Key, nil
	})
	if err != nil {
		// expired, tampered or otherwise rejected tokens are a
		// credential mismatch, not a realm fault
		return false, nil
	}

	return true, nil
}

// MintJWT signs a short-lived HS256 token for the given subject.
// Provided so callers and tests can produce credentials this realm
// accepts without depending on jwt directly
func MintJWT(config JWTConfig, subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwtlib.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwtlib.NewNumericDate(now),
		ExpiresAt: jwtlib.NewNumericDate(now.Add(ttl)),
	}
	if len(config.Issuer) != 0 {
		claims.Issuer = config.Issuer
	}

	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(config.Key)
	if err != nil {
		return "", fmt.Errorf("realm: sign jwt: %w", err)
	}

	return signed, nil
}
