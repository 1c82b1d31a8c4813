package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// MinSecretLength is the shortest HMAC secret NewTokenManager accepts.
const MinSecretLength = 16

// TokenManager issues and verifies HS256-signed JWTs for authenticated users.
// Tokens are stateless: validity is signature + issuer + expiry, nothing is stored.
type TokenManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager creates a manager with the provided secret, issuer, and lifetime.
func NewTokenManager(secret, issuer string, ttl time.Duration) (*TokenManager, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("%w: need at least %d bytes", ErrSecretTooShort, MinSecretLength)
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("token lifetime must be positive, got %s", ttl)
	}
	return &TokenManager{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// TTL returns the lifetime of issued tokens.
func (t *TokenManager) TTL() time.Duration { return t.ttl }

// Issue returns a signed JWT whose subject is userID.
func (t *TokenManager) Issue(userID string) (string, error) {
	if userID == "" {
		return "", errors.New("issue token: empty subject")
	}
	now := t.now()
	claims := jwt.RegisteredClaims{
		Issuer:    t.issuer,
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks raw and returns the subject it was issued for.
// Failures wrap ErrMalformedToken, ErrBadSignature or ErrTokenExpired.
func (t *TokenManager) Verify(raw string) (string, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(raw, &claims, t.key,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(t.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return "", classify(err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", ErrMalformedToken)
	}
	return claims.Subject, nil
}

func (t *TokenManager) key(*jwt.Token) (any, error) {
	return t.secret, nil
}

// classify maps jwt parse errors onto the package's verification errors.
// The signature is checked before claims, so an expired token signed with
// another key reports ErrBadSignature.
func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return fmt.Errorf("%w: %v", ErrBadSignature, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrTokenExpired, err)
	default:
		return fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
}
