package auth

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidCredentials is returned for a wrong admin username or password.
	ErrInvalidCredentials = errors.New("invalid admin credentials")

	// ErrInvalidToken is returned for a bad, expired or non-admin token.
	ErrInvalidToken = errors.New("invalid admin token")
)

const (
	tokenIssuer = "vouch"
	roleClaim   = "role"
	roleAdmin   = "admin"

	// DefaultTokenTTL is the lifetime of an admin API token.
	DefaultTokenTTL = time.Hour

	// AdminKeyID is the kid of generated admin signing keys.
	AdminKeyID = "admin-token-key"
)

// AdminAuthenticator checks admin logins and issues admin API tokens.
type AdminAuthenticator struct {
	username     string
	passwordHash []byte
	signingKey   jwk.Key
	verifyKey    jwk.Key
	ttl          time.Duration
	now          func() time.Time
}

// NewAdminAuthenticator builds an authenticator from a bcrypt password hash
// and an ES256 private JWK.
func NewAdminAuthenticator(username, passwordHash string, signingKey jwk.Key) (*AdminAuthenticator, error) {
	if username == "" {
		return nil, errors.New("admin username is required")
	}
	if _, err := bcrypt.Cost([]byte(passwordHash)); err != nil {
		return nil, fmt.Errorf("admin password hash is not a bcrypt hash: %w", err)
	}
	if signingKey == nil {
		return nil, errors.New("admin signing key is required")
	}

	verifyKey, err := signingKey.PublicKey()
	if err != nil {
		return nil, fmt.Errorf("failed to derive admin verification key: %w", err)
	}

	return &AdminAuthenticator{
		username:     username,
		passwordHash: []byte(passwordHash),
		signingKey:   signingKey,
		verifyKey:    verifyKey,
		ttl:          DefaultTokenTTL,
		now:          time.Now,
	}, nil
}

// ParseSigningKey parses an ES256 private key in JWK JSON form.
func ParseSigningKey(data string) (jwk.Key, error) {
	key, err := jwk.ParseKey([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse admin JWK: %w", err)
	}
	if key.KeyType() != jwa.EC {
		return nil, fmt.Errorf("admin JWK must be an EC key, got %s", key.KeyType())
	}
	return key, nil
}

// GenerateSigningKey creates a fresh ES256 private JWK.
func GenerateSigningKey() (jwk.Key, error) {
	raw, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate private key: %w", err)
	}
	key, err := jwk.FromRaw(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to create JWK from private key: %w", err)
	}
	for k, v := range map[string]interface{}{
		jwk.KeyIDKey:     AdminKeyID,
		jwk.AlgorithmKey: jwa.ES256,
		jwk.KeyUsageKey:  "sig",
	} {
		if err := key.Set(k, v); err != nil {
			return nil, fmt.Errorf("failed to set %s: %w", k, err)
		}
	}
	return key, nil
}

// Login checks a username and password.
func (a *AdminAuthenticator) Login(username, password string) error {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.username)) == 1
	passErr := bcrypt.CompareHashAndPassword(a.passwordHash, []byte(password))
	if !userOK || passErr != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// IssueToken signs an admin token for the configured admin.
func (a *AdminAuthenticator) IssueToken() (string, time.Time, error) {
	now := a.now()
	expires := now.Add(a.ttl)

	tok, err := jwt.NewBuilder().
		Issuer(tokenIssuer).
		Subject(a.username).
		IssuedAt(now).
		Expiration(expires).
		Claim(roleClaim, roleAdmin).
		Build()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to build admin token: %w", err)
	}

	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.ES256, a.signingKey))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign admin token: %w", err)
	}
	return string(signed), expires, nil
}

// VerifyToken checks signature, issuer, expiry and role.
func (a *AdminAuthenticator) VerifyToken(token string) (string, error) {
	tok, err := jwt.Parse([]byte(token),
		jwt.WithKey(jwa.ES256, a.verifyKey),
		jwt.WithValidate(true),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithClock(jwt.ClockFunc(a.now)),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	role, _ := tok.Get(roleClaim)
	if role != roleAdmin {
		return "", fmt.Errorf("%w: missing admin role", ErrInvalidToken)
	}
	return tok.Subject(), nil
}
