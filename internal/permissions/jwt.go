package permissions

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken = errors.New("permissions: missing bearer token")
	ErrInvalidToken = errors.New("permissions: invalid token")
)

// Claims is the token payload issued by the site's sign-in service.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// JWTAuthenticator verifies HS256 bearer tokens and turns them into sessions.
// Token issuance lives outside this module.
type JWTAuthenticator struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// JWTOption customises the authenticator.
type JWTOption func(*JWTAuthenticator)

// WithIssuer requires tokens to carry the given issuer.
func WithIssuer(issuer string) JWTOption {
	return func(a *JWTAuthenticator) {
		a.issuer = strings.TrimSpace(issuer)
	}
}

// WithTimeFunc overrides the clock used for expiry checks.
func WithTimeFunc(now func() time.Time) JWTOption {
	return func(a *JWTAuthenticator) {
		if now != nil {
			a.now = now
		}
	}
}

func NewJWTAuthenticator(secret string, opts ...JWTOption) *JWTAuthenticator {
	auth := &JWTAuthenticator{
		secret: []byte(secret),
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(auth)
		}
	}
	return auth
}

// Authenticate parses the raw bearer token. An empty token yields
// ErrMissingToken so callers can fall back to an anonymous session.
func (a *JWTAuthenticator) Authenticate(token string) (Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Anonymous, ErrMissingToken
	}
	if len(a.secret) == 0 {
		return Anonymous, fmt.Errorf("%w: authenticator has no secret", ErrInvalidToken)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.now),
		jwt.WithExpirationRequired(),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, opts...)
	if err != nil {
		return Anonymous, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid || strings.TrimSpace(claims.Subject) == "" {
		return Anonymous, ErrInvalidToken
	}

	return Session{
		UserID: claims.Subject,
		Role:   ParseRole(claims.Role),
	}, nil
}

// Sign issues a token for session. It exists for local tooling and tests; the
// production issuer is the external sign-in service.
func (a *JWTAuthenticator) Sign(session Session, ttl time.Duration) (string, error) {
	now := a.now()
	claims := Claims{
		Role: string(session.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   session.UserID,
			Issuer:    a.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}
