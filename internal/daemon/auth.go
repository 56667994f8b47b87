package daemon

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"notesmith/internal/config"
)

const tokenIssuer = "notesmith"

var errUnauthorized = errors.New("unauthorized")

// Authenticator validates bearer credentials for the HTTP API. A request
// passes when its token equals the static token or is a valid HS256 JWT
// signed with the configured secret. With neither configured, every request
// passes.
type Authenticator struct {
	token  string
	secret []byte
	now    func() time.Time
}

// NewAuthenticator builds an Authenticator from the API settings.
func NewAuthenticator(cfg config.API) *Authenticator {
	auth := &Authenticator{token: strings.TrimSpace(cfg.Token), now: time.Now}
	if secret := strings.TrimSpace(cfg.JWTSecret); secret != "" {
		auth.secret = []byte(secret)
	}
	return auth
}

// Enabled reports whether credentials are required.
func (a *Authenticator) Enabled() bool {
	return a != nil && (a.token != "" || len(a.secret) > 0)
}

// Verify checks a raw bearer token.
func (a *Authenticator) Verify(raw string) error {
	if !a.Enabled() {
		return nil
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return errUnauthorized
	}
	if a.token != "" && subtle.ConstantTimeCompare([]byte(raw), []byte(a.token)) == 1 {
		return nil
	}
	if len(a.secret) == 0 {
		return errUnauthorized
	}
	keyFunc := func(*jwt.Token) (any, error) { return a.secret, nil }
	_, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{}, keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", errUnauthorized, err)
	}
	return nil
}

// Middleware rejects requests without valid credentials.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	if !a.Enabled() {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
			return
		}
		if err := a.Verify(strings.TrimPrefix(header, "Bearer ")); err != nil {
			http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// IssueToken mints an HS256 JWT for subject that expires after ttl.
func IssueToken(secret, subject string, ttl time.Duration, now time.Time) (string, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return "", errors.New("api.jwt_secret is not configured")
	}
	if ttl <= 0 {
		return "", errors.New("token ttl must be positive")
	}
	claims := jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   strings.TrimSpace(subject),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
