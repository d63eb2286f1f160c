package httputil

import (
	stderrors "errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/safetag/safetag-backend/pkg/errors"
)

// Authenticator checks HS256 bearer tokens issued by the kiosk backend
type Authenticator struct {
	secret []byte
	parser *jwt.Parser
}

// NewAuthenticator creates an authenticator for tokens signed with secret.
// A non-empty issuer must match the token's iss claim.
func NewAuthenticator(secret, issuer string) *Authenticator {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	return &Authenticator{
		secret: []byte(secret),
		parser: jwt.NewParser(opts...),
	}
}

// Validate parses a raw token and returns its subject
func (a *Authenticator) Validate(raw string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := a.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	})
	if err != nil {
		if stderrors.Is(err, jwt.ErrTokenExpired) {
			return "", errors.TokenExpired()
		}
		return "", errors.TokenInvalid()
	}
	if !token.Valid || claims.Subject == "" {
		return "", errors.TokenInvalid()
	}
	return claims.Subject, nil
}

// Middleware rejects requests without a valid bearer token and puts the
// token subject on the context
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			ErrorLocalized(w, r, errors.Unauthorized("missing bearer token"))
			return
		}

		subject, err := a.Validate(strings.TrimSpace(raw))
		if err != nil {
			ErrorLocalized(w, r, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithSubject(r.Context(), subject)))
	})
}
