package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// TokenValidator checks the contextual claims of a backend-issued cashier
// token: the signing algorithm, issuer, audience, validity window, and the
// subject that carries the cashier id. Signature verification happens before
// this runs; TokenValidator only judges claims.
type TokenValidator struct {
	Issuer         string
	Audience       string
	ClockSkew      time.Duration
	Algorithm      jwa.SignatureAlgorithm
	RequireSubject bool
}

// Validate ensures the supplied token satisfies the configured claim
// requirements at the given instant. Empty Issuer or Audience skips that
// check; RequireSubject rejects tokens that name no cashier.
func (v TokenValidator) Validate(tok jwt.Token, algorithm jwa.SignatureAlgorithm, now time.Time) error {
	if tok == nil {
		return errors.New("auth: token is nil")
	}

	if algorithm == "" {
		return errors.New("auth: token missing algorithm")
	}
	if v.Algorithm != "" && algorithm != v.Algorithm {
		return fmt.Errorf("auth: unexpected token algorithm %s", algorithm)
	}
	if v.RequireSubject && tok.Subject() == "" {
		return errors.New("auth: token names no cashier")
	}

	options := []jwt.ValidateOption{
		jwt.WithClock(jwt.ClockFunc(func() time.Time { return now })),
	}
	if v.ClockSkew > 0 {
		options = append(options, jwt.WithAcceptableSkew(v.ClockSkew))
	}
	if v.Issuer != "" {
		options = append(options, jwt.WithIssuer(v.Issuer))
	}
	if v.Audience != "" {
		options = append(options, jwt.WithAudience(v.Audience))
	}

	return jwt.Validate(tok, options...)
}
