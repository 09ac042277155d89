// Package middleware provides HTTP middleware: authentication, request IDs,
// and rate limiting.
package middleware

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims holds the claims the server cares about from a validated JWT.
type TokenClaims struct {
	Subject string
	Issuer  string
	Admin   bool
	Raw     map[string]interface{}
}

// TokenValidator validates a bearer token and returns its claims.
type TokenValidator interface {
	Validate(ctx context.Context, token string) (*TokenClaims, error)
}

// HS256Validator validates JWTs signed with a shared HS256 secret. Intended
// for local and single-tenant deployments.
type HS256Validator struct {
	secret []byte
}

// NewHS256Validator creates a validator for HS256 tokens.
func NewHS256Validator(secret string) (*HS256Validator, error) {
	if secret == "" {
		return nil, fmt.Errorf("JWT secret is required")
	}
	return &HS256Validator{secret: []byte(secret)}, nil
}

// Validate verifies an HS256 signature and extracts claims.
func (v *HS256Validator) Validate(_ context.Context, token string) (*TokenClaims, error) {
	tok, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("token verification failed: %w", err)
	}
	raw, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("parse claims: unsupported claim type %T", tok.Claims)
	}
	return claimsFromRaw(map[string]interface{}(raw)), nil
}

// OIDCValidator validates JWTs against an identity provider's JWKS.
type OIDCValidator struct {
	verifier *oidc.IDTokenVerifier
}

// NewOIDCValidator creates a validator via OIDC discovery on the issuer URL.
func NewOIDCValidator(ctx context.Context, issuerURL, audience string) (*OIDCValidator, error) {
	provider, err := oidc.NewProvider(ctx, issuerURL)
	if err != nil {
		return nil, fmt.Errorf("oidc provider discovery: %w", err)
	}
	return &OIDCValidator{verifier: provider.Verifier(&oidc.Config{ClientID: audience})}, nil
}

// Validate verifies the token signature and issuer, then extracts claims.
func (v *OIDCValidator) Validate(ctx context.Context, token string) (*TokenClaims, error) {
	idToken, err := v.verifier.Verify(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("token verification failed: %w", err)
	}
	var raw map[string]interface{}
	if err := idToken.Claims(&raw); err != nil {
		return nil, fmt.Errorf("parse claims: %w", err)
	}
	claims := claimsFromRaw(raw)
	claims.Subject = idToken.Subject
	claims.Issuer = idToken.Issuer
	return claims, nil
}

// claimsFromRaw lifts the subject, issuer, and admin flag out of a raw claim
// map. The admin flag accepts the JSON bool claim "admin".
func claimsFromRaw(raw map[string]interface{}) *TokenClaims {
	c := &TokenClaims{Raw: raw}
	if sub, ok := raw["sub"].(string); ok {
		c.Subject = sub
	}
	if iss, ok := raw["iss"].(string); ok {
		c.Issuer = iss
	}
	if admin, ok := raw["admin"].(bool); ok {
		c.Admin = admin
	}
	return c
}
