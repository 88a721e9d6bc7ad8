// Package auth authenticates query API callers from a signed bearer token.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	jwt "github.com/golang-jwt/jwt/v5"
	"google.golang.org/grpc/metadata"
)

// Principal kinds accepted by the query API.
const (
	KindReader = "reader"
	KindAdmin  = "admin"
)

// Principal is the query API caller named by the token's "name" and "kind" claims.
type Principal struct {
	Name string
	Kind string // KindReader or KindAdmin
}

// tokenClaims is the payload the query API expects.
type tokenClaims struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
	jwt.RegisteredClaims
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext returns the caller set by the auth interceptor.
func FromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok
}

// ParseFromMD reads the "authorization: Bearer <token>" header of an incoming
// call and verifies the token against secret.
func ParseFromMD(ctx context.Context, secret string) (*Principal, error) {
	if _, ok := metadata.FromIncomingContext(ctx); !ok {
		return nil, errors.New("missing metadata")
	}
	// Metadata keys are lowercased on the wire.
	header := metadata.ValueFromIncomingContext(ctx, "authorization")
	if len(header) == 0 {
		return nil, errors.New("missing authorization")
	}
	scheme, token, found := strings.Cut(header[0], " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return nil, errors.New("invalid authorization header")
	}
	return parseJWT(strings.TrimSpace(token), secret)
}

// parseJWT accepts HS256 tokens only and maps their claims to a Principal.
func parseJWT(token, secret string) (*Principal, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is empty")
	}
	var c tokenClaims
	_, err := jwt.ParseWithClaims(token, &c,
		func(*jwt.Token) (any, error) { return []byte(secret), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if c.Name == "" || c.Kind == "" {
		return nil, errors.New("token lacks name or kind claim")
	}
	switch kind := strings.ToLower(c.Kind); kind {
	case KindReader, KindAdmin:
		return &Principal{Name: c.Name, Kind: kind}, nil
	default:
		return nil, fmt.Errorf("unknown principal kind %q", c.Kind)
	}
}
