package server

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lestrrat-go/httprc/v3"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"
)

type Claims struct {
	UserID string
	Email  string
}

type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*Claims, error)
}

// JWKSVerifier checks access tokens against the identity provider's
// published key set.
type JWKSVerifier struct {
	cache *jwk.Cache
	url   string
}

func NewJWKSVerifier(ctx context.Context, issuerURL string) (*JWKSVerifier, error) {
	cache, err := jwk.NewCache(ctx, httprc.NewClient())
	if err != nil {
		return nil, fmt.Errorf("failed to create jwks cache: %w", err)
	}

	url := strings.TrimSuffix(issuerURL, "/") + "/.well-known/jwks.json"
	if err := cache.Register(ctx, url); err != nil {
		return nil, fmt.Errorf("failed to register jwks url: %w", err)
	}

	return &JWKSVerifier{cache: cache, url: url}, nil
}

func (v *JWKSVerifier) Verify(ctx context.Context, token string) (*Claims, error) {
	set, err := v.cache.Lookup(ctx, v.url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch jwks: %w", err)
	}

	parsed, err := jwt.Parse([]byte(token), jwt.WithKeySet(set), jwt.WithValidate(true))
	if err != nil {
		return nil, err
	}

	// Cognito id tokens carry the same subject; only access tokens are accepted.
	var use string
	if err := parsed.Get("token_use", &use); err == nil && use != "access" {
		return nil, errors.New("token is not an access token")
	}

	userID, ok := parsed.Subject()
	if !ok || userID == "" {
		return nil, errors.New("no user ID in token subject claim")
	}

	claims := &Claims{UserID: userID}
	// email is optional on access tokens
	_ = parsed.Get("email", &claims.Email)

	return claims, nil
}
