package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/trabamex/mir-bff-go/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

// supabaseAudience is the aud claim GoTrue puts on user access tokens.
const supabaseAudience = "authenticated"

// ============================================================
// ValidateToken: used by middleware
// ============================================================

// AccessClaims are the claims of a Supabase access token.
type AccessClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// ValidateAccessToken verifies the HS256 signature with the project secret.
func (s *AuthService) ValidateAccessToken(tokenString string) (*AccessClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AccessClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithAudience(supabaseAudience), jwt.WithExpirationRequired())
	if err != nil {
		return nil, &domain.ErrUnauthorized{Message: "invalid or expired token"}
	}

	claims, ok := token.Claims.(*AccessClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, &domain.ErrUnauthorized{Message: "invalid token"}
	}
	return claims, nil
}

// Authenticate validates the token and returns the caller's profile. The
// role always comes from the profiles table, never from the token.
func (s *AuthService) Authenticate(ctx context.Context, tokenString string) (*domain.Profile, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.Authenticate")
	defer span.End()

	claims, err := s.ValidateAccessToken(tokenString)
	if err != nil {
		return nil, err
	}

	profile, err := s.loadProfile(ctx, claims.Subject)
	var notFound *domain.ErrNotFound
	if errors.As(err, &notFound) {
		return nil, &domain.ErrUnauthorized{Message: "profile not provisioned"}
	}
	if err != nil {
		return nil, err
	}
	if !profile.Role.Valid() {
		return nil, &domain.ErrForbidden{Action: fmt.Sprintf("unknown role %q", profile.Role)}
	}
	return profile, nil
}
