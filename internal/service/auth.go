// Package service: AuthService proxies sign-in, sign-up and refresh to
// Supabase GoTrue, validates access tokens and resolves the caller's profile.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/trabamex/mir-bff-go/internal/access"
	"github.com/trabamex/mir-bff-go/internal/domain"
	"github.com/trabamex/mir-bff-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var authTracer = otel.Tracer("service/auth")

// AuthService orchestrates authentication flows.
type AuthService struct {
	gateway   port.AuthGateway
	profiles  port.ProfileStore
	cache     port.Cache[*domain.Profile]
	activity  *ActivityService
	jwtSecret []byte
	logger    *zap.Logger
}

// NewAuthService creates a new auth service.
func NewAuthService(
	gateway port.AuthGateway,
	profiles port.ProfileStore,
	cache port.Cache[*domain.Profile],
	activity *ActivityService,
	jwtSecret string,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		gateway:   gateway,
		profiles:  profiles,
		cache:     cache,
		activity:  activity,
		jwtSecret: []byte(jwtSecret),
		logger:    logger,
	}
}

// ============================================================
// SignUp: POST /v1/auth/signup
// ============================================================

// SignUp registers the identity and creates the profile row with role user.
func (s *AuthService) SignUp(ctx context.Context, req *domain.SignUpRequest) (*domain.Session, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.SignUp")
	defer span.End()

	email := strings.ToLower(strings.TrimSpace(req.Email))
	metadata := map[string]any{
		"full_name": strings.TrimSpace(req.FullName),
		"role":      string(domain.RoleUser),
	}
	if req.CompanyName != "" {
		metadata["company_name"] = strings.TrimSpace(req.CompanyName)
	}
	if req.Phone != "" {
		metadata["phone"] = strings.TrimSpace(req.Phone)
	}

	tokens, err := s.gateway.SignUp(ctx, email, req.Password, metadata)
	if err != nil {
		return nil, err
	}
	if tokens.User == nil || tokens.User.ID == "" {
		return nil, &domain.ErrExternalService{Service: "supabase/auth", Err: errors.New("sign-up returned no user")}
	}

	profile, err := s.profiles.CreateProfile(ctx, &domain.Profile{
		ID:          tokens.User.ID,
		FullName:    strings.TrimSpace(req.FullName),
		Email:       email,
		Role:        domain.RoleUser,
		CompanyName: strings.TrimSpace(req.CompanyName),
		Phone:       strings.TrimSpace(req.Phone),
	})
	var conflict *domain.ErrConflict
	if errors.As(err, &conflict) {
		// A database trigger already provisioned the row.
		profile, err = s.profiles.GetProfile(ctx, tokens.User.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}
	s.cache.Set(profileKey(profile.ID), profile)

	s.logger.Info("user signed up", zap.String("user_id", profile.ID))
	return newSession(tokens, profile), nil
}

// ============================================================
// SignIn: POST /v1/auth/signin
// ============================================================

func (s *AuthService) SignIn(ctx context.Context, req *domain.SignInRequest) (*domain.Session, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.SignIn")
	defer span.End()

	tokens, err := s.gateway.SignIn(ctx, strings.ToLower(strings.TrimSpace(req.Email)), req.Password)
	if err != nil {
		return nil, err
	}
	if tokens.User == nil || tokens.User.ID == "" {
		return nil, &domain.ErrUnauthorized{Message: "invalid credentials"}
	}
	span.SetAttributes(attribute.String("user_id", tokens.User.ID))

	profile, err := s.sessionProfile(ctx, tokens.User.ID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user signed in",
		zap.String("user_id", profile.ID),
		zap.String("role", string(profile.Role)),
	)
	return newSession(tokens, profile), nil
}

// ============================================================
// Refresh: POST /v1/auth/refresh
// ============================================================

func (s *AuthService) Refresh(ctx context.Context, req *domain.RefreshRequest) (*domain.Session, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.Refresh")
	defer span.End()

	tokens, err := s.gateway.Refresh(ctx, req.RefreshToken)
	if err != nil {
		return nil, err
	}
	if tokens.User == nil || tokens.User.ID == "" {
		return nil, &domain.ErrUnauthorized{Message: "invalid refresh token"}
	}

	profile, err := s.sessionProfile(ctx, tokens.User.ID)
	if err != nil {
		return nil, err
	}
	return newSession(tokens, profile), nil
}

// ============================================================
// SignOut: POST /v1/auth/signout
// ============================================================

func (s *AuthService) SignOut(ctx context.Context, userID, accessToken string) error {
	ctx, span := authTracer.Start(ctx, "AuthService.SignOut")
	defer span.End()

	s.invalidateProfile(userID)
	if err := s.gateway.SignOut(ctx, accessToken); err != nil {
		return fmt.Errorf("sign out: %w", err)
	}

	s.logger.Info("user signed out", zap.String("user_id", userID))
	return nil
}

// sessionProfile loads the profile behind a fresh token grant. An identity
// without a profile row cannot be routed anywhere.
func (s *AuthService) sessionProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	profile, err := s.loadProfile(ctx, userID)
	var notFound *domain.ErrNotFound
	if errors.As(err, &notFound) {
		return nil, &domain.ErrUnauthorized{Message: "profile not provisioned"}
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	if !profile.Role.Valid() {
		return nil, &domain.ErrForbidden{Action: fmt.Sprintf("unknown role %q", profile.Role)}
	}
	return profile, nil
}

func newSession(tokens *domain.AuthTokens, profile *domain.Profile) *domain.Session {
	tokenType := tokens.TokenType
	if tokenType == "" && tokens.AccessToken != "" {
		tokenType = "bearer"
	}
	return &domain.Session{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresIn:    tokens.ExpiresIn,
		TokenType:    tokenType,
		Profile:      profile,
		Redirect:     access.DefaultDashboard(profile.Role),
	}
}
