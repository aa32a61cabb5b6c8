package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/trabamex/mir-bff-go/internal/domain"

	"go.uber.org/zap"
)

func profileKey(userID string) string {
	return "profile:" + userID
}

func (s *AuthService) loadProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	return s.cache.GetOrLoad(ctx, profileKey(userID), func(ctx context.Context) (*domain.Profile, error) {
		return s.profiles.GetProfile(ctx, userID)
	})
}

func (s *AuthService) invalidateProfile(userID string) {
	s.cache.Delete(profileKey(userID))
}

// ============================================================
// GetMe: GET /v1/me
// ============================================================

func (s *AuthService) GetMe(ctx context.Context, userID string) (*domain.Profile, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.GetMe")
	defer span.End()

	return s.loadProfile(ctx, userID)
}

// ============================================================
// UpdateMe: PATCH /v1/me
// ============================================================

func (s *AuthService) UpdateMe(ctx context.Context, userID string, req *domain.UpdateProfileRequest) (*domain.Profile, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.UpdateMe")
	defer span.End()

	updates := map[string]any{}
	if req.FullName != nil {
		name := strings.TrimSpace(*req.FullName)
		if name == "" {
			return nil, &domain.ErrValidation{Field: "full_name", Message: "must not be empty"}
		}
		updates["full_name"] = name
	}
	if req.CompanyName != nil {
		updates["company_name"] = strings.TrimSpace(*req.CompanyName)
	}
	if req.Phone != nil {
		updates["phone"] = strings.TrimSpace(*req.Phone)
	}
	if len(updates) == 0 {
		return nil, &domain.ErrValidation{Field: "body", Message: "no fields to update"}
	}

	profile, err := s.profiles.UpdateProfile(ctx, userID, updates)
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	s.invalidateProfile(userID)

	fields := make([]string, 0, len(updates))
	for k := range updates {
		fields = append(fields, k)
	}
	sort.Strings(fields)
	s.activity.Record(ctx, userID, domain.ActivityProfileUpdated, "Perfil actualizado", map[string]any{"fields": fields})

	s.logger.Info("profile updated", zap.String("user_id", userID), zap.Strings("fields", fields))
	return profile, nil
}
