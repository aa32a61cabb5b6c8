package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/trabamex/mir-bff-go/internal/domain"
	"github.com/trabamex/mir-bff-go/internal/infra/observability"
	"github.com/trabamex/mir-bff-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var adminTracer = otel.Tracer("service/admin")

// AdminService backs the user-management screens of the admin dashboard.
type AdminService struct {
	profiles port.ProfileStore
	invites  port.InviteGateway
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewAdminService creates a new admin service.
func NewAdminService(profiles port.ProfileStore, invites port.InviteGateway, metrics *observability.Metrics, logger *zap.Logger) *AdminService {
	return &AdminService{profiles: profiles, invites: invites, metrics: metrics, logger: logger}
}

// ListUsers returns profiles, optionally narrowed to one role.
func (s *AdminService) ListUsers(ctx context.Context, role domain.Role, page, pageSize int) (*domain.ListResponse[domain.Profile], error) {
	ctx, span := adminTracer.Start(ctx, "AdminService.ListUsers")
	defer span.End()

	if role != "" && !role.Valid() {
		return nil, &domain.ErrValidation{Field: "role", Message: "must be admin, operator or user"}
	}
	page, pageSize = normalizePage(page, pageSize)
	profiles, err := s.profiles.ListProfiles(ctx, role, page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	return paginate(profiles, page, pageSize), nil
}

// InviteUser delegates account creation to the invite-user edge function,
// which provisions the identity, the profile and the role server-side.
func (s *AdminService) InviteUser(ctx context.Context, req *domain.InviteUserRequest) (*domain.InviteUserResponse, error) {
	ctx, span := adminTracer.Start(ctx, "AdminService.InviteUser")
	defer span.End()

	if !req.Role.Valid() {
		return nil, &domain.ErrValidation{Field: "role", Message: "must be admin, operator or user"}
	}
	invite := *req
	invite.Email = strings.ToLower(strings.TrimSpace(req.Email))
	invite.FullName = strings.TrimSpace(req.FullName)

	resp, err := s.invites.InviteUser(ctx, &invite)
	if err != nil {
		return nil, err
	}
	if resp.Email == "" {
		resp.Email = invite.Email
	}
	if resp.Role == "" {
		resp.Role = invite.Role
	}

	s.logger.Info("user invited",
		zap.String("user_id", resp.UserID),
		zap.String("role", string(resp.Role)),
	)
	return resp, nil
}

// Metrics returns the operational counters shown on the admin dashboard.
func (s *AdminService) Metrics() *domain.OpsMetrics {
	return s.metrics.Snapshot()
}
