package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/trabamex/mir-bff-go/internal/domain"
	"github.com/trabamex/mir-bff-go/internal/service"
)

// ============================================================
// Admin: /v1/admin/users, /v1/admin/metrics
// ============================================================

func listUsersHandler(svc *service.AdminService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/admin/users")
		defer span.End()

		page, pageSize := parsePagination(r)
		list, err := svc.ListUsers(ctx, domain.Role(r.URL.Query().Get("role")), page, pageSize)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// inviteUserHandler delegates to the invite-user edge function, which
// provisions the auth user, profile and operator record in one step.
func inviteUserHandler(svc *service.AdminService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/admin/users/invite")
		defer span.End()

		var req domain.InviteUserRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		resp, err := svc.InviteUser(ctx, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, resp)
	}
}

func opsMetricsHandler(svc *service.AdminService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.Metrics())
	}
}
