package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/trabamex/mir-bff-go/internal/domain"
	"github.com/trabamex/mir-bff-go/internal/service"
)

// ============================================================
// Activities / notifications: /v1/activities
// ============================================================

func listActivitiesHandler(svc *service.ActivityService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/activities")
		defer span.End()

		page, pageSize := parsePagination(r)
		list, err := svc.List(ctx, ActorFromContext(ctx).UserID, parseBool(r, "unread"), page, pageSize)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func markActivityReadHandler(svc *service.ActivityService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/activities/{activityId}/read")
		defer span.End()

		activityID, err := pathID(r, "activityId", "activity")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if err := svc.MarkRead(ctx, ActorFromContext(ctx).UserID, activityID); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.SuccessResponse{Message: "marked as read", ID: activityID})
	}
}

func markAllActivitiesReadHandler(svc *service.ActivityService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/activities/read-all")
		defer span.End()

		if err := svc.MarkAllRead(ctx, ActorFromContext(ctx).UserID); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.SuccessResponse{Message: "all marked as read"})
	}
}

// ============================================================
// Dashboard: GET /v1/dashboard
// ============================================================

func dashboardHandler(svc *service.DashboardService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/dashboard")
		defer span.End()

		summary, err := svc.Summary(ctx, ActorFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	}
}

// ============================================================
// Checklist: /v1/checklist
// ============================================================

func getChecklistHandler(svc *service.ChecklistService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/checklist")
		defer span.End()

		c, err := svc.Get(ctx, ActorFromContext(ctx).UserID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, c)
	}
}

func saveChecklistHandler(svc *service.ChecklistService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/checklist")
		defer span.End()

		var req domain.Checklist
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		c, err := svc.Save(ctx, ActorFromContext(ctx).UserID, req.Items)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, c)
	}
}

// ============================================================
// Contact: POST /v1/contact
// ============================================================

// contactHandler accepts the form and answers before the email is sent.
func contactHandler(svc *service.ContactService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/contact")
		defer span.End()

		var req domain.ContactRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		svc.Submit(ctx, &req)
		writeJSON(w, http.StatusAccepted, domain.SuccessResponse{Message: "message received"})
	}
}
