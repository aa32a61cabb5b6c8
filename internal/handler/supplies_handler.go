package handler

import (
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/trabamex/mir-bff-go/internal/domain"
	"github.com/trabamex/mir-bff-go/internal/service"
)

// ============================================================
// Supply requests: /v1/supplies
// ============================================================

func listSuppliesHandler(svc *service.SuppliesService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/supplies")
		defer span.End()

		f := domain.SuppliesFilter{
			UserID:     r.URL.Query().Get("user_id"),
			OperatorID: r.URL.Query().Get("operator_id"),
		}
		for _, s := range parseList(r, "status") {
			f.Statuses = append(f.Statuses, domain.SuppliesStatus(s))
		}
		f.Page, f.PageSize = parsePagination(r)

		list, err := svc.List(ctx, ActorFromContext(ctx), f)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func createSuppliesHandler(svc *service.SuppliesService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/supplies")
		defer span.End()

		var req domain.CreateSuppliesRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		created, err := svc.Create(ctx, ActorFromContext(ctx), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	}
}

func getSuppliesHandler(svc *service.SuppliesService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/supplies/{requestId}")
		defer span.End()

		requestID, err := pathID(r, "requestId", "supplies request")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(attribute.String("supplies.id", requestID))

		req, err := svc.Get(ctx, ActorFromContext(ctx), requestID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, req)
	}
}

func updateSuppliesStatusHandler(svc *service.SuppliesService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/supplies/{requestId}/status")
		defer span.End()

		requestID, err := pathID(r, "requestId", "supplies request")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		var req domain.UpdateSuppliesStatusRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(
			attribute.String("supplies.id", requestID),
			attribute.String("supplies.to", string(req.Status)),
		)

		updated, err := svc.UpdateStatus(ctx, ActorFromContext(ctx), requestID, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	}
}

func unassignedSuppliesHandler(svc *service.SuppliesService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/admin/supplies/unassigned")
		defer span.End()

		page, pageSize := parsePagination(r)
		list, err := svc.ListUnassigned(ctx, ActorFromContext(ctx), page, pageSize)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func assignSuppliesHandler(svc *service.SuppliesService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/admin/supplies/{requestId}/assign")
		defer span.End()

		requestID, err := pathID(r, "requestId", "supplies request")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		var req domain.AssignOperatorRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(
			attribute.String("supplies.id", requestID),
			attribute.String("operator.id", req.OperatorID),
		)

		updated, err := svc.Assign(ctx, ActorFromContext(ctx), requestID, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	}
}
