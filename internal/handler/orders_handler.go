package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/trabamex/mir-bff-go/internal/domain"
	"github.com/trabamex/mir-bff-go/internal/service"
)

// ============================================================
// Service orders: /v1/orders
// ============================================================

// orderFilter reads ?status=A,B&page=&page_size=. Admins may also narrow
// by customer_id, operator_id and unassigned; the service overrides those
// for other roles.
func orderFilter(r *http.Request) domain.OrderFilter {
	f := domain.OrderFilter{
		CustomerID: r.URL.Query().Get("customer_id"),
		OperatorID: r.URL.Query().Get("operator_id"),
		Unassigned: parseBool(r, "unassigned"),
	}
	for _, s := range parseList(r, "status") {
		f.Statuses = append(f.Statuses, domain.OrderStatus(s))
	}
	f.Page, f.PageSize = parsePagination(r)
	return f
}

func listOrdersHandler(svc *service.OrderService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/orders")
		defer span.End()

		list, err := svc.List(ctx, ActorFromContext(ctx), orderFilter(r))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func createOrderHandler(svc *service.OrderService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/orders")
		defer span.End()

		var req domain.CreateOrderRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		resp, err := svc.Create(ctx, ActorFromContext(ctx), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(
			attribute.String("order.id", resp.Order.ID),
			attribute.Bool("order.usage_warning", resp.UsageWarning),
		)
		writeJSON(w, http.StatusCreated, resp)
	}
}

func getOrderHandler(svc *service.OrderService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/orders/{orderId}")
		defer span.End()

		orderID, err := pathID(r, "orderId", "service order")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(attribute.String("order.id", orderID))

		view, err := svc.Get(ctx, ActorFromContext(ctx), orderID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func transitionOrderHandler(svc *service.OrderService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/orders/{orderId}/status")
		defer span.End()

		orderID, err := pathID(r, "orderId", "service order")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		var req domain.TransitionOrderRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(
			attribute.String("order.id", orderID),
			attribute.String("order.to", string(req.Status)),
		)

		view, err := svc.Transition(ctx, ActorFromContext(ctx), orderID, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func cancelOrderHandler(svc *service.OrderService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/orders/{orderId}/cancel")
		defer span.End()

		orderID, err := pathID(r, "orderId", "service order")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(attribute.String("order.id", orderID))

		var req struct {
			Note string `json:"note" validate:"max=500"`
		}
		if err := decodeOptionalJSON(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		view, err := svc.Cancel(ctx, ActorFromContext(ctx), orderID, req.Note)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

// ============================================================
// Admin: /v1/admin/orders
// ============================================================

func unassignedOrdersHandler(svc *service.OrderService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/admin/orders/unassigned")
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

func assignOrderHandler(svc *service.OrderService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/admin/orders/{orderId}/assign")
		defer span.End()

		orderID, err := pathID(r, "orderId", "service order")
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
			attribute.String("order.id", orderID),
			attribute.String("operator.id", req.OperatorID),
		)

		view, err := svc.Assign(ctx, ActorFromContext(ctx), orderID, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

// exportOrdersHandler renders the file in memory first so a failure can
// still be reported as JSON.
func exportOrdersHandler(svc *service.OrderService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/admin/orders/export")
		defer span.End()

		var buf bytes.Buffer
		if err := svc.Export(ctx, ActorFromContext(ctx), orderFilter(r), &buf); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		contentType, ext := svc.ExportFormat()
		name := fmt.Sprintf("ordenes-%s.%s", time.Now().UTC().Format("20060102"), ext)
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
		w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
		w.WriteHeader(http.StatusOK)
		if _, err := buf.WriteTo(w); err != nil {
			logger.Warn("export: client went away", zap.Error(err))
		}
	}
}
