package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/trabamex/mir-bff-go/internal/domain"
	"github.com/trabamex/mir-bff-go/internal/infra/observability"
	"github.com/trabamex/mir-bff-go/internal/lifecycle"
	"github.com/trabamex/mir-bff-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var ordersTracer = otel.Tracer("service/orders")

// exportLimit bounds a single spreadsheet export.
const exportLimit = 5000

// OrderService drives service orders through their lifecycle.
type OrderService struct {
	orders   port.OrderStore
	profiles port.ProfileStore
	plans    *PlanService
	activity *ActivityService
	events   port.EventPublisher
	exporter port.OrderExporter
	metrics  *observability.Metrics
	logger   *zap.Logger
	now      func() time.Time
}

// NewOrderService creates a new order service.
func NewOrderService(
	orders port.OrderStore,
	profiles port.ProfileStore,
	plans *PlanService,
	activity *ActivityService,
	events port.EventPublisher,
	exporter port.OrderExporter,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *OrderService {
	return &OrderService{
		orders:   orders,
		profiles: profiles,
		plans:    plans,
		activity: activity,
		events:   events,
		exporter: exporter,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
	}
}

// ============================================================
// Create: POST /v1/orders
// ============================================================

// Create schedules a pickup for the calling customer. Plan usage never
// blocks creation; the response only flags it.
func (s *OrderService) Create(ctx context.Context, actor domain.Actor, req *domain.CreateOrderRequest) (*domain.CreateOrderResponse, error) {
	ctx, span := ordersTracer.Start(ctx, "OrderService.Create")
	defer span.End()

	if actor.Role != domain.RoleUser {
		return nil, &domain.ErrForbidden{Action: "only customers schedule pickups"}
	}
	if err := s.validateSchedule(req.ScheduledDate); err != nil {
		return nil, err
	}

	var planID *string
	if req.PlanID != nil && *req.PlanID != "" {
		plans, err := s.plans.ListUserPlans(ctx, actor.UserID)
		if err != nil {
			return nil, err
		}
		if !holdsPlan(plans, *req.PlanID) {
			return nil, &domain.ErrValidation{Field: "plan_id", Message: "plan is not among your active subscriptions"}
		}
		planID = req.PlanID
	}

	order, err := s.orders.CreateOrder(ctx, &domain.ServiceOrder{
		CustomerID:    actor.UserID,
		Status:        domain.StatusPlanned,
		WasteType:     strings.TrimSpace(req.WasteType),
		Quantity:      req.Quantity,
		Unit:          strings.ToLower(req.Unit),
		PlanID:        planID,
		PickupAddress: strings.TrimSpace(req.PickupAddress),
		ScheduledDate: req.ScheduledDate,
		Notes:         strings.TrimSpace(req.Notes),
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	span.SetAttributes(attribute.String("order_id", order.ID))

	s.activity.Record(ctx, actor.UserID, domain.ActivityOrderCreated,
		fmt.Sprintf("Recolección de %s programada para %s", order.WasteType, order.ScheduledDate),
		map[string]any{"order_id": order.ID})

	resp := &domain.CreateOrderResponse{Order: *s.view(actor, order)}
	if planID != nil {
		u, err := s.plans.UsageOf(ctx, actor.UserID, *planID)
		if err != nil {
			// The order exists; a failed usage read only loses the banner.
			s.logger.Warn("plan usage unavailable after order creation",
				zap.String("order_id", order.ID),
				zap.Error(err),
			)
		} else if u != nil {
			resp.PlanUsage = u
			resp.UsageWarning = u.IsOverLimit
			if u.IsOverLimit {
				s.activity.Record(ctx, actor.UserID, domain.ActivityPlanUsageOverLimit,
					fmt.Sprintf("El plan %s superó el peso incluido", u.PlanName),
					map[string]any{"plan_id": u.PlanID, "used_kg": u.UsedKg, "limit_kg": u.LimitKg})
			}
		}
	}

	s.logger.Info("order created",
		zap.String("order_id", order.ID),
		zap.String("customer_id", actor.UserID),
		zap.Bool("usage_warning", resp.UsageWarning),
	)
	return resp, nil
}

func (s *OrderService) validateSchedule(date string) error {
	d, err := time.ParseInLocation(time.DateOnly, date, time.UTC)
	if err != nil {
		return &domain.ErrValidation{Field: "scheduled_date", Message: "must be a YYYY-MM-DD date"}
	}
	now := s.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if d.Before(today) {
		return &domain.ErrValidation{Field: "scheduled_date", Message: "must not be in the past"}
	}
	return nil
}

func holdsPlan(plans []domain.UserPlan, planID string) bool {
	for _, p := range plans {
		if p.PlanID == planID {
			return true
		}
	}
	return false
}

// ============================================================
// List / Get
// ============================================================

// List returns the orders visible to the actor: customers see their own,
// operators those assigned to them, admins everything.
func (s *OrderService) List(ctx context.Context, actor domain.Actor, f domain.OrderFilter) (*domain.ListResponse[domain.OrderView], error) {
	ctx, span := ordersTracer.Start(ctx, "OrderService.List")
	defer span.End()

	switch actor.Role {
	case domain.RoleUser:
		f.CustomerID, f.OperatorID = actor.UserID, ""
	case domain.RoleOperator:
		f.CustomerID, f.OperatorID = "", actor.UserID
	case domain.RoleAdmin:
	default:
		return nil, &domain.ErrForbidden{Action: "list orders"}
	}
	f.Page, f.PageSize = normalizePage(f.Page, f.PageSize)

	orders, err := s.orders.ListOrders(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return paginate(s.views(actor, orders), f.Page, f.PageSize), nil
}

// Get returns one order with its progress and the moves open to the actor.
func (s *OrderService) Get(ctx context.Context, actor domain.Actor, orderID string) (*domain.OrderView, error) {
	ctx, span := ordersTracer.Start(ctx, "OrderService.Get")
	defer span.End()
	span.SetAttributes(attribute.String("order_id", orderID))

	order, err := s.load(ctx, actor, orderID)
	if err != nil {
		return nil, err
	}
	return s.view(actor, order), nil
}

// load fetches the order and hides it from actors who may not see it.
func (s *OrderService) load(ctx context.Context, actor domain.Actor, orderID string) (*domain.ServiceOrder, error) {
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !canSeeOrder(actor, order) {
		return nil, &domain.ErrNotFound{Resource: "service order", ID: orderID}
	}
	return order, nil
}

func canSeeOrder(actor domain.Actor, o *domain.ServiceOrder) bool {
	switch actor.Role {
	case domain.RoleAdmin:
		return true
	case domain.RoleOperator:
		return o.AssignedTo(actor.UserID)
	case domain.RoleUser:
		return actor.Is(o.CustomerID)
	}
	return false
}

func (s *OrderService) view(actor domain.Actor, o *domain.ServiceOrder) *domain.OrderView {
	return &domain.OrderView{
		ServiceOrder: *o,
		Progress:     lifecycle.Progress(o.Status),
		AllowedNext:  lifecycle.AllowedOrderTransitionsFor(actor, o),
	}
}

func (s *OrderService) views(actor domain.Actor, orders []domain.ServiceOrder) []domain.OrderView {
	out := make([]domain.OrderView, 0, len(orders))
	for i := range orders {
		out = append(out, *s.view(actor, &orders[i]))
	}
	return out
}

// ============================================================
// Transition: POST /v1/orders/{orderId}/status
// ============================================================

// Transition moves the order to req.Status. The write is conditional on
// the status read here, so a concurrent move surfaces as ErrConflict.
func (s *OrderService) Transition(ctx context.Context, actor domain.Actor, orderID string, req *domain.TransitionOrderRequest) (*domain.OrderView, error) {
	ctx, span := ordersTracer.Start(ctx, "OrderService.Transition")
	defer span.End()
	span.SetAttributes(
		attribute.String("order_id", orderID),
		attribute.String("to", string(req.Status)),
	)

	if !lifecycle.KnownOrderStatus(req.Status) {
		return nil, &domain.ErrValidation{Field: "status", Message: fmt.Sprintf("unknown order status %q", req.Status)}
	}

	order, err := s.load(ctx, actor, orderID)
	if err != nil {
		return nil, err
	}
	from := order.Status

	if err := lifecycle.ValidateOrderTransition(from, req.Status); err != nil {
		s.metrics.RecordRejectedTransition("order", "lifecycle")
		return nil, err
	}
	if err := lifecycle.AuthorizeOrderTransition(actor, order, req.Status); err != nil {
		s.metrics.RecordRejectedTransition("order", "role")
		return nil, err
	}
	if err := lifecycle.ValidateOrderRules(order, req); err != nil {
		s.metrics.RecordRejectedTransition("order", "rules")
		return nil, err
	}

	updates := map[string]any{"status": req.Status}
	if req.ManifestURL != nil && *req.ManifestURL != "" {
		updates["manifest_url"] = *req.ManifestURL
	}
	if req.CertificateURL != nil && *req.CertificateURL != "" {
		updates["certificate_url"] = *req.CertificateURL
	}
	if req.VerifiedQuantity != nil {
		updates["quantity"] = *req.VerifiedQuantity
	}

	updated, err := s.orders.UpdateOrderStatus(ctx, orderID, from, updates)
	if err != nil {
		if isConflict(err) {
			s.metrics.RecordRejectedTransition("order", "conflict")
		}
		return nil, err
	}
	s.metrics.RecordOrderTransition(from, updated.Status)

	metadata := map[string]any{
		"order_id": orderID,
		"from":     string(from),
		"to":       string(updated.Status),
		"actor":    actor.UserID,
	}
	if req.Note != "" {
		metadata["note"] = req.Note
	}
	s.activity.Record(ctx, updated.CustomerID, domain.ActivityOrderStatusChanged,
		fmt.Sprintf("Orden %s: %s → %s", shortID(orderID), from, updated.Status), metadata)

	s.publishOrderEvent(ctx, actor, from, updated)

	s.logger.Info("order status changed",
		zap.String("order_id", orderID),
		zap.String("from", string(from)),
		zap.String("to", string(updated.Status)),
		zap.String("actor_id", actor.UserID),
	)
	return s.view(actor, updated), nil
}

// Cancel is Transition to CANCELLED.
func (s *OrderService) Cancel(ctx context.Context, actor domain.Actor, orderID, note string) (*domain.OrderView, error) {
	return s.Transition(ctx, actor, orderID, &domain.TransitionOrderRequest{
		Status: domain.StatusCancelled,
		Note:   note,
	})
}

func (s *OrderService) publishOrderEvent(ctx context.Context, actor domain.Actor, from domain.OrderStatus, o *domain.ServiceOrder) {
	evt := domain.OrderEvent{
		OrderID:    o.ID,
		CustomerID: o.CustomerID,
		From:       from,
		To:         o.Status,
		ActorID:    actor.UserID,
		OccurredAt: s.now().UTC(),
	}
	if o.OperatorID != nil {
		evt.OperatorID = *o.OperatorID
	}
	err := s.events.PublishOrderEvent(ctx, evt)
	s.metrics.RecordEvent("order", err)
	if err != nil {
		s.logger.Warn("order event not published", zap.String("order_id", o.ID), zap.Error(err))
	}
}

// ============================================================
// Assignment: admin
// ============================================================

// ListUnassigned returns open orders without an operator.
func (s *OrderService) ListUnassigned(ctx context.Context, actor domain.Actor, page, pageSize int) (*domain.ListResponse[domain.OrderView], error) {
	ctx, span := ordersTracer.Start(ctx, "OrderService.ListUnassigned")
	defer span.End()

	if actor.Role != domain.RoleAdmin {
		return nil, &domain.ErrForbidden{Action: "list unassigned orders"}
	}
	page, pageSize = normalizePage(page, pageSize)
	orders, err := s.orders.ListOrders(ctx, domain.OrderFilter{Unassigned: true, Page: page, PageSize: pageSize})
	if err != nil {
		return nil, fmt.Errorf("list unassigned orders: %w", err)
	}
	return paginate(s.views(actor, orders), page, pageSize), nil
}

// Assign sets the order's operator. Without Force the write only succeeds
// while the order is still unassigned.
func (s *OrderService) Assign(ctx context.Context, actor domain.Actor, orderID string, req *domain.AssignOperatorRequest) (*domain.OrderView, error) {
	ctx, span := ordersTracer.Start(ctx, "OrderService.Assign")
	defer span.End()
	span.SetAttributes(attribute.String("order_id", orderID), attribute.String("operator_id", req.OperatorID))

	if actor.Role != domain.RoleAdmin {
		return nil, &domain.ErrForbidden{Action: "assign operators"}
	}

	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if lifecycle.IsTerminalOrder(order.Status) {
		return nil, &domain.ErrValidation{Field: "order_id", Message: fmt.Sprintf("order is %s", order.Status)}
	}
	if err := requireOperator(ctx, s.profiles, req.OperatorID); err != nil {
		return nil, err
	}

	updated, err := s.orders.AssignOrderOperator(ctx, orderID, req.OperatorID, !req.Force)
	if err != nil {
		return nil, err
	}

	metadata := map[string]any{"order_id": orderID, "operator_id": req.OperatorID}
	s.activity.Record(ctx, updated.CustomerID, domain.ActivityOrderAssigned,
		fmt.Sprintf("Operador asignado a la orden %s", shortID(orderID)), metadata)
	s.activity.Record(ctx, req.OperatorID, domain.ActivityOrderAssigned,
		fmt.Sprintf("Nueva orden asignada: %s", shortID(orderID)), metadata)

	s.logger.Info("order assigned",
		zap.String("order_id", orderID),
		zap.String("operator_id", req.OperatorID),
		zap.Bool("force", req.Force),
	)
	return s.view(actor, updated), nil
}

// requireOperator checks that the target profile exists and has the operator role.
func requireOperator(ctx context.Context, profiles port.ProfileStore, operatorID string) error {
	p, err := profiles.GetProfile(ctx, operatorID)
	if err != nil {
		if isNotFound(err) {
			return &domain.ErrValidation{Field: "operator_id", Message: "operator not found"}
		}
		return fmt.Errorf("get operator profile: %w", err)
	}
	if p.Role != domain.RoleOperator {
		return &domain.ErrValidation{Field: "operator_id", Message: "profile is not an operator"}
	}
	return nil
}

// ============================================================
// Export: GET /v1/admin/orders/export
// ============================================================

// Export writes the orders matching f as a spreadsheet.
func (s *OrderService) Export(ctx context.Context, actor domain.Actor, f domain.OrderFilter, w io.Writer) error {
	ctx, span := ordersTracer.Start(ctx, "OrderService.Export")
	defer span.End()

	if actor.Role != domain.RoleAdmin {
		return &domain.ErrForbidden{Action: "export orders"}
	}
	f.Page, f.PageSize = 1, exportLimit
	orders, err := s.orders.ListOrders(ctx, f)
	if err != nil {
		return fmt.Errorf("list orders for export: %w", err)
	}
	if err := s.exporter.ExportOrders(w, orders); err != nil {
		return fmt.Errorf("export orders: %w", err)
	}
	s.logger.Info("orders exported", zap.Int("count", len(orders)))
	return nil
}

// ExportFormat returns the content type and file extension of exports.
func (s *OrderService) ExportFormat() (string, string) {
	return s.exporter.ContentType(), s.exporter.Extension()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
