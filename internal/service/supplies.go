package service

import (
	"context"
	"fmt"
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

var suppliesTracer = otel.Tracer("service/supplies")

// SuppliesService handles customer requests for containers and labels.
type SuppliesService struct {
	store    port.SuppliesStore
	profiles port.ProfileStore
	activity *ActivityService
	events   port.EventPublisher
	metrics  *observability.Metrics
	logger   *zap.Logger
	now      func() time.Time
}

// NewSuppliesService creates a new supplies service.
func NewSuppliesService(
	store port.SuppliesStore,
	profiles port.ProfileStore,
	activity *ActivityService,
	events port.EventPublisher,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *SuppliesService {
	return &SuppliesService{
		store:    store,
		profiles: profiles,
		activity: activity,
		events:   events,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
	}
}

// Create inserts the request row and then its items. If the items cannot
// be written the request row is removed again.
func (s *SuppliesService) Create(ctx context.Context, actor domain.Actor, req *domain.CreateSuppliesRequest) (*domain.SuppliesRequest, error) {
	ctx, span := suppliesTracer.Start(ctx, "SuppliesService.Create")
	defer span.End()

	items := lifecycle.ValidItems(req.Items)
	if len(items) == 0 {
		return nil, &domain.ErrValidation{Field: "items", Message: "at least one item with a name and a quantity greater than zero is required"}
	}
	if actor.Role != domain.RoleUser && actor.Role != domain.RoleAdmin {
		return nil, &domain.ErrForbidden{Action: "request supplies"}
	}

	created, err := s.store.CreateSuppliesRequest(ctx, &domain.SuppliesRequest{
		UserID:          actor.UserID,
		Status:          domain.SuppliesPending,
		Notes:           strings.TrimSpace(req.Notes),
		DeliveryAddress: strings.TrimSpace(req.DeliveryAddress),
	})
	if err != nil {
		return nil, fmt.Errorf("create supplies request: %w", err)
	}
	span.SetAttributes(attribute.String("request_id", created.ID))

	savedItems, err := s.store.CreateSuppliesItems(ctx, created.ID, items)
	if err != nil {
		if delErr := s.store.DeleteSuppliesRequest(ctx, created.ID); delErr != nil {
			s.logger.Error("orphan supplies request left behind",
				zap.String("request_id", created.ID),
				zap.Error(delErr),
			)
		}
		return nil, fmt.Errorf("create supplies items: %w", err)
	}
	created.Items = savedItems

	s.activity.Record(ctx, actor.UserID, domain.ActivitySuppliesRequested,
		fmt.Sprintf("Solicitud de insumos con %d artículo(s)", len(savedItems)),
		map[string]any{"request_id": created.ID})

	s.logger.Info("supplies requested",
		zap.String("request_id", created.ID),
		zap.String("user_id", actor.UserID),
		zap.Int("items", len(savedItems)),
	)
	return created, nil
}

// List returns the requests visible to the actor.
func (s *SuppliesService) List(ctx context.Context, actor domain.Actor, f domain.SuppliesFilter) (*domain.ListResponse[domain.SuppliesRequest], error) {
	ctx, span := suppliesTracer.Start(ctx, "SuppliesService.List")
	defer span.End()

	switch actor.Role {
	case domain.RoleUser:
		f.UserID, f.OperatorID = actor.UserID, ""
	case domain.RoleOperator:
		f.UserID, f.OperatorID = "", actor.UserID
	case domain.RoleAdmin:
	default:
		return nil, &domain.ErrForbidden{Action: "list supplies requests"}
	}
	f.Page, f.PageSize = normalizePage(f.Page, f.PageSize)

	reqs, err := s.store.ListSuppliesRequests(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list supplies requests: %w", err)
	}
	return paginate(reqs, f.Page, f.PageSize), nil
}

func (s *SuppliesService) Get(ctx context.Context, actor domain.Actor, requestID string) (*domain.SuppliesRequest, error) {
	ctx, span := suppliesTracer.Start(ctx, "SuppliesService.Get")
	defer span.End()

	return s.load(ctx, actor, requestID)
}

func (s *SuppliesService) load(ctx context.Context, actor domain.Actor, requestID string) (*domain.SuppliesRequest, error) {
	r, err := s.store.GetSuppliesRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	visible := false
	switch actor.Role {
	case domain.RoleAdmin:
		visible = true
	case domain.RoleOperator:
		visible = r.OperatorID != nil && *r.OperatorID == actor.UserID
	case domain.RoleUser:
		visible = actor.Is(r.UserID)
	}
	if !visible {
		return nil, &domain.ErrNotFound{Resource: "supplies request", ID: requestID}
	}
	return r, nil
}

// UpdateStatus moves the request through pending → approved → delivered
// or to cancelled.
func (s *SuppliesService) UpdateStatus(ctx context.Context, actor domain.Actor, requestID string, req *domain.UpdateSuppliesStatusRequest) (*domain.SuppliesRequest, error) {
	ctx, span := suppliesTracer.Start(ctx, "SuppliesService.UpdateStatus")
	defer span.End()
	span.SetAttributes(attribute.String("request_id", requestID), attribute.String("to", string(req.Status)))

	current, err := s.load(ctx, actor, requestID)
	if err != nil {
		return nil, err
	}
	from := current.Status

	if err := lifecycle.ValidateSuppliesTransition(from, req.Status); err != nil {
		s.metrics.RecordRejectedTransition("supplies", "lifecycle")
		return nil, err
	}
	if err := lifecycle.AuthorizeSuppliesTransition(actor, current, req.Status); err != nil {
		s.metrics.RecordRejectedTransition("supplies", "role")
		return nil, err
	}
	if err := lifecycle.ValidateSuppliesRules(current, req.Status); err != nil {
		s.metrics.RecordRejectedTransition("supplies", "rules")
		return nil, err
	}

	updated, err := s.store.UpdateSuppliesStatus(ctx, requestID, from, req.Status)
	if err != nil {
		if isConflict(err) {
			s.metrics.RecordRejectedTransition("supplies", "conflict")
		}
		return nil, err
	}
	if len(updated.Items) == 0 {
		updated.Items = current.Items
	}

	s.activity.Record(ctx, updated.UserID, domain.ActivitySuppliesStatus,
		fmt.Sprintf("Solicitud de insumos %s: %s → %s", shortID(requestID), from, updated.Status),
		map[string]any{"request_id": requestID, "from": string(from), "to": string(updated.Status), "actor": actor.UserID})

	err = s.events.PublishSuppliesEvent(ctx, domain.SuppliesEvent{
		RequestID:  requestID,
		UserID:     updated.UserID,
		From:       from,
		To:         updated.Status,
		ActorID:    actor.UserID,
		OccurredAt: s.now().UTC(),
	})
	s.metrics.RecordEvent("supplies", err)
	if err != nil {
		s.logger.Warn("supplies event not published", zap.String("request_id", requestID), zap.Error(err))
	}

	s.logger.Info("supplies status changed",
		zap.String("request_id", requestID),
		zap.String("from", string(from)),
		zap.String("to", string(updated.Status)),
	)
	return updated, nil
}

// ListUnassigned returns open requests without an operator.
func (s *SuppliesService) ListUnassigned(ctx context.Context, actor domain.Actor, page, pageSize int) (*domain.ListResponse[domain.SuppliesRequest], error) {
	ctx, span := suppliesTracer.Start(ctx, "SuppliesService.ListUnassigned")
	defer span.End()

	if actor.Role != domain.RoleAdmin {
		return nil, &domain.ErrForbidden{Action: "list unassigned supplies requests"}
	}
	page, pageSize = normalizePage(page, pageSize)
	reqs, err := s.store.ListSuppliesRequests(ctx, domain.SuppliesFilter{Unassigned: true, Page: page, PageSize: pageSize})
	if err != nil {
		return nil, fmt.Errorf("list unassigned supplies requests: %w", err)
	}
	return paginate(reqs, page, pageSize), nil
}

// Assign sets the operator in charge of delivery.
func (s *SuppliesService) Assign(ctx context.Context, actor domain.Actor, requestID string, req *domain.AssignOperatorRequest) (*domain.SuppliesRequest, error) {
	ctx, span := suppliesTracer.Start(ctx, "SuppliesService.Assign")
	defer span.End()

	if actor.Role != domain.RoleAdmin {
		return nil, &domain.ErrForbidden{Action: "assign operators"}
	}

	current, err := s.store.GetSuppliesRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !lifecycle.IsOpenSupplies(current.Status) {
		return nil, &domain.ErrValidation{Field: "request_id", Message: fmt.Sprintf("request is %s", current.Status)}
	}
	if err := requireOperator(ctx, s.profiles, req.OperatorID); err != nil {
		return nil, err
	}

	updated, err := s.store.AssignSuppliesOperator(ctx, requestID, req.OperatorID, !req.Force)
	if err != nil {
		return nil, err
	}
	if len(updated.Items) == 0 {
		updated.Items = current.Items
	}

	metadata := map[string]any{"request_id": requestID, "operator_id": req.OperatorID}
	s.activity.Record(ctx, updated.UserID, domain.ActivitySuppliesAssigned,
		fmt.Sprintf("Operador asignado a la solicitud %s", shortID(requestID)), metadata)
	s.activity.Record(ctx, req.OperatorID, domain.ActivitySuppliesAssigned,
		fmt.Sprintf("Nueva entrega de insumos asignada: %s", shortID(requestID)), metadata)

	s.logger.Info("supplies request assigned",
		zap.String("request_id", requestID),
		zap.String("operator_id", req.OperatorID),
	)
	return updated, nil
}
