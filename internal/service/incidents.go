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

var incidentsTracer = otel.Tracer("service/incidents")

// IncidentService manages incidents and their message threads.
type IncidentService struct {
	store       port.IncidentStore
	broadcaster port.MessageBroadcaster
	activity    *ActivityService
	metrics     *observability.Metrics
	logger      *zap.Logger
	now         func() time.Time
}

// NewIncidentService creates a new incident service.
func NewIncidentService(
	store port.IncidentStore,
	broadcaster port.MessageBroadcaster,
	activity *ActivityService,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *IncidentService {
	return &IncidentService{
		store:       store,
		broadcaster: broadcaster,
		activity:    activity,
		metrics:     metrics,
		logger:      logger,
		now:         time.Now,
	}
}

func (s *IncidentService) Create(ctx context.Context, actor domain.Actor, req *domain.CreateIncidentRequest) (*domain.Incident, error) {
	ctx, span := incidentsTracer.Start(ctx, "IncidentService.Create")
	defer span.End()

	title := strings.TrimSpace(req.Title)
	description := strings.TrimSpace(req.Description)
	if title == "" {
		return nil, &domain.ErrValidation{Field: "title", Message: "is required"}
	}
	if description == "" {
		return nil, &domain.ErrValidation{Field: "description", Message: "is required"}
	}

	inc := &domain.Incident{
		UserID:      actor.UserID,
		Title:       title,
		Description: description,
		Status:      domain.IncidentOpen,
		Priority:    req.Priority,
		Type:        req.Type,
	}
	if req.OrderID != nil && *req.OrderID != "" {
		inc.OrderID = req.OrderID
	}

	created, err := s.store.CreateIncident(ctx, inc)
	if err != nil {
		return nil, fmt.Errorf("create incident: %w", err)
	}

	s.activity.Record(ctx, actor.UserID, domain.ActivityIncidentCreated,
		fmt.Sprintf("Incidencia creada: %s", created.Title),
		map[string]any{"incident_id": created.ID, "priority": created.Priority})

	s.logger.Info("incident created",
		zap.String("incident_id", created.ID),
		zap.String("user_id", actor.UserID),
		zap.String("priority", created.Priority),
	)
	return created, nil
}

// List returns the caller's incidents, or every incident for staff.
func (s *IncidentService) List(ctx context.Context, actor domain.Actor, f domain.IncidentFilter) (*domain.ListResponse[domain.Incident], error) {
	ctx, span := incidentsTracer.Start(ctx, "IncidentService.List")
	defer span.End()

	if !actor.Role.IsStaff() {
		f.UserID = actor.UserID
	}
	f.Page, f.PageSize = normalizePage(f.Page, f.PageSize)

	incidents, err := s.store.ListIncidents(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}
	return paginate(incidents, f.Page, f.PageSize), nil
}

// Get returns the incident with its message thread.
func (s *IncidentService) Get(ctx context.Context, actor domain.Actor, incidentID string) (*domain.IncidentDetail, error) {
	ctx, span := incidentsTracer.Start(ctx, "IncidentService.Get")
	defer span.End()
	span.SetAttributes(attribute.String("incident_id", incidentID))

	inc, err := s.load(ctx, actor, incidentID)
	if err != nil {
		return nil, err
	}
	msgs, err := s.store.ListMessages(ctx, incidentID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	if msgs == nil {
		msgs = []domain.IncidentMessage{}
	}
	return &domain.IncidentDetail{Incident: *inc, Messages: msgs}, nil
}

// Authorize checks that the actor may follow the incident's thread.
func (s *IncidentService) Authorize(ctx context.Context, actor domain.Actor, incidentID string) error {
	ctx, span := incidentsTracer.Start(ctx, "IncidentService.Authorize")
	defer span.End()

	_, err := s.load(ctx, actor, incidentID)
	return err
}

func (s *IncidentService) load(ctx context.Context, actor domain.Actor, incidentID string) (*domain.Incident, error) {
	inc, err := s.store.GetIncident(ctx, incidentID)
	if err != nil {
		return nil, err
	}
	if !lifecycle.CanAccessIncident(actor, inc) {
		return nil, &domain.ErrNotFound{Resource: "incident", ID: incidentID}
	}
	return inc, nil
}

// UpdateStatus moves the incident. Resolving stamps resolved_at; reopening
// clears it.
func (s *IncidentService) UpdateStatus(ctx context.Context, actor domain.Actor, incidentID string, req *domain.UpdateIncidentStatusRequest) (*domain.Incident, error) {
	ctx, span := incidentsTracer.Start(ctx, "IncidentService.UpdateStatus")
	defer span.End()
	span.SetAttributes(attribute.String("incident_id", incidentID), attribute.String("to", string(req.Status)))

	inc, err := s.load(ctx, actor, incidentID)
	if err != nil {
		return nil, err
	}
	from := inc.Status

	if err := lifecycle.ValidateIncidentTransition(from, req.Status); err != nil {
		s.metrics.RecordRejectedTransition("incident", "lifecycle")
		return nil, err
	}
	if err := lifecycle.AuthorizeIncidentTransition(actor, inc, req.Status); err != nil {
		s.metrics.RecordRejectedTransition("incident", "role")
		return nil, err
	}

	updates := map[string]any{"status": req.Status}
	switch {
	case req.Status == domain.IncidentResolved:
		updates["resolved_at"] = s.now().UTC().Format(time.RFC3339)
	case from == domain.IncidentResolved && req.Status == domain.IncidentInProgress:
		updates["resolved_at"] = nil
	}

	updated, err := s.store.UpdateIncidentStatus(ctx, incidentID, from, updates)
	if err != nil {
		if isConflict(err) {
			s.metrics.RecordRejectedTransition("incident", "conflict")
		}
		return nil, err
	}

	if !actor.Is(updated.UserID) {
		s.activity.Record(ctx, updated.UserID, domain.ActivityIncidentStatus,
			fmt.Sprintf("Incidencia %s: %s → %s", updated.Title, from, updated.Status),
			map[string]any{"incident_id": incidentID, "from": string(from), "to": string(updated.Status)})
	}

	s.logger.Info("incident status changed",
		zap.String("incident_id", incidentID),
		zap.String("from", string(from)),
		zap.String("to", string(updated.Status)),
		zap.String("actor_id", actor.UserID),
	)
	return updated, nil
}

// ListMessages returns the thread oldest first.
func (s *IncidentService) ListMessages(ctx context.Context, actor domain.Actor, incidentID string) ([]domain.IncidentMessage, error) {
	ctx, span := incidentsTracer.Start(ctx, "IncidentService.ListMessages")
	defer span.End()

	if _, err := s.load(ctx, actor, incidentID); err != nil {
		return nil, err
	}
	msgs, err := s.store.ListMessages(ctx, incidentID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	if msgs == nil {
		msgs = []domain.IncidentMessage{}
	}
	return msgs, nil
}

// PostMessage stores the message, returns it and pushes it to live
// subscribers of the thread.
func (s *IncidentService) PostMessage(ctx context.Context, actor domain.Actor, incidentID string, req *domain.PostMessageRequest) (*domain.IncidentMessage, error) {
	ctx, span := incidentsTracer.Start(ctx, "IncidentService.PostMessage")
	defer span.End()
	span.SetAttributes(attribute.String("incident_id", incidentID))

	text := strings.TrimSpace(req.Message)
	if text == "" {
		return nil, &domain.ErrValidation{Field: "message", Message: "must not be empty"}
	}

	inc, err := s.load(ctx, actor, incidentID)
	if err != nil {
		return nil, err
	}
	if err := lifecycle.CanPostMessage(inc); err != nil {
		return nil, err
	}

	msg, err := s.store.CreateMessage(ctx, &domain.IncidentMessage{
		IncidentID: incidentID,
		SenderID:   actor.UserID,
		Message:    text,
	})
	if err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}

	delivered := s.broadcaster.Publish(incidentID, *msg)

	if !actor.Is(inc.UserID) {
		s.activity.Record(ctx, inc.UserID, domain.ActivityIncidentMessage,
			fmt.Sprintf("Nuevo mensaje en la incidencia %s", inc.Title),
			map[string]any{"incident_id": incidentID, "message_id": msg.ID})
	}

	s.logger.Debug("incident message posted",
		zap.String("incident_id", incidentID),
		zap.String("message_id", msg.ID),
		zap.Int("delivered", delivered),
	)
	return msg, nil
}
