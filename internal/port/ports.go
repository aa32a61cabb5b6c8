// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the service
// layer from Supabase, the broker, the mailer and the other adapters.
package port

import (
	"context"
	"io"
	"time"

	"github.com/trabamex/mir-bff-go/internal/domain"
)

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
	GetOrLoad(ctx context.Context, key string, load func(ctx context.Context) (T, error)) (T, error)
}

// ProfileStore reads and writes rows of the profiles table.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (*domain.Profile, error)
	ListProfiles(ctx context.Context, role domain.Role, page, pageSize int) ([]domain.Profile, error)
	CreateProfile(ctx context.Context, p *domain.Profile) (*domain.Profile, error)
	UpdateProfile(ctx context.Context, userID string, updates map[string]any) (*domain.Profile, error)
}

// OrderStore handles service orders. Status and operator writes are
// conditional: they return ErrConflict when the row changed since it was read.
type OrderStore interface {
	CreateOrder(ctx context.Context, o *domain.ServiceOrder) (*domain.ServiceOrder, error)
	GetOrder(ctx context.Context, orderID string) (*domain.ServiceOrder, error)
	ListOrders(ctx context.Context, f domain.OrderFilter) ([]domain.ServiceOrder, error)
	ListUsageOrders(ctx context.Context, customerID string, since time.Time) ([]domain.ServiceOrder, error)
	UpdateOrderStatus(ctx context.Context, orderID string, from domain.OrderStatus, updates map[string]any) (*domain.ServiceOrder, error)
	AssignOrderOperator(ctx context.Context, orderID, operatorID string, onlyIfUnassigned bool) (*domain.ServiceOrder, error)
}

// PlanStore handles the plan catalog and customer subscriptions.
type PlanStore interface {
	ListPlans(ctx context.Context) ([]domain.SubscriptionPlan, error)
	GetPlan(ctx context.Context, planID string) (*domain.SubscriptionPlan, error)
	GetUserPlans(ctx context.Context, userID string) ([]domain.UserPlan, error)
	CreateUserPlan(ctx context.Context, userID, planID string, cycle domain.BillingCycle) (*domain.UserPlan, error)
}

// SuppliesStore handles supply requests and their line items.
type SuppliesStore interface {
	CreateSuppliesRequest(ctx context.Context, r *domain.SuppliesRequest) (*domain.SuppliesRequest, error)
	CreateSuppliesItems(ctx context.Context, requestID string, items []domain.SuppliesRequestItem) ([]domain.SuppliesRequestItem, error)
	DeleteSuppliesRequest(ctx context.Context, requestID string) error
	GetSuppliesRequest(ctx context.Context, requestID string) (*domain.SuppliesRequest, error)
	ListSuppliesRequests(ctx context.Context, f domain.SuppliesFilter) ([]domain.SuppliesRequest, error)
	UpdateSuppliesStatus(ctx context.Context, requestID string, from, to domain.SuppliesStatus) (*domain.SuppliesRequest, error)
	AssignSuppliesOperator(ctx context.Context, requestID, operatorID string, onlyIfUnassigned bool) (*domain.SuppliesRequest, error)
}

// IncidentStore handles incidents and their message threads.
type IncidentStore interface {
	CreateIncident(ctx context.Context, inc *domain.Incident) (*domain.Incident, error)
	GetIncident(ctx context.Context, incidentID string) (*domain.Incident, error)
	ListIncidents(ctx context.Context, f domain.IncidentFilter) ([]domain.Incident, error)
	UpdateIncidentStatus(ctx context.Context, incidentID string, from domain.IncidentStatus, updates map[string]any) (*domain.Incident, error)
	ListMessages(ctx context.Context, incidentID string) ([]domain.IncidentMessage, error)
	CreateMessage(ctx context.Context, msg *domain.IncidentMessage) (*domain.IncidentMessage, error)
}

// ActivityStore handles the per-user activity log.
type ActivityStore interface {
	CreateActivity(ctx context.Context, a *domain.UserActivity) error
	ListActivities(ctx context.Context, f domain.ActivityFilter) ([]domain.UserActivity, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, userID, activityID string) error
	MarkAllRead(ctx context.Context, userID string) error
}

// AuthGateway talks to the hosted identity provider.
type AuthGateway interface {
	SignUp(ctx context.Context, email, password string, metadata map[string]any) (*domain.AuthTokens, error)
	SignIn(ctx context.Context, email, password string) (*domain.AuthTokens, error)
	Refresh(ctx context.Context, refreshToken string) (*domain.AuthTokens, error)
	SignOut(ctx context.Context, accessToken string) error
}

// InviteGateway invokes the server-side user invitation function.
type InviteGateway interface {
	InviteUser(ctx context.Context, req *domain.InviteUserRequest) (*domain.InviteUserResponse, error)
}

// EventPublisher fans out lifecycle events to external consumers.
type EventPublisher interface {
	PublishOrderEvent(ctx context.Context, evt domain.OrderEvent) error
	PublishSuppliesEvent(ctx context.Context, evt domain.SuppliesEvent) error
	Close()
}

// Mailer delivers contact-form submissions.
type Mailer interface {
	SendContact(ctx context.Context, req *domain.ContactRequest) error
}

// ChecklistStore persists a user's personal checklist document.
type ChecklistStore interface {
	GetChecklist(ctx context.Context, userID string) (*domain.Checklist, error)
	SaveChecklist(ctx context.Context, userID string, c *domain.Checklist) error
}

// OrderExporter renders orders into a downloadable document.
type OrderExporter interface {
	ExportOrders(w io.Writer, orders []domain.ServiceOrder) error
	ContentType() string
	Extension() string
}

// MessageBroadcaster delivers incident messages to live subscribers.
type MessageBroadcaster interface {
	Publish(incidentID string, msg domain.IncidentMessage) int
}
