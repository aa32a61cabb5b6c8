package domain

import "time"

// ============================================================
// Incidents & message threads
// ============================================================

// IncidentStatus is a step of the incident lifecycle.
type IncidentStatus string

const (
	IncidentOpen       IncidentStatus = "OPEN"
	IncidentInProgress IncidentStatus = "IN_PROGRESS"
	IncidentResolved   IncidentStatus = "RESOLVED"
	IncidentClosed     IncidentStatus = "CLOSED"
)

// Incident is a row of the incidents table.
type Incident struct {
	ID          string         `json:"id"`
	UserID      string         `json:"user_id"`
	OrderID     *string        `json:"order_id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Status      IncidentStatus `json:"status"`
	Priority    string         `json:"priority"`
	Type        string         `json:"type"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   *time.Time     `json:"updated_at,omitempty"`
	ResolvedAt  *time.Time     `json:"resolved_at,omitempty"`
}

// IncidentMessage is a row of incident_messages.
type IncidentMessage struct {
	ID         string    `json:"id"`
	IncidentID string    `json:"incident_id"`
	SenderID   string    `json:"sender_id"`
	Message    string    `json:"message"`
	CreatedAt  time.Time `json:"created_at"`
}

// IncidentDetail is an incident with its thread.
type IncidentDetail struct {
	Incident
	Messages []IncidentMessage `json:"messages"`
}

// CreateIncidentRequest is the body for POST /v1/incidents.
type CreateIncidentRequest struct {
	Title       string  `json:"title" validate:"required,min=3,max=160"`
	Description string  `json:"description" validate:"required,max=4000"`
	Priority    string  `json:"priority" validate:"required,oneof=low medium high urgent"`
	Type        string  `json:"type" validate:"required,oneof=service billing supplies safety other"`
	OrderID     *string `json:"order_id" validate:"omitempty,uuid"`
}

// UpdateIncidentStatusRequest is the body for POST /v1/incidents/{incidentId}/status.
type UpdateIncidentStatusRequest struct {
	Status IncidentStatus `json:"status" validate:"required,oneof=OPEN IN_PROGRESS RESOLVED CLOSED"`
}

// PostMessageRequest is the body for POST /v1/incidents/{incidentId}/messages.
type PostMessageRequest struct {
	Message string `json:"message" validate:"required,max=4000"`
}

// IncidentFilter narrows incident listings.
type IncidentFilter struct {
	UserID   string
	Statuses []IncidentStatus
	Page     int
	PageSize int
}
