package domain

import "time"

// ============================================================
// Supply requests
// ============================================================

// SuppliesStatus is a step of the supply-request lifecycle.
type SuppliesStatus string

const (
	SuppliesPending   SuppliesStatus = "pending"
	SuppliesApproved  SuppliesStatus = "approved"
	SuppliesDelivered SuppliesStatus = "delivered"
	SuppliesCancelled SuppliesStatus = "cancelled"
)

// SuppliesRequest is a row of supplies_requests with its items embedded.
type SuppliesRequest struct {
	ID              string                `json:"id"`
	UserID          string                `json:"user_id"`
	OperatorID      *string               `json:"operator_id"`
	Status          SuppliesStatus        `json:"status"`
	Notes           string                `json:"notes,omitempty"`
	DeliveryAddress string                `json:"delivery_address,omitempty"`
	Items           []SuppliesRequestItem `json:"items,omitempty"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       *time.Time            `json:"updated_at,omitempty"`
}

// HasOperator reports whether an operator is assigned.
func (r *SuppliesRequest) HasOperator() bool {
	return r.OperatorID != nil && *r.OperatorID != ""
}

// SuppliesRequestItem is a row of supplies_request_items.
type SuppliesRequestItem struct {
	ID         string `json:"id,omitempty"`
	RequestID  string `json:"request_id,omitempty"`
	SupplyName string `json:"supply_name"`
	Size       string `json:"size,omitempty"`
	Quantity   int    `json:"quantity"`
}

// CreateSuppliesRequest is the body for POST /v1/supplies.
type CreateSuppliesRequest struct {
	Items           []SuppliesRequestItem `json:"items"`
	Notes           string                `json:"notes" validate:"max=1000"`
	DeliveryAddress string                `json:"delivery_address" validate:"max=300"`
}

// UpdateSuppliesStatusRequest is the body for POST /v1/supplies/{requestId}/status.
type UpdateSuppliesStatusRequest struct {
	Status SuppliesStatus `json:"status" validate:"required,oneof=pending approved delivered cancelled"`
}

// SuppliesFilter narrows supply-request listings.
type SuppliesFilter struct {
	UserID     string
	OperatorID string
	Statuses   []SuppliesStatus
	Unassigned bool
	Page       int
	PageSize   int
}

// SuppliesEvent is published whenever a supply request changes status.
type SuppliesEvent struct {
	RequestID  string         `json:"request_id"`
	UserID     string         `json:"user_id"`
	From       SuppliesStatus `json:"from"`
	To         SuppliesStatus `json:"to"`
	ActorID    string         `json:"actor_id"`
	OccurredAt time.Time      `json:"occurred_at"`
}
