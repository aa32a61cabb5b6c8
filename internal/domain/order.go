package domain

import "time"

// ============================================================
// Service orders
// ============================================================

// OrderStatus is a step of the service-order lifecycle.
type OrderStatus string

const (
	StatusPlanned            OrderStatus = "PLANNED"
	StatusEnRouteToPickup    OrderStatus = "EN_ROUTE_TO_PICKUP"
	StatusOnSitePickup       OrderStatus = "ON_SITE_PICKUP"
	StatusCollected          OrderStatus = "COLLECTED"
	StatusEnRouteToDepot     OrderStatus = "EN_ROUTE_TO_DEPOT"
	StatusAtDepot            OrderStatus = "AT_DEPOT"
	StatusWeighedVerified    OrderStatus = "WEIGHED_VERIFIED"
	StatusEnRouteToTreatment OrderStatus = "EN_ROUTE_TO_TREATMENT"
	StatusInTreatment        OrderStatus = "IN_TREATMENT"
	StatusTreated            OrderStatus = "TREATED"
	StatusCertified          OrderStatus = "CERTIFIED"
	StatusCancelled          OrderStatus = "CANCELLED"

	// StatusCompletedLegacy appears on rows written before the lifecycle
	// vocabulary existed. It is read-only.
	StatusCompletedLegacy OrderStatus = "COMPLETED"
)

// Waste quantity units accepted on orders.
const (
	UnitKg  = "kg"
	UnitTon = "ton"
	UnitT   = "t"
)

// ServiceOrder is a row of the service_orders table.
type ServiceOrder struct {
	ID             string      `json:"id"`
	CustomerID     string      `json:"customer_id"`
	OperatorID     *string     `json:"operator_id"`
	Status         OrderStatus `json:"status"`
	WasteType      string      `json:"waste_type"`
	Quantity       float64     `json:"quantity"`
	Unit           string      `json:"unit"`
	PlanID         *string     `json:"plan_id"`
	PickupAddress  string      `json:"pickup_address"`
	ScheduledDate  string      `json:"scheduled_date"`
	Notes          string      `json:"notes,omitempty"`
	CertificateURL *string     `json:"certificate_url"`
	ManifestURL    *string     `json:"manifest_url"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      *time.Time  `json:"updated_at,omitempty"`
}

// HasOperator reports whether an operator is assigned.
func (o *ServiceOrder) HasOperator() bool {
	return o.OperatorID != nil && *o.OperatorID != ""
}

// AssignedTo reports whether the order is assigned to the given operator.
func (o *ServiceOrder) AssignedTo(operatorID string) bool {
	return o.HasOperator() && *o.OperatorID == operatorID
}

// OrderView is a service order enriched for display.
type OrderView struct {
	ServiceOrder
	Progress    int           `json:"progress"`
	AllowedNext []OrderStatus `json:"allowed_next"`
}

// CreateOrderRequest is the body for POST /v1/orders.
type CreateOrderRequest struct {
	WasteType     string  `json:"waste_type" validate:"required,max=120"`
	Quantity      float64 `json:"quantity" validate:"gt=0"`
	Unit          string  `json:"unit" validate:"required,oneof=kg ton t"`
	PlanID        *string `json:"plan_id" validate:"omitempty,uuid"`
	PickupAddress string  `json:"pickup_address" validate:"required,max=300"`
	ScheduledDate string  `json:"scheduled_date" validate:"required,datetime=2006-01-02"`
	Notes         string  `json:"notes" validate:"max=1000"`
}

// CreateOrderResponse carries the created order and, when the order is
// billed against a plan, that plan's usage. Creation is never blocked by
// usage; UsageWarning drives the banner shown to the customer.
type CreateOrderResponse struct {
	Order        OrderView  `json:"order"`
	PlanUsage    *PlanUsage `json:"plan_usage,omitempty"`
	UsageWarning bool       `json:"usage_warning"`
}

// TransitionOrderRequest is the body for POST /v1/orders/{orderId}/status.
type TransitionOrderRequest struct {
	Status           OrderStatus `json:"status" validate:"required"`
	CertificateURL   *string     `json:"certificate_url" validate:"omitempty,url"`
	ManifestURL      *string     `json:"manifest_url" validate:"omitempty,url"`
	VerifiedQuantity *float64    `json:"verified_quantity" validate:"omitempty,gt=0"`
	Note             string      `json:"note" validate:"max=500"`
}

// OrderFilter narrows order listings.
type OrderFilter struct {
	CustomerID string
	OperatorID string
	Statuses   []OrderStatus
	Unassigned bool
	Page       int
	PageSize   int
}

// AssignOperatorRequest is the body for admin assignment endpoints.
type AssignOperatorRequest struct {
	OperatorID string `json:"operator_id" validate:"required,uuid"`
	Force      bool   `json:"force"`
}

// OrderEvent is published whenever an order changes status.
type OrderEvent struct {
	OrderID    string      `json:"order_id"`
	CustomerID string      `json:"customer_id"`
	OperatorID string      `json:"operator_id,omitempty"`
	From       OrderStatus `json:"from"`
	To         OrderStatus `json:"to"`
	ActorID    string      `json:"actor_id"`
	OccurredAt time.Time   `json:"occurred_at"`
}
