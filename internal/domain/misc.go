package domain

import "time"

// ============================================================
// Contact form
// ============================================================

// ContactRequest is the body for POST /v1/contact.
type ContactRequest struct {
	Name    string `json:"name" validate:"required,min=2,max=120"`
	Email   string `json:"email" validate:"required,email"`
	Phone   string `json:"phone" validate:"omitempty,phone"`
	Company string `json:"company" validate:"max=160"`
	Subject string `json:"subject" validate:"max=160"`
	Message string `json:"message" validate:"required,min=5,max=5000"`
}

// ============================================================
// Personal checklist
// ============================================================

// ChecklistItem is one entry of a user's checklist.
type ChecklistItem struct {
	ID        string    `json:"id"`
	Text      string    `json:"text" validate:"required,max=300"`
	Done      bool      `json:"done"`
	CreatedAt time.Time `json:"created_at"`
}

// Checklist is the document persisted per user.
type Checklist struct {
	Items     []ChecklistItem `json:"items" validate:"max=200,dive"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// ============================================================
// Dashboard
// ============================================================

// DashboardSummary is the role-specific landing summary.
type DashboardSummary struct {
	Role               Role                `json:"role"`
	OrdersByStatus     map[OrderStatus]int `json:"orders_by_status"`
	ActiveOrders       int                 `json:"active_orders"`
	PlanUsages         []PlanUsage         `json:"plan_usages,omitempty"`
	UsageWarning       bool                `json:"usage_warning,omitempty"`
	OpenIncidents      int                 `json:"open_incidents"`
	PendingSupplies    int                 `json:"pending_supplies"`
	UnreadActivities   int                 `json:"unread_activities"`
	UnassignedOrders   int                 `json:"unassigned_orders"`
	UnassignedSupplies int                 `json:"unassigned_supplies"`
	GeneratedAt        time.Time           `json:"generated_at"`
}
