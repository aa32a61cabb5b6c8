package domain

import "time"

// ============================================================
// Activity log / notifications
// ============================================================

// Activity types written by the services.
const (
	ActivityOrderCreated       = "order_created"
	ActivityOrderStatusChanged = "order_status_changed"
	ActivityOrderAssigned      = "order_assigned"
	ActivitySuppliesRequested  = "supplies_requested"
	ActivitySuppliesStatus     = "supplies_status_changed"
	ActivitySuppliesAssigned   = "supplies_assigned"
	ActivityIncidentCreated    = "incident_created"
	ActivityIncidentStatus     = "incident_status_changed"
	ActivityIncidentMessage    = "incident_message"
	ActivityPlanSubscribed     = "plan_subscribed"
	ActivityPlanUsageOverLimit = "plan_usage_over_limit"
	ActivityProfileUpdated     = "profile_updated"
)

// UserActivity is a row of user_activities, doubling as a notification.
type UserActivity struct {
	ID           string         `json:"id"`
	UserID       string         `json:"user_id"`
	ActivityType string         `json:"activity_type"`
	Description  string         `json:"description"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	IsRead       bool           `json:"is_read"`
	CreatedAt    time.Time      `json:"created_at"`
}

// ActivityFilter narrows activity listings.
type ActivityFilter struct {
	UserID     string
	UnreadOnly bool
	Page       int
	PageSize   int
}
