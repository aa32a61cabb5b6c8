package domain

import "time"

// ============================================================
// Subscription plans & usage
// ============================================================

// BillingCycle is the period a plan's allowance applies to.
type BillingCycle string

const (
	CycleMonthly BillingCycle = "monthly"
	CycleAnnual  BillingCycle = "annual"
)

// SubscriptionPlan is a row of the subscription_plans catalog.
type SubscriptionPlan struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	Description      string  `json:"description,omitempty"`
	MonthlyPrice     float64 `json:"monthly_price"`
	AnnualPrice      float64 `json:"annual_price"`
	IncludedWeightKg float64 `json:"included_weight_kg"`
	PickupFrequency  string  `json:"pickup_frequency"`
	IsActive         bool    `json:"is_active"`
}

// UserPlan is one active subscription as returned by the get_user_plans RPC.
type UserPlan struct {
	UserPlanID       string       `json:"user_plan_id"`
	PlanID           string       `json:"plan_id"`
	Name             string       `json:"name"`
	IncludedWeightKg float64      `json:"included_weight_kg"`
	BillingCycle     BillingCycle `json:"billing_cycle"`
	Status           string       `json:"status"`
	StartedAt        *time.Time   `json:"started_at,omitempty"`
}

// SubscribeRequest is the body for POST /v1/plans/{planId}/subscribe.
type SubscribeRequest struct {
	BillingCycle BillingCycle `json:"billing_cycle" validate:"required,oneof=monthly annual"`
}

// PlanUsage is the derived consumption of one plan for its current period.
type PlanUsage struct {
	PlanID        string       `json:"plan_id"`
	PlanName      string       `json:"plan_name"`
	BillingCycle  BillingCycle `json:"billing_cycle"`
	PeriodStart   time.Time    `json:"period_start"`
	PeriodEnd     time.Time    `json:"period_end"`
	LimitKg       float64      `json:"limit_kg"`
	UsedKg        float64      `json:"used_kg"`
	RemainingKg   float64      `json:"remaining_kg"`
	RawPercentage float64      `json:"raw_percentage"`
	Percentage    float64      `json:"percentage"`
	IsOverLimit   bool         `json:"is_over_limit"`
	OrderCount    int          `json:"order_count"`
}
