package supabase

import (
	"context"
	"net/http"

	"github.com/trabamex/mir-bff-go/internal/domain"
)

func (c *Client) ListPlans(ctx context.Context) ([]domain.SubscriptionPlan, error) {
	return selectRows[domain.SubscriptionPlan](ctx, c, "ListPlans",
		from("subscription_plans").eq("is_active", "true").order("monthly_price.asc"))
}

func (c *Client) GetPlan(ctx context.Context, planID string) (*domain.SubscriptionPlan, error) {
	return selectOne[domain.SubscriptionPlan](ctx, c, "GetPlan", "subscription plan", planID,
		from("subscription_plans").eq("id", planID))
}

// GetUserPlans calls the get_user_plans RPC, which joins user_plans with
// the catalog and returns only active subscriptions.
func (c *Client) GetUserPlans(ctx context.Context, userID string) ([]domain.UserPlan, error) {
	var plans []domain.UserPlan
	err := c.execute(ctx, "GetUserPlans", func() error {
		body, err := c.doRequest(ctx, http.MethodPost, "rpc/get_user_plans", map[string]any{"p_user_id": userID}, "")
		if err != nil {
			return err
		}
		plans, err = decodeRows[domain.UserPlan](body)
		return err
	})
	if err != nil {
		return nil, err
	}
	return plans, nil
}

type userPlanRow struct {
	ID           string              `json:"id"`
	UserID       string              `json:"user_id"`
	PlanID       string              `json:"plan_id"`
	BillingCycle domain.BillingCycle `json:"billing_cycle"`
	Status       string              `json:"status"`
}

func (c *Client) CreateUserPlan(ctx context.Context, userID, planID string, cycle domain.BillingCycle) (*domain.UserPlan, error) {
	row, err := insertOne[userPlanRow](ctx, c, "CreateUserPlan", "user_plans", map[string]any{
		"user_id":       userID,
		"plan_id":       planID,
		"billing_cycle": cycle,
		"status":        "active",
	})
	if err != nil {
		return nil, err
	}
	return &domain.UserPlan{
		UserPlanID:   row.ID,
		PlanID:       row.PlanID,
		BillingCycle: row.BillingCycle,
		Status:       row.Status,
	}, nil
}
