package service_test

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/trabamex/mir-bff-go/internal/domain"
	"github.com/trabamex/mir-bff-go/internal/infra/cache"
	"github.com/trabamex/mir-bff-go/internal/infra/observability"
	"github.com/trabamex/mir-bff-go/internal/service"
)

func newPlanService(plans *mockPlans, orders *mockOrders, acts *mockActivities) *service.PlanService {
	return service.NewPlanService(
		plans,
		orders,
		cache.New[[]domain.SubscriptionPlan](time.Minute),
		service.NewActivityService(acts, zap.NewNop()),
		observability.NewMetrics(),
		zap.NewNop(),
	)
}

func catalog() map[string]*domain.SubscriptionPlan {
	return map[string]*domain.SubscriptionPlan{
		"basic":  {ID: "basic", Name: "Básico", IncludedWeightKg: 500, IsActive: true},
		"legacy": {ID: "legacy", Name: "Anterior", IncludedWeightKg: 100, IsActive: false},
	}
}

func TestListPlans_Cached(t *testing.T) {
	plans := &mockPlans{plans: catalog()}
	svc := newPlanService(plans, newMockOrders(), &mockActivities{})

	for i := 0; i < 3; i++ {
		if _, err := svc.ListPlans(context.Background()); err != nil {
			t.Fatalf("list plans: %v", err)
		}
	}
	if plans.calls != 1 {
		t.Errorf("expected catalog loaded once, got %d", plans.calls)
	}
}

func TestSubscribe(t *testing.T) {
	plans := &mockPlans{plans: catalog()}
	acts := &mockActivities{}
	svc := newPlanService(plans, newMockOrders(), acts)
	ctx := context.Background()

	up, err := svc.Subscribe(ctx, "cust-1", "basic", &domain.SubscribeRequest{BillingCycle: domain.CycleAnnual})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if up.Name != "Básico" || up.IncludedWeightKg != 500 || up.BillingCycle != domain.CycleAnnual {
		t.Errorf("unexpected subscription %+v", up)
	}
	if len(acts.ofType(domain.ActivityPlanSubscribed)) != 1 {
		t.Error("expected plan_subscribed activity")
	}
}

func TestSubscribe_Rejections(t *testing.T) {
	plans := &mockPlans{plans: catalog(), userPlans: []domain.UserPlan{{PlanID: "basic"}}}
	svc := newPlanService(plans, newMockOrders(), &mockActivities{})
	ctx := context.Background()
	req := &domain.SubscribeRequest{BillingCycle: domain.CycleMonthly}

	_, err := svc.Subscribe(ctx, "cust-1", "legacy", req)
	expectErr[*domain.ErrValidation](t, err)

	_, err = svc.Subscribe(ctx, "cust-1", "basic", req)
	expectErr[*domain.ErrConflict](t, err)

	_, err = svc.Subscribe(ctx, "cust-1", "nope", req)
	expectErr[*domain.ErrNotFound](t, err)

	if len(plans.created) != 0 {
		t.Errorf("no subscription may be written, got %v", plans.created)
	}
}

func TestUsage_PerPlan(t *testing.T) {
	now := time.Now().UTC()
	plans := &mockPlans{userPlans: []domain.UserPlan{
		{PlanID: "monthly", IncludedWeightKg: 1000, BillingCycle: domain.CycleMonthly},
		{PlanID: "annual", IncludedWeightKg: 0, BillingCycle: domain.CycleAnnual},
	}}
	orders := newMockOrders()
	orders.usageOrders = []domain.ServiceOrder{
		{PlanID: strPtr("monthly"), Status: domain.StatusCertified, Quantity: 250, Unit: "kg", CreatedAt: now},
		{PlanID: strPtr("annual"), Status: domain.StatusTreated, Quantity: 2, Unit: "t", CreatedAt: now},
	}
	svc := newPlanService(plans, orders, &mockActivities{})

	usages, err := svc.Usage(context.Background(), "cust-1")
	if err != nil {
		t.Fatalf("usage: %v", err)
	}
	if len(usages) != 2 {
		t.Fatalf("expected two usages, got %d", len(usages))
	}
	if usages[0].Percentage != 25 || usages[0].RemainingKg != 750 {
		t.Errorf("unexpected monthly usage %+v", usages[0])
	}
	if usages[1].UsedKg != 2000 || usages[1].Percentage != 0 || usages[1].IsOverLimit {
		t.Errorf("a plan without allowance is never over limit, got %+v", usages[1])
	}

	yearStart := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	if !orders.usageSince.Equal(yearStart) {
		t.Errorf("expected orders read from the earliest period start %v, got %v", yearStart, orders.usageSince)
	}
}

func TestUsage_NoPlans(t *testing.T) {
	orders := newMockOrders()
	svc := newPlanService(&mockPlans{}, orders, &mockActivities{})

	usages, err := svc.Usage(context.Background(), "cust-1")
	if err != nil {
		t.Fatalf("usage: %v", err)
	}
	if len(usages) != 0 {
		t.Errorf("expected no usages, got %+v", usages)
	}
	if !orders.usageSince.IsZero() {
		t.Error("orders must not be read without plans")
	}
}
