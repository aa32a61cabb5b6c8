package service

import (
	"context"
	"fmt"
	"time"

	"github.com/trabamex/mir-bff-go/internal/domain"
	"github.com/trabamex/mir-bff-go/internal/infra/observability"
	"github.com/trabamex/mir-bff-go/internal/port"
	"github.com/trabamex/mir-bff-go/internal/usage"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var plansTracer = otel.Tracer("service/plans")

const catalogKey = "plans:catalog"

// PlanService serves the plan catalog, subscriptions and usage accounting.
type PlanService struct {
	plans    port.PlanStore
	orders   port.OrderStore
	catalog  port.Cache[[]domain.SubscriptionPlan]
	activity *ActivityService
	metrics  *observability.Metrics
	logger   *zap.Logger
	now      func() time.Time
}

// NewPlanService creates a new plan service.
func NewPlanService(
	plans port.PlanStore,
	orders port.OrderStore,
	catalog port.Cache[[]domain.SubscriptionPlan],
	activity *ActivityService,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *PlanService {
	return &PlanService{
		plans:    plans,
		orders:   orders,
		catalog:  catalog,
		activity: activity,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
	}
}

// ListPlans returns the active catalog.
func (s *PlanService) ListPlans(ctx context.Context) ([]domain.SubscriptionPlan, error) {
	ctx, span := plansTracer.Start(ctx, "PlanService.ListPlans")
	defer span.End()

	plans, err := s.catalog.GetOrLoad(ctx, catalogKey, s.plans.ListPlans)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	return plans, nil
}

func (s *PlanService) GetPlan(ctx context.Context, planID string) (*domain.SubscriptionPlan, error) {
	ctx, span := plansTracer.Start(ctx, "PlanService.GetPlan")
	defer span.End()

	return s.plans.GetPlan(ctx, planID)
}

// ListUserPlans returns the caller's active subscriptions.
func (s *PlanService) ListUserPlans(ctx context.Context, userID string) ([]domain.UserPlan, error) {
	ctx, span := plansTracer.Start(ctx, "PlanService.ListUserPlans")
	defer span.End()

	plans, err := s.plans.GetUserPlans(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user plans: %w", err)
	}
	if plans == nil {
		plans = []domain.UserPlan{}
	}
	return plans, nil
}

// Subscribe creates an active subscription of the caller to planID.
func (s *PlanService) Subscribe(ctx context.Context, userID, planID string, req *domain.SubscribeRequest) (*domain.UserPlan, error) {
	ctx, span := plansTracer.Start(ctx, "PlanService.Subscribe")
	defer span.End()
	span.SetAttributes(attribute.String("plan_id", planID))

	plan, err := s.plans.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	if !plan.IsActive {
		return nil, &domain.ErrValidation{Field: "plan_id", Message: "plan is not available"}
	}

	current, err := s.ListUserPlans(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, up := range current {
		if up.PlanID == planID {
			return nil, &domain.ErrConflict{Message: "already subscribed to this plan"}
		}
	}

	up, err := s.plans.CreateUserPlan(ctx, userID, planID, req.BillingCycle)
	if err != nil {
		return nil, fmt.Errorf("create subscription: %w", err)
	}
	if up.Name == "" {
		up.Name = plan.Name
	}
	if up.IncludedWeightKg == 0 {
		up.IncludedWeightKg = plan.IncludedWeightKg
	}

	s.activity.Record(ctx, userID, domain.ActivityPlanSubscribed,
		fmt.Sprintf("Suscripción al plan %s", plan.Name),
		map[string]any{"plan_id": planID, "billing_cycle": string(req.BillingCycle)})

	s.logger.Info("plan subscribed",
		zap.String("user_id", userID),
		zap.String("plan_id", planID),
		zap.String("billing_cycle", string(req.BillingCycle)),
	)
	return up, nil
}

// Usage computes the current-period usage of every active plan of the user.
// Nothing is memoized; each call reads the orders again.
func (s *PlanService) Usage(ctx context.Context, userID string) ([]domain.PlanUsage, error) {
	ctx, span := plansTracer.Start(ctx, "PlanService.Usage")
	defer span.End()

	plans, err := s.ListUserPlans(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.usageOf(ctx, userID, plans)
}

// UsageOf computes the usage of one of the user's plans. It returns nil
// when the user holds no active subscription to planID.
func (s *PlanService) UsageOf(ctx context.Context, userID, planID string) (*domain.PlanUsage, error) {
	ctx, span := plansTracer.Start(ctx, "PlanService.UsageOf")
	defer span.End()

	plans, err := s.ListUserPlans(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, p := range plans {
		if p.PlanID != planID {
			continue
		}
		usages, err := s.usageOf(ctx, userID, []domain.UserPlan{p})
		if err != nil {
			return nil, err
		}
		return &usages[0], nil
	}
	return nil, nil
}

func (s *PlanService) usageOf(ctx context.Context, userID string, plans []domain.UserPlan) ([]domain.PlanUsage, error) {
	if len(plans) == 0 {
		return []domain.PlanUsage{}, nil
	}

	now := s.now()
	since := now
	for _, p := range plans {
		if start, _ := usage.Period(p.BillingCycle, now); start.Before(since) {
			since = start
		}
	}

	orders, err := s.orders.ListUsageOrders(ctx, userID, since)
	if err != nil {
		return nil, fmt.Errorf("list usage orders: %w", err)
	}

	usages := usage.CalculateAll(plans, orders, now)
	for _, u := range usages {
		if u.IsOverLimit {
			s.metrics.RecordOverLimit(u.BillingCycle)
		}
	}
	return usages, nil
}
