package service

import (
	"context"
	"fmt"
	"time"

	"github.com/trabamex/mir-bff-go/internal/domain"
	"github.com/trabamex/mir-bff-go/internal/lifecycle"
	"github.com/trabamex/mir-bff-go/internal/port"
	"github.com/trabamex/mir-bff-go/internal/usage"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var dashboardTracer = otel.Tracer("service/dashboard")

// DashboardService builds the role-specific landing summary.
type DashboardService struct {
	orders     port.OrderStore
	supplies   port.SuppliesStore
	incidents  port.IncidentStore
	activities port.ActivityStore
	plans      *PlanService
	cache      port.Cache[*domain.DashboardSummary]
	logger     *zap.Logger
	now        func() time.Time
}

// NewDashboardService creates the dashboard service. The cache only holds
// staff summaries; customer summaries carry live plan usage.
func NewDashboardService(
	orders port.OrderStore,
	supplies port.SuppliesStore,
	incidents port.IncidentStore,
	activities port.ActivityStore,
	plans *PlanService,
	cache port.Cache[*domain.DashboardSummary],
	logger *zap.Logger,
) *DashboardService {
	return &DashboardService{
		orders:     orders,
		supplies:   supplies,
		incidents:  incidents,
		activities: activities,
		plans:      plans,
		cache:      cache,
		logger:     logger,
		now:        time.Now,
	}
}

// Summary returns the dashboard of the actor's role.
func (s *DashboardService) Summary(ctx context.Context, actor domain.Actor) (*domain.DashboardSummary, error) {
	ctx, span := dashboardTracer.Start(ctx, "DashboardService.Summary")
	defer span.End()
	span.SetAttributes(attribute.String("role", string(actor.Role)))

	switch actor.Role {
	case domain.RoleUser:
		return s.customerSummary(ctx, actor)
	case domain.RoleOperator:
		return s.cache.GetOrLoad(ctx, "dashboard:operator:"+actor.UserID, func(ctx context.Context) (*domain.DashboardSummary, error) {
			return s.operatorSummary(ctx, actor)
		})
	case domain.RoleAdmin:
		return s.cache.GetOrLoad(ctx, "dashboard:admin", s.adminSummary)
	}
	return nil, &domain.ErrForbidden{Action: "view dashboard"}
}

func (s *DashboardService) customerSummary(ctx context.Context, actor domain.Actor) (*domain.DashboardSummary, error) {
	sum := s.newSummary(domain.RoleUser)
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		orders, err := s.orders.ListOrders(gCtx, domain.OrderFilter{CustomerID: actor.UserID})
		if err != nil {
			return fmt.Errorf("orders: %w", err)
		}
		countOrders(sum, orders)
		return nil
	})

	g.Go(func() error {
		usages, err := s.plans.Usage(gCtx, actor.UserID)
		if err != nil {
			return fmt.Errorf("plan usage: %w", err)
		}
		sum.PlanUsages = usages
		sum.UsageWarning = usage.AnyOverLimit(usages)
		return nil
	})

	g.Go(func() error {
		incidents, err := s.incidents.ListIncidents(gCtx, domain.IncidentFilter{
			UserID:   actor.UserID,
			Statuses: []domain.IncidentStatus{domain.IncidentOpen, domain.IncidentInProgress},
		})
		if err != nil {
			return fmt.Errorf("incidents: %w", err)
		}
		sum.OpenIncidents = len(incidents)
		return nil
	})

	g.Go(func() error {
		reqs, err := s.supplies.ListSuppliesRequests(gCtx, domain.SuppliesFilter{
			UserID:   actor.UserID,
			Statuses: []domain.SuppliesStatus{domain.SuppliesPending, domain.SuppliesApproved},
		})
		if err != nil {
			return fmt.Errorf("supplies: %w", err)
		}
		sum.PendingSupplies = len(reqs)
		return nil
	})

	g.Go(func() error {
		n, err := s.activities.CountUnread(gCtx, actor.UserID)
		if err != nil {
			return fmt.Errorf("activities: %w", err)
		}
		sum.UnreadActivities = n
		return nil
	})

	if err := g.Wait(); err != nil {
		s.logger.Error("customer dashboard failed", zap.String("user_id", actor.UserID), zap.Error(err))
		return nil, err
	}
	return sum, nil
}

func (s *DashboardService) operatorSummary(ctx context.Context, actor domain.Actor) (*domain.DashboardSummary, error) {
	sum := s.newSummary(domain.RoleOperator)
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		orders, err := s.orders.ListOrders(gCtx, domain.OrderFilter{OperatorID: actor.UserID})
		if err != nil {
			return fmt.Errorf("orders: %w", err)
		}
		countOrders(sum, orders)
		return nil
	})

	g.Go(func() error {
		reqs, err := s.supplies.ListSuppliesRequests(gCtx, domain.SuppliesFilter{
			OperatorID: actor.UserID,
			Statuses:   []domain.SuppliesStatus{domain.SuppliesPending, domain.SuppliesApproved},
		})
		if err != nil {
			return fmt.Errorf("supplies: %w", err)
		}
		sum.PendingSupplies = len(reqs)
		return nil
	})

	g.Go(func() error {
		n, err := s.activities.CountUnread(gCtx, actor.UserID)
		if err != nil {
			return fmt.Errorf("activities: %w", err)
		}
		sum.UnreadActivities = n
		return nil
	})

	if err := g.Wait(); err != nil {
		s.logger.Error("operator dashboard failed", zap.String("user_id", actor.UserID), zap.Error(err))
		return nil, err
	}
	return sum, nil
}

func (s *DashboardService) adminSummary(ctx context.Context) (*domain.DashboardSummary, error) {
	sum := s.newSummary(domain.RoleAdmin)
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		orders, err := s.orders.ListOrders(gCtx, domain.OrderFilter{})
		if err != nil {
			return fmt.Errorf("orders: %w", err)
		}
		countOrders(sum, orders)
		return nil
	})

	g.Go(func() error {
		orders, err := s.orders.ListOrders(gCtx, domain.OrderFilter{Unassigned: true})
		if err != nil {
			return fmt.Errorf("unassigned orders: %w", err)
		}
		sum.UnassignedOrders = len(orders)
		return nil
	})

	g.Go(func() error {
		reqs, err := s.supplies.ListSuppliesRequests(gCtx, domain.SuppliesFilter{Unassigned: true})
		if err != nil {
			return fmt.Errorf("unassigned supplies: %w", err)
		}
		sum.UnassignedSupplies = len(reqs)
		return nil
	})

	g.Go(func() error {
		incidents, err := s.incidents.ListIncidents(gCtx, domain.IncidentFilter{
			Statuses: []domain.IncidentStatus{domain.IncidentOpen, domain.IncidentInProgress},
		})
		if err != nil {
			return fmt.Errorf("incidents: %w", err)
		}
		sum.OpenIncidents = len(incidents)
		return nil
	})

	if err := g.Wait(); err != nil {
		s.logger.Error("admin dashboard failed", zap.Error(err))
		return nil, err
	}
	return sum, nil
}

func (s *DashboardService) newSummary(role domain.Role) *domain.DashboardSummary {
	return &domain.DashboardSummary{
		Role:           role,
		OrdersByStatus: map[domain.OrderStatus]int{},
		GeneratedAt:    s.now().UTC(),
	}
}

func countOrders(sum *domain.DashboardSummary, orders []domain.ServiceOrder) {
	for _, o := range orders {
		sum.OrdersByStatus[o.Status]++
		if !lifecycle.IsTerminalOrder(o.Status) {
			sum.ActiveOrders++
		}
	}
}
