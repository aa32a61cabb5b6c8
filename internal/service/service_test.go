package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/trabamex/mir-bff-go/internal/domain"
	"github.com/trabamex/mir-bff-go/internal/infra/cache"
	"github.com/trabamex/mir-bff-go/internal/infra/observability"
	"github.com/trabamex/mir-bff-go/internal/service"
)

func TestActivityRecord_NeverFails(t *testing.T) {
	acts := &mockActivities{err: errors.New("supabase down")}
	svc := service.NewActivityService(acts, zap.NewNop())

	// Must not panic or block.
	svc.Record(context.Background(), "cust-1", domain.ActivityOrderCreated, "x", nil)

	var nilSvc *service.ActivityService
	nilSvc.Record(context.Background(), "cust-1", domain.ActivityOrderCreated, "x", nil)
}

func TestActivityList_Pagination(t *testing.T) {
	acts := &mockActivities{}
	for i := 0; i < 3; i++ {
		acts.created = append(acts.created, domain.UserActivity{UserID: "cust-1"})
	}
	svc := service.NewActivityService(acts, zap.NewNop())

	list, err := svc.List(context.Background(), "cust-1", false, 0, 3)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if list.Page != 1 || list.PageSize != 3 || !list.HasMore {
		t.Errorf("unexpected page %+v", list)
	}

	list, _ = svc.List(context.Background(), "cust-2", false, 1, 0)
	if list.PageSize != 20 || list.HasMore || list.Data == nil {
		t.Errorf("expected empty default page, got %+v", list)
	}
}

func TestContactSubmit_DeliversInBackground(t *testing.T) {
	mailer := &mockMailer{}
	metrics := observability.NewMetrics()
	svc := service.NewContactService(mailer, time.Second, metrics, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	svc.Submit(ctx, &domain.ContactRequest{Name: " Luis ", Email: "luis@example.com", Message: "Quiero una cotización"})
	cancel() // the request finished; delivery must still happen
	svc.Wait()

	if len(mailer.sent) != 1 || mailer.sent[0].Name != "Luis" {
		t.Errorf("expected one trimmed submission, got %+v", mailer.sent)
	}
}

func TestContactSubmit_FailureIsSwallowed(t *testing.T) {
	mailer := &mockMailer{err: errors.New("ses throttled")}
	svc := service.NewContactService(mailer, 0, observability.NewMetrics(), zap.NewNop())

	svc.Submit(context.Background(), &domain.ContactRequest{Name: "Luis", Email: "l@x.mx", Message: "hola hola"})
	svc.Wait()

	if len(mailer.sent) != 1 {
		t.Errorf("expected one attempt, got %d", len(mailer.sent))
	}
}

func TestChecklistSave(t *testing.T) {
	store := &mockChecklist{}
	svc := service.NewChecklistService(store)
	keep := uuid.NewString()
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	c, err := svc.Save(context.Background(), "cust-1", []domain.ChecklistItem{
		{ID: keep, Text: "Revisar manifiesto", Done: true, CreatedAt: created},
		{Text: "  Etiquetar tambos "},
		{Text: "   "},
		{ID: "not-a-uuid", Text: "Llamar al operador"},
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if len(c.Items) != 3 {
		t.Fatalf("expected blank item dropped, got %d", len(c.Items))
	}
	if c.Items[0].ID != keep || !c.Items[0].CreatedAt.Equal(created) {
		t.Errorf("existing item must be kept, got %+v", c.Items[0])
	}
	if _, err := uuid.Parse(c.Items[1].ID); err != nil || c.Items[1].Text != "Etiquetar tambos" || c.Items[1].CreatedAt.IsZero() {
		t.Errorf("new item must get id and timestamp, got %+v", c.Items[1])
	}
	if c.Items[2].ID == "not-a-uuid" {
		t.Error("invalid ids must be replaced")
	}

	got, _ := svc.Get(context.Background(), "cust-1")
	if len(got.Items) != 3 {
		t.Errorf("expected saved list back, got %+v", got)
	}
}

func TestChecklistGet_Empty(t *testing.T) {
	svc := service.NewChecklistService(&mockChecklist{})

	c, err := svc.Get(context.Background(), "cust-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if c.Items == nil || len(c.Items) != 0 {
		t.Errorf("expected empty list, got %+v", c.Items)
	}
}

func TestAdminInviteUser(t *testing.T) {
	invites := &mockInvites{resp: &domain.InviteUserResponse{UserID: "new-op"}}
	svc := service.NewAdminService(newMockProfiles(), invites, observability.NewMetrics(), zap.NewNop())

	resp, err := svc.InviteUser(context.Background(), &domain.InviteUserRequest{
		Email: " Op@Trabamex.MX ", FullName: "Operador Uno", Role: domain.RoleOperator,
	})
	if err != nil {
		t.Fatalf("invite: %v", err)
	}
	if invites.got.Email != "op@trabamex.mx" {
		t.Errorf("expected normalized email, got %q", invites.got.Email)
	}
	if resp.Role != domain.RoleOperator || resp.Email != "op@trabamex.mx" {
		t.Errorf("expected response filled from request, got %+v", resp)
	}

	_, err = svc.InviteUser(context.Background(), &domain.InviteUserRequest{Email: "x@y.mx", Role: "root"})
	expectErr[*domain.ErrValidation](t, err)
}

func TestAdminListUsers_RoleFilter(t *testing.T) {
	profiles := newMockProfiles(
		&domain.Profile{ID: "a", Role: domain.RoleAdmin},
		&domain.Profile{ID: "o", Role: domain.RoleOperator},
		&domain.Profile{ID: "u", Role: domain.RoleUser},
	)
	svc := service.NewAdminService(profiles, &mockInvites{}, observability.NewMetrics(), zap.NewNop())

	list, err := svc.ListUsers(context.Background(), domain.RoleOperator, 1, 20)
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	if len(list.Data) != 1 || list.Data[0].ID != "o" {
		t.Errorf("expected operators only, got %+v", list.Data)
	}

	_, err = svc.ListUsers(context.Background(), "driver", 1, 20)
	expectErr[*domain.ErrValidation](t, err)
}

func newDashboard(orders *mockOrders, supplies *mockSupplies, incidents *mockIncidents, acts *mockActivities, plans *mockPlans) *service.DashboardService {
	metrics := observability.NewMetrics()
	activity := service.NewActivityService(acts, zap.NewNop())
	planSvc := service.NewPlanService(plans, orders, cache.New[[]domain.SubscriptionPlan](time.Minute), activity, metrics, zap.NewNop())
	return service.NewDashboardService(orders, supplies, incidents, acts, planSvc,
		cache.New[*domain.DashboardSummary](30*time.Second), zap.NewNop())
}

func TestDashboard_Customer(t *testing.T) {
	orders := newMockOrders(
		&domain.ServiceOrder{ID: "o1", CustomerID: "cust-1", Status: domain.StatusPlanned},
		&domain.ServiceOrder{ID: "o2", CustomerID: "cust-1", Status: domain.StatusCertified},
		&domain.ServiceOrder{ID: "o3", CustomerID: "cust-2", Status: domain.StatusPlanned},
	)
	supplies := newMockSupplies(&domain.SuppliesRequest{ID: "r1", UserID: "cust-1", Status: domain.SuppliesPending})
	incidents := newMockIncidents(&domain.Incident{ID: "i1", UserID: "cust-1", Status: domain.IncidentOpen})
	acts := &mockActivities{unread: 4}
	plans := &mockPlans{userPlans: []domain.UserPlan{{PlanID: "p1", IncludedWeightKg: 100}}}

	sum, err := newDashboard(orders, supplies, incidents, acts, plans).Summary(context.Background(), customer)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if sum.Role != domain.RoleUser || sum.ActiveOrders != 1 || sum.OrdersByStatus[domain.StatusCertified] != 1 {
		t.Errorf("unexpected order counts %+v", sum)
	}
	if sum.OpenIncidents != 1 || sum.PendingSupplies != 1 || sum.UnreadActivities != 4 {
		t.Errorf("unexpected counters %+v", sum)
	}
	if len(sum.PlanUsages) != 1 {
		t.Errorf("expected plan usage, got %+v", sum.PlanUsages)
	}
}

func TestDashboard_CustomerUsageWarning(t *testing.T) {
	orders := newMockOrders()
	orders.usageOrders = []domain.ServiceOrder{{
		ID: "o1", CustomerID: "cust-1", PlanID: strPtr("p1"), Status: domain.StatusTreated,
		Quantity: 120, Unit: "kg", CreatedAt: time.Now().UTC(),
	}}
	plans := &mockPlans{userPlans: []domain.UserPlan{
		{PlanID: "p1", IncludedWeightKg: 100, BillingCycle: domain.CycleMonthly},
		{PlanID: "p2", IncludedWeightKg: 100, BillingCycle: domain.CycleMonthly},
	}}

	sum, err := newDashboard(orders, newMockSupplies(), newMockIncidents(), &mockActivities{}, plans).Summary(context.Background(), customer)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if !sum.UsageWarning {
		t.Errorf("expected usage warning with one plan over its allowance, got %+v", sum.PlanUsages)
	}
}

func TestDashboard_AdminCached(t *testing.T) {
	orders := newMockOrders(&domain.ServiceOrder{ID: "o1", CustomerID: "cust-1", Status: domain.StatusPlanned})
	svc := newDashboard(orders, newMockSupplies(), newMockIncidents(), &mockActivities{}, &mockPlans{})
	ctx := context.Background()

	first, err := svc.Summary(ctx, admin)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if first.UnassignedOrders != 1 {
		t.Errorf("expected one unassigned order, got %d", first.UnassignedOrders)
	}
	calls := len(orders.filters)

	if _, err := svc.Summary(ctx, admin); err != nil {
		t.Fatalf("summary: %v", err)
	}
	if len(orders.filters) != calls {
		t.Errorf("expected cached admin summary, store called %d more times", len(orders.filters)-calls)
	}
}

func TestDashboard_FailsWhenAStoreFails(t *testing.T) {
	orders := newMockOrders()
	orders.err = errors.New("boom")
	svc := newDashboard(orders, newMockSupplies(), newMockIncidents(), &mockActivities{}, &mockPlans{})

	if _, err := svc.Summary(context.Background(), operator); err == nil {
		t.Fatal("expected error, got nil")
	}
}
