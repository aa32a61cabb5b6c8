package service_test

import (
	"context"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/trabamex/mir-bff-go/internal/domain"
)

// --- Mocks ---

type mockProfiles struct {
	mu        sync.Mutex
	profiles  map[string]*domain.Profile
	created   []*domain.Profile
	createErr error
	updates   map[string]any
	gets      int
}

func newMockProfiles(ps ...*domain.Profile) *mockProfiles {
	m := &mockProfiles{profiles: map[string]*domain.Profile{}}
	for _, p := range ps {
		m.profiles[p.ID] = p
	}
	return m
}

func (m *mockProfiles) GetProfile(_ context.Context, id string) (*domain.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	p, ok := m.profiles[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "profile", ID: id}
	}
	cp := *p
	return &cp, nil
}

func (m *mockProfiles) ListProfiles(_ context.Context, role domain.Role, _, _ int) ([]domain.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Profile
	for _, p := range m.profiles {
		if role == "" || p.Role == role {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *mockProfiles) CreateProfile(_ context.Context, p *domain.Profile) (*domain.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.created = append(m.created, p)
	m.profiles[p.ID] = p
	return p, nil
}

func (m *mockProfiles) UpdateProfile(_ context.Context, id string, updates map[string]any) (*domain.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "profile", ID: id}
	}
	m.updates = updates
	if v, ok := updates["full_name"].(string); ok {
		p.FullName = v
	}
	if v, ok := updates["company_name"].(string); ok {
		p.CompanyName = v
	}
	if v, ok := updates["phone"].(string); ok {
		p.Phone = v
	}
	cp := *p
	return &cp, nil
}

type mockOrders struct {
	mu          sync.Mutex
	orders      map[string]*domain.ServiceOrder
	usageOrders []domain.ServiceOrder
	usageSince  time.Time
	filters     []domain.OrderFilter
	updates     map[string]any
	conflict    bool
	err         error
	nextID      int
}

func newMockOrders(os ...*domain.ServiceOrder) *mockOrders {
	m := &mockOrders{orders: map[string]*domain.ServiceOrder{}}
	for _, o := range os {
		m.orders[o.ID] = o
	}
	return m
}

func (m *mockOrders) CreateOrder(_ context.Context, o *domain.ServiceOrder) (*domain.ServiceOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	m.nextID++
	cp := *o
	cp.ID = "order-new-" + strconv.Itoa(m.nextID)
	cp.CreatedAt = time.Now().UTC()
	m.orders[cp.ID] = &cp
	return &cp, nil
}

func (m *mockOrders) GetOrder(_ context.Context, id string) (*domain.ServiceOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "service order", ID: id}
	}
	cp := *o
	return &cp, nil
}

func (m *mockOrders) ListOrders(_ context.Context, f domain.OrderFilter) ([]domain.ServiceOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.filters = append(m.filters, f)
	if m.err != nil {
		return nil, m.err
	}
	var out []domain.ServiceOrder
	for _, o := range m.orders {
		if f.CustomerID != "" && o.CustomerID != f.CustomerID {
			continue
		}
		if f.OperatorID != "" && !o.AssignedTo(f.OperatorID) {
			continue
		}
		if f.Unassigned && (o.HasOperator() || o.Status == domain.StatusCancelled || o.Status == domain.StatusCertified) {
			continue
		}
		out = append(out, *o)
	}
	return out, nil
}

func (m *mockOrders) ListUsageOrders(_ context.Context, _ string, since time.Time) ([]domain.ServiceOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.usageSince = since
	return m.usageOrders, nil
}

func (m *mockOrders) UpdateOrderStatus(_ context.Context, id string, from domain.OrderStatus, updates map[string]any) (*domain.ServiceOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "service order", ID: id}
	}
	if m.conflict || o.Status != from {
		return nil, &domain.ErrConflict{Message: "changed concurrently"}
	}
	m.updates = updates
	if s, ok := updates["status"].(domain.OrderStatus); ok {
		o.Status = s
	}
	if v, ok := updates["manifest_url"].(string); ok {
		o.ManifestURL = &v
	}
	if v, ok := updates["certificate_url"].(string); ok {
		o.CertificateURL = &v
	}
	if v, ok := updates["quantity"].(float64); ok {
		o.Quantity = v
	}
	cp := *o
	return &cp, nil
}

func (m *mockOrders) AssignOrderOperator(_ context.Context, id, operatorID string, onlyIfUnassigned bool) (*domain.ServiceOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "service order", ID: id}
	}
	if onlyIfUnassigned && o.HasOperator() {
		return nil, &domain.ErrConflict{Message: "already assigned"}
	}
	op := operatorID
	o.OperatorID = &op
	cp := *o
	return &cp, nil
}

type mockPlans struct {
	plans     map[string]*domain.SubscriptionPlan
	userPlans []domain.UserPlan
	created   []string
	calls     int
}

func (m *mockPlans) ListPlans(context.Context) ([]domain.SubscriptionPlan, error) {
	m.calls++
	var out []domain.SubscriptionPlan
	for _, p := range m.plans {
		out = append(out, *p)
	}
	return out, nil
}

func (m *mockPlans) GetPlan(_ context.Context, id string) (*domain.SubscriptionPlan, error) {
	p, ok := m.plans[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "subscription plan", ID: id}
	}
	return p, nil
}

func (m *mockPlans) GetUserPlans(context.Context, string) ([]domain.UserPlan, error) {
	return m.userPlans, nil
}

func (m *mockPlans) CreateUserPlan(_ context.Context, _ string, planID string, cycle domain.BillingCycle) (*domain.UserPlan, error) {
	m.created = append(m.created, planID)
	return &domain.UserPlan{UserPlanID: "up-1", PlanID: planID, BillingCycle: cycle, Status: "active"}, nil
}

type mockSupplies struct {
	mu       sync.Mutex
	requests map[string]*domain.SuppliesRequest
	itemsErr error
	deleted  []string
	calls    int
}

func newMockSupplies(rs ...*domain.SuppliesRequest) *mockSupplies {
	m := &mockSupplies{requests: map[string]*domain.SuppliesRequest{}}
	for _, r := range rs {
		m.requests[r.ID] = r
	}
	return m
}

func (m *mockSupplies) CreateSuppliesRequest(_ context.Context, r *domain.SuppliesRequest) (*domain.SuppliesRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	cp := *r
	cp.ID = "req-new"
	m.requests[cp.ID] = &cp
	return &cp, nil
}

func (m *mockSupplies) CreateSuppliesItems(_ context.Context, requestID string, items []domain.SuppliesRequestItem) ([]domain.SuppliesRequestItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.itemsErr != nil {
		return nil, m.itemsErr
	}
	out := make([]domain.SuppliesRequestItem, len(items))
	for i, it := range items {
		it.RequestID = requestID
		out[i] = it
	}
	return out, nil
}

func (m *mockSupplies) DeleteSuppliesRequest(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.deleted = append(m.deleted, id)
	delete(m.requests, id)
	return nil
}

func (m *mockSupplies) GetSuppliesRequest(_ context.Context, id string) (*domain.SuppliesRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	r, ok := m.requests[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "supplies request", ID: id}
	}
	cp := *r
	return &cp, nil
}

func (m *mockSupplies) ListSuppliesRequests(_ context.Context, f domain.SuppliesFilter) ([]domain.SuppliesRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	var out []domain.SuppliesRequest
	for _, r := range m.requests {
		if f.UserID != "" && r.UserID != f.UserID {
			continue
		}
		if f.Unassigned && r.HasOperator() {
			continue
		}
		out = append(out, *r)
	}
	return out, nil
}

func (m *mockSupplies) UpdateSuppliesStatus(_ context.Context, id string, from, to domain.SuppliesStatus) (*domain.SuppliesRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	r, ok := m.requests[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "supplies request", ID: id}
	}
	if r.Status != from {
		return nil, &domain.ErrConflict{Message: "changed concurrently"}
	}
	r.Status = to
	cp := *r
	cp.Items = nil
	return &cp, nil
}

func (m *mockSupplies) AssignSuppliesOperator(_ context.Context, id, operatorID string, onlyIfUnassigned bool) (*domain.SuppliesRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	r, ok := m.requests[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "supplies request", ID: id}
	}
	if onlyIfUnassigned && r.HasOperator() {
		return nil, &domain.ErrConflict{Message: "already assigned"}
	}
	op := operatorID
	r.OperatorID = &op
	cp := *r
	return &cp, nil
}

type mockIncidents struct {
	mu        sync.Mutex
	incidents map[string]*domain.Incident
	messages  []domain.IncidentMessage
	updates   map[string]any
}

func newMockIncidents(is ...*domain.Incident) *mockIncidents {
	m := &mockIncidents{incidents: map[string]*domain.Incident{}}
	for _, i := range is {
		m.incidents[i.ID] = i
	}
	return m
}

func (m *mockIncidents) CreateIncident(_ context.Context, inc *domain.Incident) (*domain.Incident, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *inc
	cp.ID = "inc-new"
	m.incidents[cp.ID] = &cp
	return &cp, nil
}

func (m *mockIncidents) GetIncident(_ context.Context, id string) (*domain.Incident, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inc, ok := m.incidents[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "incident", ID: id}
	}
	cp := *inc
	return &cp, nil
}

func (m *mockIncidents) ListIncidents(_ context.Context, f domain.IncidentFilter) ([]domain.Incident, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Incident
	for _, inc := range m.incidents {
		if f.UserID != "" && inc.UserID != f.UserID {
			continue
		}
		out = append(out, *inc)
	}
	return out, nil
}

func (m *mockIncidents) UpdateIncidentStatus(_ context.Context, id string, from domain.IncidentStatus, updates map[string]any) (*domain.Incident, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inc, ok := m.incidents[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "incident", ID: id}
	}
	if inc.Status != from {
		return nil, &domain.ErrConflict{Message: "changed concurrently"}
	}
	m.updates = updates
	inc.Status = updates["status"].(domain.IncidentStatus)
	cp := *inc
	return &cp, nil
}

func (m *mockIncidents) ListMessages(_ context.Context, id string) ([]domain.IncidentMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.IncidentMessage
	for _, msg := range m.messages {
		if msg.IncidentID == id {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (m *mockIncidents) CreateMessage(_ context.Context, msg *domain.IncidentMessage) (*domain.IncidentMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *msg
	cp.ID = "msg-new"
	cp.CreatedAt = time.Now().UTC()
	m.messages = append(m.messages, cp)
	return &cp, nil
}

type mockActivities struct {
	mu      sync.Mutex
	created []domain.UserActivity
	unread  int
	err     error
}

func (m *mockActivities) CreateActivity(_ context.Context, a *domain.UserActivity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.created = append(m.created, *a)
	return nil
}

func (m *mockActivities) ListActivities(_ context.Context, f domain.ActivityFilter) ([]domain.UserActivity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.UserActivity
	for _, a := range m.created {
		if a.UserID == f.UserID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *mockActivities) CountUnread(context.Context, string) (int, error) {
	return m.unread, nil
}

func (m *mockActivities) MarkRead(context.Context, string, string) error { return m.err }

func (m *mockActivities) MarkAllRead(context.Context, string) error { return m.err }

func (m *mockActivities) ofType(activityType string) []domain.UserActivity {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.UserActivity
	for _, a := range m.created {
		if a.ActivityType == activityType {
			out = append(out, a)
		}
	}
	return out
}

type mockGateway struct {
	tokens    *domain.AuthTokens
	err       error
	metadata  map[string]any
	signedOut string
}

func (m *mockGateway) SignUp(_ context.Context, _, _ string, metadata map[string]any) (*domain.AuthTokens, error) {
	m.metadata = metadata
	return m.tokens, m.err
}

func (m *mockGateway) SignIn(context.Context, string, string) (*domain.AuthTokens, error) {
	return m.tokens, m.err
}

func (m *mockGateway) Refresh(context.Context, string) (*domain.AuthTokens, error) {
	return m.tokens, m.err
}

func (m *mockGateway) SignOut(_ context.Context, accessToken string) error {
	m.signedOut = accessToken
	return nil
}

type mockInvites struct {
	resp *domain.InviteUserResponse
	got  *domain.InviteUserRequest
	err  error
}

func (m *mockInvites) InviteUser(_ context.Context, req *domain.InviteUserRequest) (*domain.InviteUserResponse, error) {
	m.got = req
	return m.resp, m.err
}

type mockEvents struct {
	mu       sync.Mutex
	orders   []domain.OrderEvent
	supplies []domain.SuppliesEvent
	err      error
}

func (m *mockEvents) PublishOrderEvent(_ context.Context, evt domain.OrderEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders = append(m.orders, evt)
	return m.err
}

func (m *mockEvents) PublishSuppliesEvent(_ context.Context, evt domain.SuppliesEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.supplies = append(m.supplies, evt)
	return m.err
}

func (m *mockEvents) Close() {}

type mockBroadcaster struct {
	published []domain.IncidentMessage
}

func (m *mockBroadcaster) Publish(_ string, msg domain.IncidentMessage) int {
	m.published = append(m.published, msg)
	return 1
}

type mockMailer struct {
	mu   sync.Mutex
	sent []domain.ContactRequest
	err  error
}

func (m *mockMailer) SendContact(_ context.Context, req *domain.ContactRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, *req)
	return m.err
}

type mockChecklist struct {
	saved *domain.Checklist
}

func (m *mockChecklist) GetChecklist(context.Context, string) (*domain.Checklist, error) {
	if m.saved == nil {
		return &domain.Checklist{}, nil
	}
	return m.saved, nil
}

func (m *mockChecklist) SaveChecklist(_ context.Context, _ string, c *domain.Checklist) error {
	m.saved = c
	return nil
}

type mockExporter struct {
	exported []domain.ServiceOrder
}

func (m *mockExporter) ExportOrders(w io.Writer, orders []domain.ServiceOrder) error {
	m.exported = orders
	_, err := io.WriteString(w, "sheet")
	return err
}

func (m *mockExporter) ContentType() string { return "application/octet-stream" }
func (m *mockExporter) Extension() string   { return "xlsx" }
