// Package lifecycle holds the status state machines of service orders,
// supply requests and incidents. Every status write goes through these
// checks; no other package decides whether a move is legal.
package lifecycle

import (
	"fmt"

	"github.com/trabamex/mir-bff-go/internal/domain"
)

// orderSequence is the forward order of the service-order vocabulary.
var orderSequence = []domain.OrderStatus{
	domain.StatusPlanned,
	domain.StatusEnRouteToPickup,
	domain.StatusOnSitePickup,
	domain.StatusCollected,
	domain.StatusEnRouteToDepot,
	domain.StatusAtDepot,
	domain.StatusWeighedVerified,
	domain.StatusEnRouteToTreatment,
	domain.StatusInTreatment,
	domain.StatusTreated,
	domain.StatusCertified,
}

// State machine for service-order status transitions. Moves are one step
// forward; cancellation is possible until the waste leaves the depot.
var validOrderTransitions = map[domain.OrderStatus][]domain.OrderStatus{
	domain.StatusPlanned:            {domain.StatusEnRouteToPickup, domain.StatusCancelled},
	domain.StatusEnRouteToPickup:    {domain.StatusOnSitePickup, domain.StatusCancelled},
	domain.StatusOnSitePickup:       {domain.StatusCollected, domain.StatusCancelled},
	domain.StatusCollected:          {domain.StatusEnRouteToDepot, domain.StatusCancelled},
	domain.StatusEnRouteToDepot:     {domain.StatusAtDepot, domain.StatusCancelled},
	domain.StatusAtDepot:            {domain.StatusWeighedVerified, domain.StatusCancelled},
	domain.StatusWeighedVerified:    {domain.StatusEnRouteToTreatment, domain.StatusCancelled},
	domain.StatusEnRouteToTreatment: {domain.StatusInTreatment},
	domain.StatusInTreatment:        {domain.StatusTreated},
	domain.StatusTreated:            {domain.StatusCertified},
	domain.StatusCertified:          {}, // terminal
	domain.StatusCancelled:          {}, // terminal
}

var orderProgress = map[domain.OrderStatus]int{
	domain.StatusPlanned:            0,
	domain.StatusEnRouteToPickup:    10,
	domain.StatusOnSitePickup:       20,
	domain.StatusCollected:          30,
	domain.StatusEnRouteToDepot:     40,
	domain.StatusAtDepot:            50,
	domain.StatusWeighedVerified:    60,
	domain.StatusEnRouteToTreatment: 70,
	domain.StatusInTreatment:        80,
	domain.StatusTreated:            90,
	domain.StatusCertified:          100,
	domain.StatusCancelled:          0,
}

// KnownOrderStatus reports whether s belongs to the writable vocabulary.
func KnownOrderStatus(s domain.OrderStatus) bool {
	_, ok := validOrderTransitions[s]
	return ok
}

// Progress returns the display percentage for a status. Unknown is 0.
func Progress(s domain.OrderStatus) int {
	if s == domain.StatusCompletedLegacy {
		return 100
	}
	return orderProgress[s]
}

// IsTerminalOrder reports whether no further transitions exist.
func IsTerminalOrder(s domain.OrderStatus) bool {
	next, ok := validOrderTransitions[s]
	return !ok || len(next) == 0
}

// CountsTowardUsage reports whether an order in this status consumes plan allowance.
func CountsTowardUsage(s domain.OrderStatus) bool {
	switch s {
	case domain.StatusTreated, domain.StatusCertified, domain.StatusCompletedLegacy:
		return true
	}
	return false
}

// UsageStatuses lists the statuses summed by plan-usage accounting.
func UsageStatuses() []domain.OrderStatus {
	return []domain.OrderStatus{domain.StatusTreated, domain.StatusCertified, domain.StatusCompletedLegacy}
}

// ActiveOrderStatuses lists the non-terminal statuses.
func ActiveOrderStatuses() []domain.OrderStatus {
	out := make([]domain.OrderStatus, 0, len(orderSequence))
	for _, s := range orderSequence {
		if !IsTerminalOrder(s) {
			out = append(out, s)
		}
	}
	return out
}

// ValidateOrderTransition checks the move against the state machine only.
func ValidateOrderTransition(from, to domain.OrderStatus) error {
	allowed, exists := validOrderTransitions[from]
	if !exists {
		return &domain.ErrInvalidTransition{Entity: "order", From: string(from), To: string(to), Reason: "unknown current status"}
	}
	for _, s := range allowed {
		if s == to {
			return nil
		}
	}
	if from == to {
		return &domain.ErrInvalidTransition{Entity: "order", From: string(from), To: string(to), Reason: "order already in this status"}
	}
	return &domain.ErrInvalidTransition{Entity: "order", From: string(from), To: string(to)}
}

// AuthorizeOrderTransition checks whether the actor's role may perform the move.
func AuthorizeOrderTransition(actor domain.Actor, order *domain.ServiceOrder, to domain.OrderStatus) error {
	switch actor.Role {
	case domain.RoleAdmin:
		return nil
	case domain.RoleOperator:
		if !order.AssignedTo(actor.UserID) {
			return &domain.ErrForbidden{Action: "order is not assigned to this operator"}
		}
		if to == domain.StatusCertified {
			return &domain.ErrForbidden{Action: "only admins certify orders"}
		}
		if to == domain.StatusCancelled {
			return &domain.ErrForbidden{Action: "operators cannot cancel orders"}
		}
		return nil
	case domain.RoleUser:
		if !actor.Is(order.CustomerID) {
			return &domain.ErrForbidden{Action: "order belongs to another customer"}
		}
		if to != domain.StatusCancelled || order.Status != domain.StatusPlanned {
			return &domain.ErrForbidden{Action: "customers may only cancel planned orders"}
		}
		return nil
	}
	return &domain.ErrForbidden{Action: fmt.Sprintf("unknown role %q", actor.Role)}
}

// AllowedOrderTransitionsFor combines the state machine with the role guard.
func AllowedOrderTransitionsFor(actor domain.Actor, order *domain.ServiceOrder) []domain.OrderStatus {
	out := []domain.OrderStatus{}
	for _, to := range validOrderTransitions[order.Status] {
		if AuthorizeOrderTransition(actor, order, to) == nil {
			out = append(out, to)
		}
	}
	return out
}

// OrderRules lists what an order must carry before entering a status.
type OrderRules struct {
	RequiresOperator    bool
	RequiresManifest    bool
	RequiresQuantity    bool
	RequiresCertificate bool
}

var orderRules = map[domain.OrderStatus]OrderRules{
	domain.StatusEnRouteToPickup:    {RequiresOperator: true},
	domain.StatusOnSitePickup:       {RequiresOperator: true},
	domain.StatusCollected:          {RequiresOperator: true},
	domain.StatusEnRouteToDepot:     {RequiresOperator: true, RequiresManifest: true},
	domain.StatusAtDepot:            {RequiresOperator: true, RequiresManifest: true},
	domain.StatusWeighedVerified:    {RequiresOperator: true, RequiresManifest: true, RequiresQuantity: true},
	domain.StatusEnRouteToTreatment: {RequiresOperator: true, RequiresManifest: true, RequiresQuantity: true},
	domain.StatusInTreatment:        {RequiresOperator: true, RequiresManifest: true, RequiresQuantity: true},
	domain.StatusTreated:            {RequiresOperator: true, RequiresManifest: true, RequiresQuantity: true},
	domain.StatusCertified:          {RequiresOperator: true, RequiresManifest: true, RequiresQuantity: true, RequiresCertificate: true},
}

// ValidateOrderRules checks the order, with the request's attachments
// applied, against the requirements of the target status.
func ValidateOrderRules(order *domain.ServiceOrder, req *domain.TransitionOrderRequest) error {
	rules, exists := orderRules[req.Status]
	if !exists {
		return nil
	}

	reject := func(reason string) error {
		return &domain.ErrInvalidTransition{Entity: "order", From: string(order.Status), To: string(req.Status), Reason: reason}
	}

	if rules.RequiresOperator && !order.HasOperator() {
		return reject("an operator must be assigned")
	}
	if rules.RequiresManifest && !hasURL(order.ManifestURL) && !hasURL(req.ManifestURL) {
		return reject("a waste manifest is required")
	}
	if rules.RequiresQuantity {
		qty := order.Quantity
		if req.VerifiedQuantity != nil {
			qty = *req.VerifiedQuantity
		}
		if qty <= 0 {
			return reject("a verified quantity greater than zero is required")
		}
	}
	if rules.RequiresCertificate && !hasURL(order.CertificateURL) && !hasURL(req.CertificateURL) {
		return reject("a treatment certificate is required")
	}
	return nil
}

func hasURL(s *string) bool {
	return s != nil && *s != ""
}
