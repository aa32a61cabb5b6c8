package lifecycle

import (
	"strings"

	"github.com/trabamex/mir-bff-go/internal/domain"
)

var validSuppliesTransitions = map[domain.SuppliesStatus][]domain.SuppliesStatus{
	domain.SuppliesPending:   {domain.SuppliesApproved, domain.SuppliesCancelled},
	domain.SuppliesApproved:  {domain.SuppliesDelivered, domain.SuppliesCancelled},
	domain.SuppliesDelivered: {}, // terminal
	domain.SuppliesCancelled: {}, // terminal
}

// ValidateSuppliesTransition checks the move against the state machine.
func ValidateSuppliesTransition(from, to domain.SuppliesStatus) error {
	allowed, exists := validSuppliesTransitions[from]
	if !exists {
		return &domain.ErrInvalidTransition{Entity: "supplies request", From: string(from), To: string(to), Reason: "unknown current status"}
	}
	for _, s := range allowed {
		if s == to {
			return nil
		}
	}
	return &domain.ErrInvalidTransition{Entity: "supplies request", From: string(from), To: string(to)}
}

// AuthorizeSuppliesTransition checks role permissions for a supply-request move.
func AuthorizeSuppliesTransition(actor domain.Actor, req *domain.SuppliesRequest, to domain.SuppliesStatus) error {
	switch actor.Role {
	case domain.RoleAdmin:
		return nil
	case domain.RoleOperator:
		if req.OperatorID == nil || *req.OperatorID != actor.UserID {
			return &domain.ErrForbidden{Action: "supplies request is not assigned to this operator"}
		}
		if to != domain.SuppliesDelivered {
			return &domain.ErrForbidden{Action: "operators may only mark supplies as delivered"}
		}
		return nil
	case domain.RoleUser:
		if !actor.Is(req.UserID) {
			return &domain.ErrForbidden{Action: "supplies request belongs to another customer"}
		}
		if to != domain.SuppliesCancelled || req.Status != domain.SuppliesPending {
			return &domain.ErrForbidden{Action: "customers may only cancel pending requests"}
		}
		return nil
	}
	return &domain.ErrForbidden{Action: "unknown role"}
}

// ValidateSuppliesRules checks preconditions of the target status.
func ValidateSuppliesRules(req *domain.SuppliesRequest, to domain.SuppliesStatus) error {
	if to == domain.SuppliesDelivered && !req.HasOperator() {
		return &domain.ErrInvalidTransition{
			Entity: "supplies request", From: string(req.Status), To: string(to),
			Reason: "an operator must be assigned before delivery",
		}
	}
	return nil
}

// ValidItems drops line items without a name or with a non-positive
// quantity and trims names. A request needs at least one surviving item.
func ValidItems(items []domain.SuppliesRequestItem) []domain.SuppliesRequestItem {
	out := make([]domain.SuppliesRequestItem, 0, len(items))
	for _, it := range items {
		it.SupplyName = strings.TrimSpace(it.SupplyName)
		it.Size = strings.TrimSpace(it.Size)
		if it.SupplyName == "" || it.Quantity <= 0 {
			continue
		}
		out = append(out, it)
	}
	return out
}

// IsOpenSupplies reports whether the request still awaits delivery.
func IsOpenSupplies(s domain.SuppliesStatus) bool {
	return s == domain.SuppliesPending || s == domain.SuppliesApproved
}
