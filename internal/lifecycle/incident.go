package lifecycle

import (
	"github.com/trabamex/mir-bff-go/internal/domain"
)

var validIncidentTransitions = map[domain.IncidentStatus][]domain.IncidentStatus{
	domain.IncidentOpen:       {domain.IncidentInProgress, domain.IncidentClosed},
	domain.IncidentInProgress: {domain.IncidentResolved},
	domain.IncidentResolved:   {domain.IncidentClosed, domain.IncidentInProgress}, // reopen
	domain.IncidentClosed:     {},                                                 // terminal
}

// ValidateIncidentTransition checks the move against the state machine.
func ValidateIncidentTransition(from, to domain.IncidentStatus) error {
	allowed, exists := validIncidentTransitions[from]
	if !exists {
		return &domain.ErrInvalidTransition{Entity: "incident", From: string(from), To: string(to), Reason: "unknown current status"}
	}
	for _, s := range allowed {
		if s == to {
			return nil
		}
	}
	return &domain.ErrInvalidTransition{Entity: "incident", From: string(from), To: string(to)}
}

// AuthorizeIncidentTransition lets staff move any incident; reporters may
// only close their own.
func AuthorizeIncidentTransition(actor domain.Actor, inc *domain.Incident, to domain.IncidentStatus) error {
	if actor.Role.IsStaff() {
		return nil
	}
	if !actor.Is(inc.UserID) {
		return &domain.ErrForbidden{Action: "incident belongs to another user"}
	}
	if to != domain.IncidentClosed {
		return &domain.ErrForbidden{Action: "reporters may only close their incidents"}
	}
	return nil
}

// CanAccessIncident is true for staff and for the reporter.
func CanAccessIncident(actor domain.Actor, inc *domain.Incident) bool {
	return actor.Role.IsStaff() || actor.Is(inc.UserID)
}

// CanPostMessage rejects threads of closed incidents.
func CanPostMessage(inc *domain.Incident) error {
	if inc.Status == domain.IncidentClosed {
		return &domain.ErrInvalidTransition{Entity: "incident", From: string(inc.Status), To: string(inc.Status), Reason: "thread is closed"}
	}
	return nil
}

// IsOpenIncident reports whether the incident still needs attention.
func IsOpenIncident(s domain.IncidentStatus) bool {
	return s == domain.IncidentOpen || s == domain.IncidentInProgress
}
