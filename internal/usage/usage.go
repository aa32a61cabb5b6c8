// Package usage computes how much of a subscription plan's waste allowance
// a customer has consumed in the plan's current period.
package usage

import (
	"math"
	"strings"
	"time"

	"github.com/trabamex/mir-bff-go/internal/domain"
	"github.com/trabamex/mir-bff-go/internal/lifecycle"
)

// Period returns the [start, end) window of the billing cycle containing now (UTC).
// Unknown cycles are treated as monthly.
func Period(cycle domain.BillingCycle, now time.Time) (time.Time, time.Time) {
	now = now.UTC()
	if cycle == domain.CycleAnnual {
		start := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(1, 0, 0)
	}
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

// ToKg normalizes an order quantity to kilograms.
func ToKg(quantity float64, unit string) float64 {
	switch strings.ToLower(strings.TrimSpace(unit)) {
	case domain.UnitTon, domain.UnitT, "tons", "tonelada", "toneladas":
		return quantity * 1000
	default:
		return quantity
	}
}

// Calculate returns the usage of one plan. Orders not billed to the plan,
// outside the period, or in a non-consuming status are ignored.
func Calculate(plan domain.UserPlan, orders []domain.ServiceOrder, now time.Time) domain.PlanUsage {
	start, end := Period(plan.BillingCycle, now)

	u := domain.PlanUsage{
		PlanID:       plan.PlanID,
		PlanName:     plan.Name,
		BillingCycle: plan.BillingCycle,
		PeriodStart:  start,
		PeriodEnd:    end,
		LimitKg:      plan.IncludedWeightKg,
	}

	for i := range orders {
		o := &orders[i]
		if o.PlanID == nil || *o.PlanID != plan.PlanID {
			continue
		}
		if !lifecycle.CountsTowardUsage(o.Status) {
			continue
		}
		if o.CreatedAt.Before(start) || !o.CreatedAt.Before(end) {
			continue
		}
		u.UsedKg += ToKg(o.Quantity, o.Unit)
		u.OrderCount++
	}

	finish(&u)
	return u
}

// CalculateAll computes usage for each plan, grouping orders once.
func CalculateAll(plans []domain.UserPlan, orders []domain.ServiceOrder, now time.Time) []domain.PlanUsage {
	byPlan := make(map[string][]domain.ServiceOrder, len(plans))
	for _, o := range orders {
		if o.PlanID == nil {
			continue
		}
		byPlan[*o.PlanID] = append(byPlan[*o.PlanID], o)
	}

	out := make([]domain.PlanUsage, 0, len(plans))
	for _, p := range plans {
		out = append(out, Calculate(p, byPlan[p.PlanID], now))
	}
	return out
}

// AnyOverLimit reports whether one of the usages exceeds its allowance.
func AnyOverLimit(usages []domain.PlanUsage) bool {
	for _, u := range usages {
		if u.IsOverLimit {
			return true
		}
	}
	return false
}

func finish(u *domain.PlanUsage) {
	used := u.UsedKg
	u.UsedKg = round2(used)
	if u.LimitKg <= 0 {
		// No allowance configured: nothing to measure against.
		u.RawPercentage = 0
		u.Percentage = 0
		u.RemainingKg = 0
		u.IsOverLimit = false
		return
	}

	// The flag uses the exact sum; only the reported figures are rounded.
	u.IsOverLimit = used > u.LimitKg
	u.RawPercentage = round2(used / u.LimitKg * 100)
	u.Percentage = clamp(u.RawPercentage, 0, 100)
	u.RemainingKg = round2(math.Max(u.LimitKg-used, 0))
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
