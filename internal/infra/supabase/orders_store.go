package supabase

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/trabamex/mir-bff-go/internal/domain"
	"github.com/trabamex/mir-bff-go/internal/lifecycle"
)

// ============================================================
// Service orders: CRUD via PostgREST
// ============================================================

func (c *Client) CreateOrder(ctx context.Context, o *domain.ServiceOrder) (*domain.ServiceOrder, error) {
	row := map[string]any{
		"customer_id":    o.CustomerID,
		"status":         o.Status,
		"waste_type":     o.WasteType,
		"quantity":       o.Quantity,
		"unit":           o.Unit,
		"pickup_address": o.PickupAddress,
		"scheduled_date": o.ScheduledDate,
		"notes":          o.Notes,
	}
	if o.PlanID != nil {
		row["plan_id"] = *o.PlanID
	}

	created, err := insertOne[domain.ServiceOrder](ctx, c, "CreateOrder", "service_orders", row)
	if err != nil {
		return nil, err
	}
	c.logger.Info("supabase: service order created",
		zap.String("order_id", created.ID),
		zap.String("customer_id", created.CustomerID),
	)
	return created, nil
}

func (c *Client) GetOrder(ctx context.Context, orderID string) (*domain.ServiceOrder, error) {
	return selectOne[domain.ServiceOrder](ctx, c, "GetOrder", "service order", orderID,
		from("service_orders").eq("id", orderID))
}

func (c *Client) ListOrders(ctx context.Context, f domain.OrderFilter) ([]domain.ServiceOrder, error) {
	q := from("service_orders").order("created_at.desc").page(f.Page, f.PageSize)
	if f.CustomerID != "" {
		q.eq("customer_id", f.CustomerID)
	}
	if f.OperatorID != "" {
		q.eq("operator_id", f.OperatorID)
	}
	if len(f.Statuses) > 0 {
		q.in("status", toStrings(f.Statuses))
	}
	if f.Unassigned {
		q.isNull("operator_id")
		if len(f.Statuses) == 0 {
			q.in("status", toStrings(lifecycle.ActiveOrderStatuses()))
		}
	}
	return selectRows[domain.ServiceOrder](ctx, c, "ListOrders", q)
}

// ListUsageOrders returns the customer's orders in a usage-counting status
// created at or after since.
func (c *Client) ListUsageOrders(ctx context.Context, customerID string, since time.Time) ([]domain.ServiceOrder, error) {
	q := from("service_orders").
		sel("id,customer_id,status,quantity,unit,plan_id,created_at").
		eq("customer_id", customerID).
		in("status", toStrings(lifecycle.UsageStatuses())).
		gte("created_at", since)
	return selectRows[domain.ServiceOrder](ctx, c, "ListUsageOrders", q)
}

// UpdateOrderStatus applies updates only while the row still has status current.
func (c *Client) UpdateOrderStatus(ctx context.Context, orderID string, current domain.OrderStatus, updates map[string]any) (*domain.ServiceOrder, error) {
	q := from("service_orders").eq("id", orderID).eq("status", string(current))
	rows, err := patchRows[domain.ServiceOrder](ctx, c, "UpdateOrderStatus", q, withUpdatedAt(updates))
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &domain.ErrConflict{Message: "service order " + orderID + " changed status concurrently"}
	}
	return &rows[0], nil
}

// AssignOrderOperator sets operator_id. With onlyIfUnassigned the write only
// matches rows that still have no operator.
func (c *Client) AssignOrderOperator(ctx context.Context, orderID, operatorID string, onlyIfUnassigned bool) (*domain.ServiceOrder, error) {
	q := from("service_orders").eq("id", orderID)
	if onlyIfUnassigned {
		q.isNull("operator_id")
	}
	rows, err := patchRows[domain.ServiceOrder](ctx, c, "AssignOrderOperator", q, withUpdatedAt(map[string]any{"operator_id": operatorID}))
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &domain.ErrConflict{Message: "service order " + orderID + " is already assigned"}
	}
	c.logger.Info("supabase: operator assigned",
		zap.String("order_id", orderID),
		zap.String("operator_id", operatorID),
	)
	return &rows[0], nil
}

func withUpdatedAt(updates map[string]any) map[string]any {
	out := make(map[string]any, len(updates)+1)
	for k, v := range updates {
		out[k] = v
	}
	out["updated_at"] = time.Now().UTC().Format(time.RFC3339)
	return out
}
