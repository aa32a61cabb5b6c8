package supabase

import (
	"context"

	"go.uber.org/zap"

	"github.com/trabamex/mir-bff-go/internal/domain"
)

const suppliesWithItems = "*,items:supplies_request_items(*)"

func (c *Client) CreateSuppliesRequest(ctx context.Context, r *domain.SuppliesRequest) (*domain.SuppliesRequest, error) {
	created, err := insertOne[domain.SuppliesRequest](ctx, c, "CreateSuppliesRequest", "supplies_requests", map[string]any{
		"user_id":          r.UserID,
		"status":           r.Status,
		"notes":            r.Notes,
		"delivery_address": r.DeliveryAddress,
	})
	if err != nil {
		return nil, err
	}
	c.logger.Info("supabase: supplies request created", zap.String("request_id", created.ID))
	return created, nil
}

// CreateSuppliesItems inserts all line items of a request in one call.
func (c *Client) CreateSuppliesItems(ctx context.Context, requestID string, items []domain.SuppliesRequestItem) ([]domain.SuppliesRequestItem, error) {
	rows := make([]map[string]any, 0, len(items))
	for _, it := range items {
		rows = append(rows, map[string]any{
			"request_id":  requestID,
			"supply_name": it.SupplyName,
			"size":        it.Size,
			"quantity":    it.Quantity,
		})
	}
	return insertRows[domain.SuppliesRequestItem](ctx, c, "CreateSuppliesItems", "supplies_request_items", rows)
}

func (c *Client) DeleteSuppliesRequest(ctx context.Context, requestID string) error {
	return deleteRows(ctx, c, "DeleteSuppliesRequest", from("supplies_requests").eq("id", requestID))
}

func (c *Client) GetSuppliesRequest(ctx context.Context, requestID string) (*domain.SuppliesRequest, error) {
	return selectOne[domain.SuppliesRequest](ctx, c, "GetSuppliesRequest", "supplies request", requestID,
		from("supplies_requests").sel(suppliesWithItems).eq("id", requestID))
}

func (c *Client) ListSuppliesRequests(ctx context.Context, f domain.SuppliesFilter) ([]domain.SuppliesRequest, error) {
	q := from("supplies_requests").sel(suppliesWithItems).order("created_at.desc").page(f.Page, f.PageSize)
	if f.UserID != "" {
		q.eq("user_id", f.UserID)
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
			q.in("status", []string{string(domain.SuppliesPending), string(domain.SuppliesApproved)})
		}
	}
	return selectRows[domain.SuppliesRequest](ctx, c, "ListSuppliesRequests", q)
}

func (c *Client) UpdateSuppliesStatus(ctx context.Context, requestID string, current, next domain.SuppliesStatus) (*domain.SuppliesRequest, error) {
	q := from("supplies_requests").eq("id", requestID).eq("status", string(current))
	rows, err := patchRows[domain.SuppliesRequest](ctx, c, "UpdateSuppliesStatus", q, withUpdatedAt(map[string]any{"status": next}))
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &domain.ErrConflict{Message: "supplies request " + requestID + " changed status concurrently"}
	}
	return &rows[0], nil
}

func (c *Client) AssignSuppliesOperator(ctx context.Context, requestID, operatorID string, onlyIfUnassigned bool) (*domain.SuppliesRequest, error) {
	q := from("supplies_requests").eq("id", requestID)
	if onlyIfUnassigned {
		q.isNull("operator_id")
	}
	rows, err := patchRows[domain.SuppliesRequest](ctx, c, "AssignSuppliesOperator", q, withUpdatedAt(map[string]any{"operator_id": operatorID}))
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &domain.ErrConflict{Message: "supplies request " + requestID + " is already assigned"}
	}
	return &rows[0], nil
}
