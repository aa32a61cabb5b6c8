package supabase

import (
	"context"

	"go.uber.org/zap"

	"github.com/trabamex/mir-bff-go/internal/domain"
)

func (c *Client) CreateIncident(ctx context.Context, inc *domain.Incident) (*domain.Incident, error) {
	row := map[string]any{
		"user_id":     inc.UserID,
		"title":       inc.Title,
		"description": inc.Description,
		"status":      inc.Status,
		"priority":    inc.Priority,
		"type":        inc.Type,
	}
	if inc.OrderID != nil {
		row["order_id"] = *inc.OrderID
	}
	created, err := insertOne[domain.Incident](ctx, c, "CreateIncident", "incidents", row)
	if err != nil {
		return nil, err
	}
	c.logger.Info("supabase: incident created", zap.String("incident_id", created.ID))
	return created, nil
}

func (c *Client) GetIncident(ctx context.Context, incidentID string) (*domain.Incident, error) {
	return selectOne[domain.Incident](ctx, c, "GetIncident", "incident", incidentID,
		from("incidents").eq("id", incidentID))
}

func (c *Client) ListIncidents(ctx context.Context, f domain.IncidentFilter) ([]domain.Incident, error) {
	q := from("incidents").order("created_at.desc").page(f.Page, f.PageSize)
	if f.UserID != "" {
		q.eq("user_id", f.UserID)
	}
	if len(f.Statuses) > 0 {
		q.in("status", toStrings(f.Statuses))
	}
	return selectRows[domain.Incident](ctx, c, "ListIncidents", q)
}

func (c *Client) UpdateIncidentStatus(ctx context.Context, incidentID string, current domain.IncidentStatus, updates map[string]any) (*domain.Incident, error) {
	q := from("incidents").eq("id", incidentID).eq("status", string(current))
	rows, err := patchRows[domain.Incident](ctx, c, "UpdateIncidentStatus", q, withUpdatedAt(updates))
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &domain.ErrConflict{Message: "incident " + incidentID + " changed status concurrently"}
	}
	return &rows[0], nil
}

func (c *Client) ListMessages(ctx context.Context, incidentID string) ([]domain.IncidentMessage, error) {
	return selectRows[domain.IncidentMessage](ctx, c, "ListMessages",
		from("incident_messages").eq("incident_id", incidentID).order("created_at.asc"))
}

func (c *Client) CreateMessage(ctx context.Context, msg *domain.IncidentMessage) (*domain.IncidentMessage, error) {
	return insertOne[domain.IncidentMessage](ctx, c, "CreateMessage", "incident_messages", map[string]any{
		"incident_id": msg.IncidentID,
		"sender_id":   msg.SenderID,
		"message":     msg.Message,
	})
}
