package supabase

import (
	"context"
	"net/http"

	"github.com/trabamex/mir-bff-go/internal/domain"
)

func (c *Client) CreateActivity(ctx context.Context, a *domain.UserActivity) error {
	row := map[string]any{
		"user_id":       a.UserID,
		"activity_type": a.ActivityType,
		"description":   a.Description,
		"is_read":       false,
	}
	if len(a.Metadata) > 0 {
		row["metadata"] = a.Metadata
	}
	return c.executeWrite(ctx, "CreateActivity", func() error {
		_, err := c.doRequest(ctx, http.MethodPost, "user_activities", row, preferMinimal)
		return err
	})
}

func (c *Client) ListActivities(ctx context.Context, f domain.ActivityFilter) ([]domain.UserActivity, error) {
	q := from("user_activities").eq("user_id", f.UserID).order("created_at.desc").page(f.Page, f.PageSize)
	if f.UnreadOnly {
		q.eq("is_read", "false")
	}
	return selectRows[domain.UserActivity](ctx, c, "ListActivities", q)
}

type idRow struct {
	ID string `json:"id"`
}

func (c *Client) CountUnread(ctx context.Context, userID string) (int, error) {
	rows, err := selectRows[idRow](ctx, c, "CountUnread",
		from("user_activities").sel("id").eq("user_id", userID).eq("is_read", "false"))
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

// MarkRead flags one activity of userID. Activities of other users never match.
func (c *Client) MarkRead(ctx context.Context, userID, activityID string) error {
	rows, err := patchRows[idRow](ctx, c, "MarkRead",
		from("user_activities").eq("id", activityID).eq("user_id", userID),
		map[string]any{"is_read": true})
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return &domain.ErrNotFound{Resource: "activity", ID: activityID}
	}
	return nil
}

func (c *Client) MarkAllRead(ctx context.Context, userID string) error {
	_, err := patchRows[idRow](ctx, c, "MarkAllRead",
		from("user_activities").eq("user_id", userID).eq("is_read", "false"),
		map[string]any{"is_read": true})
	return err
}
