package supabase

import (
	"context"

	"go.uber.org/zap"

	"github.com/trabamex/mir-bff-go/internal/domain"
)

func (c *Client) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	return selectOne[domain.Profile](ctx, c, "GetProfile", "profile", userID,
		from("profiles").eq("id", userID))
}

func (c *Client) ListProfiles(ctx context.Context, role domain.Role, page, pageSize int) ([]domain.Profile, error) {
	q := from("profiles").order("created_at.desc").page(page, pageSize)
	if role != "" {
		q.eq("role", string(role))
	}
	return selectRows[domain.Profile](ctx, c, "ListProfiles", q)
}

func (c *Client) CreateProfile(ctx context.Context, p *domain.Profile) (*domain.Profile, error) {
	row := map[string]any{
		"id":        p.ID,
		"full_name": p.FullName,
		"email":     p.Email,
		"role":      p.Role,
	}
	if p.CompanyName != "" {
		row["company_name"] = p.CompanyName
	}
	if p.Phone != "" {
		row["phone"] = p.Phone
	}

	created, err := insertOne[domain.Profile](ctx, c, "CreateProfile", "profiles", row)
	if err != nil {
		return nil, err
	}
	c.logger.Info("supabase: profile created", zap.String("user_id", created.ID), zap.String("role", string(created.Role)))
	return created, nil
}

func (c *Client) UpdateProfile(ctx context.Context, userID string, updates map[string]any) (*domain.Profile, error) {
	rows, err := patchRows[domain.Profile](ctx, c, "UpdateProfile", from("profiles").eq("id", userID), updates)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "profile", ID: userID}
	}
	return &rows[0], nil
}
