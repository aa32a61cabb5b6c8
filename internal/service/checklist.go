package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/trabamex/mir-bff-go/internal/domain"
	"github.com/trabamex/mir-bff-go/internal/port"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
)

var checklistTracer = otel.Tracer("service/checklist")

// ChecklistService keeps a small personal to-do list per user.
type ChecklistService struct {
	store port.ChecklistStore
	now   func() time.Time
}

func NewChecklistService(store port.ChecklistStore) *ChecklistService {
	return &ChecklistService{store: store, now: time.Now}
}

func (s *ChecklistService) Get(ctx context.Context, userID string) (*domain.Checklist, error) {
	ctx, span := checklistTracer.Start(ctx, "ChecklistService.Get")
	defer span.End()

	c, err := s.store.GetChecklist(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get checklist: %w", err)
	}
	if c.Items == nil {
		c.Items = []domain.ChecklistItem{}
	}
	return c, nil
}

// Save replaces the whole list. Blank entries are dropped and new entries
// get an id and a creation time.
func (s *ChecklistService) Save(ctx context.Context, userID string, items []domain.ChecklistItem) (*domain.Checklist, error) {
	ctx, span := checklistTracer.Start(ctx, "ChecklistService.Save")
	defer span.End()

	now := s.now().UTC()
	out := make([]domain.ChecklistItem, 0, len(items))
	for _, it := range items {
		it.Text = strings.TrimSpace(it.Text)
		if it.Text == "" {
			continue
		}
		if _, err := uuid.Parse(it.ID); err != nil {
			it.ID = uuid.NewString()
		}
		if it.CreatedAt.IsZero() {
			it.CreatedAt = now
		}
		out = append(out, it)
	}

	c := &domain.Checklist{Items: out, UpdatedAt: now}
	if err := s.store.SaveChecklist(ctx, userID, c); err != nil {
		return nil, fmt.Errorf("save checklist: %w", err)
	}
	return c, nil
}
