package service

import (
	"context"
	"fmt"

	"github.com/trabamex/mir-bff-go/internal/domain"
	"github.com/trabamex/mir-bff-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var activityTracer = otel.Tracer("service/activity")

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// ActivityService owns the per-user activity log. The other services write
// through Record, which never fails the caller.
type ActivityService struct {
	store  port.ActivityStore
	logger *zap.Logger
}

// NewActivityService creates a new activity service.
func NewActivityService(store port.ActivityStore, logger *zap.Logger) *ActivityService {
	return &ActivityService{store: store, logger: logger}
}

// Record writes an activity row. Errors are logged and swallowed.
func (s *ActivityService) Record(ctx context.Context, userID, activityType, description string, metadata map[string]any) {
	if s == nil || userID == "" {
		return
	}
	ctx, span := activityTracer.Start(ctx, "ActivityService.Record")
	defer span.End()

	err := s.store.CreateActivity(ctx, &domain.UserActivity{
		UserID:       userID,
		ActivityType: activityType,
		Description:  description,
		Metadata:     metadata,
	})
	if err != nil {
		s.logger.Warn("activity not recorded",
			zap.String("user_id", userID),
			zap.String("activity_type", activityType),
			zap.Error(err),
		)
	}
}

// List returns the caller's activities, newest first.
func (s *ActivityService) List(ctx context.Context, userID string, unreadOnly bool, page, pageSize int) (*domain.ListResponse[domain.UserActivity], error) {
	ctx, span := activityTracer.Start(ctx, "ActivityService.List")
	defer span.End()

	page, pageSize = normalizePage(page, pageSize)
	items, err := s.store.ListActivities(ctx, domain.ActivityFilter{
		UserID:     userID,
		UnreadOnly: unreadOnly,
		Page:       page,
		PageSize:   pageSize,
	})
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	return paginate(items, page, pageSize), nil
}

// MarkRead flags one of the caller's activities as read.
func (s *ActivityService) MarkRead(ctx context.Context, userID, activityID string) error {
	ctx, span := activityTracer.Start(ctx, "ActivityService.MarkRead")
	defer span.End()

	if err := s.store.MarkRead(ctx, userID, activityID); err != nil {
		return fmt.Errorf("mark activity read: %w", err)
	}
	return nil
}

// MarkAllRead flags every unread activity of the caller.
func (s *ActivityService) MarkAllRead(ctx context.Context, userID string) error {
	ctx, span := activityTracer.Start(ctx, "ActivityService.MarkAllRead")
	defer span.End()

	if err := s.store.MarkAllRead(ctx, userID); err != nil {
		return fmt.Errorf("mark all activities read: %w", err)
	}
	return nil
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

// paginate wraps one page of rows. A full page means more may follow.
func paginate[T any](items []T, page, pageSize int) *domain.ListResponse[T] {
	hasMore := len(items) >= pageSize
	if items == nil {
		items = []T{}
	}
	return &domain.ListResponse[T]{Data: items, Page: page, PageSize: pageSize, HasMore: hasMore}
}
