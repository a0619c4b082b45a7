package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm/clause"

	"regdraft-ai-api/internal/domain/entity"
)

const activityBatchSize = 100

type ActivityEventRepository struct {
	client *Client
}

func NewActivityEventRepository(client *Client) *ActivityEventRepository {
	return &ActivityEventRepository{client: client}
}

// CreateBatch 批量写入，重复投递的消息按 message_id 忽略
func (r *ActivityEventRepository) CreateBatch(ctx context.Context, events []*entity.ActivityEvent) error {
	if len(events) == 0 {
		return nil
	}
	ctx, span := tracer.Start(ctx, "postgres.ActivityEventRepository.CreateBatch")
	defer span.End()

	err := r.client.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "message_id"}}, DoNothing: true}).
		CreateInBatches(events, activityBatchSize).Error
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to archive activity events: %w", err)
	}
	return nil
}

func (r *ActivityEventRepository) ListBySession(ctx context.Context, sessionID string, limit int) ([]*entity.ActivityEvent, error) {
	ctx, span := tracer.Start(ctx, "postgres.ActivityEventRepository.ListBySession")
	defer span.End()

	if limit <= 0 || limit > 500 {
		limit = 500
	}

	var events []*entity.ActivityEvent
	if err := r.client.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("occurred_at DESC").
		Limit(limit).
		Find(&events).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list activity events: %w", err)
	}
	return events, nil
}
