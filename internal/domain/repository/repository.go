// Package repository 定义数据访问层接口
package repository

import (
	"context"
	"time"

	"regdraft-ai-api/internal/domain/entity"
)

type LLMUsageEventRepository interface {
	Create(ctx context.Context, event *entity.LLMUsageEvent) error
	GetTokenUsage(ctx context.Context, sessionID string, startInclusive, endExclusive time.Time) (int64, error)
}

// ActivityEventRepository 活动日志归档
type ActivityEventRepository interface {
	// CreateBatch 批量写入，按 MessageID 幂等
	CreateBatch(ctx context.Context, events []*entity.ActivityEvent) error
	ListBySession(ctx context.Context, sessionID string, limit int) ([]*entity.ActivityEvent, error)
}
