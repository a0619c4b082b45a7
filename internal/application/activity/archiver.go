// Package activity 将会话活动日志从消息流归档到数据库
package activity

import (
	"context"
	"fmt"
	"strings"

	"regdraft-ai-api/internal/domain/entity"
	"regdraft-ai-api/internal/domain/repository"
	"regdraft-ai-api/internal/infrastructure/messaging"
	"regdraft-ai-api/pkg/logger"
)

// Archiver 消费 workspace.log 消息并写入活动归档表
type Archiver struct {
	repo repository.ActivityEventRepository
}

// NewArchiver 创建归档器
func NewArchiver(repo repository.ActivityEventRepository) *Archiver {
	return &Archiver{repo: repo}
}

// Register 在消费者上注册消息处理器
func (a *Archiver) Register(consumer *messaging.Consumer) {
	consumer.RegisterHandler(messaging.MessageTypeWorkspaceLog, a.Handle)
}

// Handle 处理单条消息；返回 error 时消息保留在待处理列表中等待重试
func (a *Archiver) Handle(ctx context.Context, msg *messaging.Message) error {
	// 格式错误的消息重试也无法成功，直接丢弃
	var payload messaging.ActivityLogMessage
	if err := msg.UnmarshalPayload(&payload); err != nil {
		logger.Warn(ctx, "dropping undecodable activity message", "message_id", msg.ID, "error", err.Error())
		return nil
	}

	evt, err := toEvent(msg, payload)
	if err != nil {
		logger.Warn(ctx, "dropping malformed activity message", "message_id", msg.ID, "error", err.Error())
		return nil
	}
	return a.repo.CreateBatch(ctx, []*entity.ActivityEvent{evt})
}

func toEvent(msg *messaging.Message, payload messaging.ActivityLogMessage) (*entity.ActivityEvent, error) {
	sessionID := strings.TrimSpace(payload.SessionID)
	if sessionID == "" {
		sessionID = strings.TrimSpace(msg.SessionID)
	}
	if sessionID == "" {
		return nil, fmt.Errorf("missing session id")
	}

	typ := entity.LogType(payload.Type)
	switch typ {
	case entity.LogInfo, entity.LogSuccess, entity.LogError:
	default:
		return nil, fmt.Errorf("unknown log type %q", payload.Type)
	}

	occurredAt := payload.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = msg.CreatedAt
	}
	return &entity.ActivityEvent{
		MessageID:  msg.ID,
		SessionID:  sessionID,
		Type:       typ,
		Msg:        payload.Msg,
		OccurredAt: occurredAt.UTC(),
	}, nil
}
