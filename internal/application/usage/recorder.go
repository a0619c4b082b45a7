// Package usage 持久化 LLM 调用流水并提供按日用量查询
package usage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"regdraft-ai-api/internal/domain/entity"
	"regdraft-ai-api/internal/domain/repository"
	"regdraft-ai-api/internal/domain/service"
	"regdraft-ai-api/pkg/logger"
)

// Recorder 将 LLMUsageInput 写入用量流水表
// repo 为空时退化为空操作，未启用数据库时使用
type Recorder struct {
	repo repository.LLMUsageEventRepository
	now  func() time.Time
}

var _ service.LLMUsageRecorder = (*Recorder)(nil)

// NewRecorder 创建用量记录器
func NewRecorder(repo repository.LLMUsageEventRepository) *Recorder {
	return &Recorder{repo: repo, now: time.Now}
}

// Record 记录一次调用；写入失败只打日志
func (r *Recorder) Record(ctx context.Context, in service.LLMUsageInput) error {
	if r == nil || r.repo == nil {
		return nil
	}
	if in.PromptTokens < 0 || in.CompletionTokens < 0 {
		return fmt.Errorf("invalid token usage")
	}

	evt := &entity.LLMUsageEvent{
		SessionID:        strings.TrimSpace(in.SessionID),
		Provider:         strings.TrimSpace(in.Provider),
		Model:            strings.TrimSpace(in.Model),
		Workflow:         strings.TrimSpace(in.Workflow),
		TokensPrompt:     in.PromptTokens,
		TokensCompletion: in.CompletionTokens,
		DurationMs:       in.DurationMs,
		Success:          in.Success,
	}
	if evt.Workflow == "" {
		evt.Workflow = "unknown"
	}
	if err := r.repo.Create(ctx, evt); err != nil {
		logger.Warn(ctx, "failed to persist llm usage event", "error", err.Error(), "workflow", evt.Workflow)
	}
	return nil
}

// TokensToday 会话当日 (UTC) 消耗的 token 总量
func (r *Recorder) TokensToday(ctx context.Context, sessionID string) (int64, error) {
	if r == nil || r.repo == nil || strings.TrimSpace(sessionID) == "" {
		return 0, nil
	}
	now := r.now().UTC()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return r.repo.GetTokenUsage(ctx, sessionID, start, start.Add(24*time.Hour))
}

// Enabled 是否接入了持久化
func (r *Recorder) Enabled() bool {
	return r != nil && r.repo != nil
}
