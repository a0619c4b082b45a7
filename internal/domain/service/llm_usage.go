package service

import "context"

// LLMUsageInput 表示一次 LLM 调用的可观测数据。
// 说明：该结构位于 domain/service，作为跨层的稳定契约（port），避免基础设施层依赖应用层实现。
type LLMUsageInput struct {
	SessionID string

	Workflow string
	Provider string
	Model    string

	PromptTokens     int
	CompletionTokens int
	DurationMs       int
	Success          bool
}

// LLMUsageRecorder 负责记录 LLM 使用量流水。
// 约定：实现应为 best-effort，不应阻塞主业务流程。
type LLMUsageRecorder interface {
	Record(ctx context.Context, in LLMUsageInput) error
}
