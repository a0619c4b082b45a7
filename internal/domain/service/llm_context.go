package service

import (
	"context"
	"strings"
)

type llmCtxKey string

const (
	llmCtxKeyWorkflow llmCtxKey = "llm_workflow"
	llmCtxKeyProvider llmCtxKey = "llm_provider"
	llmCtxKeySession  llmCtxKey = "llm_session"
)

const unknown = "unknown"

// 工作流标识，用于指标与用量流水
const (
	WorkflowPipelineStep  = "pipeline_step"
	WorkflowDeviceSummary = "device_summary"
	WorkflowSummaryRefine = "summary_refine"
	WorkflowNotesTool     = "notes_tool"
)

func withValue(ctx context.Context, key llmCtxKey, value string) context.Context {
	if ctx == nil {
		return nil
	}
	v := strings.TrimSpace(value)
	if v == "" {
		return ctx
	}
	return context.WithValue(ctx, key, v)
}

func valueOr(ctx context.Context, key llmCtxKey, fallback string) string {
	if ctx == nil {
		return fallback
	}
	s, ok := ctx.Value(key).(string)
	if !ok || s == "" {
		return fallback
	}
	return s
}

func WithWorkflow(ctx context.Context, workflow string) context.Context {
	return withValue(ctx, llmCtxKeyWorkflow, workflow)
}

func WithProvider(ctx context.Context, provider string) context.Context {
	return withValue(ctx, llmCtxKeyProvider, provider)
}

// WithSession 记录发起调用的工作区会话
func WithSession(ctx context.Context, sessionID string) context.Context {
	return withValue(ctx, llmCtxKeySession, sessionID)
}

func WithWorkflowProvider(ctx context.Context, workflow, provider string) context.Context {
	return WithProvider(WithWorkflow(ctx, workflow), provider)
}

func WorkflowFromContext(ctx context.Context) string {
	return valueOr(ctx, llmCtxKeyWorkflow, unknown)
}

func ProviderFromContext(ctx context.Context) string {
	return valueOr(ctx, llmCtxKeyProvider, unknown)
}

// SessionFromContext 未设置时返回空串
func SessionFromContext(ctx context.Context) string {
	return valueOr(ctx, llmCtxKeySession, "")
}
