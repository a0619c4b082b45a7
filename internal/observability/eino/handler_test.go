package eino

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"regdraft-ai-api/internal/domain/service"
)

type captureRecorder struct {
	mu     sync.Mutex
	inputs []service.LLMUsageInput
	err    error
}

func (r *captureRecorder) Record(_ context.Context, in service.LLMUsageInput) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inputs = append(r.inputs, in)
	return r.err
}

func callbackCtx(recorder service.LLMUsageRecorder) context.Context {
	ctx := service.WithSession(context.Background(), "sess-1")
	ctx = service.WithWorkflowProvider(ctx, service.WorkflowPipelineStep, "openai")
	return callbacks.InitCallbacks(ctx, &callbacks.RunInfo{
		Name:      service.WorkflowPipelineStep,
		Type:      "openai",
		Component: components.ComponentOfChatModel,
	}, NewHandler(recorder))
}

func TestHandler_RecordsSuccessfulCall(t *testing.T) {
	rec := &captureRecorder{}
	ctx := callbackCtx(rec)

	ctx = callbacks.OnStart(ctx, &model.CallbackInput{
		Messages: []*schema.Message{schema.UserMessage("hi")},
		Config:   &model.Config{Model: "gpt-4o"},
	})
	callbacks.OnEnd(ctx, &model.CallbackOutput{
		Message:    schema.AssistantMessage("ok", nil),
		Config:     &model.Config{Model: "gpt-4o"},
		TokenUsage: &model.TokenUsage{PromptTokens: 7, CompletionTokens: 11},
	})

	require.Len(t, rec.inputs, 1)
	in := rec.inputs[0]
	assert.Equal(t, "sess-1", in.SessionID)
	assert.Equal(t, service.WorkflowPipelineStep, in.Workflow)
	assert.Equal(t, "openai", in.Provider)
	assert.Equal(t, "gpt-4o", in.Model)
	assert.Equal(t, 7, in.PromptTokens)
	assert.Equal(t, 11, in.CompletionTokens)
	assert.True(t, in.Success)
	assert.GreaterOrEqual(t, in.DurationMs, 0)
}

func TestHandler_RecordsFailedCall(t *testing.T) {
	rec := &captureRecorder{err: errors.New("db down")}
	ctx := callbackCtx(rec)

	ctx = callbacks.OnStart(ctx, &model.CallbackInput{Config: &model.Config{Model: "gpt-4o-mini"}})
	callbacks.OnError(ctx, errors.New("upstream 500"))

	require.Len(t, rec.inputs, 1)
	assert.False(t, rec.inputs[0].Success)
	assert.Equal(t, "gpt-4o-mini", rec.inputs[0].Model, "model name carried from OnStart")
	assert.Zero(t, rec.inputs[0].PromptTokens)
}

func TestHandler_NilRecorder(t *testing.T) {
	ctx := callbackCtx(nil)

	assert.NotPanics(t, func() {
		ctx = callbacks.OnStart(ctx, &model.CallbackInput{})
		callbacks.OnEnd(ctx, &model.CallbackOutput{})
	})
}
