package eino

import (
	"context"
	"time"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/model"
	cbtemplate "github.com/cloudwego/eino/utils/callbacks"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"regdraft-ai-api/internal/domain/service"
	"regdraft-ai-api/pkg/logger"
	"regdraft-ai-api/pkg/metrics"
)

// callState 在 OnStart 与 OnEnd/OnError 之间传递的调用信息
type callState struct {
	start time.Time
	model string
}

type callStateKey struct{}

// newChatModelCallbackHandler 创建大模型调用的回调处理器
//
// 每次生成记录调用次数、耗时、token 消耗与追踪 span；
// recorder 非空时写入用量流水（best-effort）。
func newChatModelCallbackHandler(recorder service.LLMUsageRecorder) *cbtemplate.ModelCallbackHandler {
	return &cbtemplate.ModelCallbackHandler{
		OnStart: func(ctx context.Context, info *einocb.RunInfo, input *model.CallbackInput) context.Context {
			modelName := modelNameFromInput(input)
			ctx = context.WithValue(ctx, callStateKey{}, &callState{start: time.Now(), model: modelName})

			attrs := []attribute.KeyValue{
				attribute.String("eino.workflow", service.WorkflowFromContext(ctx)),
				attribute.String("llm.provider", service.ProviderFromContext(ctx)),
				attribute.String("llm.model", modelName),
			}
			if sid := service.SessionFromContext(ctx); sid != "" {
				attrs = append(attrs, attribute.String("workspace.session_id", sid))
			}
			if info != nil {
				attrs = append(attrs,
					attribute.String("eino.node_name", info.Name),
					attribute.String("eino.type", info.Type),
				)
			}

			ctx, _ = otel.Tracer("eino").Start(ctx, "llm.generate", trace.WithAttributes(attrs...))
			return ctx
		},

		OnEnd: func(ctx context.Context, _ *einocb.RunInfo, output *model.CallbackOutput) context.Context {
			provider := service.ProviderFromContext(ctx)
			modelName := modelNameFromOutput(output)
			if modelName == "" {
				modelName = stateFrom(ctx).model
			}
			elapsed := elapsed(ctx)

			metrics.LLMCallTotal.WithLabelValues(provider, modelName, "success").Inc()
			metrics.LLMCallDuration.WithLabelValues(provider, modelName).Observe(elapsed.Seconds())

			var promptTokens, completionTokens int
			if output != nil && output.TokenUsage != nil {
				promptTokens = output.TokenUsage.PromptTokens
				completionTokens = output.TokenUsage.CompletionTokens
				metrics.LLMTokensUsed.WithLabelValues(provider, modelName, "prompt").Add(float64(promptTokens))
				metrics.LLMTokensUsed.WithLabelValues(provider, modelName, "completion").Add(float64(completionTokens))
			}

			record(ctx, recorder, service.LLMUsageInput{
				SessionID:        service.SessionFromContext(ctx),
				Workflow:         service.WorkflowFromContext(ctx),
				Provider:         provider,
				Model:            modelName,
				PromptTokens:     promptTokens,
				CompletionTokens: completionTokens,
				DurationMs:       int(elapsed.Milliseconds()),
				Success:          true,
			})

			span := trace.SpanFromContext(ctx)
			span.SetAttributes(
				attribute.Int("llm.prompt_tokens", promptTokens),
				attribute.Int("llm.completion_tokens", completionTokens),
			)
			span.End()
			return ctx
		},

		OnError: func(ctx context.Context, _ *einocb.RunInfo, err error) context.Context {
			provider := service.ProviderFromContext(ctx)
			modelName := stateFrom(ctx).model
			elapsed := elapsed(ctx)

			metrics.LLMCallTotal.WithLabelValues(provider, modelName, "error").Inc()
			metrics.LLMCallDuration.WithLabelValues(provider, modelName).Observe(elapsed.Seconds())

			record(ctx, recorder, service.LLMUsageInput{
				SessionID:  service.SessionFromContext(ctx),
				Workflow:   service.WorkflowFromContext(ctx),
				Provider:   provider,
				Model:      modelName,
				DurationMs: int(elapsed.Milliseconds()),
			})

			span := trace.SpanFromContext(ctx)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			span.End()
			return ctx
		},
	}
}

func record(ctx context.Context, recorder service.LLMUsageRecorder, in service.LLMUsageInput) {
	if recorder == nil {
		return
	}
	if err := recorder.Record(ctx, in); err != nil {
		logger.Warn(ctx, "failed to record llm usage", "error", err.Error(), "workflow", in.Workflow)
	}
}

func stateFrom(ctx context.Context) *callState {
	if s, ok := ctx.Value(callStateKey{}).(*callState); ok && s != nil {
		return s
	}
	return &callState{}
}

func elapsed(ctx context.Context) time.Duration {
	s := stateFrom(ctx)
	if s.start.IsZero() {
		return 0
	}
	return time.Since(s.start)
}

func modelNameFromInput(in *model.CallbackInput) string {
	if in == nil || in.Config == nil {
		return ""
	}
	return in.Config.Model
}

func modelNameFromOutput(out *model.CallbackOutput) string {
	if out == nil || out.Config == nil {
		return ""
	}
	return out.Config.Model
}
