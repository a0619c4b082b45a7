// Package llm 提供基于 Eino 的文本生成客户端
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"regdraft-ai-api/internal/domain/entity"
	"regdraft-ai-api/internal/domain/service"
	"regdraft-ai-api/internal/workflow/port"
	"regdraft-ai-api/pkg/logger"
)

// Client 将 GenerateRequest 分发到对应提供商的 ChatModel
type Client struct {
	factory         port.ChatModelFactory
	defaultProvider entity.Provider
	callTimeout     time.Duration
}

var _ service.Generator = (*Client)(nil)

// ClientOption 客户端可选项
type ClientOption func(*Client)

// WithCallTimeout 为每次生成调用设置截止时间，0 表示仅受调用方 ctx 约束
func WithCallTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.callTimeout = d }
}

// NewClient 创建生成客户端
func NewClient(factory port.ChatModelFactory, defaultProvider string, opts ...ClientOption) *Client {
	p := entity.Provider(strings.TrimSpace(defaultProvider))
	if p == "" {
		p = entity.ProviderGemini
	}
	c := &Client{factory: factory, defaultProvider: p}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Generate 发起一次单轮生成；不重试、不流式
func (c *Client) Generate(ctx context.Context, req service.GenerateRequest) (*service.GenerateResponse, error) {
	provider := c.resolveProvider(req)
	modelName := strings.TrimSpace(req.Model)
	if modelName == "" {
		modelName = entity.DefaultModel
	}

	if c.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.callTimeout)
		defer cancel()
	}

	ctx = service.WithProvider(ctx, string(provider))
	ctx = callbacks.InitCallbacks(ctx, &callbacks.RunInfo{
		Name:      service.WorkflowFromContext(ctx),
		Type:      string(provider),
		Component: components.ComponentOfChatModel,
	})

	chatModel, err := c.factory.Get(ctx, string(provider))
	if err != nil {
		logger.Error(ctx, "failed to get chat model", err, "provider", provider)
		return nil, fmt.Errorf("provider %s unavailable: %w", provider, err)
	}

	msgs := make([]*schema.Message, 0, 2)
	if sys := strings.TrimSpace(req.SystemInstruction); sys != "" {
		msgs = append(msgs, schema.SystemMessage(req.SystemInstruction))
	}
	msgs = append(msgs, schema.UserMessage(req.Prompt))

	out, err := chatModel.Generate(ctx, msgs,
		model.WithModel(modelName),
		model.WithTemperature(float32(req.EffectiveTemperature())),
		model.WithMaxTokens(req.EffectiveMaxOutputTokens()),
	)
	if err != nil {
		logger.Error(ctx, "llm generate failed", err, "provider", provider, "model", modelName)
		return nil, err
	}

	resp := &service.GenerateResponse{Provider: provider, Model: modelName}
	if out != nil {
		resp.Text = out.Content
		if out.ResponseMeta != nil && out.ResponseMeta.Usage != nil {
			resp.PromptTokens = out.ResponseMeta.Usage.PromptTokens
			resp.CompletionTokens = out.ResponseMeta.Usage.CompletionTokens
		}
	}
	return resp, nil
}

func (c *Client) resolveProvider(req service.GenerateRequest) entity.Provider {
	if req.Provider != "" {
		return req.Provider
	}
	if p, ok := entity.ProviderForModel(req.Model); ok {
		return p
	}
	return c.defaultProvider
}
