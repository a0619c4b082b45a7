package llm

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

const mockPreviewRunes = 50

// MockChatModel 无凭据或显式配置为 mock 的提供商使用的本地模型
// 固定延迟后返回 "[Mock Output from <provider>] Processed: <前 50 字符>..."
type MockChatModel struct {
	provider string
	delay    time.Duration
}

// NewMockChatModel 创建 mock 模型
func NewMockChatModel(provider string, delay time.Duration) *MockChatModel {
	return &MockChatModel{provider: provider, delay: delay}
}

func (m *MockChatModel) GetType() string {
	return "Mock"
}

func (m *MockChatModel) IsCallbacksEnabled() bool {
	return true
}

// Generate 模拟一次生成调用
func (m *MockChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	options := model.GetCommonOptions(&model.Options{}, opts...)
	cbConfig := &model.Config{}
	if options.Model != nil {
		cbConfig.Model = *options.Model
	}
	if options.MaxTokens != nil {
		cbConfig.MaxTokens = *options.MaxTokens
	}
	if options.Temperature != nil {
		cbConfig.Temperature = *options.Temperature
	}

	ctx = callbacks.OnStart(ctx, &model.CallbackInput{Messages: input, Config: cbConfig})

	if m.delay > 0 {
		timer := time.NewTimer(m.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			err := ctx.Err()
			callbacks.OnError(ctx, err)
			return nil, err
		case <-timer.C:
		}
	}

	out := schema.AssistantMessage(
		fmt.Sprintf("[Mock Output from %s] Processed: %s...", m.provider, truncateRunes(lastUserContent(input), mockPreviewRunes)),
		nil,
	)
	callbacks.OnEnd(ctx, &model.CallbackOutput{Message: out, Config: cbConfig})
	return out, nil
}

// Stream 以单帧流返回 Generate 的结果
func (m *MockChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func lastUserContent(input []*schema.Message) string {
	for i := len(input) - 1; i >= 0; i-- {
		if input[i] != nil && input[i].Role == schema.User {
			return input[i].Content
		}
	}
	return ""
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
