package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"regdraft-ai-api/internal/config"
	"regdraft-ai-api/internal/domain/entity"
	"regdraft-ai-api/internal/domain/service"
)

type recordingModel struct {
	msgs    []*schema.Message
	options *model.Options
	reply   *schema.Message
	err     error
}

func (m *recordingModel) Generate(_ context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	m.msgs = input
	m.options = model.GetCommonOptions(&model.Options{}, opts...)
	if m.err != nil {
		return nil, m.err
	}
	return m.reply, nil
}

func (m *recordingModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not supported")
}

type staticFactory struct {
	models    map[string]model.BaseChatModel
	requested []string
}

func (f *staticFactory) Get(_ context.Context, name string) (model.BaseChatModel, error) {
	f.requested = append(f.requested, name)
	m, ok := f.models[name]
	if !ok {
		return nil, errors.New("no such provider")
	}
	return m, nil
}

func TestClient_Generate_PassesRequestThrough(t *testing.T) {
	reply := schema.AssistantMessage("classified", nil)
	reply.ResponseMeta = &schema.ResponseMeta{Usage: &schema.TokenUsage{PromptTokens: 12, CompletionTokens: 30}}
	rm := &recordingModel{reply: reply}
	factory := &staticFactory{models: map[string]model.BaseChatModel{"gemini": rm}}

	c := NewClient(factory, "gemini")
	resp, err := c.Generate(context.Background(), service.GenerateRequest{
		Model:             "gemini-3-pro-preview",
		Prompt:            "device description",
		SystemInstruction: "You are a classifier.",
		Temperature:       service.Float64(0.2),
		MaxOutputTokens:   4000,
	})
	require.NoError(t, err)

	assert.Equal(t, "classified", resp.Text)
	assert.Equal(t, entity.ProviderGemini, resp.Provider)
	assert.Equal(t, 42, resp.TotalTokens())
	assert.Equal(t, []string{"gemini"}, factory.requested)

	require.Len(t, rm.msgs, 2)
	assert.Equal(t, schema.System, rm.msgs[0].Role)
	assert.Equal(t, "You are a classifier.", rm.msgs[0].Content)
	assert.Equal(t, schema.User, rm.msgs[1].Role)
	assert.Equal(t, "device description", rm.msgs[1].Content)

	require.NotNil(t, rm.options.Model)
	assert.Equal(t, "gemini-3-pro-preview", *rm.options.Model)
	require.NotNil(t, rm.options.Temperature)
	assert.InDelta(t, 0.2, *rm.options.Temperature, 1e-6)
	require.NotNil(t, rm.options.MaxTokens)
	assert.Equal(t, 4000, *rm.options.MaxTokens)
}

func TestClient_Generate_Defaults(t *testing.T) {
	rm := &recordingModel{reply: schema.AssistantMessage("", nil)}
	factory := &staticFactory{models: map[string]model.BaseChatModel{"gemini": rm}}

	resp, err := NewClient(factory, "").Generate(context.Background(), service.GenerateRequest{Prompt: "hi"})
	require.NoError(t, err)

	assert.Equal(t, "", resp.Text, "empty text is a valid result")
	require.Len(t, rm.msgs, 1, "no system message when instruction is empty")
	assert.Equal(t, entity.DefaultModel, *rm.options.Model)
	assert.InDelta(t, service.DefaultTemperature, *rm.options.Temperature, 1e-6)
	assert.Equal(t, service.DefaultMaxOutputTokens, *rm.options.MaxTokens)
}

func TestClient_Generate_ProviderResolution(t *testing.T) {
	models := map[string]model.BaseChatModel{
		"gemini":    &recordingModel{reply: schema.AssistantMessage("g", nil)},
		"openai":    &recordingModel{reply: schema.AssistantMessage("o", nil)},
		"anthropic": &recordingModel{reply: schema.AssistantMessage("a", nil)},
	}

	tests := []struct {
		name string
		req  service.GenerateRequest
		want string
	}{
		{"explicit provider wins", service.GenerateRequest{Provider: entity.ProviderAnthropic, Model: "gpt-4o"}, "anthropic"},
		{"inferred from model", service.GenerateRequest{Model: "gpt-4o-mini"}, "openai"},
		{"unknown model falls back to default", service.GenerateRequest{Model: "custom-model"}, "gemini"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			factory := &staticFactory{models: models}
			_, err := NewClient(factory, "gemini").Generate(context.Background(), tt.req)
			require.NoError(t, err)
			assert.Equal(t, []string{tt.want}, factory.requested)
		})
	}
}

func TestClient_Generate_PropagatesUpstreamError(t *testing.T) {
	rm := &recordingModel{err: errors.New("429 quota exceeded")}
	factory := &staticFactory{models: map[string]model.BaseChatModel{"gemini": rm}}

	_, err := NewClient(factory, "gemini").Generate(context.Background(), service.GenerateRequest{Prompt: "x"})
	require.Error(t, err)
	assert.Equal(t, "429 quota exceeded", err.Error())
}

// hangingModel 阻塞直到 ctx 结束
type hangingModel struct {
	hadDeadline bool
}

func (m *hangingModel) Generate(ctx context.Context, _ []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	_, m.hadDeadline = ctx.Deadline()
	<-ctx.Done()
	return nil, ctx.Err()
}

func (m *hangingModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not supported")
}

func TestClient_Generate_CallTimeout(t *testing.T) {
	hm := &hangingModel{}
	factory := &staticFactory{models: map[string]model.BaseChatModel{"gemini": hm}}

	start := time.Now()
	_, err := NewClient(factory, "gemini", WithCallTimeout(50*time.Millisecond)).
		Generate(context.Background(), service.GenerateRequest{Prompt: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, hm.hadDeadline)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestClient_Generate_NoCallTimeoutKeepsCallerContext(t *testing.T) {
	rm := &recordingModel{reply: schema.AssistantMessage("ok", nil)}
	factory := &staticFactory{models: map[string]model.BaseChatModel{"gemini": rm}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	hm := &hangingModel{}
	factory.models["openai"] = hm

	_, err := NewClient(factory, "gemini").Generate(ctx, service.GenerateRequest{Provider: entity.ProviderOpenAI, Prompt: "x"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, hm.hadDeadline)
}

func TestClient_Generate_UnknownProvider(t *testing.T) {
	factory := &staticFactory{models: map[string]model.BaseChatModel{}}

	_, err := NewClient(factory, "gemini").Generate(context.Background(), service.GenerateRequest{Prompt: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "provider gemini unavailable")
}

func TestEinoFactory_MockFallbackWithoutAPIKey(t *testing.T) {
	cfg := &config.Config{LLM: config.LLMConfig{
		DefaultProvider: "xai",
		Providers: map[string]config.ProviderConfig{
			"xai":    {Type: "openai", BaseURL: "https://api.x.ai/v1", Model: "grok-beta"},
			"gemini": {Type: "mock"},
		},
	}}
	f := NewEinoFactory(cfg)

	assert.Equal(t, BackendMock, f.Backend("xai"))
	assert.Equal(t, BackendMock, f.Backend(""))
	assert.Equal(t, "", f.Backend("missing"))

	m, err := f.Get(context.Background(), "xai")
	require.NoError(t, err)
	assert.IsType(t, &MockChatModel{}, m)

	again, err := f.Get(context.Background(), "")
	require.NoError(t, err)
	assert.Same(t, m, again)

	_, err = f.Get(context.Background(), "missing")
	assert.Error(t, err)
}

func TestResolveBackend(t *testing.T) {
	assert.Equal(t, BackendOpenAI, resolveBackend(config.ProviderConfig{APIKey: "k"}))
	assert.Equal(t, BackendClaude, resolveBackend(config.ProviderConfig{Type: "Claude", APIKey: "k"}))
	assert.Equal(t, BackendMock, resolveBackend(config.ProviderConfig{Type: "claude"}))
	assert.Equal(t, BackendOllama, resolveBackend(config.ProviderConfig{Type: "ollama"}))
	assert.Equal(t, BackendMock, resolveBackend(config.ProviderConfig{Type: "mock", APIKey: "k"}))
}

func TestMockChatModel_Output(t *testing.T) {
	m := NewMockChatModel("anthropic", 0)
	long := strings.Repeat("a", 60)

	out, err := m.Generate(context.Background(), []*schema.Message{
		schema.SystemMessage("sys"),
		schema.UserMessage(long),
	})
	require.NoError(t, err)
	assert.Equal(t, "[Mock Output from anthropic] Processed: "+strings.Repeat("a", 50)+"...", out.Content)

	short, err := m.Generate(context.Background(), []*schema.Message{schema.UserMessage("short")})
	require.NoError(t, err)
	assert.Equal(t, "[Mock Output from anthropic] Processed: short...", short.Content)
}

func TestMockChatModel_HonoursContext(t *testing.T) {
	m := NewMockChatModel("openai", time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Generate(ctx, []*schema.Message{schema.UserMessage("x")})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMockChatModel_Stream(t *testing.T) {
	m := NewMockChatModel("gemini", 0)
	sr, err := m.Stream(context.Background(), []*schema.Message{schema.UserMessage("hello")})
	require.NoError(t, err)
	defer sr.Close()

	msg, err := sr.Recv()
	require.NoError(t, err)
	assert.Equal(t, "[Mock Output from gemini] Processed: hello...", msg.Content)
}
