package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino-ext/components/model/ollama"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"golang.org/x/sync/singleflight"

	"regdraft-ai-api/internal/config"
	"regdraft-ai-api/pkg/logger"
)

// 后端类型
const (
	BackendOpenAI = "openai"
	BackendClaude = "claude"
	BackendOllama = "ollama"
	BackendMock   = "mock"
)

const defaultClaudeMaxTokens = 4096

// EinoFactory 按提供商管理 Eino ChatModel 实例
type EinoFactory struct {
	config *config.LLMConfig
	models map[string]model.BaseChatModel
	mu     sync.RWMutex
	group  singleflight.Group
}

// NewEinoFactory 创建 Eino LLM 工厂
func NewEinoFactory(cfg *config.Config) *EinoFactory {
	return &EinoFactory{
		config: &cfg.LLM,
		models: make(map[string]model.BaseChatModel),
	}
}

// Get 获取指定提供商的 ChatModel，未指定时返回默认提供商
func (f *EinoFactory) Get(ctx context.Context, name string) (model.BaseChatModel, error) {
	if name == "" {
		name = f.config.DefaultProvider
	}

	f.mu.RLock()
	m, ok := f.models[name]
	f.mu.RUnlock()
	if ok {
		return m, nil
	}

	// 惰性加载，并发请求同一提供商时只构建一次
	v, err, _ := f.group.Do(name, func() (any, error) {
		f.mu.RLock()
		existing, ok := f.models[name]
		f.mu.RUnlock()
		if ok {
			return existing, nil
		}

		providerCfg, ok := f.config.Providers[name]
		if !ok {
			return nil, fmt.Errorf("provider %s not found in LLM config", name)
		}

		built, err := f.build(ctx, name, providerCfg)
		if err != nil {
			return nil, err
		}

		f.mu.Lock()
		f.models[name] = built
		f.mu.Unlock()
		return built, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(model.BaseChatModel), nil
}

// Backend 返回提供商实际使用的后端类型
func (f *EinoFactory) Backend(name string) string {
	if name == "" {
		name = f.config.DefaultProvider
	}
	p, ok := f.config.Providers[name]
	if !ok {
		return ""
	}
	return resolveBackend(p)
}

// resolveBackend 缺少凭据的远程后端降级为 mock
func resolveBackend(p config.ProviderConfig) string {
	backend := strings.ToLower(strings.TrimSpace(p.Type))
	if backend == "" {
		backend = BackendOpenAI
	}
	switch backend {
	case BackendOpenAI, BackendClaude:
		if strings.TrimSpace(p.APIKey) == "" {
			return BackendMock
		}
	}
	return backend
}

func (f *EinoFactory) build(ctx context.Context, name string, p config.ProviderConfig) (model.BaseChatModel, error) {
	backend := resolveBackend(p)
	if backend == BackendMock && p.Type != BackendMock {
		logger.Warn(ctx, "llm provider has no api key, using mock backend", "provider", name)
	}

	var (
		chatModel model.BaseChatModel
		err       error
	)
	switch backend {
	case BackendOpenAI:
		cfg := &openai.ChatModelConfig{
			APIKey:  p.APIKey,
			BaseURL: p.BaseURL,
			Model:   p.Model,
			Timeout: p.Timeout,
		}
		if p.MaxTokens > 0 {
			cfg.MaxTokens = ptr(p.MaxTokens)
		}
		if p.Temperature > 0 {
			cfg.Temperature = ptr(float32(p.Temperature))
		}
		chatModel, err = openai.NewChatModel(ctx, cfg)
	case BackendClaude:
		cfg := &claude.Config{
			APIKey:    p.APIKey,
			Model:     p.Model,
			MaxTokens: p.MaxTokens,
		}
		if cfg.MaxTokens <= 0 {
			cfg.MaxTokens = defaultClaudeMaxTokens
		}
		if p.BaseURL != "" {
			cfg.BaseURL = ptr(p.BaseURL)
		}
		if p.Temperature > 0 {
			cfg.Temperature = ptr(float32(p.Temperature))
		}
		chatModel, err = claude.NewChatModel(ctx, cfg)
	case BackendOllama:
		chatModel, err = ollama.NewChatModel(ctx, &ollama.ChatModelConfig{
			BaseURL: p.BaseURL,
			Model:   p.Model,
			Timeout: p.Timeout,
		})
	case BackendMock:
		chatModel = NewMockChatModel(name, p.MockDelay)
	default:
		return nil, fmt.Errorf("provider %s: unsupported backend %q", name, backend)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create eino chat model for %s: %w", name, err)
	}
	return chatModel, nil
}

func ptr[T any](v T) *T {
	return &v
}
