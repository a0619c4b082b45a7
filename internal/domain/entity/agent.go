// Package entity 定义领域实体
package entity

import (
	"fmt"
	"slices"
)

// Provider LLM 提供商标识
type Provider string

const (
	ProviderGemini    Provider = "gemini"
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderXAI       Provider = "xai"
)

// KnownProviders 按展示顺序排列的已知提供商
var KnownProviders = []Provider{ProviderGemini, ProviderOpenAI, ProviderAnthropic, ProviderXAI}

// DefaultModel 未指定模型时使用的模型
const DefaultModel = "gemini-3-flash-preview"

// modelCatalog 每个提供商可选的模型
var modelCatalog = map[Provider][]string{
	ProviderGemini:    {"gemini-2.5-flash", "gemini-3-flash-preview", "gemini-3-pro-preview"},
	ProviderOpenAI:    {"gpt-4o", "gpt-4o-mini"},
	ProviderAnthropic: {"claude-3-5-sonnet-20241022"},
	ProviderXAI:       {"grok-beta"},
}

// IsValid 是否为已知提供商
func (p Provider) IsValid() bool {
	_, ok := modelCatalog[p]
	return ok
}

// Models 返回提供商可选模型的副本
func (p Provider) Models() []string {
	return slices.Clone(modelCatalog[p])
}

// Allows 模型是否属于该提供商
func (p Provider) Allows(model string) bool {
	return slices.Contains(modelCatalog[p], model)
}

// ModelCatalog 返回完整模型目录的副本
func ModelCatalog() map[Provider][]string {
	out := make(map[Provider][]string, len(modelCatalog))
	for p, models := range modelCatalog {
		out[p] = slices.Clone(models)
	}
	return out
}

// ProviderForModel 反查模型所属的提供商
func ProviderForModel(model string) (Provider, bool) {
	for _, p := range KnownProviders {
		if p.Allows(model) {
			return p, true
		}
	}
	return "", false
}

// AgentStep 流水线中的一个步骤定义
// 除 Model 外均不可变
type AgentStep struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Model        string   `json:"model"`
	Provider     Provider `json:"provider"`
	SystemPrompt string   `json:"system_prompt"`
	Temperature  float64  `json:"temperature"`
	MaxTokens    int      `json:"max_tokens"`
}

// WithModel 返回替换模型后的副本
func (a AgentStep) WithModel(model string) (AgentStep, error) {
	if !a.Provider.Allows(model) {
		return a, fmt.Errorf("model %q is not offered by provider %s", model, a.Provider)
	}
	a.Model = model
	return a, nil
}

// DefaultAgents 启动时的默认流水线
func DefaultAgents() []AgentStep {
	return []AgentStep{
		{
			ID:           "classifier",
			Name:         "Regulatory Classifier",
			Description:  "Determines device classification and product code.",
			Model:        DefaultModel,
			Provider:     ProviderGemini,
			SystemPrompt: "You are an expert FDA Regulatory classifier. Analyze the input device description and identify the likely Regulation Number, Product Code, and Device Class.",
			Temperature:  0.2,
			MaxTokens:    2000,
		},
		{
			ID:           "predicate_matcher",
			Name:         "Predicate Matcher",
			Description:  "Suggests potential predicate devices.",
			Model:        DefaultModel,
			Provider:     ProviderGemini,
			SystemPrompt: "You are an expert in FDA 510(k) submissions. Based on the device description and classification, suggest 3 potential predicate devices with their 510(k) numbers if known.",
			Temperature:  0.3,
			MaxTokens:    2000,
		},
		{
			ID:           "risk_analyzer",
			Name:         "Risk Analyzer",
			Description:  "Identifies key risks and mitigations.",
			Model:        DefaultModel,
			Provider:     ProviderGemini,
			SystemPrompt: "Perform a preliminary ISO 14971 risk analysis. List top 5 hazards, foreseeable sequence of events, hazardous situations, and recommended harms/mitigations.",
			Temperature:  0.4,
			MaxTokens:    4000,
		},
	}
}
