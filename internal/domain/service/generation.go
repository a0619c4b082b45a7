package service

import (
	"context"

	"regdraft-ai-api/internal/domain/entity"
)

// 生成请求默认值
const (
	DefaultTemperature     = 0.5
	DefaultMaxOutputTokens = 2000
)

// GenerateRequest 一次文本生成请求
type GenerateRequest struct {
	// Provider 为空时按模型反查，仍无法确定则使用默认提供商
	Provider          entity.Provider
	Model             string
	Prompt            string
	SystemInstruction string
	// Temperature 为 nil 时使用 DefaultTemperature
	Temperature     *float64
	MaxOutputTokens int
}

// EffectiveTemperature 返回实际采样温度
func (r GenerateRequest) EffectiveTemperature() float64 {
	if r.Temperature == nil {
		return DefaultTemperature
	}
	return *r.Temperature
}

// EffectiveMaxOutputTokens 返回实际最大输出 token 数
func (r GenerateRequest) EffectiveMaxOutputTokens() int {
	if r.MaxOutputTokens <= 0 {
		return DefaultMaxOutputTokens
	}
	return r.MaxOutputTokens
}

// GenerateResponse 生成结果，Text 允许为空
type GenerateResponse struct {
	Text             string
	Provider         entity.Provider
	Model            string
	PromptTokens     int
	CompletionTokens int
}

// TotalTokens 总 token 数
func (r *GenerateResponse) TotalTokens() int {
	if r == nil {
		return 0
	}
	return r.PromptTokens + r.CompletionTokens
}

// Generator 文本生成客户端
// 失败时返回的 error 文本会原样写入会话日志
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
}

// Float64 返回指针，便于构造 GenerateRequest
func Float64(v float64) *float64 {
	return &v
}
