// Package eino 注册 Eino 全局回调：指标、追踪与用量流水
package eino

import (
	"sync"

	einocallbacks "github.com/cloudwego/eino/callbacks"
	cbtemplate "github.com/cloudwego/eino/utils/callbacks"

	"regdraft-ai-api/internal/domain/service"
)

var initOnce sync.Once

// Init 注册 Eino 全局 callbacks（进程级一次）
// recorder 可为 nil，此时只上报指标与追踪
func Init(recorder service.LLMUsageRecorder) {
	initOnce.Do(func() {
		einocallbacks.AppendGlobalHandlers(NewHandler(recorder))
	})
}

// NewHandler 构建 ChatModel 回调 handler，供 Init 或测试直接注入
func NewHandler(recorder service.LLMUsageRecorder) einocallbacks.Handler {
	return cbtemplate.NewHandlerHelper().
		ChatModel(newChatModelCallbackHandler(recorder)).
		Handler()
}
