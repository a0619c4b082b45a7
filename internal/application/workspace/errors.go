package workspace

import "errors"

var (
	// ErrBusy 会话已有运行中的任务
	ErrBusy = errors.New("workspace is busy")
	// ErrSessionNotFound 会话不存在或已过期
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionLimit 会话数达到上限
	ErrSessionLimit = errors.New("session limit reached")
	// ErrAgentNotFound 步骤不存在
	ErrAgentNotFound = errors.New("agent not found")
	// ErrModelNotAllowed 模型不属于步骤的提供商
	ErrModelNotAllowed = errors.New("model not allowed for provider")
	// ErrInvalidMode 笔记工具模式无效
	ErrInvalidMode = errors.New("invalid notes mode")
	// ErrInvalidPreference 偏好设置取值无效
	ErrInvalidPreference = errors.New("invalid preference")
)
