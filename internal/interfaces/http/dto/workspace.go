package dto

import (
	"time"

	"regdraft-ai-api/internal/application/workspace"
	"regdraft-ai-api/internal/domain/entity"
)

// SessionCreatedResponse 新建会话
type SessionCreatedResponse struct {
	SessionID string             `json:"session_id"`
	Token     string             `json:"token,omitempty"`
	Snapshot  workspace.Snapshot `json:"session"`
}

// ModelCatalogResponse 提供商模型目录
type ModelCatalogResponse struct {
	DefaultModel string                       `json:"default_model"`
	Providers    map[entity.Provider][]string `json:"providers"`
}

// AgentResponse 步骤定义与当前输出
type AgentResponse struct {
	entity.AgentStep
	Position  int    `json:"position"`
	Output    string `json:"output"`
	HasOutput bool   `json:"has_output"`
	Running   bool   `json:"running"`
}

// AgentListResponse 步骤列表
type AgentListResponse struct {
	Agents  []*AgentResponse   `json:"agents"`
	Input   string             `json:"input"`
	Running string             `json:"running"`
	State   workspace.RunState `json:"state"`
}

// ToAgentListResponse 组装步骤列表
func ToAgentListResponse(sess *workspace.Session) *AgentListResponse {
	agents := sess.Agents()
	outputs := sess.Outputs()
	running := sess.Running()

	resp := &AgentListResponse{
		Agents:  make([]*AgentResponse, 0, len(agents)),
		Input:   sess.Input(),
		Running: running,
		State:   sess.State(),
	}
	for i, a := range agents {
		out, ok := outputs[a.ID]
		resp.Agents = append(resp.Agents, &AgentResponse{
			AgentStep: a,
			Position:  i,
			Output:    out,
			HasOutput: ok,
			Running:   running == a.ID || running == workspace.MarkerAll,
		})
	}
	return resp
}

// ToAgentResponse 单个步骤
func ToAgentResponse(sess *workspace.Session, agent entity.AgentStep, pos int) *AgentResponse {
	out, ok := sess.Output(agent.ID)
	running := sess.Running()
	return &AgentResponse{
		AgentStep: agent,
		Position:  pos,
		Output:    out,
		HasOutput: ok,
		Running:   running == agent.ID || running == workspace.MarkerAll,
	}
}

// OutputResponse 手工编辑后的输出
type OutputResponse struct {
	AgentID string `json:"agent_id"`
	Output  string `json:"output"`
}

// DashboardResponse 仪表盘：调用统计、账本与最近日志
type DashboardResponse struct {
	Metrics     entity.MetricsSnapshot `json:"metrics"`
	Ledger      entity.ResourceView    `json:"ledger"`
	Logs        []entity.LogEntry      `json:"logs"`
	TokensToday *int64                 `json:"tokens_today,omitempty"`
}

// ActivityEventResponse 归档的活动日志
type ActivityEventResponse struct {
	MessageID  string         `json:"message_id"`
	Type       entity.LogType `json:"type"`
	Msg        string         `json:"msg"`
	OccurredAt string         `json:"occurred_at"`
}

// ActivityListResponse 归档日志列表
type ActivityListResponse struct {
	Events []*ActivityEventResponse `json:"events"`
}

// ToActivityListResponse 转换归档日志
func ToActivityListResponse(events []*entity.ActivityEvent) *ActivityListResponse {
	resp := &ActivityListResponse{Events: make([]*ActivityEventResponse, 0, len(events))}
	for _, e := range events {
		resp.Events = append(resp.Events, &ActivityEventResponse{
			MessageID:  e.MessageID,
			Type:       e.Type,
			Msg:        e.Msg,
			OccurredAt: e.OccurredAt.UTC().Format(time.RFC3339),
		})
	}
	return resp
}
