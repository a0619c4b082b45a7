// Package workspace 实现法规文档起草工作区：会话状态、代理流水线与独立生成器
package workspace

import (
	"context"
	"fmt"
	"sync"
	"time"

	"regdraft-ai-api/internal/domain/entity"
	"regdraft-ai-api/pkg/logger"
)

// RunPhase 流水线运行阶段
type RunPhase string

const (
	PhaseIdle      RunPhase = "idle"
	PhaseRunning   RunPhase = "running"
	PhaseAborted   RunPhase = "aborted"
	PhaseCompleted RunPhase = "completed"
)

// 会话运行标记；run-single 使用步骤 ID。同一会话同一时刻只允许一个生成调用
const (
	MarkerAll     = "all"
	MarkerSummary = "summary"
	MarkerNotes   = "notes"
)

// RunState 流水线状态机：Idle → Running(i) → Completed | Aborted(reason)
type RunState struct {
	Phase  RunPhase `json:"phase"`
	Step   int      `json:"step"`
	Reason string   `json:"reason,omitempty"`
}

// SummaryState 设备摘要生成器的会话状态
type SummaryState struct {
	DeviceName        string `json:"device_name"`
	DeviceDescription string `json:"device_description"`
	Model             string `json:"model"`
	Document          string `json:"document"`
	Instruction       string `json:"instruction"`
}

// NotesState 笔记工具的会话状态
type NotesState struct {
	Mode   NotesMode `json:"mode"`
	Text   string    `json:"text"`
	Result string    `json:"result"`
}

// ActivityPublisher 会话日志的外部投递（可选）
type ActivityPublisher interface {
	PublishActivity(ctx context.Context, sessionID string, entry entity.LogEntry, occurredAt time.Time) (string, error)
}

// Session 工作区会话上下文，所有变更经由方法完成并由互斥锁保护
type Session struct {
	id        string
	createdAt time.Time
	now       func() time.Time
	publisher ActivityPublisher

	mu       sync.Mutex
	lastSeen time.Time
	running  string
	state    RunState
	ledger   entity.ResourceState
	agents   []entity.AgentStep
	outputs  map[string]string
	input    string
	logs     []entity.LogEntry
	metrics  entity.MetricsSnapshot
	prefs    entity.Preferences
	summary  SummaryState
	notes    NotesState
}

// NewSession 以种子数据创建会话
func NewSession(id string, now func() time.Time, publisher ActivityPublisher) *Session {
	if now == nil {
		now = time.Now
	}
	t := now()
	return &Session{
		id:        id,
		createdAt: t,
		now:       now,
		publisher: publisher,
		lastSeen:  t,
		state:     RunState{Phase: PhaseIdle},
		ledger:    entity.NewResourceState(),
		agents:    entity.DefaultAgents(),
		outputs:   make(map[string]string),
		metrics:   entity.NewMetricsSnapshot(),
		prefs:     entity.DefaultPreferences(),
		summary:   SummaryState{Model: entity.DefaultModel},
		notes:     NotesState{Mode: NotesMarkdown},
	}
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) CreatedAt() time.Time {
	return s.createdAt
}

// Touch 刷新最近访问时间
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastSeen = s.now()
	s.mu.Unlock()
}

func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// TryBegin 占用运行标记；已有运行时返回 ErrBusy 且不做任何变更
func (s *Session) TryBegin(marker string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running != "" {
		return ErrBusy
	}
	s.running = marker
	return nil
}

// End 释放运行标记
func (s *Session) End() {
	s.mu.Lock()
	s.running = ""
	s.mu.Unlock()
}

// IsBusy 是否有生成调用进行中
func (s *Session) IsBusy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running != ""
}

// Running 返回运行标记："" / "all" / 步骤 ID / "summary" / "notes"
func (s *Session) Running() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Session) setState(state RunState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// State 当前流水线状态
func (s *Session) State() RunState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// CanAfford 账本是否足以支付 cost
func (s *Session) CanAfford(cost int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.CanAfford(cost)
}

// Debit 扣减法力，结果截断到 [0,100]
func (s *Session) Debit(cost int) {
	s.mu.Lock()
	s.ledger.Debit(cost)
	s.mu.Unlock()
}

// Credit 增加经验值，等级随之重新计算
func (s *Session) Credit(experience int) {
	s.mu.Lock()
	s.ledger.CreditExperience(experience)
	s.mu.Unlock()
}

// settle 一次成功调用的账本与统计结算
func (s *Session) settle(cost, experience int, provider entity.Provider, duration time.Duration, tokens int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ledger.Debit(cost)
	s.ledger.CreditExperience(experience)
	s.metrics.Record(provider, duration, tokens)
}

// Ledger 账本快照
func (s *Session) Ledger() entity.ResourceState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger
}

// AppendLog 追加日志条目，配置了 publisher 时同时投递
func (s *Session) AppendLog(ctx context.Context, typ entity.LogType, msg string) entity.LogEntry {
	at := s.now()
	entry := entity.NewLogEntry(at, typ, msg)

	s.mu.Lock()
	s.logs = append(s.logs, entry)
	s.mu.Unlock()

	if s.publisher != nil {
		if _, err := s.publisher.PublishActivity(ctx, s.id, entry, at); err != nil {
			logger.Warn(ctx, "failed to publish activity log", "error", err.Error())
		}
	}
	return entry
}

// Logs 按追加顺序返回日志
func (s *Session) Logs() []entity.LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]entity.LogEntry(nil), s.logs...)
}

// RecentLogs 最新在前，limit<=0 表示全部
func (s *Session) RecentLogs(limit int) []entity.LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.logs)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]entity.LogEntry, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, s.logs[i])
	}
	return out
}

// Metrics 调用统计快照
func (s *Session) Metrics() entity.MetricsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.metrics.Clone()
}

// Agents 步骤定义副本
func (s *Session) Agents() []entity.AgentStep {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]entity.AgentStep(nil), s.agents...)
}

// Agent 按 ID 查找步骤及其位置
func (s *Session) Agent(id string) (entity.AgentStep, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, a := range s.agents {
		if a.ID == id {
			return a, i, nil
		}
	}
	return entity.AgentStep{}, -1, fmt.Errorf("%w: %s", ErrAgentNotFound, id)
}

// SetAgentModel 修改步骤模型，模型必须属于该步骤的提供商；生成进行中返回 ErrBusy
func (s *Session) SetAgentModel(id, model string) (entity.AgentStep, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running != "" {
		return entity.AgentStep{}, ErrBusy
	}
	for i, a := range s.agents {
		if a.ID != id {
			continue
		}
		updated, err := a.WithModel(model)
		if err != nil {
			return a, fmt.Errorf("%w: %v", ErrModelNotAllowed, err)
		}
		s.agents[i] = updated
		return updated, nil
	}
	return entity.AgentStep{}, fmt.Errorf("%w: %s", ErrAgentNotFound, id)
}

// SetOutput 手工写入步骤输出（覆盖旧值）；生成进行中返回 ErrBusy
func (s *Session) SetOutput(id, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running != "" {
		return ErrBusy
	}
	return s.storeOutputLocked(id, text)
}

func (s *Session) storeOutput(id, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.storeOutputLocked(id, text)
}

func (s *Session) storeOutputLocked(id, text string) error {
	if !s.hasAgentLocked(id) {
		return fmt.Errorf("%w: %s", ErrAgentNotFound, id)
	}
	s.outputs[id] = text
	return nil
}

// Output 返回步骤输出；从未运行时 ok 为 false
func (s *Session) Output(id string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.outputs[id]
	return v, ok
}

// Outputs 输出副本
func (s *Session) Outputs() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.outputs))
	for k, v := range s.outputs {
		out[k] = v
	}
	return out
}

func (s *Session) hasAgentLocked(id string) bool {
	for _, a := range s.agents {
		if a.ID == id {
			return true
		}
	}
	return false
}

// Input 流水线共享初始输入
func (s *Session) Input() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.input
}

// SetInput 设置共享初始输入；生成进行中返回 ErrBusy
func (s *Session) SetInput(input string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running != "" {
		return ErrBusy
	}
	s.input = input
	return nil
}

func (s *Session) setInput(input string) {
	s.mu.Lock()
	s.input = input
	s.mu.Unlock()
}

// Preferences 展示偏好
func (s *Session) Preferences() entity.Preferences {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prefs
}

// UpdatePreferences 校验并应用偏好补丁
func (s *Session) UpdatePreferences(patch entity.PreferencesPatch) (entity.Preferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	updated, err := s.prefs.Apply(patch)
	if err != nil {
		return s.prefs, fmt.Errorf("%w: %v", ErrInvalidPreference, err)
	}
	s.prefs = updated
	return updated, nil
}

// Summary 设备摘要状态
func (s *Session) Summary() SummaryState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summary
}

func (s *Session) updateSummary(fn func(*SummaryState)) SummaryState {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.summary)
	return s.summary
}

// SetSummaryDocument 手动编辑文档
func (s *Session) SetSummaryDocument(doc string) SummaryState {
	return s.updateSummary(func(st *SummaryState) { st.Document = doc })
}

// Notes 笔记工具状态
func (s *Session) Notes() NotesState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.notes
}

func (s *Session) setNotes(st NotesState) {
	s.mu.Lock()
	s.notes = st
	s.mu.Unlock()
}

// Snapshot 会话整体视图
type Snapshot struct {
	ID          string                 `json:"id"`
	CreatedAt   time.Time              `json:"created_at"`
	Running     string                 `json:"running"`
	Busy        bool                   `json:"busy"`
	State       RunState               `json:"state"`
	Ledger      entity.ResourceView    `json:"ledger"`
	Metrics     entity.MetricsSnapshot `json:"metrics"`
	Preferences entity.Preferences     `json:"preferences"`
	Input       string                 `json:"input"`
	Outputs     map[string]string      `json:"outputs"`
	Summary     SummaryState           `json:"summary"`
	Notes       NotesState             `json:"notes"`
}

// Snapshot 一次性读取会话状态
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	outputs := make(map[string]string, len(s.outputs))
	for k, v := range s.outputs {
		outputs[k] = v
	}
	return Snapshot{
		ID:          s.id,
		CreatedAt:   s.createdAt,
		Running:     s.running,
		Busy:        s.running != "",
		State:       s.state,
		Ledger:      s.ledger.View(),
		Metrics:     s.metrics.Clone(),
		Preferences: s.prefs,
		Input:       s.input,
		Outputs:     outputs,
		Summary:     s.summary,
		Notes:       s.notes,
	}
}
