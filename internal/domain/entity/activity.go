package entity

import "time"

// LogType 日志条目级别
type LogType string

const (
	LogInfo    LogType = "info"
	LogSuccess LogType = "success"
	LogError   LogType = "error"
)

// LogTimeLayout 日志条目的展示时间格式
const LogTimeLayout = "15:04:05"

// LogEntry 会话活动日志条目，仅追加
type LogEntry struct {
	Time string  `json:"time"`
	Type LogType `json:"type"`
	Msg  string  `json:"msg"`
}

// NewLogEntry 以给定时刻创建日志条目
func NewLogEntry(at time.Time, typ LogType, msg string) LogEntry {
	return LogEntry{Time: at.Format(LogTimeLayout), Type: typ, Msg: msg}
}

// MetricsSnapshot 会话级调用统计，仅在调用成功时更新
type MetricsSnapshot struct {
	TotalRuns       int              `json:"total_runs"`
	ProviderCalls   map[Provider]int `json:"provider_calls"`
	TokensUsed      int              `json:"tokens_used"`
	LastRunDuration float64          `json:"last_run_duration"`
}

// NewMetricsSnapshot 所有已知提供商计数初始化为 0
func NewMetricsSnapshot() MetricsSnapshot {
	calls := make(map[Provider]int, len(KnownProviders))
	for _, p := range KnownProviders {
		calls[p] = 0
	}
	return MetricsSnapshot{ProviderCalls: calls}
}

// Record 记录一次成功调用
func (m *MetricsSnapshot) Record(provider Provider, duration time.Duration, tokens int) {
	if m.ProviderCalls == nil {
		m.ProviderCalls = make(map[Provider]int, len(KnownProviders))
	}
	m.TotalRuns++
	m.ProviderCalls[provider]++
	if tokens > 0 {
		m.TokensUsed += tokens
	}
	m.LastRunDuration = duration.Seconds()
}

// Clone 深拷贝
func (m MetricsSnapshot) Clone() MetricsSnapshot {
	calls := make(map[Provider]int, len(m.ProviderCalls))
	for k, v := range m.ProviderCalls {
		calls[k] = v
	}
	m.ProviderCalls = calls
	return m
}
