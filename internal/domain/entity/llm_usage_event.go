package entity

import "time"

// LLMUsageEvent 单次 LLM 调用的用量流水
type LLMUsageEvent struct {
	ID               string    `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SessionID        string    `json:"session_id" gorm:"type:varchar(64);index"`
	Workflow         string    `json:"workflow" gorm:"type:varchar(64);index;not null"`
	Provider         string    `json:"provider" gorm:"type:varchar(32);not null"`
	Model            string    `json:"model" gorm:"type:varchar(64);not null"`
	TokensPrompt     int       `json:"tokens_prompt" gorm:"not null;default:0"`
	TokensCompletion int       `json:"tokens_completion" gorm:"not null;default:0"`
	DurationMs       int       `json:"duration_ms" gorm:"not null;default:0"`
	Success          bool      `json:"success" gorm:"not null"`
	CreatedAt        time.Time `json:"created_at" gorm:"autoCreateTime"`
}

func (LLMUsageEvent) TableName() string {
	return "llm_usage_events"
}

// ActivityEvent 归档后的会话活动日志
type ActivityEvent struct {
	ID         string    `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	MessageID  string    `json:"message_id" gorm:"type:varchar(64);uniqueIndex;not null"`
	SessionID  string    `json:"session_id" gorm:"type:varchar(64);index;not null"`
	Type       LogType   `json:"type" gorm:"type:varchar(16);not null"`
	Msg        string    `json:"msg" gorm:"type:text;not null"`
	OccurredAt time.Time `json:"occurred_at" gorm:"index;not null"`
	CreatedAt  time.Time `json:"created_at" gorm:"autoCreateTime"`
}

func (ActivityEvent) TableName() string {
	return "workspace_activity_events"
}
