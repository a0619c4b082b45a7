package workspace

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"regdraft-ai-api/internal/config"
	"regdraft-ai-api/pkg/logger"
	"regdraft-ai-api/pkg/metrics"
)

const (
	defaultSessionTTL    = 24 * time.Hour
	defaultSweepInterval = 5 * time.Minute
)

// Store 进程内会话存储，重启后清空
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	ttl           time.Duration
	maxSessions   int
	sweepInterval time.Duration
	publisher     ActivityPublisher
	now           func() time.Time
}

// NewStore 创建会话存储；publisher 可为 nil
func NewStore(cfg config.WorkspaceConfig, publisher ActivityPublisher) *Store {
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	interval := cfg.SweepInterval
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	return &Store{
		sessions:      make(map[string]*Session),
		ttl:           ttl,
		maxSessions:   cfg.MaxSessions,
		sweepInterval: interval,
		publisher:     publisher,
		now:           time.Now,
	}
}

// Create 创建新会话；达到上限时先清理过期会话
func (s *Store) Create(ctx context.Context) (*Session, error) {
	if s.maxSessions > 0 && s.Len() >= s.maxSessions {
		s.Sweep(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.maxSessions > 0 && len(s.sessions) >= s.maxSessions {
		return nil, ErrSessionLimit
	}

	sess := NewSession(uuid.NewString(), s.now, s.publisher)
	s.sessions[sess.ID()] = sess
	metrics.ActiveSessions.Set(float64(len(s.sessions)))

	logger.Info(ctx, "workspace session created", "session_id", sess.ID())
	return sess, nil
}

// Get 获取会话并刷新访问时间
func (s *Store) Get(id string) (*Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	sess.Touch()
	return sess, nil
}

// Delete 删除会话
func (s *Store) Delete(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	metrics.ActiveSessions.Set(float64(len(s.sessions)))
	s.mu.Unlock()
}

// Len 当前会话数
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep 清理超过 TTL 未访问且空闲的会话，返回清理数量
func (s *Store) Sweep(ctx context.Context) int {
	cutoff := s.now().Add(-s.ttl)

	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, sess := range s.sessions {
		if sess.LastSeen().Before(cutoff) && !sess.IsBusy() {
			delete(s.sessions, id)
			removed++
		}
	}
	metrics.ActiveSessions.Set(float64(len(s.sessions)))
	if removed > 0 {
		logger.Info(ctx, "expired workspace sessions removed", "count", removed)
	}
	return removed
}

// Run 周期性清理，直到 ctx 结束
func (s *Store) Run(ctx context.Context) {
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}
