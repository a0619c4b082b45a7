package workspace

import (
	"context"
	"fmt"
	"sync"
	"time"

	"regdraft-ai-api/internal/domain/entity"
	"regdraft-ai-api/internal/domain/service"
)

// fakeGenerator 记录每次请求，按调用序号决定返回
type fakeGenerator struct {
	mu      sync.Mutex
	calls   []service.GenerateRequest
	respond func(n int, req service.GenerateRequest) (string, error)
}

func (f *fakeGenerator) Generate(ctx context.Context, req service.GenerateRequest) (*service.GenerateResponse, error) {
	f.mu.Lock()
	n := len(f.calls)
	f.calls = append(f.calls, req)
	respond := f.respond
	f.mu.Unlock()

	if respond == nil {
		respond = echo
	}
	text, err := respond(n, req)
	if err != nil {
		return nil, err
	}
	return &service.GenerateResponse{
		Text:             text,
		Provider:         req.Provider,
		Model:            req.Model,
		PromptTokens:     3,
		CompletionTokens: 4,
	}, nil
}

func (f *fakeGenerator) Calls() []service.GenerateRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]service.GenerateRequest(nil), f.calls...)
}

func echo(n int, req service.GenerateRequest) (string, error) {
	return fmt.Sprintf("out-%d(%s)", n, req.Prompt), nil
}

func failAt(call int, msg string) func(int, service.GenerateRequest) (string, error) {
	return func(n int, req service.GenerateRequest) (string, error) {
		if n == call {
			return "", fmt.Errorf("%s", msg)
		}
		return echo(n, req)
	}
}

type capturePublisher struct {
	mu      sync.Mutex
	session []string
	entries []entity.LogEntry
	err     error
}

func (c *capturePublisher) PublishActivity(_ context.Context, sessionID string, entry entity.LogEntry, _ time.Time) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = append(c.session, sessionID)
	c.entries = append(c.entries, entry)
	return "1-0", c.err
}

// blockFirst 首次调用时通知 started 并阻塞到 release 关闭
func blockFirst(started, release chan struct{}, text string) func(int, service.GenerateRequest) (string, error) {
	return func(n int, req service.GenerateRequest) (string, error) {
		if n == 0 {
			close(started)
			<-release
		}
		if text != "" {
			return text, nil
		}
		return echo(n, req)
	}
}
