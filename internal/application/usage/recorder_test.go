package usage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"regdraft-ai-api/internal/domain/entity"
	"regdraft-ai-api/internal/domain/service"
)

type memoryRepo struct {
	events    []*entity.LLMUsageEvent
	createErr error
	start     time.Time
	end       time.Time
}

func (m *memoryRepo) Create(_ context.Context, evt *entity.LLMUsageEvent) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.events = append(m.events, evt)
	return nil
}

func (m *memoryRepo) GetTokenUsage(_ context.Context, sessionID string, start, end time.Time) (int64, error) {
	m.start, m.end = start, end
	var total int64
	for _, e := range m.events {
		if e.SessionID == sessionID {
			total += int64(e.TokensPrompt + e.TokensCompletion)
		}
	}
	return total, nil
}

func TestRecorder_Record(t *testing.T) {
	repo := &memoryRepo{}
	r := NewRecorder(repo)

	err := r.Record(context.Background(), service.LLMUsageInput{
		SessionID:        " s-1 ",
		Workflow:         "pipeline",
		Provider:         "gemini",
		Model:            "gemini-3-flash-preview",
		PromptTokens:     10,
		CompletionTokens: 5,
		DurationMs:       320,
		Success:          false,
	})
	require.NoError(t, err)
	require.Len(t, repo.events, 1)

	evt := repo.events[0]
	assert.Equal(t, "s-1", evt.SessionID)
	assert.Equal(t, "pipeline", evt.Workflow)
	assert.False(t, evt.Success)
	assert.Equal(t, 320, evt.DurationMs)
}

func TestRecorder_RecordDefaultsWorkflow(t *testing.T) {
	repo := &memoryRepo{}
	require.NoError(t, NewRecorder(repo).Record(context.Background(), service.LLMUsageInput{Provider: "openai"}))
	assert.Equal(t, "unknown", repo.events[0].Workflow)
}

func TestRecorder_RecordRejectsNegativeTokens(t *testing.T) {
	repo := &memoryRepo{}
	err := NewRecorder(repo).Record(context.Background(), service.LLMUsageInput{PromptTokens: -1})
	assert.Error(t, err)
	assert.Empty(t, repo.events)
}

func TestRecorder_RecordSwallowsStorageErrors(t *testing.T) {
	repo := &memoryRepo{createErr: errors.New("connection refused")}
	assert.NoError(t, NewRecorder(repo).Record(context.Background(), service.LLMUsageInput{Workflow: "notes"}))
}

func TestRecorder_Disabled(t *testing.T) {
	r := NewRecorder(nil)
	assert.False(t, r.Enabled())
	assert.NoError(t, r.Record(context.Background(), service.LLMUsageInput{}))

	used, err := r.TokensToday(context.Background(), "s-1")
	require.NoError(t, err)
	assert.Zero(t, used)
}

func TestRecorder_TokensToday(t *testing.T) {
	repo := &memoryRepo{}
	r := NewRecorder(repo)
	r.now = func() time.Time { return time.Date(2025, 6, 3, 17, 45, 0, 0, time.UTC) }

	ctx := context.Background()
	require.NoError(t, r.Record(ctx, service.LLMUsageInput{SessionID: "s-1", Workflow: "pipeline", PromptTokens: 3, CompletionTokens: 4}))
	require.NoError(t, r.Record(ctx, service.LLMUsageInput{SessionID: "s-2", Workflow: "pipeline", PromptTokens: 100}))

	used, err := r.TokensToday(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, int64(7), used)
	assert.Equal(t, time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC), repo.start)
	assert.Equal(t, time.Date(2025, 6, 4, 0, 0, 0, 0, time.UTC), repo.end)
}
