package workspace

import (
	"context"
	"fmt"
	"strings"
	"time"

	"regdraft-ai-api/internal/domain/entity"
	"regdraft-ai-api/internal/domain/service"
	"regdraft-ai-api/internal/workflow/prompt"
	"regdraft-ai-api/pkg/logger"
	"regdraft-ai-api/pkg/metrics"
	"regdraft-ai-api/pkg/tracer"
)

// NotesMode 笔记工具模式
type NotesMode string

const (
	NotesMarkdown NotesMode = "markdown"
	NotesEntities NotesMode = "entities"
	NotesQuiz     NotesMode = "quiz"
)

const (
	notesTemperature = 0.3
	notesMaxTokens   = 4000

	// NotesErrorResult 调用失败时写入的固定结果
	NotesErrorResult = "Error running tool."
)

var notesModeAliases = map[string]NotesMode{
	"markdown":                        NotesMarkdown,
	"transform → structured markdown": NotesMarkdown,
	"structured markdown":             NotesMarkdown,
	"entities":                        NotesEntities,
	"entity extraction":               NotesEntities,
	"quiz":                            NotesQuiz,
}

// ParseNotesMode 解析模式，兼容界面上的选项文案
func ParseNotesMode(s string) (NotesMode, error) {
	if m, ok := notesModeAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return m, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

func (m NotesMode) valid() bool {
	switch m {
	case NotesMarkdown, NotesEntities, NotesQuiz:
		return true
	}
	return false
}

func (m NotesMode) promptID() prompt.PromptID {
	switch m {
	case NotesEntities:
		return prompt.PromptNotesEntitiesV1
	case NotesQuiz:
		return prompt.PromptNotesQuizV1
	default:
		return prompt.PromptNotesMarkdownV1
	}
}

// NotesResult 笔记工具执行结果
type NotesResult struct {
	GenerationResult
	Notes NotesState `json:"notes"`
}

// NotesTool 原始文本转换：结构化 Markdown、实体抽取、测验生成
type NotesTool struct {
	generator service.Generator
	prompts   *prompt.Registry
	// gate 为 true 时与流水线步骤相同，需要并扣除 20 法力
	gate bool
	now  func() time.Time
}

// NewNotesTool 创建笔记工具
func NewNotesTool(generator service.Generator, prompts *prompt.Registry, gate bool) *NotesTool {
	return &NotesTool{generator: generator, prompts: prompts, gate: gate, now: time.Now}
}

// Transform 以原始文本为提示词调用一次模型，成功时整体替换结果
func (t *NotesTool) Transform(ctx context.Context, sess *Session, mode NotesMode, text string) (*NotesResult, error) {
	if !mode.valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}
	if err := sess.TryBegin(MarkerNotes); err != nil {
		return nil, err
	}
	defer sess.End()

	ctx, span := tracer.Start(ctx, "workspace.notes.Transform")
	defer span.End()
	ctx = logger.WithContext(ctx, logger.SessionIDKey, sess.ID())
	logMark := len(sess.Logs())

	state := sess.Notes()
	state.Mode = mode
	state.Text = text
	sess.setNotes(state)

	if strings.TrimSpace(text) == "" {
		return t.result(sess, PhaseIdle, "", logMark), nil
	}
	if t.gate && !sess.CanAfford(entity.LightCost) {
		sess.AppendLog(ctx, entity.LogError, msgNotEnoughMana)
		metrics.LedgerGateRejected.WithLabelValues(service.WorkflowNotesTool).Inc()
		return t.result(sess, PhaseAborted, msgNotEnoughMana, logMark), nil
	}

	system, user, err := t.prompts.Render(ctx, mode.promptID(), map[string]any{"text": text})
	if err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}

	start := t.now()
	resp, err := t.generator.Generate(service.WithSession(service.WithWorkflow(ctx, service.WorkflowNotesTool), sess.ID()), service.GenerateRequest{
		Provider:          entity.ProviderGemini,
		Model:             entity.DefaultModel,
		Prompt:            user,
		SystemInstruction: system,
		Temperature:       service.Float64(notesTemperature),
		MaxOutputTokens:   notesMaxTokens,
	})
	if err != nil {
		state.Result = NotesErrorResult
		sess.setNotes(state)
		reason := "Notes tool failed: " + err.Error()
		sess.AppendLog(ctx, entity.LogError, reason)
		metrics.GeneratorCallsTotal.WithLabelValues(service.WorkflowNotesTool, "error").Inc()
		return t.result(sess, PhaseAborted, reason, logMark), nil
	}

	state.Result = resp.Text
	sess.setNotes(state)
	cost := 0
	if t.gate {
		cost = entity.LightCost
		metrics.LedgerDebitTotal.Add(entity.LightCost)
	}
	sess.settle(cost, 0, entity.ProviderGemini, t.now().Sub(start), resp.TotalTokens())
	metrics.GeneratorCallsTotal.WithLabelValues(service.WorkflowNotesTool, "success").Inc()
	return t.result(sess, PhaseCompleted, "", logMark), nil
}

func (t *NotesTool) result(sess *Session, status RunPhase, reason string, logMark int) *NotesResult {
	return &NotesResult{
		GenerationResult: newGenerationResult(sess, status, reason, logMark),
		Notes:            sess.Notes(),
	}
}
