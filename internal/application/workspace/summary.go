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

const (
	summaryTemperature = 0.4
	refineTemperature  = 0.3
	summaryMaxTokens   = 8000

	msgSummaryFieldsRequired = "Device name and description required."
	msgSummaryNeedMana       = "Need 50 Mana for deep summary."
	msgSummaryStart          = "Generating comprehensive device summary..."
	msgSummaryDone           = "Device summary generated successfully."
	msgRefineStart           = "Refining summary..."
	msgRefineDone            = "Summary refined."
	msgNothingToRefine       = "document and instruction required"
)

// SummaryRequest 设备摘要生成参数
type SummaryRequest struct {
	DeviceName        string
	DeviceDescription string
	// Model 为空时使用默认模型
	Model string
}

// GenerationResult 独立生成器的执行结果
type GenerationResult struct {
	Status RunPhase            `json:"status"`
	Reason string              `json:"reason,omitempty"`
	Ledger entity.ResourceView `json:"ledger"`
	Logs   []entity.LogEntry   `json:"logs"`
}

// SummaryResult 摘要生成或精修结果
type SummaryResult struct {
	GenerationResult
	Summary SummaryState `json:"summary"`
}

// SummaryGenerator 设备摘要生成与精修
type SummaryGenerator struct {
	generator service.Generator
	prompts   *prompt.Registry
	now       func() time.Time
}

// NewSummaryGenerator 创建摘要生成器
func NewSummaryGenerator(generator service.Generator, prompts *prompt.Registry) *SummaryGenerator {
	return &SummaryGenerator{generator: generator, prompts: prompts, now: time.Now}
}

// Generate 生成完整设备摘要，消耗 50 法力并获得 50 经验
func (g *SummaryGenerator) Generate(ctx context.Context, sess *Session, req SummaryRequest) (*SummaryResult, error) {
	modelName := strings.TrimSpace(req.Model)
	if modelName == "" {
		modelName = entity.DefaultModel
	}
	provider, ok := entity.ProviderForModel(modelName)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrModelNotAllowed, modelName)
	}
	if err := sess.TryBegin(MarkerSummary); err != nil {
		return nil, err
	}
	defer sess.End()

	ctx, span := tracer.Start(ctx, "workspace.summary.Generate")
	defer span.End()
	ctx = logger.WithContext(ctx, logger.SessionIDKey, sess.ID())
	logMark := len(sess.Logs())

	sess.updateSummary(func(st *SummaryState) {
		st.DeviceName = req.DeviceName
		st.DeviceDescription = req.DeviceDescription
		st.Model = modelName
	})

	if strings.TrimSpace(req.DeviceName) == "" || strings.TrimSpace(req.DeviceDescription) == "" {
		sess.AppendLog(ctx, entity.LogError, msgSummaryFieldsRequired)
		return g.result(sess, PhaseAborted, msgSummaryFieldsRequired, logMark), nil
	}
	if !sess.CanAfford(entity.HeavyCost) {
		sess.AppendLog(ctx, entity.LogError, msgSummaryNeedMana)
		metrics.LedgerGateRejected.WithLabelValues(service.WorkflowDeviceSummary).Inc()
		return g.result(sess, PhaseAborted, msgSummaryNeedMana, logMark), nil
	}

	sess.AppendLog(ctx, entity.LogInfo, msgSummaryStart)
	system, user, err := g.prompts.Render(ctx, prompt.PromptDeviceSummaryV1, map[string]any{
		"device_name":        req.DeviceName,
		"device_description": req.DeviceDescription,
	})
	if err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}

	start := g.now()
	resp, err := g.generator.Generate(service.WithSession(service.WithWorkflow(ctx, service.WorkflowDeviceSummary), sess.ID()), service.GenerateRequest{
		Provider:          provider,
		Model:             modelName,
		Prompt:            user,
		SystemInstruction: system,
		Temperature:       service.Float64(summaryTemperature),
		MaxOutputTokens:   summaryMaxTokens,
	})
	if err != nil {
		reason := "Generation failed: " + err.Error()
		sess.AppendLog(ctx, entity.LogError, reason)
		metrics.GeneratorCallsTotal.WithLabelValues(service.WorkflowDeviceSummary, "error").Inc()
		return g.result(sess, PhaseAborted, reason, logMark), nil
	}

	sess.updateSummary(func(st *SummaryState) { st.Document = resp.Text })
	sess.settle(entity.HeavyCost, entity.SummaryExperience, provider, g.now().Sub(start), resp.TotalTokens())
	sess.AppendLog(ctx, entity.LogSuccess, msgSummaryDone)
	metrics.GeneratorCallsTotal.WithLabelValues(service.WorkflowDeviceSummary, "success").Inc()
	metrics.LedgerDebitTotal.Add(entity.HeavyCost)
	return g.result(sess, PhaseCompleted, "", logMark), nil
}

// Refine 按指令重写当前文档，成功后整体替换文档并清空指令
// 使用最近一次生成的模型，不做法力门槛检查
func (g *SummaryGenerator) Refine(ctx context.Context, sess *Session, instruction string) (*SummaryResult, error) {
	if err := sess.TryBegin(MarkerSummary); err != nil {
		return nil, err
	}
	defer sess.End()

	ctx, span := tracer.Start(ctx, "workspace.summary.Refine")
	defer span.End()
	ctx = logger.WithContext(ctx, logger.SessionIDKey, sess.ID())
	logMark := len(sess.Logs())

	current := sess.updateSummary(func(st *SummaryState) { st.Instruction = instruction })
	if current.Document == "" || strings.TrimSpace(instruction) == "" {
		return g.result(sess, PhaseIdle, msgNothingToRefine, logMark), nil
	}

	modelName := current.Model
	if modelName == "" {
		modelName = entity.DefaultModel
	}
	provider, _ := entity.ProviderForModel(modelName)

	sess.AppendLog(ctx, entity.LogInfo, msgRefineStart)
	system, user, err := g.prompts.Render(ctx, prompt.PromptSummaryRefineV1, map[string]any{
		"document":    current.Document,
		"instruction": instruction,
	})
	if err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}

	start := g.now()
	resp, err := g.generator.Generate(service.WithSession(service.WithWorkflow(ctx, service.WorkflowSummaryRefine), sess.ID()), service.GenerateRequest{
		Provider:          provider,
		Model:             modelName,
		Prompt:            user,
		SystemInstruction: system,
		Temperature:       service.Float64(refineTemperature),
		MaxOutputTokens:   summaryMaxTokens,
	})
	if err != nil {
		reason := "Refinement failed: " + err.Error()
		sess.AppendLog(ctx, entity.LogError, reason)
		metrics.GeneratorCallsTotal.WithLabelValues(service.WorkflowSummaryRefine, "error").Inc()
		return g.result(sess, PhaseAborted, reason, logMark), nil
	}

	sess.updateSummary(func(st *SummaryState) {
		st.Document = resp.Text
		st.Instruction = ""
	})
	sess.settle(0, 0, provider, g.now().Sub(start), resp.TotalTokens())
	sess.AppendLog(ctx, entity.LogSuccess, msgRefineDone)
	metrics.GeneratorCallsTotal.WithLabelValues(service.WorkflowSummaryRefine, "success").Inc()
	return g.result(sess, PhaseCompleted, "", logMark), nil
}

func (g *SummaryGenerator) result(sess *Session, status RunPhase, reason string, logMark int) *SummaryResult {
	return &SummaryResult{
		GenerationResult: newGenerationResult(sess, status, reason, logMark),
		Summary:          sess.Summary(),
	}
}

func newGenerationResult(sess *Session, status RunPhase, reason string, logMark int) GenerationResult {
	logs := sess.Logs()
	if logMark > len(logs) {
		logMark = len(logs)
	}
	return GenerationResult{
		Status: status,
		Reason: reason,
		Ledger: sess.Ledger().View(),
		Logs:   logs[logMark:],
	}
}
