package workspace

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"regdraft-ai-api/internal/domain/entity"
	"regdraft-ai-api/internal/domain/service"
	"regdraft-ai-api/pkg/logger"
	"regdraft-ai-api/pkg/metrics"
	"regdraft-ai-api/pkg/tracer"
)

// 流水线日志文案
const (
	msgPipelineStart = "Starting pipeline run..."
	msgNotEnoughMana = "Not enough Mana (need 20)"
	msgNoInput       = "No input available from previous step."
)

// 运行模式
const (
	ModeAll    = "all"
	ModeSingle = "single"
)

// RunResult 一次流水线运行的结果
// 前置条件失败与上游失败都体现为 Status=aborted，而不是 error
type RunResult struct {
	Mode     string              `json:"mode"`
	Status   RunPhase            `json:"status"`
	Reason   string              `json:"reason,omitempty"`
	Executed []string            `json:"executed"`
	Outputs  map[string]string   `json:"outputs"`
	Ledger   entity.ResourceView `json:"ledger"`
	Logs     []entity.LogEntry   `json:"logs"`
}

// Pipeline 代理流水线：顺序链式执行或单步执行
type Pipeline struct {
	generator service.Generator
	now       func() time.Time
}

// NewPipeline 创建流水线
func NewPipeline(generator service.Generator) *Pipeline {
	return &Pipeline{generator: generator, now: time.Now}
}

// RunAll 按顺序执行全部步骤，第 i 步的输入为第 i-1 步的输出
// input 非 nil 时先覆盖共享初始输入
func (p *Pipeline) RunAll(ctx context.Context, sess *Session, input *string) (*RunResult, error) {
	if err := sess.TryBegin(MarkerAll); err != nil {
		return nil, err
	}
	defer sess.End()

	ctx, span := tracer.Start(ctx, "workspace.pipeline.RunAll")
	defer span.End()
	ctx = logger.WithContext(ctx, logger.SessionIDKey, sess.ID())

	if input != nil {
		sess.setInput(*input)
	}
	logMark := len(sess.Logs())
	sess.AppendLog(ctx, entity.LogInfo, msgPipelineStart)

	result := &RunResult{Mode: ModeAll, Status: PhaseCompleted, Executed: []string{}}
	prompt := sess.Input()
	for i, agent := range sess.Agents() {
		sess.setState(RunState{Phase: PhaseRunning, Step: i})

		text, reason, ok := p.runStep(ctx, sess, agent, prompt)
		if ok {
			result.Executed = append(result.Executed, agent.ID)
		}
		if ok && text == "" {
			ok = false
			reason = fmt.Sprintf("Agent %s returned no output.", agent.Name)
			sess.AppendLog(ctx, entity.LogError, reason)
		}
		if !ok {
			result.Status = PhaseAborted
			result.Reason = reason
			sess.setState(RunState{Phase: PhaseAborted, Step: i, Reason: reason})
			break
		}
		prompt = text
	}
	if result.Status == PhaseCompleted {
		sess.setState(RunState{Phase: PhaseCompleted, Step: len(result.Executed) - 1})
	}

	span.SetAttributes(
		attribute.String("workspace.run.status", string(result.Status)),
		attribute.Int("workspace.run.executed", len(result.Executed)),
	)
	metrics.PipelineRunsTotal.WithLabelValues(ModeAll, string(result.Status)).Inc()
	return p.finish(sess, result, logMark), nil
}

// RunSingle 执行单个步骤：位置 0 使用共享初始输入，其余使用前一步的已存输出
func (p *Pipeline) RunSingle(ctx context.Context, sess *Session, agentID string) (*RunResult, error) {
	agent, pos, err := sess.Agent(agentID)
	if err != nil {
		return nil, err
	}
	if err := sess.TryBegin(agent.ID); err != nil {
		return nil, err
	}
	defer sess.End()

	ctx, span := tracer.Start(ctx, "workspace.pipeline.RunSingle")
	defer span.End()
	span.SetAttributes(attribute.String("workspace.agent_id", agent.ID), attribute.Int("workspace.agent_pos", pos))
	ctx = logger.WithContext(ctx, logger.SessionIDKey, sess.ID())

	logMark := len(sess.Logs())
	result := &RunResult{Mode: ModeSingle, Status: PhaseCompleted, Executed: []string{}}
	sess.setState(RunState{Phase: PhaseRunning, Step: pos})

	prompt, ok := p.singleInput(sess, pos)
	if !ok {
		sess.AppendLog(ctx, entity.LogError, msgNoInput)
		result.Status = PhaseAborted
		result.Reason = msgNoInput
	} else {
		_, reason, ok := p.runStep(ctx, sess, agent, prompt)
		if ok {
			result.Executed = append(result.Executed, agent.ID)
		} else {
			result.Status = PhaseAborted
			result.Reason = reason
		}
	}

	if result.Status == PhaseAborted {
		sess.setState(RunState{Phase: PhaseAborted, Step: pos, Reason: result.Reason})
	} else {
		sess.setState(RunState{Phase: PhaseCompleted, Step: pos})
	}
	span.SetAttributes(attribute.String("workspace.run.status", string(result.Status)))
	metrics.PipelineRunsTotal.WithLabelValues(ModeSingle, string(result.Status)).Inc()
	return p.finish(sess, result, logMark), nil
}

func (p *Pipeline) singleInput(sess *Session, pos int) (string, bool) {
	if pos == 0 {
		return sess.Input(), true
	}
	prev := sess.Agents()[pos-1]
	out, ok := sess.Output(prev.ID)
	if !ok || out == "" {
		return "", false
	}
	return out, true
}

// runStep 门槛检查 → 调用 → 结算；失败时已写入错误日志并返回原因
func (p *Pipeline) runStep(ctx context.Context, sess *Session, agent entity.AgentStep, prompt string) (string, string, bool) {
	ctx = logger.WithContext(ctx, logger.AgentIDKey, agent.ID)

	if !sess.CanAfford(entity.LightCost) {
		sess.AppendLog(ctx, entity.LogError, msgNotEnoughMana)
		metrics.LedgerGateRejected.WithLabelValues(service.WorkflowPipelineStep).Inc()
		metrics.PipelineStepsTotal.WithLabelValues(agent.ID, "rejected").Inc()
		return "", msgNotEnoughMana, false
	}

	callCtx := service.WithSession(service.WithWorkflow(ctx, service.WorkflowPipelineStep), sess.ID())
	start := p.now()
	resp, err := p.generator.Generate(callCtx, service.GenerateRequest{
		Provider:          agent.Provider,
		Model:             agent.Model,
		Prompt:            prompt,
		SystemInstruction: agent.SystemPrompt,
		Temperature:       service.Float64(agent.Temperature),
		MaxOutputTokens:   agent.MaxTokens,
	})
	if err != nil {
		reason := fmt.Sprintf("Agent %s failed: %s", agent.Name, err.Error())
		sess.AppendLog(ctx, entity.LogError, reason)
		metrics.PipelineStepsTotal.WithLabelValues(agent.ID, "error").Inc()
		metrics.GeneratorCallsTotal.WithLabelValues(service.WorkflowPipelineStep, "error").Inc()
		logger.Warn(ctx, "pipeline step failed", "error", err.Error())
		return "", reason, false
	}

	provider := agent.Provider
	if resp.Provider != "" {
		provider = resp.Provider
	}
	// 空结果照常结算，但不覆盖已存输出
	if resp.Text != "" {
		_ = sess.storeOutput(agent.ID, resp.Text)
	}
	sess.settle(entity.LightCost, entity.StepExperience, provider, p.now().Sub(start), resp.TotalTokens())
	sess.AppendLog(ctx, entity.LogSuccess, fmt.Sprintf("Agent %s completed.", agent.Name))

	metrics.PipelineStepsTotal.WithLabelValues(agent.ID, "success").Inc()
	metrics.GeneratorCallsTotal.WithLabelValues(service.WorkflowPipelineStep, "success").Inc()
	metrics.LedgerDebitTotal.Add(entity.LightCost)
	return resp.Text, "", true
}

func (p *Pipeline) finish(sess *Session, result *RunResult, logMark int) *RunResult {
	result.Outputs = sess.Outputs()
	result.Ledger = sess.Ledger().View()
	logs := sess.Logs()
	if logMark > len(logs) {
		logMark = len(logs)
	}
	result.Logs = logs[logMark:]
	return result
}
