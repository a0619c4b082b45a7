package handler

import (
	stderrors "errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"regdraft-ai-api/internal/application/workspace"
	"regdraft-ai-api/internal/domain/entity"
	"regdraft-ai-api/internal/interfaces/http/dto"
)

// PipelineHandler 代理流水线处理器
type PipelineHandler struct {
	pipeline *workspace.Pipeline
}

// NewPipelineHandler 创建流水线处理器
func NewPipelineHandler(pipeline *workspace.Pipeline) *PipelineHandler {
	return &PipelineHandler{pipeline: pipeline}
}

// ListModels 提供商模型目录
// @Summary 模型目录
// @Tags Pipeline
// @Produce json
// @Success 200 {object} dto.Response[dto.ModelCatalogResponse]
// @Router /v1/models [get]
func (h *PipelineHandler) ListModels(c *gin.Context) {
	dto.Success(c, &dto.ModelCatalogResponse{
		DefaultModel: entity.DefaultModel,
		Providers:    entity.ModelCatalog(),
	})
}

// ListAgents 步骤定义与输出
// @Summary 步骤列表
// @Tags Pipeline
// @Produce json
// @Success 200 {object} dto.Response[dto.AgentListResponse]
// @Router /v1/agents [get]
func (h *PipelineHandler) ListAgents(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	dto.Success(c, dto.ToAgentListResponse(sess))
}

// ChangeModel 修改步骤模型，模型必须属于该步骤的提供商
// @Summary 修改步骤模型
// @Tags Pipeline
// @Accept json
// @Produce json
// @Param id path string true "步骤 ID"
// @Param body body dto.ChangeModelRequest true "模型"
// @Success 200 {object} dto.Response[dto.AgentResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /v1/agents/{id}/model [put]
func (h *PipelineHandler) ChangeModel(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}

	var req dto.ChangeModelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	agent, err := sess.SetAgentModel(dto.BindAgentID(c), req.Model)
	if err != nil {
		respondError(c, err, "failed to change agent model")
		return
	}
	_, pos, _ := sess.Agent(agent.ID)
	dto.Success(c, dto.ToAgentResponse(sess, agent, pos))
}

// SetInput 设置共享初始输入
// @Summary 设置初始输入
// @Tags Pipeline
// @Accept json
// @Produce json
// @Param body body dto.SetInputRequest true "初始输入"
// @Success 200 {object} dto.Response[dto.AgentListResponse]
// @Failure 409 {object} dto.ErrorResponse
// @Router /v1/pipeline/input [put]
func (h *PipelineHandler) SetInput(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}

	var req dto.SetInputRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	if err := sess.SetInput(req.Input); err != nil {
		respondError(c, err, "failed to set pipeline input")
		return
	}
	dto.Success(c, dto.ToAgentListResponse(sess))
}

// RunAll 顺序执行全部步骤
// 法力不足、缺少输入或上游失败时仍返回 200，结果中 status=aborted
// @Summary 运行流水线
// @Tags Pipeline
// @Accept json
// @Produce json
// @Param body body dto.RunPipelineRequest false "可选的初始输入"
// @Success 200 {object} dto.Response[workspace.RunResult]
// @Failure 409 {object} dto.ErrorResponse
// @Router /v1/pipeline/run [post]
func (h *PipelineHandler) RunAll(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}

	// 请求体可选；分块传输时 ContentLength 为 -1，按 EOF 判断是否为空
	var req dto.RunPipelineRequest
	if c.Request.Body != nil && c.Request.Body != http.NoBody {
		if err := c.ShouldBindJSON(&req); err != nil && !stderrors.Is(err, io.EOF) {
			dto.BadRequest(c, "invalid request body: "+err.Error())
			return
		}
	}

	result, err := h.pipeline.RunAll(c.Request.Context(), sess, req.Input)
	if err != nil {
		respondError(c, err, "failed to run pipeline")
		return
	}
	dto.Success(c, result)
}

// RunSingle 执行单个步骤
// @Summary 运行单个步骤
// @Tags Pipeline
// @Produce json
// @Param id path string true "步骤 ID"
// @Success 200 {object} dto.Response[workspace.RunResult]
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /v1/pipeline/agents/{id}/run [post]
func (h *PipelineHandler) RunSingle(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}

	result, err := h.pipeline.RunSingle(c.Request.Context(), sess, dto.BindAgentID(c))
	if err != nil {
		respondError(c, err, "failed to run agent")
		return
	}
	dto.Success(c, result)
}

// SetOutput 手工编辑步骤输出
// @Summary 编辑步骤输出
// @Tags Pipeline
// @Accept json
// @Produce json
// @Param id path string true "步骤 ID"
// @Param body body dto.SetOutputRequest true "输出"
// @Success 200 {object} dto.Response[dto.OutputResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /v1/pipeline/outputs/{id} [put]
func (h *PipelineHandler) SetOutput(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}

	var req dto.SetOutputRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	agentID := dto.BindAgentID(c)
	if err := sess.SetOutput(agentID, req.Output); err != nil {
		respondError(c, err, "failed to set agent output")
		return
	}
	dto.Success(c, &dto.OutputResponse{AgentID: agentID, Output: req.Output})
}
