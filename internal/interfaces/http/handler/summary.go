package handler

import (
	"github.com/gin-gonic/gin"

	"regdraft-ai-api/internal/application/workspace"
	"regdraft-ai-api/internal/interfaces/http/dto"
)

// SummaryHandler 设备摘要处理器
type SummaryHandler struct {
	generator *workspace.SummaryGenerator
}

// NewSummaryHandler 创建设备摘要处理器
func NewSummaryHandler(generator *workspace.SummaryGenerator) *SummaryHandler {
	return &SummaryHandler{generator: generator}
}

// GetSummary 当前摘要状态
// @Summary 获取摘要
// @Tags Summary
// @Produce json
// @Success 200 {object} dto.Response[workspace.SummaryState]
// @Router /v1/summary [get]
func (h *SummaryHandler) GetSummary(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	dto.Success(c, sess.Summary())
}

// GenerateSummary 生成完整设备摘要（50 法力）
// @Summary 生成设备摘要
// @Tags Summary
// @Accept json
// @Produce json
// @Param body body dto.GenerateSummaryRequest true "设备信息"
// @Success 200 {object} dto.Response[workspace.SummaryResult]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /v1/summary/generate [post]
func (h *SummaryHandler) GenerateSummary(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}

	var req dto.GenerateSummaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	result, err := h.generator.Generate(c.Request.Context(), sess, workspace.SummaryRequest{
		DeviceName:        req.DeviceName,
		DeviceDescription: req.DeviceDescription,
		Model:             req.Model,
	})
	if err != nil {
		respondError(c, err, "failed to generate summary")
		return
	}
	dto.Success(c, result)
}

// RefineSummary 按指令精修摘要
// @Summary 精修摘要
// @Tags Summary
// @Accept json
// @Produce json
// @Param body body dto.RefineSummaryRequest true "精修指令"
// @Success 200 {object} dto.Response[workspace.SummaryResult]
// @Failure 409 {object} dto.ErrorResponse
// @Router /v1/summary/refine [post]
func (h *SummaryHandler) RefineSummary(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}

	var req dto.RefineSummaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	result, err := h.generator.Refine(c.Request.Context(), sess, req.Instruction)
	if err != nil {
		respondError(c, err, "failed to refine summary")
		return
	}
	dto.Success(c, result)
}

// UpdateSummary 手工编辑摘要文档
// @Summary 编辑摘要
// @Tags Summary
// @Accept json
// @Produce json
// @Param body body dto.UpdateSummaryRequest true "文档"
// @Success 200 {object} dto.Response[workspace.SummaryState]
// @Router /v1/summary [put]
func (h *SummaryHandler) UpdateSummary(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}

	var req dto.UpdateSummaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	dto.Success(c, sess.SetSummaryDocument(req.Document))
}
