package handler

import (
	"github.com/gin-gonic/gin"

	"regdraft-ai-api/internal/application/workspace"
	"regdraft-ai-api/internal/interfaces/http/dto"
)

// NotesHandler 笔记工具处理器
type NotesHandler struct {
	tool *workspace.NotesTool
}

// NewNotesHandler 创建笔记工具处理器
func NewNotesHandler(tool *workspace.NotesTool) *NotesHandler {
	return &NotesHandler{tool: tool}
}

// Transform 转换原始笔记
// @Summary 笔记转换
// @Description mode 取 markdown / entities / quiz
// @Tags Notes
// @Accept json
// @Produce json
// @Param body body dto.NotesTransformRequest true "模式与原始文本"
// @Success 200 {object} dto.Response[workspace.NotesResult]
// @Failure 400 {object} dto.ErrorResponse
// @Router /v1/notes/transform [post]
func (h *NotesHandler) Transform(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}

	var req dto.NotesTransformRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	mode, err := workspace.ParseNotesMode(req.Mode)
	if err != nil {
		respondError(c, err, "invalid notes mode")
		return
	}

	result, err := h.tool.Transform(c.Request.Context(), sess, mode, req.Text)
	if err != nil {
		respondError(c, err, "failed to run notes tool")
		return
	}
	dto.Success(c, result)
}
