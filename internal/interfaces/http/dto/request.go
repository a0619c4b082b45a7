// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"regdraft-ai-api/internal/domain/entity"
)

// UpdatePreferencesRequest 偏好部分更新，缺省字段保持不变
type UpdatePreferencesRequest struct {
	Language  *string `json:"language"`
	ThemeMode *string `json:"theme_mode"`
	FlowerID  *string `json:"current_flower_id"`
}

// ToPatch 转换为领域层补丁
func (r *UpdatePreferencesRequest) ToPatch() entity.PreferencesPatch {
	return entity.PreferencesPatch{
		Language:  r.Language,
		ThemeMode: r.ThemeMode,
		FlowerID:  r.FlowerID,
	}
}

// ChangeModelRequest 修改步骤模型
type ChangeModelRequest struct {
	Model string `json:"model" binding:"required"`
}

// SetInputRequest 设置流水线共享初始输入
type SetInputRequest struct {
	Input string `json:"input"`
}

// RunPipelineRequest run-all 请求，Input 非空时覆盖共享初始输入
type RunPipelineRequest struct {
	Input *string `json:"input"`
}

// SetOutputRequest 手工编辑步骤输出
type SetOutputRequest struct {
	Output string `json:"output"`
}

// GenerateSummaryRequest 设备摘要生成
type GenerateSummaryRequest struct {
	DeviceName        string `json:"device_name"`
	DeviceDescription string `json:"device_description"`
	Model             string `json:"model"`
}

// RefineSummaryRequest 摘要精修
type RefineSummaryRequest struct {
	Instruction string `json:"instruction"`
}

// UpdateSummaryRequest 手工编辑摘要文档
type UpdateSummaryRequest struct {
	Document string `json:"document"`
}

// NotesTransformRequest 笔记工具
type NotesTransformRequest struct {
	Mode string `json:"mode" binding:"required"`
	Text string `json:"text"`
}

// BindAgentID 从 URI 绑定步骤 ID
func BindAgentID(c *gin.Context) string {
	return c.Param("id")
}

// BindLimit 解析 limit 查询参数，范围 [1, max]
func BindLimit(c *gin.Context, def, max int) int {
	v, err := strconv.Atoi(c.Query("limit"))
	if err != nil || v < 1 {
		return def
	}
	if v > max {
		return max
	}
	return v
}
