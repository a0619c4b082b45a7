// Package router 提供 HTTP 路由配置
package router

import (
	"github.com/gin-gonic/gin"
)

// RegisterV1Routes 注册需要会话的 v1 路由
func RegisterV1Routes(v1 *gin.RouterGroup, h Handlers) {
	// 会话
	v1.GET("/session", h.Session.GetSession)
	v1.DELETE("/session", h.Session.DeleteSession)
	v1.PATCH("/session/preferences", h.Session.UpdatePreferences)

	// 模型与步骤
	v1.GET("/models", h.Pipeline.ListModels)
	v1.GET("/agents", h.Pipeline.ListAgents)
	v1.PUT("/agents/:id/model", h.Pipeline.ChangeModel)

	// 流水线
	pipeline := v1.Group("/pipeline")
	{
		pipeline.PUT("/input", h.Pipeline.SetInput)
		pipeline.POST("/run", h.Pipeline.RunAll)
		pipeline.POST("/agents/:id/run", h.Pipeline.RunSingle)
		pipeline.PUT("/outputs/:id", h.Pipeline.SetOutput)
	}

	// 设备摘要
	summary := v1.Group("/summary")
	{
		summary.GET("", h.Summary.GetSummary)
		summary.PUT("", h.Summary.UpdateSummary)
		summary.POST("/generate", h.Summary.GenerateSummary)
		summary.POST("/refine", h.Summary.RefineSummary)
	}

	// 笔记工具
	v1.POST("/notes/transform", h.Notes.Transform)

	// 仪表盘
	v1.GET("/dashboard", h.Dashboard.GetDashboard)
	v1.GET("/activity", h.Dashboard.ListActivity)
}
