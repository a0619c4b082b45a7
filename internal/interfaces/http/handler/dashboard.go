package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"regdraft-ai-api/internal/domain/repository"
	"regdraft-ai-api/internal/interfaces/http/dto"
	"regdraft-ai-api/pkg/logger"
)

const (
	dashboardLogLimit = 50
	activityLimitMax  = 500
)

// UsageReporter 会话当日 token 用量
type UsageReporter interface {
	Enabled() bool
	TokensToday(ctx context.Context, sessionID string) (int64, error)
}

// DashboardHandler 仪表盘处理器
type DashboardHandler struct {
	usage    UsageReporter
	activity repository.ActivityEventRepository
}

// NewDashboardHandler 创建仪表盘处理器；usage 与 activity 均可为空
func NewDashboardHandler(usage UsageReporter, activity repository.ActivityEventRepository) *DashboardHandler {
	return &DashboardHandler{usage: usage, activity: activity}
}

// GetDashboard 调用统计、账本与最近日志（新在前）
// @Summary 仪表盘
// @Tags Dashboard
// @Produce json
// @Param limit query int false "日志条数" default(50)
// @Success 200 {object} dto.Response[dto.DashboardResponse]
// @Router /v1/dashboard [get]
func (h *DashboardHandler) GetDashboard(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	resp := &dto.DashboardResponse{
		Metrics: sess.Metrics(),
		Ledger:  sess.Ledger().View(),
		Logs:    sess.RecentLogs(dto.BindLimit(c, dashboardLogLimit, activityLimitMax)),
	}
	if h.usage != nil && h.usage.Enabled() {
		used, err := h.usage.TokensToday(ctx, sess.ID())
		if err != nil {
			logger.Warn(ctx, "failed to query token usage", "error", err.Error())
		} else {
			resp.TokensToday = &used
		}
	}
	dto.Success(c, resp)
}

// ListActivity 已归档的活动日志，需启用 PostgreSQL 与消息流
// @Summary 归档日志
// @Tags Dashboard
// @Produce json
// @Param limit query int false "条数" default(50)
// @Success 200 {object} dto.Response[dto.ActivityListResponse]
// @Failure 503 {object} dto.ErrorResponse
// @Router /v1/activity [get]
func (h *DashboardHandler) ListActivity(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	if h.activity == nil {
		dto.ServiceUnavailable(c, "activity archive not configured")
		return
	}

	ctx := c.Request.Context()
	events, err := h.activity.ListBySession(ctx, sess.ID(), dto.BindLimit(c, dashboardLogLimit, activityLimitMax))
	if err != nil {
		logger.Error(ctx, "failed to list activity events", err)
		dto.InternalError(c, "failed to list activity events")
		return
	}
	dto.Success(c, dto.ToActivityListResponse(events))
}
