// Package handler 提供 HTTP 请求处理器
package handler

import (
	stderrors "errors"

	"github.com/gin-gonic/gin"

	"regdraft-ai-api/internal/application/workspace"
	"regdraft-ai-api/internal/interfaces/http/dto"
	"regdraft-ai-api/internal/interfaces/http/middleware"
	"regdraft-ai-api/pkg/errors"
	"regdraft-ai-api/pkg/logger"
)

// toAppError 将工作区哨兵错误映射为 AppError
func toAppError(err error) *errors.AppError {
	switch {
	case stderrors.Is(err, workspace.ErrBusy):
		return errors.ErrWorkspaceBusy
	case stderrors.Is(err, workspace.ErrSessionNotFound):
		return errors.ErrSessionNotFound
	case stderrors.Is(err, workspace.ErrSessionLimit):
		return errors.ErrSessionLimit
	case stderrors.Is(err, workspace.ErrAgentNotFound):
		return errors.ErrAgentNotFound.WithDetail(err.Error())
	case stderrors.Is(err, workspace.ErrModelNotAllowed):
		return errors.ErrModelNotAllowed.WithDetail(err.Error())
	case stderrors.Is(err, workspace.ErrInvalidMode):
		return errors.ErrInvalidParam.WithDetail(err.Error())
	case stderrors.Is(err, workspace.ErrInvalidPreference):
		return errors.ErrInvalidPreference.WithDetail(err.Error())
	case errors.IsAppError(err):
		return errors.AsAppError(err)
	default:
		return errors.ErrInternalError.WithError(err)
	}
}

// respondError 输出错误响应，未识别的错误记录日志
func respondError(c *gin.Context, err error, msg string) {
	appErr := toAppError(err)
	if appErr.HTTPStatus >= 500 {
		logger.Error(c.Request.Context(), msg, err)
	}
	dto.AppError(c, appErr)
}

// currentSession 读取认证中间件注入的会话
func currentSession(c *gin.Context) (*workspace.Session, bool) {
	sess := middleware.GetSession(c)
	if sess == nil {
		dto.AppError(c, errors.ErrSessionNotFound)
		return nil, false
	}
	return sess, true
}
