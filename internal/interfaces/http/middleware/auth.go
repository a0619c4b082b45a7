// Package middleware 提供 HTTP 中间件
package middleware

import (
	stderrors "errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"regdraft-ai-api/internal/application/workspace"
	"regdraft-ai-api/pkg/errors"
	"regdraft-ai-api/pkg/logger"
	"regdraft-ai-api/pkg/utils"
)

const (
	// SessionIDHeader 未启用令牌认证时携带会话 ID 的请求头
	SessionIDHeader = "X-Session-ID"

	ctxSessionKey   = "session"
	ctxSessionIDKey = "session_id"
)

// SessionAuthConfig 会话认证配置
type SessionAuthConfig struct {
	// Enabled 为 true 时要求 Bearer 令牌，否则读取 X-Session-ID
	Enabled bool
}

// SessionLookup 按 ID 查找会话
type SessionLookup interface {
	Get(id string) (*workspace.Session, error)
}

// TokenParser 解析会话令牌
type TokenParser interface {
	ParseSessionToken(token string) (string, error)
}

// SessionAuth 解析请求所属会话并注入 gin.Context 与日志上下文
func SessionAuth(cfg SessionAuthConfig, sessions SessionLookup, tokens TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID, appErr := resolveSessionID(c, cfg, tokens)
		if appErr != nil {
			abortWithAppError(c, appErr)
			return
		}

		sess, err := sessions.Get(sessionID)
		if err != nil {
			if stderrors.Is(err, workspace.ErrSessionNotFound) {
				abortWithAppError(c, errors.ErrSessionNotFound)
				return
			}
			logger.Error(c.Request.Context(), "failed to load session", err)
			abortWithAppError(c, errors.ErrInternalError)
			return
		}

		c.Set(ctxSessionKey, sess)
		c.Set(ctxSessionIDKey, sess.ID())
		ctx := logger.WithContext(c.Request.Context(), logger.SessionIDKey, sess.ID())
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

func resolveSessionID(c *gin.Context, cfg SessionAuthConfig, tokens TokenParser) (string, *errors.AppError) {
	if !cfg.Enabled || tokens == nil {
		id := strings.TrimSpace(c.GetHeader(SessionIDHeader))
		if id == "" {
			return "", errors.ErrTokenMissing.WithDetail("missing " + SessionIDHeader + " header")
		}
		return id, nil
	}

	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", errors.ErrTokenMissing.WithDetail("missing authorization header")
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", errors.ErrTokenInvalid.WithDetail("invalid authorization format")
	}

	id, err := tokens.ParseSessionToken(parts[1])
	if err != nil {
		if stderrors.Is(err, utils.ErrExpiredToken) {
			return "", errors.ErrTokenExpired
		}
		return "", errors.ErrTokenInvalid
	}
	return id, nil
}

// GetSession 读取 SessionAuth 注入的会话
func GetSession(c *gin.Context) *workspace.Session {
	if v, ok := c.Get(ctxSessionKey); ok {
		if sess, ok := v.(*workspace.Session); ok {
			return sess
		}
	}
	return nil
}

// GetSessionID 读取当前会话 ID，未认证时为空
func GetSessionID(c *gin.Context) string {
	return c.GetString(ctxSessionIDKey)
}

func abortWithAppError(c *gin.Context, appErr *errors.AppError) {
	status := appErr.HTTPStatus
	if status == 0 {
		status = http.StatusInternalServerError
	}
	body := gin.H{
		"code":     status,
		"message":  appErr.Message,
		"error":    gin.H{"error_code": appErr.Code, "details": appErr.Detail},
		"trace_id": c.GetString("trace_id"),
	}
	c.AbortWithStatusJSON(status, body)
}
