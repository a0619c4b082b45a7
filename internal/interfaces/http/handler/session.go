package handler

import (
	"github.com/gin-gonic/gin"

	"regdraft-ai-api/internal/application/workspace"
	"regdraft-ai-api/internal/interfaces/http/dto"
	"regdraft-ai-api/pkg/logger"
)

// TokenIssuer 为新会话签发令牌
type TokenIssuer interface {
	IssueSessionToken(sessionID string) (string, error)
}

// SessionHandler 会话处理器
type SessionHandler struct {
	store  *workspace.Store
	tokens TokenIssuer
}

// NewSessionHandler 创建会话处理器，tokens 为空时不签发令牌
func NewSessionHandler(store *workspace.Store, tokens TokenIssuer) *SessionHandler {
	return &SessionHandler{store: store, tokens: tokens}
}

// CreateSession 创建工作区会话
// @Summary 创建会话
// @Description 以默认流水线、满法力账本创建新会话，返回会话 ID 与令牌
// @Tags Session
// @Produce json
// @Success 201 {object} dto.Response[dto.SessionCreatedResponse]
// @Failure 429 {object} dto.ErrorResponse
// @Router /v1/sessions [post]
func (h *SessionHandler) CreateSession(c *gin.Context) {
	ctx := c.Request.Context()

	sess, err := h.store.Create(ctx)
	if err != nil {
		respondError(c, err, "failed to create session")
		return
	}

	resp := &dto.SessionCreatedResponse{SessionID: sess.ID(), Snapshot: sess.Snapshot()}
	if h.tokens != nil {
		token, err := h.tokens.IssueSessionToken(sess.ID())
		if err != nil {
			h.store.Delete(sess.ID())
			logger.Error(ctx, "failed to issue session token", err)
			dto.InternalError(c, "failed to issue session token")
			return
		}
		resp.Token = token
	}

	dto.Created(c, resp)
}

// GetSession 会话快照
// @Summary 会话快照
// @Tags Session
// @Produce json
// @Success 200 {object} dto.Response[workspace.Snapshot]
// @Router /v1/session [get]
func (h *SessionHandler) GetSession(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	dto.Success(c, sess.Snapshot())
}

// UpdatePreferences 更新展示偏好
// @Summary 更新偏好
// @Tags Session
// @Accept json
// @Produce json
// @Param body body dto.UpdatePreferencesRequest true "偏好"
// @Success 200 {object} dto.Response[entity.Preferences]
// @Failure 400 {object} dto.ErrorResponse
// @Router /v1/session/preferences [patch]
func (h *SessionHandler) UpdatePreferences(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}

	var req dto.UpdatePreferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	prefs, err := sess.UpdatePreferences(req.ToPatch())
	if err != nil {
		respondError(c, err, "failed to update preferences")
		return
	}
	dto.Success(c, prefs)
}

// DeleteSession 结束会话
// @Summary 结束会话
// @Tags Session
// @Success 204
// @Router /v1/session [delete]
func (h *SessionHandler) DeleteSession(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	h.store.Delete(sess.ID())
	c.Status(204)
}
