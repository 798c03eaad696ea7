package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/habittracker/internal/db"
	"github.com/habittracker/internal/service"
	"go.uber.org/zap"
)

// Register 注册新用户，返回令牌与用户信息
func (a *API) Register(c *gin.Context) {
	var input service.RegisterInput
	if !bindJSON(c, &input) {
		return
	}

	result, err := a.auth.Register(c.Request.Context(), input)
	if err != nil {
		a.handleServiceError(c, err)
		return
	}

	a.logger.Info("user registered", zap.Uint("user_id", result.User.ID))
	a.respondAuth(c, http.StatusCreated, result.Token, result.User)
}

// Login 按用户名或邮箱登录
func (a *API) Login(c *gin.Context) {
	var input service.LoginInput
	if !bindJSON(c, &input) {
		return
	}

	result, err := a.auth.Login(c.Request.Context(), input)
	if err != nil {
		a.handleServiceError(c, err)
		return
	}

	a.respondAuth(c, http.StatusOK, result.Token, result.User)
}

// Logout 吊销当前令牌并清除会话
func (a *API) Logout(c *gin.Context) {
	if err := a.auth.Logout(c.Request.Context(), currentClaims(c)); err != nil {
		a.handleServiceError(c, err)
		return
	}
	clearSessionToken(c)
	c.Status(http.StatusNoContent)
}

func (a *API) respondAuth(c *gin.Context, status int, token string, user *db.User) {
	if session := sessionFrom(c); session != nil {
		session.Set(sessionTokenKey, token)
		if err := session.Save(); err != nil {
			a.logger.Warn("save session failed", zap.Error(err))
		}
	}

	c.JSON(status, gin.H{
		"token":     token,
		"tokenType": "Bearer",
		"expiresIn": int64(a.tokenTTL.Seconds()),
		"user":      userToPayload(*user),
	})
}

func clearSessionToken(c *gin.Context) {
	if session := sessionFrom(c); session != nil {
		session.Delete(sessionTokenKey)
		_ = session.Save()
	}
}
