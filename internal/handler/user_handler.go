package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/habittracker/internal/db"
	"github.com/habittracker/internal/service"
	"go.uber.org/zap"
)

// GetCurrentUser 返回当前登录用户
func (a *API) GetCurrentUser(c *gin.Context) {
	user, err := a.users.Get(c.Request.Context(), currentUserID(c))
	if err != nil {
		a.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, userToPayload(*user))
}

// UpdateCurrentUser 修改当前用户资料；用户名变化后令牌主题随之改变，因此重新签发令牌
func (a *API) UpdateCurrentUser(c *gin.Context) {
	var input service.UpdateUserInput
	if !bindJSON(c, &input) {
		return
	}

	user, err := a.users.UpdateProfile(c.Request.Context(), currentUserID(c), input)
	if err != nil {
		a.handleServiceError(c, err)
		return
	}

	token, err := a.auth.IssueToken(user)
	if err != nil {
		a.handleServiceError(c, err)
		return
	}
	if err := a.auth.Logout(c.Request.Context(), currentClaims(c)); err != nil {
		a.logger.Warn("revoke previous token failed", zap.Error(err))
	}

	a.respondAuth(c, http.StatusOK, token, user)
}

// DeleteCurrentUser 注销当前用户及其全部数据
func (a *API) DeleteCurrentUser(c *gin.Context) {
	userID := currentUserID(c)
	if err := a.users.Delete(c.Request.Context(), userID); err != nil {
		a.handleServiceError(c, err)
		return
	}

	if err := a.auth.Logout(c.Request.Context(), currentClaims(c)); err != nil {
		a.logger.Warn("revoke token after account deletion failed", zap.Error(err))
	}
	clearSessionToken(c)

	a.logger.Info("user deleted", zap.Uint("user_id", userID))
	c.Status(http.StatusNoContent)
}

func userToPayload(user db.User) gin.H {
	return gin.H{
		"id":        user.ID,
		"username":  user.Username,
		"email":     user.Email,
		"enabled":   user.Enabled,
		"createdAt": user.CreatedAt.UTC().Format(time.RFC3339),
	}
}
