package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/habittracker/internal/auth"
	"github.com/habittracker/internal/metrics"
	"go.uber.org/zap"
)

const (
	requestIDHeader  = "X-Request-ID"
	requestIDKey     = "request_id"
	userIDKey        = "user_id"
	claimsKey        = "auth_claims"
	sessionTokenKey  = "token"
	unmatchedPathTag = "unmatched"
)

// RequestID 为每个请求分配请求 ID，优先沿用客户端传入的值
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// AccessLog 使用 zap 输出访问日志
func AccessLog(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("request_id", c.GetString(requestIDKey)),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if userID, ok := c.Get(userIDKey); ok {
			fields = append(fields, zap.Any("user_id", userID))
		}

		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			logger.Error("http request", fields...)
		case c.Writer.Status() >= http.StatusBadRequest:
			logger.Warn("http request", fields...)
		default:
			logger.Info("http request", fields...)
		}
	}
}

// Metrics 按路由模板记录请求耗时
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = unmatchedPathTag
		}
		metrics.RecordHTTPRequestDuration(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}

// Recovery 捕获 panic 并返回统一的 500 错误体
func Recovery(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Error("panic recovered",
			zap.String("request_id", c.GetString(requestIDKey)),
			zap.String("path", c.Request.URL.Path),
			zap.Any("panic", recovered),
		)
		respondError(c, http.StatusInternalServerError, "An unexpected error occurred")
	})
}

// AuthRequired 校验 Bearer 令牌（或会话中保存的令牌），并写入当前用户
func (a *API) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := auth.ExtractBearer(c.Request)
		if token == "" {
			if session := sessionFrom(c); session != nil {
				if stored, ok := session.Get(sessionTokenKey).(string); ok {
					token = stored
				}
			}
		}
		if token == "" {
			respondError(c, http.StatusUnauthorized, "Authentication required")
			return
		}

		claims, err := a.auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidToken) {
				respondError(c, http.StatusUnauthorized, "Invalid or expired token")
				return
			}
			a.handleServiceError(c, err)
			return
		}

		c.Set(claimsKey, claims)
		c.Set(userIDKey, claims.UserID)
		c.Next()
	}
}

func currentUserID(c *gin.Context) uint {
	return c.GetUint(userIDKey)
}

func currentClaims(c *gin.Context) *auth.Claims {
	if v, ok := c.Get(claimsKey); ok {
		if claims, ok := v.(*auth.Claims); ok {
			return claims
		}
	}
	return nil
}

// sessionFrom 在未挂载会话中间件时返回 nil
func sessionFrom(c *gin.Context) sessions.Session {
	if _, ok := c.Get(sessions.DefaultKey); !ok {
		return nil
	}
	return sessions.Default(c)
}
