package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/habittracker/internal/config"
	"github.com/habittracker/internal/handler"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const sessionName = "habittracker_session"

// SetupRouter 配置 Gin 引擎和路由
func SetupRouter(api *handler.API, cfg config.AppConfig, logger *zap.Logger) *gin.Engine {
	r := gin.New()

	r.Use(handler.RequestID(), handler.AccessLog(logger), handler.Recovery(logger), handler.Metrics())

	// 仅在配置了前端来源时开启跨域
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORSAllowedOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
			ExposeHeaders:    []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	// 配置会话中间件，浏览器客户端可以不带 Authorization 头
	store := cookie.NewStore([]byte(cfg.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.JWTExpiration.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(sessionName, store))

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/readyz", func(c *gin.Context) {
		sqlDB, err := api.DB().DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			logger.Warn("readiness check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	apiGroup := r.Group("/api")
	{
		authGroup := apiGroup.Group("/auth")
		{
			authGroup.POST("/register", api.Register)
			authGroup.POST("/login", api.Login)
			authGroup.POST("/logout", api.AuthRequired(), api.Logout)
		}

		// 需要认证的路由
		secured := apiGroup.Group("")
		secured.Use(api.AuthRequired())
		{
			secured.GET("/users/me", api.GetCurrentUser)
			secured.PUT("/users/me", api.UpdateCurrentUser)
			secured.DELETE("/users/me", api.DeleteCurrentUser)

			secured.GET("/habits", api.ListHabits)
			secured.GET("/habits/active", api.ListActiveHabits)
			secured.GET("/habits/:id", api.GetHabit)
			secured.POST("/habits", api.CreateHabit)
			secured.PUT("/habits/:id", api.UpdateHabit)
			secured.PATCH("/habits/:id/toggle", api.ToggleHabit)
			secured.DELETE("/habits/:id", api.DeleteHabit)
			secured.GET("/habits/:id/progress", api.GetHabitProgress)

			secured.GET("/progress", api.GetProgressSummary)

			secured.GET("/habit-logs", api.ListHabitLogs)
			secured.GET("/habit-logs/range", api.ListHabitLogsInRange)
			secured.GET("/habit-logs/user", api.ListUserHabitLogs)
			secured.GET("/habit-logs/heatmap", api.GetHabitLogHeatmap)
			secured.GET("/habit-logs/:id", api.GetHabitLog)
			secured.POST("/habit-logs", api.CreateHabitLog)
			secured.PUT("/habit-logs/:id", api.UpdateHabitLog)
			secured.DELETE("/habit-logs/:id", api.DeleteHabitLog)
		}
	}

	r.NoRoute(func(c *gin.Context) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"status":    http.StatusNotFound,
			"error":     http.StatusText(http.StatusNotFound),
			"message":   "Resource not found",
			"path":      c.Request.URL.Path,
		})
	})

	return r
}
