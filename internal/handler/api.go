package handler

import (
	"time"

	"github.com/habittracker/internal/auth"
	"github.com/habittracker/internal/service"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// API bundles shared dependencies for HTTP handlers.
type API struct {
	db        *gorm.DB
	auth      *service.AuthService
	users     *service.UserService
	habits    *service.HabitService
	habitLogs *service.HabitLogService
	progress  *service.ProgressService
	tokenTTL  time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

// NewAPI constructs a handler set with shared services.
func NewAPI(db *gorm.DB, tokens *auth.TokenManager, revoker auth.Revoker, logger *zap.Logger) *API {
	if logger == nil {
		logger = zap.NewNop()
	}

	habits := service.NewHabitService(db)

	return &API{
		db:        db,
		auth:      service.NewAuthService(db, tokens, revoker),
		users:     service.NewUserService(db),
		habits:    habits,
		habitLogs: service.NewHabitLogService(db, habits),
		progress:  service.NewProgressService(db, habits),
		tokenTTL:  tokens.TTL(),
		logger:    logger,
		now:       time.Now,
	}
}

// DB exposes the underlying gorm instance for health checks.
func (a *API) DB() *gorm.DB {
	return a.db
}

// SetClock 替换"今天"的来源，主要用于测试
func (a *API) SetClock(now func() time.Time) {
	if now != nil {
		a.now = now
	}
}
