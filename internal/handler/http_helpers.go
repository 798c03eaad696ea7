package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/habittracker/internal/auth"
	"github.com/habittracker/internal/service"
	"go.uber.org/zap"
)

// errorResponse 是所有错误响应的统一结构
type errorResponse struct {
	Timestamp        string            `json:"timestamp"`
	Status           int               `json:"status"`
	Error            string            `json:"error"`
	Message          string            `json:"message"`
	Path             string            `json:"path"`
	ValidationErrors map[string]string `json:"validationErrors,omitempty"`
}

func respondError(c *gin.Context, status int, message string) {
	writeError(c, status, message, nil)
}

func respondValidation(c *gin.Context, fields map[string]string) {
	writeError(c, http.StatusBadRequest, "Validation failed", fields)
}

func writeError(c *gin.Context, status int, message string, fields map[string]string) {
	c.AbortWithStatusJSON(status, errorResponse{
		Timestamp:        time.Now().UTC().Format(time.RFC3339),
		Status:           status,
		Error:            http.StatusText(status),
		Message:          message,
		Path:             c.Request.URL.Path,
		ValidationErrors: fields,
	})
}

func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, http.StatusBadRequest, "Malformed JSON request")
		return false
	}
	return true
}

func parseUintParam(c *gin.Context, key string) (uint, error) {
	raw := c.Param(key)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return uint(id), nil
}

func parseUintQuery(c *gin.Context, key string) (uint, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return uint(id), nil
}

func parseBoolQuery(c *gin.Context, key string) (*bool, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	val, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s", key)
	}
	return &val, nil
}

// handleServiceError 将服务层错误映射为 HTTP 状态码
func (a *API) handleServiceError(c *gin.Context, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		respondValidation(c, verr.Fields)
	case errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrHabitNotFound),
		errors.Is(err, service.ErrHabitLogNotFound):
		respondError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrConflict):
		respondError(c, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrAccountDisabled):
		respondError(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, auth.ErrInvalidToken):
		respondError(c, http.StatusUnauthorized, "Invalid or expired token")
	default:
		a.logger.Error("request failed",
			zap.String("request_id", c.GetString(requestIDKey)),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
		respondError(c, http.StatusInternalServerError, "An unexpected error occurred")
	}
}
