package service

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrUserNotFound 在用户不存在时返回
	ErrUserNotFound = errors.New("user not found")
	// ErrHabitNotFound 在习惯不存在或不属于当前用户时返回
	ErrHabitNotFound = errors.New("habit not found")
	// ErrHabitLogNotFound 在打卡记录不存在或不属于当前用户时返回
	ErrHabitLogNotFound = errors.New("habit log not found")

	// ErrConflict 是所有唯一性冲突的父错误
	ErrConflict = errors.New("resource already exists")
	// ErrUsernameTaken 用户名已被占用
	ErrUsernameTaken = conflict("username is already taken")
	// ErrEmailTaken 邮箱已注册
	ErrEmailTaken = conflict("email is already registered")
	// ErrHabitAlreadyLogged 同一习惯同一天已有打卡
	ErrHabitAlreadyLogged = conflict("habit already logged for date")

	// ErrInvalidCredentials 用户名/邮箱或密码错误
	ErrInvalidCredentials = errors.New("invalid username/email or password")
	// ErrAccountDisabled 账号已停用
	ErrAccountDisabled = errors.New("account is disabled")

	// ErrValidation 是 ValidationError 的匹配目标
	ErrValidation = errors.New("validation failed")
)

type conflictError struct {
	msg string
}

func conflict(msg string) error {
	return &conflictError{msg: msg}
}

func (e *conflictError) Error() string {
	return e.msg
}

func (e *conflictError) Is(target error) bool {
	return target == ErrConflict
}

// ValidationError 携带字段级错误信息，键为 JSON 字段名
type ValidationError struct {
	Fields map[string]string
}

func newValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+" "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
