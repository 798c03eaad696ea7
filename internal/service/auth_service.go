package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/habittracker/internal/auth"
	"github.com/habittracker/internal/db"
	"github.com/habittracker/internal/metrics"
	"gorm.io/gorm"
)

// AuthService 负责注册、登录、登出与令牌校验
type AuthService struct {
	db      *gorm.DB
	tokens  *auth.TokenManager
	revoker auth.Revoker
}

// RegisterInput 定义注册所需字段
type RegisterInput struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// LoginInput 定义登录所需字段
type LoginInput struct {
	UsernameOrEmail string `json:"usernameOrEmail" validate:"required"`
	Password        string `json:"password" validate:"required"`
}

// AuthResult 为认证成功后的用户与令牌
type AuthResult struct {
	Token string
	User  *db.User
}

// NewAuthService 构造 AuthService，revoker 为 nil 时不做吊销检查
func NewAuthService(gdb *gorm.DB, tokens *auth.TokenManager, revoker auth.Revoker) *AuthService {
	return &AuthService{db: gdb, tokens: tokens, revoker: revoker}
}

// Register 创建新用户并签发令牌
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	if err := validateStruct(input); err != nil {
		metrics.IncrementAuthAttempt("register", false)
		return nil, err
	}

	if err := ensureUnique(ctx, s.db, 0, input.Username, input.Email); err != nil {
		metrics.IncrementAuthAttempt("register", false)
		return nil, err
	}

	hashed, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := db.User{
		Username: input.Username,
		Email:    input.Email,
		Password: hashed,
		Enabled:  true,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, uniqueViolation(ctx, s.db, 0, input.Username, input.Email)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	token, err := s.IssueToken(&user)
	if err != nil {
		return nil, err
	}

	metrics.IncrementAuthAttempt("register", true)
	return &AuthResult{Token: token, User: &user}, nil
}

// Login 按用户名或邮箱查找用户并校验密码
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	input.UsernameOrEmail = strings.TrimSpace(input.UsernameOrEmail)
	if err := validateStruct(input); err != nil {
		return nil, err
	}

	var user db.User
	err := s.db.WithContext(ctx).
		Where("username = ?", input.UsernameOrEmail).
		Or("email = ?", strings.ToLower(input.UsernameOrEmail)).
		Order("id ASC").
		First(&user).Error
	if err != nil {
		metrics.IncrementAuthAttempt("login", false)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	if !user.Enabled {
		metrics.IncrementAuthAttempt("login", false)
		return nil, ErrAccountDisabled
	}

	if !auth.CheckPassword(input.Password, user.Password) {
		metrics.IncrementAuthAttempt("login", false)
		return nil, ErrInvalidCredentials
	}

	token, err := s.IssueToken(&user)
	if err != nil {
		return nil, err
	}

	metrics.IncrementAuthAttempt("login", true)
	return &AuthResult{Token: token, User: &user}, nil
}

// IssueToken 为用户签发新令牌
func (s *AuthService) IssueToken(user *db.User) (string, error) {
	token, _, err := s.tokens.Issue(user.ID, user.Username)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	return token, nil
}

// Authenticate 校验令牌，确认未被吊销且所属用户仍存在并处于启用状态
func (s *AuthService) Authenticate(ctx context.Context, token string) (*auth.Claims, error) {
	if token == "" {
		return nil, auth.ErrInvalidToken
	}

	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, err
	}

	if s.revoker != nil {
		revoked, err := s.revoker.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, fmt.Errorf("check revocation: %w", err)
		}
		if revoked {
			return nil, fmt.Errorf("%w: token revoked", auth.ErrInvalidToken)
		}
	}

	var user db.User
	if err := s.db.WithContext(ctx).Select("id", "enabled").First(&user, claims.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: user no longer exists", auth.ErrInvalidToken)
		}
		return nil, fmt.Errorf("load token user: %w", err)
	}
	if !user.Enabled {
		return nil, fmt.Errorf("%w: account disabled", auth.ErrInvalidToken)
	}

	return claims, nil
}

// Logout 吊销当前令牌
func (s *AuthService) Logout(ctx context.Context, claims *auth.Claims) error {
	if s.revoker == nil || claims == nil || claims.ExpiresAt == nil {
		return nil
	}
	return s.revoker.Revoke(ctx, claims.ID, claims.ExpiresAt.Time)
}

// ensureUnique 检查用户名和邮箱是否已被除 excludeID 以外的用户占用
func ensureUnique(ctx context.Context, gdb *gorm.DB, excludeID uint, username, email string) error {
	if username != "" {
		var count int64
		if err := gdb.WithContext(ctx).Model(&db.User{}).
			Where("username = ? AND id <> ?", username, excludeID).
			Count(&count).Error; err != nil {
			return fmt.Errorf("check username: %w", err)
		}
		if count > 0 {
			return ErrUsernameTaken
		}
	}

	if email != "" {
		var count int64
		if err := gdb.WithContext(ctx).Model(&db.User{}).
			Where("email = ? AND id <> ?", email, excludeID).
			Count(&count).Error; err != nil {
			return fmt.Errorf("check email: %w", err)
		}
		if count > 0 {
			return ErrEmailTaken
		}
	}

	return nil
}

// uniqueViolation 在唯一索引冲突后重新检查，返回具体是用户名还是邮箱被占用
func uniqueViolation(ctx context.Context, gdb *gorm.DB, excludeID uint, username, email string) error {
	if err := ensureUnique(ctx, gdb, excludeID, username, email); err != nil {
		return err
	}
	return ErrUsernameTaken
}
