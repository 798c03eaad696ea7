package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/habittracker/internal/auth"
	"github.com/habittracker/internal/db"
	"gorm.io/gorm"
)

// UserService 负责当前用户资料的读取、修改与注销
type UserService struct {
	db *gorm.DB
}

// UpdateUserInput 中的空字段表示保持不变
type UpdateUserInput struct {
	Username string `json:"username" validate:"omitempty,min=3,max=50"`
	Email    string `json:"email" validate:"omitempty,email,max=255"`
	Password string `json:"password" validate:"omitempty,min=6,max=72"`
}

// NewUserService 构造 UserService
func NewUserService(gdb *gorm.DB) *UserService {
	return &UserService{db: gdb}
}

// Get 根据 ID 获取用户
func (s *UserService) Get(ctx context.Context, id uint) (*db.User, error) {
	var user db.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &user, nil
}

// GetByUsername 根据用户名获取用户
func (s *UserService) GetByUsername(ctx context.Context, username string) (*db.User, error) {
	var user db.User
	if err := s.db.WithContext(ctx).Where("username = ?", strings.TrimSpace(username)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user by username: %w", err)
	}
	return &user, nil
}

// UpdateProfile 修改用户名/邮箱/密码，唯一性冲突返回 ErrConflict 系列错误
func (s *UserService) UpdateProfile(ctx context.Context, id uint, input UpdateUserInput) (*db.User, error) {
	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	if err := validateStruct(input); err != nil {
		return nil, err
	}

	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	username, email := "", ""
	if input.Username != "" && input.Username != user.Username {
		username = input.Username
	}
	if input.Email != "" && input.Email != user.Email {
		email = input.Email
	}
	if err := ensureUnique(ctx, s.db, user.ID, username, email); err != nil {
		return nil, err
	}

	if username != "" {
		user.Username = username
	}
	if email != "" {
		user.Email = email
	}
	if input.Password != "" {
		hashed, err := auth.HashPassword(input.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		user.Password = hashed
	}

	if err := s.db.WithContext(ctx).Save(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, uniqueViolation(ctx, s.db, user.ID, username, email)
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	return user, nil
}

// Delete 在同一事务中删除用户及其习惯、打卡记录
func (s *UserService) Delete(ctx context.Context, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user db.User
		if err := tx.First(&user, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		habitIDs := tx.Model(&db.Habit{}).Select("id").Where("user_id = ?", id)
		if err := tx.Where("habit_id IN (?)", habitIDs).Delete(&db.HabitLog{}).Error; err != nil {
			return fmt.Errorf("delete habit logs: %w", err)
		}
		if err := tx.Where("user_id = ?", id).Delete(&db.Habit{}).Error; err != nil {
			return fmt.Errorf("delete habits: %w", err)
		}
		return tx.Delete(&user).Error
	})
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return err
		}
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}
