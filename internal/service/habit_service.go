package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/habittracker/internal/db"
	"github.com/habittracker/internal/progress"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// HabitService 负责 Habit 数据的增删改查
// 所有操作都限定在所属用户范围内，访问他人的习惯视为不存在
// Frequency 支持 DAILY/WEEKLY/MONTHLY/CUSTOM，缺省为 DAILY
type HabitService struct {
	db *gorm.DB
}

// HabitFilter 描述列表过滤条件
type HabitFilter struct {
	Active    *bool
	Frequency string
	Search    string
}

// HabitInput 定义创建/更新习惯时可配置字段
type HabitInput struct {
	Name        string     `json:"name" validate:"required,max=100"`
	Description string     `json:"description" validate:"max=500"`
	Active      *bool      `json:"active"`
	Frequency   string     `json:"frequency" validate:"omitempty,oneof=DAILY WEEKLY MONTHLY CUSTOM"`
	StartDate   *time.Time `json:"startDate"`
	EndDate     *time.Time `json:"endDate"`
}

// NewHabitService 构造 HabitService
func NewHabitService(gdb *gorm.DB) *HabitService {
	return &HabitService{db: gdb}
}

// ListByUser 返回用户的习惯集合，支持基本筛选
func (s *HabitService) ListByUser(ctx context.Context, userID uint, filter HabitFilter) ([]db.Habit, error) {
	var habits []db.Habit

	query := s.db.WithContext(ctx).Model(&db.Habit{}).Where("user_id = ?", userID)

	if filter.Active != nil {
		query = query.Where("active = ?", *filter.Active)
	}
	if freq, ok := progress.ParseFrequency(filter.Frequency); ok {
		query = query.Where("frequency = ?", string(freq))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := fmt.Sprintf("%%%s%%", search)
		query = query.Where("name LIKE ? OR description LIKE ?", like, like)
	}

	if err := query.Order("created_at DESC").Order("id DESC").Find(&habits).Error; err != nil {
		return nil, fmt.Errorf("list habits: %w", err)
	}

	return habits, nil
}

// Get 根据 ID 获取用户名下的习惯
func (s *HabitService) Get(ctx context.Context, userID, id uint) (*db.Habit, error) {
	var habit db.Habit
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&habit, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrHabitNotFound
		}
		return nil, fmt.Errorf("get habit: %w", err)
	}
	return &habit, nil
}

// Create 新建习惯
func (s *HabitService) Create(ctx context.Context, userID uint, input HabitInput) (*db.Habit, error) {
	input, err := normalizeHabitInput(input)
	if err != nil {
		return nil, err
	}

	habit := db.Habit{
		UserID:      userID,
		Name:        input.Name,
		Description: input.Description,
		Active:      input.Active == nil || *input.Active,
		Frequency:   input.Frequency,
		StartDate:   input.StartDate,
		EndDate:     input.EndDate,
	}

	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(&habit).Error; err != nil {
		return nil, fmt.Errorf("create habit: %w", err)
	}
	return &habit, nil
}

// Update 更新习惯
func (s *HabitService) Update(ctx context.Context, userID, id uint, input HabitInput) (*db.Habit, error) {
	input, err := normalizeHabitInput(input)
	if err != nil {
		return nil, err
	}

	existing, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	existing.Name = input.Name
	existing.Description = input.Description
	existing.Active = input.Active == nil || *input.Active
	existing.Frequency = input.Frequency
	existing.StartDate = input.StartDate
	existing.EndDate = input.EndDate

	if err := s.db.WithContext(ctx).Omit(clause.Associations).Save(existing).Error; err != nil {
		return nil, fmt.Errorf("update habit: %w", err)
	}
	return existing, nil
}

// ToggleActive 切换习惯的启用状态
func (s *HabitService) ToggleActive(ctx context.Context, userID, id uint) (*db.Habit, error) {
	habit, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	habit.Active = !habit.Active
	if err := s.db.WithContext(ctx).Model(habit).Update("active", habit.Active).Error; err != nil {
		return nil, fmt.Errorf("toggle habit: %w", err)
	}
	return habit, nil
}

// Delete 删除习惯及其打卡记录
func (s *HabitService) Delete(ctx context.Context, userID, id uint) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("habit_id = ?", id).Delete(&db.HabitLog{}).Error; err != nil {
			return err
		}
		return tx.Delete(&db.Habit{}, id).Error
	})
	if err != nil {
		return fmt.Errorf("delete habit: %w", err)
	}
	return nil
}

func normalizeHabitInput(input HabitInput) (HabitInput, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Description = strings.TrimSpace(input.Description)
	input.Frequency = strings.ToUpper(strings.TrimSpace(input.Frequency))
	if input.Frequency == "" {
		input.Frequency = string(progress.Daily)
	}

	if err := validateStruct(input); err != nil {
		return input, err
	}

	if input.StartDate != nil {
		start := db.DateOnly(*input.StartDate)
		input.StartDate = &start
	}
	if input.EndDate != nil {
		end := db.DateOnly(*input.EndDate)
		input.EndDate = &end
	}
	if input.StartDate != nil && input.EndDate != nil && input.EndDate.Before(*input.StartDate) {
		return input, newValidationError("endDate", "must be on or after startDate")
	}

	return input, nil
}
