package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/habittracker/internal/db"
	"github.com/habittracker/internal/metrics"
	"github.com/microcosm-cc/bluemonday"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// HabitLogService 负责打卡记录的读写
// 同一习惯同一天只允许一条记录，重复提交返回 ErrHabitAlreadyLogged
type HabitLogService struct {
	db     *gorm.DB
	habits *HabitService
	notes  *bluemonday.Policy
}

// HabitLogInput 定义创建/更新打卡所需字段
// Completed 为空时视为已完成
type HabitLogInput struct {
	HabitID   uint      `json:"habitId" validate:"required"`
	LogDate   time.Time `json:"logDate"`
	Completed *bool     `json:"completed"`
	Notes     string    `json:"notes" validate:"max=500"`
}

// HabitLogFilter 用于区间查询
type HabitLogFilter struct {
	HabitID uint
	Start   time.Time
	End     time.Time
}

// NewHabitLogService 构造 HabitLogService
func NewHabitLogService(gdb *gorm.DB, habits *HabitService) *HabitLogService {
	return &HabitLogService{db: gdb, habits: habits, notes: bluemonday.StrictPolicy()}
}

// Create 新建打卡记录
func (s *HabitLogService) Create(ctx context.Context, userID uint, input HabitLogInput) (*db.HabitLog, error) {
	input, err := s.normalize(input)
	if err != nil {
		return nil, err
	}

	habit, err := s.habits.Get(ctx, userID, input.HabitID)
	if err != nil {
		return nil, err
	}

	if err := s.ensureDateFree(ctx, habit.ID, input.LogDate, 0); err != nil {
		return nil, err
	}

	record := db.HabitLog{
		HabitID:   habit.ID,
		LogDate:   input.LogDate,
		Completed: input.Completed == nil || *input.Completed,
		Notes:     input.Notes,
	}
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrHabitAlreadyLogged
		}
		return nil, fmt.Errorf("create habit log: %w", err)
	}

	record.Habit = *habit
	metrics.IncrementHabitLogs(record.Completed)
	return &record, nil
}

// Update 修改打卡记录，可以改到用户名下的其他习惯或其他日期
func (s *HabitLogService) Update(ctx context.Context, userID, id uint, input HabitLogInput) (*db.HabitLog, error) {
	existing, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if input.HabitID == 0 {
		input.HabitID = existing.HabitID
	}
	input, err = s.normalize(input)
	if err != nil {
		return nil, err
	}

	if input.HabitID != existing.HabitID {
		habit, err := s.habits.Get(ctx, userID, input.HabitID)
		if err != nil {
			return nil, err
		}
		existing.Habit = *habit
	}

	if input.HabitID != existing.HabitID || !input.LogDate.Equal(existing.LogDate) {
		if err := s.ensureDateFree(ctx, input.HabitID, input.LogDate, existing.ID); err != nil {
			return nil, err
		}
	}

	existing.HabitID = input.HabitID
	existing.LogDate = input.LogDate
	existing.Completed = input.Completed == nil || *input.Completed
	existing.Notes = input.Notes

	if err := s.db.WithContext(ctx).Omit(clause.Associations).Save(existing).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrHabitAlreadyLogged
		}
		return nil, fmt.Errorf("update habit log: %w", err)
	}
	return existing, nil
}

// Delete 删除指定打卡记录
func (s *HabitLogService) Delete(ctx context.Context, userID, id uint) error {
	record, err := s.Get(ctx, userID, id)
	if err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Delete(&db.HabitLog{}, record.ID).Error; err != nil {
		return fmt.Errorf("delete habit log: %w", err)
	}
	return nil
}

// Get 返回用户名下的单条打卡记录
func (s *HabitLogService) Get(ctx context.Context, userID, id uint) (*db.HabitLog, error) {
	var record db.HabitLog
	err := s.ownedQuery(ctx, userID).
		Where("habit_logs.id = ?", id).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrHabitLogNotFound
		}
		return nil, fmt.Errorf("get habit log: %w", err)
	}
	return &record, nil
}

// ListByHabit 返回习惯的全部打卡记录，按日期倒序
func (s *HabitLogService) ListByHabit(ctx context.Context, userID, habitID uint) ([]db.HabitLog, error) {
	habit, err := s.habits.Get(ctx, userID, habitID)
	if err != nil {
		return nil, err
	}

	var logs []db.HabitLog
	if err := s.db.WithContext(ctx).
		Where("habit_id = ?", habit.ID).
		Order("log_date DESC").
		Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("list habit logs: %w", err)
	}

	for i := range logs {
		logs[i].Habit = *habit
	}
	return logs, nil
}

// ListBetween 返回指定习惯在区间内（含首尾）的打卡记录
func (s *HabitLogService) ListBetween(ctx context.Context, userID uint, filter HabitLogFilter) ([]db.HabitLog, error) {
	start, end, err := normalizeRange(filter.Start, filter.End)
	if err != nil {
		return nil, err
	}

	habit, err := s.habits.Get(ctx, userID, filter.HabitID)
	if err != nil {
		return nil, err
	}

	var logs []db.HabitLog
	if err := s.db.WithContext(ctx).
		Where("habit_id = ?", habit.ID).
		Where("log_date BETWEEN ? AND ?", start, end).
		Order("log_date ASC").
		Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("list habit logs: %w", err)
	}

	for i := range logs {
		logs[i].Habit = *habit
	}
	return logs, nil
}

// ListByUserBetween 返回用户所有习惯在区间内的打卡记录
func (s *HabitLogService) ListByUserBetween(ctx context.Context, userID uint, start, end time.Time) ([]db.HabitLog, error) {
	start, end, err := normalizeRange(start, end)
	if err != nil {
		return nil, err
	}

	var logs []db.HabitLog
	if err := s.ownedQuery(ctx, userID).
		Where("habit_logs.log_date BETWEEN ? AND ?", start, end).
		Order("habit_logs.log_date ASC").
		Order("habit_logs.habit_id ASC").
		Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("list user habit logs: %w", err)
	}
	return logs, nil
}

// ownedQuery 通过 habits.user_id 限定记录归属，并预加载所属习惯
func (s *HabitLogService) ownedQuery(ctx context.Context, userID uint) *gorm.DB {
	return s.db.WithContext(ctx).
		Model(&db.HabitLog{}).
		Select("habit_logs.*").
		Joins("JOIN habits ON habits.id = habit_logs.habit_id").
		Where("habits.user_id = ?", userID).
		Preload("Habit")
}

func (s *HabitLogService) ensureDateFree(ctx context.Context, habitID uint, date time.Time, excludeID uint) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&db.HabitLog{}).
		Where("habit_id = ? AND log_date = ? AND id <> ?", habitID, date, excludeID).
		Count(&count).Error; err != nil {
		return fmt.Errorf("check habit log date: %w", err)
	}
	if count > 0 {
		return ErrHabitAlreadyLogged
	}
	return nil
}

func (s *HabitLogService) normalize(input HabitLogInput) (HabitLogInput, error) {
	// 只去掉标签，Sanitize 转义出的实体还原为原文
	input.Notes = strings.TrimSpace(html.UnescapeString(s.notes.Sanitize(input.Notes)))
	if err := validateStruct(input); err != nil {
		return input, err
	}
	if input.LogDate.IsZero() {
		return input, newValidationError("logDate", "is required")
	}
	input.LogDate = db.DateOnly(input.LogDate)
	return input, nil
}

func normalizeRange(start, end time.Time) (time.Time, time.Time, error) {
	if start.IsZero() {
		return start, end, newValidationError("startDate", "is required")
	}
	if end.IsZero() {
		return start, end, newValidationError("endDate", "is required")
	}

	start = db.DateOnly(start)
	end = db.DateOnly(end)
	if start.After(end) {
		return start, end, newValidationError("startDate", "must be on or before endDate")
	}
	return start, end, nil
}
