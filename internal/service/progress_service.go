package service

import (
	"context"
	"fmt"
	"time"

	"github.com/habittracker/internal/db"
	"github.com/habittracker/internal/progress"
	"gorm.io/gorm"
)

// ProgressService 读取习惯与打卡记录并交给 progress 计算指标
type ProgressService struct {
	db     *gorm.DB
	habits *HabitService
}

// HabitProgress 将习惯与其指标放在一起返回
type HabitProgress struct {
	Habit   db.Habit
	Summary progress.Summary
}

// NewProgressService 构造 ProgressService
func NewProgressService(gdb *gorm.DB, habits *HabitService) *ProgressService {
	return &ProgressService{db: gdb, habits: habits}
}

// ForHabit 计算单个习惯截至 today 的进度
func (s *ProgressService) ForHabit(ctx context.Context, userID, habitID uint, today time.Time) (*HabitProgress, error) {
	habit, err := s.habits.Get(ctx, userID, habitID)
	if err != nil {
		return nil, err
	}

	var logs []db.HabitLog
	if err := s.db.WithContext(ctx).Where("habit_id = ?", habit.ID).Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("load habit logs: %w", err)
	}

	return &HabitProgress{
		Habit:   *habit,
		Summary: progress.Compute(engineHabit(*habit), engineLogs(logs), today),
	}, nil
}

// SummaryForUser 计算用户所有启用习惯的进度
func (s *ProgressService) SummaryForUser(ctx context.Context, userID uint, today time.Time) ([]HabitProgress, error) {
	active := true
	habits, err := s.habits.ListByUser(ctx, userID, HabitFilter{Active: &active})
	if err != nil {
		return nil, err
	}
	if len(habits) == 0 {
		return []HabitProgress{}, nil
	}

	ids := make([]uint, 0, len(habits))
	for _, h := range habits {
		ids = append(ids, h.ID)
	}

	var logs []db.HabitLog
	if err := s.db.WithContext(ctx).Where("habit_id IN ?", ids).Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("load habit logs: %w", err)
	}

	byHabit := make(map[uint][]db.HabitLog, len(habits))
	for _, log := range logs {
		byHabit[log.HabitID] = append(byHabit[log.HabitID], log)
	}

	result := make([]HabitProgress, 0, len(habits))
	for _, h := range habits {
		result = append(result, HabitProgress{
			Habit:   h,
			Summary: progress.Compute(engineHabit(h), engineLogs(byHabit[h.ID]), today),
		})
	}
	return result, nil
}

func engineHabit(h db.Habit) progress.Habit {
	return progress.Habit{
		Frequency: progress.Frequency(h.Frequency),
		StartDate: h.StartDate,
		EndDate:   h.EndDate,
	}
}

func engineLogs(logs []db.HabitLog) []progress.Log {
	out := make([]progress.Log, 0, len(logs))
	for _, log := range logs {
		out = append(out, progress.Log{Date: log.LogDate, Completed: log.Completed})
	}
	return out
}
