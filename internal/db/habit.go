package db

import (
	"time"
)

// Habit 定义了习惯模型
// Frequency 取值 DAILY/WEEKLY/MONTHLY/CUSTOM
// StartDate/EndDate 为可选的日历日，存储为 UTC 零点
// 删除用户时级联删除其习惯
type Habit struct {
	ID          uint   `gorm:"primaryKey"`
	UserID      uint   `gorm:"index;not null"`
	User        User   `gorm:"constraint:OnDelete:CASCADE"`
	Name        string `gorm:"size:100;not null"`
	Description string `gorm:"size:500"`
	Active      bool   `gorm:"not null"`
	Frequency   string `gorm:"size:16;not null"`
	StartDate   *time.Time
	EndDate     *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// HabitLog 记录习惯打卡日志
// Habit + LogDate 采用唯一索引，保证同一天只有一条记录
type HabitLog struct {
	ID        uint      `gorm:"primaryKey"`
	HabitID   uint      `gorm:"index;index:idx_habit_log_unique,unique;not null"`
	Habit     Habit     `gorm:"constraint:OnDelete:CASCADE"`
	LogDate   time.Time `gorm:"index:idx_habit_log_unique,unique;not null"`
	Completed bool      `gorm:"not null"`
	Notes     string    `gorm:"size:500"`
	CreatedAt time.Time
}

// TableName 重写确保唯一索引作用到 habit_id + log_date
func (HabitLog) TableName() string {
	return "habit_logs"
}

// DateOnly 截去时刻，返回同一日历日的 UTC 零点
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
