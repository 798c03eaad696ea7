// Package progress 根据习惯的频率、起止日期与打卡日志计算进度指标。
// 所有函数均为纯函数：不读取系统时钟，"今天"由调用方显式传入。
package progress

import (
	"math"
	"slices"
	"strings"
	"time"
)

// Frequency 表示习惯的打卡频率
type Frequency string

const (
	Daily   Frequency = "DAILY"
	Weekly  Frequency = "WEEKLY"
	Monthly Frequency = "MONTHLY"
	Custom  Frequency = "CUSTOM"
)

// maxStreakDays 限制连续天数回溯的最大步数
const maxStreakDays = 1000

// ParseFrequency 规范化频率字符串，未知取值返回 false
func ParseFrequency(raw string) (Frequency, bool) {
	f := Frequency(strings.ToUpper(strings.TrimSpace(raw)))
	switch f {
	case Daily, Weekly, Monthly, Custom:
		return f, true
	}
	return "", false
}

// Label 返回频率的展示名称
func (f Frequency) Label() string {
	switch f {
	case Daily:
		return "Daily"
	case Weekly:
		return "Weekly"
	case Monthly:
		return "Monthly"
	case Custom:
		return "Custom"
	default:
		return string(f)
	}
}

// Log 是参与计算的单条打卡记录
type Log struct {
	Date      time.Time
	Completed bool
}

// Habit 描述计算所需的习惯元数据
type Habit struct {
	Frequency Frequency
	StartDate *time.Time
	EndDate   *time.Time
}

// Total 表示预期完成次数；未设置结束日期时 Unbounded 为 true
type Total struct {
	Count     int
	Unbounded bool
}

// Summary 汇总单个习惯的全部进度指标
type Summary struct {
	CurrentStreak  int
	LongestStreak  int
	TotalExpected  Total
	TotalCompleted int
	WindowDays     int
	WindowProgress int
	PeriodLabel    string
}

// civilDay 是去掉时刻与时区后的日历日
type civilDay struct {
	year  int
	month time.Month
	day   int
}

func dayOf(t time.Time) civilDay {
	y, m, d := t.Date()
	return civilDay{year: y, month: m, day: d}
}

func (d civilDay) utc() time.Time {
	return time.Date(d.year, d.month, d.day, 0, 0, 0, 0, time.UTC)
}

func (d civilDay) addDays(n int) civilDay {
	return dayOf(time.Date(d.year, d.month, d.day+n, 0, 0, 0, 0, time.UTC))
}

func daysBetween(from, to civilDay) int {
	return int(to.utc().Sub(from.utc()).Hours() / 24)
}

func completedDays(logs []Log) map[civilDay]struct{} {
	set := make(map[civilDay]struct{}, len(logs))
	for _, log := range logs {
		if log.Completed {
			set[dayOf(log.Date)] = struct{}{}
		}
	}
	return set
}

// CurrentStreak 从今天起向前逐日回溯，统计连续完成的天数。
// 今天没有完成记录时结果为 0。
func CurrentStreak(logs []Log, today time.Time) int {
	done := completedDays(logs)
	if len(done) == 0 {
		return 0
	}

	cursor := dayOf(today)
	streak := 0
	for streak < maxStreakDays {
		if _, ok := done[cursor]; !ok {
			break
		}
		streak++
		cursor = cursor.addDays(-1)
	}
	return streak
}

// LongestStreak 返回历史上最长的连续完成天数
func LongestStreak(logs []Log) int {
	done := completedDays(logs)
	if len(done) == 0 {
		return 0
	}

	days := make([]time.Time, 0, len(done))
	for d := range done {
		days = append(days, d.utc())
	}
	slices.SortFunc(days, func(a, b time.Time) int { return a.Compare(b) })

	longest, current := 1, 1
	for i := 1; i < len(days); i++ {
		if daysBetween(dayOf(days[i-1]), dayOf(days[i])) == 1 {
			current++
			longest = max(longest, current)
		} else {
			current = 1
		}
	}
	return longest
}

// TotalExpected 计算起止日期之间应完成的次数。
// start 为空时视为今天；end 为空时结果无上限。
func TotalExpected(freq Frequency, start, end *time.Time, today time.Time) Total {
	if end == nil {
		return Total{Unbounded: true}
	}

	from := dayOf(today)
	if start != nil {
		from = dayOf(*start)
	}
	to := dayOf(*end)

	days := max(daysBetween(from, to)+1, 1)

	switch freq {
	case Daily:
		return Total{Count: days}
	case Weekly:
		return Total{Count: (days + 6) / 7}
	case Monthly:
		months := (to.year*12 + int(to.month)) - (from.year*12 + int(from.month)) + 1
		return Total{Count: max(months, 1)}
	default:
		return Total{Count: days}
	}
}

// TotalCompleted 统计已完成的日志条数
func TotalCompleted(logs []Log) int {
	count := 0
	for _, log := range logs {
		if log.Completed {
			count++
		}
	}
	return count
}

// WindowDays 返回频率对应的回看窗口天数
func WindowDays(freq Frequency) int {
	switch freq {
	case Weekly:
		return 28
	case Monthly:
		return 90
	default:
		return 7
	}
}

// PeriodLabel 返回回看窗口的展示文案
func PeriodLabel(freq Frequency) string {
	switch freq {
	case Daily:
		return "Last 7 days"
	case Weekly:
		return "Last 4 weeks"
	case Monthly:
		return "Last 3 months"
	default:
		return "Progress"
	}
}

// RollingWindowProgress 计算截至今天（含）的窗口内完成天数百分比，取值 0-100
func RollingWindowProgress(freq Frequency, logs []Log, today time.Time) int {
	window := WindowDays(freq)
	done := completedDays(logs)

	hits := 0
	cursor := dayOf(today)
	for i := 0; i < window; i++ {
		if _, ok := done[cursor]; ok {
			hits++
		}
		cursor = cursor.addDays(-1)
	}

	return int(math.Round(float64(hits) * 100 / float64(window)))
}

// Compute 一次性计算习惯的全部指标
func Compute(habit Habit, logs []Log, today time.Time) Summary {
	return Summary{
		CurrentStreak:  CurrentStreak(logs, today),
		LongestStreak:  LongestStreak(logs),
		TotalExpected:  TotalExpected(habit.Frequency, habit.StartDate, habit.EndDate, today),
		TotalCompleted: TotalCompleted(logs),
		WindowDays:     WindowDays(habit.Frequency),
		WindowProgress: RollingWindowProgress(habit.Frequency, logs, today),
		PeriodLabel:    PeriodLabel(habit.Frequency),
	}
}
