package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ptr(t time.Time) *time.Time {
	return &t
}

func completedOn(days ...time.Time) []Log {
	logs := make([]Log, 0, len(days))
	for _, d := range days {
		logs = append(logs, Log{Date: d, Completed: true})
	}
	return logs
}

func TestParseFrequency(t *testing.T) {
	tests := []struct {
		input string
		want  Frequency
		ok    bool
	}{
		{"DAILY", Daily, true},
		{" weekly ", Weekly, true},
		{"Monthly", Monthly, true},
		{"custom", Custom, true},
		{"yearly", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseFrequency(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCurrentStreak(t *testing.T) {
	today := time.Date(2024, 3, 10, 18, 30, 0, 0, time.Local)

	t.Run("empty_logs", func(t *testing.T) {
		assert.Equal(t, 0, CurrentStreak(nil, today))
	})

	t.Run("no_completed_logs", func(t *testing.T) {
		logs := []Log{
			{Date: date(2024, 3, 10), Completed: false},
			{Date: date(2024, 3, 9), Completed: false},
		}
		assert.Equal(t, 0, CurrentStreak(logs, today))
	})

	t.Run("three_consecutive_days", func(t *testing.T) {
		logs := completedOn(date(2024, 3, 10), date(2024, 3, 9), date(2024, 3, 8), date(2024, 3, 6))
		assert.Equal(t, 3, CurrentStreak(logs, today))
	})

	t.Run("today_only", func(t *testing.T) {
		logs := completedOn(date(2024, 3, 10), date(2024, 3, 8))
		assert.Equal(t, 1, CurrentStreak(logs, today))
	})

	t.Run("today_missing_breaks_streak", func(t *testing.T) {
		logs := completedOn(date(2024, 3, 9), date(2024, 3, 8))
		assert.Equal(t, 0, CurrentStreak(logs, today))
	})

	t.Run("unordered_input", func(t *testing.T) {
		logs := completedOn(date(2024, 3, 8), date(2024, 3, 10), date(2024, 3, 9))
		assert.Equal(t, 3, CurrentStreak(logs, today))
	})

	t.Run("duplicate_date_counts_if_any_completed", func(t *testing.T) {
		logs := []Log{
			{Date: date(2024, 3, 10), Completed: false},
			{Date: date(2024, 3, 10).Add(9 * time.Hour), Completed: true},
		}
		assert.Equal(t, 1, CurrentStreak(logs, today))
	})

	t.Run("crosses_month_boundary", func(t *testing.T) {
		logs := completedOn(date(2024, 3, 2), date(2024, 3, 1), date(2024, 2, 29), date(2024, 2, 28))
		assert.Equal(t, 4, CurrentStreak(logs, date(2024, 3, 2)))
	})

	t.Run("capped", func(t *testing.T) {
		start := date(2020, 1, 1)
		var logs []Log
		for i := 0; i < 1500; i++ {
			logs = append(logs, Log{Date: start.AddDate(0, 0, i), Completed: true})
		}
		last := start.AddDate(0, 0, 1499)
		assert.Equal(t, maxStreakDays, CurrentStreak(logs, last))
	})
}

func TestLongestStreak(t *testing.T) {
	assert.Equal(t, 0, LongestStreak(nil))

	logs := completedOn(
		date(2024, 1, 1), date(2024, 1, 2),
		date(2024, 1, 5), date(2024, 1, 6), date(2024, 1, 7), date(2024, 1, 8),
		date(2024, 1, 10),
	)
	logs = append(logs, Log{Date: date(2024, 1, 9), Completed: false})
	assert.Equal(t, 4, LongestStreak(logs))
}

func TestTotalExpected(t *testing.T) {
	today := date(2024, 6, 1)

	tests := []struct {
		name  string
		freq  Frequency
		start *time.Time
		end   *time.Time
		want  Total
	}{
		{"daily", Daily, ptr(date(2024, 1, 1)), ptr(date(2024, 1, 10)), Total{Count: 10}},
		{"weekly", Weekly, ptr(date(2024, 1, 1)), ptr(date(2024, 1, 14)), Total{Count: 2}},
		{"weekly_partial_week_rounds_up", Weekly, ptr(date(2024, 1, 1)), ptr(date(2024, 1, 15)), Total{Count: 3}},
		{"monthly", Monthly, ptr(date(2024, 1, 15)), ptr(date(2024, 3, 1)), Total{Count: 3}},
		{"monthly_across_year", Monthly, ptr(date(2023, 11, 30)), ptr(date(2024, 2, 1)), Total{Count: 4}},
		{"custom_falls_back_to_days", Custom, ptr(date(2024, 1, 1)), ptr(date(2024, 1, 10)), Total{Count: 10}},
		{"unknown_falls_back_to_days", Frequency("YEARLY"), ptr(date(2024, 1, 1)), ptr(date(2024, 1, 10)), Total{Count: 10}},
		{"same_day", Daily, ptr(date(2024, 1, 1)), ptr(date(2024, 1, 1)), Total{Count: 1}},
		{"end_before_start_clamps", Daily, ptr(date(2024, 1, 10)), ptr(date(2024, 1, 1)), Total{Count: 1}},
		{"monthly_end_before_start_clamps", Monthly, ptr(date(2024, 5, 10)), ptr(date(2024, 1, 1)), Total{Count: 1}},
		{"missing_start_uses_today", Daily, nil, ptr(date(2024, 6, 7)), Total{Count: 7}},
		{"missing_end_unbounded", Daily, ptr(date(2024, 1, 1)), nil, Total{Unbounded: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TotalExpected(tt.freq, tt.start, tt.end, today))
		})
	}

	for _, freq := range []Frequency{Daily, Weekly, Monthly, Custom} {
		got := TotalExpected(freq, nil, nil, today)
		assert.True(t, got.Unbounded, "frequency %s", freq)
	}
}

func TestTotalCompleted(t *testing.T) {
	logs := []Log{
		{Date: date(2024, 1, 1), Completed: true},
		{Date: date(2024, 1, 2), Completed: false},
		{Date: date(2024, 1, 3), Completed: true},
	}
	got := TotalCompleted(logs)
	assert.Equal(t, 2, got)
	assert.LessOrEqual(t, got, len(logs))
	assert.Equal(t, 0, TotalCompleted(nil))
}

func TestRollingWindowProgress(t *testing.T) {
	today := date(2024, 3, 31)

	t.Run("window_sizes", func(t *testing.T) {
		assert.Equal(t, 7, WindowDays(Daily))
		assert.Equal(t, 28, WindowDays(Weekly))
		assert.Equal(t, 90, WindowDays(Monthly))
		assert.Equal(t, 7, WindowDays(Custom))
		assert.Equal(t, 7, WindowDays(Frequency("")))
	})

	t.Run("full_window_is_100", func(t *testing.T) {
		for _, freq := range []Frequency{Daily, Weekly, Monthly, Custom} {
			var logs []Log
			for i := 0; i < WindowDays(freq); i++ {
				logs = append(logs, Log{Date: today.AddDate(0, 0, -i), Completed: true})
			}
			assert.Equal(t, 100, RollingWindowProgress(freq, logs, today), "frequency %s", freq)
		}
	})

	t.Run("rounds_to_nearest", func(t *testing.T) {
		logs := completedOn(today, today.AddDate(0, 0, -1), today.AddDate(0, 0, -2))
		// 3/7 = 42.857...
		assert.Equal(t, 43, RollingWindowProgress(Daily, logs, today))
		// 3/28 = 10.71...
		assert.Equal(t, 11, RollingWindowProgress(Weekly, logs, today))
	})

	t.Run("ignores_logs_outside_window_and_incomplete", func(t *testing.T) {
		logs := []Log{
			{Date: today.AddDate(0, 0, -7), Completed: true},
			{Date: today.AddDate(0, 0, 1), Completed: true},
			{Date: today, Completed: false},
		}
		assert.Equal(t, 0, RollingWindowProgress(Daily, logs, today))
	})

	t.Run("time_of_day_discarded", func(t *testing.T) {
		loc := time.FixedZone("UTC+8", 8*3600)
		logs := []Log{{Date: time.Date(2024, 3, 31, 23, 59, 0, 0, loc), Completed: true}}
		assert.Equal(t, 14, RollingWindowProgress(Daily, logs, time.Date(2024, 3, 31, 1, 0, 0, 0, time.UTC)))
	})

	t.Run("bounded", func(t *testing.T) {
		logs := completedOn(today, today, today.AddDate(0, 0, -3))
		for _, freq := range []Frequency{Daily, Weekly, Monthly, "OTHER"} {
			got := RollingWindowProgress(freq, logs, today)
			assert.GreaterOrEqual(t, got, 0)
			assert.LessOrEqual(t, got, 100)
		}
	})
}

func TestComputeIsIdempotent(t *testing.T) {
	today := date(2024, 1, 10)
	habit := Habit{Frequency: Weekly, StartDate: ptr(date(2024, 1, 1)), EndDate: ptr(date(2024, 1, 14))}
	logs := completedOn(date(2024, 1, 10), date(2024, 1, 9), date(2024, 1, 3))

	first := Compute(habit, logs, today)
	second := Compute(habit, logs, today)
	require.Equal(t, first, second)

	assert.Equal(t, 2, first.CurrentStreak)
	assert.Equal(t, 2, first.LongestStreak)
	assert.Equal(t, Total{Count: 2}, first.TotalExpected)
	assert.Equal(t, 3, first.TotalCompleted)
	assert.Equal(t, 28, first.WindowDays)
	assert.Equal(t, 11, first.WindowProgress)
	assert.Equal(t, "Last 4 weeks", first.PeriodLabel)
}

func TestFrequencyLabel(t *testing.T) {
	assert.Equal(t, "Daily", Daily.Label())
	assert.Equal(t, "Custom", Custom.Label())
	assert.Equal(t, "Last 3 months", PeriodLabel(Monthly))
	assert.Equal(t, "Progress", PeriodLabel(Custom))
}
