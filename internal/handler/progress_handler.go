package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/habittracker/internal/service"
)

// GetHabitProgress 返回单个习惯的进度指标，?today=YYYY-MM-DD 可指定计算日
func (a *API) GetHabitProgress(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid habit id")
		return
	}

	today, err := a.today(c.Query("today"))
	if err != nil {
		respondValidation(c, map[string]string{"today": "must be a valid date"})
		return
	}

	result, err := a.progress.ForHabit(c.Request.Context(), currentUserID(c), id, today)
	if err != nil {
		a.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, progressToPayload(*result, today))
}

// GetProgressSummary 返回当前用户全部启用习惯的进度
func (a *API) GetProgressSummary(c *gin.Context) {
	today, err := a.today(c.Query("today"))
	if err != nil {
		respondValidation(c, map[string]string{"today": "must be a valid date"})
		return
	}

	results, err := a.progress.SummaryForUser(c.Request.Context(), currentUserID(c), today)
	if err != nil {
		a.handleServiceError(c, err)
		return
	}

	items := make([]gin.H, 0, len(results))
	for _, result := range results {
		items = append(items, progressToPayload(result, today))
	}

	c.JSON(http.StatusOK, gin.H{
		"today":  today.Format(dateFormat),
		"habits": items,
	})
}

// progressToPayload 中无结束日期时 totalExpected 为 null
func progressToPayload(result service.HabitProgress, today time.Time) gin.H {
	var totalExpected *int
	if !result.Summary.TotalExpected.Unbounded {
		count := result.Summary.TotalExpected.Count
		totalExpected = &count
	}

	return gin.H{
		"habitId":        result.Habit.ID,
		"habitName":      result.Habit.Name,
		"frequency":      result.Habit.Frequency,
		"today":          today.Format(dateFormat),
		"currentStreak":  result.Summary.CurrentStreak,
		"longestStreak":  result.Summary.LongestStreak,
		"totalExpected":  totalExpected,
		"totalCompleted": result.Summary.TotalCompleted,
		"windowDays":     result.Summary.WindowDays,
		"windowProgress": result.Summary.WindowProgress,
		"periodLabel":    result.Summary.PeriodLabel,
	}
}
