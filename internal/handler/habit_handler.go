package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/habittracker/internal/db"
	"github.com/habittracker/internal/progress"
	"github.com/habittracker/internal/service"
)

type habitPayload struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Active      *bool  `json:"active"`
	Frequency   string `json:"frequency"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
}

// ListHabits 返回当前用户的习惯列表，支持 active/frequency/search 过滤
func (a *API) ListHabits(c *gin.Context) {
	active, err := parseBoolQuery(c, "active")
	if err != nil {
		respondValidation(c, map[string]string{"active": "must be true or false"})
		return
	}

	filter := service.HabitFilter{
		Active:    active,
		Frequency: c.Query("frequency"),
		Search:    c.Query("search"),
	}

	habits, err := a.habits.ListByUser(c.Request.Context(), currentUserID(c), filter)
	if err != nil {
		a.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, habitsToPayload(habits))
}

// ListActiveHabits 返回启用中的习惯
func (a *API) ListActiveHabits(c *gin.Context) {
	active := true
	habits, err := a.habits.ListByUser(c.Request.Context(), currentUserID(c), service.HabitFilter{Active: &active})
	if err != nil {
		a.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, habitsToPayload(habits))
}

// GetHabit 返回单个习惯详情
func (a *API) GetHabit(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid habit id")
		return
	}

	habit, err := a.habits.Get(c.Request.Context(), currentUserID(c), id)
	if err != nil {
		a.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, habitToPayload(*habit))
}

// CreateHabit 创建习惯
func (a *API) CreateHabit(c *gin.Context) {
	input, ok := a.parseHabitInput(c)
	if !ok {
		return
	}

	habit, err := a.habits.Create(c.Request.Context(), currentUserID(c), input)
	if err != nil {
		a.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, habitToPayload(*habit))
}

// UpdateHabit 更新习惯
func (a *API) UpdateHabit(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid habit id")
		return
	}

	input, ok := a.parseHabitInput(c)
	if !ok {
		return
	}

	habit, err := a.habits.Update(c.Request.Context(), currentUserID(c), id, input)
	if err != nil {
		a.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, habitToPayload(*habit))
}

// ToggleHabit 切换习惯启用状态
func (a *API) ToggleHabit(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid habit id")
		return
	}

	habit, err := a.habits.ToggleActive(c.Request.Context(), currentUserID(c), id)
	if err != nil {
		a.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, habitToPayload(*habit))
}

// DeleteHabit 删除习惯
func (a *API) DeleteHabit(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid habit id")
		return
	}

	if err := a.habits.Delete(c.Request.Context(), currentUserID(c), id); err != nil {
		a.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (a *API) parseHabitInput(c *gin.Context) (service.HabitInput, bool) {
	var payload habitPayload
	if !bindJSON(c, &payload) {
		return service.HabitInput{}, false
	}

	now := a.now()
	fields := map[string]string{}

	startPtr, err := parseOptionalDate(payload.StartDate, now)
	if err != nil {
		fields["startDate"] = "must be a valid date"
	}
	endPtr, err := parseOptionalDate(payload.EndDate, now)
	if err != nil {
		fields["endDate"] = "must be a valid date"
	}
	if len(fields) > 0 {
		respondValidation(c, fields)
		return service.HabitInput{}, false
	}

	return service.HabitInput{
		Name:        payload.Name,
		Description: payload.Description,
		Active:      payload.Active,
		Frequency:   payload.Frequency,
		StartDate:   startPtr,
		EndDate:     endPtr,
	}, true
}

func habitsToPayload(habits []db.Habit) []gin.H {
	items := make([]gin.H, 0, len(habits))
	for _, habit := range habits {
		items = append(items, habitToPayload(habit))
	}
	return items
}

func habitToPayload(habit db.Habit) gin.H {
	return gin.H{
		"id":              habit.ID,
		"userId":          habit.UserID,
		"name":            habit.Name,
		"description":     habit.Description,
		"descriptionHtml": renderMarkdown(habit.Description),
		"active":          habit.Active,
		"frequency":       habit.Frequency,
		"frequencyLabel":  progress.Frequency(habit.Frequency).Label(),
		"startDate":       formatOptionalDate(habit.StartDate),
		"endDate":         formatOptionalDate(habit.EndDate),
		"createdAt":       habit.CreatedAt.UTC().Format(time.RFC3339),
		"updatedAt":       habit.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
