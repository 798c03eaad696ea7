package handler

import (
	"cmp"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/habittracker/internal/db"
	"github.com/habittracker/internal/service"
)

// heatmapSpanDays 是热力图默认回看的天数
const heatmapSpanDays = 365

type habitLogPayload struct {
	HabitID   uint   `json:"habitId"`
	LogDate   string `json:"logDate"`
	Completed *bool  `json:"completed"`
	Notes     string `json:"notes"`
}

type heatmapHabit struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

type heatmapDay struct {
	Date   string         `json:"date"`
	Count  int            `json:"count"`
	Habits []heatmapHabit `json:"habits"`
}

type heatmapSummary struct {
	TotalLogs  int `json:"totalLogs"`
	ActiveDays int `json:"activeDays"`
	HabitCount int `json:"habitCount"`
}

type habitHeatmapPayload struct {
	Start   string         `json:"startDate"`
	End     string         `json:"endDate"`
	Days    []heatmapDay   `json:"days"`
	Habits  []heatmapHabit `json:"habits"`
	Summary heatmapSummary `json:"summary"`
}

// ListHabitLogs 返回指定习惯的全部打卡记录
func (a *API) ListHabitLogs(c *gin.Context) {
	habitID, err := parseUintQuery(c, "habitId")
	if err != nil {
		respondValidation(c, map[string]string{"habitId": err.Error()})
		return
	}

	logs, err := a.habitLogs.ListByHabit(c.Request.Context(), currentUserID(c), habitID)
	if err != nil {
		a.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, habitLogsToPayload(logs))
}

// ListHabitLogsInRange 返回习惯在日期区间内的打卡记录
func (a *API) ListHabitLogsInRange(c *gin.Context) {
	habitID, err := parseUintQuery(c, "habitId")
	if err != nil {
		respondValidation(c, map[string]string{"habitId": err.Error()})
		return
	}

	start, end, ok := a.parseRangeQuery(c)
	if !ok {
		return
	}

	logs, err := a.habitLogs.ListBetween(c.Request.Context(), currentUserID(c), service.HabitLogFilter{
		HabitID: habitID,
		Start:   start,
		End:     end,
	})
	if err != nil {
		a.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, habitLogsToPayload(logs))
}

// ListUserHabitLogs 返回当前用户所有习惯在日期区间内的打卡记录
func (a *API) ListUserHabitLogs(c *gin.Context) {
	start, end, ok := a.parseRangeQuery(c)
	if !ok {
		return
	}

	logs, err := a.habitLogs.ListByUserBetween(c.Request.Context(), currentUserID(c), start, end)
	if err != nil {
		a.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, habitLogsToPayload(logs))
}

// GetHabitLogHeatmap 返回按天聚合的完成记录，默认回看一年
func (a *API) GetHabitLogHeatmap(c *gin.Context) {
	end, err := a.today(c.Query("endDate"))
	if err != nil {
		respondValidation(c, map[string]string{"endDate": "must be a valid date"})
		return
	}
	start := end.AddDate(0, 0, -(heatmapSpanDays - 1))
	if raw := c.Query("startDate"); raw != "" {
		if start, err = parseDate(raw, a.now()); err != nil {
			respondValidation(c, map[string]string{"startDate": "must be a valid date"})
			return
		}
	}

	logs, err := a.habitLogs.ListByUserBetween(c.Request.Context(), currentUserID(c), start, end)
	if err != nil {
		a.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, buildHabitHeatmapPayload(logs, start, end))
}

// GetHabitLog 返回单条打卡记录
func (a *API) GetHabitLog(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid habit log id")
		return
	}

	record, err := a.habitLogs.Get(c.Request.Context(), currentUserID(c), id)
	if err != nil {
		a.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, habitLogToPayload(*record))
}

// CreateHabitLog 新建打卡记录，同一天重复打卡返回 409
func (a *API) CreateHabitLog(c *gin.Context) {
	input, ok := a.parseHabitLogInput(c, true)
	if !ok {
		return
	}

	record, err := a.habitLogs.Create(c.Request.Context(), currentUserID(c), input)
	if err != nil {
		a.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, habitLogToPayload(*record))
}

// UpdateHabitLog 修改打卡记录
func (a *API) UpdateHabitLog(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid habit log id")
		return
	}

	input, ok := a.parseHabitLogInput(c, false)
	if !ok {
		return
	}

	record, err := a.habitLogs.Update(c.Request.Context(), currentUserID(c), id, input)
	if err != nil {
		a.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, habitLogToPayload(*record))
}

// DeleteHabitLog 删除单条打卡
func (a *API) DeleteHabitLog(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid habit log id")
		return
	}

	if err := a.habitLogs.Delete(c.Request.Context(), currentUserID(c), id); err != nil {
		a.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (a *API) parseHabitLogInput(c *gin.Context, requireHabit bool) (service.HabitLogInput, bool) {
	var payload habitLogPayload
	if !bindJSON(c, &payload) {
		return service.HabitLogInput{}, false
	}

	fields := map[string]string{}
	if requireHabit && payload.HabitID == 0 {
		fields["habitId"] = "is required"
	}

	var logDate time.Time
	if strings.TrimSpace(payload.LogDate) == "" {
		fields["logDate"] = "is required"
	} else {
		parsed, err := parseDate(payload.LogDate, a.now())
		if err != nil {
			fields["logDate"] = "must be a valid date"
		}
		logDate = parsed
	}

	if len(fields) > 0 {
		respondValidation(c, fields)
		return service.HabitLogInput{}, false
	}

	return service.HabitLogInput{
		HabitID:   payload.HabitID,
		LogDate:   logDate,
		Completed: payload.Completed,
		Notes:     payload.Notes,
	}, true
}

func (a *API) parseRangeQuery(c *gin.Context) (time.Time, time.Time, bool) {
	now := a.now()
	fields := map[string]string{}

	start, err := parseDate(c.Query("startDate"), now)
	if err != nil {
		fields["startDate"] = "must be a valid date"
	}
	end, err := parseDate(c.Query("endDate"), now)
	if err != nil {
		fields["endDate"] = "must be a valid date"
	}

	if len(fields) > 0 {
		respondValidation(c, fields)
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

func habitLogsToPayload(logs []db.HabitLog) []gin.H {
	items := make([]gin.H, 0, len(logs))
	for _, log := range logs {
		items = append(items, habitLogToPayload(log))
	}
	return items
}

func habitLogToPayload(log db.HabitLog) gin.H {
	return gin.H{
		"id":        log.ID,
		"habitId":   log.HabitID,
		"habitName": log.Habit.Name,
		"logDate":   log.LogDate.Format(dateFormat),
		"completed": log.Completed,
		"notes":     log.Notes,
		"createdAt": log.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func buildHabitHeatmapPayload(logs []db.HabitLog, start, end time.Time) habitHeatmapPayload {
	dayMap := make(map[string][]heatmapHabit)
	legendMap := make(map[uint]heatmapHabit)

	for _, log := range logs {
		if !log.Completed {
			continue
		}
		habit := heatmapHabit{ID: log.HabitID, Name: log.Habit.Name}
		key := log.LogDate.Format(dateFormat)
		dayMap[key] = append(dayMap[key], habit)
		if _, exists := legendMap[habit.ID]; !exists {
			legendMap[habit.ID] = habit
		}
	}

	byName := func(a, b heatmapHabit) int {
		if diff := cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)); diff != 0 {
			return diff
		}
		return cmp.Compare(a.ID, b.ID)
	}

	total := 0
	days := make([]heatmapDay, 0, len(dayMap))
	for date, habits := range dayMap {
		slices.SortFunc(habits, byName)
		days = append(days, heatmapDay{Date: date, Count: len(habits), Habits: habits})
		total += len(habits)
	}
	slices.SortFunc(days, func(a, b heatmapDay) int {
		return cmp.Compare(a.Date, b.Date)
	})

	legend := make([]heatmapHabit, 0, len(legendMap))
	for _, item := range legendMap {
		legend = append(legend, item)
	}
	slices.SortFunc(legend, byName)

	return habitHeatmapPayload{
		Start:   start.Format(dateFormat),
		End:     end.Format(dateFormat),
		Days:    days,
		Habits:  legend,
		Summary: heatmapSummary{TotalLogs: total, ActiveDays: len(dayMap), HabitCount: len(legend)},
	}
}
