package handler

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/habittracker/internal/db"
	"github.com/markusmobius/go-dateparser"
)

const dateFormat = "2006-01-02"

// isoDatePattern 匹配以 YYYY-MM-DD 开头的输入，这类输入只接受严格解析
var isoDatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}(T|$)`)

// parseDate 依次尝试 YYYY-MM-DD、RFC3339 与自然语言（如 "yesterday"），
// 返回对应日历日的 UTC 零点。自然语言相对于 now 解析。
func parseDate(raw string, now time.Time) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	if t, err := time.Parse(dateFormat, raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return db.DateOnly(t), nil
	}
	if isoDatePattern.MatchString(raw) {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", raw)
	}

	cfg := &dateparser.Configuration{
		CurrentTime: now,
	}
	result, err := dateparser.Parse(cfg, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", raw, err)
	}
	return db.DateOnly(result.Time), nil
}

func parseOptionalDate(raw string, now time.Time) (*time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	t, err := parseDate(raw, now)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func formatOptionalDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(dateFormat)
	return &s
}

// today 返回请求对应的"今天"，可由 ?today= 覆盖
func (a *API) today(raw string) (time.Time, error) {
	now := a.now()
	if strings.TrimSpace(raw) == "" {
		return db.DateOnly(now), nil
	}
	return parseDate(raw, now)
}
