package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/habittracker/internal/auth"
	"github.com/habittracker/internal/db"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	gdb, err := db.Open("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", name), logger.Silent)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return gdb
}

func createTestUser(t *testing.T, gdb *gorm.DB, username string) *db.User {
	t.Helper()

	hashed, err := auth.HashPassword("secret123")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := db.User{Username: username, Email: username + "@example.com", Password: hashed, Enabled: true}
	if err := gdb.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return &user
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func timePtr(t time.Time) *time.Time {
	return &t
}

func boolPtr(b bool) *bool {
	return &b
}

func TestHabitServiceCreateAndList(t *testing.T) {
	gdb := setupTestDB(t)
	user := createTestUser(t, gdb, "alice")
	svc := NewHabitService(gdb)
	ctx := context.Background()

	habit, err := svc.Create(ctx, user.ID, HabitInput{
		Name:        "  晨跑  ",
		Description: "每天 5 公里",
		Frequency:   "weekly",
		StartDate:   timePtr(time.Date(2024, 1, 1, 15, 30, 0, 0, time.UTC)),
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if habit.ID == 0 {
		t.Fatal("expected habit to have ID")
	}
	if habit.Name != "晨跑" {
		t.Fatalf("expected trimmed name, got %q", habit.Name)
	}
	if habit.Frequency != "WEEKLY" {
		t.Fatalf("expected frequency to be normalized, got %s", habit.Frequency)
	}
	if !habit.Active {
		t.Fatal("expected new habit to be active")
	}
	if !habit.StartDate.Equal(day(2024, 1, 1)) {
		t.Fatalf("expected start date truncated to day, got %v", habit.StartDate)
	}

	defaulted, err := svc.Create(ctx, user.ID, HabitInput{Name: "阅读", Active: boolPtr(false)})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if defaulted.Frequency != "DAILY" {
		t.Fatalf("expected default frequency DAILY, got %s", defaulted.Frequency)
	}
	if defaulted.Active {
		t.Fatal("expected inactive habit")
	}

	habits, err := svc.ListByUser(ctx, user.ID, HabitFilter{Active: boolPtr(true)})
	if err != nil {
		t.Fatalf("ListByUser returned error: %v", err)
	}
	if len(habits) != 1 || habits[0].ID != habit.ID {
		t.Fatalf("expected only the active habit, got %+v", habits)
	}

	habits, err = svc.ListByUser(ctx, user.ID, HabitFilter{Frequency: "daily"})
	if err != nil {
		t.Fatalf("ListByUser returned error: %v", err)
	}
	if len(habits) != 1 || habits[0].ID != defaulted.ID {
		t.Fatalf("expected only the daily habit, got %+v", habits)
	}

	habits, err = svc.ListByUser(ctx, user.ID, HabitFilter{Search: "公里"})
	if err != nil {
		t.Fatalf("ListByUser returned error: %v", err)
	}
	if len(habits) != 1 || habits[0].ID != habit.ID {
		t.Fatalf("expected search to match description, got %+v", habits)
	}

	habits, err = svc.ListByUser(ctx, user.ID, HabitFilter{})
	if err != nil {
		t.Fatalf("ListByUser returned error: %v", err)
	}
	if len(habits) != 2 {
		t.Fatalf("expected 2 habits, got %d", len(habits))
	}
}

func TestHabitServiceValidation(t *testing.T) {
	gdb := setupTestDB(t)
	user := createTestUser(t, gdb, "alice")
	svc := NewHabitService(gdb)
	ctx := context.Background()

	cases := map[string]struct {
		input HabitInput
		field string
	}{
		"missing name":      {HabitInput{Name: "   "}, "name"},
		"name too long":     {HabitInput{Name: strings.Repeat("a", 101)}, "name"},
		"description long":  {HabitInput{Name: "ok", Description: strings.Repeat("d", 501)}, "description"},
		"unknown frequency": {HabitInput{Name: "ok", Frequency: "yearly"}, "frequency"},
		"end before start": {HabitInput{
			Name:      "ok",
			StartDate: timePtr(day(2024, 2, 1)),
			EndDate:   timePtr(day(2024, 1, 1)),
		}, "endDate"},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Create(ctx, user.ID, tc.input)
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected *ValidationError, got %T", err)
			}
			if _, ok := verr.Fields[tc.field]; !ok {
				t.Fatalf("expected field %s in %v", tc.field, verr.Fields)
			}
		})
	}

	if _, err := svc.Create(ctx, user.ID, HabitInput{
		Name:      "same day",
		StartDate: timePtr(day(2024, 1, 1)),
		EndDate:   timePtr(day(2024, 1, 1)),
	}); err != nil {
		t.Fatalf("expected same-day range to be accepted, got %v", err)
	}
}

func TestHabitServiceUpdateToggleDelete(t *testing.T) {
	gdb := setupTestDB(t)
	user := createTestUser(t, gdb, "alice")
	svc := NewHabitService(gdb)
	ctx := context.Background()

	habit, err := svc.Create(ctx, user.ID, HabitInput{Name: "冥想", Frequency: "DAILY"})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	updated, err := svc.Update(ctx, user.ID, habit.ID, HabitInput{
		Name:      "冥想训练",
		Frequency: "MONTHLY",
		Active:    boolPtr(false),
		EndDate:   timePtr(day(2024, 12, 31)),
	})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if updated.Name != "冥想训练" || updated.Frequency != "MONTHLY" || updated.Active {
		t.Fatalf("unexpected updated habit: %+v", updated)
	}

	toggled, err := svc.ToggleActive(ctx, user.ID, habit.ID)
	if err != nil {
		t.Fatalf("ToggleActive returned error: %v", err)
	}
	if !toggled.Active {
		t.Fatal("expected toggle to re-activate habit")
	}

	reloaded, err := svc.Get(ctx, user.ID, habit.ID)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if !reloaded.Active || reloaded.EndDate == nil || !reloaded.EndDate.Equal(day(2024, 12, 31)) {
		t.Fatalf("unexpected persisted habit: %+v", reloaded)
	}

	logSvc := NewHabitLogService(gdb, svc)
	if _, err := logSvc.Create(ctx, user.ID, HabitLogInput{HabitID: habit.ID, LogDate: day(2024, 3, 1)}); err != nil {
		t.Fatalf("create log: %v", err)
	}

	if err := svc.Delete(ctx, user.ID, habit.ID); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if _, err := svc.Get(ctx, user.ID, habit.ID); !errors.Is(err, ErrHabitNotFound) {
		t.Fatalf("expected ErrHabitNotFound after delete, got %v", err)
	}

	var count int64
	gdb.Model(&db.HabitLog{}).Where("habit_id = ?", habit.ID).Count(&count)
	if count != 0 {
		t.Fatalf("expected logs to be deleted, got %d", count)
	}
}

func TestHabitServiceScopesToOwner(t *testing.T) {
	gdb := setupTestDB(t)
	alice := createTestUser(t, gdb, "alice")
	bob := createTestUser(t, gdb, "bob")
	svc := NewHabitService(gdb)
	ctx := context.Background()

	habit, err := svc.Create(ctx, alice.ID, HabitInput{Name: "写日记"})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if _, err := svc.Get(ctx, bob.ID, habit.ID); !errors.Is(err, ErrHabitNotFound) {
		t.Fatalf("expected ErrHabitNotFound for other user, got %v", err)
	}
	if _, err := svc.Update(ctx, bob.ID, habit.ID, HabitInput{Name: "hijack"}); !errors.Is(err, ErrHabitNotFound) {
		t.Fatalf("expected ErrHabitNotFound on update, got %v", err)
	}
	if _, err := svc.ToggleActive(ctx, bob.ID, habit.ID); !errors.Is(err, ErrHabitNotFound) {
		t.Fatalf("expected ErrHabitNotFound on toggle, got %v", err)
	}
	if err := svc.Delete(ctx, bob.ID, habit.ID); !errors.Is(err, ErrHabitNotFound) {
		t.Fatalf("expected ErrHabitNotFound on delete, got %v", err)
	}

	habits, err := svc.ListByUser(ctx, bob.ID, HabitFilter{})
	if err != nil {
		t.Fatalf("ListByUser returned error: %v", err)
	}
	if len(habits) != 0 {
		t.Fatalf("expected bob to see no habits, got %d", len(habits))
	}
}
