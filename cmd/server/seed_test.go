package main

import (
	"context"
	"testing"
	"time"

	"github.com/habittracker/internal/auth"
	"github.com/habittracker/internal/db"
	"github.com/habittracker/internal/service"
	"gorm.io/gorm/logger"
)

func TestSeedDemoDataIsIdempotent(t *testing.T) {
	gdb, err := db.Open("sqlite", "file:seed-demo?mode=memory&cache=shared", logger.Silent)
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	defer func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	}()
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	tokens := auth.NewTokenManager("seed-secret", "habit-tracker-test", time.Hour)
	now := time.Date(2024, 6, 30, 20, 0, 0, 0, time.UTC)
	ctx := context.Background()

	stats, err := seedDemoData(ctx, gdb, tokens, now)
	if err != nil {
		t.Fatalf("seedDemoData returned error: %v", err)
	}
	if stats.habits != len(demoHabits) || stats.logs == 0 {
		t.Fatalf("unexpected seed stats: %+v", stats)
	}

	again, err := seedDemoData(ctx, gdb, tokens, now)
	if err != nil {
		t.Fatalf("second seed returned error: %v", err)
	}
	if again.habits != 0 || again.logs != 0 {
		t.Fatalf("expected second run to be a no-op, got %+v", again)
	}

	var user db.User
	if err := gdb.Where("username = ?", demoUsername).First(&user).Error; err != nil {
		t.Fatalf("demo user missing: %v", err)
	}

	progress := service.NewProgressService(gdb, service.NewHabitService(gdb))
	summaries, err := progress.SummaryForUser(ctx, user.ID, db.DateOnly(now))
	if err != nil {
		t.Fatalf("SummaryForUser returned error: %v", err)
	}
	for _, s := range summaries {
		if s.Habit.Name == "晨跑" && s.Summary.CurrentStreak < 7 {
			t.Fatalf("expected running streak of at least 7 days, got %d", s.Summary.CurrentStreak)
		}
	}
}
