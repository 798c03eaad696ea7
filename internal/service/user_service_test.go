package service

import (
	"context"
	"errors"
	"testing"

	"github.com/habittracker/internal/auth"
	"github.com/habittracker/internal/db"
)

func TestUserServiceUpdateProfile(t *testing.T) {
	gdb := setupTestDB(t)
	alice := createTestUser(t, gdb, "alice")
	createTestUser(t, gdb, "bob")
	svc := NewUserService(gdb)
	ctx := context.Background()

	if _, err := svc.UpdateProfile(ctx, alice.ID, UpdateUserInput{Username: "bob"}); !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
	if _, err := svc.UpdateProfile(ctx, alice.ID, UpdateUserInput{Email: "BOB@example.com"}); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}

	// 保持原用户名不算冲突
	updated, err := svc.UpdateProfile(ctx, alice.ID, UpdateUserInput{Username: "alice", Email: "alice.new@example.com", Password: "newsecret"})
	if err != nil {
		t.Fatalf("UpdateProfile returned error: %v", err)
	}
	if updated.Email != "alice.new@example.com" {
		t.Fatalf("expected email to update, got %s", updated.Email)
	}
	if !auth.CheckPassword("newsecret", updated.Password) {
		t.Fatal("expected password to be rehashed")
	}

	byName, err := svc.GetByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("GetByUsername returned error: %v", err)
	}
	if byName.ID != alice.ID {
		t.Fatalf("unexpected user: %+v", byName)
	}

	if _, err := svc.UpdateProfile(ctx, alice.ID, UpdateUserInput{Email: "broken"}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := svc.UpdateProfile(ctx, 9999, UpdateUserInput{}); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUserServiceDeleteCascades(t *testing.T) {
	gdb := setupTestDB(t)
	alice := createTestUser(t, gdb, "alice")
	bob := createTestUser(t, gdb, "bob")
	habits := NewHabitService(gdb)
	logs := NewHabitLogService(gdb, habits)
	svc := NewUserService(gdb)
	ctx := context.Background()

	aliceHabit, err := habits.Create(ctx, alice.ID, HabitInput{Name: "跑步"})
	if err != nil {
		t.Fatalf("create habit: %v", err)
	}
	bobHabit, err := habits.Create(ctx, bob.ID, HabitInput{Name: "阅读"})
	if err != nil {
		t.Fatalf("create habit: %v", err)
	}
	if _, err := logs.Create(ctx, alice.ID, HabitLogInput{HabitID: aliceHabit.ID, LogDate: day(2024, 1, 1)}); err != nil {
		t.Fatalf("create log: %v", err)
	}
	if _, err := logs.Create(ctx, bob.ID, HabitLogInput{HabitID: bobHabit.ID, LogDate: day(2024, 1, 1)}); err != nil {
		t.Fatalf("create log: %v", err)
	}

	if err := svc.Delete(ctx, alice.ID); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if _, err := svc.Get(ctx, alice.ID); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound after delete, got %v", err)
	}

	var habitCount, logCount int64
	gdb.Model(&db.Habit{}).Count(&habitCount)
	gdb.Model(&db.HabitLog{}).Count(&logCount)
	if habitCount != 1 || logCount != 1 {
		t.Fatalf("expected only bob's data to remain, got habits=%d logs=%d", habitCount, logCount)
	}

	if err := svc.Delete(ctx, alice.ID); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound deleting twice, got %v", err)
	}
}
