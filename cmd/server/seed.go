package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/habittracker/internal/auth"
	"github.com/habittracker/internal/db"
	"github.com/habittracker/internal/service"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	demoUsername = "demo"
	demoPassword = "demo123"
	seedDays     = 60
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Generate demo habits and logs for local development",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := bootstrap()
		if err != nil {
			return err
		}
		defer log.Sync()
		defer closeDB(log)

		tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTExpiration)
		stats, err := seedDemoData(cmd.Context(), db.DB, tokens, time.Now())
		if err != nil {
			return err
		}

		log.Info("demo data generated", zap.Int("habits", stats.habits), zap.Int("logs", stats.logs))
		fmt.Fprintf(cmd.OutOrStdout(), "用户: %s (密码: %s)\n习惯: %d 个\n打卡: %d 条\n", demoUsername, demoPassword, stats.habits, stats.logs)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

type seedStats struct {
	habits int
	logs   int
}

// demoHabit 描述一个示例习惯；pattern 决定最近 seedDays 天中哪些天打卡
type demoHabit struct {
	name        string
	description string
	frequency   string
	pattern     func(daysAgo int) (logged, completed bool)
}

var demoHabits = []demoHabit{
	{
		name:        "晨跑",
		description: "每天 **5 公里**，雨天改为室内拉伸",
		frequency:   "DAILY",
		pattern: func(daysAgo int) (bool, bool) {
			// 每周休息一天，最近一周全勤
			return daysAgo < 7 || daysAgo%7 != 3, true
		},
	},
	{
		name:        "阅读",
		description: "睡前读 30 分钟",
		frequency:   "DAILY",
		pattern: func(daysAgo int) (bool, bool) {
			return daysAgo%3 != 2, daysAgo%5 != 4
		},
	},
	{
		name:        "长距离骑行",
		description: "周末骑行 50 公里以上",
		frequency:   "WEEKLY",
		pattern: func(daysAgo int) (bool, bool) {
			return daysAgo%7 == 1, true
		},
	},
	{
		name:        "整理财务",
		description: "月初核对账单",
		frequency:   "MONTHLY",
		pattern: func(daysAgo int) (bool, bool) {
			return daysAgo%30 == 0, true
		},
	},
}

// seedDemoData 创建示例用户和习惯；用户已存在时不重复生成
func seedDemoData(ctx context.Context, gdb *gorm.DB, tokens *auth.TokenManager, now time.Time) (seedStats, error) {
	var stats seedStats

	authSvc := service.NewAuthService(gdb, tokens, nil)
	result, err := authSvc.Register(ctx, service.RegisterInput{
		Username: demoUsername,
		Email:    demoUsername + "@example.com",
		Password: demoPassword,
	})
	if errors.Is(err, service.ErrConflict) {
		return stats, nil
	}
	if err != nil {
		return stats, fmt.Errorf("create demo user: %w", err)
	}

	habits := service.NewHabitService(gdb)
	logs := service.NewHabitLogService(gdb, habits)
	today := db.DateOnly(now)
	start := today.AddDate(0, 0, -(seedDays - 1))

	for _, demo := range demoHabits {
		habit, err := habits.Create(ctx, result.User.ID, service.HabitInput{
			Name:        demo.name,
			Description: demo.description,
			Frequency:   demo.frequency,
			StartDate:   &start,
		})
		if err != nil {
			return stats, fmt.Errorf("create habit %s: %w", demo.name, err)
		}
		stats.habits++

		for daysAgo := 0; daysAgo < seedDays; daysAgo++ {
			logged, completed := demo.pattern(daysAgo)
			if !logged {
				continue
			}
			done := completed
			if _, err := logs.Create(ctx, result.User.ID, service.HabitLogInput{
				HabitID:   habit.ID,
				LogDate:   today.AddDate(0, 0, -daysAgo),
				Completed: &done,
			}); err != nil {
				return stats, fmt.Errorf("create log for %s: %w", demo.name, err)
			}
			stats.logs++
		}
	}

	return stats, nil
}
