package main

import (
	"fmt"
	"os"

	"github.com/habittracker/internal/config"
	"github.com/habittracker/internal/db"
	"github.com/habittracker/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// rootCmd 是命令行入口，不带子命令时等同于 serve
var rootCmd = &cobra.Command{
	Use:          "habit-tracker",
	Short:        "Habit tracking backend",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd, userCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// bootstrap 加载配置、初始化日志并连接数据库
func bootstrap() (config.AppConfig, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.AppConfig{}, nil, fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return config.AppConfig{}, nil, fmt.Errorf("init logger: %w", err)
	}

	// 初始化数据库
	if err := db.Init(cfg.DatabaseDriver, cfg.DatabaseTarget()); err != nil {
		log.Error("failed to initialize database", zap.String("driver", cfg.DatabaseDriver), zap.Error(err))
		return config.AppConfig{}, nil, fmt.Errorf("init database: %w", err)
	}

	return cfg, log, nil
}

func closeDB(log *zap.Logger) {
	if db.DB == nil {
		return
	}
	if sqlDB, err := db.DB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Warn("close database failed", zap.Error(err))
		}
	}
}
