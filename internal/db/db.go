package db

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB 是一个全局的数据库连接实例
var DB *gorm.DB

// Init 打开数据库连接、执行自动迁移并写入全局 DB。
// driver 为 sqlite 时 target 为文件路径（为空回退到 habittracker.db），为 postgres 时 target 为 DSN。
func Init(driver, target string) error {
	gdb, err := Open(driver, target, logger.Warn)
	if err != nil {
		return err
	}

	if err := Migrate(gdb); err != nil {
		return err
	}

	DB = gdb
	return nil
}

// Open 根据驱动打开连接；SQLite 连接会开启外键约束
func Open(driver, target string, level logger.LogLevel) (*gorm.DB, error) {
	cfg := &gorm.Config{
		Logger:         logger.Default.LogMode(level),
		TranslateError: true,
	}

	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "sqlite":
		path := strings.TrimSpace(target)
		if path == "" {
			path = "habittracker.db"
		}
		if err := ensureParentDir(path); err != nil {
			return nil, err
		}

		gdb, err := gorm.Open(sqlite.Open(path), cfg)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		if err := gdb.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
			return nil, fmt.Errorf("enable foreign keys: %w", err)
		}
		return gdb, nil
	case "postgres":
		if strings.TrimSpace(target) == "" {
			return nil, errors.New("postgres dsn is required")
		}
		gdb, err := gorm.Open(postgres.Open(target), cfg)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return gdb, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// Migrate 为核心模型创建表与索引
func Migrate(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(&User{}, &Habit{}, &HabitLog{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

func ensureParentDir(path string) error {
	if strings.HasPrefix(path, "file:") {
		return nil
	}

	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}

	info, err := os.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return errors.New("database path parent is not a directory")
		}
		return nil
	}

	if os.IsNotExist(err) {
		return os.MkdirAll(dir, 0o755)
	}

	return err
}
