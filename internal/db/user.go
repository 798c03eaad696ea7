package db

import (
	"time"
)

// User 定义了用户模型，用户名与邮箱均唯一
type User struct {
	ID        uint   `gorm:"primaryKey"`
	Username  string `gorm:"size:50;uniqueIndex;not null"`
	Email     string `gorm:"size:255;uniqueIndex;not null"`
	Password  string `gorm:"not null"`
	Enabled   bool   `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
