package model

import "time"

// パスワードリセットコード（DB保存版）。コードはハッシュのみ保存
type PasswordResetCode struct {
	ID             int64      `gorm:"primaryKey;autoIncrement"`
	Email          string     `gorm:"type:varchar(255);not null;index"`
	CodeHash       string     `gorm:"not null"`
	ExpiresAt      time.Time  `gorm:"not null;index"`
	UsedAt         *time.Time `gorm:"index"`
	FailedAttempts int        `gorm:"not null;default:0"`
	CreatedAt      time.Time  `gorm:"not null;autoCreateTime"`
}
