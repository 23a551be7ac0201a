package model

import "time"

// 規約違反のストライク
type Strike struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64     `gorm:"not null;index" json:"userId"`
	IssuedBy  int64     `gorm:"not null" json:"issuedBy"`
	Reason    string    `gorm:"type:text;not null" json:"reason"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"createdAt"`
}
