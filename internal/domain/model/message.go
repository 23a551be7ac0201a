package model

import "time"

type Message struct {
	ID          int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	SenderID    int64      `gorm:"not null;index" json:"senderId"`
	RecipientID int64      `gorm:"not null;index" json:"recipientId"`
	OrderID     *int64     `gorm:"index" json:"orderId,omitempty"`
	Body        string     `gorm:"type:text;not null" json:"body"`
	ReadAt      *time.Time `json:"readAt"`
	CreatedAt   time.Time  `gorm:"not null;autoCreateTime;index" json:"createdAt"`
}
