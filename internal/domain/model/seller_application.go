package model

import "time"

type SellerApplicationStatus string

const (
	SellerApplicationPending  SellerApplicationStatus = "pending"
	SellerApplicationApproved SellerApplicationStatus = "approved"
	SellerApplicationRejected SellerApplicationStatus = "rejected"
)

// 買い手から出品者への申請
type SellerApplication struct {
	ID           int64                   `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID       int64                   `gorm:"not null;index" json:"userId"`
	BusinessName string                  `gorm:"type:varchar(255);not null" json:"businessName"`
	TaxID        string                  `gorm:"type:varchar(64);not null" json:"taxId"`
	Website      string                  `gorm:"type:varchar(255)" json:"website"`
	Status       SellerApplicationStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	ReviewedBy   *int64                  `json:"reviewedBy"`
	ReviewedAt   *time.Time              `json:"reviewedAt"`
	ReviewNote   string                  `gorm:"type:text" json:"reviewNote"`
	CreatedAt    time.Time               `gorm:"not null;autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time               `gorm:"not null;autoUpdateTime" json:"updatedAt"`
}
