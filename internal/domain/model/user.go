package model

import "time"

type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
	RoleAdmin  Role = "admin"
)

// 定義済みのロールか
func (r Role) Valid() bool {
	switch r {
	case RoleBuyer, RoleSeller, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	ID           int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	Email        string     `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash string     `gorm:"column:password_hash;not null" json:"-"`
	Role         Role       `gorm:"type:varchar(20);not null;default:'buyer';index" json:"role"`
	CompanyName  string     `gorm:"type:varchar(255)" json:"companyName"`
	TokenVersion int        `gorm:"not null;default:0" json:"tokenVersion"`
	IsActive     bool       `gorm:"not null;default:true" json:"isActive"`
	StrikeCount  int        `gorm:"not null;default:0" json:"strikeCount"`
	LastLoginAt  *time.Time `json:"lastLoginAt"`
	CreatedAt    time.Time  `gorm:"not null;autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time  `gorm:"not null;autoUpdateTime" json:"updatedAt"`
}
