package model

import "time"

// 買い手の保存済み配送先
type Address struct {
	ID     int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID int64 `gorm:"not null;index" json:"userId"`

	//宛名
	Name    string `gorm:"type:varchar(255);not null" json:"name"`
	Company string `gorm:"type:varchar(255)" json:"company"`

	Line1      string `gorm:"type:varchar(255);not null" json:"line1"`
	Line2      string `gorm:"type:varchar(255)" json:"line2"`
	City       string `gorm:"type:varchar(255);not null" json:"city"`
	Region     string `gorm:"type:varchar(100)" json:"region"`
	PostalCode string `gorm:"type:varchar(20);not null" json:"postalCode"`
	Country    string `gorm:"type:varchar(2);not null" json:"country"`
	Phone      string `gorm:"type:varchar(30)" json:"phone"`

	//このユーザーのデフォルト住所か
	IsDefault bool `gorm:"not null;default:false" json:"isDefault"`

	CreatedAt time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null" json:"updatedAt"`
}

// 注文に保存するスナップショットへ変換
func (a Address) Snapshot() ShippingDetails {
	return ShippingDetails{
		Name:       a.Name,
		Company:    a.Company,
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		Region:     a.Region,
		PostalCode: a.PostalCode,
		Country:    a.Country,
		Phone:      a.Phone,
	}
}
