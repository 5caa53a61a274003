package model

import (
	"time"

	"gorm.io/gorm"
)

type Category struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}

// 商品。物理削除はしない（非公開化 or soft delete）。
// 価格は整数（IDRの最小単位）、重さはグラム。
type Product struct {
	ID     int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Name   string `gorm:"type:varchar(255);not null" json:"name"`
	Detail string `gorm:"type:text" json:"detail"`
	Price  int64  `gorm:"not null" json:"price"`
	Stock  int64  `gorm:"not null" json:"stock"`

	//配送料計算に使う
	Weight int64  `gorm:"not null;default:0" json:"weight"`
	Size   string `gorm:"type:varchar(50)" json:"size"`

	ImageURL   string    `gorm:"type:varchar(500)" json:"image_url"`
	CategoryID *int64    `gorm:"index" json:"category_id"`
	Category   *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`

	IsActive  bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
