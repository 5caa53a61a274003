package model

import "time"

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// 外部IDプロバイダのトークン検証後に /auth/sync で同期されるユーザー。
// パスワードは持たない（認証は外部に委譲）。
type User struct {
	ID int64 `gorm:"primaryKey;autoIncrement" json:"id"`

	//外部IDプロバイダのsubject
	SubjectUID string `gorm:"type:varchar(128);uniqueIndex;not null" json:"-"`

	Email string `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Name  string `gorm:"type:varchar(255)" json:"name"`

	Role     Role `gorm:"type:varchar(20);not null;default:'USER'" json:"role"`
	IsActive bool `gorm:"not null;default:true" json:"is_active"`

	LastLoginAt *time.Time `json:"last_login_at"`
	CreatedAt   time.Time  `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
