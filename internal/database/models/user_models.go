package models

import "time"

const (
	RoleAdmin   = "ADMIN"
	RoleSales   = "VENTAS"
	RoleMaquila = "MAQUILA"
)

func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleSales, RoleMaquila:
		return true
	}
	return false
}

type User struct {
	ID        int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	Username  string     `gorm:"uniqueIndex;not null" json:"username"`
	Email     string     `gorm:"uniqueIndex;not null" json:"email"`
	Password  string     `gorm:"not null" json:"-"`
	FullName  string     `gorm:"not null" json:"full_name"`
	Role      string     `gorm:"not null" json:"role"`
	IsActive  bool       `gorm:"default:true" json:"is_active"`
	LastLogin *time.Time `json:"last_login,omitempty"`
	CreatedAt *time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt *time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
