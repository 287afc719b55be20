package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID           int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Name         string          `gorm:"size:100;not null" json:"name"`
	Description  string          `gorm:"size:500" json:"description"`
	Presentation string          `gorm:"size:50;not null" json:"presentation"`
	Price        decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	Stock        int             `gorm:"not null;default:0" json:"stock"`
	MinimumStock int             `gorm:"not null;default:0" json:"minimum_stock"`
	IsActive     bool            `gorm:"not null;default:true" json:"is_active"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}
