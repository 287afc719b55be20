package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type MaquilaStatus string

const (
	MaquilaPending   MaquilaStatus = "PENDING"
	MaquilaEnProcess MaquilaStatus = "EN_PROCESS"
	MaquilaFinalized MaquilaStatus = "FINALIZED"
	MaquilaReceived  MaquilaStatus = "RECEIVED"
	MaquilaCancelled MaquilaStatus = "CANCELLED"
)

func ParseMaquilaStatus(s string) (MaquilaStatus, bool) {
	switch MaquilaStatus(s) {
	case MaquilaPending, MaquilaEnProcess, MaquilaFinalized, MaquilaReceived, MaquilaCancelled:
		return MaquilaStatus(s), true
	}
	return "", false
}

// MaquilaOrder is an inbound contract-manufacturing order placed with an
// external producer.
type MaquilaOrder struct {
	ID                int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderNumber       string          `gorm:"uniqueIndex;not null" json:"order_number"`
	SupplierName      string          `gorm:"size:100;not null" json:"supplier_name"`
	SupplierTaxID     string          `gorm:"size:20" json:"supplier_tax_id"`
	SupplierContact   string          `gorm:"size:100" json:"supplier_contact"`
	SupplierPhone     string          `gorm:"size:20" json:"supplier_phone"`
	CostTotal         decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"cost_total"`
	OrderDate         time.Time       `gorm:"not null" json:"order_date"`
	EstimatedDelivery *time.Time      `json:"estimated_delivery,omitempty"`
	ActualDelivery    *time.Time      `json:"actual_delivery,omitempty"`
	Status            MaquilaStatus   `gorm:"size:20;not null;default:'PENDING'" json:"status"`
	Notes             string          `gorm:"size:500" json:"notes"`
	UserID            int64           `gorm:"not null;index" json:"user_id"`
	User              *User           `gorm:"foreignKey:UserID" json:"user,omitempty"`
	CreatedAt         time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"autoUpdateTime" json:"updated_at"`

	Details []MaquilaDetail `gorm:"foreignKey:MaquilaOrderID;constraint:OnDelete:CASCADE" json:"details"`
}

type MaquilaDetail struct {
	ID             int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	MaquilaOrderID int64           `gorm:"not null;index" json:"maquila_order_id"`
	ProductID      int64           `gorm:"not null" json:"product_id"`
	Product        *Product        `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	RequestedQty   int             `gorm:"not null" json:"requested_qty"`
	ReceivedQty    int             `gorm:"not null;default:0" json:"received_qty"`
	UnitCost       decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"unit_cost"`
	Subtotal       decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"subtotal"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
}
