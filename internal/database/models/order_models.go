package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderPending       OrderStatus = "PENDING"
	OrderConfirmed     OrderStatus = "CONFIRMED"
	OrderInPreparation OrderStatus = "IN_PREPARATION"
	OrderShipped       OrderStatus = "SHIPPED"
	OrderDelivered     OrderStatus = "DELIVERED"
	OrderCancelled     OrderStatus = "CANCELLED"
)

func ParseOrderStatus(s string) (OrderStatus, bool) {
	switch OrderStatus(s) {
	case OrderPending, OrderConfirmed, OrderInPreparation, OrderShipped, OrderDelivered, OrderCancelled:
		return OrderStatus(s), true
	}
	return "", false
}

type Order struct {
	ID                int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderNumber       string          `gorm:"uniqueIndex;not null" json:"order_number"`
	CustomerName      string          `gorm:"size:100;not null" json:"customer_name"`
	CustomerTaxID     string          `gorm:"size:20" json:"customer_tax_id"`
	CustomerAddress   string          `gorm:"size:200" json:"customer_address"`
	CustomerPhone     string          `gorm:"size:20" json:"customer_phone"`
	Total             decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total"`
	Status            OrderStatus     `gorm:"size:20;not null;default:'PENDING'" json:"status"`
	OrderDate         time.Time       `gorm:"not null" json:"order_date"`
	EstimatedDelivery *time.Time      `json:"estimated_delivery,omitempty"`
	Notes             string          `gorm:"size:500" json:"notes"`
	UserID            int64           `gorm:"not null;index" json:"user_id"`
	User              *User           `gorm:"foreignKey:UserID" json:"user,omitempty"`
	CreatedAt         time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"autoUpdateTime" json:"updated_at"`

	Details []OrderDetail `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"details"`
}

type OrderDetail struct {
	ID        int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID   int64           `gorm:"not null;index" json:"order_id"`
	ProductID int64           `gorm:"not null" json:"product_id"`
	Product   *Product        `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Quantity  int             `gorm:"not null" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"unit_price"`
	Subtotal  decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"subtotal"`
	CreatedAt time.Time       `gorm:"autoCreateTime" json:"created_at"`
}
