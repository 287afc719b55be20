package models

import "time"

type DeliveryStatus string

const (
	DeliveryScheduled DeliveryStatus = "SCHEDULED"
	DeliveryInTransit DeliveryStatus = "IN_TRANSIT"
	DeliveryDelivered DeliveryStatus = "DELIVERED"
	DeliveryFailed    DeliveryStatus = "FAILED"
)

func ParseDeliveryStatus(s string) (DeliveryStatus, bool) {
	switch DeliveryStatus(s) {
	case DeliveryScheduled, DeliveryInTransit, DeliveryDelivered, DeliveryFailed:
		return DeliveryStatus(s), true
	}
	return "", false
}

// Delivery is the outbound fulfillment record. At most one exists per order,
// enforced by the unique index on OrderID.
type Delivery struct {
	ID              int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID         int64          `gorm:"uniqueIndex;not null" json:"order_id"`
	Order           *Order         `gorm:"foreignKey:OrderID" json:"order,omitempty"`
	DeliveryAddress string         `gorm:"size:200;not null" json:"delivery_address"`
	DriverName      string         `gorm:"size:100;not null" json:"driver_name"`
	DriverPhone     string         `gorm:"size:20" json:"driver_phone"`
	VehiclePlate    string         `gorm:"size:10;not null" json:"vehicle_plate"`
	VehicleModel    string         `gorm:"size:50" json:"vehicle_model"`
	DepartureDate   time.Time      `gorm:"not null" json:"departure_date"`
	DeliveryDate    *time.Time     `json:"delivery_date,omitempty"`
	Status          DeliveryStatus `gorm:"size:20;not null;default:'SCHEDULED'" json:"status"`
	Notes           string         `gorm:"size:500" json:"notes"`
	UserID          int64          `gorm:"not null;index" json:"user_id"`
	User            *User          `gorm:"foreignKey:UserID" json:"user,omitempty"`
	CreatedAt       time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}
