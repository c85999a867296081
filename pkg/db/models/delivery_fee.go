package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DeliveryFee maps a delivery location to its flat fee.
type DeliveryFee struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Location  string          `gorm:"column:location;not null;uniqueIndex:ux_delivery_fees_location"`
	Fee       decimal.Decimal `gorm:"column:fee;type:numeric(12,2);not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
