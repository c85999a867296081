package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DraftOrder is a customer's in-progress cart. At most one draft exists per
// customer; the unique index on customer_id enforces it. The client-generated
// order id is claimed here and checked against the finalized and pending
// stores before acceptance.
type DraftOrder struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID         string          `gorm:"column:order_id;not null;uniqueIndex:ux_draft_orders_order_id"`
	CustomerID      uuid.UUID       `gorm:"column:customer_id;type:uuid;not null;uniqueIndex:ux_draft_orders_customer_id"`
	Items           OrderItems      `gorm:"column:items;type:jsonb;serializer:json"`
	DiscountAmount  decimal.Decimal `gorm:"column:discount_amount;type:numeric(12,2);not null;default:0"`
	DiscountApplied bool            `gorm:"column:discount_applied;not null;default:false"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
