package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bahaypares/ordering-backend/pkg/enums"
)

// PendingOrder mirrors Order but sits in a staging table while the payment
// gateway confirms an online settlement. A "paid" callback promotes the row
// into orders and deletes it here; any other status annotates the payment
// method in place. ExpiresAt bounds how long the row may wait before the
// sweep job expires it.
type PendingOrder struct {
	ID             uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        string             `gorm:"column:order_id;not null;uniqueIndex:ux_pending_orders_order_id"`
	CustomerID     uuid.UUID          `gorm:"column:customer_id;type:uuid;not null;index:ix_pending_orders_customer_id"`
	Username       string             `gorm:"column:username;not null"`
	Phone          string             `gorm:"column:phone;not null;default:''"`
	Email          string             `gorm:"column:email;not null;default:''"`
	Location       string             `gorm:"column:location;not null"`
	Items          OrderItems         `gorm:"column:items;type:jsonb;serializer:json"`
	DiscountTier   enums.DiscountTier `gorm:"column:discount_tier;type:text;not null;default:'none'"`
	DiscountCard   string             `gorm:"column:discount_card;not null;default:''"`
	DiscountCardID string             `gorm:"column:discount_card_id;not null;default:''"`
	Subtotal       decimal.Decimal    `gorm:"column:subtotal;type:numeric(12,2);not null"`
	DeliveryFee    decimal.Decimal    `gorm:"column:delivery_fee;type:numeric(12,2);not null"`
	Discount       decimal.Decimal    `gorm:"column:discount;type:numeric(12,2);not null;default:0"`
	Total          decimal.Decimal    `gorm:"column:total;type:numeric(12,2);not null"`
	PaymentMethod  string             `gorm:"column:payment_method;not null"`
	DeliveryStatus string             `gorm:"column:delivery_status;not null;default:'Pending'"`
	Instruction    string             `gorm:"column:instruction;not null;default:''"`
	PlacedAt       time.Time          `gorm:"column:placed_at;not null"`
	ExpiresAt      *time.Time         `gorm:"column:expires_at;index:ix_pending_orders_expires_at"`
	CreatedAt      time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

// ToOrder copies the staged record into a finalized order row.
func (p PendingOrder) ToOrder() Order {
	return Order{
		OrderID:        p.OrderID,
		CustomerID:     p.CustomerID,
		Username:       p.Username,
		Phone:          p.Phone,
		Email:          p.Email,
		Location:       p.Location,
		Items:          p.Items,
		DiscountTier:   p.DiscountTier,
		DiscountCard:   p.DiscountCard,
		DiscountCardID: p.DiscountCardID,
		Subtotal:       p.Subtotal,
		DeliveryFee:    p.DeliveryFee,
		Discount:       p.Discount,
		Total:          p.Total,
		PaymentMethod:  p.PaymentMethod,
		DeliveryStatus: p.DeliveryStatus,
		Instruction:    p.Instruction,
		PlacedAt:       p.PlacedAt,
	}
}
