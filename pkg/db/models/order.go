package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bahaypares/ordering-backend/pkg/enums"
)

// Order is a finalized order record: the customer snapshot, the price
// breakdown fixed at checkout, and the delivery status staff drive it
// through. DeliveryStatus stores the legacy wire string ("Cancelled: <reason>");
// use Status/SetStatus for the tagged form.
type Order struct {
	ID             uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        string             `gorm:"column:order_id;not null;uniqueIndex:ux_orders_order_id"`
	CustomerID     uuid.UUID          `gorm:"column:customer_id;type:uuid;not null;index:ix_orders_customer_id"`
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
	CreatedAt      time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

// Status parses the stored delivery status into its tagged form.
func (o Order) Status() (enums.DeliveryStatus, error) {
	return enums.ParseDeliveryStatus(o.DeliveryStatus)
}

// SetStatus serializes the tagged status into the stored wire string.
func (o *Order) SetStatus(status enums.DeliveryStatus) {
	o.DeliveryStatus = status.String()
}
