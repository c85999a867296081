package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bahaypares/ordering-backend/pkg/enums"
)

// MenuItem is a sellable dish. The (category, name) pair is unique and doubles
// as the customer-facing identifier. StockQty is the inventory ledger value
// and must never go negative; reservation happens through a conditional
// decrement, not a read-then-write pair.
type MenuItem struct {
	ID          uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Category    string           `gorm:"column:category;not null;uniqueIndex:ux_menu_items_category_name"`
	Name        string           `gorm:"column:name;not null;uniqueIndex:ux_menu_items_category_name"`
	Description string           `gorm:"column:description;not null;default:''"`
	UnitPrice   decimal.Decimal  `gorm:"column:unit_price;type:numeric(12,2);not null"`
	SalePrice   *decimal.Decimal `gorm:"column:sale_price;type:numeric(12,2)"`
	Available   bool             `gorm:"column:available;not null;default:true"`
	Tag         enums.MenuTag    `gorm:"column:tag;type:text;not null;default:'normal'"`
	StockQty    int              `gorm:"column:stock_qty;not null;default:0"`
	ImageURL    *string          `gorm:"column:image_url"`
	CreatedAt   time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// EffectivePrice returns the sale price when the item is tagged on sale and a
// sale price exists, otherwise the unit price.
func (m MenuItem) EffectivePrice() decimal.Decimal {
	if m.Tag == enums.MenuTagSale && m.SalePrice != nil {
		return *m.SalePrice
	}
	return m.UnitPrice
}
