package models

import (
	"time"

	"github.com/google/uuid"
)

// RestaurantState is the single-row open/closed flag for the storefront.
type RestaurantState struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Open      bool      `gorm:"column:open;not null;default:true"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
