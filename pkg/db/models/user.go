package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/bahaypares/ordering-backend/pkg/enums"
)

// User is an authenticated account: customers place orders, staff manage them.
type User struct {
	ID           uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Username     string     `gorm:"column:username;not null;uniqueIndex:ux_users_username"`
	Email        string     `gorm:"column:email;not null;uniqueIndex:ux_users_email"`
	Phone        string     `gorm:"column:phone;not null;default:''"`
	PasswordHash string     `gorm:"column:password_hash;not null"`
	Role         enums.Role `gorm:"column:role;type:text;not null;default:'customer'"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
