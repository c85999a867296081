package auth

import (
	"github.com/bahaypares/ordering-backend/internal/users"
	"github.com/bahaypares/ordering-backend/pkg/enums"
)

// RegisterRequest captures a customer signup payload.
type RegisterRequest struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone,omitempty"`
	Password string `json:"password" validate:"required"`
}

// CreateStaffRequest is the admin-only payload for provisioning staff accounts.
type CreateStaffRequest struct {
	Username string     `json:"username" validate:"required"`
	Email    string     `json:"email" validate:"required,email"`
	Phone    string     `json:"phone,omitempty"`
	Password string     `json:"password" validate:"required"`
	Role     enums.Role `json:"role" validate:"required"`
}

// LoginRequest captures the user credentials sent to the login endpoint.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse contains the token pair and user produced by a successful login.
type LoginResponse struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	User         *users.UserDTO `json:"user"`
}

// RefreshRequest carries the refresh token presented for session rotation.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}
