package http

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// RegisterRequest is the body of POST /api/customers/created. Older clients
// send the plain password as password_hash; both are accepted.
type RegisterRequest struct {
	Nombres      string `json:"nombres" validate:"required" example:"Ana"`
	Apellidos    string `json:"apellidos" validate:"required" example:"Lopez"`
	Email        string `json:"email" validate:"required,email" example:"ana@example.com"`
	Password     string `json:"password" validate:"required_without=PasswordHash" example:"pw123456"`
	PasswordHash string `json:"password_hash,omitempty"`
}

func (r *RegisterRequest) normalize() {
	r.Email = strings.TrimSpace(r.Email)
	if r.Password == "" {
		r.Password = r.PasswordHash
	}
}

type VerifyCodeRequest struct {
	Email  string `json:"email" validate:"required" example:"ana@example.com"`
	Codigo string `json:"codigo" validate:"required" example:"482913"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required" example:"ana@example.com"`
	Password string `json:"password" validate:"required" example:"pw123456"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" example:"ana@example.com"`
}

type ResetTokenRequest struct {
	Token string `json:"token" validate:"required"`
}

type ResetPasswordRequest struct {
	Token           string `json:"token" validate:"required"`
	Password        string `json:"password" validate:"required"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required"`
}

// LoginResponse is the data of a successful login.
type LoginResponse struct {
	ID        uuid.UUID `json:"id_uuid"`
	Nombres   string    `json:"nombres"`
	Apellidos string    `json:"apellidos"`
	Email     string    `json:"email"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type DatabaseHealthResponse struct {
	Status   string  `json:"status" example:"ok"`
	Database string  `json:"database,omitempty" example:"quantiva"`
	ServerIP *string `json:"server_ip,omitempty" example:"10.0.0.5"`
	Message  string  `json:"message,omitempty"`
}
