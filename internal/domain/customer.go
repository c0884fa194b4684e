package domain

import (
	"time"

	"github.com/google/uuid"
)

type VerificationState string

const (
	StateUnverified VerificationState = "unverified"
	StateVerified   VerificationState = "verified"
)

type ResetState string

const (
	ResetNone    ResetState = "no_reset_pending"
	ResetPending ResetState = "reset_pending"
)

type Customer struct {
	ID                  uuid.UUID  `db:"id_uuid" json:"id_uuid"`
	Nombres             string     `db:"nombres" json:"nombres"`
	Apellidos           string     `db:"apellidos" json:"apellidos"`
	Email               string     `db:"email" json:"email"`
	Telefono            *string    `db:"telefono" json:"telefono,omitempty"`
	Direccion           *string    `db:"direccion" json:"direccion,omitempty"`
	PasswordHash        string     `db:"password_hash" json:"-"`
	Verified            bool       `db:"verified" json:"verified"`
	VerificationCode    *string    `db:"verification_code" json:"-"`
	VerificationExpires *time.Time `db:"verification_expires" json:"-"`
	ResetTokenHash      *string    `db:"reset_token_hash" json:"-"`
	ResetTokenExpires   *time.Time `db:"reset_token_expires" json:"-"`
	CreatedAt           time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at" json:"updated_at"`
}

func (c *Customer) IsVerified() bool { return c.Verified }

func (c *Customer) VerificationState() VerificationState {
	if c.IsVerified() {
		return StateVerified
	}
	return StateUnverified
}

// ResetState reports whether a reset token is outstanding and still live at now.
func (c *Customer) ResetState(now time.Time) ResetState {
	if c.HasPendingReset(now) {
		return ResetPending
	}
	return ResetNone
}

func (c *Customer) HasPendingReset(now time.Time) bool {
	if c.ResetTokenHash == nil || c.ResetTokenExpires == nil {
		return false
	}
	return !now.After(*c.ResetTokenExpires)
}

// VerificationExpired is true when no live code exists at now.
func (c *Customer) VerificationExpired(now time.Time) bool {
	if c.VerificationExpires == nil {
		return true
	}
	return now.After(*c.VerificationExpires)
}

type DatabaseHealth struct {
	Database string  `db:"current_database" json:"database"`
	ServerIP *string `db:"inet_server_addr" json:"server_ip"`
}
