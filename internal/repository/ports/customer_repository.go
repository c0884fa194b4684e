package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/quantiva/customers-api/internal/domain"
)

type CreateCustomerParams struct {
	Nombres             string
	Apellidos           string
	Email               string
	PasswordHash        string
	VerificationCode    string
	VerificationExpires time.Time
}

// CustomerRepository persists customers. Lookups that match nothing return
// sql.ErrNoRows; Create relies on the store's unique index on email.
type CustomerRepository interface {
	Create(ctx context.Context, params CreateCustomerParams) (*domain.Customer, error)
	FindByEmail(ctx context.Context, email string) (*domain.Customer, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Customer, error)
	FindByResetTokenHash(ctx context.Context, tokenHash string) (*domain.Customer, error)
	MarkVerified(ctx context.Context, email string) (*domain.Customer, error)
	SaveResetToken(ctx context.Context, email, tokenHash string, expiresAt time.Time) error
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	// ConsumeResetToken writes the new hash only while tokenHash is still the
	// customer's reset token, so a token is spent at most once.
	ConsumeResetToken(ctx context.Context, id uuid.UUID, tokenHash, passwordHash string) error
	ListAll(ctx context.Context) ([]domain.Customer, error)
}
