package ports

import (
	"context"

	"github.com/quantiva/customers-api/internal/domain"
)

type HealthRepository interface {
	Check(ctx context.Context) (*domain.DatabaseHealth, error)
}
