package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/quantiva/customers-api/internal/domain"
	"github.com/quantiva/customers-api/internal/repository/ports"
)

type HealthRepository struct {
	db *sqlx.DB
}

func NewHealthRepo(db *sqlx.DB) *HealthRepository {
	return &HealthRepository{db: db}
}

func (r *HealthRepository) Check(ctx context.Context) (*domain.DatabaseHealth, error) {
	const query = `SELECT current_database() AS current_database, host(inet_server_addr()) AS inet_server_addr`
	var health domain.DatabaseHealth
	if err := r.db.GetContext(ctx, &health, query); err != nil {
		return nil, err
	}
	return &health, nil
}

var _ ports.HealthRepository = (*HealthRepository)(nil)
