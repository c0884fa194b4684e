package service

import (
	"context"

	"github.com/quantiva/customers-api/internal/domain"
	"github.com/quantiva/customers-api/internal/repository/ports"
)

type HealthService struct {
	repo ports.HealthRepository
}

func NewHealthService(repo ports.HealthRepository) *HealthService {
	return &HealthService{repo: repo}
}

// CheckDatabase round-trips to the database and reports which one answered.
func (s *HealthService) CheckDatabase(ctx context.Context) (*domain.DatabaseHealth, error) {
	health, err := s.repo.Check(ctx)
	if err != nil {
		return nil, storeError("check database", err)
	}
	return health, nil
}
