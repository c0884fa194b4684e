package http

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/quantiva/customers-api/internal/domain"
)

type DatabaseChecker interface {
	CheckDatabase(ctx context.Context) (*domain.DatabaseHealth, error)
}

// RegisterHealth exposes GET /health/db next to the liveness route.
func RegisterHealth(e *echo.Echo, checker DatabaseChecker, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	e.GET("/health/db", func(c echo.Context) error {
		health, err := checker.CheckDatabase(c.Request().Context())
		if err != nil {
			logger.Error("database health check failed", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, DatabaseHealthResponse{
				Status:  "error",
				Message: "Database connection failed",
			})
		}
		return c.JSON(http.StatusOK, DatabaseHealthResponse{
			Status:   "ok",
			Database: health.Database,
			ServerIP: health.ServerIP,
		})
	})
}
