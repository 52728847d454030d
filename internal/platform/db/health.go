package db

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// PoolStats represents database connection pool statistics.
type PoolStats struct {
	Engine       string `json:"engine"`
	OpenConns    int    `json:"open_conns"`
	IdleConns    int    `json:"idle_conns"`
	InUse        int    `json:"in_use"`
	MaxConns     int    `json:"max_conns"`
	WaitCount    int64  `json:"wait_count"`
	WaitDuration string `json:"wait_duration"`
	Healthy      bool   `json:"healthy"`
}

// GetPoolStats returns connection pool statistics.
func GetPoolStats(d *DB) *PoolStats {
	stat := d.Stats()
	return &PoolStats{
		Engine:       d.dialect.Name(),
		OpenConns:    stat.OpenConnections,
		IdleConns:    stat.Idle,
		InUse:        stat.InUse,
		MaxConns:     stat.MaxOpenConnections,
		WaitCount:    stat.WaitCount,
		WaitDuration: stat.WaitDuration.String(),
		Healthy:      true,
	}
}

// HealthHandler returns a handler for the database health check endpoint.
func HealthHandler(d *DB) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()

		err := d.PingContext(ctx)
		stats := GetPoolStats(d)

		if err != nil {
			stats.Healthy = false
			return c.JSON(http.StatusServiceUnavailable, map[string]interface{}{
				"status": "unhealthy",
				"error":  err.Error(),
				"pool":   stats,
			})
		}

		return c.JSON(http.StatusOK, map[string]interface{}{
			"status": "healthy",
			"pool":   stats,
		})
	}
}
