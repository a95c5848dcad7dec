package handlers

import (
	"fmt"
	"net/http"

	"leadflow/internal/metrics"
	"leadflow/internal/models"

	"github.com/labstack/echo/v4"
)

// MetricsHandler returns the delivery metrics summary for a period
func MetricsHandler(metricsService *metrics.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		period := c.QueryParam("period")
		if period == "" {
			period = metrics.PeriodLast7Days
		}

		summary, err := metricsService.GetSummary(c.Request().Context(), period)
		if err != nil {
			return c.JSON(http.StatusBadRequest, models.MetricsResponse{
				Success: false,
				Error:   fmt.Sprintf("Failed to get metrics summary: %v", err),
			})
		}

		return c.JSON(http.StatusOK, models.MetricsResponse{
			Success: true,
			Summary: summary,
		})
	}
}
