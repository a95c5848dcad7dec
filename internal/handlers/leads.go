package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"leadflow/internal/database"
	"leadflow/internal/models"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// CreateLeadHandler creates a single lead
func CreateLeadHandler(leads *database.LeadService) echo.HandlerFunc {
	return func(c echo.Context) error {
		var lead models.Lead
		if err := c.Bind(&lead); err != nil {
			return c.JSON(http.StatusBadRequest, models.LeadResponse{
				Success: false,
				Error:   fmt.Sprintf("Invalid request body: %v", err),
			})
		}
		if lead.UserID == "" || lead.Email == "" {
			return c.JSON(http.StatusBadRequest, models.LeadResponse{
				Success: false,
				Error:   "user_id and email are required",
			})
		}

		id, err := leads.CreateLead(c.Request().Context(), &lead)
		if err != nil {
			return c.JSON(http.StatusBadRequest, models.LeadResponse{
				Success: false,
				Error:   fmt.Sprintf("Failed to create lead: %v", err),
			})
		}
		lead.ID = id

		return c.JSON(http.StatusOK, models.LeadResponse{
			Success: true,
			Lead:    &lead,
		})
	}
}

// GetLeadHandler returns a single lead by id
func GetLeadHandler(leads *database.LeadService) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			return c.JSON(http.StatusBadRequest, models.LeadResponse{
				Success: false,
				Error:   "invalid lead id",
			})
		}

		lead, err := leads.GetLead(c.Request().Context(), id)
		if err != nil {
			return c.JSON(http.StatusNotFound, models.LeadResponse{
				Success: false,
				Error:   "lead not found",
			})
		}

		return c.JSON(http.StatusOK, models.LeadResponse{
			Success: true,
			Lead:    lead,
		})
	}
}

// ListLeadsHandler returns a page of leads for a user
func ListLeadsHandler(leads *database.LeadService) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID := c.QueryParam("user_id")
		if userID == "" {
			return c.JSON(http.StatusBadRequest, models.LeadListResponse{
				Success: false,
				Error:   "user_id is required",
			})
		}
		limit, _ := strconv.Atoi(c.QueryParam("limit"))
		offset, _ := strconv.Atoi(c.QueryParam("offset"))

		page, total, err := leads.ListLeads(c.Request().Context(), userID, limit, offset)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, models.LeadListResponse{
				Success: false,
				Error:   fmt.Sprintf("Failed to list leads: %v", err),
			})
		}

		return c.JSON(http.StatusOK, models.LeadListResponse{
			Success: true,
			Leads:   page,
			Total:   total,
		})
	}
}

// ImportLeadsHandler bulk-imports raw CSV-style rows as leads
func ImportLeadsHandler(leads *database.LeadService, logger zerolog.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req models.ImportLeadsRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, models.ImportLeadsResponse{
				Success: false,
				Error:   fmt.Sprintf("Invalid request body: %v", err),
			})
		}
		if req.UserID == "" {
			return c.JSON(http.StatusBadRequest, models.ImportLeadsResponse{
				Success: false,
				Error:   "user_id is required",
			})
		}
		if len(req.Rows) == 0 {
			return c.JSON(http.StatusBadRequest, models.ImportLeadsResponse{
				Success: false,
				Error:   "no rows to import",
			})
		}

		result, err := leads.ImportLeads(c.Request().Context(), req.Rows, req.UserID)
		if err != nil {
			logger.Error().Err(err).Int("rows", len(req.Rows)).Msg("Lead import failed")
			return c.JSON(http.StatusInternalServerError, models.ImportLeadsResponse{
				Success:  false,
				Imported: result.Imported,
				Merged:   result.Merged,
				Skipped:  result.Skipped,
				Error:    fmt.Sprintf("Import failed: %v", err),
			})
		}

		return c.JSON(http.StatusOK, models.ImportLeadsResponse{
			Success:  true,
			Imported: result.Imported,
			Merged:   result.Merged,
			Skipped:  result.Skipped,
		})
	}
}
