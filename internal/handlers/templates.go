package handlers

import (
	"fmt"
	"net/http"

	"leadflow/internal/database"
	"leadflow/internal/models"

	"github.com/labstack/echo/v4"
)

// CreateTemplateHandler creates an email template
func CreateTemplateHandler(templates *database.TemplateService) echo.HandlerFunc {
	return func(c echo.Context) error {
		var template models.EmailTemplate
		if err := c.Bind(&template); err != nil {
			return c.JSON(http.StatusBadRequest, models.TemplateResponse{
				Success: false,
				Error:   fmt.Sprintf("Invalid request body: %v", err),
			})
		}
		if template.UserID == "" || template.Name == "" || template.Subject == "" {
			return c.JSON(http.StatusBadRequest, models.TemplateResponse{
				Success: false,
				Error:   "user_id, name and subject are required",
			})
		}

		id, err := templates.CreateTemplate(c.Request().Context(), &template)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, models.TemplateResponse{
				Success: false,
				Error:   fmt.Sprintf("Failed to create template: %v", err),
			})
		}
		template.ID = id

		return c.JSON(http.StatusOK, models.TemplateResponse{
			Success:  true,
			Template: &template,
		})
	}
}

// ListTemplatesHandler returns all templates for a user
func ListTemplatesHandler(templates *database.TemplateService) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID := c.QueryParam("user_id")
		if userID == "" {
			return c.JSON(http.StatusBadRequest, models.TemplateListResponse{
				Success: false,
				Error:   "user_id is required",
			})
		}

		list, err := templates.ListTemplates(c.Request().Context(), userID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, models.TemplateListResponse{
				Success: false,
				Error:   fmt.Sprintf("Failed to list templates: %v", err),
			})
		}

		return c.JSON(http.StatusOK, models.TemplateListResponse{
			Success:   true,
			Templates: list,
		})
	}
}
