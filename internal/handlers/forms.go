package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"leadflow/internal/database"
	"leadflow/internal/models"

	"github.com/labstack/echo/v4"
)

// CreateFormHandler creates a lead capture form definition
func CreateFormHandler(forms *database.FormService) echo.HandlerFunc {
	return func(c echo.Context) error {
		var form models.Form
		if err := c.Bind(&form); err != nil {
			return c.JSON(http.StatusBadRequest, models.FormResponse{
				Success: false,
				Error:   fmt.Sprintf("Invalid request body: %v", err),
			})
		}
		if form.UserID == "" || form.Name == "" {
			return c.JSON(http.StatusBadRequest, models.FormResponse{
				Success: false,
				Error:   "user_id and name are required",
			})
		}

		id, err := forms.CreateForm(c.Request().Context(), &form)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, models.FormResponse{
				Success: false,
				Error:   fmt.Sprintf("Failed to create form: %v", err),
			})
		}
		form.ID = id

		return c.JSON(http.StatusOK, models.FormResponse{
			Success: true,
			Form:    &form,
		})
	}
}

// ListFormsHandler returns all forms for a user
func ListFormsHandler(forms *database.FormService) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID := c.QueryParam("user_id")
		if userID == "" {
			return c.JSON(http.StatusBadRequest, models.FormListResponse{
				Success: false,
				Error:   "user_id is required",
			})
		}

		list, err := forms.ListForms(c.Request().Context(), userID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, models.FormListResponse{
				Success: false,
				Error:   fmt.Sprintf("Failed to list forms: %v", err),
			})
		}

		return c.JSON(http.StatusOK, models.FormListResponse{
			Success: true,
			Forms:   list,
		})
	}
}

// SubmitFormHandler is the public lead capture endpoint; a submission
// creates a lead owned by the form's creator
func SubmitFormHandler(forms *database.FormService, leads *database.LeadService) echo.HandlerFunc {
	return func(c echo.Context) error {
		formID, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			return c.JSON(http.StatusBadRequest, models.LeadResponse{
				Success: false,
				Error:   "invalid form id",
			})
		}

		var submission struct {
			Name    string `json:"name"`
			Email   string `json:"email"`
			Phone   string `json:"phone"`
			Company string `json:"company"`
		}
		if err := c.Bind(&submission); err != nil {
			return c.JSON(http.StatusBadRequest, models.LeadResponse{
				Success: false,
				Error:   fmt.Sprintf("Invalid request body: %v", err),
			})
		}

		ctx := c.Request().Context()
		form, err := forms.GetForm(ctx, formID)
		if err != nil {
			return c.JSON(http.StatusNotFound, models.LeadResponse{
				Success: false,
				Error:   "form not found",
			})
		}

		source := fmt.Sprintf("form:%d", form.ID)
		lead := &models.Lead{
			Name:   submission.Name,
			Email:  submission.Email,
			Source: &source,
			UserID: form.UserID,
		}
		if submission.Phone != "" {
			lead.Phone = &submission.Phone
		}
		if submission.Company != "" {
			lead.Company = &submission.Company
		}

		id, err := leads.CreateLead(ctx, lead)
		if err != nil {
			return c.JSON(http.StatusBadRequest, models.LeadResponse{
				Success: false,
				Error:   fmt.Sprintf("Failed to capture lead: %v", err),
			})
		}
		lead.ID = id

		return c.JSON(http.StatusOK, models.LeadResponse{
			Success: true,
			Lead:    lead,
		})
	}
}
