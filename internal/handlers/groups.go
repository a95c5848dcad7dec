package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"leadflow/internal/database"
	"leadflow/internal/models"

	"github.com/labstack/echo/v4"
)

// CreateGroupHandler creates a lead group
func CreateGroupHandler(groups *database.GroupService) echo.HandlerFunc {
	return func(c echo.Context) error {
		var group models.LeadGroup
		if err := c.Bind(&group); err != nil {
			return c.JSON(http.StatusBadRequest, models.GroupResponse{
				Success: false,
				Error:   fmt.Sprintf("Invalid request body: %v", err),
			})
		}
		if group.UserID == "" || group.Name == "" {
			return c.JSON(http.StatusBadRequest, models.GroupResponse{
				Success: false,
				Error:   "user_id and name are required",
			})
		}

		id, err := groups.CreateGroup(c.Request().Context(), &group)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, models.GroupResponse{
				Success: false,
				Error:   fmt.Sprintf("Failed to create group: %v", err),
			})
		}
		group.ID = id

		return c.JSON(http.StatusOK, models.GroupResponse{
			Success: true,
			Group:   &group,
		})
	}
}

// ListGroupsHandler returns all groups for a user
func ListGroupsHandler(groups *database.GroupService) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID := c.QueryParam("user_id")
		if userID == "" {
			return c.JSON(http.StatusBadRequest, models.GroupListResponse{
				Success: false,
				Error:   "user_id is required",
			})
		}

		list, err := groups.ListGroups(c.Request().Context(), userID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, models.GroupListResponse{
				Success: false,
				Error:   fmt.Sprintf("Failed to list groups: %v", err),
			})
		}

		return c.JSON(http.StatusOK, models.GroupListResponse{
			Success: true,
			Groups:  list,
		})
	}
}

// AddGroupLeadHandler adds a lead to a group
func AddGroupLeadHandler(groups *database.GroupService) echo.HandlerFunc {
	return func(c echo.Context) error {
		groupID, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			return c.JSON(http.StatusBadRequest, models.GroupResponse{
				Success: false,
				Error:   "invalid group id",
			})
		}

		var req struct {
			LeadID int `json:"lead_id"`
		}
		if err := c.Bind(&req); err != nil || req.LeadID == 0 {
			return c.JSON(http.StatusBadRequest, models.GroupResponse{
				Success: false,
				Error:   "lead_id is required",
			})
		}

		if err := groups.AddLead(c.Request().Context(), groupID, req.LeadID); err != nil {
			return c.JSON(http.StatusInternalServerError, models.GroupResponse{
				Success: false,
				Error:   fmt.Sprintf("Failed to add lead to group: %v", err),
			})
		}

		return c.JSON(http.StatusOK, models.GroupResponse{Success: true})
	}
}

// RemoveGroupLeadHandler removes a lead from a group
func RemoveGroupLeadHandler(groups *database.GroupService) echo.HandlerFunc {
	return func(c echo.Context) error {
		groupID, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			return c.JSON(http.StatusBadRequest, models.GroupResponse{
				Success: false,
				Error:   "invalid group id",
			})
		}
		leadID, err := strconv.Atoi(c.Param("lead_id"))
		if err != nil {
			return c.JSON(http.StatusBadRequest, models.GroupResponse{
				Success: false,
				Error:   "invalid lead id",
			})
		}

		if err := groups.RemoveLead(c.Request().Context(), groupID, leadID); err != nil {
			return c.JSON(http.StatusInternalServerError, models.GroupResponse{
				Success: false,
				Error:   fmt.Sprintf("Failed to remove lead from group: %v", err),
			})
		}

		return c.JSON(http.StatusOK, models.GroupResponse{Success: true})
	}
}
