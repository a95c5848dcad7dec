package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"leadflow/internal/config"
	"leadflow/internal/database"
	"leadflow/internal/mailer"
	"leadflow/internal/models"

	"github.com/labstack/echo/v4"
	"github.com/lib/pq"
	"github.com/rs/zerolog"
)

// SendEmailHandler dispatches a campaign email to explicit recipients or a
// lead group, persists the outcome and records synthetic sent events
func SendEmailHandler(dispatcher *mailer.Dispatcher, emails *database.EmailService, leads *database.LeadService, templates *database.TemplateService, cfg *config.Config, logger zerolog.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req models.SendEmailRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, models.SendEmailResponse{
				Success: false,
				Error:   fmt.Sprintf("Invalid request body: %v", err),
			})
		}
		if req.UserID == "" {
			return c.JSON(http.StatusBadRequest, models.SendEmailResponse{
				Success: false,
				Error:   "user_id is required",
			})
		}

		ctx := c.Request().Context()

		subject, content := req.Subject, req.Content
		if req.TemplateID != nil && subject == "" && content == "" {
			template, err := templates.GetTemplate(ctx, *req.TemplateID)
			if err != nil {
				return c.JSON(http.StatusBadRequest, models.SendEmailResponse{
					Success: false,
					Error:   fmt.Sprintf("Unknown template: %v", err),
				})
			}
			subject, content = template.Subject, template.Content
		}
		if subject == "" || content == "" {
			return c.JSON(http.StatusBadRequest, models.SendEmailResponse{
				Success: false,
				Error:   "subject and content are required",
			})
		}

		recipients := req.Recipients
		if req.GroupID != nil {
			groupRecipients, err := leads.GroupRecipients(ctx, *req.GroupID)
			if err != nil {
				logger.Error().Err(err).Int("group_id", *req.GroupID).Msg("Failed to load group recipients")
				return c.JSON(http.StatusInternalServerError, models.SendEmailResponse{
					Success: false,
					Error:   "Failed to load group recipients",
				})
			}
			recipients = append(recipients, groupRecipients...)
		}

		names, err := leads.NamesByEmail(ctx, recipients)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to resolve lead names, sending without personalization data")
			names = map[string]string{}
		}

		replyTo := req.ReplyTo
		if replyTo == "" {
			replyTo = cfg.DefaultReplyTo
		}

		outcome, err := dispatcher.Dispatch(ctx, mailer.Request{
			Subject:      subject,
			HTML:         content,
			From:         cfg.DefaultFromEmail,
			FromName:     cfg.DefaultFromName,
			ReplyTo:      replyTo,
			Recipients:   recipients,
			Names:        names,
			Personalized: req.Personalized,
		})
		if err != nil {
			if errors.Is(err, mailer.ErrNoRecipients) {
				return c.JSON(http.StatusBadRequest, models.SendEmailResponse{
					Success: false,
					Error:   "No valid recipients",
				})
			}
			logger.Error().Err(err).Msg("Dispatch failed")
			return c.JSON(http.StatusInternalServerError, models.SendEmailResponse{
				Success: false,
				Error:   err.Error(),
			})
		}

		leadIDs, err := leads.LeadIDsByEmail(ctx, recipients)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to resolve lead ids for email record")
		}

		now := time.Now().UTC()
		record := &models.Email{
			Subject:         subject,
			Content:         content,
			TemplateID:      req.TemplateID,
			RecipientEmails: pq.StringArray(recipients),
			LeadIDs:         pq.Int64Array(leadIDs),
			Status:          outcome.Status,
			Personalized:    outcome.Personalized,
			UserID:          req.UserID,
		}
		if outcome.SuccessfulSends > 0 {
			record.SentAt = &now
		}
		if providerID := outcome.ProviderID(); providerID != "" {
			record.ProviderMessageID = &providerID
		}

		emailID, err := emails.CreateEmail(ctx, record)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to persist email record")
		}

		// Synthetic sent events cover providers whose sent webhooks lag or
		// go missing; the real webhook remains the primary source.
		for _, sendRecord := range outcome.Records {
			if sendRecord.Error != "" || sendRecord.ProviderID == "" {
				continue
			}
			if _, err := emails.InsertEvent(ctx, sendRecord.ProviderID, models.EventSent, now, nil); err != nil {
				logger.Warn().Err(err).Str("provider_id", sendRecord.ProviderID).Msg("Failed to record synthetic sent event")
			}
		}

		response := models.SendEmailResponse{
			Success:         outcome.SuccessfulSends > 0,
			EmailID:         emailID,
			Status:          outcome.Status,
			SuccessfulSends: outcome.SuccessfulSends,
			FailedSends:     outcome.FailedSends,
		}
		if outcome.Status == models.EmailStatusPartiallySent {
			response.Warning = fmt.Sprintf("%d of %d sends failed", outcome.FailedSends, outcome.SuccessfulSends+outcome.FailedSends)
		}
		if outcome.Status == models.EmailStatusFailed {
			response.Error = "All sends failed"
			return c.JSON(http.StatusBadGateway, response)
		}
		return c.JSON(http.StatusOK, response)
	}
}

// ListEmailsHandler returns the most recent email records for a user
func ListEmailsHandler(emails *database.EmailService) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID := c.QueryParam("user_id")
		if userID == "" {
			return c.JSON(http.StatusBadRequest, models.EmailListResponse{
				Success: false,
				Error:   "user_id is required",
			})
		}
		limit, _ := strconv.Atoi(c.QueryParam("limit"))

		records, err := emails.ListEmails(c.Request().Context(), userID, limit)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, models.EmailListResponse{
				Success: false,
				Error:   fmt.Sprintf("Failed to list emails: %v", err),
			})
		}
		return c.JSON(http.StatusOK, models.EmailListResponse{
			Success: true,
			Emails:  records,
		})
	}
}
