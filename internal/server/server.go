package server

import (
	"fmt"
	"time"

	"leadflow/internal/cache"
	"leadflow/internal/config"
	"leadflow/internal/database"
	"leadflow/internal/handlers"
	"leadflow/internal/mailer"
	"leadflow/internal/metrics"
	"leadflow/internal/webhook"

	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
)

// Server represents the application server
type Server struct {
	echo   *echo.Echo
	db     *sqlx.DB
	config *config.Config
	logger zerolog.Logger

	dedupe     *cache.Cache
	limiter    *webhook.RateLimiter
	verifier   *webhook.Verifier
	router     *webhook.Router
	dispatcher *mailer.Dispatcher

	emails    *database.EmailService
	leads     *database.LeadService
	groups    *database.GroupService
	templates *database.TemplateService
	forms     *database.FormService
	receipts  *database.ReceiptService
	metrics   *metrics.Service
}

// New creates a new server instance and wires up all services
func New(cfg *config.Config, db *sqlx.DB, logger zerolog.Logger) (*Server, error) {
	emails, err := database.NewEmailService(db)
	if err != nil {
		return nil, fmt.Errorf("failed to create email service: %w", err)
	}
	leads, err := database.NewLeadService(db)
	if err != nil {
		return nil, fmt.Errorf("failed to create lead service: %w", err)
	}
	groups, err := database.NewGroupService(db)
	if err != nil {
		return nil, fmt.Errorf("failed to create group service: %w", err)
	}
	templates, err := database.NewTemplateService(db)
	if err != nil {
		return nil, fmt.Errorf("failed to create template service: %w", err)
	}
	forms, err := database.NewFormService(db)
	if err != nil {
		return nil, fmt.Errorf("failed to create form service: %w", err)
	}
	receipts, err := database.NewReceiptService(db)
	if err != nil {
		return nil, fmt.Errorf("failed to create receipt service: %w", err)
	}
	metricsService, err := metrics.NewService(db)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics service: %w", err)
	}

	// Sending stays disabled without an API key; the dispatcher reports the
	// configuration error at send-time.
	var sender mailer.Sender
	if cfg.SendGridAPIKey != "" {
		sg, err := mailer.NewSendGridSender(cfg.SendGridAPIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create provider client: %w", err)
		}
		sender = sg
	} else {
		logger.Warn().Msg("SENDGRID_API_KEY not set, email sending disabled")
	}

	dispatcher := mailer.NewDispatcher(sender, mailer.Options{
		MaxRecipientsPerCall: cfg.MaxRecipientsPerCall,
		MaxCallsPerSecond:    cfg.MaxCallsPerSecond,
		SendDelay:            time.Duration(cfg.SendDelayMillis) * time.Millisecond,
	}, logger)

	// Webhook processing stays disabled without the signing secret.
	var verifier *webhook.Verifier
	if cfg.WebhookSigningSecret != "" {
		verifier, err = webhook.NewVerifier(cfg.WebhookSigningSecret)
		if err != nil {
			return nil, fmt.Errorf("failed to create webhook verifier: %w", err)
		}
	} else {
		logger.Warn().Msg("WEBHOOK_SIGNING_SECRET not set, webhook processing disabled")
	}

	monitor := webhook.NewMonitor(emails, logger)
	reconciler := webhook.NewReconciler(emails, leads, metricsService, monitor, logger)
	router := webhook.NewRouter(reconciler, logger)

	return &Server{
		db:         db,
		config:     cfg,
		logger:     logger,
		dedupe:     cache.New(cfg.DedupeCacheSize, time.Duration(cfg.DedupeCacheTTL)*time.Minute),
		limiter:    webhook.NewRateLimiter(cfg.WebhookRateLimit, time.Duration(cfg.WebhookRateWindow)*time.Second),
		verifier:   verifier,
		router:     router,
		dispatcher: dispatcher,
		emails:     emails,
		leads:      leads,
		groups:     groups,
		templates:  templates,
		forms:      forms,
		receipts:   receipts,
		metrics:    metricsService,
	}, nil
}

// zerologMiddleware creates a zerolog-based logging middleware for Echo
func (s *Server) zerologMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			req := c.Request()
			res := c.Response()

			s.logger.Info().
				Str("method", req.Method).
				Str("uri", req.RequestURI).
				Str("remote_ip", c.RealIP()).
				Int("status", res.Status).
				Int64("latency_ms", time.Since(start).Milliseconds()).
				Msg("HTTP request")

			return err
		}
	}
}

// Initialize sets up the Echo framework with middleware and routes
func (s *Server) Initialize() {
	s.echo = echo.New()

	// Middleware
	s.echo.Use(s.zerologMiddleware())
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.CORS())

	// Hide Echo banner
	s.echo.HideBanner = true

	// Setup routes
	s.setupRoutes()
}

// setupRoutes configures all the application routes
func (s *Server) setupRoutes() {
	// Health endpoints (keep at root level for monitoring)
	s.echo.GET("/healthz", handlers.HealthHandler(s.config.Version))
	s.echo.GET("/healthz/db", handlers.DBHealthHandler(s.db))

	// Provider webhook and public lead capture
	s.echo.POST("/webhooks", handlers.WebhookHandler(s.verifier, s.limiter, s.dedupe, s.receipts, s.router, s.logger))
	s.echo.POST("/public/forms/:id/submit", handlers.SubmitFormHandler(s.forms, s.leads))

	// API endpoints under /api prefix
	api := s.echo.Group("/api")
	api.GET("/", handlers.RootHandler(s.config.Version))

	api.POST("/emails/send", handlers.SendEmailHandler(s.dispatcher, s.emails, s.leads, s.templates, s.config, s.logger))
	api.GET("/emails", handlers.ListEmailsHandler(s.emails))

	api.POST("/leads", handlers.CreateLeadHandler(s.leads))
	api.GET("/leads", handlers.ListLeadsHandler(s.leads))
	api.GET("/leads/:id", handlers.GetLeadHandler(s.leads))
	api.POST("/leads/import", handlers.ImportLeadsHandler(s.leads, s.logger))

	api.POST("/groups", handlers.CreateGroupHandler(s.groups))
	api.GET("/groups", handlers.ListGroupsHandler(s.groups))
	api.POST("/groups/:id/leads", handlers.AddGroupLeadHandler(s.groups))
	api.DELETE("/groups/:id/leads/:lead_id", handlers.RemoveGroupLeadHandler(s.groups))

	api.POST("/templates", handlers.CreateTemplateHandler(s.templates))
	api.GET("/templates", handlers.ListTemplatesHandler(s.templates))

	api.POST("/forms", handlers.CreateFormHandler(s.forms))
	api.GET("/forms", handlers.ListFormsHandler(s.forms))

	api.GET("/metrics", handlers.MetricsHandler(s.metrics))
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info().Str("port", s.config.Port).Msg("Server starting")
	return s.echo.Start(":" + s.config.Port)
}
