package main

import (
	"leadflow/internal/config"
	"leadflow/internal/database"
	"leadflow/internal/server"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Setup logger
	logger := cfg.SetupLogger()

	// Initialize database connection
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("Database connection failed")
	}
	logger.Info().Msg("Database connection established successfully")

	// Ensure schema exists
	if err := database.CreateTables(db); err != nil {
		logger.Fatal().Err(err).Msg("Schema initialization failed")
	}

	// Create and initialize server
	srv, err := server.New(cfg, db, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Server initialization failed")
	}
	srv.Initialize()

	// Start server
	if err := srv.Start(); err != nil {
		logger.Fatal().Err(err).Msg("Server failed to start")
	}
}
