package main

import (
	_ "taskboard/docs"
	"taskboard/internal/config"
	"taskboard/internal/logging"
	"taskboard/internal/server"
)

// @title           Taskboard API
// @version         1.0
// @description     Kanban boards with ordered lists and cards, shared between board members.

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @schemes http
func main() {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel, cfg.LogFile)

	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("Invalid configuration")
	}

	s, err := server.Init(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Server initialization failed")
	}

	s.Run()
}
