package main

import (
	"context"
	"log"
	"net/http"

	"go.uber.org/zap"

	"github.com/trackside/derby-scoreboard-backend/internal/config"
	"github.com/trackside/derby-scoreboard-backend/internal/httpapi"
	"github.com/trackside/derby-scoreboard-backend/internal/hub"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := buildLogger(cfg.Debug)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx := context.Background()
	h, err := hub.New(ctx, logger)
	if err != nil {
		logger.Fatal("hub startup failed", zap.Error(err))
	}

	// Build the router *with* the hub injected
	handler := httpapi.SetupRoutes(h, logger)

	logger.Info("listening", zap.String("addr", cfg.Addr()))
	if err := http.ListenAndServe(cfg.Addr(), handler); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func buildLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
