package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/katakuxiko/luminarag/internal/api"
	"github.com/katakuxiko/luminarag/internal/app"
	"github.com/katakuxiko/luminarag/internal/config"
	"github.com/katakuxiko/luminarag/internal/logger"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	// config
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}
	log := logger.Setup(cfg.LogLevel, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// store + services
	a, err := app.Build(logger.WithContext(ctx, log), cfg)
	if err != nil {
		log.Error("build app", "err", err)
		os.Exit(1)
	}
	defer a.Close()

	// api
	srv := fiber.New(fiber.Config{
		AppName:      "luminarag",
		BodyLimit:    64 << 20,
		ReadTimeout:  cfg.RequestTimeout,
		WriteTimeout: 3 * cfg.RequestTimeout,
	})
	api.RegisterRoutes(srv, api.NewHandler(a.RAG, a.Ingestor, a.Sessions, a.LLM))

	go func() {
		<-ctx.Done()
		_ = srv.ShutdownWithTimeout(10 * time.Second)
	}()

	log.Info("server started",
		"addr", cfg.ServerAddr,
		"store", cfg.Store.Backend,
		"llm", cfg.LLM.Name,
		"web_search", cfg.WebSearch.Enabled)
	if err := srv.Listen(cfg.ServerAddr); err != nil {
		log.Error("listen", "err", err)
	}
}
