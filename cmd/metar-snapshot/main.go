package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	fiberrecover "github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/i474232898/metar-snapshot/internal/api/http"
	"github.com/i474232898/metar-snapshot/internal/config"
	"github.com/i474232898/metar-snapshot/internal/logging"
	"github.com/i474232898/metar-snapshot/internal/scheduler"
	"github.com/i474232898/metar-snapshot/internal/store"
	"github.com/i474232898/metar-snapshot/internal/weather"
	"github.com/i474232898/metar-snapshot/internal/weather/providers"
)

const appName = "metar-snapshot"

func main() {
	os.Exit(run())
}

func run() (code int) {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return 1
	}

	log := logging.New(os.Stderr, cfg, appName)
	slog.SetDefault(log)

	defer func() {
		if r := recover(); r != nil {
			log.Error("unexpected failure", "panic", r)
			code = 1
		}
	}()

	// Shared HTTP client for outbound METAR requests.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	fetcher := providers.NewNOAAProvider(httpClient, providers.NOAAConfig{
		StaleAfter: cfg.StaleAfter,
		RetryPause: cfg.StaleRetryPause,
	}, log)
	writer := store.NewFileWriter(cfg.OutputPath)

	if cfg.Mode == config.ModeOnce {
		service := weather.NewService(fetcher, writer, cfg.Stations, log)
		if _, err := service.Run(context.Background()); err != nil {
			log.Error("weather data fetch failed", "err", err)
			return 1
		}
		log.Info("weather data fetch complete", "output", writer.Path())
		return 0
	}

	return serve(cfg, log, fetcher, writer)
}

func serve(cfg *config.AppConfig, log *slog.Logger, fetcher weather.Fetcher, writer weather.SnapshotWriter) int {
	// In-memory store with configured retention.
	memStore := store.NewMemoryStore(cfg.StoreMaxHistory, cfg.StoreMaxAge)

	service := weather.NewService(fetcher, writer, cfg.Stations, log, weather.WithStore(memStore))

	// Scheduler that periodically refreshes the snapshot.
	sched := scheduler.New(cfg.FetchInterval, runTimeout(cfg), service, log)
	if err := sched.Start(); err != nil {
		log.Error("failed to start scheduler", "err", err)
		return 1
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               appName,
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	app.Use(logger.New())
	app.Use(fiberrecover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": appName,
		})
	})

	httpapi.RegisterRoutes(app, memStore)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Error("fiber server stopped", "err", err)
		}
	}()
	log.Info("serving weather snapshot", "port", cfg.Port, "interval", cfg.FetchInterval.String())

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error("error during shutdown", "err", err)
		return 1
	}
	return 0
}

// runTimeout bounds a scheduled run: every station may need two requests
// plus the stale-retry pause.
func runTimeout(cfg *config.AppConfig) time.Duration {
	perStation := 2*cfg.HTTPTimeout + cfg.StaleRetryPause
	return time.Duration(len(cfg.Stations))*perStation + 30*time.Second
}
