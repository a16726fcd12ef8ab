package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/your-org/attendance/internal/api"
	"github.com/your-org/attendance/internal/api/ws"
	"github.com/your-org/attendance/internal/app"
	"github.com/your-org/attendance/internal/config"
	"github.com/your-org/attendance/internal/models"
	"github.com/your-org/attendance/internal/observability"
	"github.com/your-org/attendance/internal/queue"
)

func main() {
	configPath := flag.String("config", "", "path to config file (optional)")
	flag.Parse()

	// .env is optional
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	observability.SetupLogger(cfg.Logging.Level, cfg.Logging.Format)
	gin.SetMode(gin.ReleaseMode)

	slog.Info("starting attendance API", "port", cfg.Server.Port, "db", cfg.Database.Driver)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.Open(ctx, cfg, app.Options{})
	if err != nil {
		slog.Error("open app", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	hub := ws.NewHub()
	go hub.Run(ctx)

	if a.Producer != nil {
		// Every replica consumes under its own durable so each hub sees all events.
		consumer, err := queue.NewConsumer(cfg.NATS.URL)
		if err != nil {
			slog.Error("create attendance consumer", "error", err)
			os.Exit(1)
		}
		defer consumer.Close()

		host, _ := os.Hostname()
		err = consumer.ConsumeAttendance(ctx, queue.DurableName("api-ws", host), func(_ context.Context, ev models.AttendanceEvent) error {
			hub.BroadcastAttendance(ev)
			return nil
		})
		if err != nil {
			slog.Warn("start attendance consumer", "error", err)
		}
	} else if a.Matcher != nil {
		a.Matcher.Events = hub
	}

	routerCfg := api.RouterConfig{
		APIKey:         cfg.Server.APIKey,
		RequestTimeout: cfg.Server.RequestTimeout,
		Store:          a.Store,
		Hub:            hub,
		Readiness:      a.Readiness(),
	}
	// Interfaces stay nil unless the backend exists.
	if a.Objects != nil {
		routerCfg.Objects = a.Objects
	}
	if a.Enroller != nil {
		routerCfg.Enroller = a.Enroller
	}
	if a.Matcher != nil {
		routerCfg.Recognizer = a.Matcher
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      api.NewRouter(routerCfg),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.Server.RequestTimeout + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("API server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down API server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}
	cancel()

	slog.Info("API server stopped")
}
