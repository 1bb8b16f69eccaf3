package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sujalbistaa/crown/internal/config"
	"github.com/sujalbistaa/crown/internal/db"
	"github.com/sujalbistaa/crown/internal/forum"
	routes "github.com/sujalbistaa/crown/internal/http"
	"github.com/sujalbistaa/crown/internal/identity"
	"github.com/sujalbistaa/crown/internal/logging"
	"github.com/sujalbistaa/crown/internal/oauth"
	"github.com/sujalbistaa/crown/internal/session"
	"github.com/sujalbistaa/crown/internal/ws"
)

func main() {
	cfg, foundDotenv, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}

	logging.Configure(cfg.Log)
	log := logging.GetLogger("cmd.server")

	if !foundDotenv {
		log.Info("no .env file found, reading from environment")
	}

	if err := run(cfg); err != nil {
		log.Error("server failed", "error", err)
		os.Exit(1)
	}

	log.Info("server exiting")
}

func run(cfg config.Config) error {
	log := logging.GetLogger("cmd.server")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Database
	database, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() {
		if err := db.Close(database); err != nil {
			log.Error("close database failed", "error", err)
		}
	}()

	log.Info("running database migrations")
	if err := db.Migrate(database); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	// 2. Components, built once and shared by every request.
	users := identity.NewStore(database)
	sessions := session.NewManager(database, users, cfg.SessionTTL)
	providers := oauth.ProvidersFromConfig(cfg)
	broker := oauth.NewBroker(users, providers...)
	hub := ws.NewHub()
	limiter := routes.NewDefaultRateLimiter()

	log.Info("federated login providers", "enabled", broker.Providers())

	go hub.Run(ctx)
	go sessions.Janitor(ctx, time.Hour)
	go limiter.Janitor(ctx, 10*time.Minute)

	env := &routes.Env{
		Identity:      users,
		Sessions:      sessions,
		Broker:        broker,
		Forum:         forum.NewStore(database),
		Hub:           hub,
		Limiter:       limiter,
		Log:           logging.GetLogger("http"),
		SecureCookies: cfg.SecureCookie,
	}

	// 3. Router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	routes.SetupRoutes(router, env, cfg.CORSOrigin)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	return nil
}
