package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"helpdesk/internal/config"
	"helpdesk/internal/database"
	"helpdesk/internal/repository"
	"helpdesk/internal/repository/memory"
	"helpdesk/internal/repository/postgres"
	"helpdesk/internal/router"
	"helpdesk/internal/service"
	"helpdesk/pkg/logger"
)

func main() {
	// config + logger
	cfg := config.Load()
	l := logger.New(cfg.Env)

	// storage
	var repos repository.Repos
	if cfg.DBURL != "" {
		pool, err := database.Open(context.Background(), cfg)
		if err != nil {
			l.Fatal().Err(err).Msg("db connect failed")
		}
		defer pool.Close()
		if err := database.Migrate(context.Background(), pool); err != nil {
			l.Fatal().Err(err).Msg("db migrate failed")
		}
		repos = postgres.Repos(pool)
	} else {
		l.Warn().Msg("DB_DSN not set, using in-memory storage")
		repos = memory.New().Repos()
	}

	if cfg.AdminEmail != "" {
		auth := service.NewAuthService(repos.Users, cfg.Secret)
		if err := auth.EnsureAdmin(context.Background(), cfg.AdminEmail, "Administrator", cfg.AdminPassword); err != nil {
			l.Fatal().Err(err).Msg("admin bootstrap failed")
		}
	}

	// http
	r := router.New(l, repos, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		l.Info().Str("addr", srv.Addr).Msg("api listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			l.Fatal().Err(err).Msg("server error")
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	l.Info().Msg("shutdown complete")
}
