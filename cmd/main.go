package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/yakoovad/teambuilder/internal/api"
	"github.com/yakoovad/teambuilder/internal/auth"
	"github.com/yakoovad/teambuilder/internal/config"
	"github.com/yakoovad/teambuilder/internal/directory"
	"github.com/yakoovad/teambuilder/internal/service"
	"github.com/yakoovad/teambuilder/pkg/logger"
	"go.uber.org/zap"
)

const version = "v0.1.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := logger.NewLogger(cfg.Env)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	logger.Info("starting application", zap.String("env", cfg.Env))

	auth.TokenSecretKey = cfg.AuthConfig.Secret

	store, err := openStorage(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal("failed to open storage", zap.String("storage", cfg.Storage), zap.Error(err))
	}
	defer store.close()

	dir := directory.NewClient(directory.Config{
		BaseURL:     cfg.DirectoryConfig.BaseURL,
		Email:       cfg.DirectoryConfig.Email,
		Password:    cfg.DirectoryConfig.Password,
		LookupEmail: cfg.DirectoryConfig.LookupEmail,
		Timeout:     cfg.DirectoryConfig.Timeout,
	})

	transactor, teamRepo, userRepo := store.transactor, store.teams, store.users

	team := service.NewTeamService(transactor).WithTeamRepo(teamRepo).WithUserRepo(userRepo).WithDirectory(dir)
	unify := service.NewUnifyService(transactor).WithTeamRepo(teamRepo).WithUserRepo(userRepo)
	match := service.NewMatchService().WithTeamRepo(teamRepo).WithUserRepo(userRepo).WithDirectory(dir)
	user := service.NewUserService(transactor).WithUserRepo(userRepo).WithDirectory(dir)
	session := service.NewSessionService(dir, cfg.AuthConfig.SessionTTL).WithAdmins(cfg.AuthConfig.Admins)

	health, err := api.NewHealthChecker(version,
		api.PingCheck("storage", false, store.ping),
		api.PingCheck("directory", true, func(ctx context.Context) error {
			_, err := dir.Authorize(ctx)
			return err
		}),
	)
	if err != nil {
		logger.Fatal("failed to init health checks", zap.Error(err))
	}

	e := echo.New()
	e.HideBanner = true

	handler := api.NewHandler(logger).
		WithHealthChecker(health).
		WithTeamService(team).
		WithUnifyService(unify).
		WithMatchService(match).
		WithUserService(user).
		WithSessionService(session)

	handler.RegisterRoutes(e)

	go func() {
		logger.Info("server starting", zap.String("addr", cfg.HTTPConfig.Addr))
		if err := e.Start(cfg.HTTPConfig.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	<-quit

	logger.Info("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTPConfig.ShutdownTimeout)
	defer cancel()

	if err = e.Shutdown(ctx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
		return
	}

	logger.Info("server exited gracefully")
}
