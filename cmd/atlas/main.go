package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/atlas-iam/atlas-iam/internal/app"
	"github.com/atlas-iam/atlas-iam/internal/auth"
	"github.com/atlas-iam/atlas-iam/internal/permissions"
	"github.com/atlas-iam/atlas-iam/internal/platform/cache"
	"github.com/atlas-iam/atlas-iam/internal/platform/db"
	"github.com/atlas-iam/atlas-iam/internal/rbac"
	"github.com/atlas-iam/atlas-iam/internal/roles"
	"github.com/atlas-iam/atlas-iam/internal/users"
	"github.com/atlas-iam/atlas-iam/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	store := cache.NewStore(redisClient)

	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL)

	var googleVerifier auth.GoogleVerifier
	if cfg.GoogleClientID != "" {
		googleVerifier, err = auth.NewGoogleVerifier(ctx, cfg.GoogleClientID)
		if err != nil {
			logger.Error("init google verifier", slog.Any("error", err))
			os.Exit(1)
		}
	}

	enqueuer := jobs.NewEnqueuer(cfg.RedisAddr)
	defer func() {
		if err := enqueuer.Close(); err != nil {
			logger.Warn("enqueuer close", slog.Any("error", err))
		}
	}()

	permissionsRepo := permissions.NewRepository(pool)
	permissionsService := permissions.NewService(permissionsRepo)
	permissionsHandler := permissions.NewHandler(logger, permissionsService)

	rolesRepo := roles.NewRepository(pool)
	rolesService := roles.NewService(rolesRepo, permissionsRepo)

	usersRepo := users.NewRepository(pool)
	usersService := users.NewService(usersRepo, rolesRepo, permissionsRepo, store, logger)

	rbacRepo := rbac.NewRepository(pool)
	rbacService := rbac.NewService(rbacRepo, store, logger)
	rbacMiddleware := rbac.Middleware{Service: rbacService, Logger: logger}

	usersHandler := users.NewHandler(logger, usersService, rbacService, rbacMiddleware)
	rolesHandler := roles.NewHandler(logger, rolesService, rbacMiddleware)

	authService := auth.NewService(usersService, tokens, googleVerifier, enqueuer, logger)
	authHandler := auth.NewHandler(logger, authService)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		Tokens:             tokens,
		AuthHandler:        authHandler,
		UsersHandler:       usersHandler,
		RolesHandler:       rolesHandler,
		PermissionsHandler: permissionsHandler,
		Pool:               pool,
		Redis:              redisClient,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
