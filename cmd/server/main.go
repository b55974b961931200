package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	authservice "vendhub/backend/internal/auth/service"
	"vendhub/backend/internal/config"
	"vendhub/backend/internal/db"
	"vendhub/backend/internal/mfa"
	mfarepo "vendhub/backend/internal/mfa/repository"
	"vendhub/backend/internal/security"
	"vendhub/backend/internal/server"
	sessionrepo "vendhub/backend/internal/session/repository"
	userrepo "vendhub/backend/internal/user/repository"
	"vendhub/backend/internal/vault"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fatalBeforeLogger("config: " + err.Error())
	}

	logger, err := newLogger(cfg)
	if err != nil {
		fatalBeforeLogger("logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	if cfg.DatabaseURL == "" {
		logger.Fatal("DATABASE_URL is required")
	}
	database, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("open database", zap.Error(err))
	}
	defer database.Close()

	privateKey, err := security.ParsePrivateKey(cfg.JWTPrivateKey)
	if err != nil {
		logger.Fatal("parse JWT_PRIVATE_KEY", zap.Error(err))
	}
	publicKey, err := security.ParsePublicKey(cfg.JWTPublicKey)
	if err != nil {
		logger.Fatal("parse JWT_PUBLIC_KEY", zap.Error(err))
	}
	tokens := security.NewTokenProvider(privateKey, publicKey, cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL())
	hasher := security.NewHasher(cfg.BcryptCost)

	auth := authservice.NewAuthService(
		userrepo.NewPostgresRepository(database),
		sessionrepo.NewPostgresRepository(database),
		hasher,
		tokens,
		cfg.RefreshTTL(),
		cfg.HashConcurrency,
		cfg.RevokeOnReuse,
		nil,
	)

	deps := server.Deps{
		Logger: logger,
		Auth:   auth,
		DB:     database,
	}
	if cfg.VaultKey != "" {
		v, err := vault.New(cfg.VaultKey)
		if err != nil {
			logger.Fatal("load vault key", zap.Error(err))
		}
		deps.MFASecrets = mfa.NewSecretStore(mfarepo.NewPostgresRepository(database), v, nil)
	} else {
		logger.Warn("VAULT_KEY not set; /mfa routes disabled")
	}

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.NewRouter(deps),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("serve", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down http server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
	logger.Info("http server stopped")
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if cfg.Env != "production" {
		zcfg = zap.NewDevelopmentConfig()
	}
	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err == nil {
		zcfg.Level = level
	}
	return zcfg.Build()
}

func fatalBeforeLogger(msg string) {
	os.Stderr.WriteString(msg + "\n")
	os.Exit(1)
}
