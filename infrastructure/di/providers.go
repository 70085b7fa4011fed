// Package di wires the application's dependencies and owns the storage
// backend selection.
package di

import (
	"context"
	"net/http"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"carelog-backend/application/ports"
	"carelog-backend/infrastructure/config"
	"carelog-backend/infrastructure/persistence/dynamodb"
	"carelog-backend/infrastructure/persistence/memory"
	"carelog-backend/interfaces/http/rest"
	"carelog-backend/pkg/auth"
)

// ProvideLogger creates the process logger.
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.Environment == "production" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	if level, err := zapcore.ParseLevel(cfg.LogLevel); err == nil {
		zapCfg.Level = zap.NewAtomicLevelAt(level)
	}

	return zapCfg.Build()
}

// ProvideTokenManager creates the session token manager.
func ProvideTokenManager(cfg *config.Config) (*auth.TokenManager, error) {
	secret := cfg.JWTSecret
	if secret == "" {
		// Validate() rejects this combination in production.
		secret = "development-secret-change-in-production"
	}
	return auth.NewTokenManager(secret, cfg.JWTIssuer, 0)
}

// ProvideRepositories selects and constructs the storage backend. When the
// durable backend is configured but cannot be reached at startup, the
// process falls back to the in-memory backend instead of refusing to boot.
// The decision is made here, once; a backend that dies later stays selected
// and surfaces Unavailable errors per request.
func ProvideRepositories(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*ports.Repositories, error) {
	if cfg.DataBackend == config.BackendDynamoDB {
		client, err := dynamodb.NewClient(ctx, cfg, logger)
		if err == nil {
			logger.Info("Storage backend selected",
				zap.String("backend", config.BackendDynamoDB),
				zap.String("table", cfg.TableName),
			)
			return &ports.Repositories{
				Backend:  config.BackendDynamoDB,
				Forms:    dynamodb.NewFormRepository(client, logger),
				Episodes: dynamodb.NewEpisodeRepository(client, logger),
				Users:    dynamodb.NewUserRepository(client, logger),
				Audit:    dynamodb.NewAuditRecorder(client, logger),
			}, nil
		}
		logger.Warn("Durable backend unavailable, falling back to in-memory storage",
			zap.Error(err),
		)
	}

	logger.Info("Storage backend selected", zap.String("backend", config.BackendMemory))

	store := memory.NewStore()
	return &ports.Repositories{
		Backend:  config.BackendMemory,
		Forms:    memory.NewFormRepository(store),
		Episodes: memory.NewEpisodeRepository(store),
		Users:    memory.NewUserRepository(store),
		Audit:    memory.NewAuditRecorder(store),
	}, nil
}

// ProvideHandler builds the HTTP handler tree.
func ProvideHandler(repos *ports.Repositories, tokens *auth.TokenManager, cfg *config.Config, logger *zap.Logger) http.Handler {
	return rest.NewRouter(repos, tokens, logger, cfg.EnableCORS).Setup()
}
