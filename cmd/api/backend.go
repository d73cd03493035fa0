package main

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"familyvault/internal/config"
	"familyvault/internal/database"
	"familyvault/internal/database/migration"
	handlers "familyvault/internal/http/handler"
	"familyvault/internal/notify"
	"familyvault/internal/ratelimit"
	"familyvault/internal/repository"
	"familyvault/internal/repository/memory"
	"familyvault/internal/repository/postgres"
	"familyvault/internal/storage"
)

// backend bundles the persistence collaborators chosen by STORE_BACKEND.
type backend struct {
	accounts  repository.AccountRepository
	documents repository.DocumentRepository
	objects   storage.Storage
	db        *sql.DB
}

func (b *backend) pinger() handlers.Pinger {
	if b.db == nil {
		return nil
	}
	return b.db
}

func (b *backend) Close() {
	if b.db != nil {
		_ = b.db.Close()
	}
}

func openBackend(ctx context.Context, cfg *config.AppConfig, log *zap.Logger) (*backend, error) {
	switch cfg.StoreBackend {
	case config.StoreBackendMemory:
		log.Warn("store_backend_memory", zap.String("reason", "data is lost on restart"))
		st := memory.NewStore()
		return &backend{
			accounts:  memory.NewAccountMemory(st),
			documents: memory.NewDocumentMemory(st),
			objects:   storage.NewMemory(),
		}, nil

	case config.StoreBackendPostgres:
		db, err := database.NewPostgres(ctx, cfg.Database, log)
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		if err := migration.EnsureMigrated(ctx, db, log, cfg.Database.Host); err != nil {
			_ = db.Close()
			return nil, err
		}

		objects, err := storage.NewMinIO(ctx, cfg.MinIO)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("initialize object storage: %w", err)
		}
		return &backend{
			accounts:  postgres.NewAccountPostgres(db),
			documents: postgres.NewDocumentPostgres(db),
			objects:   objects,
			db:        db,
		}, nil

	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}
}

// newLimiter connects the Redis attempt limiter, or disables limiting when
// no REDIS_URL is configured.
func newLimiter(ctx context.Context, cfg *config.AppConfig, log *zap.Logger) (ratelimit.Limiter, func(), error) {
	if cfg.Redis.URL == "" {
		log.Warn("otp_rate_limit_disabled", zap.String("reason", "REDIS_URL not set"))
		return ratelimit.Noop{}, func() {}, nil
	}

	client, err := ratelimit.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	limiter := ratelimit.NewRedisLimiter(client, cfg.OTP.MaxAttempts, cfg.OTP.TTL, cfg.OTP.ResendCooldown)
	return limiter, func() { _ = client.Close() }, nil
}

func newNotifier(cfg *config.AppConfig, log *zap.Logger) notify.Notifier {
	if cfg.OTP.GatewayURL == "" {
		return notify.NewLogNotifier(log)
	}
	return notify.NewGatewayNotifier(cfg.OTP.GatewayURL, cfg.OTP.GatewayToken, log)
}
