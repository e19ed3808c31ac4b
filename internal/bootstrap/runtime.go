// Package bootstrap wires the process-wide runtime: id generation, the
// database and the optional Redis client.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"clubhouse/internal/cache"
	"clubhouse/internal/config"
	"clubhouse/internal/database"
	"clubhouse/internal/middleware"
	"clubhouse/internal/models"
	"clubhouse/internal/observability"
	"clubhouse/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Version is reported on traces. It is set at build time with
// -ldflags "-X clubhouse/internal/bootstrap.Version=...".
var Version = "dev"

// Options control runtime initialization behavior.
type Options struct {
	// SeedDemo fills an empty development database with demo data.
	SeedDemo bool
}

// Runtime holds the process-wide dependencies created by InitRuntime.
type Runtime struct {
	DB    *gorm.DB
	Redis *redis.Client
	// ShutdownTracing flushes pending spans. It is never nil.
	ShutdownTracing func(context.Context) error
}

// InitRuntime sets up tracing, connects to DB and Redis and optionally
// seeds demo data.
func InitRuntime(cfg *config.Config, opts Options) (*Runtime, error) {
	if err := models.SetIDNode(cfg.SnowflakeNode); err != nil {
		return nil, err
	}

	shutdownTracing, err := observability.InitTracing(observability.TracingConfig{
		ServiceName:    "clubhouse-api",
		ServiceVersion: Version,
		Environment:    cfg.Env,
		Enabled:        cfg.TracingEnabled,
		Exporter:       cfg.TracingExporter,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SamplerRatio:   cfg.TracingSampler,
	})
	if err != nil {
		return nil, fmt.Errorf("tracing setup failed: %w", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	// Init Redis (may result in nil client if unreachable)
	cache.InitRedis(cfg.RedisURL)

	if opts.SeedDemo {
		if err := seedDemo(context.Background(), cfg, db); err != nil {
			return nil, fmt.Errorf("failed to seed demo data: %w", err)
		}
	}

	return &Runtime{DB: db, Redis: cache.GetClient(), ShutdownTracing: shutdownTracing}, nil
}

func seedDemo(ctx context.Context, cfg *config.Config, db *gorm.DB) error {
	if cfg.IsProduction() {
		middleware.Logger.Warn("refusing to seed demo data in production")
		return nil
	}
	var users int64
	if err := db.WithContext(ctx).Model(&models.User{}).Count(&users).Error; err != nil {
		return err
	}
	if users > 0 {
		middleware.Logger.Info("database already populated, skipping demo seed", slog.Int64("users", users))
		return nil
	}
	sum, err := seed.NewSeeder(db, seed.Options{MentionRate: 0.3, LikeRate: 0.2}).Run(ctx)
	if err != nil {
		return err
	}
	middleware.Logger.Info("demo data seeded",
		slog.Int("users", sum.Users),
		slog.Int("entities", sum.Entities),
		slog.Int("comments", sum.Comments))
	return nil
}
