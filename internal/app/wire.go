package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	s3blob "github.com/alanyoungcy/polyarb/internal/blob/s3"
	"github.com/alanyoungcy/polyarb/internal/cache/redis"
	"github.com/alanyoungcy/polyarb/internal/config"
	"github.com/alanyoungcy/polyarb/internal/notify"
	"github.com/alanyoungcy/polyarb/internal/platform/polymarket"
	"github.com/alanyoungcy/polyarb/internal/server/handler"
	"github.com/alanyoungcy/polyarb/internal/store/postgres"
)

// Dependencies bundles everything a session needs. Optional backends are nil
// when their section is disabled.
type Dependencies struct {
	SessionID string

	Gamma *polymarket.GammaClient
	Clob  *polymarket.ClobClient

	// Stores
	TradeStore       *postgres.TradeStore
	OpportunityStore *postgres.OpportunityStore
	AuditStore       *postgres.AuditStore

	// Caches
	MarketCache *redis.MarketCache
	PriceCache  *redis.PriceCache
	LockManager *redis.LockManager
	EventBus    *redis.EventBus
	APILimiter  *redis.RateLimiter

	// Blob storage
	Archiver *s3blob.Archiver

	// Notifications
	Notifier *notify.Notifier

	// Health probes for /api/health, keyed by backend name.
	Health map[string]handler.Pinger
}

// newSessionID returns a short identifier tagging every row and object of one
// run.
func newSessionID() string {
	return uuid.NewString()[:8]
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{
		SessionID: newSessionID(),
		Health:    make(map[string]handler.Pinger),
	}
	logger = logger.With(slog.String("session_id", deps.SessionID))

	// --- Redis ---
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		var err error
		redisClient, err = redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.MarketCache = redis.NewMarketCache(redisClient, cfg.Redis.MarketTTL.Duration)
		deps.PriceCache = redis.NewPriceCache(redisClient)
		deps.LockManager = redis.NewLockManager(redisClient)
		deps.EventBus = redis.NewEventBus(redisClient, cfg.Redis.StreamMaxLen)
		if cfg.Server.RateLimit > 0 {
			deps.APILimiter = redis.NewRateLimiter(redisClient, cfg.Server.RateLimit)
		}
		deps.Health["redis"] = redisClient.Ping
		logger.InfoContext(ctx, "wire: redis connected", slog.String("addr", cfg.Redis.Addr))
	}

	// --- Polymarket ---
	gammaOpts := []polymarket.Option{polymarket.WithTimeout(cfg.Polymarket.HTTPTimeout.Duration)}
	clobOpts := []polymarket.Option{polymarket.WithTimeout(cfg.Polymarket.HTTPTimeout.Duration)}
	if redisClient != nil && cfg.Polymarket.RateLimit > 0 {
		limiter := redis.NewRateLimiter(redisClient, cfg.Polymarket.RateLimit)
		gammaOpts = append(gammaOpts, polymarket.WithLimiter(limiter, "polymarket:gamma"))
		clobOpts = append(clobOpts, polymarket.WithLimiter(limiter, "polymarket:clob"))
	}
	deps.Gamma = polymarket.NewGammaClient(cfg.Polymarket.GammaHost, gammaOpts...)
	deps.Clob = polymarket.NewClobClient(cfg.Polymarket.ClobHost, clobOpts...)

	// --- PostgreSQL ---
	if cfg.Postgres.Enabled {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		pool := pgClient.Pool()
		deps.TradeStore = postgres.NewTradeStore(pool, deps.SessionID)
		deps.OpportunityStore = postgres.NewOpportunityStore(pool, deps.SessionID)
		deps.AuditStore = postgres.NewAuditStore(pool)
		deps.Health["postgres"] = pgClient.Ping
		logger.InfoContext(ctx, "wire: postgres connected")
	}

	// --- S3 blob storage ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		deps.Archiver = s3blob.NewArchiver(s3blob.NewWriter(s3Client), cfg.S3.Prefix, deps.SessionID)
		deps.Health["s3"] = s3Client.Health
		logger.InfoContext(ctx, "wire: s3 configured", slog.String("bucket", cfg.S3.Bucket))
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}
