package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	s3blob "github.com/alanyoungcy/limitedbot/internal/blob/s3"
	"github.com/alanyoungcy/limitedbot/internal/cache/local"
	"github.com/alanyoungcy/limitedbot/internal/cache/redis"
	"github.com/alanyoungcy/limitedbot/internal/config"
	"github.com/alanyoungcy/limitedbot/internal/domain"
	"github.com/alanyoungcy/limitedbot/internal/notify"
	"github.com/alanyoungcy/limitedbot/internal/platform/roblox"
	"github.com/alanyoungcy/limitedbot/internal/platform/rolimons"
	"github.com/alanyoungcy/limitedbot/internal/pricecache"
	"github.com/alanyoungcy/limitedbot/internal/search"
	"github.com/alanyoungcy/limitedbot/internal/store/postgres"
	"github.com/alanyoungcy/limitedbot/internal/tier"
	"github.com/alanyoungcy/limitedbot/internal/valuation"
)

// Dependencies bundles every domain-level dependency that the application modes
// need to operate. It is constructed by Wire and torn down by the returned
// cleanup function. Stores and Archive are nil when their backend is
// disabled.
type Dependencies struct {
	// Upstream
	Roblox   *roblox.Client
	Rolimons *rolimons.Client

	// Core
	Cache  *pricecache.Manager
	Policy *tier.Policy
	Engine *search.Engine
	Modes  []domain.SearchMode

	// Stores
	CandidateStore domain.CandidateStore
	ScanStore      domain.ScanStore
	AuditStore     domain.AuditStore

	// Caches
	RateLimiter  domain.RateLimiter
	LockManager  domain.LockManager
	SignalBus    domain.SignalBus
	ProcessedSet domain.ProcessedSet

	// Blob storage
	Archive *s3blob.SnapshotArchive

	// Notifications
	Notifier *notify.Notifier
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
	fail := func(err error) (*Dependencies, func(), error) {
		cleanup()
		return nil, nil, err
	}

	deps := &Dependencies{}

	modes, err := cfg.SearchModes()
	if err != nil {
		return fail(fmt.Errorf("wire: %w", err))
	}
	deps.Modes = modes

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
			return fail(fmt.Errorf("wire: postgres: %w", err))
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				return fail(fmt.Errorf("wire: postgres migrations: %w", err))
			}
		}

		pool := pgClient.Pool()
		deps.CandidateStore = postgres.NewCandidateStore(pool)
		deps.ScanStore = postgres.NewScanStore(pool)
		deps.AuditStore = postgres.NewAuditStore(pool)
	}

	// --- Redis, or in-process equivalents ---
	var (
		sinks   []domain.SnapshotSink
		sources []domain.SnapshotSource
	)
	waitLimit, waitWindow := requestBudget(cfg.Roblox.RequestsPerSecond)
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
			KeyPrefix:  cfg.Redis.KeyPrefix,
		})
		if err != nil {
			return fail(fmt.Errorf("wire: redis: %w", err))
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.RateLimiter = redis.NewRateLimiter(redisClient, waitLimit, waitWindow)
		deps.LockManager = redis.NewLockManager(redisClient)
		deps.SignalBus = redis.NewSignalBus(redisClient)
		deps.ProcessedSet = redis.NewProcessedSet(redisClient)

		mirror := redis.NewSnapshotMirror(redisClient, deps.SignalBus, cfg.Redis.MirrorTTL.Duration)
		sinks = append(sinks, mirror)
		sources = append(sources, mirror)
	} else {
		processed, err := local.NewProcessedSet(cfg.Scanner.SeenSize)
		if err != nil {
			return fail(fmt.Errorf("wire: processed set: %w", err))
		}
		deps.RateLimiter = local.NewRateLimiter(waitLimit, waitWindow)
		deps.SignalBus = local.NewSignalBus()
		deps.ProcessedSet = processed
		sinks = append(sinks, snapshotAnnouncer{bus: deps.SignalBus})
	}

	// --- S3 snapshot archive ---
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
			return fail(fmt.Errorf("wire: s3: %w", err))
		}
		closers = append(closers, func() { _ = s3Client.Close() })

		deps.Archive = s3blob.NewSnapshotArchive(s3blob.NewBucket(s3Client), cfg.S3.ArchivePrefix)
		sinks = append(sinks, deps.Archive)
		sources = append(sources, deps.Archive)
	}

	// --- Upstream clients ---
	deps.Roblox = roblox.NewClient(roblox.Config{
		InventoryURL:      cfg.Roblox.InventoryURL,
		TradesURL:         cfg.Roblox.TradesURL,
		Cookie:            cfg.Roblox.Cookie,
		Timeout:           cfg.Roblox.Timeout.Duration,
		RequestsPerSecond: cfg.Roblox.RequestsPerSecond,
		Limiter:           deps.RateLimiter,
	})
	deps.Rolimons = rolimons.NewClient(rolimons.Config{
		ItemDetailsURL: cfg.Rolimons.ItemDetailsURL,
		TradeAdsURL:    cfg.Rolimons.TradeAdsURL,
		Timeout:        cfg.Rolimons.Timeout.Duration,
	})

	// --- Price cache ---
	opts := []pricecache.Option{
		pricecache.WithSinks(sinks...),
		pricecache.WithSources(sources...),
	}
	if deps.LockManager != nil {
		opts = append(opts, pricecache.WithRefreshLock(deps.LockManager))
	}
	var store *pricecache.FileStore
	if cfg.PriceCache.File != "" {
		store = pricecache.NewFileStore(cfg.PriceCache.File)
	}
	deps.Cache = pricecache.NewManager(pricecache.Config{
		Enabled:            cfg.PriceCache.Enabled,
		TTL:                cfg.PriceCache.TTL.Duration,
		MinRefreshInterval: cfg.PriceCache.MinRefreshInterval.Duration,
		RefreshOnMissingID: cfg.PriceCache.RefreshOnMissingID,
		FetchTimeout:       cfg.PriceCache.FetchTimeout.Duration,
	}, deps.Rolimons, store, logger, opts...)

	// --- Search ---
	deps.Policy = tier.NewPolicy(cfg.TierBands())
	deps.Engine = search.NewEngine(
		search.Params{
			MaxOfferItems:    cfg.Limits.MaxOfferItems,
			MaxRequestItems:  cfg.Limits.MaxRequestItems,
			PoolSize:         cfg.Trading.PoolSize,
			ValuedPoolSize:   cfg.Trading.ValuedPoolSize,
			MinItemValue:     cfg.Limits.MinItemValue,
			ValuedPremiumMin: cfg.Trading.ValuedPremiumMinPercent,
			ValuedPremiumMax: cfg.Trading.ValuedPremiumMaxPercent,
			KeepAssets:       cfg.Roblox.KeepAssets,
		},
		valuation.Resolver{
			UnknownIsProjected:    cfg.Trading.UnknownIsProjected,
			AvoidProjectedOnOffer: cfg.Trading.AvoidProjectedOnOffer,
			AvoidProjectedOnAsk:   cfg.Trading.AvoidProjectedOnAsk,
		},
		deps.Policy,
		logger,
	)

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

// requestBudget expresses a request rate as a whole number of calls per
// window, the form the shared limiters' Wait accepts.
func requestBudget(perSecond float64) (int, time.Duration) {
	switch {
	case perSecond <= 0:
		return 1, time.Second
	case perSecond >= 1:
		return int(perSecond), time.Second
	default:
		return 1, time.Duration(float64(time.Second) / perSecond)
	}
}

// snapshotAnnouncer publishes snapshot refreshes on the in-process bus. The
// Redis mirror does this itself when Redis is enabled.
type snapshotAnnouncer struct {
	bus domain.SignalBus
}

func (a snapshotAnnouncer) StoreSnapshot(ctx context.Context, snap domain.ValueSnapshot) error {
	event, err := domain.NewEvent("snapshot_refreshed", domain.SnapshotInfo{
		Items:     snap.Len(),
		FetchedAt: snap.FetchedAt.UTC(),
	})
	if err != nil {
		return fmt.Errorf("app: encode snapshot event: %w", err)
	}
	return a.bus.Publish(ctx, domain.ChannelSnapshot, event)
}
