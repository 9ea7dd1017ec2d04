package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/pwerioflow/link/internal/auth"
	"github.com/pwerioflow/link/internal/cart"
	"github.com/pwerioflow/link/internal/checkout"
	"github.com/pwerioflow/link/internal/config"
	"github.com/pwerioflow/link/internal/event"
	handler "github.com/pwerioflow/link/internal/handler/http"
	"github.com/pwerioflow/link/internal/provider"
	providermock "github.com/pwerioflow/link/internal/provider/mock"
	stripeprovider "github.com/pwerioflow/link/internal/provider/stripe"
	pgrepo "github.com/pwerioflow/link/internal/repository/postgres"
	redisrepo "github.com/pwerioflow/link/internal/repository/redis"
	"github.com/pwerioflow/link/internal/service"
	"github.com/pwerioflow/link/internal/storage"
	"github.com/pwerioflow/link/internal/storage/local"
	"github.com/pwerioflow/link/internal/storage/memory"
	"github.com/pwerioflow/link/migrations"
	"github.com/pwerioflow/link/pkg/database"
	"github.com/pwerioflow/link/pkg/health"
	"github.com/pwerioflow/link/pkg/httpclient"
	pkgkafka "github.com/pwerioflow/link/pkg/kafka"
	"github.com/pwerioflow/link/pkg/tracing"
)

const (
	checkoutGuardTTL  = 30 * time.Minute
	webhookDedupeTTL  = 72 * time.Hour
	storefrontMaxAge  = 30
	readinessTimeout  = 3 * time.Second
	shutdownDeadline  = 10 * time.Second
	kafkaProbeTimeout = 5 * time.Second
)

// App wires together all dependencies and runs the linkbio server.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	rdb            *redis.Client
	producer       *pkgkafka.Producer
	dlq            *pkgkafka.DLQProducer
	consumer       *pkgkafka.Consumer
	sessions       *cart.Sessions
	httpServer     *http.Server
	tracerShutdown tracing.ShutdownFunc
	stopRouter     context.CancelFunc
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		Enabled:        cfg.OTELEnabled,
		ServiceName:    handler.ServiceName,
		ServiceVersion: cfg.Version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	// PostgreSQL.
	database.SetSlowQueryLogging(time.Duration(cfg.SlowQueryThresholdMs)*time.Millisecond, logger)
	pool, err := database.NewPostgresPool(ctx, cfg.Postgres(), logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	database.RegisterPoolMetrics(pool, handler.ServiceName)

	// Redis.
	rdb, err := database.NewRedisClient(ctx, cfg.Redis())
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info("connected to Redis", slog.String("addr", cfg.RedisAddr), slog.Int("db", cfg.RedisDB))

	a := &App{
		cfg:            cfg,
		logger:         logger,
		pool:           pool,
		rdb:            rdb,
		tracerShutdown: tracerShutdown,
	}

	// Kafka is optional: without reachable brokers events are dropped and
	// webhooks are applied inline.
	probeCtx, probeCancel := context.WithTimeout(ctx, kafkaProbeTimeout)
	kafkaErr := pkgkafka.PingBrokers(probeCtx, cfg.KafkaBrokers)
	probeCancel()
	var publisher event.Publisher
	if kafkaErr != nil {
		logger.Warn("kafka unavailable, running without event bus", slog.String("error", kafkaErr.Error()))
	} else {
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		publisher = a.producer
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}
	eventProducer := event.NewProducer(publisher, logger)

	// Payment provider behind a circuit breaker.
	prov := newProvider(cfg, logger)
	logger.Info("payment provider configured", slog.String("provider", prov.Name()))

	// Media storage.
	files, err := newStorage(cfg)
	if err != nil {
		a.closeStores()
		return nil, fmt.Errorf("init media storage: %w", err)
	}

	// Repositories.
	profiles := pgrepo.NewProfileRepository(pool)
	settings := pgrepo.NewSettingsRepository(pool)
	links := pgrepo.NewLinkRepository(pool)
	products := pgrepo.NewProductRepository(pool)
	subscriptions := pgrepo.NewSubscriptionRepository(pool)
	qr := pgrepo.NewQRRepository(pool)
	orders := pgrepo.NewOrderRepository(pool)

	// Services.
	site := cfg.PublicSiteURL()
	a.sessions = cart.NewSessions(cfg.CartTTL)
	jwt := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiry)

	// The cart posts to the checkout endpoint exactly once per click.
	initiatorCfg := httpclient.DefaultConfig()
	initiatorCfg.MaxRetries = 0
	initiatorCfg.Timeout = 20 * time.Second
	initiator := checkout.NewInitiator(httpclient.New(initiatorCfg), cfg.CheckoutEndpoint(), logger)

	storefronts := service.NewStorefrontService(profiles, settings, links, products, qr,
		redisrepo.NewStorefrontCache(rdb, cfg.ProfileCacheTTL, logger), a.sessions, eventProducer, logger)
	webhooks := service.NewWebhookService(prov, subscriptions, profiles, orders, eventProducer, logger)

	svcs := handler.Services{
		Storefronts: storefronts,
		Carts:       service.NewCartService(a.sessions, products, profiles, initiator, logger),
		Checkout: service.NewCheckoutService(profiles, subscriptions, products, prov,
			redisrepo.NewCheckoutGuard(rdb, checkoutGuardTTL), eventProducer, site, logger),
		Auth:          service.NewAuthService(profiles, jwt, cfg.BcryptCost, cfg.TrialDays, logger),
		Admin:         service.NewAdminService(profiles, settings, links, products, qr, subscriptions, storefronts, logger),
		Media:         service.NewMediaService(files, cfg.MaxUploadMB<<20, logger),
		QR:            service.NewQRService(profiles, qr, site, logger),
		Orders:        service.NewOrderService(orders, profiles),
		Connect:       service.NewConnectService(profiles, prov, site, logger),
		Subscriptions: service.NewSubscriptionService(subscriptions, profiles, prov, site, cfg.StripeMonthlyPrice, logger),
		Webhooks:      webhooks,
	}

	// Webhook consumer.
	if a.producer != nil && cfg.KafkaConsumerEnabled {
		a.dlq = pkgkafka.NewDLQProducer(cfg.KafkaBrokers, logger)
		a.consumer = event.NewWebhookConsumer(cfg.KafkaBrokers, cfg.WebhookConsumerGroup,
			event.NewWebhookHandler(webhooks, logger),
			redisrepo.NewIdempotencyStore(rdb, webhookDedupeTTL), a.dlq, logger)
	}

	// Health checks.
	healthHandler := health.NewHandler(cfg.Version, readinessTimeout)
	healthHandler.Register("postgres", health.PingChecker(pool))
	healthHandler.Register("redis", func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	})
	if a.producer != nil {
		healthHandler.Register("kafka", a.producer.Ping)
	}

	// HTTP router.
	routerCtx, stopRouter := context.WithCancel(context.Background())
	a.stopRouter = stopRouter
	router := handler.NewRouter(routerCtx, svcs, files, jwt.Validator(), healthHandler, handler.Options{
		CORSOrigins:      cfg.CORSOrigins,
		RateLimitRPS:     cfg.RateLimitRPS,
		RateBurst:        cfg.RateBurst,
		StorefrontMaxAge: storefrontMaxAge,
	}, logger)

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      35 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return a, nil
}

// newProvider selects the payment provider. Stripe calls go through a
// retrying client whose transport trips a breaker on sustained failures.
func newProvider(cfg *config.Config, logger *slog.Logger) provider.Provider {
	if cfg.PaymentProvider != "stripe" {
		return providermock.NewProvider(cfg.PublicSiteURL()+"/mock-pay", cfg.StripeWebhookSecret)
	}

	breaker := httpclient.CircuitBreakerConfig{
		Name:         "stripe",
		MaxRequests:  cfg.CBMaxRequests,
		Interval:     time.Duration(cfg.CBInterval) * time.Second,
		Timeout:      time.Duration(cfg.CBTimeout) * time.Second,
		FailureRatio: cfg.CBFailureRatio,
		MinRequests:  cfg.CBMinRequests,
	}
	transport := httpclient.NewBreakerTransport(http.DefaultTransport.(*http.Transport).Clone(), breaker, logger)
	client := httpclient.NewWithTransport(httpclient.DefaultConfig(), transport)
	return stripeprovider.NewProvider(cfg.StripeSecretKey, cfg.StripeWebhookSecret, client.HTTPClient(), logger)
}

// newStorage stores media on disk, or in memory when STORAGE_DIR is
// "memory".
func newStorage(cfg *config.Config) (storage.Storage, error) {
	if cfg.StorageDir == config.StorageInMemory {
		return memory.New(cfg.PublicSiteURL()), nil
	}
	return local.New(cfg.StorageDir, cfg.PublicSiteURL())
}

// Run starts the HTTP server, the cart janitor and the webhook consumer,
// and blocks until ctx is canceled or one of them fails.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("starting HTTP server", slog.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		a.sessions.Run(gctx)
		return nil
	})

	if a.consumer != nil {
		g.Go(func() error {
			return a.consumer.Start(gctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		if ctx.Err() != nil {
			a.logger.Info("shutdown signal received")
		}
		return a.Shutdown()
	})

	return g.Wait()
}

// Shutdown gracefully stops all components: the HTTP server first, then the
// background workers, then the stores they write to.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownDeadline)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}
	a.stopRouter()

	if a.consumer != nil {
		if err := a.consumer.Close(); err != nil {
			a.logger.Error("kafka consumer close error", slog.String("error", err.Error()))
		}
	}
	if a.dlq != nil {
		if err := a.dlq.Close(); err != nil {
			a.logger.Error("kafka dlq close error", slog.String("error", err.Error()))
		}
	}
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		}
	}

	a.closeStores()

	if err := a.tracerShutdown(shutdownCtx); err != nil {
		a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
	}

	a.logger.Info("application shutdown complete")
	return nil
}

func (a *App) closeStores() {
	if err := a.rdb.Close(); err != nil {
		a.logger.Error("redis close error", slog.String("error", err.Error()))
	}
	a.pool.Close()
}
