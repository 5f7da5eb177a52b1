package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Aimecol/hforher/internal/catalog"
	"github.com/Aimecol/hforher/internal/config"
	"github.com/Aimecol/hforher/internal/event"
	handler "github.com/Aimecol/hforher/internal/handler/http"
	"github.com/Aimecol/hforher/internal/notify"
	"github.com/Aimecol/hforher/internal/repository"
	"github.com/Aimecol/hforher/internal/repository/memory"
	redisrepo "github.com/Aimecol/hforher/internal/repository/redis"
	"github.com/Aimecol/hforher/internal/service"
	"github.com/Aimecol/hforher/internal/session"
	"github.com/Aimecol/hforher/pkg/health"
	"github.com/Aimecol/hforher/pkg/httpclient"
	pkgkafka "github.com/Aimecol/hforher/pkg/kafka"
	"github.com/Aimecol/hforher/pkg/middleware"
	"github.com/Aimecol/hforher/pkg/tracing"
)

const serviceName = "h-for-her-storefront"

// sessionStore is what the registry needs from a persistence backend.
type sessionStore interface {
	repository.CartRepository
	repository.WishlistRepository
	Ping(ctx context.Context) error
}

// App wires together all dependencies and runs the storefront server.
type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	rdb        *redis.Client
	producer   *pkgkafka.Producer
	dispatcher *notify.Dispatcher
	sessions   *session.Registry
	catalog    *catalog.Catalog
	source     catalog.Source
	limiter    *middleware.RateLimiter
	tracerStop tracing.ShutdownFunc
	httpServer *http.Server
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}

	tracerStop, err := tracing.Init(ctx, tracing.Config{
		Enabled:        cfg.OTELEnabled,
		ServiceName:    serviceName,
		ServiceVersion: cfg.Version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}
	a.tracerStop = tracerStop

	// Session persistence.
	var store sessionStore
	if cfg.RedisEnabled {
		rdb, err := redisrepo.NewClient(ctx, redisrepo.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPass,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		a.rdb = rdb
		store = redisrepo.New(rdb, redisrepo.Options{TTL: cfg.StoreTTL})
		logger.Info("connected to Redis",
			slog.String("addr", cfg.RedisAddr),
			slog.Int("db", cfg.RedisDB),
		)
	} else {
		store = memory.New()
		logger.Warn("redis disabled, carts and wishlists are kept in memory")
	}

	// Events and notifications.
	var publisher event.Publisher = event.NopPublisher{}
	var sink notify.Sink
	if cfg.KafkaEnabled {
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		eventProducer := event.NewProducer(a.producer, logger)
		publisher = eventProducer
		sink = eventProducer
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}
	a.dispatcher = notify.NewDispatcher(logger, sink)

	// Catalog.
	a.source = catalog.EmbeddedSource{}
	if cfg.CatalogSource == config.CatalogSourceHTTP {
		client := httpclient.NewBreakerClient(
			httpclient.New(httpclient.DefaultConfig()),
			httpclient.DefaultBreakerConfig("catalog"),
			logger,
		)
		a.source = catalog.NewHTTPSource(client, cfg.CatalogURL)
	}
	a.catalog, err = catalog.Load(ctx, a.source)
	if err != nil {
		a.closeClients()
		return nil, fmt.Errorf("load catalog from %s source: %w", a.source.Name(), err)
	}
	logger.Info("catalog loaded",
		slog.String("source", a.source.Name()),
		slog.Int("products", a.catalog.Len()),
	)

	// Build the dependency graph.
	a.sessions = session.NewRegistry(session.Config{IdleTimeout: cfg.SessionIdleTimeout}, store, store, a.dispatcher, logger)
	searcher := catalog.NewSearcher(cfg.SearchMinScore)

	cartService := service.NewCartService(a.sessions, a.catalog, publisher, logger)
	wishlistService := service.NewWishlistService(a.sessions, a.catalog, publisher, logger)
	catalogService := service.NewCatalogService(a.catalog, searcher, logger)
	checkoutService := service.NewCheckoutService(a.sessions, a.catalog, publisher, logger)

	// Health checks.
	healthHandler := health.NewHandler(cfg.Version)
	healthHandler.Register("session_store", store.Ping)
	healthHandler.Register("catalog", func(context.Context) error {
		if a.catalog.Len() == 0 {
			return errors.New("catalog is empty")
		}
		return nil
	})
	if a.producer != nil {
		healthHandler.Register("kafka", a.producer.Ping)
	}

	a.limiter = middleware.NewRateLimiter(cfg.OrderRateLimit, cfg.OrderBurst, logger,
		middleware.WithTrustedProxies(cfg.TrustedProxyCIDRs),
	)

	cors := middleware.DefaultCORSConfig()
	cors.AllowedOrigins = cfg.CORSOrigins

	// HTTP router.
	router := handler.NewRouter(handler.RouterConfig{
		Cart:            cartService,
		Wishlist:        wishlistService,
		Catalog:         catalogService,
		Checkout:        checkoutService,
		Health:          healthHandler,
		Logger:          logger,
		CORS:            cors,
		OrderLimiter:    a.limiter,
		PprofCIDRs:      cfg.PprofCIDRs,
		RequestTimeout:  cfg.RequestTimeout,
		CatalogCacheTTL: cfg.CatalogCacheTTL,
	})

	a.httpServer = &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return a, nil
}

// Run starts the HTTP server and background workers and blocks until the
// context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go a.limiter.Run(ctx)
	if a.cfg.CatalogSource == config.CatalogSourceHTTP {
		go a.catalog.Refresh(ctx, a.source, a.cfg.CatalogRefreshInterval, a.logger)
	}

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		_ = a.Shutdown()
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}

	a.sessions.Flush()
	// Let in-flight notification deliveries finish before the producer closes.
	a.dispatcher.Wait()
	a.closeClients()

	if err := a.tracerStop(shutdownCtx); err != nil {
		a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
	}

	a.logger.Info("application shutdown complete")
	return nil
}

func (a *App) closeClients() {
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		}
	}
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
		}
	}
}
