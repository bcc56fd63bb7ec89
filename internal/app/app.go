package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/utafrali/product-catalog/internal/auth"
	"github.com/utafrali/product-catalog/internal/cache"
	"github.com/utafrali/product-catalog/internal/config"
	"github.com/utafrali/product-catalog/internal/event"
	handler "github.com/utafrali/product-catalog/internal/handler/http"
	"github.com/utafrali/product-catalog/internal/repository"
	"github.com/utafrali/product-catalog/internal/repository/memory"
	"github.com/utafrali/product-catalog/internal/repository/postgres"
	"github.com/utafrali/product-catalog/internal/service"
	"github.com/utafrali/product-catalog/internal/storage"
	memstorage "github.com/utafrali/product-catalog/internal/storage/memory"
	miniostorage "github.com/utafrali/product-catalog/internal/storage/minio"
	"github.com/utafrali/product-catalog/migrations"
	"github.com/utafrali/product-catalog/pkg/database"
	"github.com/utafrali/product-catalog/pkg/health"
	pkgkafka "github.com/utafrali/product-catalog/pkg/kafka"
	"github.com/utafrali/product-catalog/pkg/middleware"
	"github.com/utafrali/product-catalog/pkg/tracing"
)

// ServiceName identifies the service in logs, metrics, traces and events.
const ServiceName = "product-catalog"

// App wires together all dependencies and runs the catalog service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redis          *redis.Client
	producer       *pkgkafka.Producer
	tracerShutdown func(context.Context) error
	httpServer     *http.Server
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}
	healthHandler := health.NewHandler()

	// Tracing.
	traceCfg := tracing.DefaultConfig(ServiceName)
	traceCfg.Environment = cfg.Environment
	traceCfg.Enabled = cfg.OTELEnabled
	traceCfg.OTLPEndpoint = cfg.OTELEndpoint
	traceCfg.SampleRate = cfg.OTELSampleRate
	shutdown, err := tracing.InitTracer(ctx, traceCfg)
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	a.tracerShutdown = shutdown

	store, err := a.openStore(ctx, healthHandler)
	if err != nil {
		a.close()
		return nil, err
	}

	files, media, err := a.openStorage(ctx, healthHandler)
	if err != nil {
		a.close()
		return nil, err
	}

	c, err := a.openCache(ctx, healthHandler)
	if err != nil {
		a.close()
		return nil, err
	}

	// Kafka producer.
	var publisher event.Publisher = event.NopPublisher{}
	if cfg.KafkaEnabled {
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		publisher = a.producer
		healthHandler.RegisterNonCritical("kafka", a.producer.Ping)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	} else {
		logger.Info("kafka disabled, product events are dropped")
	}

	// Build the dependency graph.
	eventProducer := event.NewProducer(publisher, logger)
	productService := service.NewProductService(store, files, c, eventProducer, service.ProductOptions{
		Policy:   cfg.PriceRowPolicyValue(),
		PageSize: cfg.ProductListPageSize,
		CacheTTL: cfg.CacheTTL(),
	}, logger)
	variantService := service.NewVariantService(store, c, cfg.CacheTTL(), logger)

	routerCfg := handler.RouterConfig{
		ServiceName:       ServiceName,
		CORS:              middleware.DefaultCORSConfig(),
		PprofAllowedCIDRs: cfg.PprofAllowedCIDRs,
		MaxUploadBytes:    cfg.MaxUploadBytes,
		FormCacheTTL:      cfg.CacheTTL(),
		Media:             media,
	}
	routerCfg.CORS.AllowedOrigins = cfg.CORSAllowedOrigins
	if cfg.JWTSecret != "" {
		routerCfg.TokenValidator = auth.NewJWTVerifier(cfg.JWTSecret, cfg.JWTIssuer).Validate
	} else {
		logger.Warn("AUTH_JWT_SECRET is empty, write endpoints are unauthenticated")
	}

	router := handler.NewRouter(productService, variantService, healthHandler, routerCfg, logger)

	a.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return a, nil
}

// openStore connects the configured repository backend.
func (a *App) openStore(ctx context.Context, h *health.Handler) (repository.Store, error) {
	cfg := a.cfg
	if cfg.StoreDriver == config.DriverMemory {
		a.logger.Warn("using in-memory store, data is lost on restart")
		return memory.NewStore(), nil
	}

	pgCfg := database.PostgresConfig{
		Host:            cfg.PostgresHost,
		Port:            cfg.PostgresPort,
		User:            cfg.PostgresUser,
		Password:        cfg.PostgresPass,
		DBName:          cfg.PostgresDB,
		SSLMode:         cfg.PostgresSSL,
		MaxConns:        cfg.DBMaxConns,
		MinConns:        cfg.DBMinConns,
		MaxConnLifetime: time.Duration(cfg.DBMaxConnLifetimeMins) * time.Minute,
		MaxConnIdleTime: time.Duration(cfg.DBMaxConnIdleTimeMins) * time.Minute,
	}

	pool, err := database.NewPostgresPoolWithLogger(ctx, &pgCfg, a.logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	a.pool = pool
	a.logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)

	if err := database.RunMigrations(ctx, pool, migrations.FS, a.logger); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	a.logger.Info("database migrations completed")

	if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, pool, ServiceName); err != nil {
		a.logger.Warn("pool metrics not registered", slog.String("error", err.Error()))
	}
	database.SetSlowQueryLogging(cfg.SlowQueryThreshold(), a.logger)

	h.RegisterCritical("postgres", pool.Ping)
	return postgres.NewStore(pool), nil
}

// openStorage builds the image storage. The returned handler serves stored
// objects when the backend has no server of its own.
func (a *App) openStorage(ctx context.Context, h *health.Handler) (storage.Storage, http.Handler, error) {
	cfg := a.cfg
	if cfg.StorageDriver == config.DriverMemory {
		files := memstorage.New(cfg.StoragePublicURL)
		return files, files, nil
	}

	files, err := miniostorage.New(miniostorage.Config{
		Endpoint:      cfg.MinIOEndpoint,
		AccessKey:     cfg.MinIOAccessKey,
		SecretKey:     cfg.MinIOSecretKey,
		UseSSL:        cfg.MinIOUseSSL,
		Region:        cfg.MinIORegion,
		Bucket:        cfg.MinIOBucket,
		PublicURL:     cfg.MinIOPublicURL,
		PresignExpiry: time.Duration(cfg.MinIOPresignExpiry) * time.Minute,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create minio client: %w", err)
	}
	if err := files.EnsureBucket(ctx); err != nil {
		return nil, nil, fmt.Errorf("ensure bucket %s: %w", cfg.MinIOBucket, err)
	}
	a.logger.Info("minio storage initialized",
		slog.String("endpoint", cfg.MinIOEndpoint),
		slog.String("bucket", cfg.MinIOBucket),
	)

	h.RegisterNonCritical("minio", files.Ping)
	return files, nil, nil
}

// openCache builds the variant cache.
func (a *App) openCache(ctx context.Context, h *health.Handler) (cache.Cache, error) {
	cfg := a.cfg
	switch cfg.CacheDriver {
	case config.DriverNone:
		return cache.Nop{}, nil
	case config.DriverMemory:
		return cache.NewMemory(), nil
	}

	redisCfg := database.DefaultRedisConfig()
	redisCfg.Host = cfg.RedisHost
	redisCfg.Port = cfg.RedisPort
	redisCfg.Password = cfg.RedisPassword
	redisCfg.DB = cfg.RedisDB

	client, err := database.NewRedisClient(ctx, redisCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	a.redis = client
	a.logger.Info("connected to Redis", slog.String("addr", redisCfg.Addr()))

	c := cache.NewRedis(client)
	h.RegisterNonCritical("redis", c.Ping)
	return c, nil
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

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
		a.close()
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownGrace())
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}

	a.close()
	a.logger.Info("application shutdown complete")
	return nil
}

// close releases every client opened so far.
func (a *App) close() {
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
	if a.tracerShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.tracerShutdown(ctx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
		}
	}
}
