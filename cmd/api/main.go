package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"consultbook/internal/api"
	"consultbook/internal/auth"
	"consultbook/internal/config"
	"consultbook/internal/database"
	"consultbook/internal/domain"
	"consultbook/internal/events"
	"consultbook/internal/google"
	"consultbook/internal/logging"
	"consultbook/internal/metrics"
	"consultbook/internal/models"
	"consultbook/internal/mongostore"
	"consultbook/internal/notify"
	"consultbook/internal/repository"
	"consultbook/internal/service"
	"consultbook/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

// backend is the selected booking store plus the SQLite file that always
// carries the sync queue and backups.
type backend struct {
	store domain.Store
	db    *database.DB
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	be, err := initStore(ctx, cfg, &logger)
	if err != nil {
		return err
	}
	defer be.db.Close()
	if be.store != be.db {
		defer be.store.Close()
	}

	redisClient := initRedis(cfg, &logger)
	if redisClient != nil {
		defer redisClient.Close()
	}
	cache := initCache(redisClient, &logger)

	bus := events.NewEventBus(&logger)
	catalog := service.NewCatalogService(be.store, cache, cfg.Cache.ConsultantTTL, &logger)

	catalogData, err := loadCatalog(&logger)
	if err != nil {
		return err
	}
	if err := catalog.Seed(ctx, catalogData); err != nil {
		return fmt.Errorf("seed catalog: %w", err)
	}

	svc := api.Services{
		Bookings:  service.NewBookingService(be.store, catalog, cache, bus, cfg.Booking, cfg.Location(), &logger),
		Feedbacks: service.NewFeedbackService(be.store, be.store, cache, bus, cfg.Cache.RatingTTL, &logger),
		Catalog:   catalog,
		Store:     be.store,
	}

	if forwarder := initAMQP(cfg, bus, &logger); forwarder != nil {
		defer forwarder.Close()
	}
	initNotifier(cfg, bus, &logger)
	startSheetsSync(ctx, cfg, be, redisClient, bus, &logger)
	startBackups(ctx, cfg, be.db, &logger)
	startMetrics(ctx, cfg, &logger)

	issuer := auth.NewIssuer(cfg.API.Auth.JWTSecret, cfg.API.Auth.Issuer, cfg.API.Auth.TokenTTL)

	var grpcServer *api.GRPCServer
	if cfg.API.GRPC.Enabled {
		grpcServer, err = api.NewGRPCServer(cfg.API, svc, issuer, &logger)
		if err != nil {
			logger.Error().Err(err).Msg("create grpc server")
			return err
		}
	}
	httpServer := api.NewHTTPServer(cfg.API, svc, issuer, cfg.Exports.Path, &logger)

	return startServers(ctx, grpcServer, httpServer, cfg, &logger)
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", "api-main").Logger()

	return cfg, logger, closer, nil
}

func loadCatalog(logger *zerolog.Logger) (*models.Catalog, error) {
	catalogPath := os.Getenv("CATALOG_PATH")
	if catalogPath == "" {
		catalogPath = "configs/catalog.yaml"
	}
	data, err := os.ReadFile(catalogPath)
	if err != nil {
		logger.Error().Err(err).Str("catalog_path", catalogPath).Msg("read catalog")
		return nil, err
	}

	var catalog models.Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		logger.Error().Err(err).Str("catalog_path", catalogPath).Msg("parse catalog")
		return nil, err
	}
	return &catalog, nil
}

func initStore(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*backend, error) {
	db, err := database.NewDB(cfg.Database.Path, logger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return nil, err
	}

	if cfg.Database.Driver != config.DriverMongo {
		return &backend{store: db, db: db}, nil
	}

	mongoStore, err := mongostore.Connect(ctx, cfg.Database.Mongo, logger)
	if err != nil {
		_ = db.Close()
		logger.Error().Err(err).Msg("init mongo store")
		return nil, err
	}
	return &backend{store: mongoStore, db: db}, nil
}

func initRedis(cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	redisClient := repository.NewRedisClient(cfg.Redis)

	pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if _, err := redisClient.Ping(pingCtx).Result(); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		_ = redisClient.Close()
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return redisClient
}

func initCache(redisClient *redis.Client, logger *zerolog.Logger) domain.ReadCache {
	memory := repository.NewMemoryCache()
	if redisClient == nil {
		return memory
	}
	return repository.NewFailoverCache(repository.NewRedisCache(redisClient), memory, logger)
}

func initAMQP(cfg *config.Config, bus *events.EventBus, logger *zerolog.Logger) *events.AMQPForwarder {
	if cfg.Events.AMQPURL == "" {
		return nil
	}
	forwarder, err := events.DialAMQP(cfg.Events.AMQPURL, cfg.Events.Exchange, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("rabbitmq unavailable, events stay in-process")
		return nil
	}
	bus.SubscribeAll(forwarder.Forward)
	logger.Info().Str("exchange", cfg.Events.Exchange).Msg("rabbitmq forwarder attached")
	return forwarder
}

func initNotifier(cfg *config.Config, bus *events.EventBus, logger *zerolog.Logger) {
	if cfg.Telegram.BotToken == "" || len(cfg.Telegram.StaffChatIDs) == 0 {
		return
	}
	bot, err := notify.NewBot(cfg.Telegram)
	if err != nil {
		logger.Warn().Err(err).Msg("telegram init failed, staff notifications disabled")
		return
	}
	notify.NewStaffNotifier(bot, cfg.Telegram.StaffChatIDs, logger).Subscribe(bus)
	logger.Info().Str("bot", bot.Self.UserName).Int("chats", len(cfg.Telegram.StaffChatIDs)).Msg("telegram notifier attached")
}

func startSheetsSync(ctx context.Context, cfg *config.Config, be *backend, redisClient *redis.Client, bus *events.EventBus, logger *zerolog.Logger) {
	if cfg.Google.GoogleCredentialsFile == "" || cfg.Google.BookingSpreadSheetID == "" {
		return
	}

	sheetsService, err := google.NewSheetsService(ctx, cfg.Google.GoogleCredentialsFile, cfg.Google.BookingSpreadSheetID)
	if err != nil {
		logger.Warn().Err(err).Msg("google sheets init failed, continuing without sheets")
		return
	}

	go func() {
		warmCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if err := sheetsService.TestConnection(warmCtx); err != nil {
			email, _ := google.ServiceAccountEmail(cfg.Google.GoogleCredentialsFile)
			logger.Warn().Err(err).Str("service_account", email).Msg("spreadsheet not reachable, share it with the service account")
			return
		}
		if err := sheetsService.EnsureHeader(warmCtx); err != nil {
			logger.Warn().Err(err).Msg("write sheet header")
		}
		if err := sheetsService.WarmUpCache(warmCtx); err != nil {
			logger.Warn().Err(err).Msg("warm up sheet row cache")
		}
	}()

	w := worker.NewSheetsWorker(be.db, be.store, sheetsService, redisClient, worker.RetryPolicy{}, logger)
	w.Subscribe(bus)
	go w.Start(ctx)
	logger.Info().Msg("google sheets sync started")
}

func startBackups(ctx context.Context, cfg *config.Config, db *database.DB, logger *zerolog.Logger) {
	if !cfg.Backup.Enabled {
		return
	}
	go database.NewBackupService(db, cfg.Backup, logger).Start(ctx)
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, logger)
}

func startServers(
	ctx context.Context,
	grpcServer *api.GRPCServer,
	httpServer *api.HTTPServer,
	cfg *config.Config,
	logger *zerolog.Logger,
) error {
	if grpcServer != nil {
		go func() {
			if err := grpcServer.Serve(); err != nil {
				logger.Error().Err(err).Msg("grpc server stopped")
			}
		}()
		logger.Info().Str("grpc_addr", grpcServer.Addr()).Msg("gRPC server started")
	}

	if cfg.API.HTTP.Enabled {
		go func() {
			if err := httpServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Msg("http server stopped")
			}
		}()
		logger.Info().Int("http_port", cfg.API.HTTP.Port).Msg("HTTP server started")
	}

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if grpcServer != nil {
		grpcServer.Shutdown(shutdownCtx)
	}
	if cfg.API.HTTP.Enabled {
		_ = httpServer.Shutdown(shutdownCtx)
	}

	logger.Info().Msg("API server stopped")
	return nil
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
