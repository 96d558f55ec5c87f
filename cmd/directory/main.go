package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gartstein/directory/internal/directory/auth"
	"github.com/gartstein/directory/internal/directory/config"
	"github.com/gartstein/directory/internal/directory/controller"
	"github.com/gartstein/directory/internal/directory/db"
	"github.com/gartstein/directory/internal/directory/enrichment"
	"github.com/gartstein/directory/internal/directory/events"
	"github.com/gartstein/directory/internal/directory/fallback"
	"github.com/gartstein/directory/internal/directory/handlers"
	"github.com/gartstein/directory/internal/directory/metrics"
	"github.com/gartstein/directory/internal/directory/mockstore"
	"github.com/gartstein/directory/internal/directory/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"google.golang.org/grpc"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to the YAML config file")
	printConfig := flag.Bool("print-config", false, "print the effective config with secrets redacted and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		zap.NewExample().Fatal("failed to load config", zap.Error(err))
	}
	if *printConfig {
		if err := cfg.Dump(os.Stdout); err != nil {
			zap.NewExample().Fatal("failed to print config", zap.Error(err))
		}
		return
	}

	logger := initLogger(cfg.Log)
	defer func(logger *zap.Logger) {
		_ = logger.Sync()
	}(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewMetrics(reg)

	store := mockstore.New(logger, storeOptions(cfg.Mock)...)
	mockMode := cfg.Mock.Enabled
	var live controller.Source = store
	var repo *db.Repository
	if !mockMode {
		repo, err = db.NewRepository(ctx, initDatabase(cfg.Database), logger)
		if err != nil {
			logger.Warn("Live datastore unavailable, serving mock data", zap.Error(err))
			mockMode = true
		} else {
			live = repo
			defer func() {
				if err := repo.Close(); err != nil {
					logger.Error("failed to close database", zap.Error(err))
				}
			}()
		}
	}
	m.SetLiveStoreUp(repo != nil)

	var producer controller.EventProducer = events.NopProducer{}
	if len(cfg.Kafka.Brokers) > 0 {
		p, err := events.NewProducer(cfg.Kafka.Brokers, logger, cfg.Kafka.Topic)
		if err != nil {
			logger.Fatal("failed to initialize Kafka producer", zap.Error(err))
		}
		defer p.Close()
		producer = p

		if cfg.Kafka.AuditGroup != "" {
			consumer := events.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.AuditGroup, cfg.Kafka.Topic, logger)
			consumer.Start(ctx)
			defer consumer.Close()
		}
	}

	opts := m.FallbackOptions()
	svc := handlers.Services{
		Companies: controller.NewCompanyService(
			fallback.New[controller.CompanySource](live, store, mockMode, logger, opts...), producer, logger),
		Employees: controller.NewEmployeeService(
			fallback.New[controller.EmployeeSource](live, store, mockMode, logger, opts...),
			enrichment.New(logger, enrichment.DefaultProviders()...), producer, logger),
		Trainers: controller.NewTrainerService(
			fallback.New[controller.TrainerSource](live, store, mockMode, logger, opts...), producer, logger),
		TrainingRequests: controller.NewTrainingRequestService(
			fallback.New[controller.TrainingRequestSource](live, store, mockMode, logger, opts...), producer, logger),
	}

	apiOpts := handlers.Options{
		JWTSecret: cfg.Auth.JWTSecret,
		MockMode:  mockMode,
		Recorder:  m,
	}
	if cfg.RateLimit.Enabled {
		limiter := ratelimit.New(ctx, cfg.RateLimit.RPS, cfg.RateLimit.Burst, m)
		defer limiter.Stop()
		apiOpts.RateLimit = limiter.Middleware
	}
	if cfg.Metrics.Enabled {
		apiOpts.Metrics = promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
	}

	api := handlers.NewAPI(svc, apiOpts, logger)
	if repo != nil {
		api.SetLiveCheck(func() bool {
			pingCtx, cancel := context.WithTimeout(ctx, time.Second)
			defer cancel()
			up := repo.Ping(pingCtx) == nil
			m.SetLiveStoreUp(up)
			return up
		})
	}

	authInterceptor := auth.NewAuthInterceptor(cfg.Auth.JWTSecret)
	server := handlers.NewServer(cfg.Server.GRPCPort, cfg.Server.HTTPPort, logger,
		grpc.ChainUnaryInterceptor(authInterceptor.Unary()),
		grpc.ChainStreamInterceptor(authInterceptor.Stream()),
	)
	server.SetHandler(api.Handler())
	server.SetServing(!mockMode)

	logger.Info("Directory service configured",
		zap.Bool("mock_mode", mockMode),
		zap.Int("grpc_port", cfg.Server.GRPCPort),
		zap.Int("http_port", cfg.Server.HTTPPort),
		zap.Bool("kafka", len(cfg.Kafka.Brokers) > 0),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	waitForShutdown(server, errCh, cfg.Server.ShutdownTimeout, logger)
}

// initLogger builds a production zap logger at the configured level, or a
// development one when asked.
func initLogger(cfg config.LogConfig) *zap.Logger {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	logger, err := zc.Build()
	if err != nil {
		return zap.NewExample()
	}
	return logger.Named("directory")
}

func storeOptions(cfg config.MockConfig) []mockstore.Option {
	if cfg.DataPath == "" {
		return nil
	}
	return []mockstore.Option{mockstore.WithDir(cfg.DataPath)}
}

func initDatabase(cfg config.DatabaseConfig) *db.Config {
	return &db.Config{
		Host:           cfg.Host,
		Port:           cfg.Port,
		User:           cfg.User,
		Password:       cfg.Password,
		DBName:         cfg.Name,
		SSLMode:        cfg.SSLMode,
		ConnectTimeout: cfg.ConnectTimeout,
	}
}

// waitForShutdown blocks until an interrupt, SIGTERM or a server failure,
// then shuts down servers.
func waitForShutdown(server *handlers.Server, errCh <-chan error, timeout time.Duration, logger *zap.Logger) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-stop:
		logger.Info("Shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			logger.Error("Server failed", zap.Error(err))
		}
	}

	server.Stop(timeout)
	logger.Info("Servers stopped properly")
}
