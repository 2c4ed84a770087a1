package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"registrationportal/internal/cache"
	"registrationportal/internal/config"
	"registrationportal/internal/handler"
	"registrationportal/internal/intake"
	"registrationportal/internal/logging"
	"registrationportal/internal/metrics"
	"registrationportal/internal/middleware"
	"registrationportal/internal/notify"
	"registrationportal/internal/service"
	"registrationportal/internal/storage"
	"registrationportal/internal/validation"
	"registrationportal/internal/view"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type lookupCache interface {
	service.Cache
	middleware.Reserver
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.New()
	if err != nil {
		panic(fmt.Sprintf("cannot load config: %v", err))
	}

	activity, err := logging.NewActivityCore(cfg.ActivityLog, zapcore.InfoLevel)
	if err != nil {
		panic(err)
	}
	defer activity.Close()

	zapLogger, err := logging.Build(cfg.LogLevel, cfg.LogFormat, activity)
	if err != nil {
		panic(err)
	}
	logger := logging.New(zapLogger)
	defer func() { _ = logger.Sync() }()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	engine, err := view.NewEngine()
	if err != nil {
		logger.Fatal(ctx, "cannot load templates", zap.Error(err))
	}

	store, err := storage.NewLedgerStore(cfg.Storage.DataDir)
	if err != nil {
		logger.Fatal(ctx, "cannot open submission store", zap.Error(err))
	}

	var lookups lookupCache = cache.NewMemoryCache()
	if cfg.Redis.URL != "" {
		redisConn, err := cache.Connect(ctx, cfg.Redis.URL)
		if err != nil {
			logger.Fatal(ctx, "cannot connect to redis", zap.Error(err))
		}
		defer redisConn.Close()
		lookups = cache.NewRedisCache(redisConn)
	}

	var dispatcher notify.Dispatcher
	if len(cfg.Kafka.Brokers) > 0 {
		producer := notify.NewProducer(notify.KafkaConfig{Brokers: cfg.Kafka.Brokers, Topic: cfg.Kafka.Topic})
		dispatcher = notify.NewKafkaPublisher(producer, cfg.Kafka.Topic)
		logger.Info(ctx, "notifications relayed through kafka", zap.Strings("brokers", cfg.Kafka.Brokers))
	} else {
		mailer := notify.NewMailer(notify.SMTPConfig{
			Host:     cfg.Mail.SMTPHost,
			Port:     cfg.Mail.SMTPPort,
			Username: cfg.Mail.SMTPUsername,
			Password: cfg.Mail.SMTPPassword,
		}, logger)
		notifier := notify.NewNotifier(engine, mailer, notify.Settings{
			AdminEmail: cfg.Mail.AdminEmail,
			FromEmail:  cfg.Mail.FromEmail,
			FromName:   cfg.Mail.FromName,
			ReplyTo:    cfg.Mail.ReplyAddress(),
			Retries:    cfg.Mail.Retries,
			RetryDelay: cfg.Mail.RetryDelay,
		}, m, logger)
		dispatcher = notify.NewQueue(notifier, cfg.Mail.Workers, cfg.Mail.QueueSize, m, logger)
	}

	svc := service.NewRegistrationService(service.Deps{
		Validator: validation.New(validation.Config{
			MinAge:              cfg.Limits.MinAge,
			MaxNameLength:       cfg.Limits.MaxNameLength,
			MinMotivationLength: cfg.Limits.MinMotivationLength,
			MaxMotivationLength: cfg.Limits.MaxMotivationLength,
		}, nil),
		Intake: intake.New(intake.Config{
			UploadDir:         cfg.Storage.UploadDir,
			MaxFileSize:       cfg.Limits.MaxFileSize,
			AllowedExtensions: cfg.Limits.AllowedExtensions,
		}, nil),
		Store:      store,
		Dispatcher: dispatcher,
		Cache:      lookups,
		CacheTTL:   cfg.Redis.CacheTTL,
		Metrics:    m,
	})

	h := handler.NewRegistrationHandler(svc, engine, cfg.StaticDir, cfg.Limits.MaxRequestSize, logger)
	r := handler.NewRouter(h, handler.RouterConfig{
		Logger:          logger,
		Metrics:         m,
		Gatherer:        registry,
		Limiter:         lookups,
		RateLimitWindow: cfg.Limits.RateLimitWindow,
	})

	port := fmt.Sprintf(":%d", cfg.HTTPPort)
	logger.Info(ctx, "Starting server", zap.String("port", port))

	srv := &http.Server{
		Addr:              port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal(ctx, "cannot start http server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info(ctx, "Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "server forced to shutdown", zap.Error(err))
	}
	if err := dispatcher.Close(shutdownCtx); err != nil {
		logger.Error(ctx, "notifications not drained", zap.Error(err))
	}
	logger.Info(ctx, "Server stopped")
}
