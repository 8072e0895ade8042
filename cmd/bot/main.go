package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"coffee_bot/internal/cache"
	"coffee_bot/internal/config"
	"coffee_bot/internal/domain"
	"coffee_bot/internal/feature/command"
	"coffee_bot/internal/feature/donation"
	"coffee_bot/internal/feature/promo"
	"coffee_bot/internal/feature/user"
	"coffee_bot/internal/health"
	"coffee_bot/internal/logging"
	"coffee_bot/internal/metrics"
	"coffee_bot/internal/store"
	"coffee_bot/internal/telegram"
)

const (
	mongoConnectTimeout     = 10 * time.Second
	mongoIndexTimeout       = 5 * time.Second
	mongoDisconnectTimeout  = 5 * time.Second
	redisConnectTimeout     = 5 * time.Second
	telegramShutdownTimeout = 10 * time.Second
	httpShutdownTimeout     = 5 * time.Second
)

var processStart = time.Now()

func main() {
	configOnly := flag.Bool("config-only", false, "load and print configuration then exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logging.Error("configuration error", logging.Fields{"error": err})
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.Setup(cfg)
	if err != nil {
		logging.Error("logger setup error", logging.Fields{"error": err})
		fmt.Fprintf(os.Stderr, "logger setup error: %v\n", err)
		os.Exit(1)
	}

	if *configOnly {
		logging.Info("configuration check", logging.Fields{"event": "config_only"})
		fmt.Println("configuration check: ok")
		fmt.Println(config.FormatRedacted(cfg))
		return
	}

	logger.WithFields(logging.Fields{
		"event":       "startup",
		"mongo_db":    cfg.MongoDB,
		"image_store": cfg.ImageStore,
	}).Info("configuration loaded")

	if !cfg.AdminEnabled() {
		logger.WithField("event", "admin_disabled").Warn("ADMIN_USER_ID is not set; admin commands are disabled")
	}

	metrics.MustRegister()

	connectCtx, cancel := context.WithTimeout(context.Background(), mongoConnectTimeout)
	mongoManager, err := store.NewManager(connectCtx, cfg)
	cancel()
	if err != nil {
		logger.WithError(err).Error("mongo connection error")
		fmt.Fprintf(os.Stderr, "mongo connection error: %v\n", err)
		os.Exit(1)
	}

	logger.WithField("event", "mongo_connect").Info("connected to mongo")

	indexCtx, cancelIndexes := context.WithTimeout(context.Background(), mongoIndexTimeout)
	if err := mongoManager.EnsureBaseIndexes(indexCtx); err != nil {
		cancelIndexes()
		logger.WithError(err).Error("mongo index setup error")
		fmt.Fprintf(os.Stderr, "mongo index setup error: %v\n", err)
		os.Exit(1)
	}
	cancelIndexes()

	logger.WithField("event", "mongo_indexes").Info("ensured base mongo indexes")

	tgClient, err := telegram.NewClient(cfg, logger)
	if err != nil {
		logger.WithError(err).Error("telegram client setup error")
		fmt.Fprintf(os.Stderr, "telegram client setup error: %v\n", err)
		os.Exit(1)
	}

	userRepository := domain.NewUserRepository(mongoManager.Users())
	imageRepository := domain.NewImageRepository(mongoManager.Images())

	var imageStore promo.Store
	switch cfg.ImageStore {
	case config.ImageStoreFile:
		imageStore = promo.NewFileStore(cfg.ImageFilePath, tgClient)
	default:
		imageStore = promo.NewReferenceStore(imageRepository)
	}

	var redisClient *cache.Client
	if cfg.RedisURL != "" {
		redisCtx, cancelRedis := context.WithTimeout(context.Background(), redisConnectTimeout)
		redisClient, err = cache.Open(redisCtx, cfg.RedisURL)
		cancelRedis()
		if err != nil {
			logger.WithField("event", "redis_unavailable").WithError(err).Warn("redis unavailable, image cache disabled")
			redisClient = nil
		} else {
			imageStore = promo.NewCachedStore(imageStore, redisClient, cfg.ImageCacheTTL, logger)
			logger.WithField("event", "redis_connect").Info("connected to redis")
		}
	}

	dispatcher, err := command.NewDispatcher(command.Dependencies{
		Sender:  tgClient,
		Tracker: user.NewTracker(userRepository, logger),
		Donation: donation.NewResponder(tgClient, imageStore, donation.Wallets{
			TRC20: cfg.WalletTRC20,
			BEP20: cfg.WalletBEP20,
		}, logger),
		Stats:       store.NewStatsProvider(mongoManager.Users()),
		Users:       userRepository,
		Images:      imageStore,
		AdminUserID: cfg.AdminUserID,
	}, logger)
	if err != nil {
		logger.WithError(err).Error("dispatcher setup error")
		fmt.Fprintf(os.Stderr, "dispatcher setup error: %v\n", err)
		os.Exit(1)
	}
	tgClient.SetHandler(dispatcher)

	logger.WithField("event", "telegram_ready").Info("telegram client initialized")

	httpServer := health.NewServer(cfg.Port, mongoManager, tgClient, processStart, logger)
	httpErr := make(chan error, 1)
	go func() {
		httpErr <- httpServer.ListenAndServe()
	}()

	signalCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	telegramCtx, cancelTelegram := context.WithCancel(context.Background())
	tgDone := make(chan struct{})

	go func() {
		tgClient.Start(telegramCtx)
		close(tgDone)
	}()

	select {
	case <-signalCtx.Done():
		logger.WithField("event", "shutdown_signal").Info("received termination signal, stopping telegram polling")
	case <-tgDone:
		logger.WithField("event", "telegram_stopped_early").Warn("telegram client stopped before shutdown signal")
	case err := <-httpErr:
		if err != nil {
			logger.WithField("event", "http_failed").WithError(err).Error("http server failed")
		}
	}

	cancelTelegram()

	waitCtx, cancelWait := context.WithTimeout(context.Background(), telegramShutdownTimeout)
	select {
	case <-tgDone:
	case <-waitCtx.Done():
		logger.WithField("event", "telegram_shutdown_timeout").Warn("timed out waiting for telegram client to stop")
	}
	cancelWait()

	httpCtx, cancelHTTP := context.WithTimeout(context.Background(), httpShutdownTimeout)
	if err := httpServer.Shutdown(httpCtx); err != nil {
		logger.WithError(err).Error("http shutdown error")
	}
	cancelHTTP()

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.WithError(err).Error("redis close error")
		}
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), mongoDisconnectTimeout)
	if err := mongoManager.Close(shutdownCtx); err != nil {
		logger.WithError(err).Error("mongo disconnect error")
	} else {
		logger.WithField("event", "mongo_disconnect").Info("mongo client disconnected")
	}
	cancelShutdown()

	logger.WithField("event", "shutdown_complete").Info("shutdown complete")
}
