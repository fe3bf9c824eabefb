package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"darwinawards/database"
	"darwinawards/internal/config"
	"darwinawards/internal/corpus"
	"darwinawards/internal/microservices/http-api/handler"
	"darwinawards/internal/microservices/http-api/repository"
	"darwinawards/internal/microservices/http-api/service"
	udp "darwinawards/internal/microservices/udp-server"
	"darwinawards/internal/peer"
	"darwinawards/internal/settings"
	"darwinawards/internal/synced"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	logger := config.NewLogger(cfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("session_server_failed", "error", err.Error())
		os.Exit(1)
	}
	logger.Info("server_stopped_gracefully")
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	source := synced.NewSource()

	// Revision history is optional
	var db *gorm.DB
	if cfg.DatabaseURL != "" {
		var err error
		db, err = database.OpenGorm(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return err
		}
		defer database.Close(db)
	}
	revisions := repository.NewCorpusRevisionRepository(db)
	if err := service.SeedVersions(ctx, revisions, source); err != nil {
		logger.Warn("version_seed_failed", "error", err.Error())
	}

	udpAddr := fmt.Sprintf(":%d", cfg.UDPPort)
	server, err := udp.NewServer(udpAddr, source, cfg.SubscriberTimeout, logger)
	if err != nil {
		return err
	}

	publishers := []synced.Publisher{server}
	var redisStore *synced.RedisStore
	if cfg.RedisURL != "" {
		rdb, err := synced.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		redisStore = synced.NewRedisStore(rdb, logger)
		defer redisStore.Close()
		publishers = append(publishers, redisStore)
	}

	initial := settings.Settings{
		Locked:         cfg.LockConfiguration,
		NumberOfDeaths: cfg.NumberOfDeaths,
		TimerForDeaths: cfg.TimerForDeaths,
	}
	settingsSvc, err := service.NewSettingsService(initial, source, logger)
	if err != nil {
		return err
	}
	for _, p := range publishers {
		settingsSvc.AddPublisher(p)
	}
	// relay subscribers get the initial value on SUBSCRIBE, redis readers need it stored
	if v, ok := source.Get(synced.SettingsKey); ok && redisStore != nil {
		if err := redisStore.PublishValue(ctx, v); err != nil {
			logger.Warn("settings_publish_failed", "version", v.Version, "error", err.Error())
		}
	}

	store := corpus.NewStore(logger)
	distributor := corpus.NewDistributor(store, synced.NewRegistry(), logger).WithSource(source)
	distributor.AddPublisher(service.NewRevisionRecorder(revisions, logger))
	for _, p := range publishers {
		distributor.AddPublisher(p)
	}

	corpusSvc := service.NewCorpusService(cfg.CorpusPath, store, distributor, revisions, logger)
	if _, err := corpusSvc.Reload(ctx); err != nil {
		return err
	}

	// file events are applied on the server's loop, one at a time
	loop := peer.NewLoop(16)
	watcher := corpus.NewWatcher(cfg.CorpusPath, cfg.CorpusDebounce, func(raw []byte) {
		loop.Do(func() {
			distributor.Publish(ctx, raw)
		})
	}, logger)

	if err := cfg.ValidateSessionServer(); err != nil {
		logger.Warn("admin_api_disabled", "reason", err.Error())
	}
	authService := service.NewAuthService(cfg)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	handler.RegisterAdminRoutes(r, handler.NewAdminHandler(authService, settingsSvc, corpusSvc, server), authService)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("starting_session_server",
		"udp_addr", udpAddr,
		"http_addr", httpServer.Addr,
		"corpus_path", cfg.CorpusPath,
		"locked", initial.Locked,
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		loop.Run(ctx)
		return nil
	})
	g.Go(func() error {
		return server.Start(ctx)
	})
	g.Go(func() error {
		if err := watcher.Run(ctx); err != nil {
			// reloads stay available through the admin API
			logger.Warn("corpus_watch_disabled", "error", err.Error())
		}
		return nil
	})
	g.Go(func() error {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("received_shutdown_signal")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
