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

	"darwinawards/internal/config"
	"darwinawards/internal/display"
	"darwinawards/internal/microservices/http-api/handler"
	"darwinawards/internal/microservices/http-api/service"
	"darwinawards/internal/microservices/websocket"
	"darwinawards/internal/peer"
	"darwinawards/internal/settings"
	"darwinawards/internal/synced"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	logger := config.NewLogger(cfg).With("peer_id", cfg.PeerID)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("peer_failed", "error", err.Error())
		os.Exit(1)
	}
	logger.Info("peer_stopped_gracefully")
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	opts := peer.Options{
		PeerID:      cfg.PeerID,
		Player:      cfg.PlayerName,
		SessionAddr: cfg.SessionAddr,
		// local defaults until the session pushes its settings
		Initial: settings.Settings{
			Locked:         false,
			NumberOfDeaths: cfg.NumberOfDeaths,
			TimerForDeaths: cfg.TimerForDeaths,
		},
		Logger: logger,
	}
	if cfg.RedisURL != "" {
		rdb, err := synced.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		opts.Redis = synced.NewRedisStore(rdb, logger)
		defer opts.Redis.Close()
	}
	p := peer.New(opts)

	hub := websocket.NewHub(logger)
	authService := service.NewAuthService(cfg)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	handler.RegisterPeerRoutes(r,
		handler.NewDeathHandler(p.Node, p.Loop, p.Queue),
		handler.NewSettingsHandler(p.Settings),
		authService,
	)
	r.GET("/ws/feed", websocket.FeedHandler(hub))

	httpServer := &http.Server{
		Addr:              fmt.Sprintf("127.0.0.1:%d", cfg.PeerHTTPPort),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("starting_peer",
		"player", cfg.PlayerName,
		"session_addr", cfg.SessionAddr,
		"http_addr", httpServer.Addr,
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(ctx)
		return nil
	})
	g.Go(func() error {
		return p.Run(ctx, func(entries []display.Entry) {
			hub.BroadcastEntries(entries)
		})
	})
	g.Go(func() error {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
