package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mooney/market-feed/internal/approval"
	"github.com/mooney/market-feed/internal/config"
	"github.com/mooney/market-feed/internal/database"
	"github.com/mooney/market-feed/internal/engine"
	"github.com/mooney/market-feed/internal/feed"
	"github.com/mooney/market-feed/internal/hub"
	"github.com/mooney/market-feed/internal/model"
	"github.com/mooney/market-feed/internal/repository"
	"github.com/mooney/market-feed/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/feedd.local.yaml", "path to config file")
	flag.Parse()

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	logger.Info("starting feedd",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"instance_id", cfg.Instance.ID,
		"websocket_url", cfg.KIS.WebsocketURL,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Connect to database
	logger.Info("connecting to database",
		"host", cfg.Database.Host,
		"port", cfg.Database.Port,
		"database", cfg.Database.Name,
	)

	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	logger.Info("database connected")

	store := repository.NewPostgres(pool, logger)

	// Approval-key manager
	keys := approval.New(
		approval.Config{
			ApprovalURL:  cfg.KIS.ApprovalURL,
			AppKey:       cfg.KIS.AppKey,
			SecretKey:    cfg.KIS.SecretKey,
			KeyValidity:  cfg.KIS.KeyValidity,
			SafetyMargin: cfg.KIS.SafetyMargin,
			RefreshEvery: cfg.KIS.RefreshEvery,
		},
		approval.WithLogger(logger),
		approval.WithHTTPClient(&http.Client{Timeout: cfg.KIS.Timeout}),
	)
	if err := keys.Start(ctx); err != nil {
		logger.Error("failed to start approval service", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		keys.Stop(shutdownCtx)
	}()

	// Matching engine and downstream broadcast hub
	eng := engine.New(store, logger)
	broadcaster := hub.New(cfg.Broadcast.WriteTimeout, logger)
	defer broadcaster.Close()

	// Every tick is matched, then broadcast downstream regardless of fills.
	handler := feed.TickHandlerFunc(func(ctx context.Context, tick model.Tick) {
		eng.HandleTick(ctx, tick)
		broadcaster.Broadcast(tick.Symbol, tick.Price)
	})

	// Upstream feed session
	client := feed.NewClient(feed.ClientConfig{
		URL:              cfg.KIS.WebsocketURL,
		HandshakeTimeout: cfg.Feed.HandshakeTimeout,
		WriteTimeout:     cfg.Feed.WriteTimeout,
		BufferSize:       cfg.Feed.BufferSize,
	}, logger)

	session := feed.New(feed.Config{
		URL:              cfg.KIS.WebsocketURL,
		Channel:          cfg.Feed.Channel,
		ProbeSymbol:      cfg.Feed.ProbeSymbol,
		SyncInterval:     cfg.Feed.SyncInterval,
		HandshakeTimeout: cfg.Feed.HandshakeTimeout,
		WriteTimeout:     cfg.Feed.WriteTimeout,
		BufferSize:       cfg.Feed.BufferSize,
	}, client, keys, store, handler, logger)

	// HTTP server: downstream broadcast path + health
	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: createHTTPHandler(cfg.Broadcast.Path, broadcaster, pool, session, logger),
	}

	go func() {
		logger.Info("starting http server", "port", cfg.Server.Port, "broadcast_path", cfg.Broadcast.Path)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("http server error", "error", err)
		}
	}()

	// Connect to the upstream feed and start streaming
	if err := session.Start(ctx); err != nil {
		logger.Error("failed to start feed session", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		session.Stop(shutdownCtx)
	}()

	logger.Info("feedd running",
		"instance_id", cfg.Instance.ID,
		"health_url", fmt.Sprintf("http://localhost:%d/health", cfg.Server.Port),
	)

	// Wait for shutdown
	<-ctx.Done()

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)

	logger.Info("feedd stopped")
}

// createHTTPHandler wires the broadcast websocket path and health checks.
func createHTTPHandler(broadcastPath string, broadcaster *hub.Hub, pool *pgxpool.Pool, session *feed.Feed, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.Handle(broadcastPath, broadcaster)

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		health := struct {
			Status     string                 `json:"status"`
			Components map[string]interface{} `json:"components"`
		}{
			Status:     "healthy",
			Components: make(map[string]interface{}),
		}

		// Check database
		if err := pool.Ping(ctx); err != nil {
			health.Status = "unhealthy"
			health.Components["postgres"] = map[string]string{
				"status": "disconnected",
				"error":  err.Error(),
			}
		} else {
			health.Components["postgres"] = "connected"
		}

		// Check upstream feed
		state := session.State()
		health.Components["feed"] = map[string]interface{}{
			"state":      string(state),
			"subscribed": session.SubscribedCount(),
		}
		if state != feed.StateConnected {
			health.Status = "degraded"
		}

		// Downstream clients
		health.Components["broadcast"] = map[string]interface{}{
			"clients": broadcaster.ConnCount(),
		}

		w.Header().Set("Content-Type", "application/json")
		if health.Status == "unhealthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(health)
	})

	return mux
}
