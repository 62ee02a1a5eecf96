package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/yongmin01/musiot-server/internal/auth"
	"github.com/yongmin01/musiot-server/internal/middleware"
	"github.com/yongmin01/musiot-server/internal/router"
	"github.com/yongmin01/musiot-server/internal/service"
	"github.com/yongmin01/musiot-server/internal/spotify"
	"github.com/yongmin01/musiot-server/internal/storage/sqlite"
	"github.com/yongmin01/musiot-server/pkg/logging"
)

const (
	sessionDuration  = 7 * 24 * time.Hour
	finalizeInterval = time.Minute
	shutdownTimeout  = 10 * time.Second
)

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func mustEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		slog.Error("missing required environment variable", "key", key)
		os.Exit(1)
	}
	return value
}

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	logging.Setup()

	addr := getEnv("LISTEN_ADDR", ":8080")
	dbPath := getEnv("DB_PATH", "./data/musiot.db")

	store, err := sqlite.New(dbPath)
	if err != nil {
		slog.Error("failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("storage initialized", "database", dbPath)

	client := spotify.NewClient(
		mustEnv("SPOTIFY_CLIENT_ID"),
		mustEnv("SPOTIFY_CLIENT_SECRET"),
		getEnv("SPOTIFY_REDIRECT_URL", "http://localhost:8080/auth/callback"),
	)
	jwtManager := auth.NewJWTManager(mustEnv("JWT_SECRET"), sessionDuration)
	sessions := service.NewSessionManager(store)

	middleware.RegisterMetrics()
	mux := router.New(store, client, jwtManager, sessions)

	server := &http.Server{
		Addr:    addr,
		Handler: middleware.CORS(mux),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Rounds whose submission window passed are finalized in the
	// background so winners appear without waiting for a request.
	go finalizeLoop(ctx, store)

	go func() {
		slog.Info("server starting", "address", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown failed", "error", err)
	}
}

func finalizeLoop(ctx context.Context, store *sqlite.SQLiteStore) {
	ticker := time.NewTicker(finalizeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.FinalizeDueRounds(ctx, time.Now())
			if err != nil {
				slog.Error("round finalization failed", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("rounds finalized", "count", n)
			}
		}
	}
}
