package main

import (
	"chat-notify/auth"
	"chat-notify/domain/event"
	"chat-notify/internal"
	"chat-notify/runtime"
	"chat-notify/runtime/workers"
	"chat-notify/server"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"github.com/samber/lo"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and
// centralizes error reporting so every defer executes before the process
// exits.
func run() error {
	// 1. Configuration & logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Shared state & collaborators
	registry := runtime.NewRegistry(config.SessionBufferSize)
	verifier := auth.NewTokenManager(config.JWTSecret, config.TokenTTL)
	feed := make(chan event.DomainEvent, config.FeedBufferSize)

	// 3. Supervised pipeline: change feed -> dispatcher, plus self stats
	sup := workers.NewSupervisor(log, config.RestartInterval)
	sup.Add(
		workers.NewChangeFeedWorker(log, config.DatabaseURL, feedChannels(config.FeedChannels),
			feed, config.FeedMinBackoff, config.FeedMaxBackoff),
		workers.NewDispatcherWorker(log, registry, feed),
		workers.NewSelfStatsWorker(log, config.StatsInterval),
	)

	// 4. Context & signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go sup.Run(ctx)

	// 5. Optional debug inspect server
	if config.DebugPort > 0 {
		internal.StartDebugServer(log, config.DebugPort, "/inspect",
			snapshotProvider(registry), statsProvider(registry))
	}

	// 6. HTTP streaming server
	srv := server.New(log, registry, verifier, config.KeepaliveInterval)
	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	httpServer := server.NewHTTPServer(ctx, address, srv.Router())

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting notification server", "address", address, "at", time.Now().UTC())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 7. Wait for stop or error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	// 8. Final cleanup. The signal context is already canceled, which ends
	// every open streaming session, so Shutdown can drain quickly.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP shutdown incomplete", "error", err)
	}
	sup.Stop()
	log.Info("Program stopped cleanly")

	return nil
}

func feedChannels(raw string) []string {
	parts := strings.Split(raw, ",")
	channels := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			channels = append(channels, trimmed)
		}
	}
	return channels
}

func snapshotProvider(registry *runtime.Registry) internal.SnapshotProvider {
	return func() []internal.InspectRow {
		return lo.Map(registry.Snapshot(), func(info runtime.SessionInfo, _ int) internal.InspectRow {
			return internal.InspectRow{
				UserID:    int64(info.UserID),
				SessionID: info.SessionID.String(),
				Buffered:  info.Buffered,
				Capacity:  info.Capacity,
				Missed:    info.Missed,
			}
		})
	}
}

func statsProvider(registry *runtime.Registry) internal.StatsProvider {
	return func() map[string]any {
		return map[string]any{
			"Sessions": len(registry.Snapshot()),
			"Time":     time.Now().UTC().Format(time.RFC822),
		}
	}
}
