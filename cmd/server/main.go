package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chat-relay/auth"
	"chat-relay/commands"
	"chat-relay/contract"
	"chat-relay/internal"
	"chat-relay/moderation"
	"chat-relay/observability"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"chat-relay/runtime/workers"
	"chat-relay/sanitize"
	"chat-relay/search"
	"chat-relay/server"
	"chat-relay/services"
	"chat-relay/session"
	"chat-relay/sink"

	"github.com/Netflix/go-env"
	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	// The main function acts as a thin wrapper.
	// Its only responsibility is to call run() and handle the OS exit code.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Server terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run initializes all components, manages the server lifecycle, and
// centralizes error reporting. Returning instead of calling os.Exit keeps the
// deferred store closes running on every exit path.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()

	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	charReplacement, err := config.CharacterRune()
	if err != nil {
		return exitConfig, err
	}

	logger := logs.GetLoggerFromString(config.LogLevel)
	ctx := context.Background()

	// 2. Stores (BadgerDB + Bluge)
	db, err := badger.Open(buildBadgerOpts(config, logger, ctx))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		// Release the database lock and flush buffers before returning.
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	blugeWriter, err := bluge.OpenWriter(bluge.DefaultConfig(config.BlugeFilepath))
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to open bluge writer: %w", err)
	}
	defer func() {
		logger.Info("Closing Bluge...")
		_ = blugeWriter.Close()
	}()

	// 3. Components
	moderator, err := moderation.NewModerator(config.CensoredWordList(), charReplacement)
	if err != nil {
		return exitConfig, fmt.Errorf("moderation dictionary rejected: %w", err)
	}

	tokens := auth.NewTokenManager(config.TokenSecret, config.AuthTokenDuration)
	userRepository := repositories.NewUserRepository(db)
	messageRepository := repositories.NewMessageRepository(db, logger)
	gate := auth.NewGate(tokens, userRepository, logger)
	sessions := session.NewStore()
	sanitizer := sanitize.NewSanitizer()
	index := search.NewMessageIndex(blugeWriter, logger, config.SearchResultLimit)
	monitor := observability.NewMonitor(logger)

	router := commands.NewRouter(logger)
	commands.RegisterBuiltins(router, commands.Builtins{
		Sessions: sessions,
		World:    commands.NewWorld(),
		Index:    index,
		Monitor:  monitor,
	})

	hub := runtime.NewHub(logger, config.ConnectionBufferSize)
	pipeline := runtime.NewPipeline(logger, runtime.PipelineDeps{
		Gate:        gate,
		Sanitizer:   sanitizer,
		Moderator:   moderator,
		Router:      router,
		Messages:    messageRepository,
		Sessions:    sessions,
		Policy:      runtime.NewBroadcastPolicy(config.BroadcastCommandList()),
		Broadcaster: hub,
		Sinks:       []contract.MessageSink{sink.NewSearchSink(index, logger)},
		Monitor:     monitor,
	})

	// 4. Context & Signals
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 5. Supervised workers (hub loop + periodic stats reporter)
	sup := workers.NewSupervisor(logger).
		Add(hub, workers.NewReporterWorker(logger, monitor, config.MetricInterval))
	supDone := make(chan struct{})
	go func() {
		sup.Run(ctx)
		close(supDone)
	}()

	// 6. HTTP server
	srv := server.New(logger, server.Deps{
		Hub:       hub,
		Pipeline:  pipeline,
		Auth:      services.NewAuthService(userRepository, tokens),
		Messages:  messageRepository,
		Sanitizer: sanitizer,
		Monitor:   monitor,
		Limits: runtime.ConnLimits{
			MaxMessageSize: config.MaxMessageSize,
			PongTimeout:    config.PongTimeout,
			WriteTimeout:   config.WriteTimeout,
			SendBufferSize: config.ConnectionBufferSize,
		},
		ReplayLimit: config.LimitMessages,
	})

	httpServer := &http.Server{
		Addr:              config.Addr(),
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", "address", config.Addr(), "at", time.Now().UTC())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 7. Wait for Stop or Error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errChan:
		return exitRuntime, err
	}

	// 8. Final Cleanup (Graceful Shutdown)
	logger.Info("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown incomplete", "error", err)
	}
	sup.Stop()
	<-supDone
	logger.Info("Program stopped cleanly")

	return exitOK, nil
}

func buildBadgerOpts(config internal.Config, logger *slog.Logger, ctx context.Context) badger.Options {
	options := badger.DefaultOptions(config.BadgerFilepath)

	if logger.Enabled(ctx, slog.LevelDebug) {
		options = options.WithLoggingLevel(badger.DEBUG).
			WithBypassLockGuard(true)
	} else {
		options = options.WithLoggingLevel(badger.INFO)
	}

	return options
}
