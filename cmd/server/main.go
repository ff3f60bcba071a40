// Package main provides the server entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/alecthomas/kingpin/v2"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	apiconnect "github.com/osa030/playlog/internal/api/connect"
	"github.com/osa030/playlog/internal/api/rest"
	"github.com/osa030/playlog/internal/app/convert"
	"github.com/osa030/playlog/internal/infra/catalog"
	"github.com/osa030/playlog/internal/infra/config"
	"github.com/osa030/playlog/internal/infra/logger"
	"github.com/osa030/playlog/internal/infra/spotify"
)

var (
	app        = kingpin.New("playlog-server", "Spotify playlist to radio log sheet converter")
	configPath = app.Flag("config", "Path to config file (default: environment only)").Envar("PLAYLOG_CONFIG").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()

	// check command
	checkCmd = app.Command("check", "Verify the Spotify credentials and exit")
)

func init() {
	// start command (default) - no need to store the command
	app.Command("start", "Start the server (default)").Default()
}

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	// Parse command
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	loggerConfig := logger.Config{
		Output:     "stdout",
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
	}
	if cfg.Log.File != "" {
		loggerConfig.Output = "file"
		loggerConfig.File = cfg.Log.File
	}
	// Override with command-line flags if specified
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = "file"
		loggerConfig.File = *logfile
	}
	if err := logger.Init(loggerConfig); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	if *configPath != "" {
		zlog.Info().Msgf("Loaded config from %s", *configPath)
	}

	// Create Spotify catalog
	spotifyCatalog, err := spotify.New(spotify.Config{
		ClientID:          cfg.Spotify.ClientID,
		ClientSecret:      cfg.Spotify.ClientSecret,
		Market:            cfg.Spotify.Market,
		APIBaseURL:        cfg.Spotify.APIBaseURL,
		TokenURL:          cfg.Spotify.TokenURL,
		PageSize:          cfg.Catalog.PageSize,
		RequestTimeout:    cfg.Catalog.RequestTimeout,
		RequestsPerSecond: cfg.Catalog.RequestsPerSecond,
		Burst:             cfg.Catalog.Burst,
	})
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to create Spotify client")
	}

	if command == checkCmd.FullCommand() {
		if err := checkCredentials(context.Background(), spotifyCatalog); err != nil {
			zlog.Error().Err(err).Msg("Credential check failed")
			os.Exit(1)
		}
		return
	}

	// Run server (defer ensures shutdown hook is called)
	if err := run(cfg, spotifyCatalog); err != nil {
		zlog.Error().Msgf("Server error: %v", err)
		os.Exit(1)
	}
}

// run executes the main server logic. Using a separate function ensures
// defer statements are executed even when returning with an error.
func run(cfg *config.Config, spotifyCatalog *spotify.Catalog) error {
	// Create conversion service
	catalogClient := catalog.New(spotifyCatalog, catalog.Config{
		MaxRetries:        cfg.Catalog.MaxRetries,
		DefaultRetryAfter: cfg.Catalog.DefaultRetryAfter,
		MaxRetryAfter:     cfg.Catalog.MaxRetryAfter,
	})
	converter := convert.NewService(catalogClient)

	// Create HTTP router
	router := mux.NewRouter()

	// Register Connect service
	converterPath, converterHandler := apiconnect.NewConverterServiceHandler(
		apiconnect.NewConverterService(converter),
		connect.WithInterceptors(apiconnect.NewLoggingInterceptor()),
	)
	router.PathPrefix(converterPath).Handler(converterHandler)

	// Register REST endpoints
	rest.NewHandler(converter, cfg.Server.AllowedOrigins).Register(router)

	// Create server with h2c (HTTP/2 cleartext) support
	serverAddr := cfg.Server.Addr
	server := &http.Server{
		Addr:              serverAddr,
		Handler:           h2c.NewHandler(withTimeout(router, cfg.Server.InvocationTimeout), &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Channel to capture server startup errors
	serverErrCh := make(chan error, 1)
	serverStartedCh := make(chan struct{})

	// Start server
	go func() {
		zlog.Info().
			Str("addr", serverAddr).
			Dur("invocation_timeout", cfg.Server.InvocationTimeout).
			Dur("retry_budget", cfg.RetryBudget()).
			Msg("Starting server")
		// Signal that we're about to start listening
		close(serverStartedCh)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- err
		}
	}()

	// Wait for server to start listening
	<-serverStartedCh
	// Give the server a moment to fully initialize
	time.Sleep(100 * time.Millisecond)

	// Execute startup hook if configured (after server is running)
	executeHooks(cfg.Server.Hooks.OnStarted, "on_started")

	// Wait for shutdown signal or server error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		zlog.Info().Msg("Received shutdown signal...")
	case err := <-serverErrCh:
		return fmt.Errorf("server error: %w", err)
	}

	// Graceful shutdown, letting in-flight conversions finish
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.InvocationTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Msgf("Failed to shutdown server: %v", err)
	}

	zlog.Info().Msg("Server stopped")

	// Execute shutdown hook if configured
	executeHooks(cfg.Server.Hooks.OnStopped, "on_stopped")

	return nil
}

// withTimeout bounds every request by the invocation timeout.
func withTimeout(next http.Handler, timeout time.Duration) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// checkCredentials verifies that the catalog accepts the configured
// credentials. It includes retry logic to handle transient errors during
// startup; rejected credentials fail immediately.
func checkCredentials(ctx context.Context, c *spotify.Catalog) error {
	maxRetries := 5
	baseDelay := 1 * time.Second

	var lastErr error
	for i := 0; i < maxRetries; i++ {
		if i > 0 {
			delay := baseDelay * time.Duration(1<<uint(i-1))
			zlog.Info().Msgf("Retrying credential check in %v...", delay)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		err := c.RefreshToken(ctx)
		if err == nil {
			zlog.Info().Msg("Spotify credentials validated successfully")
			return nil
		}
		lastErr = err
		if kind := catalog.KindOf(err); !kind.Retryable() {
			return fmt.Errorf("credentials rejected: %w", err)
		}
		zlog.Warn().Msgf("Failed to validate credentials (attempt %d/%d): %v", i+1, maxRetries, err)
	}
	return fmt.Errorf("failed after %d attempts: %w", maxRetries, lastErr)
}

// executeHooks runs a list of shell commands.
func executeHooks(hooks []string, stage string) {
	if len(hooks) == 0 {
		return
	}

	zlog.Info().Msgf("Executing %s hooks (%d commands)", stage, len(hooks))

	for _, hook := range hooks {
		zlog.Info().Msgf("Executing hook: %s", hook)
		// Use sh -c to allow shell features like redirection or pipes
		cmd := exec.Command("sh", "-c", hook)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr

		if err := cmd.Run(); err != nil {
			zlog.Error().Err(err).Msgf("Failed to execute hook: %s", hook)
		}
	}
}
