package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/emcare/emcare/internal/config"
	"github.com/emcare/emcare/internal/platform/auth"
	"github.com/emcare/emcare/internal/platform/dashboard"
	"github.com/emcare/emcare/internal/platform/live"
	"github.com/emcare/emcare/internal/platform/middleware"
	"github.com/emcare/emcare/internal/platform/session"
)

const (
	version      = "0.1.0"
	maxBodyBytes = 1 << 20
)

func main() {
	var envFile string
	rootCmd := &cobra.Command{
		Use:          "emcare",
		Short:        "Emergency care triage and resource planning service",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if envFile == "" {
				return nil
			}
			if err := godotenv.Load(envFile); err != nil {
				return fmt.Errorf("load env file %s: %w", envFile, err)
			}
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "load environment variables from this file before reading config")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(generateCmd())
	rootCmd.AddCommand(trainCmd())
	rootCmd.AddCommand(recommendCmd())
	rootCmd.AddCommand(simulateCmd())
	rootCmd.AddCommand(tokenCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the dashboard API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

// loadConfig reads and validates configuration.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// newLogger writes JSON to stdout, human-readable lines in development, and
// additionally to a rotated file when LOG_FILE is set. The returned closer
// releases the file.
func newLogger(cfg *config.Config, stdout io.Writer) (zerolog.Logger, io.Closer) {
	var out io.Writer = stdout
	if cfg.IsDev() {
		out = zerolog.ConsoleWriter{Out: stdout, TimeFormat: time.RFC3339}
	}

	var closer io.Closer = io.NopCloser(nil)
	if cfg.LogFile != "" {
		file := &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    cfg.LogMaxSizeMB,
			MaxBackups: cfg.LogMaxBackups,
			MaxAge:     cfg.LogMaxAgeDays,
			Compress:   true,
		}
		out = io.MultiWriter(out, file)
		closer = file
	}

	level := zerolog.InfoLevel
	if cfg.IsDev() {
		level = zerolog.DebugLevel
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger(), closer
}

func newStore(cfg *config.Config, logger zerolog.Logger, pub session.Publisher) (*session.Store, error) {
	return session.New(session.Options{
		Patients:  cfg.PatientCount,
		Seed:      cfg.ResolvedSeed(),
		Trees:     cfg.ForestTrees,
		SimWindow: cfg.SimWindow,
		SimBatch:  cfg.SimBatch,
		Logger:    logger,
		Publisher: pub,
	})
}

func runServer() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, closer := newLogger(cfg, os.Stdout)
	defer closer.Close()

	if !cfg.AuthEnabled() {
		logger.Warn().Msg("AUTH_SECRET is not set; write routes accept every caller as admin")
	}

	hub := live.NewHub(logger)
	store, err := newStore(cfg, logger, hub)
	if err != nil {
		logger.Error().Err(err).Msg("failed to generate initial cohort")
		return err
	}
	if cfg.TrainOnStart {
		if _, err := store.Train(context.Background()); err != nil {
			logger.Warn().Err(err).Msg("initial training failed; predictions unavailable until retrained")
		}
	}

	e := newServer(cfg, store, hub, logger)

	addr := ":" + cfg.Port
	go func() {
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	return nil
}

func newServer(cfg *config.Config, store *session.Store, hub *live.Hub, logger zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.BodyLimit(maxBodyBytes))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAuthorization, middleware.RequestIDHeader},
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})

	api := e.Group("/api/v1")
	write := api.Group("")
	if cfg.AuthEnabled() {
		write.Use(auth.JWTMiddleware(auth.JWTConfig{SigningKey: []byte(cfg.AuthSecret)}))
	} else {
		write.Use(auth.DevAuthMiddleware())
	}
	write.Use(auth.RequireRole(auth.RoleAnalyst))

	h := dashboard.NewHandler(store, dashboard.WithComputeMiddleware(
		middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimitRPS,
			BurstSize:         cfg.RateLimitBurst,
		}),
	))
	h.RegisterRoutes(api, write)
	live.NewHandler(hub, cfg.CORSOrigins).RegisterRoutes(api)

	return e
}
