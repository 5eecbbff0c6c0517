// Package main provides the geovoiced binary: the map page plus the voice
// command endpoint it posts transcripts to.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/anshiaggrwal/voice-enabled-geospatial-map-based-web-application/internal/command"
	"github.com/anshiaggrwal/voice-enabled-geospatial-map-based-web-application/internal/config"
	"github.com/anshiaggrwal/voice-enabled-geospatial-map-based-web-application/internal/controlplane"
	"github.com/anshiaggrwal/voice-enabled-geospatial-map-based-web-application/internal/metrics"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "geovoiced"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type serveOptions struct {
	configPath string
	addr       string
	logLevel   string
	dev        bool
}

func rootCmd() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Voice-controlled map server",
		Long: `geovoiced serves the voice-controlled map page and the
/voice-command endpoint, which maps transcribed speech to map actions
(zoomIn, zoomOut, findRestaurants).`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Config file path (YAML)")
	cmd.Flags().StringVar(&opts.addr, "addr", "", "Listen address (overrides config and "+config.EnvAddr+")")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	cmd.Flags().BoolVar(&opts.dev, "dev", false, "Use the human-readable development logger")

	cmd.AddCommand(&cobra.Command{
		Use:   "classify <text>...",
		Short: "Classify a phrase and print the resulting action",
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), command.Classify(strings.Join(args, " ")))
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	})

	return cmd
}

func runServe(cmd *cobra.Command, opts serveOptions) error {
	cfg, err := resolveConfig(opts, cmd.Flags().Changed("dev"))
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ln, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.Server.Addr, err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return serve(ctx, ln, cfg, logger)
}

// resolveConfig layers defaults, the config file, env and then flags, and
// validates only the merged result.
func resolveConfig(opts serveOptions, devSet bool) (*config.Config, error) {
	cfg, err := config.Read(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if opts.addr != "" {
		cfg.Server.Addr = opts.addr
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}
	if devSet {
		cfg.Logging.Development = opts.dev
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if cfg.Development {
		zcfg = zap.NewDevelopmentConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)

	return zcfg.Build()
}

// serve runs the HTTP server on ln until ctx is cancelled, then shuts down
// gracefully within the configured timeout.
func serve(ctx context.Context, ln net.Listener, cfg *config.Config, logger *zap.Logger) error {
	timeouts, err := cfg.Server.Timeouts()
	if err != nil {
		ln.Close()
		return err
	}

	s := &controlplane.Server{
		Classifier:   command.Classifier{},
		Logger:       logger,
		ExcerptWords: cfg.Logging.ExcerptWords,
	}
	if cfg.Metrics.Enabled {
		s.Metrics = metrics.New(actionLabels()...)
		s.MetricsPath = cfg.Metrics.Path
	}

	srv := &http.Server{
		Handler:           s.Routes(),
		ReadHeaderTimeout: timeouts.ReadHeader,
		ReadTimeout:       timeouts.Read,
		WriteTimeout:      timeouts.Write,
		IdleTimeout:       timeouts.Idle,
		ErrorLog:          zap.NewStdLog(logger.Named("http")),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("geovoiced listening",
			zap.String("addr", ln.Addr().String()),
			zap.String("version", Version),
			zap.Bool("metrics", cfg.Metrics.Enabled),
		)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		logger.Info("server stopped")
		return nil
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	}
}

func actionLabels() []string {
	actions := command.Actions()
	out := make([]string, len(actions))
	for i, a := range actions {
		out[i] = a.String()
	}
	return out
}
