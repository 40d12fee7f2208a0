package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/cobra"

	"github.com/araujobsd/ndmpd/internal/archive"
	"github.com/araujobsd/ndmpd/internal/archive/dump"
	"github.com/araujobsd/ndmpd/internal/archive/tar"
	"github.com/araujobsd/ndmpd/internal/catalog"
	catalogbadger "github.com/araujobsd/ndmpd/internal/catalog/badger"
	catalogpg "github.com/araujobsd/ndmpd/internal/catalog/postgres"
	"github.com/araujobsd/ndmpd/internal/connect"
	"github.com/araujobsd/ndmpd/internal/data"
	"github.com/araujobsd/ndmpd/internal/dispatch"
	"github.com/araujobsd/ndmpd/internal/logger"
	"github.com/araujobsd/ndmpd/internal/metricsndmp"
	"github.com/araujobsd/ndmpd/internal/mover"
	"github.com/araujobsd/ndmpd/internal/server"
	"github.com/araujobsd/ndmpd/internal/tape"
	"github.com/araujobsd/ndmpd/internal/tape/s3tape"
	"github.com/araujobsd/ndmpd/internal/telemetry"
	"github.com/araujobsd/ndmpd/pkg/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the NDMP server",
	Long: `Run the NDMP control-connection listener in the foreground until
interrupted.

Examples:
  # Serve with default config location
  ndmpd serve

  # Serve with a custom config file
  ndmpd serve --config /etc/ndmpd/config.yaml`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	log := logger.With("component", "ndmpd")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetryShutdown, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "ndmpd",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		if err := telemetryShutdown(ctx); err != nil {
			log.Error("telemetry shutdown error", "error", err)
		}
	}()

	profilingShutdown, err := telemetry.InitProfiling(telemetry.ProfilingConfig{
		Enabled:        cfg.Telemetry.Profiling.Enabled,
		ServiceName:    "ndmpd",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Profiling.Endpoint,
		ProfileTypes:   cfg.Telemetry.Profiling.ProfileTypes,
	})
	if err != nil {
		return fmt.Errorf("init profiling: %w", err)
	}
	defer func() {
		if err := profilingShutdown(); err != nil {
			log.Error("profiling shutdown error", "error", err)
		}
	}()

	if cfg.Metrics.Enabled {
		metricsndmp.InitRegistry()
		metricsAddr := fmt.Sprintf(":%d", cfg.Metrics.Port)
		go func() {
			if err := metricsndmp.Serve(ctx, metricsAddr); err != nil {
				log.Error("metrics server error", "error", err)
			}
		}()
		log.Info("metrics enabled", "addr", metricsAddr)
	}

	opener, err := buildTapeOpener(cfg)
	if err != nil {
		return fmt.Errorf("build tape opener: %w", err)
	}

	cat, err := openCatalog(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	if cat != nil {
		defer func() { _ = cat.Close() }()
	}

	engine := archive.NewFactory(map[string]func() archive.Engine{
		"tar":  tar.New,
		"dump": dump.New,
	})

	hostID, err := os.Hostname()
	if err != nil {
		hostID = "ndmpd"
	}

	deps := &dispatch.Deps{
		Connect: connect.New(hostID),
		Data:    data.New(engine, opener, cat, log),
		Mover:   mover.New(opener, log),
	}

	srv := server.New(server.Config{
		Addr:            cfg.Server.Addr,
		MaxConnections:  cfg.Server.MaxConnections,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, deps, log)

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- srv.Serve(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	log.Info("ndmpd running, press Ctrl+C to stop")

	select {
	case <-sigChan:
		signal.Stop(sigChan)
		log.Info("shutdown signal received, initiating graceful shutdown")
		cancel()
		if err := <-serverDone; err != nil {
			log.Error("server shutdown error", "error", err)
			return err
		}
		log.Info("server stopped gracefully")
	case err := <-serverDone:
		signal.Stop(sigChan)
		if err != nil {
			log.Error("server error", "error", err)
			return err
		}
		log.Info("server stopped")
	}

	return nil
}

// buildTapeOpener resolves cfg.Tape.Backend to a mover.TapeOpener, shared
// by both DATA (the local-tape shortcut) and MOVER (mover_listen/
// mover_connect).
func buildTapeOpener(cfg *config.Config) (mover.TapeOpener, error) {
	switch cfg.Tape.Backend {
	case "local":
		path := cfg.Tape.Local.Path
		return func(name string) (tape.Device, error) {
			p := path
			if strings.Contains(p, "%s") {
				p = fmt.Sprintf(p, name)
			}
			return tape.OpenLocalFile(p)
		}, nil
	case "s3":
		ctx := context.Background()
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Tape.S3.Region))
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		client := s3.NewFromConfig(awsCfg)
		bucket, prefix := cfg.Tape.S3.Bucket, cfg.Tape.S3.Prefix
		return func(name string) (tape.Device, error) {
			key := name
			if prefix != "" {
				key = prefix + "/" + name
			}
			return s3tape.Open(ctx, client, bucket, key), nil
		}, nil
	default:
		return nil, fmt.Errorf("unknown tape backend %q", cfg.Tape.Backend)
	}
}

// openCatalog resolves cfg.Catalog.Backend to a catalog.Store used by
// start_recover's name-list validation.
func openCatalog(ctx context.Context, cfg *config.Config, log *slog.Logger) (catalog.Store, error) {
	switch cfg.Catalog.Backend {
	case "badger":
		return catalogbadger.Open(cfg.Catalog.BadgerDir)
	case "postgres":
		return catalogpg.Open(ctx, &cfg.Catalog.Postgres, log)
	default:
		return nil, fmt.Errorf("unknown catalog backend %q", cfg.Catalog.Backend)
	}
}
