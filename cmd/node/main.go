package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ryandielhenn/glomers/discovery"
	"github.com/ryandielhenn/glomers/internal/config"
	"github.com/ryandielhenn/glomers/internal/logging"
	"github.com/ryandielhenn/glomers/internal/telemetry"
	"github.com/ryandielhenn/glomers/pkg/node"
	"github.com/ryandielhenn/glomers/pkg/server"
)

// Set with -ldflags "-X main.version=... -X main.gitSHA=...".
var (
	version = "dev"
	gitSHA  = "unknown"
)

func main() {
	os.Exit(execute(os.Args[1:], os.Stderr))
}

// execute runs the root command and returns the process exit code. Errors
// are printed to stderr since they may occur before the logger exists.
func execute(args []string, stderr io.Writer) int {
	cmd := newRootCmd()
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(stderr, "glomers-node:", err)
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	var configPath string

	cmd := &cobra.Command{
		Use:           "glomers-node",
		Short:         "Cluster node speaking line-delimited JSON on stdin/stdout",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(v, configPath)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&configPath, "config", "", "Path to a YAML configuration file")
	flags.String("log-level", "info", "debug, info, warn, error")
	flags.String("log-format", "console", "json or console")
	flags.String("metrics-addr", "", "Serve prometheus metrics on this address (disabled when empty)")
	flags.StringSlice("etcd-endpoints", nil, "Announce initialized nodes to these etcd endpoints")

	for key, flag := range map[string]string{
		"log.level":           "log-level",
		"log.format":          "log-format",
		"metrics.addr":        "metrics-addr",
		"discovery.endpoints": "etcd-endpoints",
	} {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			panic(err)
		}
	}
	return cmd
}

func run(ctx context.Context, cfg *config.Config) error {
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	defer logger.Sync()

	telemetry.SetBuildInfo(version, gitSHA)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Metrics.Addr != "" {
		srv := serveMetrics(cfg.Metrics, logger)
		defer srv.Close()
	}

	opts := []server.Option{server.WithLogger(logger)}
	if cfg.Discovery.Enabled() {
		cli, err := discovery.NewClient(cfg.Discovery.Endpoints, cfg.Discovery.Timeout)
		if err != nil {
			logger.Error("etcd client", zap.Error(err))
			return err
		}
		defer cli.Close()

		ann := discovery.NewEtcdAnnouncer(cli, cfg.Discovery.Prefix, cfg.Discovery.TTL, cfg.Discovery.Timeout, logger)
		defer func() {
			if err := ann.Close(); err != nil {
				logger.Warn("revoke announcements", zap.Error(err))
			}
		}()
		opts = append(opts, server.WithAnnouncer(ann))
	}

	srv := server.New(node.NewRegistry(node.WithLogger(logger)), opts...)
	logger.Debug("serving stdin", zap.String("version", version))
	if err := srv.Serve(ctx, os.Stdin, os.Stdout); err != nil {
		logger.Error("node stopped", zap.Error(err), zap.Bool("bad_input", server.IsFatalInput(err)))
		return err
	}
	return nil
}

func serveMetrics(cfg config.MetricsConfig, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, telemetry.MetricsHandler())
	srv := &http.Server{Addr: cfg.Addr, Handler: mux}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics listener", zap.String("addr", cfg.Addr), zap.Error(err))
		}
	}()
	logger.Info("metrics listening", zap.String("addr", cfg.Addr), zap.String("path", cfg.Path))
	return srv
}
