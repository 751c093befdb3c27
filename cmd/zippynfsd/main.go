package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/chimney-labs/zippynfs/internal/config"
	"github.com/chimney-labs/zippynfs/internal/fsengine"
	"github.com/chimney-labs/zippynfs/internal/logger"
	"github.com/chimney-labs/zippynfs/internal/metrics"
	"github.com/chimney-labs/zippynfs/internal/server"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	flags := pflag.NewFlagSet("zippynfsd", pflag.ContinueOnError)
	configPath := flags.String("config", "", "path to a config file")
	flags.String("addr", "", "address to listen on, e.g. :400113")
	flags.String("data-dir", "", "directory the storage engine keeps its data in")
	flags.String("log-level", "", "log level (DEBUG, INFO, WARN, ERROR)")
	flags.Bool("metrics-enabled", false, "expose Prometheus metrics over HTTP")
	flags.String("metrics-addr", "", "address for the metrics HTTP server")

	if err := flags.Parse(os.Args[1:]); err != nil {
		return err
	}

	v := viper.New()
	if err := v.BindPFlag("server.addr", flags.Lookup("addr")); err != nil {
		return err
	}
	if err := v.BindPFlag("server.data_dir", flags.Lookup("data-dir")); err != nil {
		return err
	}
	if err := v.BindPFlag("logging.level", flags.Lookup("log-level")); err != nil {
		return err
	}
	if err := v.BindPFlag("metrics.enabled", flags.Lookup("metrics-enabled")); err != nil {
		return err
	}
	if err := v.BindPFlag("metrics.addr", flags.Lookup("metrics-addr")); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath, v)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger.SetLevel(cfg.Logging.Level)
	logger.Info("zippynfsd starting, data dir %s", cfg.Server.DataDir)

	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
	}

	engine, err := fsengine.New(fsengine.Options{
		DataDir:             cfg.Server.DataDir,
		MaxAsyncBytesPerFID: cfg.Server.MaxAsyncBytesPerFID,
	})
	if err != nil {
		return fmt.Errorf("initialize storage engine: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opMetrics := metrics.NewOpMetrics()
	srv := server.New(cfg.Server.Addr, engine, opMetrics)

	errCh := make(chan error, 2)
	go func() {
		errCh <- srv.Serve(ctx)
	}()

	var metricsSrv *metrics.Server
	if cfg.Metrics.Enabled {
		metricsSrv = metrics.NewServer(cfg.Metrics.Addr)
		go func() {
			errCh <- metricsSrv.Start(ctx)
		}()
	}

	select {
	case err := <-errCh:
		stop()
		if err != nil {
			return fmt.Errorf("server exited: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	if err := srv.Stop(); err != nil {
		logger.Warn("listener shutdown: %v", err)
	}

	return nil
}
