// cmd/uavbridge/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"

	"github.com/tamzrod/uavbridge/internal/bus"
	"github.com/tamzrod/uavbridge/internal/config"
	"github.com/tamzrod/uavbridge/internal/metrics"
	"github.com/tamzrod/uavbridge/internal/relay"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	flags := pflag.NewFlagSet("uavbridge", pflag.ContinueOnError)
	adapters := flags.StringSlice("adapters", nil, "adapters to run (default: every configured section)")
	verbose := flags.BoolP("verbose", "v", false, "enable debug logging")
	flags.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: uavbridge [flags] <config.yaml>\n\n%s", flags.FlagUsages())
	}

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}
	if flags.NArg() != 1 {
		flags.Usage()
		return 2
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	// --------------------
	// Load + validate config
	// --------------------

	cfg, err := config.Load(flags.Arg(0))
	if err != nil {
		logger.Error("config load failed", "error", err)
		return 1
	}
	if len(*adapters) > 0 {
		cfg.Adapters = *adapters
	}

	if err := config.Validate(cfg); err != nil {
		logger.Error("config validation failed", "error", err)
		return 1
	}
	config.Normalize(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --------------------
	// Metrics
	// --------------------

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m, err := metrics.New(reg)
	if err != nil {
		logger.Error("metrics setup failed", "error", err)
		return 1
	}

	// --------------------
	// Build adapters
	// --------------------

	list, services, err := build(cfg, logger, m)
	if err != nil {
		logger.Error("adapter build failed", "error", err)
		return 1
	}

	if cfg.Metrics != nil && cfg.Metrics.Listen != "" {
		services = append(services, metricsServer(cfg.Metrics.Listen, reg, logger))
	}

	dial := bus.NewDialer(natsConfig(cfg.Bus), nil, logger)

	// --------------------
	// Run until signalled or a configuration fault
	// --------------------

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		failOnce sync.Once
		failed   error
	)
	fatal := func(err error) {
		failOnce.Do(func() { failed = err })
		cancel()
	}

	for _, a := range list {
		a := a
		r := relay.NewRunner(a, relay.Config{
			RetryDelay:   config.Ms(cfg.RetryDelayMs),
			FaultBackoff: config.Ms(cfg.FaultBackoffMs),
			Dial:         dial,
			Logger:       logger,
			Metrics:      m,
		})

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := r.Run(ctx); err != nil {
				fatal(fmt.Errorf("adapter %s: %w", a.Name(), err))
			}
		}()
	}

	for _, svc := range services {
		svc := svc
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := svc(ctx); err != nil {
				fatal(err)
			}
		}()
	}

	logger.Info("uavbridge started", "adapters", cfg.Enabled(), "bus", cfg.Bus.URL)

	wg.Wait()

	if failed != nil {
		logger.Error("uavbridge stopped", "error", failed)
		return 1
	}
	logger.Info("uavbridge stopped")
	return 0
}

func metricsServer(addr string, reg *prometheus.Registry, logger *slog.Logger) service {
	return func(ctx context.Context) error {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

		srv := &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}

		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		logger.Info("metrics listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
