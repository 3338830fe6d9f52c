package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/kevmartinez/openfmb-go/internal/config"
	"github.com/kevmartinez/openfmb-go/internal/mirror"
	"github.com/kevmartinez/openfmb-go/internal/store"
	"github.com/kevmartinez/openfmb-go/openfmb"
	"github.com/kevmartinez/openfmb-go/openfmb/middleware"
)

// Command openfmbctl interacts with an OpenFMB microgrid telemetry API.
//
// The subcommands are:
//
//	health                          check API and database responsiveness
//	devices                         list device UUIDs known to the service
//	last-state <device-uuid>        print the latest measurement for a device
//	historical <device-uuid>        print historical measurements
//	    -limit int                  max records (1-5000, default 100)
//	    -start / -end RFC3339       inclusive time bounds
//	mirror                          continuously copy telemetry into TimescaleDB
//
// The flags are:
//
//	-config string
//	      path to config file (default "config.yaml")
func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: openfmbctl [-config file] <health|devices|last-state|historical|mirror> [args]")
		os.Exit(2)
	}

	appConfig, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := newLogger(appConfig.Logging)

	client := openfmb.NewClient(appConfig.API.BaseURL,
		openfmb.WithTimeout(time.Duration(appConfig.API.Timeout)*time.Second),
		openfmb.WithLogger(logger),
	)

	ctx := context.Background()

	switch cmd := flag.Arg(0); cmd {
	case "health":
		if !client.CheckHealth(ctx) {
			fmt.Println("unhealthy")
			os.Exit(1)
		}
		fmt.Println("healthy")

	case "devices":
		devices, err := client.Devices(ctx)
		if err != nil {
			logger.Fatalf("Failed to list devices: %v", err)
		}
		printJSON(devices)

	case "last-state":
		id := parseDeviceArg(logger, flag.Args()[1:])
		state, err := client.LastState(ctx, id)
		if err != nil {
			logger.Fatalf("Failed to fetch last state: %v", err)
		}
		printJSON(state)

	case "historical":
		runHistorical(ctx, client, logger, flag.Args()[1:])

	case "mirror":
		runMirror(appConfig, logger)

	default:
		logger.Fatalf("Unknown command: %s", cmd)
	}
}

func runHistorical(ctx context.Context, client *openfmb.Client, logger *logrus.Logger, args []string) {
	fs := flag.NewFlagSet("historical", flag.ExitOnError)
	limit := fs.Int("limit", openfmb.DefaultLimit, "maximum records to fetch (1-5000)")
	start := fs.String("start", "", "inclusive start time, RFC3339")
	end := fs.String("end", "", "inclusive end time, RFC3339")
	fs.Parse(args)

	id := parseDeviceArg(logger, fs.Args())

	q := openfmb.HistoricalQuery{Limit: *limit}
	if *start != "" {
		t, err := time.Parse(time.RFC3339, *start)
		if err != nil {
			logger.Fatalf("Invalid start time: %v", err)
		}
		q.Start = t
	}
	if *end != "" {
		t, err := time.Parse(time.RFC3339, *end)
		if err != nil {
			logger.Fatalf("Invalid end time: %v", err)
		}
		q.End = t
	}

	measurements, err := client.HistoricalData(ctx, id, q)
	if err != nil {
		logger.Fatalf("Failed to fetch historical data: %v", err)
	}
	printJSON(measurements)
}

// runMirror keeps a local TimescaleDB copy of device telemetry up to date and
// serves client request metrics on /metrics until interrupted.
func runMirror(appConfig *config.Config, logger *logrus.Logger) {
	registry := prometheus.NewRegistry()
	requests, latency, err := middleware.NewRequestMetrics(registry)
	if err != nil {
		logger.Fatalf("Failed to register metrics: %v", err)
	}

	client := openfmb.NewClient(appConfig.API.BaseURL,
		openfmb.WithTimeout(time.Duration(appConfig.API.Timeout)*time.Second),
		openfmb.WithLogger(logger),
		openfmb.WithTransport(
			middleware.Logging(logger),
			middleware.Metrics(requests, latency),
		),
	)

	repo, err := store.NewPostgresRepo(appConfig.Database.ConnString())
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc := mirror.NewService(client, repo, logger,
		appConfig.Mirror.Schedule,
		appConfig.Mirror.BootstrapLimit,
	)

	errChan := make(chan error, 1)

	go func() {
		if err := svc.Bootstrap(ctx); err != nil {
			errChan <- fmt.Errorf("bootstrap error: %w", err)
		}
	}()

	if err := svc.Start(); err != nil {
		logger.Fatalf("Failed to start mirror schedule: %v", err)
	}

	metricsAddr := fmt.Sprintf(":%d", appConfig.Mirror.MetricsPort)
	metricsSrv := &http.Server{
		Addr:    metricsAddr,
		Handler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	}

	go func() {
		logger.WithField("addr", metricsAddr).Info("Serving metrics")
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("metrics server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		logger.Errorf("Service error: %v", err)
	case sig := <-sigChan:
		logger.Infof("Received signal %v, initiating shutdown", sig)
	}

	logger.Info("Gracefully stopping mirror...")
	svc.Stop()
	metricsSrv.Shutdown(context.Background())
	repo.Close()
	logger.Info("Mirror stopped")
}

func newLogger(cfg config.LoggingConfig) *logrus.Logger {
	logger := logrus.New()
	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	if level, err := logrus.ParseLevel(cfg.Level); err == nil {
		logger.SetLevel(level)
	}
	return logger
}

func parseDeviceArg(logger *logrus.Logger, args []string) uuid.UUID {
	if len(args) < 1 {
		logger.Fatal("A device UUID argument is required")
	}
	id, err := uuid.Parse(args[0])
	if err != nil {
		logger.Fatalf("Invalid device UUID %q: %v", args[0], err)
	}
	return id
}

func printJSON(v any) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatalf("Failed to encode output: %v", err)
	}
	fmt.Println(string(out))
}
