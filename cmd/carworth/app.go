package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/carworth/carworth/internal/cache"
	"github.com/carworth/carworth/internal/clock"
	"github.com/carworth/carworth/internal/config"
	"github.com/carworth/carworth/internal/domain"
	"github.com/carworth/carworth/internal/engine"
	httpapi "github.com/carworth/carworth/internal/interfaces/http"
	"github.com/carworth/carworth/internal/listings"
	"github.com/carworth/carworth/internal/marketshift"
	"github.com/carworth/carworth/internal/metrics"
	"github.com/carworth/carworth/internal/plans"
	"github.com/carworth/carworth/internal/provider"
	"github.com/carworth/carworth/internal/scheduler"
	"github.com/carworth/carworth/internal/store"
)

// app bundles everything a command needs after wiring.
type app struct {
	cfg      config.Config
	engine   *engine.Engine
	registry *prometheus.Registry
	close    func()
}

// buildApp wires the full engine from configuration. Redis and Postgres are
// optional; with neither configured everything runs in memory.
func buildApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	applyLogLevel(cfg.LogLevel)

	clk := clock.Real{}
	var closers []func()

	var cacheStore cache.Store
	if cfg.Cache.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Cache.RedisAddr})
		cacheStore = cache.NewRedis(rdb)
		closers = append(closers, func() { rdb.Close() })
		log.Info().Str("addr", cfg.Cache.RedisAddr).Msg("using redis cache")
	} else {
		mem := cache.NewMemory(cfg.Cache.CleanupInterval)
		cacheStore = mem
		closers = append(closers, mem.Close)
	}

	var tracking store.TrackingStore
	var alerts store.AlertStore
	if cfg.Database.DSN != "" {
		db, err := sqlx.Connect("postgres", cfg.Database.DSN)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		tracking = store.NewPostgresTracking(db, cfg.Database.Timeout)
		alerts = store.NewPostgresAlerts(db, cfg.Database.Timeout)
		closers = append(closers, func() { db.Close() })
		log.Info().Msg("using postgres stores")
	} else {
		tracking = store.NewMemoryTracking()
		alerts = store.NewMemoryAlerts()
	}

	apiKeys := cfg.Provider.APIKeys
	if env := os.Getenv("CARWORTH_API_KEYS"); env != "" {
		apiKeys = strings.Split(env, ",")
	}
	client := provider.NewClient(provider.ClientConfig{
		RPS:         cfg.Provider.RPS,
		Burst:       cfg.Provider.Burst,
		MaxRetries:  cfg.Provider.MaxRetries,
		BaseBackoff: cfg.Provider.BaseBackoff,
	}, provider.NewKeyPool(apiKeys), clk)

	var listingsSource listings.Source
	var priceSource engine.PriceSource
	if cfg.Provider.BaseURL != "" {
		api := provider.NewHTTPApi(cfg.Provider.BaseURL)
		listingsSource = provider.NewListingsSource(client, api)
		priceSource = provider.NewPriceSource(client, api)
	} else {
		log.Warn().Msg("no provider base_url configured, running from model and cache only")
		listingsSource = disabledSource{}
	}

	planProvider := plans.NewStatic(cfg.Plans.Free)
	sched := scheduler.New(tracking, planProvider, clk, scheduler.Config{
		BatchSize:         cfg.Scheduler.BatchSize,
		Workers:           cfg.Scheduler.Workers,
		ShiftThresholdPct: cfg.Scheduler.ShiftThresholdPct,
	})
	detector := marketshift.New(alerts, tracking, clk, marketshift.Config{
		ThresholdPct: cfg.Shift.ThresholdPct,
		Lifetime:     cfg.Shift.Lifetime,
		RefreshCap:   cfg.Shift.RefreshCap,
	})

	promRegistry := prometheus.NewRegistry()
	m := metrics.NewRegistry(promRegistry)
	client.SetMetrics(m)

	aggregator := listings.NewAggregator(listingsSource, cacheStore, clk)
	eng := engine.New(aggregator, priceSource, sched, detector, cacheStore, clk, m)

	return &app{
		cfg:      cfg,
		engine:   eng,
		registry: promRegistry,
		close: func() {
			for i := len(closers) - 1; i >= 0; i-- {
				closers[i]()
			}
		},
	}, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.close()

	host, port, err := splitAddr(a.cfg.Server.Addr)
	if err != nil {
		return err
	}
	serverCfg := httpapi.DefaultServerConfig()
	serverCfg.Host = host
	serverCfg.Port = port
	server := httpapi.NewServer(serverCfg, a.engine, a.registry)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()
	go a.refreshLoop(ctx)

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// refreshLoop drives the scheduled batches and alert expiry sweeps.
func (a *app) refreshLoop(ctx context.Context) {
	ticker := time.NewTicker(a.cfg.Scheduler.RunInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.runBatchOnce(ctx)
		}
	}
}

func (a *app) runBatchOnce(ctx context.Context) {
	now := time.Now()
	result, err := a.engine.Scheduler().RunScheduledBatch(ctx, now, now.Add(a.cfg.Scheduler.RunWindow))
	if err != nil {
		log.Error().Err(err).Msg("scheduled batch failed")
	} else {
		log.Info().Int("processed", result.Processed).Int("errors", result.Errors).
			Msg("scheduled batch complete")
	}

	if expired, err := a.engine.Detector().ExpireAlerts(ctx); err != nil {
		log.Error().Err(err).Msg("alert expiry sweep failed")
	} else if expired > 0 {
		log.Info().Int("expired", expired).Msg("alerts expired")
	}
}

func runBatch(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.close()

	window, _ := cmd.Flags().GetDuration("window")
	now := time.Now()
	result, err := a.engine.Scheduler().RunScheduledBatch(context.Background(), now, now.Add(window))
	if err != nil {
		return err
	}
	log.Info().Int("processed", result.Processed).Int("errors", result.Errors).Msg("batch complete")
	return nil
}

func runValuate(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.close()

	flags := cmd.Flags()
	makeName, _ := flags.GetString("make")
	model, _ := flags.GetString("model")
	year, _ := flags.GetInt("year")
	trim, _ := flags.GetString("trim")
	fuel, _ := flags.GetString("fuel")
	mileage, _ := flags.GetInt("mileage")
	annual, _ := flags.GetInt("annual-mileage")
	condition, _ := flags.GetString("condition")
	region, _ := flags.GetString("region")

	desc := domain.VehicleDescriptor{Make: makeName, Model: model, Year: year, Trim: trim, FuelType: fuel}
	usage := domain.VehicleUsage{
		CurrentMileage:        mileage,
		AnnualMileageEstimate: annual,
		Condition:             domain.Condition(condition),
		Region:                region,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	result, err := a.engine.Valuate(ctx, desc, usage, nil)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func applyLogLevel(level string) {
	parsed, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		parsed = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(parsed)
}

func splitAddr(addr string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, fmt.Errorf("parse server addr %q: %w", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("parse server port %q: %w", portStr, err)
	}
	if host == "" {
		host = "0.0.0.0"
	}
	return host, port, nil
}

// disabledSource stands in when no vendor is configured; the aggregator
// degrades to model-only estimates.
type disabledSource struct{}

func (disabledSource) Search(ctx context.Context, desc domain.VehicleDescriptor, location string) ([]domain.ListingRecord, error) {
	return nil, domain.ErrUpstreamUnavailable
}
