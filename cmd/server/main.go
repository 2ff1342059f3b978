package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/nyctaxi/trip-analytics/internal/cache"
	"github.com/nyctaxi/trip-analytics/internal/lexical"
	"github.com/nyctaxi/trip-analytics/internal/loader"
	"github.com/nyctaxi/trip-analytics/internal/router"
	"github.com/nyctaxi/trip-analytics/internal/tools"
	"github.com/nyctaxi/trip-analytics/internal/tools/handler"
	"github.com/nyctaxi/trip-analytics/internal/usage"
	"github.com/nyctaxi/trip-analytics/pkg/config"
	"github.com/nyctaxi/trip-analytics/pkg/health"
	"github.com/nyctaxi/trip-analytics/pkg/kafka"
	"github.com/nyctaxi/trip-analytics/pkg/logger"
	"github.com/nyctaxi/trip-analytics/pkg/metrics"
	"github.com/nyctaxi/trip-analytics/pkg/middleware"
	pkgredis "github.com/nyctaxi/trip-analytics/pkg/redis"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting trip analytics service", "port", cfg.Server.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The trip table must be fully loaded before anything serves; a data
	// problem here is fatal.
	db, err := loader.Connect(ctx, cfg.Postgres)
	if err != nil {
		slog.Error("warehouse connection failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	table, err := loader.New(db, cfg.Dataset).Load(ctx)
	if err != nil {
		slog.Error("dataset load failed", "error", err)
		os.Exit(1)
	}

	m := metrics.New()
	m.TripTableRows.Set(float64(table.RowCount()))
	m.RejectedRows.Set(float64(table.RejectedRows()))

	index, err := lexical.Build(table, cfg.Index.SampleSize)
	if err != nil {
		slog.Warn("lexical index build failed, running degraded", "error", err)
		m.IndexDegraded.Set(1)
	} else {
		m.IndexedDocuments.Set(float64(index.DocCount()))
		slog.Info("lexical index built", "documents", index.DocCount())
	}

	var resultCache *cache.ResultCache
	var redisClient *pkgredis.Client
	redisClient, err = pkgredis.NewClient(cfg.Redis)
	if err != nil {
		slog.Warn("redis unavailable, result caching disabled", "error", err)
	} else {
		defer redisClient.Close()
		resultCache = cache.New(redisClient, cfg.Redis, m)
		slog.Info("result cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
	}

	usageProducer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.UsageTopic)
	collector := usage.NewCollector(usageProducer, 10000)
	collector.Start(ctx)
	defer collector.Close()

	aggregator := usage.NewAggregator()
	usageConsumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.UsageTopic, usage.HandleEvent(aggregator))
	go func() {
		if err := aggregator.Start(ctx, usageConsumer); err != nil {
			slog.Error("usage aggregator error", "error", err)
		}
	}()
	usageH := usage.NewHandler(aggregator)
	slog.Info("usage pipeline started", "topic", cfg.Kafka.UsageTopic)

	rtr := router.New(table, index, cfg.Query.DefaultLimit, cfg.Query.MaxResults, m)
	tls := tools.New(table, index, rtr, cfg.Query.DefaultTopN, m, collector)
	h := handler.New(tls, resultCache)

	checker := health.NewChecker()
	checker.Register("trip_table", func(ctx context.Context) health.ComponentHealth {
		if table.RowCount() > 0 {
			return health.ComponentHealth{Status: health.StatusUp, Message: fmt.Sprintf("%d trips", table.RowCount())}
		}
		return health.ComponentHealth{Status: health.StatusDown, Message: "no trips loaded"}
	})
	checker.Register("lexical_index", func(ctx context.Context) health.ComponentHealth {
		if index == nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "index unavailable, numeric routing only"}
		}
		return health.ComponentHealth{Status: health.StatusUp, Message: fmt.Sprintf("%d documents", index.DocCount())}
	})
	checker.Register("redis", func(ctx context.Context) health.ComponentHealth {
		if redisClient == nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "not configured"}
		}
		if err := redisClient.Ping(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})

	var stopMetrics func(context.Context) error
	if cfg.Metrics.Enabled {
		stopMetrics = metrics.StartServer(cfg.Metrics.Port)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/trips", h.QueryTrips)
	mux.HandleFunc("GET /api/v1/analytics/temporal", h.AnalyzeTemporal)
	mux.HandleFunc("GET /api/v1/analytics/locations", h.AnalyzeLocations)
	mux.HandleFunc("GET /api/v1/analytics/routes", h.AnalyzeRoutes)
	mux.HandleFunc("GET /api/v1/analytics/fares", h.AnalyzeFares)
	mux.HandleFunc("GET /api/v1/dataset", h.DatasetInfo)
	mux.HandleFunc("GET /api/v1/usage", usageH.Stats)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.RequestTimeout)(chain)
	chain = middleware.Metrics(m)(chain)
	chain = middleware.RequestID()(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
		if stopMetrics != nil {
			if err := stopMetrics(shutdownCtx); err != nil {
				slog.Error("metrics server shutdown error", "error", err)
			}
		}
	}()

	slog.Info("trip analytics service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("trip analytics service stopped")
}
