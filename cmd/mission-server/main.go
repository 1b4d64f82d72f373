package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"drone-missions/internal/application"
	"drone-missions/internal/config"
	"drone-missions/internal/domain"
	"drone-missions/internal/infrastructure/clock"
	"drone-missions/internal/infrastructure/repositories"
	"drone-missions/internal/infrastructure/storage"
	"drone-missions/internal/infrastructure/telemetry"
	"drone-missions/internal/logging"
	"drone-missions/internal/observability"
	"drone-missions/internal/ports"
	"drone-missions/internal/ports/api"
	"drone-missions/internal/ports/ws"
)

func main() {
	configPath := flag.String("config", "", "Path to a JSON or YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format}, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("Server stopped with error")
	}
	logger.Info().Msg("Server gracefully stopped")
}

func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	kv, err := openKeyValueStore(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("error opening %s storage: %w", cfg.Storage.Type, err)
	}
	defer func() {
		if err := kv.Close(); err != nil {
			logger.Warn().Err(err).Msg("Error closing storage")
		}
	}()

	metrics, err := observability.NewCollector(prometheus.NewRegistry())
	if err != nil {
		return err
	}

	store := application.NewMissionStore(kv,
		application.WithMissionsKey(cfg.Storage.Key),
		application.WithStoreMetrics(metrics),
		application.WithStoreLogger(logger),
	)
	// Нечитабельні дані не зупиняють сервер: колекція починається порожньою
	_ = store.Load(ctx)
	defer store.Close()

	simOpts := []application.SimulationServiceOption{
		application.WithEngineOptions(
			application.WithSegmentDuration(cfg.Simulation.SegmentDuration),
			application.WithCameraSpan(cfg.Simulation.CameraSpan),
			application.WithEngineMetrics(metrics),
			application.WithEngineLogger(logger),
		),
		application.WithServiceMetrics(metrics),
		application.WithServiceLogger(logger),
	}
	if influx := cfg.Telemetry.Influx; influx.Enabled {
		sink := telemetry.NewInfluxSink(telemetry.InfluxConfig{
			URL:    influx.URL,
			Token:  influx.Token,
			Org:    influx.Org,
			Bucket: influx.Bucket,
		}, logger)
		if err := sink.Ping(ctx); err != nil {
			logger.Warn().Err(err).Msg("InfluxDB is not reachable, telemetry will be retried in background")
		}
		defer sink.Close()
		simOpts = append(simOpts, application.WithTelemetry(sink))
	}

	sims := application.NewSimulationService(store, clock.NewReal(), simOpts...)
	center := domain.Coordinate{
		Latitude:  cfg.Simulation.DefaultCenter.Latitude,
		Longitude: cfg.Simulation.DefaultCenter.Longitude,
	}
	geoService := application.NewGeospatialService(store, cfg.Simulation.CameraSpan, center)
	wsHandler := ws.NewHandler(store, sims, cfg.Server.AllowedOrigins, logger)

	router := newRouter(logger, cfg.Server.AllowedOrigins, metrics,
		api.NewMissionHandler(store),
		api.NewGeospatialHandler(geoService),
		api.NewSimulationHandler(sims),
		wsHandler,
	)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("addr", cfg.Server.Addr).Str("storage", cfg.Storage.Type).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("error starting server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return sims.Watch(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("Shutting down server...")

		wsHandler.Close()
		sims.CloseAll()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error during server shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// openKeyValueStore вибирає сховище колекції місій за конфігурацією
func openKeyValueStore(ctx context.Context, cfg config.StorageConfig) (ports.KeyValueStore, error) {
	switch cfg.Type {
	case "memory":
		return storage.NewMemoryStore(), nil
	case "sqlite":
		return storage.NewSQLiteStore(cfg.SQLite.Path)
	case "postgres":
		return repositories.OpenPostgresKeyValueRepository(ctx, cfg.Postgres.URL)
	case "minio":
		return storage.NewMinIOStore(ctx, storage.MinIOConfig{
			Endpoint:  cfg.MinIO.Endpoint,
			AccessKey: cfg.MinIO.AccessKey,
			SecretKey: cfg.MinIO.SecretKey,
			Bucket:    cfg.MinIO.Bucket,
			UseSSL:    cfg.MinIO.UseSSL,
			Prefix:    "missions",
		})
	default:
		return nil, fmt.Errorf("unknown storage type: %q", cfg.Type)
	}
}

type routeRegistrar interface {
	RegisterRoutes(r chi.Router)
}

func newRouter(
	logger zerolog.Logger,
	allowedOrigins []string,
	metrics *observability.Collector,
	registrars ...routeRegistrar,
) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/v1", func(r chi.Router) {
			for _, reg := range registrars {
				reg.RegisterRoutes(r)
			}
		})
	})
	return r
}
