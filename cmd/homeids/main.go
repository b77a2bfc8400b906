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

	"github.com/telhawk-systems/homeids/internal/authz"
	"github.com/telhawk-systems/homeids/internal/command"
	"github.com/telhawk-systems/homeids/internal/config"
	"github.com/telhawk-systems/homeids/internal/detection"
	"github.com/telhawk-systems/homeids/internal/eventlog"
	"github.com/telhawk-systems/homeids/internal/handlers"
	"github.com/telhawk-systems/homeids/internal/ingest"
	"github.com/telhawk-systems/homeids/internal/logging"
	"github.com/telhawk-systems/homeids/internal/messaging"
	natsclient "github.com/telhawk-systems/homeids/internal/messaging/nats"
	"github.com/telhawk-systems/homeids/internal/middleware"
	"github.com/telhawk-systems/homeids/internal/models"
	"github.com/telhawk-systems/homeids/internal/server"
	"github.com/telhawk-systems/homeids/internal/service"
	"github.com/telhawk-systems/homeids/internal/session"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(logging.ParseLevel(cfg.Logging.Level), cfg.Logging.Format).
		With(logging.FieldService, "homeids")
	logging.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("homeids exited with error", logging.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *logging.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	sessions, err := openSessions(ctx, cfg, logger)
	if err != nil {
		return err
	}

	recorder := eventlog.NewRecorder(store, logger)
	catalog := models.NewDeviceCatalog(cfg.DeviceList())
	access := authz.AccessList(cfg.Access)

	gate, err := authz.NewGate(access, recorder, logger)
	if err != nil {
		return fmt.Errorf("failed to build authorization gate: %w", err)
	}

	broker, shutdownBroker, err := openBroker(cfg, logger)
	if err != nil {
		return err
	}
	defer shutdownBroker()

	svc := service.NewService(service.Dependencies{
		Store:     store,
		Sink:      recorder,
		Gate:      gate,
		Publisher: command.NewPublisher(broker),
		Broker:    broker,
		Sessions:  sessions,
		Catalog:   catalog,
		Access:    access,
		Logger:    logger,
	}, service.Config{DemoPassword: cfg.Auth.DemoPassword})

	loop := ingest.New(broker, detection.NewEngine(), recorder, logger,
		ingest.WithQueueSize(cfg.NATS.QueueSize),
		ingest.WithCatalog(catalog),
	)
	if cfg.NATS.Enabled {
		// A connect failure leaves the loop disconnected; the API keeps serving.
		if err := loop.Start(ctx); err != nil {
			logger.Warn("ingestion disabled", logging.Error(err))
		}
	} else {
		logger.Info("message broker disabled by configuration")
	}

	handler := handlers.NewHandler(svc, logger,
		handlers.WithCookie(cfg.Auth.CookieName, cfg.Auth.SecureCookie),
	)
	router := server.NewRouter(handler, svc.ResolveUser, middleware.CORSConfig{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   cfg.CORS.AllowedMethods,
		AllowedHeaders:   cfg.CORS.AllowedHeaders,
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           cfg.CORS.MaxAge,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("homeids listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	loop.Wait()
	logger.Info("server stopped gracefully")
	return nil
}

func openStore(ctx context.Context, cfg *config.Config, logger *logging.Logger) (eventlog.Store, error) {
	if cfg.Database.Type != "postgres" {
		logger.Info("using in-memory log store")
		return eventlog.NewMemoryStore(), nil
	}

	connString := cfg.Database.Postgres.ConnectionString()

	logger.Info("running database migrations")
	if err := eventlog.Migrate(connString); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	store, err := eventlog.NewPostgresStore(ctx, connString, eventlog.PoolConfig{
		MaxConns: cfg.Database.Postgres.MaxConns,
		MinConns: cfg.Database.Postgres.MinConns,
		Timeouts: eventlog.Timeouts{
			Query: cfg.Database.Postgres.QueryTimeout,
			Write: cfg.Database.Postgres.WriteTimeout,
			Clear: cfg.Database.Postgres.ClearTimeout,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	logger.Info("connected to PostgreSQL", "host", cfg.Database.Postgres.Host)
	return store, nil
}

func openSessions(ctx context.Context, cfg *config.Config, logger *logging.Logger) (session.Store, error) {
	if !cfg.Redis.Enabled {
		return session.NewMemoryStore(cfg.Auth.SessionTTL), nil
	}
	client, err := session.NewRedisClient(ctx, cfg.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	logger.Info("using Redis session store")
	return session.NewRedisStore(client, cfg.Auth.SessionTTL), nil
}

func openBroker(cfg *config.Config, logger *logging.Logger) (*messaging.Broker, func(), error) {
	nc := natsclient.DefaultConfig()
	nc.URL = cfg.NATS.URL
	nc.Name = cfg.NATS.Name
	nc.MaxReconnects = cfg.NATS.MaxReconnects
	nc.ReconnectWait = cfg.NATS.ReconnectWait
	nc.Timeout = cfg.NATS.Timeout

	var embedded *natsclient.EmbeddedServer
	if cfg.NATS.Enabled && cfg.NATS.Embedded {
		var err error
		embedded, err = natsclient.StartEmbedded(natsclient.EmbeddedConfig{
			Host: cfg.NATS.EmbeddedHost,
			Port: cfg.NATS.EmbeddedPort,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to start embedded broker: %w", err)
		}
		nc.URL = embedded.ClientURL()
		logger.Info("embedded message broker started", "url", nc.URL)
	}

	broker := messaging.NewBroker(natsclient.Dialer(nc, logger))
	shutdown := func() {
		if err := broker.Close(); err != nil {
			logger.Warn("failed to close broker connection", logging.Error(err))
		}
		if embedded != nil {
			embedded.Shutdown()
		}
	}
	return broker, shutdown, nil
}
