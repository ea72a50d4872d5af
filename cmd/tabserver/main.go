// tabserver serves the customer-record API that tabctl and the venue's
// front-ends talk to.
//
//	@title						Tabkeeper Customer Records API
//	@version					1.0
//	@description				Customer records and running tabs for KaThuli's Tavern.
//	@BasePath					/
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/kathulis/tabkeeper/internal/api"
	"github.com/kathulis/tabkeeper/internal/api/handler"
	"github.com/kathulis/tabkeeper/internal/core/service"
	mongodb "github.com/kathulis/tabkeeper/internal/infrastructure/db/mongo"
	redisdb "github.com/kathulis/tabkeeper/internal/infrastructure/db/redis"
	"github.com/kathulis/tabkeeper/internal/infrastructure/queue"
	"github.com/kathulis/tabkeeper/internal/pkg/config"
	"github.com/kathulis/tabkeeper/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		_, _ = os.Stderr.WriteString("tabserver: reading .env: " + err.Error() + "\n")
	}

	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.Env == "development",
		Service: "tabserver",
	})

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("tabserver stopped")
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	if cfg.JWTSecret == "" {
		return errors.New("JWT_SECRET must be set")
	}
	if cfg.Admin.Password == "" {
		log.Warn().Msg("ADMIN_PASSWORD is empty; admin login is disabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mongoClient, db, err := mongodb.Connect(ctx, mongodb.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		return err
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := mongoClient.Disconnect(dctx); err != nil {
			log.Error().Err(err).Msg("mongo disconnect")
		}
	}()

	rdb, err := redisdb.Connect(ctx, redisdb.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	if err != nil {
		return err
	}
	defer func() { _ = rdb.Close() }()

	customerRepo := mongodb.NewCustomerRepository(db)
	eventRepo := mongodb.NewEventRepository(db)
	if err := mongodb.EnsureIndexes(ctx, customerRepo, eventRepo); err != nil {
		return err
	}

	// Workers outlive the signal context so queued audit events drain after
	// the HTTP server stops.
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	dispatcher := queue.NewDispatcher(cfg.AuditWorkers, eventRepo, log.With().Str("component", "audit").Logger())
	dispatcher.Start(workerCtx)

	snapshot := redisdb.NewSnapshotCache(rdb, cfg.Redis.SnapshotTTL)
	customers := service.NewCustomerService(customerRepo, snapshot, dispatcher, log.With().Str("component", "customers").Logger())
	auth := service.NewAuthService(
		customerRepo,
		service.AdminCredentials{Name: cfg.Admin.Name, Password: cfg.Admin.Password},
		cfg.JWTSecret,
		cfg.TokenTTL,
		log.With().Str("component", "auth").Logger(),
	)

	e := api.NewRouter(api.Deps{
		Customers: customers,
		Auth:      auth,
		JWTSecret: cfg.JWTSecret,
		Checks: map[string]handler.CheckFunc{
			"mongodb": handler.MongoCheck(db),
			"redis":   handler.RedisCheck(rdb),
		},
		Log: log,
	})

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Msg("tabserver listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		stopWorkers()
		dispatcher.Wait()
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(sctx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}

	stopWorkers()
	dispatcher.Wait()
	return nil
}
