package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/twmb/franz-go/pkg/kgo"

	"ctn/internal/authz"
	authzhandler "ctn/internal/authz/handler"
	authzmetrics "ctn/internal/authz/metrics"
	"ctn/internal/dnsverify"
	dnshandler "ctn/internal/dnsverify/handler"
	dnsmetrics "ctn/internal/dnsverify/metrics"
	ctnhttp "ctn/internal/http"
	"ctn/internal/identverify"
	identhandler "ctn/internal/identverify/handler"
	identmetrics "ctn/internal/identverify/metrics"
	"ctn/internal/jwttoken"
	"ctn/internal/organization"
	orghandler "ctn/internal/organization/handler"
	"ctn/internal/platform/config"
	"ctn/internal/platform/httpserver"
	"ctn/internal/platform/logger"
	"ctn/internal/platform/redis"
)

// main wires the stores, engines and background workers, then runs the HTTP
// server until interrupted. Business logic lives in the internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Stores: Postgres when configured, in-memory for local development.
	var (
		db         *sql.DB
		orgStore   organization.Store
		tokenStore dnsverify.Store
		authzStore authz.Store
	)
	if cfg.DatabaseURL != "" {
		var err error
		db, err = sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			log.Error("open database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			log.Error("ping database", "error", err)
			os.Exit(1)
		}
		orgStore = organization.NewPostgres(db)
		tokenStore = dnsverify.NewPostgres(db)
		authzStore = authz.NewPostgres(db)
	} else {
		log.Warn("no database configured, using in-memory stores")
		orgStore = organization.NewInMemory()
		tokenStore = dnsverify.NewInMemory()
		authzStore = authz.NewInMemory()
	}

	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		log.Error("connect redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	orgService := organization.New(orgStore, organization.WithLogger(log))

	dnsService := dnsverify.New(tokenStore, orgService,
		dnsverify.NewNetResolver(cfg.Verification.ResolverTimeout),
		dnsverify.WithLogger(log),
		dnsverify.WithMetrics(dnsmetrics.New()),
		dnsverify.WithPolicy(dnsverify.Policy{
			TokenTTL:               cfg.Verification.TokenTTL,
			ReverificationInterval: cfg.Verification.ReverificationInterval,
			TokenRetention:         cfg.Verification.TokenRetention,
			MaxResolverFailures:    cfg.Verification.MaxResolverFailures,
		}),
	)

	var registry identverify.Registry
	if cfg.Registry.BaseURL != "" {
		registry = identverify.NewHTTPRegistry(cfg.Registry.BaseURL, cfg.Registry.APIKey, cfg.Verification.RegistryTimeout)
	} else {
		log.Warn("no registry configured, using deterministic mock client")
		registry = identverify.MockRegistry{Latency: 50 * time.Millisecond}
	}
	identOpts := []identverify.Option{
		identverify.WithLogger(log),
		identverify.WithMetrics(identmetrics.New()),
		identverify.WithRegistryTimeout(cfg.Verification.RegistryTimeout),
	}
	if redisClient != nil {
		identOpts = append(identOpts,
			identverify.WithValidationCache(
				identverify.NewRedisValidationCache(redisClient.Client, cfg.Redis.CacheTTL)))
	} else {
		identOpts = append(identOpts,
			identverify.WithValidationCache(
				identverify.NewMemoryValidationCache(cfg.Redis.CacheTTL)))
	}
	identService := identverify.New(orgService, registry, identOpts...)

	authzService := authz.New(authz.DefaultPolicy(), orgService, authzStore,
		authz.WithLogger(log),
		authz.WithMetrics(authzmetrics.New()),
	)

	jwtService := jwttoken.New(cfg.JWTSigningKey, "ctn", "ctn-api")

	// Background workers: the verification sweep always runs; the decision
	// relay only when Kafka is configured.
	sweeper := dnsverify.NewSweeper(dnsService, cfg.Verification.SweepInterval, log)
	go func() {
		if err := sweeper.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("sweeper stopped", "error", err)
		}
	}()

	if len(cfg.Kafka.Brokers) > 0 {
		kafkaClient, err := kgo.NewClient(
			kgo.SeedBrokers(cfg.Kafka.Brokers...),
			kgo.DefaultProduceTopic(cfg.Kafka.Topic),
		)
		if err != nil {
			log.Error("connect kafka", "error", err)
			os.Exit(1)
		}
		defer kafkaClient.Close()

		relay := authz.NewRelay(authzStore, kafkaClient,
			authz.WithRelayLogger(log),
			authz.WithRelayTopic(cfg.Kafka.Topic),
			authz.WithRelayInterval(cfg.Kafka.RelayInterval),
		)
		go func() {
			if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("decision relay stopped", "error", err)
			}
		}()
	}

	health := map[string]ctnhttp.HealthChecker{}
	if db != nil {
		health["postgres"] = dbHealth{db}
	}
	if redisClient != nil {
		health["redis"] = redisClient
	}

	router := ctnhttp.NewRouter(ctnhttp.Deps{
		Logger:        log,
		Validator:     jwtService,
		Organizations: orghandler.New(orgService, log),
		DNSVerify:     dnshandler.New(dnsService, log),
		IdentVerify:   identhandler.New(identService, log),
		Authz:         authzhandler.New(authzService, log),
		Health:        health,
	})

	srv := httpserver.New(cfg.Addr, router)
	go func() {
		log.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}

type dbHealth struct{ db *sql.DB }

func (h dbHealth) Health(ctx context.Context) error {
	return h.db.PingContext(ctx)
}
