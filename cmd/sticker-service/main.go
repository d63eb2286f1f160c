package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/safetag/safetag-backend/internal/verification/address"
	"github.com/safetag/safetag-backend/internal/verification/classifier"
	"github.com/safetag/safetag-backend/internal/verification/consumers"
	"github.com/safetag/safetag-backend/internal/verification/events"
	"github.com/safetag/safetag-backend/internal/verification/handler"
	"github.com/safetag/safetag-backend/internal/verification/metrics"
	"github.com/safetag/safetag-backend/internal/verification/ocr"
	"github.com/safetag/safetag-backend/internal/verification/policy"
	"github.com/safetag/safetag-backend/internal/verification/repository"
	"github.com/safetag/safetag-backend/internal/verification/resolver"
	"github.com/safetag/safetag-backend/internal/verification/service"
	"github.com/safetag/safetag-backend/internal/verification/storage"
	"github.com/safetag/safetag-backend/pkg/config"
	"github.com/safetag/safetag-backend/pkg/database"
	"github.com/safetag/safetag-backend/pkg/httputil"
	"github.com/safetag/safetag-backend/pkg/i18n"
	"github.com/safetag/safetag-backend/pkg/logger"
	"github.com/safetag/safetag-backend/pkg/messaging"
)

const serviceName = "sticker-service"

func main() {
	// Fails fast in production if required config is missing
	cfg, err := config.LoadWithValidation(serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(serviceName, cfg.Server.Environment, cfg.Server.LogLevel)
	log.Info().Msg("starting Sticker Service")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.New()

	// Database is optional outside production
	var db *database.DB
	if cfg.Database.Enabled() {
		db, err = database.New(&cfg.Database, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer db.Close()

		if err := repository.Migrate(ctx, db); err != nil {
			log.Fatal().Err(err).Msg("failed to migrate database")
		}
	}

	// Address table
	var addresses *address.Cache
	switch cfg.Address.Source {
	case config.AddressSourceFile:
		addresses = address.NewCache(address.NewFileSource(cfg.Address.Path), log)
	case config.AddressSourcePostgres:
		addresses = address.NewCache(repository.NewAddressRuleRepository(db), log)
	}
	if addresses != nil {
		addresses.OnReload(m.AddressReloaded)
		snap := addresses.RefreshIfStale(ctx)
		log.Info().
			Str("source", cfg.Address.Source).
			Int("rules", snap.Len()).
			Msg("address table loaded")
	}

	engine := policy.NewEngine(policy.DefaultRegistry(policy.Config(cfg.Policy)))
	res := resolver.New(classifier.New(), engine, addresses, log)

	store := storage.NewDecisionStore(cfg.Storage.DecisionTTL)
	defer store.Close()

	opts := []service.Option{service.WithMetrics(m)}
	if db != nil {
		opts = append(opts, service.WithAuditLog(repository.NewDecisionAuditRepository(db)))
	}
	if cfg.OCR.BaseURL != "" {
		opts = append(opts, service.WithOCR(ocr.NewClient(cfg.OCR.BaseURL, cfg.OCR.Timeout)))
	} else {
		log.Warn().Msg("OCR provider not configured, scan endpoint disabled")
	}

	// Broker is optional outside production
	var rmq *messaging.RabbitMQ
	if cfg.RabbitMQ.URL != "" {
		rmq, err = messaging.New(&cfg.RabbitMQ, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
		}
		defer rmq.Close()
		go rmq.Watch(ctx)

		if err := rmq.DeclareDeadLetterQueue(serviceName); err != nil {
			log.Fatal().Err(err).Msg("failed to declare dead letter queue")
		}

		publisher, err := events.NewDecisionPublisher(rmq, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create event publisher")
		}
		opts = append(opts, service.WithPublisher(publisher))

		if addresses != nil {
			rulesConsumer, err := consumers.NewAddressRulesConsumer(rmq, addresses, log)
			if err != nil {
				log.Fatal().Err(err).Msg("failed to create address rules consumer")
			}
			if err := rulesConsumer.Start(ctx); err != nil {
				log.Fatal().Err(err).Msg("failed to start address rules consumer")
			}
		}
	}

	svc := service.New(res, store, log, opts...)
	stickerHandler := handler.NewHandler(svc, log)
	auth := httputil.NewAuthenticator(cfg.JWT.Secret, cfg.JWT.Issuer)

	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", "Accept-Language", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID", "Content-Language"},
		MaxAge:         300,
	}))
	r.Use(i18n.Middleware)
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		body := map[string]interface{}{
			"status":  "healthy",
			"service": serviceName,
		}
		if db != nil {
			body["database"] = db.Health(r.Context())
		}
		if rmq != nil {
			body["rabbitmq"] = rmq.Health()
		}
		httputil.JSON(w, http.StatusOK, body)
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/stickers", func(r chi.Router) {
		r.Use(auth.Middleware)
		stickerHandler.Routes(r)
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Stops the consumer and the broker watcher
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	// Let in-flight audit writes and publishes finish before closing their sinks
	svc.Wait()

	log.Info().Msg("server stopped")
}
