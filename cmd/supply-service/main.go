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
	"github.com/medflow/medflow-supply/internal/supply/consumers"
	"github.com/medflow/medflow-supply/internal/supply/events"
	"github.com/medflow/medflow-supply/internal/supply/handler"
	"github.com/medflow/medflow-supply/internal/supply/repository"
	"github.com/medflow/medflow-supply/internal/supply/service"
	"github.com/medflow/medflow-supply/pkg/config"
	"github.com/medflow/medflow-supply/pkg/database"
	"github.com/medflow/medflow-supply/pkg/httputil"
	"github.com/medflow/medflow-supply/pkg/jwt"
	"github.com/medflow/medflow-supply/pkg/logger"
	"github.com/medflow/medflow-supply/pkg/messaging"
	"github.com/medflow/medflow-supply/pkg/metrics"
	"github.com/medflow/medflow-supply/pkg/permissions"
)

func main() {
	// Fails fast in staging/production when required settings are missing
	cfg, err := config.LoadWithValidation(config.ServiceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger.SetLevel(cfg.Server.LogLevel)
	log := logger.New(config.ServiceName, cfg.Server.Environment)
	log.Info().Msg("starting Supply Service")

	loc, err := cfg.Supply.Location()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid supply timezone")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	rmq, err := messaging.New(ctx, &cfg.RabbitMQ, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
	}
	defer rmq.Close()

	if err := rmq.DeclareDeadLetterQueue(config.ServiceName); err != nil {
		log.Fatal().Err(err).Msg("failed to declare dead letter queue")
	}

	publisher, err := events.NewSupplyEventPublisher(rmq, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create event publisher")
	}

	m := metrics.New(true)

	// Repositories
	recordRepo := repository.NewRecordRepository(db)
	lotRepo := repository.NewLotRepository(db)
	alertRepo := repository.NewLotAlertRepository(db)
	scopeRepo := repository.NewUserScopeRepository(db)
	tenantRepo := repository.NewTenantRepository(db)

	// Services
	coverageService, err := service.NewCoverageService(recordRepo, scopeRepo, &cfg.Supply, m, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create coverage service")
	}
	lotService := service.NewLotService(lotRepo, cfg.Supply.DefaultWindowMonths, loc, log)
	scanner := service.NewAlertScanner(lotService, alertRepo, publisher, m, log)
	scheduler := service.NewAlertScheduler(scanner, tenantRepo, cfg.Supply.ScanInterval, m, log.WithComponent("alert-scheduler"))

	// Handlers
	coverageHandler := handler.NewCoverageHandler(coverageService, log)
	lotHandler := handler.NewLotHandler(lotService, log)

	userConsumer, err := consumers.NewUserEventConsumer(rmq, scopeRepo, log.WithComponent("user-consumer"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create user event consumer")
	}
	if err := userConsumer.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start user event consumer")
	}

	scheduler.Start(ctx)

	tokens := jwt.NewManager(&cfg.JWT)

	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]any{
			"status":   "healthy",
			"service":  config.ServiceName,
			"database": db.Health(r.Context()),
			"rabbitmq": rmq.Health(),
		})
	})
	r.Handle("/metrics", m.Handler())

	r.Route("/api/v1/supply", func(r chi.Router) {
		r.Use(httputil.Authenticate(tokens))

		r.Group(func(r chi.Router) {
			r.Use(httputil.RequirePermission(permissions.SupplyRead))
			r.Get("/records/{id}", coverageHandler.GetRecord)
			r.Get("/records/{id}/coverage", coverageHandler.Coverage)
			r.Post("/coverage/classify", coverageHandler.Classify)
		})

		r.With(httputil.RequirePermission(permissions.SupplyEdit)).
			Post("/records/{id}/coverage", coverageHandler.RecomputeEdited)

		r.Route("/lots", func(r chi.Router) {
			r.Use(httputil.RequireAnyPermission(permissions.SupplyAlerts, permissions.SupplyEdit))
			r.Get("/alerts", lotHandler.Alerts)
			r.Get("/traffic-light", lotHandler.TrafficLights)
		})
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

	// Stops the consumer and waits for a running alert scan
	cancel()
	scheduler.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
