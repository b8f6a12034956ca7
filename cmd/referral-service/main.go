package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/santerelay/platform/pkg/assignment"
	"github.com/santerelay/platform/pkg/common/config"
	"github.com/santerelay/platform/pkg/common/database"
	"github.com/santerelay/platform/pkg/common/kafka"
	"github.com/santerelay/platform/pkg/common/logger"
	"github.com/santerelay/platform/pkg/facility"
	"github.com/santerelay/platform/pkg/gateway/auth"
	"github.com/santerelay/platform/pkg/gateway/middleware"
	"github.com/santerelay/platform/pkg/notify"
	"github.com/santerelay/platform/pkg/observability/metrics"
	"github.com/santerelay/platform/pkg/patients"
	"github.com/santerelay/platform/pkg/referral"
	"github.com/santerelay/platform/pkg/triage"
	"github.com/santerelay/platform/pkg/users"
)

func main() {
	logger.Init()
	cfg := config.Load()

	db, err := database.GetPostgres()
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to connect to postgres")
	}

	facilityRepo := facility.NewRepository(db)
	patientRepo := patients.NewRepository(db)
	userRepo := users.NewRepository(db)
	referralRepo := referral.NewRepository(db)

	for _, migrate := range []func() error{
		facilityRepo.AutoMigrate,
		patientRepo.AutoMigrate,
		userRepo.AutoMigrate,
		referralRepo.AutoMigrate,
	} {
		if err := migrate(); err != nil {
			logger.Log.WithError(err).Fatal("failed to migrate")
		}
	}

	redisClient := database.GetRedis()

	broadcaster := notify.NewBroadcaster(cfg.BroadcastBuffer)
	producer := kafka.NewProducer(cfg.KafkaLifecycleTopic)

	resolver := assignment.NewFirstAvailableResolver(facilityRepo).
		WithCache(redisClient, cfg.DirectoryCacheTTL)

	referralService := referral.NewService(referralRepo, resolver, broadcaster).WithMirror(producer)

	rules, err := triage.LoadRules(cfg.TriageRulesPath)
	if err != nil {
		logger.Log.WithError(err).Warn("failed to load triage rules, using defaults")
	}
	triageService := triage.NewService(triage.NewEngine(rules), patientRepo, referralService)

	jwtManager, err := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTTTL)
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to configure jwt")
	}

	var validator middleware.TokenValidator = jwtManager
	if cfg.OIDCIssuer != "" {
		oidcAuth, err := auth.NewOIDCAuthenticator(cfg.OIDCIssuer, cfg.OIDCClientID, cfg.OIDCClientSecret)
		if err != nil {
			logger.Log.WithError(err).Fatal("failed to configure OIDC")
		}
		validator = oidcAuth
	}

	router := mux.NewRouter()
	router.Use(middleware.Logging, middleware.Recovery, middleware.CORS)

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	}).Methods(http.MethodGet)
	router.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ready"}`))
	}).Methods(http.MethodGet)
	router.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		metrics.WritePrometheus(w)
	}).Methods(http.MethodGet)

	wsHandler := notify.NewWSHandler(broadcaster, cfg.WSWriteTimeout, cfg.WSPingInterval)
	wsHandler.Register(router)

	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst), middleware.BodyLimit(cfg.MaxRequestBody))

	usersHandler := users.NewHandler(userRepo, jwtManager)
	usersHandler.Register(api.PathPrefix("/auth").Subrouter())

	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.Authenticate(validator))

	usersHandler.RegisterProtected(protected.PathPrefix("/auth").Subrouter())
	facility.NewHandler(facilityRepo).Register(protected)
	patients.NewHandler(patientRepo).Register(protected)
	triage.NewHandler(triageService).Register(protected)
	referral.NewHandler(referralService, referralRepo).Register(protected.PathPrefix("/referrals").Subrouter())

	address := fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort)
	server := &http.Server{
		Addr:         address,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		logger.Log.WithField("addr", address).Info("Referral service listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("failed to start referral service")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down referral service...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Log.WithError(err).Error("Referral service forced to shutdown")
	}

	if err := producer.Close(); err != nil {
		logger.Log.WithError(err).Error("Failed to close kafka producer")
	}
	if err := database.CloseRedis(); err != nil {
		logger.Log.WithError(err).Error("Failed to close redis")
	}
	if err := database.ClosePostgres(); err != nil {
		logger.Log.WithError(err).Error("Failed to close postgres")
	}
	logger.Log.Info("Referral service stopped")
}
