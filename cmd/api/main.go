package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sdmydbr9/EVMR-sub001/internal/config"
	"github.com/sdmydbr9/EVMR-sub001/internal/handler"
	registrationHandler "github.com/sdmydbr9/EVMR-sub001/internal/handler/registration"
	"github.com/sdmydbr9/EVMR-sub001/internal/middleware"
	"github.com/sdmydbr9/EVMR-sub001/internal/notifier"
	"github.com/sdmydbr9/EVMR-sub001/internal/notifier/email"
	"github.com/sdmydbr9/EVMR-sub001/internal/repository/postgres"
	"github.com/sdmydbr9/EVMR-sub001/internal/router"
	registrationService "github.com/sdmydbr9/EVMR-sub001/internal/service/registration"
	"github.com/sdmydbr9/EVMR-sub001/pkg/auth"
	"github.com/sdmydbr9/EVMR-sub001/pkg/logger"
	"github.com/sdmydbr9/EVMR-sub001/pkg/metrics"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	appLogger := logger.NewLogger(nil)
	appMetrics := metrics.NewMetrics("evmr_registration")

	base := postgres.NewBaseRepository(db)
	registrationRepo := postgres.NewRegistrationRepository(base)
	accountRepo := postgres.NewAccountRepository(base)

	var notif notifier.Notifier = notifier.Noop{}
	if cfg.SMTP.Host != "" {
		notif = email.NewNotifier(cfg.SMTP)
	}

	reader := registrationService.NewReader(registrationRepo, accountRepo, cfg.Registration)
	registrationSvc := registrationService.NewService(
		registrationRepo,
		accountRepo,
		reader,
		registrationService.NewCredentialIssuer(),
		notif,
		appMetrics,
		appLogger,
		cfg.Registration,
	)

	jwtService := auth.NewJWTService(cfg.JWT.Secret)
	authMiddleware := middleware.NewAuthMiddleware(jwtService)
	ingestMiddleware := middleware.NewIngestAuthMiddleware(cfg.Ingest.Token)

	h := handler.NewHandler(db)
	registrationH := registrationHandler.NewHandler(registrationSvc)

	r := router.NewRouter(
		authMiddleware,
		ingestMiddleware,
		registrationH,
		h,
		router.Config{
			RateLimitRPS:   cfg.RateLimit.RequestsPerSecond,
			RateLimitBurst: cfg.RateLimit.Burst,
			CORSConfig:     middleware.DefaultCORSConfig(),
			MetricsPrefix:  "evmr_registration",
		},
	)
	r.Setup()

	srv := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        r.Engine(),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}
