package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"platewatch-service/internal/cache"
	"platewatch-service/internal/compliance"
	"platewatch-service/internal/config"
	"platewatch-service/internal/db"
	"platewatch-service/internal/fines"
	httpapi "platewatch-service/internal/http"
	"platewatch-service/internal/ocr"
	"platewatch-service/internal/repository"
	"platewatch-service/internal/service"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fallbackLog := zerolog.New(os.Stderr)
		fallbackLog.Fatal().Err(err).Msg("failed to load config")
	}

	log := newLogger(cfg.Log.Level)

	database, err := db.Open(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	log.Info().Str("host", cfg.Database.Host).Str("db", cfg.Database.Name).Msg("database ready")

	fineRepo := repository.NewFineRepository(database)
	plateCache := cache.NewPlateCache(cfg.CacheCooldown())
	checker := compliance.NewChecker(
		cfg.ExternalAPI.BaseURL,
		cfg.ExternalAPITimeout(),
		cfg.ExternalAPI.SyntheticFallback,
		log,
	)
	ocrClient := ocr.NewClient(cfg.OCR.ServiceURL, 30*time.Second)
	fineService := fines.NewService(fineRepo, cfg.Fines.RoadTaxAmount, cfg.Fines.InsuranceAmount, log)
	scanService := service.NewScanService(
		ocrClient,
		plateCache,
		checker,
		fineService,
		checker,
		fineRepo,
		cfg.OCR.ConfidenceMin,
		cfg.OCR.FineConfidenceMin,
		log,
	)

	scheduler := cron.New()
	sweepSpec := cronEvery(cfg.Cache.SweepIntervalMin)
	if _, err := scheduler.AddFunc(sweepSpec, func() {
		scanService.SweepCache()
	}); err != nil {
		log.Fatal().Err(err).Msg("failed to schedule cache sweep")
	}
	if _, err := scheduler.AddFunc("@daily", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		deleted, err := fineRepo.DeleteOldScanLogs(ctx, cfg.Fines.ScanLogRetention)
		if err != nil {
			log.Error().Err(err).Msg("failed to cleanup old scan logs")
			return
		}
		if deleted > 0 {
			log.Info().Int64("deleted", deleted).Msg("cleaned up old scan logs")
		}
	}); err != nil {
		log.Fatal().Err(err).Msg("failed to schedule scan log cleanup")
	}
	scheduler.Start()

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(httpapi.RequestID())
	router.Use(httpapi.RequestLogger(log))
	router.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Authorization"},
	}))

	handler := httpapi.NewHandler(scanService, fineService, cfg, log)
	handler.Register(router, httpapi.JWTAuth(cfg.Auth.JWTSecret))

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	cronCtx := scheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}

	select {
	case <-cronCtx.Done():
	case <-time.After(5 * time.Second):
		log.Warn().Msg("scheduled jobs did not stop in time")
	}

	log.Info().Msg("server stopped")
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stdout).Level(lvl).With().Timestamp().Logger()
}

func cronEvery(minutes int) string {
	if minutes <= 0 {
		minutes = 10
	}
	return "@every " + time.Duration(minutes*int(time.Minute)).String()
}
