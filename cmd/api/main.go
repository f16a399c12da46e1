package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "location-reconciler/docs"
	"location-reconciler/internal/config"
	"location-reconciler/internal/county"
	"location-reconciler/internal/handler"
	"location-reconciler/internal/jobs"
	"location-reconciler/internal/logging"
	"location-reconciler/internal/repository"
	"location-reconciler/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title       Location Reconciler API
// @version     1.0
// @description County lookups and background reconciliation jobs.
// @BasePath    /
func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.Fatal().Err(err).Msg("cannot load .env")
	}
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		log.Fatal().Err(err).Msg("cannot load config")
	}
	logging.Configure(&logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cfg.Log.Output})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// County cache
	store, err := repository.Open(ctx, repository.Options{
		Driver:   cfg.Cache.Driver,
		Path:     cfg.Cache.Path,
		DBSource: cfg.DB.Source,
		RedisURL: cfg.Cache.RedisURL,
		Table:    cfg.Cache.Table,
	})
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Cache.Driver).Msg("cannot open county cache")
	}

	// Initialize layers
	resolver := county.NewResolver(store, county.DefaultProviders(county.Settings{
		FCCEnabled:        cfg.County.FCCEnabled,
		NominatimEnabled:  cfg.County.NominatimEnabled,
		FCCInterval:       cfg.County.FCCInterval,
		NominatimInterval: cfg.County.NominatimInterval,
		Timeout:           cfg.County.Timeout,
		UserAgent:         cfg.County.UserAgent,
	})...)
	defer resolver.Close()

	queue := jobs.NewQueue(jobs.PipelineRunner(resolver),
		jobs.WithWorkers(cfg.Jobs.Workers),
		jobs.WithCapacity(cfg.Jobs.Capacity),
		jobs.WithTimeout(cfg.Jobs.Timeout),
		jobs.WithOutputRoot(cfg.Storage.Outputs),
	)
	queue.Start(ctx)

	countyService := service.NewCountyService(resolver)
	countyHandler := handler.NewCountyHandler(countyService)
	jobsHandler := handler.NewJobsHandler(queue, handler.JobsConfig{
		UploadDir:             cfg.Storage.Uploads,
		MaxUploadBytes:        cfg.Storage.MaxUploadMB << 20,
		MatchThresholdMeters:  cfg.Match.ThresholdMeters,
		DedupeThresholdMeters: cfg.Dedupe.ThresholdMeters,
		Deduplicate:           cfg.Dedupe.Enabled,
		DateRange:             cfg.Report.DateRange,
		GeoJSON:               cfg.Report.GeoJSON,
	})

	r := gin.Default()
	r.MaxMultipartMemory = cfg.Storage.MaxUploadMB << 20

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":   "ok",
			"counties": resolver.Stats(),
		})
	})

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	r.GET("/county", countyHandler.County)
	r.GET("/county/zip", countyHandler.CountyByPostalCode)

	r.POST("/jobs", jobsHandler.Create)
	r.GET("/jobs", jobsHandler.List)
	r.GET("/jobs/:id", jobsHandler.Get)
	r.GET("/jobs/:id/files/:name", jobsHandler.File)

	srv := &http.Server{Addr: cfg.Server.Address, Handler: r}
	go func() {
		log.Info().Str("address", cfg.Server.Address).Msg("api listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown")
	}
	if err := queue.Stop(); err != nil {
		log.Error().Err(err).Msg("job workers stopped with error")
	}
	log.Info().Msg("api stopped")
}
