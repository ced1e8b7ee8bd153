package main

import (
	"context"
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/classroom-sync-api/api/swagger"
	"github.com/noah-isme/classroom-sync-api/internal/handler"
	"github.com/noah-isme/classroom-sync-api/internal/middleware"
	"github.com/noah-isme/classroom-sync-api/internal/repository"
	"github.com/noah-isme/classroom-sync-api/internal/service"
	"github.com/noah-isme/classroom-sync-api/pkg/cache"
	"github.com/noah-isme/classroom-sync-api/pkg/config"
	"github.com/noah-isme/classroom-sync-api/pkg/database"
	"github.com/noah-isme/classroom-sync-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/classroom-sync-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/classroom-sync-api/pkg/middleware/requestid"
)

// @title Classroom Sync API
// @version 0.1.0
// @description Class rosters, assessments and grade synchronisation across sibling subject classes
// @BasePath /
// @schemes http

type redisPinger struct {
	client *redis.Client
}

func (p redisPinger) PingContext(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("database unavailable", "error", err)
	}
	defer db.Close()

	if err := database.Migrate(context.Background(), db, logr); err != nil {
		logr.Sugar().Fatalw("schema migration failed", "error", err)
	}

	checks := map[string]handler.Pinger{"postgres": db}

	var redisClient *redis.Client
	if cfg.Cache.Enabled {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Fatalw("redis unavailable", "error", err)
		}
		defer redisClient.Close()
		checks["redis"] = redisPinger{client: redisClient}
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(repository.NewCacheRepository(redisClient, logr), metricsSvc, cfg.Cache.ReportTTL, logr, cfg.Cache.Enabled)

	classRepo := repository.NewClassRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	resourceRepo := repository.NewResourceRepository(db)
	calendarRepo := repository.NewCalendarRepository(db)

	calendarSvc := service.NewCalendarService(calendarRepo, classRepo, validate, logr)
	classSvc := service.NewClassService(classRepo, enrollmentRepo, cacheSvc, cfg.Cache.ReportTTL, validate, logr)
	enrollmentSvc := service.NewEnrollmentService(classRepo, enrollmentRepo, studentRepo, cacheSvc, metricsSvc, cfg.Roster.RegistrationCodePrefix, validate, logr)
	importSvc := service.NewRosterImportService(enrollmentSvc, cfg.Roster.MaxImportRows, logr)
	assessmentSvc := service.NewAssessmentService(classRepo, enrollmentRepo, calendarSvc, cacheSvc, metricsSvc, service.AssessmentServiceConfig{
		Concurrency:  cfg.Grading.Concurrency,
		CalendarSync: cfg.Calendar.SyncEnabled,
	}, validate, logr)
	resourceSvc := service.NewResourceService(resourceRepo, classRepo, service.NewResourceMatcher(cfg.Roster.GeneralSubject), cacheSvc, cfg.Cache.ResourceTTL, validate, logr)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	handler.RegisterRoutes(r, cfg.APIPrefix, handler.Handlers{
		Classes:     handler.NewClassHandler(classSvc),
		Enrollments: handler.NewEnrollmentHandler(enrollmentSvc, importSvc),
		Assessments: handler.NewAssessmentHandler(assessmentSvc),
		Resources:   handler.NewResourceHandler(resourceSvc, calendarSvc),
		Metrics:     handler.NewMetricsHandler(metricsSvc, checks),
	})

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env, "cache", cfg.Cache.Enabled)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
