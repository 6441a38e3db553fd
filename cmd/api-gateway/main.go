package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/roomboard/api/swagger"
	"github.com/noah-isme/roomboard/internal/handler"
	"github.com/noah-isme/roomboard/internal/middleware"
	"github.com/noah-isme/roomboard/internal/models"
	"github.com/noah-isme/roomboard/internal/repository"
	"github.com/noah-isme/roomboard/internal/service"
	"github.com/noah-isme/roomboard/pkg/cache"
	"github.com/noah-isme/roomboard/pkg/config"
	"github.com/noah-isme/roomboard/pkg/database"
	"github.com/noah-isme/roomboard/pkg/logger"
	corsmiddleware "github.com/noah-isme/roomboard/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/roomboard/pkg/middleware/requestid"
	"github.com/noah-isme/roomboard/pkg/storage"
)

// @title Roomboard API
// @version 1.0.0
// @description Room/day scheduling board for multi-day training events
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	validate := validator.New()
	metrics := service.NewMetricsService()

	var store service.BoardStore
	if cfg.Board.PersistenceEnabled {
		db, err := database.NewPostgres(cfg.Database)
		if err != nil {
			logr.Fatal("failed to connect database", zap.Error(err))
		}
		defer db.Close() //nolint:errcheck
		repo := repository.NewBoardRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			logr.Fatal("failed to prepare board schema", zap.Error(err))
		}
		store = repo
	}

	var cacheRepo service.CacheRepository
	if cfg.Board.ReadCacheEnabled {
		client, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, read cache disabled", zap.Error(err))
		} else {
			redisRepo := repository.NewCacheRepository(client, logr)
			defer redisRepo.Close() //nolint:errcheck
			cacheRepo = redisRepo
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Board.ReadCacheTTL, logr, cacheRepo != nil)

	board := service.NewBoardService(store, cacheSvc, metrics, validate, logr, service.BoardServiceConfig{
		Persistence: cfg.Board.PersistenceEnabled,
		Debounce:    cfg.Board.PersistDebounce,
		CacheTTL:    cfg.Board.ReadCacheTTL,
		DateLayouts: cfg.Board.DateLayouts,
	})
	if err := board.Start(ctx); err != nil {
		logr.Fatal("failed to start board", zap.Error(err))
	}

	var archive service.FileStorage
	if cfg.Board.ExportArchiveDir != "" {
		local, err := storage.NewLocalStorage(cfg.Board.ExportArchiveDir)
		if err != nil {
			logr.Fatal("failed to prepare export archive", zap.Error(err))
		}
		archive = local
	}
	exports := service.NewExportService(board, archive, validate, logr, nil, nil, nil)
	auth := service.NewAuthService(validate, logr, service.AuthConfig{AccessTokenSecret: cfg.JWT.Secret})

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	metricsHandler := handler.NewMetricsHandler(metrics, board)
	r.GET("/health", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	registerRoutes(r.Group(cfg.APIPrefix), routeDeps{
		auth:    auth,
		board:   handler.NewBoardHandler(board),
		slots:   handler.NewSlotHandler(board),
		exports: handler.NewExportHandler(exports),
		metrics: metricsHandler,
		logger:  logr,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "persistence", cfg.Board.PersistenceEnabled)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("http shutdown failed", zap.Error(err))
	}
	if err := board.Stop(shutdownCtx); err != nil {
		logr.Error("final board save failed", zap.Error(err))
	}
}

type routeDeps struct {
	auth    middleware.TokenValidator
	board   *handler.BoardHandler
	slots   *handler.SlotHandler
	exports *handler.ExportHandler
	metrics *handler.MetricsHandler
	logger  *zap.Logger
}

func registerRoutes(api *gin.RouterGroup, d routeDeps) {
	api.Use(middleware.JWT(d.auth), middleware.WithResponseMeta())

	// Reads are open to every role.
	api.GET("/events", d.board.ListEvents)
	api.GET("/events/:id/blocked-days", d.board.BlockedDays)
	api.GET("/events/:id/occupancy", d.board.Occupancy)
	api.GET("/events/:id/rooms/:room/gaps", d.slots.Gaps)
	api.GET("/courses", d.board.ListCourses)
	api.GET("/courses/duplicates", d.board.ListDuplicates)
	api.GET("/placements", d.board.ListPlacements)
	api.POST("/placements/check", d.board.CheckPlacement)
	api.GET("/slots", d.slots.ListSlots)
	api.GET("/reports/conflicts", d.board.Conflicts)
	api.GET("/exports", d.exports.Export)
	api.GET("/board/status", d.board.Status)

	editors := api.Group("")
	editors.Use(middleware.RequireRoles(models.RoleAdmin, models.RoleEditor), middleware.Audit(d.logger))
	editors.PUT("/events", d.board.LoadEvents)
	editors.PUT("/events/:id/rooms", d.board.ChangeRoomCount)
	editors.PUT("/courses", d.board.LoadCourses)
	editors.DELETE("/courses/:id", d.board.RemoveCourse)
	editors.POST("/courses/:id/resolve", d.board.ResolveDuplicate)
	editors.PUT("/unavailability", d.board.LoadUnavailability)
	editors.PUT("/placements", d.board.ImportPlacements)
	editors.POST("/placements", d.board.Place)
	editors.POST("/placements/assign", d.board.Assign)
	editors.POST("/placements/:eventId/:courseId/finalize", d.board.Finalize)
	editors.POST("/placements/:eventId/:courseId/unplace", d.board.Unplace)
	editors.DELETE("/placements/:eventId/:courseId", d.board.Remove)
	editors.POST("/slots", d.slots.OpenSlot)
	editors.DELETE("/slots/:id", d.slots.CloseSlot)
	editors.POST("/slots/:id/candidates", d.slots.AddCandidate)
	editors.POST("/slots/:id/candidates/:index/promote", d.slots.Promote)
	editors.DELETE("/slots/:id/candidates/:index", d.slots.Discard)

	admins := api.Group("")
	admins.Use(middleware.RequireRoles(models.RoleAdmin), middleware.Audit(d.logger))
	admins.POST("/board/rebuild", d.board.Rebuild)
	admins.GET("/metrics/summary", d.metrics.Summary)
}
