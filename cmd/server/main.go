package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gymcore_backend/internal/config"
	"gymcore_backend/internal/database"
	"gymcore_backend/internal/middleware"
	"gymcore_backend/internal/router"
	"gymcore_backend/internal/services"
	"gymcore_backend/internal/telemetry"
	"gymcore_backend/internal/workers"
	"gymcore_backend/pkg/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

const (
	serviceName     = "gymcore-backend"
	shutdownTimeout = 10 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize Logger
	utils.InitLogger(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.InitTracing(ctx, serviceName, cfg.OTLPEndpoint)
	if err != nil {
		utils.LogError(err, "Failed to initialize tracing")
		log.Fatalf("Failed to initialize tracing: %v", err)
	}

	// Initialize Database
	db, err := database.Open(ctx, cfg.DSN())
	if err != nil {
		utils.LogError(err, "Failed to connect to database")
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	if cfg.ApplySchema {
		if err := database.ApplySchema(ctx, db); err != nil {
			utils.LogError(err, "Failed to apply database schema")
			log.Fatalf("Failed to apply database schema: %v", err)
		}
	}
	utils.LogInfo("Database initialized", map[string]interface{}{"host": cfg.DBHost, "name": cfg.DBName})

	cal := services.NewCalendar(cfg.Location, nil)
	jwt := utils.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL)
	svc := router.NewServices(db, cal, jwt)

	engine := gin.New()
	engine.Use(gin.Recovery(), middleware.TracingMiddleware())

	// Add GinLogger middleware for request logging
	engine.Use(utils.GinLogger())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSAllowedOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	corsConfig.AllowCredentials = true
	engine.Use(cors.New(corsConfig))

	// Setup all application routes
	router.Setup(engine, router.Dependencies{
		Services:          svc,
		JWT:               jwt,
		Location:          cfg.Location,
		ScanRatePerMinute: cfg.ScanRatePerMinute,
	})

	housekeeper := workers.NewHousekeeper(svc.Memberships, svc.Attendance, cfg.HousekeepingInterval)
	go housekeeper.Start(ctx)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		utils.LogInfo("Server starting", map[string]interface{}{"port": cfg.Port, "timezone": cfg.Location.String()})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.LogError(err, "Failed to start server")
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	utils.LogInfo("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		utils.LogError(err, "Server forced to shut down")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		utils.LogError(err, "Failed to flush traces")
	}
}
