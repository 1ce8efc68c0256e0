package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"catalog-service/internal/config"
	"catalog-service/internal/events"
	"catalog-service/internal/handlers"
	"catalog-service/internal/importer"
	"catalog-service/internal/middleware"
	"catalog-service/internal/progress"
	"catalog-service/internal/repository"
)

// @title Catalog Service API
// @version 1.0.0
// @description Product catalog with spreadsheet import and live progress streaming

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	// Initialize configuration
	cfg := config.Load()

	// Initialize database
	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if cfg.Environment == "production" {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(logrus.DebugLevel)
	}

	// Initialize Redis client
	var redisClient *redis.Client
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Printf("WARNING: Failed to parse Redis URL: %v (continuing without Redis)", err)
	} else {
		redisClient = redis.NewClient(redisOpts)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Printf("WARNING: Failed to connect to Redis: %v (caching will be disabled)", err)
			redisClient = nil
		} else {
			log.Println("✓ Redis connected successfully")
		}
		cancel()
	}

	// Initialize repository
	catalogRepo := repository.NewCatalogRepository(db, redisClient)

	// Initialize event publisher only if NATS_URL is set
	var eventsPublisher *events.Publisher
	if cfg.NATSURL != "" {
		eventsPublisher, err = events.NewPublisher(cfg.NATSURL, logger)
		if err != nil {
			log.Printf("WARNING: Failed to initialize events publisher: %v (continuing without event publishing)", err)
		} else {
			log.Println("✓ Events publisher initialized (NATS connected)")
		}
	} else {
		log.Println("NATS_URL not set, skipping event publishing initialization")
	}
	defer eventsPublisher.Close()

	// Import pipeline wiring
	registry := progress.NewRegistry(cfg.ImportGraceDelay)
	normalizer := importer.NewNormalizer(cfg.ImportAliases, cfg.WeightMarkerPhrase)
	runner := importer.NewRunner(catalogRepo, registry, normalizer, eventsPublisher, logger, cfg.FallbackCategory, cfg.ImportProgressEvery)

	// Background import jobs are drained on shutdown so terminal progress
	// events are always emitted.
	var jobs sync.WaitGroup

	// Initialize handlers
	productsHandler := handlers.NewProductsHandler(catalogRepo, eventsPublisher, logger, cfg.DefaultPageSize, cfg.MaxPageSize)
	categoriesHandler := handlers.NewCategoriesHandler(catalogRepo, logger)
	importHandler := handlers.NewImportHandler(runner, registry, &jobs, logger, cfg.StreamKeepAlive)

	// Initialize Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.AllowedOrigins))

	// Health check endpoints (no auth required)
	router.GET("/health", handlers.HealthCheck)
	router.GET("/ready", handlers.HealthCheck)

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := router.Group("/api/v1")

	// Public storefront routes
	storefront := api.Group("/storefront")
	{
		storefront.GET("/categories", categoriesHandler.GetCategories)
		storefront.GET("/categories/counts", productsHandler.GetProductCounts)
		storefront.GET("/categories/:id", categoriesHandler.GetCategory)
		storefront.GET("/categories/:id/products", productsHandler.GetProductsByCategory)
		storefront.GET("/products/featured", productsHandler.GetFeaturedProducts)
	}

	// Progress streaming is unauthenticated: the browser EventSource API
	// cannot set an Authorization header, and session ids are opaque.
	api.GET("/products/import/progress/:sessionId", importHandler.StreamProgress)

	// Admin routes
	admin := api.Group("")
	admin.Use(middleware.AuthRequired(cfg.JWTSecret))
	{
		products := admin.Group("/products")
		{
			products.GET("", productsHandler.GetProducts)
			products.GET("/featured", productsHandler.GetFeaturedProducts)
			products.GET("/counts", productsHandler.GetProductCounts)
			products.GET("/category/:id", productsHandler.GetProductsByCategory)
			products.GET("/:id", productsHandler.GetProduct)
			products.POST("", productsHandler.CreateProduct)
			products.PUT("/:id", productsHandler.UpdateProduct)
			products.DELETE("/:id", productsHandler.DeleteProduct)
			products.POST("/import", importHandler.ImportProducts)
		}

		categories := admin.Group("/categories")
		{
			categories.GET("", categoriesHandler.GetCategories)
			categories.GET("/:id", categoriesHandler.GetCategory)
			categories.POST("", categoriesHandler.CreateCategory)
			categories.PUT("/:id", categoriesHandler.UpdateCategory)
			categories.DELETE("/:id", categoriesHandler.DeleteCategory)
		}
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("Catalog service starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	// Let running imports finish before the process exits.
	done := make(chan struct{})
	go func() {
		jobs.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(30 * time.Second):
		log.Println("Timed out waiting for import jobs to finish")
	}

	log.Println("Server exited")
}
