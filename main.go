package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"client-signal-tracker/consumer"
	"client-signal-tracker/handlers"
	"client-signal-tracker/middleware"
	"client-signal-tracker/models"
	"client-signal-tracker/monitoring"
	"client-signal-tracker/utils"

	"github.com/gin-contrib/static"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func getenv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func main() {
	logger := log.New(os.Stdout, "SIGNALS: ", log.LstdFlags|log.Lshortfile)

	// Optional .env for double-click local use
	_ = godotenv.Load()

	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		if err := utils.InitSentry(dsn); err != nil {
			logger.Printf("Sentry disabled: %v", err)
		} else {
			defer utils.FlushSentry()
		}
	}

	// The database lives in a single file next to the process.
	dbPath := getenv("DB_PATH", "client_data.db")
	repo, err := models.NewSQLiteRepository(dbPath)
	if err != nil {
		logger.Fatalf("Failed to open client store at %s: %v", dbPath, err)
	}
	defer func() {
		if err := repo.Close(); err != nil {
			logger.Printf("Error closing client store: %v", err)
		}
	}()

	// External integrations attach only when configured; the tracker
	// runs standalone without any of them.
	var cache utils.RedisClient
	if os.Getenv("REDIS_HOST") != "" {
		maxRetries := 5
		retryDelay := 3 * time.Second
		for i := 0; i < maxRetries; i++ {
			cache, err = utils.NewRedisClient()
			if err == nil {
				break
			}
			logger.Printf("Attempt %d: Failed to connect to Redis: %v", i+1, err)
			if i < maxRetries-1 {
				time.Sleep(retryDelay)
			}
		}
		if cache == nil {
			logger.Printf("Running without Redis cache after %d attempts", maxRetries)
		} else {
			defer func() {
				if err := cache.Close(); err != nil {
					logger.Printf("Error closing Redis connection: %v", err)
				}
			}()
		}
	}

	var producer utils.KafkaProducer
	if os.Getenv("KAFKA_BROKER") != "" {
		producer, err = utils.NewKafkaProducer()
		if err != nil {
			logger.Printf("Running without Kafka events: %v", err)
		} else {
			defer producer.Close()
		}
	}

	var es utils.ElasticsearchClient
	if os.Getenv("ELASTICSEARCH_URL") != "" {
		es, err = utils.NewElasticsearchClient()
		if err != nil {
			logger.Printf("Running without Elasticsearch search: %v", err)
		}
	}

	if producer != nil && (es != nil || cache != nil) {
		clientConsumer := consumer.NewClientConsumer(cache, es)
		clientConsumer.Start(context.Background())
		defer clientConsumer.Stop()
	}

	monitoring.Init()

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.Use(middleware.SentryMiddleware(), middleware.PrometheusMetrics(), middleware.ErrorHandler())

	// UI shell served at /
	router.Use(static.Serve("/", static.LocalFile(getenv("STATIC_DIR", "static"), true)))

	clientHandler := handlers.NewClientHandler(repo, cache, producer, es)

	api := router.Group("/api")
	{
		api.GET("/health", clientHandler.Health)
		api.GET("/clients", clientHandler.ListClients)
		api.POST("/clients", clientHandler.CreateClient)
		api.GET("/clients/search", clientHandler.SearchClients)
		api.PUT("/clients/:id", clientHandler.UpdateClient)
		api.DELETE("/clients/:id", clientHandler.DeleteClient)
		api.POST("/reset-db", clientHandler.ResetDB)
		api.GET("/export-csv", clientHandler.ExportCSV)
	}

	router.GET("/metrics", gin.WrapH(monitoring.Handler()))

	port := getenv("PORT", "8080")
	logger.Printf("Server is running on port %s", port)
	if err := http.ListenAndServe(":"+port, router); err != nil {
		logger.Fatalf("Server error: %v", err)
	}
}
