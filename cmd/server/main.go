package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"meetsync/internal/cache"
	"meetsync/internal/config"
	"meetsync/internal/repository"
	"meetsync/internal/service"
	"meetsync/internal/transport/rest"
	"meetsync/internal/transport/ws"
)

func main() {
	log.Println("started")
	ctx := context.Background()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	aiConfig := config.DefaultAIConfig()
	log.Printf("Summarizer model: %s", aiConfig.Model)
	if aiConfig.IsEnabled() {
		log.Println("Gemini API key: configured")
	} else {
		log.Println("Gemini API key: NOT SET (summaries will use fallback text)")
	}

	// MongoDB connection
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer mongoClient.Disconnect(ctx)

	// Ping MongoDB
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := mongoClient.Ping(pingCtx, nil); err != nil {
		log.Fatal("Failed to ping MongoDB:", err)
	}
	log.Println("Connected to MongoDB")

	db := mongoClient.Database(cfg.MongoDatabase)

	// Redis connection
	redisAddr := strings.TrimPrefix(cfg.RedisAddr, "redis://")

	rdb := redis.NewClient(&redis.Options{
		Addr: redisAddr,
	})
	defer rdb.Close()

	// Ping Redis
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Fatal("Failed to ping Redis:", err)
	}
	log.Println("Connected to Redis")

	// Initialize WebSocket hub
	wsHub := ws.NewHub()
	log.Println("WebSocket hub started")

	// Initialize repositories and caches
	meetingRepo := repository.NewMeetingRepo(db)
	meetingCache := cache.NewMeetingCache(cfg.CacheTTL)
	defer meetingCache.Stop()
	sessionCache := cache.NewSessionCache(rdb)

	// Initialize services
	summarizer := service.NewSummarizerService(aiConfig)
	meetingSvc := service.NewMeetingService(meetingRepo, meetingCache, summarizer)

	// Inject broadcaster (wsHub implements service.Broadcaster)
	meetingSvc.SetBroadcaster(wsHub)

	// Create router with container
	container := &rest.Container{
		MeetingService: meetingSvc,
		SessionCache:   sessionCache,
		WSHub:          wsHub,
	}

	router := rest.NewRouter(container)

	// Start server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("Server starting on :%s", cfg.Port)
		log.Println("Endpoints:")
		log.Println("  POST /meetings")
		log.Println("  POST /meetings/end")
		log.Println("  GET  /meetings/{id}")
		log.Println("  WS   /ws")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("ListenAndServe:", err)
		}
	}()

	// Wait for interrupt
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}
