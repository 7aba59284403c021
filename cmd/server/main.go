package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"skinny-studio-backend/internal/config"
	"skinny-studio-backend/internal/database"
	"skinny-studio-backend/internal/generation"
	"skinny-studio-backend/internal/handlers"
	"skinny-studio-backend/internal/middleware"
	"skinny-studio-backend/internal/repository"
	"skinny-studio-backend/internal/router"
	"skinny-studio-backend/internal/services"
	"skinny-studio-backend/internal/usage"
	"skinny-studio-backend/internal/websocket"
	"skinny-studio-backend/internal/worker"
)

func main() {
	log.Println("🚀 Starting Skinny Studio Backend...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	log.Println("✓ Environment variables loaded")

	// ──── Step 2: Initialize PostgreSQL Connection Pool ────
	pool, err := database.NewPostgresPool(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("✗ PostgreSQL connection failed: %v", err)
	}
	defer pool.Close()
	log.Println("✓ PostgreSQL connected")

	// ──── Step 3: Initialize Redis Clients ────
	redisClients, err := database.NewRedisClients(cfg.RedisURL)
	if err != nil {
		log.Fatalf("✗ Redis connection failed: %v", err)
	}
	defer redisClients.Close()
	log.Println("✓ Redis connected")

	// ──── Step 4: Run Database Migrations ────
	if err := database.RunMigrations(pool, "migrations"); err != nil {
		log.Fatalf("✗ Database migration failed: %v", err)
	}
	log.Println("✓ Database migrations applied")

	// ──── Initialize Repositories ────
	userRepo := repository.NewUserRepo(pool)
	skillRepo := repository.NewSkillRepo(pool)
	generationRepo := repository.NewGenerationRepo(pool)
	usageRepo := repository.NewUsageRepo(pool)

	// ──── Initialize Services ────
	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret)
	geminiService := services.NewGeminiService(cfg.GeminiAPIKey, cfg.GeminiChatModel)
	replicateClient := services.NewReplicateClient(cfg.ReplicateAPIToken)
	authService := services.NewAuthService(userRepo, redisClients.Queue, jwtAuth, cfg.SignupCreditsCents)
	pollQueue := worker.NewQueue(redisClients.Queue)
	dispatcher := generation.NewDispatcher(cfg.GenerationEndpoint)
	usageRecorder := usage.NewRecorder(usageRepo)
	log.Println("✓ Gemini and Replicate clients initialized")

	// ──── Initialize Handlers ────
	authHandler := handlers.NewAuthHandler(authService)
	chatHandler := handlers.NewChatHandler(geminiService, skillRepo, dispatcher, usageRecorder)
	generationHandler := handlers.NewGenerationHandler(userRepo, generationRepo, geminiService, replicateClient, pollQueue, cfg.GeminiAPIKey)
	skillHandler := handlers.NewSkillHandler(skillRepo)

	// ──── Step 5: Start Poll Worker Pool ────
	workerPool := worker.NewPool(pollQueue, redisClients.Queue, replicateClient, generationRepo, cfg.WorkerCount)
	workerPool.Start()
	log.Printf("✓ Poll worker pool started (%d goroutines)", cfg.WorkerCount)

	// ──── Step 6: Start WebSocket Hub ────
	wsHub := websocket.NewHub(redisClients.PubSub, jwtAuth)
	log.Println("✓ WebSocket hub started")

	// ──── Step 7: Start HTTP Server ────
	r := router.New(
		jwtAuth,
		authHandler,
		chatHandler,
		generationHandler,
		skillHandler,
		wsHub,
		cfg.FrontendURL,
	)

	server := &http.Server{
		Addr:        fmt.Sprintf(":%s", cfg.Port),
		Handler:     r,
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: chat responses stream over SSE for as long as
		// the model talks.
		IdleTimeout: 60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")
		workerPool.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("✓ Skinny Studio Backend ready on http://localhost:%s", cfg.Port)
	log.Printf("  API: http://localhost:%s/api/v1", cfg.Port)
	log.Printf("  WS:  ws://localhost:%s/api/v1/ws", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}
