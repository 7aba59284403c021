package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port string
	Env  string

	// Database
	DatabaseURL string

	// Redis
	RedisURL string

	// JWT
	JWTSecret string

	// Gemini (platform key + orchestrator model)
	GeminiAPIKey    string
	GeminiChatModel string

	// Replicate
	ReplicateAPIToken string

	// Generation endpoint the chat dispatcher calls (self by default)
	GenerationEndpoint string

	// Workers
	WorkerCount int

	// Billing
	SignupCreditsCents int64

	// Frontend
	FrontendURL string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	port := getEnvOrDefault("PORT", "8080")

	cfg := &Config{
		Port:               port,
		Env:                getEnvOrDefault("ENV", "development"),
		DatabaseURL:        mustGetEnv("DATABASE_URL"),
		RedisURL:           mustGetEnv("REDIS_URL"),
		JWTSecret:          mustGetEnv("JWT_SECRET"),
		GeminiAPIKey:       getEnvOrDefault("GEMINI_API_KEY", ""),
		GeminiChatModel:    getEnvOrDefault("GEMINI_CHAT_MODEL", "gemini-2.5-flash"),
		ReplicateAPIToken:  mustGetEnv("REPLICATE_API_TOKEN"),
		GenerationEndpoint: getEnvOrDefault("GENERATION_ENDPOINT", fmt.Sprintf("http://localhost:%s/api/v1/generations", port)),
		WorkerCount:        getEnvAsIntOrDefault("WORKER_COUNT", 5),
		SignupCreditsCents: int64(getEnvAsIntOrDefault("SIGNUP_CREDITS_CENTS", 200)),
		FrontendURL:        getEnvOrDefault("FRONTEND_URL", "http://localhost:5173"),
	}

	return cfg
}

func mustGetEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return val
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}
