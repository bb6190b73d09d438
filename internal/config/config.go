package config

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
	"github.com/joho/godotenv"
)

// Config aggregates all service configuration, loaded from the environment.
type Config struct {
	Port        string
	MongoURI    string
	DBName      string
	JWTSecret   string
	TokenExpiry time.Duration
	AI          AIConfig
}

// AIConfig holds the reply-generation model settings.
type AIConfig struct {
	APIKey      string
	Model       string
	BaseURL     string
	Temperature *float32
	MaxTokens   *int
	Timeout     time.Duration
}

// LoadConfig reads configuration from a .env file (if present) and the
// process environment.
func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	tokenExpiry := 24 * time.Hour
	if raw := strings.TrimSpace(os.Getenv("TOKEN_EXPIRY_HOURS")); raw != "" {
		if hours, err := strconv.Atoi(raw); err == nil && hours > 0 {
			tokenExpiry = time.Duration(hours) * time.Hour
		}
	}

	return &Config{
		Port:        getEnvOrDefault("PORT", "8080"),
		MongoURI:    getEnvOrDefault("MONGO_URI", "mongodb://localhost:27017"),
		DBName:      getEnvOrDefault("DB_NAME", "maumlog"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		TokenExpiry: tokenExpiry,
		AI:          loadAIConfig(),
	}
}

func loadAIConfig() AIConfig {
	timeoutSeconds := 30
	if raw := strings.TrimSpace(os.Getenv("AI_TIMEOUT_SECONDS")); raw != "" {
		if val, err := strconv.Atoi(raw); err == nil && val > 0 {
			timeoutSeconds = val
		}
	}

	var temperature *float32
	if raw := strings.TrimSpace(os.Getenv("AI_TEMPERATURE")); raw != "" {
		if val, err := strconv.ParseFloat(raw, 32); err == nil {
			f := float32(val)
			temperature = &f
		}
	}

	var maxTokens *int
	if raw := strings.TrimSpace(os.Getenv("AI_MAX_TOKENS")); raw != "" {
		if val, err := strconv.Atoi(raw); err == nil && val > 0 {
			maxTokens = &val
		}
	}

	return AIConfig{
		APIKey:      strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		Model:       strings.TrimSpace(os.Getenv("AI_MODEL")),
		BaseURL:     getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Temperature: temperature,
		MaxTokens:   maxTokens,
		Timeout:     time.Duration(timeoutSeconds) * time.Second,
	}
}

// Enabled reports whether the model credentials are configured.
func (c AIConfig) Enabled() bool {
	return c.APIKey != "" && c.Model != ""
}

// NewChatModel builds the Ark chat model from this configuration.
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("AI model not configured: ARK_API_KEY and AI_MODEL are required")
	}

	return ark.NewChatModel(ctx, &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		APIKey:      c.APIKey,
		Model:       c.Model,
		Temperature: c.Temperature,
		MaxTokens:   c.MaxTokens,
	})
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}
