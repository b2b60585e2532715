package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App    AppConfig
	Keys   APIKeys
	Ai     AIConfig
	Limits LimitsConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	ServiceName        string
	PortalName         string
	LogFilePath        string
	UsageLogFilePath   string
	CorsAllowedOrigins string
	ProxyHeader        string // e.g. "X-Forwarded-For" when running behind a reverse proxy
	RedisURL           string // empty keeps the client throttle in memory
}

type APIKeys struct {
	GoogleGemini string
}

type AIConfig struct {
	LLMProvider       string // "gemini" or "ollama"
	LLMModel          string
	GeminiBaseURL     string
	OllamaBaseURL     string
	MaxOutputTokens   int
	Temperature       float64
	TopP              float64
	TopK              int
	CompletionTimeout time.Duration
	PromptMaxChars    int
}

type LimitsConfig struct {
	QuotaCeiling      int
	QuotaWindow       time.Duration
	ClientLimit       int
	ClientWindow      time.Duration
	MaxHistoryEntries int
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			ServiceName:        getEnv("SERVICE_NAME", "citizen-portal-assistant"),
			PortalName:         getEnv("PORTAL_NAME", "Citizen Services Portal"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			UsageLogFilePath:   getEnv("USAGE_LOG_FILE_PATH", "logs/usage.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			ProxyHeader:        getEnv("PROXY_HEADER", ""),
			RedisURL:           getEnv("REDIS_URL", ""),
		},
		Keys: APIKeys{
			GoogleGemini: getEnv("GOOGLE_GEMINI_API_KEY", ""),
		},
		Ai: AIConfig{
			LLMProvider:       getEnv("LLM_PROVIDER", "gemini"),
			LLMModel:          getEnv("LLM_MODEL", ""), // empty picks the provider default
			GeminiBaseURL:     getEnv("GEMINI_BASE_URL", ""),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			MaxOutputTokens:   getEnvAsInt("LLM_MAX_OUTPUT_TOKENS", 500),
			Temperature:       getEnvAsFloat("LLM_TEMPERATURE", 0.7),
			TopP:              getEnvAsFloat("LLM_TOP_P", 0.95),
			TopK:              getEnvAsInt("LLM_TOP_K", 40),
			CompletionTimeout: getEnvAsSeconds("COMPLETION_TIMEOUT_SECONDS", 25),
			PromptMaxChars:    getEnvAsInt("PROMPT_MAX_CHARS", 12000),
		},
		Limits: LimitsConfig{
			QuotaCeiling:      getEnvAsInt("QUOTA_CEILING", 15),
			QuotaWindow:       getEnvAsSeconds("QUOTA_WINDOW_SECONDS", 60),
			ClientLimit:       getEnvAsInt("CLIENT_RATE_LIMIT", 10),
			ClientWindow:      getEnvAsSeconds("CLIENT_RATE_WINDOW_SECONDS", 60),
			MaxHistoryEntries: getEnvAsInt("MAX_HISTORY_ENTRIES", 20),
		},
	}
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsSeconds(key string, fallback int) time.Duration {
	return time.Duration(getEnvAsInt(key, fallback)) * time.Second
}
