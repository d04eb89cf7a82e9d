package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// geminiOpenAIBase is Google's OpenAI-compatible endpoint, used when the
// deployment carries a GEMINI_API_KEY instead of an OpenAI one.
const geminiOpenAIBase = "https://generativelanguage.googleapis.com/v1beta/openai/"

type Config struct {
	Port        string
	DatabaseURL string

	AgentAPIKey  string
	AgentModel   string
	AgentBaseURL string
	AgentTimeout time.Duration

	SecretKey      string
	AllowedOrigins []string
}

func Load() *Config {
	cfg := &Config{
		Port:        getEnv("PORT", "8000"),
		DatabaseURL: getEnv("DATABASE_URL", "sqlite://task_management.db"),
		SecretKey:   getEnv("SECRET_KEY", ""),
	}

	cfg.AgentAPIKey = os.Getenv("OPENAI_API_KEY")
	cfg.AgentModel = getEnv("OPENAI_MODEL", "gpt-4o-mini")
	cfg.AgentBaseURL = os.Getenv("OPENAI_BASE_URL")

	// Fall back to a Gemini credential over the OpenAI-compatible endpoint.
	if cfg.AgentAPIKey == "" {
		if key := os.Getenv("GEMINI_API_KEY"); key != "" {
			cfg.AgentAPIKey = key
			if cfg.AgentBaseURL == "" {
				cfg.AgentBaseURL = geminiOpenAIBase
			}
			if os.Getenv("OPENAI_MODEL") == "" {
				cfg.AgentModel = "gemini-2.0-flash"
			}
		}
	}

	timeoutMS, err := strconv.Atoi(os.Getenv("AGENT_TIMEOUT_MS"))
	if err != nil || timeoutMS <= 0 {
		timeoutMS = 30000
	}
	cfg.AgentTimeout = time.Duration(timeoutMS) * time.Millisecond

	origins := getEnv("ALLOWED_ORIGINS", "http://localhost:3000,http://127.0.0.1:3000")
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
		}
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}
