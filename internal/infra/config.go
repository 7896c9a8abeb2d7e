package infra

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv            string
	LogLevel          string
	Port              string
	StoragePath       string
	GalleryFile       string
	TokenFile         string
	GeneratedDir      string
	ImageWorkflowFile string
	VideoWorkflowFile string
	ComfyWorkflowFile string
	KindsFile         string
	RunningHubBaseURL string
	RunningHubAPIKey  string
	ComfyUIURL        string
	ChatBaseURL       string
	ChatAPIKey        string
	ChatModel         string
	DatabaseURL       string
	AMQPURL           string
	AMQPExchange      string
	AMQPRoutingKey    string
	HTTPReadTimeout   time.Duration
	HTTPWriteTimeout  time.Duration
	HTTPIdleTimeout   time.Duration
	RateLimitPerMin   int
	CORSOrigins       []string
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
// File locations default to children of STORAGE_PATH.
func LoadConfig() (*Config, error) {
	storagePath := getEnv("STORAGE_PATH", "./storage")
	cfg := &Config{
		AppEnv:            getEnv("APP_ENV", "development"),
		LogLevel:          os.Getenv("LOG_LEVEL"),
		Port:              getEnv("PORT", "8080"),
		StoragePath:       storagePath,
		GalleryFile:       getEnv("GALLERY_FILE", filepath.Join(storagePath, "gallery.json")),
		TokenFile:         getEnv("TOKEN_FILE", filepath.Join(storagePath, "token.json")),
		GeneratedDir:      getEnv("GENERATED_DIR", filepath.Join(storagePath, "generated")),
		ImageWorkflowFile: getEnv("IMAGE_WORKFLOW_FILE", filepath.Join(storagePath, "imageWorkflow.json")),
		VideoWorkflowFile: getEnv("VIDEO_WORKFLOW_FILE", filepath.Join(storagePath, "videoWorkflow.json")),
		ComfyWorkflowFile: getEnv("COMFYUI_WORKFLOW_FILE", filepath.Join(storagePath, "comfyui.json")),
		KindsFile:         os.Getenv("KINDS_FILE"),
		RunningHubBaseURL: getEnv("RUNNINGHUB_BASE_URL", "https://www.runninghub.ai"),
		RunningHubAPIKey:  os.Getenv("RUNNINGHUB_API_KEY"),
		ComfyUIURL:        os.Getenv("COMFYUI_API_URL"),
		ChatBaseURL:       getEnv("CHAT_BASE_URL", "https://yunwu.ai/v1"),
		ChatAPIKey:        os.Getenv("YUNWU_API_KEY"),
		ChatModel:         getEnv("CHAT_MODEL", "grok-4-fast"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		AMQPURL:           os.Getenv("AMQP_URL"),
		AMQPExchange:      getEnv("AMQP_EXCHANGE", "generation"),
		AMQPRoutingKey:    getEnv("AMQP_ROUTING_KEY", "generation.completed"),
		HTTPReadTimeout:   time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:  time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:   time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:   getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		CORSOrigins:       splitList(os.Getenv("CORS_ORIGINS")),
	}

	if _, err := strconv.Atoi(cfg.Port); err != nil {
		return nil, fmt.Errorf("PORT must be numeric: %q", cfg.Port)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
