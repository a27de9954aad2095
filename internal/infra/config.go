package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Provider names accepted by PROVIDER.
const (
	ProviderGemini    = "gemini"
	ProviderSynthetic = "synthetic"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string
	StoragePath string
	GeoIPDBPath string
	ProfilePath string
	LogFile     string

	Provider          string
	GeminiAPIKey      string
	GeminiBaseURL     string
	GeminiPlanModel   string
	GeminiImageModel  string
	GeminiVideoModel  string
	GeminiSpeechModel string
	VideoResolution   string

	VideoPollInterval time.Duration
	VideoPollTimeout  time.Duration
	VideoMaxPolls     int
	ProgressInterval  time.Duration
	AudioSampleRate   int
	FanOutLimit       int
	MaxUploadBytes    int64

	HTTPReadTimeout     time.Duration
	HTTPWriteTimeout    time.Duration
	HTTPIdleTimeout     time.Duration
	ProviderHTTPTimeout time.Duration
	RateLimitPerMin     int
	CORSAllowedOrigins  []string
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:      getEnv("APP_ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		StoragePath: getEnv("STORAGE_PATH", "./data/assets"),
		GeoIPDBPath: os.Getenv("GEOIP_DB_PATH"),
		ProfilePath: os.Getenv("PROFILE_PATH"),
		LogFile:     os.Getenv("LOG_FILE"),

		Provider:          strings.ToLower(getEnv("PROVIDER", ProviderGemini)),
		GeminiAPIKey:      os.Getenv("GEMINI_API_KEY"),
		GeminiBaseURL:     os.Getenv("GEMINI_BASE_URL"),
		GeminiPlanModel:   getEnv("GEMINI_PLAN_MODEL", "gemini-3-flash-preview"),
		GeminiImageModel:  getEnv("GEMINI_IMAGE_MODEL", "gemini-2.5-flash-image"),
		GeminiVideoModel:  getEnv("GEMINI_VIDEO_MODEL", "veo-3.1-fast-generate-preview"),
		GeminiSpeechModel: getEnv("GEMINI_SPEECH_MODEL", "gemini-2.5-flash-preview-tts"),
		VideoResolution:   getEnv("VIDEO_RESOLUTION", "720p"),

		VideoPollInterval: getEnvDuration("VIDEO_POLL_INTERVAL", 10*time.Second),
		VideoPollTimeout:  getEnvDuration("VIDEO_POLL_TIMEOUT", 10*time.Minute),
		VideoMaxPolls:     getEnvInt("VIDEO_MAX_POLLS", 0),
		ProgressInterval:  getEnvDuration("PROGRESS_INTERVAL", 4*time.Second),
		AudioSampleRate:   getEnvInt("AUDIO_SAMPLE_RATE", 24000),
		FanOutLimit:       getEnvInt("FANOUT_LIMIT", 0),
		MaxUploadBytes:    int64(getEnvInt("MAX_UPLOAD_MB", 20)) << 20,

		HTTPReadTimeout:     time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 30)),
		HTTPWriteTimeout:    time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 660)),
		HTTPIdleTimeout:     time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		ProviderHTTPTimeout: time.Second * time.Duration(getEnvInt("PROVIDER_HTTP_TIMEOUT_SECONDS", 120)),
		RateLimitPerMin:     getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		CORSAllowedOrigins:  splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
	}

	switch cfg.Provider {
	case ProviderGemini, ProviderSynthetic:
	default:
		return nil, fmt.Errorf("PROVIDER must be %q or %q, got %q", ProviderGemini, ProviderSynthetic, cfg.Provider)
	}
	if cfg.VideoPollInterval <= 0 {
		return nil, fmt.Errorf("VIDEO_POLL_INTERVAL must be positive")
	}
	if cfg.AudioSampleRate <= 0 {
		return nil, fmt.Errorf("AUDIO_SAMPLE_RATE must be positive")
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

// getEnvDuration accepts Go durations ("10s") or bare seconds ("10").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if i, err := strconv.Atoi(v); err == nil {
		return time.Duration(i) * time.Second
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
