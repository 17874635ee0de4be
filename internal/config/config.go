package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL string `env:"DATABASE_URL,required"`
	DBMaxConns  int32  `env:"DB_MAX_CONNS" envDefault:"10"`

	HTTPAddr     string        `env:"HTTP_ADDR" envDefault:":8080"`
	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"60s"`
	IdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`

	AuthTokens     string   `env:"AUTH_TOKENS"`
	CORSOrigins    []string `env:"CORS_ORIGINS" envSeparator:","`
	RateLimitRPS   float64  `env:"RATE_LIMIT_RPS" envDefault:"20"`
	RateLimitBurst int      `env:"RATE_LIMIT_BURST" envDefault:"40"`
	LogLevel       string   `env:"LOG_LEVEL" envDefault:"info"`

	SpoolDir    string        `env:"SPOOL_DIR" envDefault:"./spool"`
	MaxUploadMB int64         `env:"MAX_UPLOAD_MB" envDefault:"100"`
	Workers     int           `env:"WORKERS" envDefault:"2"`
	QueueSize   int           `env:"QUEUE_SIZE" envDefault:"100"`
	TaskTimeout time.Duration `env:"TASK_TIMEOUT" envDefault:"2h"`

	STT        STTConfig
	Segment    SegmentConfig
	LLM        LLMConfig
	Correction CorrectionConfig
	S3         S3Config   `envPrefix:"S3_"`
	MQTT       MQTTConfig `envPrefix:"MQTT_"`
	Inbox      InboxConfig
	Cleanup    CleanupConfig
}

// STTConfig selects the speech-to-text backend.
type STTConfig struct {
	Provider      string        `env:"STT_PROVIDER" envDefault:"openai"`
	OpenAIKey     string        `env:"OPENAI_API_KEY"`
	OpenAIBaseURL string        `env:"OPENAI_BASE_URL"`
	Model         string        `env:"STT_MODEL" envDefault:"whisper-1"`
	WhisperURL    string        `env:"WHISPER_URL"`
	Timeout       time.Duration `env:"STT_TIMEOUT" envDefault:"5m"`
	MaxBytes      int64         `env:"STT_MAX_BYTES" envDefault:"25165824"`
}

// SegmentConfig controls how oversized uploads are cut.
type SegmentConfig struct {
	Window      time.Duration `env:"SEGMENT_WINDOW" envDefault:"10m"`
	Overlap     time.Duration `env:"SEGMENT_OVERLAP" envDefault:"2s"`
	Bitrate     string        `env:"SEGMENT_BITRATE" envDefault:"64k"`
	FFmpegPath  string        `env:"FFMPEG_PATH" envDefault:"ffmpeg"`
	FFprobePath string        `env:"FFPROBE_PATH" envDefault:"ffprobe"`
}

// LLMConfig selects the correction backend and model.
type LLMConfig struct {
	Provider      string        `env:"LLM_PROVIDER" envDefault:"gemini"`
	APIKey        string        `env:"LLM_API_KEY"`
	BaseURL       string        `env:"LLM_BASE_URL"`
	Model         string        `env:"LLM_MODEL"`
	ModelPriority []string      `env:"LLM_MODEL_PRIORITY" envSeparator:","` // default depends on Provider
	ModelCacheTTL time.Duration `env:"LLM_MODEL_CACHE_TTL" envDefault:"1h"`
	MaxTokens     int           `env:"LLM_MAX_TOKENS"`
}

// CorrectionConfig bounds the correction calls and their retries.
type CorrectionConfig struct {
	Timeout        time.Duration `env:"CORRECTION_TIMEOUT" envDefault:"600s"`
	SummaryTimeout time.Duration `env:"SUMMARY_TIMEOUT" envDefault:"120s"`
	MaxAttempts    int           `env:"CORRECTION_MAX_ATTEMPTS" envDefault:"5"`
	BackoffBase    time.Duration `env:"CORRECTION_BACKOFF_BASE" envDefault:"10s"`
	BackoffJitter  time.Duration `env:"CORRECTION_BACKOFF_JITTER" envDefault:"5s"`
}

// S3Config configures the optional source-audio archive.
type S3Config struct {
	Bucket    string `env:"BUCKET"`
	Endpoint  string `env:"ENDPOINT"`
	Region    string `env:"REGION" envDefault:"us-east-1"`
	AccessKey string `env:"ACCESS_KEY"`
	SecretKey string `env:"SECRET_KEY"`
	Prefix    string `env:"PREFIX"`
}

// Enabled reports whether an archive bucket is configured.
func (c S3Config) Enabled() bool { return c.Bucket != "" }

// MQTTConfig configures the optional status event publisher.
type MQTTConfig struct {
	BrokerURL   string `env:"BROKER_URL"`
	ClientID    string `env:"CLIENT_ID" envDefault:"mallok"`
	Username    string `env:"USERNAME"`
	Password    string `env:"PASSWORD"`
	TopicPrefix string `env:"TOPIC_PREFIX" envDefault:"mallok"`
	QoS         byte   `env:"QOS" envDefault:"1"`
}

func (c MQTTConfig) Enabled() bool { return c.BrokerURL != "" }

// InboxConfig configures the optional watch-folder intake.
type InboxConfig struct {
	Dir  string `env:"INBOX_DIR"`
	User string `env:"INBOX_USER" envDefault:"inbox"`
}

func (c InboxConfig) Enabled() bool { return c.Dir != "" }

// CleanupConfig schedules the stale spool sweep.
type CleanupConfig struct {
	Schedule string        `env:"CLEANUP_SCHEDULE" envDefault:"@every 15m"`
	MaxAge   time.Duration `env:"CLEANUP_MAX_AGE" envDefault:"6h"`
}

// Overrides holds CLI flag values that take priority over env vars.
type Overrides struct {
	EnvFile     string
	HTTPAddr    string
	LogLevel    string
	DatabaseURL string
	SpoolDir    string
}

// defaultModelPriority is used when LLM_MODEL_PRIORITY is unset. The first
// entry is also the fallback when the provider's model listing fails.
var defaultModelPriority = map[string][]string{
	"gemini":    {"gemini-2.5-flash", "gemini-2.5-pro", "gemini-2.0-flash"},
	"openai":    {"gpt-4.1", "gpt-4o", "gpt-4o-mini"},
	"anthropic": {"claude-sonnet-4-5", "claude-sonnet-4-0", "claude-3-7-sonnet-latest"},
}

// Load reads configuration from .env file, environment variables, and CLI overrides.
// Priority: CLI flags > environment variables > .env file > struct defaults.
func Load(overrides Overrides) (*Config, error) {
	// Load .env file (silent if missing)
	envFile := overrides.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err == nil {
		_ = godotenv.Load(envFile)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	// Apply CLI overrides (non-empty values win)
	if overrides.HTTPAddr != "" {
		cfg.HTTPAddr = overrides.HTTPAddr
	}
	if overrides.LogLevel != "" {
		cfg.LogLevel = overrides.LogLevel
	}
	if overrides.DatabaseURL != "" {
		cfg.DatabaseURL = overrides.DatabaseURL
	}
	if overrides.SpoolDir != "" {
		cfg.SpoolDir = overrides.SpoolDir
	}
	if len(cfg.LLM.ModelPriority) == 0 {
		cfg.LLM.ModelPriority = append([]string(nil), defaultModelPriority[cfg.LLM.Provider]...)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.STT.Provider {
	case "openai":
	case "whisper":
		if c.STT.WhisperURL == "" {
			return fmt.Errorf("WHISPER_URL is required when STT_PROVIDER=whisper")
		}
	default:
		return fmt.Errorf("unknown STT_PROVIDER %q (want openai or whisper)", c.STT.Provider)
	}
	switch c.LLM.Provider {
	case "gemini", "openai", "anthropic":
	default:
		return fmt.Errorf("unknown LLM_PROVIDER %q (want gemini, openai or anthropic)", c.LLM.Provider)
	}
	if len(c.LLM.ModelPriority) == 0 {
		return fmt.Errorf("LLM_MODEL_PRIORITY must list at least one model")
	}
	if c.Workers < 1 {
		return fmt.Errorf("WORKERS must be at least 1, got %d", c.Workers)
	}
	if c.QueueSize < 1 {
		return fmt.Errorf("QUEUE_SIZE must be at least 1, got %d", c.QueueSize)
	}
	if c.MaxUploadMB < 1 {
		return fmt.Errorf("MAX_UPLOAD_MB must be at least 1, got %d", c.MaxUploadMB)
	}
	return nil
}

// MaxUploadBytes is the upload ceiling in bytes.
func (c *Config) MaxUploadBytes() int64 { return c.MaxUploadMB << 20 }

// ParseAuthTokens parses "token:user,token:user" into a token → user map.
// A bare token without a user maps to the token itself.
func ParseAuthTokens(s string) (map[string]string, error) {
	out := make(map[string]string)
	for _, entry := range strings.Split(s, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		token, user, found := strings.Cut(entry, ":")
		token = strings.TrimSpace(token)
		user = strings.TrimSpace(user)
		if token == "" {
			return nil, fmt.Errorf("AUTH_TOKENS: empty token in %q", entry)
		}
		if !found || user == "" {
			user = token
		}
		if _, dup := out[token]; dup {
			return nil, fmt.Errorf("AUTH_TOKENS: duplicate token for user %q", user)
		}
		out[token] = user
	}
	return out, nil
}
