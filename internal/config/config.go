// Package config provides configuration loading, validation, and defaults
// for the bot. It reads an optional YAML file and BOT_* environment
// variables on top of built-in defaults.
package config

import (
	"errors"
	"time"
)

// ErrConfiguration wraps every loading or validation failure.
var ErrConfiguration = errors.New("configuration error")

// Config defines the application configuration for all components.
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	WhatsApp  WhatsAppConfig  `mapstructure:"whatsapp"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
	Location  LocationConfig  `mapstructure:"location"`
	Zmanim    ZmanimConfig    `mapstructure:"zmanim"`
	Bot       BotConfig       `mapstructure:"bot"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

// LogConfig selects the slog level and output format.
type LogConfig struct {
	Level  string `mapstructure:"level"  validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"required,oneof=json text"`
}

// ServerConfig is the webhook HTTP listener.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"             validate:"required,hostname_port"`
	Mode            string        `mapstructure:"mode"             validate:"required,oneof=debug release test"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"min=1s"`
	HandlerTimeout  time.Duration `mapstructure:"handler_timeout"  validate:"min=1s"`
}

// DatabaseConfig locates the SQLite file.
type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// WhatsAppConfig points at the go-whatsapp-web-multidevice gateway.
type WhatsAppConfig struct {
	BaseURL  string        `mapstructure:"base_url" validate:"required,url"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password" validate:"required_with=Username"`
	Timeout  time.Duration `mapstructure:"timeout"  validate:"min=1s"`
}

// GeminiConfig configures the language-model client.
type GeminiConfig struct {
	APIKey         string        `mapstructure:"api_key"`
	ModelName      string        `mapstructure:"model_name"      validate:"required"`
	EmbeddingModel string        `mapstructure:"embedding_model" validate:"required"`
	Temperature    float32       `mapstructure:"temperature"     validate:"min=0,max=2"`
	MaxRetries     int           `mapstructure:"max_retries"     validate:"min=0,max=5"`
	RetryDelay     time.Duration `mapstructure:"retry_delay"     validate:"min=0"`
	Timeout        time.Duration `mapstructure:"timeout"         validate:"min=1s,max=10m"`
}

// LocationConfig is the place zmanim are computed for.
type LocationConfig struct {
	Name      string  `mapstructure:"name"      validate:"required"`
	Latitude  float64 `mapstructure:"latitude"  validate:"latitude"`
	Longitude float64 `mapstructure:"longitude" validate:"longitude"`
	Timezone  string  `mapstructure:"timezone"  validate:"required,timezone"`
}

// ZmanimConfig tunes the zmanim engine.
type ZmanimConfig struct {
	Backends      []string      `mapstructure:"backends"       validate:"required,min=1,dive,oneof=hebcal sunrise noaa"`
	CacheSize     int           `mapstructure:"cache_size"     validate:"gte=4"`
	LLMClassifier bool          `mapstructure:"llm_classifier"`
	HebcalURL     string        `mapstructure:"hebcal_url"     validate:"required,url"`
	HebcalTimeout time.Duration `mapstructure:"hebcal_timeout" validate:"min=100ms"`
}

// BotConfig holds the dispatcher behavior and user-facing texts.
type BotConfig struct {
	Keywords      []string      `mapstructure:"keywords"       validate:"required,min=1,dive,required"`
	SummaryWindow time.Duration `mapstructure:"summary_window" validate:"min=1h"`
	SummaryLimit  int           `mapstructure:"summary_limit"  validate:"min=1,max=500"`
	HistoryLimit  int           `mapstructure:"history_limit"  validate:"min=1,max=50"`
	TopicsLimit   int           `mapstructure:"topics_limit"   validate:"min=1,max=50"`
	Messages      BotMessages   `mapstructure:"messages"`
}

// BotMessages are the fixed replies.
type BotMessages struct {
	About             string `mapstructure:"about"              validate:"required"`
	CantHelp          string `mapstructure:"cant_help"          validate:"required"`
	ZmanimUnavailable string `mapstructure:"zmanim_unavailable" validate:"required"`
}

// SchedulerConfig lists the periodic tasks by name.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks" validate:"dive"`
}

// TaskConfig enables a task on a cron schedule.
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule" validate:"required_if=Enabled true"`
}
