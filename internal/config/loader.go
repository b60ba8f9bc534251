package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/spf13/viper"
)

// Load loads and validates configuration from:
// 1. Default values
// 2. the YAML file at path (config.yaml in the working directory when empty)
// 3. BOT_* environment variables
//
// A missing file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if err := readConfig(v, path); err != nil {
		return nil, fmt.Errorf("%w: failed to load config file: %v", ErrConfiguration, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrConfiguration, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	return cfg, nil
}

func readConfig(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("BOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// setDefaults registers every key, which also lets AutomaticEnv override it.
func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.format", DefaultLogFormat)

	v.SetDefault("server.addr", DefaultServerAddr)
	v.SetDefault("server.mode", DefaultServerMode)
	v.SetDefault("server.shutdown_timeout", DefaultServerShutdownTimeout)
	v.SetDefault("server.handler_timeout", DefaultServerHandlerTimeout)

	v.SetDefault("database.path", DefaultDBPath)

	v.SetDefault("whatsapp.base_url", DefaultWhatsAppBaseURL)
	v.SetDefault("whatsapp.username", "")
	v.SetDefault("whatsapp.password", "")
	v.SetDefault("whatsapp.timeout", DefaultWhatsAppTimeout)

	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model_name", DefaultGeminiModel)
	v.SetDefault("gemini.embedding_model", DefaultGeminiEmbeddingModel)
	v.SetDefault("gemini.temperature", DefaultGeminiTemperature)
	v.SetDefault("gemini.max_retries", DefaultGeminiMaxRetries)
	v.SetDefault("gemini.retry_delay", DefaultGeminiRetryDelay)
	v.SetDefault("gemini.timeout", DefaultGeminiTimeout)

	v.SetDefault("location.name", DefaultLocationName)
	v.SetDefault("location.latitude", DefaultLocationLatitude)
	v.SetDefault("location.longitude", DefaultLocationLongitude)
	v.SetDefault("location.timezone", DefaultLocationTimezone)

	v.SetDefault("zmanim.backends", DefaultZmanimBackends)
	v.SetDefault("zmanim.cache_size", DefaultZmanimCacheSize)
	v.SetDefault("zmanim.llm_classifier", false)
	v.SetDefault("zmanim.hebcal_url", DefaultZmanimHebcalURL)
	v.SetDefault("zmanim.hebcal_timeout", DefaultZmanimHebcalTimeout)

	v.SetDefault("bot.keywords", DefaultBotKeywords)
	v.SetDefault("bot.summary_window", DefaultBotSummaryWindow)
	v.SetDefault("bot.summary_limit", DefaultBotSummaryLimit)
	v.SetDefault("bot.history_limit", DefaultBotHistoryLimit)
	v.SetDefault("bot.topics_limit", DefaultBotTopicsLimit)
	v.SetDefault("bot.messages.about", DefaultBotMessages.About)
	v.SetDefault("bot.messages.cant_help", DefaultBotMessages.CantHelp)
	v.SetDefault("bot.messages.zmanim_unavailable", DefaultBotMessages.ZmanimUnavailable)

	for name, task := range DefaultTasks {
		v.SetDefault("scheduler.tasks."+name+".enabled", task.Enabled)
		v.SetDefault("scheduler.tasks."+name+".schedule", task.Schedule)
	}
}
