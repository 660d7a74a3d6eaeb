// Package config loads runtime configuration from YAML and environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config captures the runtime configuration for the translation service.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	ASR      ASRConfig      `mapstructure:"asr"`
	MT       MTConfig       `mapstructure:"mt"`
	TTS      TTSConfig      `mapstructure:"tts"`
	Media    MediaConfig    `mapstructure:"media"`
	Store    StoreConfig    `mapstructure:"store"`
	Session  SessionConfig  `mapstructure:"session"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
}

type ServerConfig struct {
	ListenAddr      string        `mapstructure:"listen_addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxBodyMB       int           `mapstructure:"max_body_mb"`
}

type ASRConfig struct {
	Endpoint string `mapstructure:"endpoint"`
}

type MTConfig struct {
	PrimaryEndpoint  string `mapstructure:"primary_endpoint"`
	FallbackEndpoint string `mapstructure:"fallback_endpoint"`
}

type TTSConfig struct {
	Endpoint string `mapstructure:"endpoint"`
}

type MediaConfig struct {
	FFmpegPath string `mapstructure:"ffmpeg_path"`
	SampleRate int    `mapstructure:"sample_rate"`
}

type StoreConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type SessionConfig struct {
	WorkDir           string `mapstructure:"work_dir"`
	DefaultTargetLang string `mapstructure:"default_target_lang"`
	EventBuffer       int    `mapstructure:"event_buffer"`
	TaskBuffer        int    `mapstructure:"task_buffer"`
}

type PipelineConfig struct {
	SourceLang       string `mapstructure:"source_lang"`
	SaveIntermediate bool   `mapstructure:"save_intermediate"`
}

// Options controls where Load looks for configuration files.
type Options struct {
	ConfigFile string
	EnvFile    string
}

// Load returns the merged configuration sourced from YAML and environment variables.
func Load(opts Options) (*Config, error) {
	if opts.EnvFile != "" {
		_ = godotenv.Load(opts.EnvFile)
	} else {
		_ = godotenv.Load()
	}

	v := viper.New()
	setDefaults(v)

	explicitFile := opts.ConfigFile != ""
	if explicitFile {
		v.SetConfigFile(opts.ConfigFile)
	} else {
		v.SetConfigName("avatartalk")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || explicitFile {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix("AVATARTALK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Server.ListenAddr == "" {
		return fmt.Errorf("server.listen_addr is required")
	}
	if c.Media.SampleRate <= 0 {
		return fmt.Errorf("media.sample_rate must be positive")
	}
	if c.Store.Enabled && c.Store.Path == "" {
		return fmt.Errorf("store.path is required when store.enabled is set")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.listen_addr", ":8000")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "300s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.max_body_mb", 50)

	v.SetDefault("asr.endpoint", "http://localhost:7070/inference")

	v.SetDefault("mt.primary_endpoint", "http://localhost:7072")
	v.SetDefault("mt.fallback_endpoint", "http://localhost:5000")

	v.SetDefault("tts.endpoint", "http://localhost:7071/tts")

	v.SetDefault("media.ffmpeg_path", "ffmpeg")
	v.SetDefault("media.sample_rate", 16000)

	v.SetDefault("store.enabled", false)
	v.SetDefault("store.path", "translations.db")

	v.SetDefault("session.work_dir", "")
	v.SetDefault("session.default_target_lang", "es")
	v.SetDefault("session.event_buffer", 64)
	v.SetDefault("session.task_buffer", 64)

	v.SetDefault("pipeline.source_lang", "en")
	v.SetDefault("pipeline.save_intermediate", true)
}
