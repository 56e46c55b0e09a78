package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server ServerConfig `yaml:"server"`
	Gemini GeminiConfig `yaml:"gemini"`
	Auth   AuthConfig   `yaml:"auth"`
	Log    LogConfig    `yaml:"log"`
	Store  StoreConfig  `yaml:"store"`
}

type ServerConfig struct {
	Port            int `yaml:"port"`
	MaxUploadSizeMB int `yaml:"max_upload_size_mb"`
}

// GeminiConfig holds everything needed to talk to the Gemini API except the
// credential itself. The API key is read only from the GEMINI_API_KEY
// environment variable so it never ends up in the config file or logs.
type GeminiConfig struct {
	Model           string `yaml:"model"`
	MaxOutputTokens int32  `yaml:"max_output_tokens"`
	TimeoutSeconds  int    `yaml:"timeout_seconds"`

	APIKey string `yaml:"-"`
}

type AuthConfig struct {
	JWTSecret        string `yaml:"jwt_secret"`
	TokenExpireHours int    `yaml:"token_expire_hours"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

type StoreConfig struct {
	MaxSessions     int `yaml:"max_sessions"`
	SessionTTLHours int `yaml:"session_ttl_hours"`
}

// ConfigError reports missing or unusable configuration. It is fatal: main
// exits before the server accepts any upload.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "config: " + e.Reason
}

var GlobalConfig *Config

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.MaxUploadSizeMB == 0 {
		cfg.Server.MaxUploadSizeMB = 16
	}
	if cfg.Gemini.Model == "" {
		cfg.Gemini.Model = "gemini-2.5-pro"
	}
	if cfg.Gemini.MaxOutputTokens == 0 {
		cfg.Gemini.MaxOutputTokens = 32000
	}
	if cfg.Gemini.TimeoutSeconds == 0 {
		cfg.Gemini.TimeoutSeconds = 120
	}
	if cfg.Auth.TokenExpireHours == 0 {
		cfg.Auth.TokenExpireHours = 24
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	if cfg.Store.MaxSessions == 0 {
		cfg.Store.MaxSessions = 100
	}
	if cfg.Store.SessionTTLHours == 0 {
		cfg.Store.SessionTTLHours = 12
	}

	cfg.Gemini.APIKey = os.Getenv("GEMINI_API_KEY")

	GlobalConfig = &cfg
	return &cfg, nil
}

// Validate checks the parts of the configuration the server cannot run
// without. Called once at startup, after Load.
func (c *Config) Validate() error {
	if c.Gemini.APIKey == "" {
		return &ConfigError{Reason: "GEMINI_API_KEY environment variable not set"}
	}
	if c.Auth.JWTSecret == "" {
		return &ConfigError{Reason: "auth.jwt_secret is required"}
	}
	return nil
}
