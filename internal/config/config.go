package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/bharatcrest/hrmatcher/internal/models"
)

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port string `yaml:"port"`
}

// MailboxSettings holds the IMAP account used to pull application mail
type MailboxSettings struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	UseTLS   bool   `yaml:"use_tls"`
}

// ResumeSettings controls attachment storage and fetch bounds
type ResumeSettings struct {
	Dir           string `yaml:"dir"`
	RetentionDays int    `yaml:"retention_days"`
	// FetchLimit bounds a fetch to the N most recently received candidate
	// messages. Zero means unbounded. Older matching messages beyond the
	// limit are dropped, so callers should set this deliberately.
	FetchLimit int `yaml:"fetch_limit"`
}

// RedisConfig holds result-cache connection settings
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// GeminiConfig holds the optional AI-assisted extraction settings
type GeminiConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// Config is the application configuration
type Config struct {
	Server  ServerConfig    `yaml:"server"`
	Mailbox MailboxSettings `yaml:"mailbox"`
	Resumes ResumeSettings  `yaml:"resumes"`
	Redis   RedisConfig     `yaml:"redis"`
	Gemini  GeminiConfig    `yaml:"gemini"`
}

// Default returns a config with default values
func Default() *Config {
	return &Config{
		Server: ServerConfig{Port: "8080"},
		Mailbox: MailboxSettings{
			Port:   993,
			UseTLS: true,
		},
		Resumes: ResumeSettings{
			Dir:           "media/resumes",
			RetentionDays: 7,
		},
		Gemini: GeminiConfig{Model: "gemini-1.5-pro"},
	}
}

// Load reads configuration from the given YAML file and applies environment
// variable overrides. A missing file is not an error; defaults are used.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	overrideFromEnv(cfg)
	return cfg, nil
}

func overrideFromEnv(cfg *Config) {
	if port := os.Getenv("PORT"); port != "" {
		cfg.Server.Port = port
	}
	if host := os.Getenv("IMAP_HOST"); host != "" {
		cfg.Mailbox.Host = host
	}
	if port := os.Getenv("IMAP_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Mailbox.Port = p
		}
	}
	if user := os.Getenv("IMAP_USERNAME"); user != "" {
		cfg.Mailbox.Username = user
	}
	if pass := os.Getenv("IMAP_PASSWORD"); pass != "" {
		cfg.Mailbox.Password = pass
	}
	if dir := os.Getenv("RESUMES_DIR"); dir != "" {
		cfg.Resumes.Dir = dir
	}
	if days := os.Getenv("RESUME_RETENTION_DAYS"); days != "" {
		if d, err := strconv.Atoi(days); err == nil {
			cfg.Resumes.RetentionDays = d
		}
	}
	if limit := os.Getenv("RESUME_FETCH_LIMIT"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil {
			cfg.Resumes.FetchLimit = n
		}
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Redis.Addr = addr
	}
	if pass := os.Getenv("REDIS_PASSWORD"); pass != "" {
		cfg.Redis.Password = pass
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		cfg.Gemini.APIKey = key
	}
}

// Validate checks that required settings for a mailbox fetch are present
func (c *Config) Validate() error {
	if c.Mailbox.Host == "" {
		return fmt.Errorf("mailbox host is required")
	}
	if c.Mailbox.Username == "" || c.Mailbox.Password == "" {
		return fmt.Errorf("mailbox credentials are incomplete")
	}
	if c.Resumes.RetentionDays < 0 {
		return fmt.Errorf("retention_days must be non-negative")
	}
	return nil
}

// MailboxConfig converts the mailbox settings into the resolved form the
// fetcher consumes
func (c *Config) MailboxConfig() models.MailboxConfig {
	return models.MailboxConfig{
		Host:     c.Mailbox.Host,
		Port:     c.Mailbox.Port,
		Username: c.Mailbox.Username,
		Password: c.Mailbox.Password,
		UseTLS:   c.Mailbox.UseTLS,
		Protocol: models.ProtocolRetrieval,
	}
}
