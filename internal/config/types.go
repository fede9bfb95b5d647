package config

import "time"

// Config represents the complete mercury configuration.
type Config struct {
	Service ServiceConfig `yaml:"service"`
	API     APIConfig     `yaml:"api"`
	Slack   SlackConfig   `yaml:"slack"`
	Heroku  HerokuConfig  `yaml:"heroku"`
}

// ServiceConfig defines core service settings.
type ServiceConfig struct {
	Name      string `yaml:"name"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// APIConfig defines HTTP server settings.
type APIConfig struct {
	Listen          string        `yaml:"listen"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// SlackConfig defines the Slack bot credentials and Web API client.
type SlackConfig struct {
	// Token is the bot token used for every Slack call. Callers of the
	// direct post endpoint authenticate with the same token.
	Token           string        `yaml:"token"`
	BaseURL         string        `yaml:"base_url"`
	Timeout         time.Duration `yaml:"timeout"`
	ChannelCacheTTL time.Duration `yaml:"channel_cache_ttl"`
}

// HerokuConfig defines webhook verification and forwarding.
type HerokuConfig struct {
	// Secret verifies webhook signatures. Webhooks are rejected while it is
	// unset.
	Secret       string        `yaml:"secret"`
	MaxBodySize  string        `yaml:"max_body_size"` // e.g. "1MB", "65536"
	DedupeTTL    time.Duration `yaml:"dedupe_ttl"`    // 0 disables
	DashboardURL string        `yaml:"dashboard_url"`
}

// MaxBodyBytes parses MaxBodySize.
func (h HerokuConfig) MaxBodyBytes() (int64, error) {
	return ParseSize(h.MaxBodySize)
}

// Default values.
const (
	DefaultListen          = "0.0.0.0:80"
	DefaultShutdownTimeout = 5 * time.Second
	DefaultSlackBaseURL    = "https://slack.com/api"
	DefaultSlackTimeout    = 10 * time.Second
	DefaultChannelCacheTTL = 24 * time.Hour
	DefaultMaxBodySize     = 1048576 // 1 MB
	DefaultDedupeTTL       = 10 * time.Minute
	DefaultDashboardURL    = "https://dashboard.heroku.com"
)

// Defaults returns a Config with every optional setting filled in.
func Defaults() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:      "mercury",
			LogLevel:  "info",
			LogFormat: "json",
		},
		API: APIConfig{
			Listen:          DefaultListen,
			ShutdownTimeout: DefaultShutdownTimeout,
		},
		Slack: SlackConfig{
			BaseURL:         DefaultSlackBaseURL,
			Timeout:         DefaultSlackTimeout,
			ChannelCacheTTL: DefaultChannelCacheTTL,
		},
		Heroku: HerokuConfig{
			MaxBodySize:  "1MB",
			DedupeTTL:    DefaultDedupeTTL,
			DashboardURL: DefaultDashboardURL,
		},
	}
}
