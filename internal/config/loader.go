package config

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// DefaultFileName is looked up in the working directory when no config path
// is given.
const DefaultFileName = "mercury.yaml"

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// envOverrides are the variables mercury has always been configured with.
// When set they win over the file.
type envOverrides struct {
	SlackToken   string `envconfig:"SLACK_TOKEN"`
	HerokuSecret string `envconfig:"HEROKU_SECRET"`
	Port         uint16 `envconfig:"PORT"`
	LogLevel     string `envconfig:"MERCURY_LOG_LEVEL"`
}

// Discover finds the config file to load.
// Priority order: explicit path, $MERCURY_CONFIG, ./mercury.yaml.
// An empty result means no file: defaults and environment only.
func Discover(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if path := os.Getenv("MERCURY_CONFIG"); path != "" {
		return path
	}
	if _, err := os.Stat(DefaultFileName); err == nil {
		return DefaultFileName
	}
	return ""
}

// Load reads configuration from configPath, applies environment overrides and
// validates the result. An empty configPath skips the file.
func Load(configPath string) (*Config, error) {
	cfg := Defaults()

	if configPath != "" {
		absPath, err := resolvePath(configPath)
		if err != nil {
			return nil, err
		}

		if err := VerifyChecksums(absPath); err != nil {
			return nil, err
		}

		if err := loadConfigFile(absPath, cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", absPath, err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	applyConfigDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// resolvePath makes configPath absolute. A directory resolves to the
// mercury.yaml inside it.
func resolvePath(configPath string) (string, error) {
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve config path %q: %w", configPath, err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return "", fmt.Errorf("config file not found: %s\n"+
			"Hint: Check the path or run with --config flag", absPath)
	}

	if info.IsDir() {
		absPath = filepath.Join(absPath, DefaultFileName)
		if _, err := os.Stat(absPath); err != nil {
			return "", fmt.Errorf("directory provided but %s not found: %s", DefaultFileName, absPath)
		}
	}

	return absPath, nil
}

// loadConfigFile decodes a YAML file over cfg, so keys absent from the file
// keep their current values. Unknown keys are rejected.
func loadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	interpolated := interpolateEnv(string(data))

	dec := yaml.NewDecoder(strings.NewReader(interpolated))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	return nil
}

func applyEnvOverrides(cfg *Config) error {
	var env envOverrides
	if err := envconfig.Process("", &env); err != nil {
		return fmt.Errorf("invalid environment: %w", err)
	}

	if env.SlackToken != "" {
		cfg.Slack.Token = env.SlackToken
	}
	if env.HerokuSecret != "" {
		cfg.Heroku.Secret = env.HerokuSecret
	}
	if env.LogLevel != "" {
		cfg.Service.LogLevel = env.LogLevel
	}
	if env.Port != 0 {
		host := "0.0.0.0"
		if h, _, err := net.SplitHostPort(cfg.API.Listen); err == nil && h != "" {
			host = h
		}
		cfg.API.Listen = net.JoinHostPort(host, strconv.Itoa(int(env.Port)))
	}

	return nil
}

// applyConfigDefaults fills settings the file explicitly blanked.
func applyConfigDefaults(cfg *Config) {
	defaults := Defaults()

	if cfg.Service.Name == "" {
		cfg.Service.Name = defaults.Service.Name
	}
	if cfg.Service.LogLevel == "" {
		cfg.Service.LogLevel = defaults.Service.LogLevel
	}
	if cfg.Service.LogFormat == "" {
		cfg.Service.LogFormat = defaults.Service.LogFormat
	}
	if cfg.API.Listen == "" {
		cfg.API.Listen = defaults.API.Listen
	}
	if cfg.API.ShutdownTimeout == 0 {
		cfg.API.ShutdownTimeout = defaults.API.ShutdownTimeout
	}
	if cfg.Slack.BaseURL == "" {
		cfg.Slack.BaseURL = defaults.Slack.BaseURL
	}
	if cfg.Slack.Timeout == 0 {
		cfg.Slack.Timeout = defaults.Slack.Timeout
	}
	if cfg.Slack.ChannelCacheTTL == 0 {
		cfg.Slack.ChannelCacheTTL = defaults.Slack.ChannelCacheTTL
	}
	if cfg.Heroku.MaxBodySize == "" {
		cfg.Heroku.MaxBodySize = defaults.Heroku.MaxBodySize
	}
	if cfg.Heroku.DashboardURL == "" {
		cfg.Heroku.DashboardURL = defaults.Heroku.DashboardURL
	}

	// The webhook secret is optional, so an unset ${HEROKU_SECRET} means no
	// secret rather than a literal one.
	if envVarPattern.MatchString(cfg.Heroku.Secret) {
		cfg.Heroku.Secret = ""
	}
}

// interpolateEnv replaces ${VAR} with environment variable values.
// Undefined variables are left as-is (not expanded).
func interpolateEnv(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]

		if value, exists := os.LookupEnv(varName); exists {
			return value
		}

		// If not found, leave the placeholder (will fail validation if required)
		return match
	})
}

// validate performs basic validation on the configuration.
func validate(cfg *Config) error {
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[cfg.Service.LogLevel] {
		return fmt.Errorf("service.log_level must be one of: debug, info, warn, error (got %q)", cfg.Service.LogLevel)
	}

	if cfg.Service.LogFormat != "json" && cfg.Service.LogFormat != "text" {
		return fmt.Errorf("service.log_format must be one of: json, text (got %q)", cfg.Service.LogFormat)
	}

	if _, _, err := net.SplitHostPort(cfg.API.Listen); err != nil {
		return fmt.Errorf("api.listen must be host:port (got %q): %w", cfg.API.Listen, err)
	}
	if cfg.API.ShutdownTimeout < 0 {
		return fmt.Errorf("api.shutdown_timeout must not be negative")
	}

	if cfg.Slack.Token == "" {
		return fmt.Errorf("slack.token is required (set $SLACK_TOKEN)")
	}
	if err := checkResolved("slack.token", cfg.Slack.Token); err != nil {
		return err
	}
	if err := checkAbsoluteURL("slack.base_url", cfg.Slack.BaseURL); err != nil {
		return err
	}
	if cfg.Slack.Timeout < 0 {
		return fmt.Errorf("slack.timeout must not be negative")
	}
	if cfg.Slack.ChannelCacheTTL < 0 {
		return fmt.Errorf("slack.channel_cache_ttl must not be negative")
	}

	if _, err := cfg.Heroku.MaxBodyBytes(); err != nil {
		return fmt.Errorf("heroku.max_body_size: %w", err)
	}
	if cfg.Heroku.DedupeTTL < 0 {
		return fmt.Errorf("heroku.dedupe_ttl must not be negative")
	}
	if err := checkAbsoluteURL("heroku.dashboard_url", cfg.Heroku.DashboardURL); err != nil {
		return err
	}

	return nil
}

func checkResolved(field, value string) error {
	if matches := envVarPattern.FindStringSubmatch(value); len(matches) > 1 {
		return fmt.Errorf("%s: environment variable ${%s} is not set", field, matches[1])
	}
	return nil
}

func checkAbsoluteURL(field, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s must be an absolute URL (got %q)", field, raw)
	}
	return nil
}
