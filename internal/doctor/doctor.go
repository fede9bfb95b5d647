// Package doctor reviews a loaded mercury configuration for settings that
// load fine but are likely mistakes.
package doctor

import (
	"encoding/json"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattjoyce/mercury/internal/config"
)

// Result holds the outcome of a validation run.
type Result struct {
	Valid    bool    `json:"valid"`
	Errors   []Issue `json:"errors,omitempty"`
	Warnings []Issue `json:"warnings,omitempty"`
}

// Issue describes a single validation error or warning.
type Issue struct {
	Category string `json:"category"`
	Message  string `json:"message"`
	Field    string `json:"field,omitempty"`
}

// Thresholds below which settings are flagged.
const (
	minChannelCacheTTL = time.Minute
	minMaxBodySize     = 16 * 1024
	maxSlackTimeout    = 30 * time.Second
)

// Doctor validates a loaded configuration.
type Doctor struct {
	cfg  *config.Config
	path string
}

// New creates a Doctor. path is the config file the settings came from, or
// empty when they came from the environment alone.
func New(cfg *config.Config, path string) *Doctor {
	return &Doctor{cfg: cfg, path: path}
}

// Validate runs all checks and returns a result.
func (d *Doctor) Validate() *Result {
	r := &Result{Valid: true}

	d.validateSecrets(r)
	d.validateURLs(r)
	d.warnSlackSettings(r)
	d.warnHerokuSettings(r)
	d.warnListen(r)
	d.warnUnlocked(r)

	r.Valid = len(r.Errors) == 0
	return r
}

func (d *Doctor) addError(r *Result, category, field, msg string) {
	r.Errors = append(r.Errors, Issue{Category: category, Field: field, Message: msg})
}

func (d *Doctor) addWarning(r *Result, category, field, msg string) {
	r.Warnings = append(r.Warnings, Issue{Category: category, Field: field, Message: msg})
}

// validateSecrets checks the two credentials mercury holds.
func (d *Doctor) validateSecrets(r *Result) {
	token := d.cfg.Slack.Token
	secret := d.cfg.Heroku.Secret

	if secret == "" {
		d.addWarning(r, "heroku", "heroku.secret",
			"no webhook secret configured; every Heroku webhook will be rejected")
	} else if secret == token {
		d.addError(r, "heroku", "heroku.secret",
			"webhook secret must differ from slack.token")
	}

	if !strings.HasPrefix(token, "xoxb-") {
		d.addWarning(r, "slack", "slack.token",
			"token does not look like a bot token (xoxb-)")
	}
}

// validateURLs rejects credentials embedded in URLs and flags plain HTTP.
func (d *Doctor) validateURLs(r *Result) {
	for _, f := range []struct{ field, raw string }{
		{"slack.base_url", d.cfg.Slack.BaseURL},
		{"heroku.dashboard_url", d.cfg.Heroku.DashboardURL},
	} {
		u, err := url.Parse(f.raw)
		if err != nil {
			d.addError(r, "urls", f.field, err.Error())
			continue
		}
		if u.User != nil {
			d.addError(r, "urls", f.field, "URL must not embed credentials")
		}
		if u.Scheme == "http" && !isLoopback(u.Hostname()) {
			d.addWarning(r, "urls", f.field, fmt.Sprintf("%s uses plain http", u.Host))
		}
	}
}

func (d *Doctor) warnSlackSettings(r *Result) {
	if ttl := d.cfg.Slack.ChannelCacheTTL; ttl < minChannelCacheTTL {
		d.addWarning(r, "slack", "slack.channel_cache_ttl",
			fmt.Sprintf("cache TTL %s is very short; most deliveries will enumerate every channel", ttl))
	}
	if timeout := d.cfg.Slack.Timeout; timeout > maxSlackTimeout {
		d.addWarning(r, "slack", "slack.timeout",
			fmt.Sprintf("timeout %s exceeds %s; Heroku gives up on slow webhook responses", timeout, maxSlackTimeout))
	}
}

func (d *Doctor) warnHerokuSettings(r *Result) {
	if d.cfg.Heroku.DedupeTTL == 0 {
		d.addWarning(r, "heroku", "heroku.dedupe_ttl",
			"replay guard disabled; redelivered webhooks post again")
	}
	if size, err := d.cfg.Heroku.MaxBodyBytes(); err != nil {
		d.addError(r, "heroku", "heroku.max_body_size", err.Error())
	} else if size < minMaxBodySize {
		d.addWarning(r, "heroku", "heroku.max_body_size",
			fmt.Sprintf("%d bytes may reject real release payloads", size))
	}
}

func (d *Doctor) warnListen(r *Result) {
	_, port, err := net.SplitHostPort(d.cfg.API.Listen)
	if err != nil {
		d.addError(r, "api", "api.listen", err.Error())
		return
	}
	if port == "0" {
		d.addWarning(r, "api", "api.listen", "port 0 binds a random port")
	}
}

// warnUnlocked flags a config file with no checksum manifest beside it.
func (d *Doctor) warnUnlocked(r *Result) {
	if d.path == "" {
		return
	}
	dir := d.path
	if info, err := os.Stat(d.path); err == nil && !info.IsDir() {
		dir = filepath.Dir(d.path)
	}
	if _, err := os.Stat(filepath.Join(dir, config.ChecksumFileName)); os.IsNotExist(err) {
		d.addWarning(r, "integrity", "",
			"config is not locked; run 'mercury config lock' to detect tampering")
	}
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// FormatHuman returns a human-readable validation report.
func FormatHuman(r *Result) string {
	var b strings.Builder

	switch {
	case r.Valid && len(r.Warnings) == 0:
		b.WriteString("Configuration valid.\n")
		return b.String()
	case r.Valid:
		fmt.Fprintf(&b, "Configuration valid (%d warning(s))\n", len(r.Warnings))
	default:
		fmt.Fprintf(&b, "Configuration invalid (%d error(s), %d warning(s))\n", len(r.Errors), len(r.Warnings))
	}

	for _, e := range r.Errors {
		writeIssue(&b, "ERROR", e)
	}
	for _, w := range r.Warnings {
		writeIssue(&b, "WARN ", w)
	}

	return b.String()
}

func writeIssue(b *strings.Builder, level string, i Issue) {
	if i.Field != "" {
		fmt.Fprintf(b, "  %s [%s] %s: %s\n", level, i.Category, i.Field, i.Message)
		return
	}
	fmt.Fprintf(b, "  %s [%s] %s\n", level, i.Category, i.Message)
}

// FormatJSON returns the result as indented JSON.
func FormatJSON(r *Result) (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
