package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/mattjoyce/mercury/internal/api"
	"github.com/mattjoyce/mercury/internal/config"
	"github.com/mattjoyce/mercury/internal/doctor"
	"github.com/mattjoyce/mercury/internal/heroku"
	"github.com/mattjoyce/mercury/internal/log"
	"github.com/mattjoyce/mercury/internal/slack"
)

var (
	version   = "0.1.0-dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	os.Exit(runCLI(os.Args[1:]))
}

func runCLI(cliArgs []string) int {
	if len(cliArgs) < 1 {
		printUsage()
		return 1
	}

	cmd := cliArgs[0]
	args := cliArgs[1:]

	switch cmd {
	case "serve", "start":
		if hasHelpFlag(args) {
			printServeHelp()
			return 0
		}
		return runServe(args)
	case "config":
		return runConfigNoun(args)
	case "version", "--version":
		return runVersion(args)
	case "help", "--help", "-h":
		printUsage()
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		return 1
	}
}

func printUsage() {
	fmt.Print(`mercury - Slack notification relay

Usage:
  mercury <command> [flags]

Commands:
  serve             Run the HTTP relay in the foreground
  config check      Validate configuration and report likely mistakes
  config lock       Record the config file hash in .checksums
  version           Show version information

Configuration is read from --config, $MERCURY_CONFIG or ./mercury.yaml.
SLACK_TOKEN, HEROKU_SECRET, PORT and MERCURY_LOG_LEVEL override the file.
`)
}

func printServeHelp() {
	fmt.Println("Usage: mercury serve [--config PATH]")
}

func printConfigNounHelp(w *os.File) {
	fmt.Fprintln(w, "Usage: mercury config <action> [flags]")
	fmt.Fprintln(w, "Actions: check, lock")
}

func isHelpToken(token string) bool {
	return token == "help" || token == "--help" || token == "-h"
}

func hasHelpFlag(args []string) bool {
	for _, arg := range args {
		if arg == "--help" || arg == "-h" {
			return true
		}
	}
	return false
}

func runServe(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to configuration file or directory")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}

	path := config.Discover(*configPath)
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	log.Setup(cfg.Service.LogLevel, cfg.Service.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, cfg, path); err != nil {
		log.WithComponent("main").Error("mercury failed", "error", err)
		return 1
	}
	return 0
}

// serve wires the relay from cfg and runs it until ctx is cancelled.
func serve(ctx context.Context, cfg *config.Config, path string) error {
	logger := log.WithComponent("main")
	logger.Info("mercury starting", "version", version, "config", path, "listen", cfg.API.Listen)

	maxBody, err := cfg.Heroku.MaxBodyBytes()
	if err != nil {
		return fmt.Errorf("heroku.max_body_size: %w", err)
	}

	if cfg.Heroku.Secret == "" {
		logger.Warn("HEROKU_SECRET not set; Heroku webhooks will be rejected")
	}

	token := slack.AccessToken(cfg.Slack.Token)

	client := slack.NewClient(
		slack.WithBaseURL(cfg.Slack.BaseURL),
		slack.WithTimeout(cfg.Slack.Timeout),
	)
	directory := slack.NewDirectory(client,
		slack.WithTTL(cfg.Slack.ChannelCacheTTL),
		slack.WithDirectoryLogger(log.WithComponent("directory")),
	)
	notifier := slack.NewNotifier(client, directory, log.WithComponent("slack"))

	forwarder := heroku.NewForwarder(notifier, token,
		heroku.WithDashboardURL(cfg.Heroku.DashboardURL),
		heroku.WithReplayGuard(heroku.NewReplayGuard(cfg.Heroku.DedupeTTL, nil)),
		heroku.WithLogger(log.WithComponent("heroku")),
	)

	server := api.New(api.Config{
		Listen:          cfg.API.Listen,
		SlackToken:      token,
		HerokuSecret:    heroku.Secret(cfg.Heroku.Secret),
		MaxBodySize:     maxBody,
		ShutdownTimeout: cfg.API.ShutdownTimeout,
	}, notifier, forwarder, log.WithComponent("api"))

	if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	logger.Info("mercury stopped")
	return nil
}

func runConfigNoun(args []string) int {
	if len(args) < 1 {
		printConfigNounHelp(os.Stderr)
		return 1
	}
	if isHelpToken(args[0]) {
		printConfigNounHelp(os.Stdout)
		return 0
	}

	action := args[0]
	actionArgs := args[1:]

	switch action {
	case "check":
		return runConfigCheck(actionArgs)
	case "lock":
		return runConfigLock(actionArgs)
	default:
		fmt.Fprintf(os.Stderr, "Unknown config action: %s\n", action)
		printConfigNounHelp(os.Stderr)
		return 1
	}
}

func runConfigCheck(args []string) int {
	var configPath string
	var strict, jsonOut bool

	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	fs.StringVar(&configPath, "config", "", "Path to configuration")
	fs.BoolVar(&strict, "strict", false, "Treat warnings as errors")
	fs.BoolVar(&jsonOut, "json", false, "Output in JSON")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}

	path := config.Discover(configPath)
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config load error: %v\n", err)
		return 1
	}

	result := doctor.New(cfg, path).Validate()

	if jsonOut {
		out, err := doctor.FormatJSON(result)
		if err != nil {
			fmt.Fprintf(os.Stderr, "JSON format error: %v\n", err)
			return 1
		}
		fmt.Println(out)
	} else {
		fmt.Print(doctor.FormatHuman(result))
	}

	if !result.Valid {
		return 1
	}
	if strict && len(result.Warnings) > 0 {
		return 2
	}
	return 0
}

func runConfigLock(args []string) int {
	fs := flag.NewFlagSet("lock", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to configuration")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}

	path := config.Discover(*configPath)
	if path == "" {
		fmt.Fprintln(os.Stderr, "No config file found; pass --config or set $MERCURY_CONFIG")
		return 1
	}

	manifest, err := config.LockConfig(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to lock config: %v\n", err)
		return 1
	}

	for name, hash := range manifest.Hashes {
		fmt.Printf("locked %s blake3:%s\n", name, shorten(hash))
	}
	return 0
}

type versionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
}

func runVersion(args []string) int {
	fs := flag.NewFlagSet("version", flag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "Output version metadata as JSON")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}
	if fs.NArg() > 0 {
		fmt.Fprintln(os.Stderr, "Usage: mercury version [--json]")
		return 1
	}

	info := currentVersionInfo()

	if *jsonOut {
		data, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to render version JSON: %v\n", err)
			return 1
		}
		fmt.Println(string(data))
		return 0
	}

	fmt.Printf("mercury %s\n", info.Version)
	fmt.Printf("commit: %s\n", info.Commit)
	fmt.Printf("built_at: %s\n", info.BuildTime)
	return 0
}

func currentVersionInfo() versionInfo {
	info := versionInfo{
		Version:   strings.TrimSpace(version),
		Commit:    "unknown",
		BuildTime: "unknown",
	}
	if info.Version == "" {
		info.Version = "0.0.0-dev"
	}

	commit := strings.TrimSpace(gitCommit)
	if commit == "" || commit == "unknown" {
		commit = strings.TrimSpace(readBuildSetting("vcs.revision"))
	}
	if commit != "" {
		info.Commit = shorten(commit)
	}

	built := strings.TrimSpace(buildDate)
	if built == "" || built == "unknown" {
		built = strings.TrimSpace(readBuildSetting("vcs.time"))
	}
	if t, err := time.Parse(time.RFC3339Nano, built); err == nil {
		info.BuildTime = t.UTC().Format(time.RFC3339)
	}

	return info
}

func shorten(commit string) string {
	if len(commit) <= 12 {
		return commit
	}
	return commit[:12]
}

func readBuildSetting(key string) string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, setting := range info.Settings {
		if setting.Key == key {
			return setting.Value
		}
	}
	return ""
}
