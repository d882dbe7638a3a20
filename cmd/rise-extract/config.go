package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/Sternrassler/rise-explorer-client/pkg/client"
	"github.com/Sternrassler/rise-explorer-client/pkg/logging"
	"github.com/Sternrassler/rise-explorer-client/pkg/output"
)

// globalConfig holds the flags shared by every command.
type globalConfig struct {
	Output      string
	BaseURL     string
	Timeout     time.Duration
	MaxRetries  int
	RetryDelay  time.Duration
	LogLevel    string
	LogPretty   bool
	Strict      bool
	Manifest    bool
	RedisAddr   string
	MetricsFile string
}

// defaultGlobalConfig reads defaults from the environment.
func defaultGlobalConfig() globalConfig {
	defaults := client.DefaultConfig()
	return globalConfig{
		Output:      getEnv("OUTPUT_DIR", output.DefaultRoot),
		BaseURL:     getEnv("RISE_API_URL", defaults.BaseURL),
		Timeout:     getEnvDuration("RISE_TIMEOUT", defaults.Timeout),
		MaxRetries:  getEnvInt("RISE_MAX_RETRIES", defaults.MaxRetries),
		RetryDelay:  getEnvDuration("RISE_RETRY_DELAY", defaults.RetryDelay),
		LogLevel:    getEnv("LOG_LEVEL", string(logging.LevelInfo)),
		LogPretty:   getEnv("LOG_PRETTY", "true") == "true",
		RedisAddr:   getEnv("REDIS_ADDR", ""),
		MetricsFile: getEnv("METRICS_FILE", ""),
	}
}

func (g *globalConfig) register(fs *flag.FlagSet) {
	fs.StringVar(&g.Output, "output", g.Output, "Output directory")
	fs.StringVar(&g.Output, "o", g.Output, "Output directory (shorthand)")
	fs.StringVar(&g.BaseURL, "base-url", g.BaseURL, "Explorer API endpoint")
	fs.DurationVar(&g.Timeout, "timeout", g.Timeout, "Per-request timeout")
	fs.IntVar(&g.MaxRetries, "max-retries", g.MaxRetries, "Attempts per request")
	fs.DurationVar(&g.RetryDelay, "retry-delay", g.RetryDelay, "Linear backoff base delay")
	fs.StringVar(&g.LogLevel, "log-level", g.LogLevel, "Log level (debug, info, warn, error)")
	fs.BoolVar(&g.LogPretty, "log-pretty", g.LogPretty, "Human-readable log output")
	fs.BoolVar(&g.Strict, "strict", g.Strict, "Fail on explorer error statuses instead of keeping partial data")
	fs.BoolVar(&g.Manifest, "manifest", g.Manifest, "Write a manifest of saved files to <output>/manifests")
	fs.StringVar(&g.RedisAddr, "redis-addr", g.RedisAddr, "Record manifests in Redis at this address")
	fs.StringVar(&g.MetricsFile, "metrics-file", g.MetricsFile, "Write Prometheus metrics to this textfile on exit")
}

func (g globalConfig) validate() error {
	if !logging.LogLevel(g.LogLevel).Valid() {
		return fmt.Errorf("invalid log level %q", g.LogLevel)
	}
	if g.MaxRetries < 1 {
		return fmt.Errorf("max-retries must be >= 1 (got %d)", g.MaxRetries)
	}
	return nil
}

func (g globalConfig) clientConfig() client.Config {
	cfg := client.DefaultConfig()
	cfg.BaseURL = g.BaseURL
	cfg.Timeout = g.Timeout
	cfg.MaxRetries = g.MaxRetries
	cfg.RetryDelay = g.RetryDelay
	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("1500ms") and plain seconds ("30").
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.ParseFloat(value, 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	return defaultValue
}
