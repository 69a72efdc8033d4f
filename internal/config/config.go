package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/Serdar715/pathguard/internal/payloads"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. PATHGUARD_TARGET_PORT.
const EnvPrefix = "PATHGUARD"

// Default values shared by DefaultConfig, SetDefaults and the CLI flags
const (
	DefaultTargetHost        = "localhost"
	DefaultMarker            = payloads.DefaultMarker
	DefaultDetectTimeout     = 5000 * time.Millisecond
	DefaultPollInterval      = 500 * time.Millisecond
	DefaultGuardHost         = "127.0.0.1"
	DefaultGuardPort         = 5243
	DefaultGuardSettle       = 500 * time.Millisecond
	DefaultNavigationTimeout = 30 * time.Second
	DefaultHTTPTimeout       = 15 * time.Second
	DefaultMaxFailures       = 3
	DefaultFormat            = "json"
	DefaultLogLevel          = "info"
)

// HarnessConfig holds all configuration for one harness run
type HarnessConfig struct {
	Target      TargetConfig   `mapstructure:"target"`
	Detector    DetectorConfig `mapstructure:"detector"`
	Guard       GuardConfig    `mapstructure:"guard"`
	Browser     BrowserConfig  `mapstructure:"browser"`
	HTTP        HTTPConfig     `mapstructure:"http"`
	Health      HealthConfig   `mapstructure:"health"`
	Output      OutputConfig   `mapstructure:"output"`
	Log         LogConfig      `mapstructure:"log"`
	SkipBrowser bool           `mapstructure:"skip_browser"`
	Silent      bool           `mapstructure:"silent"`
}

// TargetConfig identifies the already-running target. Read-only for the whole run.
type TargetConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// BaseURL returns http://host:port without a trailing slash.
func (t TargetConfig) BaseURL() string {
	return "http://" + net.JoinHostPort(t.Host, strconv.Itoa(t.Port))
}

// URL joins the base URL with a probe path verbatim.
func (t TargetConfig) URL(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return t.BaseURL() + path
}

type DetectorConfig struct {
	Marker   string        `mapstructure:"marker"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Interval time.Duration `mapstructure:"interval"`
}

// GuardConfig configures the untrusted-origin listener
type GuardConfig struct {
	Host   string        `mapstructure:"host"`
	Port   int           `mapstructure:"port"`
	Settle time.Duration `mapstructure:"settle"`
}

// Origin returns the guard origin as the browser sees it
func (g GuardConfig) Origin() string {
	return "http://" + net.JoinHostPort(g.Host, strconv.Itoa(g.Port))
}

type BrowserConfig struct {
	Headless          bool          `mapstructure:"headless"`
	Bin               string        `mapstructure:"bin"`
	NoSandbox         bool          `mapstructure:"no_sandbox"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout"`
}

type HTTPConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

type HealthConfig struct {
	MaxFailures int `mapstructure:"max_failures"`
}

type OutputConfig struct {
	File    string `mapstructure:"file"`
	Format  string `mapstructure:"format"`
	Webhook string `mapstructure:"webhook"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
	File   string `mapstructure:"file"`
}

// SetDefaults registers every key with its DefaultConfig value on v.
func SetDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("target.host", d.Target.Host)
	v.SetDefault("target.port", d.Target.Port)
	v.SetDefault("detector.marker", d.Detector.Marker)
	v.SetDefault("detector.timeout", d.Detector.Timeout)
	v.SetDefault("detector.interval", d.Detector.Interval)
	v.SetDefault("guard.host", d.Guard.Host)
	v.SetDefault("guard.port", d.Guard.Port)
	v.SetDefault("guard.settle", d.Guard.Settle)
	v.SetDefault("browser.headless", d.Browser.Headless)
	v.SetDefault("browser.bin", d.Browser.Bin)
	v.SetDefault("browser.no_sandbox", d.Browser.NoSandbox)
	v.SetDefault("browser.navigation_timeout", d.Browser.NavigationTimeout)
	v.SetDefault("http.timeout", d.HTTP.Timeout)
	v.SetDefault("health.max_failures", d.Health.MaxFailures)
	v.SetDefault("output.file", d.Output.File)
	v.SetDefault("output.format", d.Output.Format)
	v.SetDefault("output.webhook", d.Output.Webhook)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.pretty", d.Log.Pretty)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("skip_browser", d.SkipBrowser)
	v.SetDefault("silent", d.Silent)
}

// DefaultConfig returns the default harness configuration
func DefaultConfig() *HarnessConfig {
	return &HarnessConfig{
		Target: TargetConfig{Host: DefaultTargetHost},
		Detector: DetectorConfig{
			Marker:   DefaultMarker,
			Timeout:  DefaultDetectTimeout,
			Interval: DefaultPollInterval,
		},
		Guard: GuardConfig{
			Host:   DefaultGuardHost,
			Port:   DefaultGuardPort,
			Settle: DefaultGuardSettle,
		},
		Browser: BrowserConfig{
			Headless:          true,
			NoSandbox:         true,
			NavigationTimeout: DefaultNavigationTimeout,
		},
		HTTP:   HTTPConfig{Timeout: DefaultHTTPTimeout},
		Health: HealthConfig{MaxFailures: DefaultMaxFailures},
		Output: OutputConfig{Format: DefaultFormat},
		Log:    LogConfig{Level: DefaultLogLevel, Pretty: true},
	}
}

// Load reads the configuration like Read and validates it.
func Load(v *viper.Viper, cfgFile string) (*HarnessConfig, error) {
	cfg, err := Read(v, cfgFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read decodes defaults, the optional config file and PATHGUARD_* env vars from v
// without validating the result. A missing default config file is not an error;
// a missing explicit one or a malformed one is.
func Read(v *viper.Viper, cfgFile string) (*HarnessConfig, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("pathguard")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &HarnessConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

// Validate checks ranges and cross-field constraints
func (c *HarnessConfig) Validate() error {
	var problems []string
	if c.Target.Port < 1 || c.Target.Port > 65535 {
		problems = append(problems, fmt.Sprintf("target.port must be in 1..65535, got %d", c.Target.Port))
	}
	if c.Target.Host == "" {
		problems = append(problems, "target.host must not be empty")
	}
	if c.Guard.Port < 1 || c.Guard.Port > 65535 {
		problems = append(problems, fmt.Sprintf("guard.port must be in 1..65535, got %d", c.Guard.Port))
	}
	if c.Guard.Port == c.Target.Port && c.Guard.Port != 0 {
		problems = append(problems, "guard.port must differ from target.port")
	}
	if c.Detector.Marker == "" {
		problems = append(problems, "detector.marker must not be empty")
	}
	if c.Detector.Timeout <= 0 {
		problems = append(problems, "detector.timeout must be positive")
	}
	if c.Detector.Interval <= 0 || c.Detector.Interval > c.Detector.Timeout {
		problems = append(problems, "detector.interval must be positive and not exceed detector.timeout")
	}
	if c.Guard.Settle < 0 {
		problems = append(problems, "guard.settle must not be negative")
	}
	if c.Browser.NavigationTimeout <= 0 {
		problems = append(problems, "browser.navigation_timeout must be positive")
	}
	if c.HTTP.Timeout <= 0 {
		problems = append(problems, "http.timeout must be positive")
	}
	if c.Health.MaxFailures < 1 {
		problems = append(problems, "health.max_failures must be at least 1")
	}
	switch strings.ToLower(c.Output.Format) {
	case "json", "yaml", "yml", "markdown", "md":
	default:
		problems = append(problems, fmt.Sprintf("output.format %q is not one of json, yaml, markdown", c.Output.Format))
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}
