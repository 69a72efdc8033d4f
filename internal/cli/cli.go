package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Serdar715/pathguard/internal/banner"
	"github.com/Serdar715/pathguard/internal/browser"
	"github.com/Serdar715/pathguard/internal/config"
	"github.com/Serdar715/pathguard/internal/harness"
	"github.com/Serdar715/pathguard/internal/logging"
	"github.com/Serdar715/pathguard/internal/report"
	"github.com/Serdar715/pathguard/internal/scanner"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Exit codes
const (
	ExitFailed = 1 // at least one case failed or errored
	ExitSetup  = 2 // the run could not be set up or was aborted
)

var (
	// Global options
	cfgFile string
	debug   bool

	// Browser options
	visibleMode bool
)

// ExitError carries the process exit code for an error returned by Execute
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }
func (e *ExitError) Unwrap() error { return e.Err }

// ExitCode maps an error returned by Execute to a process exit code
func ExitCode(err error) int {
	var ee *ExitError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return ExitSetup
}

func Execute() error {
	v := viper.New()
	rootCmd := newRootCmd(v)
	return rootCmd.Execute()
}

func newRootCmd(v *viper.Viper) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pathguard",
		Short: "URL path injection and encoding harness",
		Long: banner.GetBanner() + `
PathGuard - URL Path Injection Harness

Fires a fixed catalog of attack requests at an already running web server and
decides pass/fail per case:
  • "GET *" must be rejected with 400 or a refused connection
  • script payloads in the URL path must never render in a real browser
  • redirects must keep percent-encoding of backslash and percent exactly
  • an embedded untrusted origin must never be contacted
`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "Config file (default ./pathguard.yaml)")
	flags.BoolVar(&debug, "debug", false, "Enable debug logging")
	flags.Bool("pretty", true, "Human readable console logs instead of JSON lines")
	flags.String("log-file", "", "Also write logs to this file")
	flags.Bool("silent", false, "Silence all output except errors")
	bindFlags(v, flags, map[string]string{
		"log.pretty": "pretty",
		"log.file":   "log-file",
		"silent":     "silent",
	})

	rootCmd.AddCommand(newRunCmd(v), newListCmd(v))
	return rootCmd
}

func newRunCmd(v *viper.Viper) *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run every probe against the target",
		Example: `  # Target listening on localhost:3000
  pathguard run --port 3000

  # Watch the browser while probing
  pathguard run --port 3000 --visible

  # HTTP level cases only, markdown report
  pathguard run --port 3000 --skip-browser -o report.md --format markdown

  # Reference target shipped with the repo
  go run ./cmd/testserver -port 3000 &
  pathguard run -p 3000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHarness(cmd.Context(), v)
		},
	}

	flags := runCmd.Flags()

	// Target flags
	flags.String("host", config.DefaultTargetHost, "Target host")
	flags.IntP("port", "p", 0, "Target port (required)")

	// Detector flags
	flags.String("marker", config.DefaultMarker, "Marker the payloads try to render")
	flags.Duration("timeout", config.DefaultDetectTimeout, "Detection window per browser probe")
	flags.Duration("interval", config.DefaultPollInterval, "Poll interval inside the detection window")

	// Guard flags
	flags.String("guard-host", config.DefaultGuardHost, "Untrusted origin listener host")
	flags.Int("guard-port", config.DefaultGuardPort, "Untrusted origin listener port")

	// Browser flags
	flags.BoolVarP(&visibleMode, "visible", "v", false, "Run browser in visible mode")
	flags.String("browser-bin", "", "Browser binary (downloaded when empty)")
	flags.Bool("skip-browser", false, "Only run the HTTP level cases")
	flags.Int("max-failures", config.DefaultMaxFailures, "Consecutive browser failures before the run aborts")

	// HTTP flags
	flags.Duration("http-timeout", config.DefaultHTTPTimeout, "Timeout of plain HTTP requests")

	// Output flags
	flags.StringP("output", "o", "", "Output file for report")
	flags.String("format", config.DefaultFormat, "Output format (json, yaml, markdown)")
	flags.String("webhook", "", "Webhook notified when a run fails (Discord/Slack compatible)")

	bindFlags(v, flags, map[string]string{
		"target.host":         "host",
		"target.port":         "port",
		"detector.marker":     "marker",
		"detector.timeout":    "timeout",
		"detector.interval":   "interval",
		"guard.host":          "guard-host",
		"guard.port":          "guard-port",
		"browser.bin":         "browser-bin",
		"skip_browser":        "skip-browser",
		"health.max_failures": "max-failures",
		"http.timeout":        "http-timeout",
		"output.file":         "output",
		"output.format":       "format",
		"output.webhook":      "webhook",
	})

	return runCmd
}

func newListCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print the probe catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Read(v, cfgFile)
			if err != nil {
				return &ExitError{Code: ExitSetup, Err: err}
			}
			report.PrintCatalog(cmd.OutOrStdout(), cfg.Guard.Origin())
			return nil
		},
	}
}

// bindFlags binds each config key to the named flag
func bindFlags(v *viper.Viper, flags *pflag.FlagSet, keys map[string]string) {
	for key, name := range keys {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", name, err))
		}
	}
}

func runHarness(parent context.Context, v *viper.Viper) error {
	if debug {
		v.Set("log.level", "debug")
	}
	if visibleMode {
		v.Set("browser.headless", false)
	}

	cfg, err := config.Load(v, cfgFile)
	if err != nil {
		return &ExitError{Code: ExitSetup, Err: err}
	}

	logLevel := cfg.Log.Level
	if cfg.Silent && !debug {
		logLevel = "error"
	}
	closer, err := logging.Setup(logging.Options{Level: logLevel, Pretty: cfg.Log.Pretty, File: cfg.Log.File})
	if err != nil {
		return &ExitError{Code: ExitSetup, Err: err}
	}
	defer closer.Close()

	if !cfg.Silent {
		fmt.Println(banner.GetBanner())
		printConfigSummary(cfg)
	}

	// Signal handler for graceful shutdown (Ctrl+C): cancel the run, keep partial results
	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case <-sigChan:
			color.Yellow("\n\n[!] Run interrupted by user (Ctrl+C), cleaning up...")
			cancel()
		case <-ctx.Done():
		}
	}()

	var driver browser.Driver
	if !cfg.SkipBrowser {
		if !cfg.Silent {
			color.Cyan("[*] Launching browser...")
		}
		d, err := browser.Launch(ctx, cfg.Browser)
		if err != nil {
			return &ExitError{Code: ExitSetup, Err: err}
		}
		defer func() {
			if err := d.Close(); err != nil {
				log.Warn().Err(err).Msg("Failed to close browser")
			}
		}()
		driver = d
	}

	o := harness.New(cfg, driver, scanner.NewHTTPFetcher(cfg.HTTP.Timeout), scanner.NewRawFetcher(cfg.HTTP.Timeout))
	if !cfg.Silent {
		color.Cyan("\n[*] Probing %s\n", cfg.Target.BaseURL())
		o.Progress = printCase
	}

	result, runErr := o.Run(ctx, uuid.NewString())

	if !cfg.Silent {
		fmt.Println()
		report.PrintCases(os.Stdout, result)
		report.PrintSummary(os.Stdout, result)
	}

	if cfg.Output.File != "" {
		if err := report.New(cfg.Output.Format).Generate(result, cfg.Output.File); err != nil {
			return &ExitError{Code: ExitSetup, Err: fmt.Errorf("failed to generate report: %w", err)}
		}
		if !cfg.Silent {
			color.Green("\n[✓] Report saved to: %s\n", cfg.Output.File)
		}
	}

	if cfg.Output.Webhook != "" {
		// the run context may already be canceled; the notification still goes out
		hookCtx, hookCancel := context.WithTimeout(context.Background(), cfg.HTTP.Timeout)
		if err := report.SendWebhook(hookCtx, result, cfg.Output.Webhook); err != nil {
			log.Warn().Err(err).Msg("Webhook notification failed")
		}
		hookCancel()
	}

	if runErr != nil {
		return &ExitError{Code: ExitSetup, Err: fmt.Errorf("run aborted: %w", runErr)}
	}
	if !result.OK() {
		return &ExitError{Code: ExitFailed, Err: fmt.Errorf("%d case(s) failed, %d errored", result.Failed, result.Errored)}
	}
	if !cfg.Silent {
		color.Green("\n[✓] All executed cases passed.")
	}
	return nil
}

// printConfigSummary prints the run configuration
func printConfigSummary(cfg *config.HarnessConfig) {
	color.Yellow("\n┌─────────────────────────────────────────────────┐")
	color.Yellow("│               RUN CONFIGURATION                 │")
	color.Yellow("└─────────────────────────────────────────────────┘")

	color.White("  🎯 Target:      %s", cfg.Target.BaseURL())
	color.White("  🔖 Marker:      %s", cfg.Detector.Marker)
	color.White("  ⏱️  Window:      %s (poll %s)", cfg.Detector.Timeout, cfg.Detector.Interval)
	color.White("  🛡️  Guard:       %s", cfg.Guard.Origin())

	if cfg.SkipBrowser {
		color.White("  🌐 Browser:     disabled")
	} else {
		mode := "headless"
		if !cfg.Browser.Headless {
			mode = "visible"
		}
		color.White("  🌐 Browser:     %s", mode)
	}

	if cfg.Output.File != "" {
		color.White("  📝 Report:      %s (%s)", cfg.Output.File, cfg.Output.Format)
	}

	color.Yellow("─────────────────────────────────────────────────")
}

// printCase prints one progress line per finished case
func printCase(c config.CaseResult) {
	switch c.Status {
	case config.StatusPass:
		color.Green("  [✓] %-45s %s", truncate(c.Name, 45), c.Kind)
	case config.StatusFail:
		color.Red("  [!] %-45s %s: %s", truncate(c.Name, 45), c.Failure, c.Detail)
	case config.StatusError:
		color.Yellow("  [x] %-45s %s", truncate(c.Name, 45), c.Detail)
	default:
		color.Cyan("  [-] %-45s skipped", truncate(c.Name, 45))
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

func init() {
	// Disable color if not a terminal
	if os.Getenv("NO_COLOR") != "" {
		color.NoColor = true
	}
}
