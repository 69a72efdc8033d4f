// Package harness sequences every probe against one running target.
package harness

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Serdar715/pathguard/internal/browser"
	"github.com/Serdar715/pathguard/internal/config"
	"github.com/Serdar715/pathguard/internal/payloads"
	"github.com/Serdar715/pathguard/internal/scanner"
	"github.com/Serdar715/pathguard/internal/waf"

	"github.com/rs/zerolog/log"
)

// Orchestrator runs the probe cases strictly one after another:
// preflight, malformed request, browser probes, redirect fixtures, origin guard.
type Orchestrator struct {
	cfg     *config.HarnessConfig
	driver  browser.Driver
	fetcher scanner.Fetcher
	raw     scanner.Fetcher
	health  *scanner.BrowserHealthChecker
	errs    *scanner.ErrorAggregator

	// Progress, when set, is called after every finished case
	Progress func(config.CaseResult)
}

// New creates an orchestrator. driver may be nil when cfg.SkipBrowser is set.
// fetcher must not follow redirects; raw must send request-targets unmodified.
func New(cfg *config.HarnessConfig, driver browser.Driver, fetcher, raw scanner.Fetcher) *Orchestrator {
	return &Orchestrator{
		cfg:     cfg,
		driver:  driver,
		fetcher: fetcher,
		raw:     raw,
		health:  scanner.NewBrowserHealthChecker(cfg.Health.MaxFailures),
		errs:    scanner.NewErrorAggregator(),
	}
}

// abortError marks a setup failure that ends the run
type abortError struct {
	err error
}

func (e *abortError) Error() string { return e.err.Error() }
func (e *abortError) Unwrap() error { return e.err }

// Run executes all cases. The returned result is never nil. A non-nil error
// means the run was aborted as a setup failure; individual case failures
// are only reported in the result.
func (o *Orchestrator) Run(ctx context.Context, runID string) (*config.RunResult, error) {
	result := &config.RunResult{
		RunID:     runID,
		Target:    o.cfg.Target.BaseURL(),
		StartTime: time.Now(),
	}

	err := o.run(ctx, result)
	result.Errors = o.errs.Messages()
	if err != nil {
		result.Aborted = true
		result.AbortReason = err.Error()
		log.Error().Err(err).Msg("Run aborted")
	}
	result.Finish(time.Now())
	return result, err
}

func (o *Orchestrator) run(ctx context.Context, result *config.RunResult) error {
	if err := o.preflight(ctx, result); err != nil {
		return err
	}

	steps := []func(context.Context, *config.RunResult) error{
		o.runMalformed,
		o.runBrowserProbes,
		o.runRedirects,
		o.runOriginGuard,
	}
	for _, step := range steps {
		if err := step(ctx, result); err != nil {
			var ae *abortError
			if errors.As(err, &ae) {
				return ae.err
			}
			return err
		}
	}
	return nil
}

// preflight makes sure something is listening on the target port and
// records any WAF answering in front of it
func (o *Orchestrator) preflight(ctx context.Context, result *config.RunResult) error {
	base := o.cfg.Target.BaseURL()
	resp, err := o.fetcher.Fetch(ctx, base, "/")
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %w", scanner.ErrCanceled, err)
		}
		return fmt.Errorf("%w: %s: %w", scanner.ErrTargetUnreachable, base, err)
	}
	log.Info().Str("target", base).Int("status", resp.Status).Msg("Target reachable")

	if name := waf.Fingerprint(resp.Status, resp.Header); name != "" {
		result.WAFDetected = name
		log.Warn().Str("waf", name).Msg("WAF detected in front of target, results may reflect the WAF")
	}
	return nil
}

func (o *Orchestrator) runMalformed(ctx context.Context, result *config.RunResult) error {
	start := time.Now()
	out, err := scanner.NewMalformedProbe(o.raw, o.cfg.Target).Check(ctx)

	c := config.CaseResult{
		Name:     "malformed request-target",
		Kind:     config.KindMalformed,
		Path:     payloads.MalformedPath,
		Observed: out.String(),
	}
	return o.record(result, c, start, err)
}

func (o *Orchestrator) runBrowserProbes(ctx context.Context, result *config.RunResult) error {
	cases := payloads.ProbeCases()
	if o.skipBrowser() {
		for _, pc := range cases {
			o.add(result, config.CaseResult{Name: pc.Name, Kind: config.KindBrowser, Path: pc.Path,
				Status: config.StatusSkipped, Detail: "browser disabled"})
		}
		return nil
	}

	detector := scanner.NewInjectionDetector(o.cfg.Detector.Marker, o.cfg.Detector.Timeout, o.cfg.Detector.Interval)
	probe := scanner.NewBrowserProbe(o.driver, detector, o.cfg.Target)

	for _, pc := range cases {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %w", scanner.ErrCanceled, err)
		}

		start := time.Now()
		out, err := probe.Run(ctx, pc)
		c := config.CaseResult{Name: pc.Name, Kind: config.KindBrowser, Path: pc.Path, Evidence: browserEvidence(out)}
		if err := o.record(result, c, start, err); err != nil {
			return err
		}

		if errors.Is(err, scanner.ErrInfrastructure) {
			o.health.RecordFailure(err)
		} else {
			o.health.RecordSuccess()
		}
		if !o.health.IsHealthy() {
			return fmt.Errorf("%w after %d consecutive failures: %w",
				scanner.ErrBrowserUnhealthy, o.health.FailureCount(), o.health.LastError())
		}
	}
	return nil
}

func (o *Orchestrator) runRedirects(ctx context.Context, result *config.RunResult) error {
	validator := scanner.NewRedirectValidator(o.fetcher, o.cfg.Target)
	for _, exp := range payloads.RedirectExpectations() {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %w", scanner.ErrCanceled, err)
		}

		start := time.Now()
		obs, err := validator.Check(ctx, exp)
		c := config.CaseResult{Name: exp.Name, Kind: config.KindRedirect, Path: exp.RequestPath, Observed: obs.String()}
		if err := o.record(result, c, start, err); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) runOriginGuard(ctx context.Context, result *config.RunResult) error {
	fx := payloads.Origin()
	if o.skipBrowser() {
		o.add(result, config.CaseResult{Name: fx.Name, Kind: config.KindOrigin, Path: fx.NavigationPath,
			Status: config.StatusSkipped, Detail: "browser disabled"})
		return nil
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", scanner.ErrCanceled, err)
	}

	guard := scanner.NewCrossOriginGuard(o.driver, o.cfg.Target, o.cfg.Guard)
	start := time.Now()
	out, err := guard.Check(ctx, fx)

	c := config.CaseResult{
		Name:     fx.Name,
		Kind:     config.KindOrigin,
		Path:     fx.NavigationPath,
		Observed: fmt.Sprintf("%s=%q invoked=%t", fx.Attribute, out.Attribute, out.Invoked),
	}
	if errors.Is(err, scanner.ErrListenerBind) {
		_ = o.record(result, c, start, err)
		return &abortError{err: err}
	}
	return o.record(result, c, start, err)
}

// record classifies err into the case status and appends the case.
// A canceled case is still recorded, then returned as an abort.
func (o *Orchestrator) record(result *config.RunResult, c config.CaseResult, start time.Time, err error) error {
	c.ElapsedMs = time.Since(start).Milliseconds()

	switch ae, isAssertion := scanner.AsAssertion(err); {
	case err == nil:
		c.Status = config.StatusPass
	case isAssertion:
		c.Status = config.StatusFail
		c.Failure = ae.Kind
		c.Detail = ae.Detail
	default:
		c.Status = config.StatusError
		c.Detail = err.Error()
		o.errs.Add(err)
	}
	o.add(result, c)

	if err != nil && errors.Is(err, scanner.ErrCanceled) {
		return &abortError{err: err}
	}
	return nil
}

func (o *Orchestrator) add(result *config.RunResult, c config.CaseResult) {
	result.Add(c)

	event := log.Info()
	switch c.Status {
	case config.StatusFail:
		event = log.Warn().Str("failure", c.Failure)
	case config.StatusError:
		event = log.Error()
	}
	event.Str("case", c.Name).
		Str("kind", string(c.Kind)).
		Str("status", string(c.Status)).
		Int64("elapsed_ms", c.ElapsedMs).
		Msg("Case finished")

	if o.Progress != nil {
		o.Progress(c)
	}
}

func (o *Orchestrator) skipBrowser() bool {
	return o.cfg.SkipBrowser || o.driver == nil
}

func browserEvidence(out scanner.DetectionOutcome) string {
	var parts []string
	if out.Evidence != "" {
		parts = append(parts, out.Evidence)
	}
	if len(out.Dialogs) > 0 {
		parts = append(parts, "dialogs: "+strings.Join(out.Dialogs, ", "))
	}
	return strings.Join(parts, " | ")
}
