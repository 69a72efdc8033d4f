package scanner

import (
	"context"
	"fmt"

	"github.com/Serdar715/pathguard/internal/browser"
	"github.com/Serdar715/pathguard/internal/config"
	"github.com/Serdar715/pathguard/internal/payloads"

	"github.com/rs/zerolog/log"
)

// BrowserProbe navigates a real browser to each attack path and watches the
// rendered page for the marker.
type BrowserProbe struct {
	driver   browser.Driver
	detector *InjectionDetector
	target   config.TargetConfig
}

// NewBrowserProbe creates a probe against target using driver for navigation
func NewBrowserProbe(driver browser.Driver, detector *InjectionDetector, target config.TargetConfig) *BrowserProbe {
	return &BrowserProbe{driver: driver, detector: detector, target: target}
}

// Run probes one case. It returns an *AssertionError when the marker renders
// and an *InfrastructureError when the page could not be driven at all.
// The session is closed on every path.
func (p *BrowserProbe) Run(ctx context.Context, pc payloads.ProbeCase) (outcome DetectionOutcome, err error) {
	url := p.target.URL(pc.Path)
	logger := log.With().Str("case", pc.Name).Str("url", url).Logger()

	session, err := p.driver.Open(ctx, url)
	if err != nil {
		if ctx.Err() != nil {
			return outcome, p.infraError(pc, "navigate", url, fmt.Errorf("%w: %w", ErrCanceled, err))
		}
		return outcome, p.infraError(pc, "navigate", url, fmt.Errorf("%w: %w", ErrNavigation, err))
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			logger.Warn().Err(cerr).Msg("Failed to close browser session")
		}
	}()

	outcome, err = p.detector.Detect(ctx, session.BodyText)
	outcome.Dialogs = session.Dialogs()
	if err != nil {
		return outcome, p.infraError(pc, "detect", url, fmt.Errorf("%w: %w", ErrCanceled, err))
	}

	logger.Debug().
		Bool("detected", outcome.Detected).
		Int("polls", outcome.Polls).
		Int64("elapsed_ms", outcome.ElapsedMs).
		Msg("Detection finished")

	if outcome.Detected {
		return outcome, NewAssertionError(FailureInjectionDetected, pc.Name,
			"marker %q rendered after %dms", p.detector.Marker, outcome.ElapsedMs)
	}
	return outcome, nil
}

func (p *BrowserProbe) infraError(pc payloads.ProbeCase, op, url string, cause error) *InfrastructureError {
	e := NewInfraError(op, url, cause)
	e.Case = pc.Name
	return e
}
