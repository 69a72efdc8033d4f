package scanner

import (
	"context"
	"strings"
	"time"

	"github.com/Serdar715/pathguard/internal/config"

	"github.com/rs/zerolog/log"
)

// DetectionOutcome is the result of one InjectionDetector run
type DetectionOutcome struct {
	Detected  bool
	ElapsedMs int64
	Polls     int
	Evidence  string   // body text around the first match
	Dialogs   []string // JS dialog messages seen by the session, if any
}

// InjectionDetector polls rendered page text for a literal marker.
//
// A match ends the run immediately. A negative result is only returned once the
// whole window has elapsed: absence of the marker on an early poll proves nothing.
// Read errors from the source count as "not yet matched".
type InjectionDetector struct {
	Marker   string
	Timeout  time.Duration
	Interval time.Duration
}

// NewInjectionDetector creates a detector, falling back to the default window
// and poll interval for non-positive durations.
func NewInjectionDetector(marker string, timeout, interval time.Duration) *InjectionDetector {
	if timeout <= 0 {
		timeout = config.DefaultDetectTimeout
	}
	if interval <= 0 {
		interval = config.DefaultPollInterval
	}
	return &InjectionDetector{Marker: marker, Timeout: timeout, Interval: interval}
}

// Detect polls source every Interval until the marker appears or Timeout elapses.
// The only error returned is ctx's, when the caller cancels before the window closes.
func (d *InjectionDetector) Detect(ctx context.Context, source TextSource) (DetectionOutcome, error) {
	var out DetectionOutcome
	start := time.Now()
	deadline := start.Add(d.Timeout)

	timer := time.NewTimer(d.Interval)
	defer timer.Stop()

	for {
		out.Polls++
		if text, ok := d.read(ctx, source, deadline); ok {
			if idx := strings.Index(text, d.Marker); idx >= 0 {
				out.Detected = true
				out.Evidence = excerpt(text, idx, len(d.Marker))
				break
			}
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(min(d.Interval, remaining))

		select {
		case <-ctx.Done():
			out.ElapsedMs = time.Since(start).Milliseconds()
			return out, ctx.Err()
		case <-timer.C:
		}
	}

	out.ElapsedMs = time.Since(start).Milliseconds()
	return out, nil
}

// read fetches the page text once. A read may run at most one interval past
// the window so a slow page cannot hold the detector forever.
func (d *InjectionDetector) read(ctx context.Context, source TextSource, deadline time.Time) (string, bool) {
	readCtx, cancel := context.WithDeadline(ctx, deadline.Add(d.Interval))
	defer cancel()

	text, err := source(readCtx)
	if err != nil {
		log.Debug().Err(err).Msg("Page text not readable yet")
		return "", false
	}
	return text, true
}

// excerpt returns the text around a match with whitespace collapsed
func excerpt(text string, idx, n int) string {
	start := max(idx-EvidenceContextRadius, 0)
	end := min(idx+n+EvidenceContextRadius, len(text))
	snippet := strings.Join(strings.Fields(text[start:end]), " ")
	if start > 0 {
		snippet = "..." + snippet
	}
	if end < len(text) {
		snippet += "..."
	}
	return snippet
}
