package scanner

import (
	"context"
	"fmt"
	"strings"

	"github.com/Serdar715/pathguard/internal/config"
	"github.com/Serdar715/pathguard/internal/payloads"

	"github.com/rs/zerolog/log"
)

// RedirectObservation is what the target answered for one redirect fixture
type RedirectObservation struct {
	Status   int    `json:"status" yaml:"status"`
	Location string `json:"location" yaml:"location"`
	Pathname string `json:"pathname" yaml:"pathname"`
	Hostname string `json:"hostname" yaml:"hostname"`
}

// String renders the observed triple
func (o RedirectObservation) String() string {
	return fmt.Sprintf("status=%d pathname=%s hostname=%s", o.Status, o.Pathname, o.Hostname)
}

// RedirectValidator checks that redirects keep the request's percent-encoding
type RedirectValidator struct {
	fetcher Fetcher
	target  config.TargetConfig
}

// NewRedirectValidator creates a validator. fetcher must not follow redirects.
func NewRedirectValidator(fetcher Fetcher, target config.TargetConfig) *RedirectValidator {
	return &RedirectValidator{fetcher: fetcher, target: target}
}

// Check requests exp.RequestPath and compares status, Location pathname and
// Location hostname exactly. A deviation is an *AssertionError of kind
// FailureEncodingMismatch; a failed request is an *InfrastructureError.
func (v *RedirectValidator) Check(ctx context.Context, exp payloads.RedirectExpectation) (RedirectObservation, error) {
	var obs RedirectObservation
	url := v.target.URL(exp.RequestPath)

	resp, err := v.fetcher.Fetch(ctx, v.target.BaseURL(), exp.RequestPath)
	if err != nil {
		e := NewInfraError("redirect request", url, err)
		e.Case = exp.Name
		return obs, e
	}

	obs.Status = resp.Status
	obs.Location = resp.Header.Get("Location")
	parts := SplitLocation(obs.Location)
	obs.Pathname = parts.Pathname
	obs.Hostname = parts.Hostname

	log.Debug().
		Str("case", exp.Name).
		Int("status", obs.Status).
		Str("location", obs.Location).
		Msg("Redirect observed")

	var mismatches []string
	if obs.Status != exp.ExpectedStatus {
		mismatches = append(mismatches, fmt.Sprintf("status %d, want %d", obs.Status, exp.ExpectedStatus))
	}
	if obs.Pathname != exp.ExpectedPathname {
		mismatches = append(mismatches, fmt.Sprintf("pathname %q, want %q", obs.Pathname, exp.ExpectedPathname))
	}
	if obs.Hostname != exp.ExpectedHostname {
		mismatches = append(mismatches, fmt.Sprintf("hostname %q, want %q", obs.Hostname, exp.ExpectedHostname))
	}
	if len(mismatches) > 0 {
		return obs, NewAssertionError(FailureEncodingMismatch, exp.Name, "%s", strings.Join(mismatches, "; "))
	}
	return obs, nil
}
