package scanner

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Serdar715/pathguard/internal/config"
	"github.com/Serdar715/pathguard/internal/payloads"

	"github.com/rs/zerolog/log"
)

// MalformedOutcome records how the target handled the malformed request-target
type MalformedOutcome struct {
	Statuses []int `json:"statuses" yaml:"statuses"`
	Refused  bool  `json:"refused" yaml:"refused"`
}

// String renders the outcome for reports
func (o MalformedOutcome) String() string {
	if o.Refused {
		return fmt.Sprintf("statuses=%v refused", o.Statuses)
	}
	return fmt.Sprintf("statuses=%v", o.Statuses)
}

// MalformedProbe sends "GET *" and accepts exactly two outcomes: a 400 on
// every attempt, or a refused connection. Platforms differ in which of the two
// a correct target produces, so both are accepted.
type MalformedProbe struct {
	fetcher  Fetcher
	target   config.TargetConfig
	attempts int
}

// NewMalformedProbe creates a probe. fetcher must send the request-target
// unmodified, which rules out net/http.
func NewMalformedProbe(fetcher Fetcher, target config.TargetConfig) *MalformedProbe {
	return &MalformedProbe{fetcher: fetcher, target: target, attempts: MalformedAttempts}
}

// Check runs the probe. Anything other than the two accepted outcomes is an
// *AssertionError of kind FailureMalformedAccepted.
func (p *MalformedProbe) Check(ctx context.Context) (MalformedOutcome, error) {
	var out MalformedOutcome
	const name = "malformed request-target"

	for i := 0; i < p.attempts; i++ {
		resp, err := p.fetcher.Fetch(ctx, p.target.BaseURL(), payloads.MalformedPath)
		if err != nil {
			if ctx.Err() != nil {
				e := NewInfraError("malformed request", p.target.BaseURL(), fmt.Errorf("%w: %w", ErrCanceled, err))
				e.Case = name
				return out, e
			}
			if IsConnectionRefused(err) {
				log.Debug().Int("attempt", i+1).Msg("Malformed request refused")
				out.Refused = true
				return out, nil
			}
			return out, NewAssertionError(FailureMalformedAccepted, name, "unexpected error on attempt %d: %v", i+1, err)
		}

		out.Statuses = append(out.Statuses, resp.Status)
		if resp.Status != http.StatusBadRequest {
			return out, NewAssertionError(FailureMalformedAccepted, name,
				"attempt %d answered %d, want %d or a refused connection", i+1, resp.Status, http.StatusBadRequest)
		}
	}
	return out, nil
}
