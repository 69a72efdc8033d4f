package config

import "time"

// CaseKind names the probe family a case belongs to
type CaseKind string

const (
	KindMalformed CaseKind = "malformed-request"
	KindBrowser   CaseKind = "browser-injection"
	KindRedirect  CaseKind = "redirect-encoding"
	KindOrigin    CaseKind = "cross-origin-guard"
)

// CaseStatus is the verdict of one case
type CaseStatus string

const (
	StatusPass    CaseStatus = "pass"
	StatusFail    CaseStatus = "fail"
	StatusError   CaseStatus = "error"
	StatusSkipped CaseStatus = "skipped"
)

// CaseResult is the outcome of a single probe case
type CaseResult struct {
	Name      string     `json:"name" yaml:"name"`
	Kind      CaseKind   `json:"kind" yaml:"kind"`
	Path      string     `json:"path" yaml:"path"`
	Status    CaseStatus `json:"status" yaml:"status"`
	Failure   string     `json:"failure,omitempty" yaml:"failure,omitempty"` // assertion kind when Status is fail
	Detail    string     `json:"detail,omitempty" yaml:"detail,omitempty"`
	Evidence  string     `json:"evidence,omitempty" yaml:"evidence,omitempty"`
	Observed  string     `json:"observed,omitempty" yaml:"observed,omitempty"`
	ElapsedMs int64      `json:"elapsed_ms" yaml:"elapsed_ms"`
}

// RunResult contains the complete harness results
type RunResult struct {
	RunID       string       `json:"run_id" yaml:"run_id"`
	Target      string       `json:"target" yaml:"target"`
	WAFDetected string       `json:"waf_detected,omitempty" yaml:"waf_detected,omitempty"`
	StartTime   time.Time    `json:"start_time" yaml:"start_time"`
	EndTime     time.Time    `json:"end_time" yaml:"end_time"`
	Duration    string       `json:"duration" yaml:"duration"`
	Cases       []CaseResult `json:"cases" yaml:"cases"`
	Passed      int          `json:"passed" yaml:"passed"`
	Failed      int          `json:"failed" yaml:"failed"`
	Errored     int          `json:"errored" yaml:"errored"`
	Skipped     int          `json:"skipped" yaml:"skipped"`
	Aborted     bool         `json:"aborted" yaml:"aborted"`
	AbortReason string       `json:"abort_reason,omitempty" yaml:"abort_reason,omitempty"`
	Errors      []string     `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// Add appends a case and updates the counters
func (r *RunResult) Add(c CaseResult) {
	r.Cases = append(r.Cases, c)
	switch c.Status {
	case StatusPass:
		r.Passed++
	case StatusFail:
		r.Failed++
	case StatusError:
		r.Errored++
	case StatusSkipped:
		r.Skipped++
	}
}

// Finish stamps the end time and duration.
func (r *RunResult) Finish(end time.Time) {
	r.EndTime = end
	r.Duration = end.Sub(r.StartTime).Round(time.Millisecond).String()
}

// OK reports whether every executed case passed and the run was not aborted.
func (r *RunResult) OK() bool {
	return !r.Aborted && r.Failed == 0 && r.Errored == 0
}
