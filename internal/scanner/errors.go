// Package scanner - Error taxonomy for probe results
package scanner

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"syscall"
)

// Sentinel errors for infrastructure conditions
var (
	// ErrInfrastructure matches every *InfrastructureError via errors.Is
	ErrInfrastructure = errors.New("infrastructure error")

	// ErrTargetUnreachable indicates the target could not be reached at all
	ErrTargetUnreachable = errors.New("target unreachable")

	// ErrListenerBind indicates the guard listener could not bind its port
	ErrListenerBind = errors.New("listener bind failed")

	// ErrNavigation indicates the browser could not open or load the page
	ErrNavigation = errors.New("navigation failed")

	// ErrMalformedResponse indicates a response could not be interpreted
	ErrMalformedResponse = errors.New("malformed response")

	// ErrBrowserUnhealthy indicates repeated browser failures
	ErrBrowserUnhealthy = errors.New("browser unhealthy")

	// ErrCanceled indicates the run was canceled before the probe finished
	ErrCanceled = errors.New("operation canceled")
)

// InfrastructureError reports a failure of the harness itself, not of the target's defenses
type InfrastructureError struct {
	Case      string // The probe case (if applicable)
	Operation string // The operation that failed
	URL       string
	Cause     error
}

// Error implements the error interface
func (e *InfrastructureError) Error() string {
	if e.Case != "" {
		return fmt.Sprintf("%s failed for case '%s' on %s: %v",
			e.Operation, e.Case, truncateString(e.URL, 80), e.Cause)
	}
	return fmt.Sprintf("%s failed for %s: %v",
		e.Operation, truncateString(e.URL, 80), e.Cause)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *InfrastructureError) Unwrap() error {
	return e.Cause
}

// Is makes every InfrastructureError match ErrInfrastructure
func (e *InfrastructureError) Is(target error) bool {
	return target == ErrInfrastructure
}

// NewInfraError creates a new InfrastructureError
func NewInfraError(operation, url string, cause error) *InfrastructureError {
	return &InfrastructureError{
		URL:       url,
		Operation: operation,
		Cause:     cause,
	}
}

// AssertionError is a security failure observed on the target
type AssertionError struct {
	Kind   string // one of the Failure* constants
	Case   string
	Detail string
}

func (e *AssertionError) Error() string {
	return fmt.Sprintf("%s in case '%s': %s", e.Kind, e.Case, e.Detail)
}

// NewAssertionError creates a new AssertionError
func NewAssertionError(kind, caseName, format string, args ...any) *AssertionError {
	return &AssertionError{
		Kind:   kind,
		Case:   caseName,
		Detail: fmt.Sprintf(format, args...),
	}
}

// AsAssertion returns the AssertionError wrapped in err, if any.
func AsAssertion(err error) (*AssertionError, bool) {
	var ae *AssertionError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// IsConnectionRefused reports whether err is a refused TCP connection.
// Some clients flatten the syscall error into text, so the message is checked too.
func IsConnectionRefused(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "actively refused")
}

// truncateString truncates a string to maxLen characters
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// ErrorAggregator collects infrastructure errors over a run.
type ErrorAggregator struct {
	errors []error
	mu     sync.Mutex
}

// NewErrorAggregator creates a new error aggregator instance.
func NewErrorAggregator() *ErrorAggregator {
	return &ErrorAggregator{
		errors: make([]error, 0),
	}
}

// Add appends an error to the aggregator if it's not nil.
func (ea *ErrorAggregator) Add(err error) {
	if err == nil {
		return
	}
	ea.mu.Lock()
	ea.errors = append(ea.errors, err)
	ea.mu.Unlock()
}

// Messages returns the collected errors as strings, nil if none.
func (ea *ErrorAggregator) Messages() []string {
	ea.mu.Lock()
	defer ea.mu.Unlock()

	if len(ea.errors) == 0 {
		return nil
	}
	out := make([]string, 0, len(ea.errors))
	for _, err := range ea.errors {
		out = append(out, err.Error())
	}
	return out
}
