package scanner

import "time"

const (
	// Grace period for in-flight guard requests on shutdown
	GuardShutdownWindow = 3 * time.Second

	// Characters of body text kept on each side of a marker match
	EvidenceContextRadius = 40

	// Attempts of the malformed request
	MalformedAttempts = 2
)

// Assertion failure kinds
const (
	FailureInjectionDetected          = "injection_detected"
	FailureEncodingMismatch           = "encoding_mismatch"
	FailureUnexpectedOriginInvocation = "unexpected_origin_invocation"
	FailureEmbedSourceMismatch        = "embed_source_mismatch"
	FailureMalformedAccepted          = "malformed_accepted"
)
