package sources

import "fmt"

// FailureCode classifies adapter failures so callers can distinguish a
// portal outage from a markup change without parsing reason strings.
type FailureCode string

const (
	CodeSessionError        FailureCode = "session_error"
	CodeTokenNotFound       FailureCode = "token_not_found"
	CodeUnsupportedFormat   FailureCode = "unsupported_format"
	CodeProviderError       FailureCode = "challenge_provider_error"
	CodeProviderTimeout     FailureCode = "challenge_provider_timeout"
	CodeDescriptorInvalid   FailureCode = "challenge_descriptor_invalid"
	CodeUpstreamValidation  FailureCode = "upstream_validation"
	CodeUpstreamUnavailable FailureCode = "upstream_unavailable"
	CodeParseAmbiguous      FailureCode = "parse_ambiguous"
)

// SourceError is the uniform failure envelope for one adapter invocation.
// It always names the originating source so failures from concurrent
// lookups cannot be confused.
type SourceError struct {
	Source string
	Code   FailureCode
	Reason string
	Err    error
}

func (e *SourceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("source %s: %s: %s: %v", e.Source, e.Code, e.Reason, e.Err)
	}
	return fmt.Sprintf("source %s: %s: %s", e.Source, e.Code, e.Reason)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// Fail builds a SourceError without an underlying cause
func Fail(source string, code FailureCode, reason string) *SourceError {
	return &SourceError{Source: source, Code: code, Reason: reason}
}

// FailWrap builds a SourceError wrapping an underlying cause
func FailWrap(source string, code FailureCode, reason string, err error) *SourceError {
	return &SourceError{Source: source, Code: code, Reason: reason, Err: err}
}
