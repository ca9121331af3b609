// Package agenterrors classifies runtime errors into the taxonomy spec.md
// §7 defines, so that every component surfaces failures the same way:
// wrapped in a ToolResult, a JobCompletionResult, or a WebUIEvent::Error —
// never silently.
package agenterrors

import (
	"errors"
	"fmt"
	"strings"
)

// Class discriminates the §7 error taxonomy.
type Class string

const (
	// ClassTransient covers model/MCP network calls; retried at most once
	// (MCP auth refresh) or surfaced as Failed (model request).
	ClassTransient Class = "transient"
	// ClassProtocol covers malformed stream frames and schema-invalid tool
	// arguments; the job ends with Failed and an operator hint.
	ClassProtocol Class = "protocol"
	// ClassPolicy covers tool denial, dangerous commands, unknown tools;
	// appended as a ToolResult{status: error}, no job termination.
	ClassPolicy Class = "policy"
	// ClassInvariant covers history mutations that violate alternation or
	// tool-use/result pairing; a programmer error, logged and rejected.
	ClassInvariant Class = "invariant"
	// ClassConfiguration covers missing/invalid config; the affected
	// feature is disabled with a single warning log.
	ClassConfiguration Class = "configuration"
	// ClassCancellation is not an error; it produces JobCompleted{Cancelled}.
	ClassCancellation Class = "cancellation"
)

// Error wraps an underlying cause with its taxonomy class and, for
// transient/protocol errors, a short operator-facing hint.
type Error struct {
	Class Class
	Hint  string
	Err   error
}

func (e *Error) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("%s: %s: %v", e.Class, e.Hint, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Class, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a classified error.
func New(class Class, hint string, err error) *Error {
	return &Error{Class: class, Hint: hint, Err: err}
}

// Transient wraps err as a transient network failure.
func Transient(err error) *Error { return New(ClassTransient, "", err) }

// Protocol wraps err as a protocol violation, with an operator hint.
func Protocol(hint string, err error) *Error { return New(ClassProtocol, hint, err) }

// Policy wraps err as a policy rejection (never terminates the job).
func Policy(err error) *Error { return New(ClassPolicy, "", err) }

// Invariant wraps err as a programmer-error invariant violation.
func Invariant(err error) *Error { return New(ClassInvariant, "", err) }

// Configuration wraps err as a configuration problem; callers should log a
// single warning and disable the affected feature rather than fail the
// whole session.
func Configuration(err error) *Error { return New(ClassConfiguration, "", err) }

// ClassOf extracts the taxonomy class from err, defaulting to
// ClassTransient for unclassified errors (the conservative choice: retry
// at most once, then surface).
func ClassOf(err error) Class {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Class
	}
	return ClassTransient
}

// OperatorHint classifies common provider failures (authentication, rate
// limiting) into a short human-readable hint, the form spec.md §4.5
// requires for Failed{error}.
func OperatorHint(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	switch {
	case containsAny(msg, "401", "unauthorized", "invalid api key", "invalid_api_key"):
		return "check the provider API key"
	case containsAny(msg, "429", "rate limit", "rate_limit"):
		return "rate limited; retry after backing off"
	case containsAny(msg, "timeout", "deadline exceeded"):
		return "request timed out"
	default:
		return ""
	}
}

func containsAny(haystack string, needles ...string) bool {
	lower := strings.ToLower(haystack)
	for _, n := range needles {
		if strings.Contains(lower, strings.ToLower(n)) {
			return true
		}
	}
	return false
}
