// Package engineerr defines the engine's closed error taxonomy
// (spec.md §7): a small set of kinds that every component classifies
// into, so callers can switch on Kind via errors.As instead of string
// matching, the way the reference service classifies provider errors
// into a fixed category set.
package engineerr

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Kind is one of the error categories from spec.md §7.
type Kind string

const (
	// KindValidation: JobSpec malformed. Surfaced to caller, job not started.
	KindValidation Kind = "validation"
	// KindSourceUnavailable: adapter could not produce results after retries.
	KindSourceUnavailable Kind = "source_unavailable"
	// KindSourceThrottled: distinguished for observability; handled by the rate limiter.
	KindSourceThrottled Kind = "source_throttled"
	// KindNormalizationDrop: a record could not be parsed; dropped.
	KindNormalizationDrop Kind = "normalization_drop"
	// KindEngineBusy: concurrency caps exhausted at admission.
	KindEngineBusy Kind = "engine_busy"
)

// Error is the engine's single error type; every internal failure that
// crosses a package boundary as a classified condition wraps one of
// these rather than returning an ad-hoc error.
type Error struct {
	Kind     Kind
	SourceID string
	Err      error
}

func (e *Error) Error() string {
	msg := Sanitize(e.Err.Error())
	if e.SourceID != "" {
		return fmt.Sprintf("%s (%s): %s", e.Kind, e.SourceID, msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// New constructs a classified engine error.
func New(kind Kind, sourceID string, err error) *Error {
	return &Error{Kind: kind, SourceID: sourceID, Err: err}
}

// Is reports whether err wraps an *Error of the given kind (found via
// errors.As).
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

var sensitiveKeyPattern = regexp.MustCompile(`(?i)(api[_-]?key|token|bearer|secret|password|credential|authorization)`)

// Sanitize strips query strings/userinfo from any URL-shaped substring
// and masks obviously sensitive key=value pairs, so a transport error's
// underlying request URL or credential never reaches a log line or an
// API response (spec.md §7: "user-visible failure messages do not leak
// credentials or internal URLs").
func Sanitize(msg string) string {
	fields := strings.Fields(msg)
	for i, f := range fields {
		if u, err := url.Parse(f); err == nil && u.Scheme != "" && u.Host != "" {
			u.RawQuery = ""
			u.User = nil
			fields[i] = u.Scheme + "://" + u.Host + u.Path
			continue
		}
		if kv := strings.SplitN(f, "=", 2); len(kv) == 2 && sensitiveKeyPattern.MatchString(kv[0]) {
			fields[i] = kv[0] + "=***"
		}
	}
	return strings.Join(fields, " ")
}
