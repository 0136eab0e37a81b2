package reader

import (
	"fmt"
	"strings"

	"climateprep/domain/core"
)

// Attempt is one decoding strategy that was tried
type Attempt struct {
	Strategy string `json:"strategy"`
	Error    string `json:"error"`
}

// ParseError reports that no decoding strategy could read the upload
type ParseError struct {
	Format   Format
	Attempts []Attempt
	Cause    error
}

func newParseError(format Format, cause error, attempts ...Attempt) *ParseError {
	return &ParseError{Format: format, Attempts: attempts, Cause: cause}
}

func (e *ParseError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: could not parse %s", core.ErrParse.Error(), e.Format)
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	if len(e.Attempts) > 0 {
		parts := make([]string, len(e.Attempts))
		for i, a := range e.Attempts {
			parts[i] = fmt.Sprintf("%s (%s)", a.Strategy, a.Error)
		}
		fmt.Fprintf(&b, "; tried %s", strings.Join(parts, ", "))
	}
	return b.String()
}

// Unwrap exposes both the sentinel and the underlying cause
func (e *ParseError) Unwrap() []error {
	if e.Cause == nil {
		return []error{core.ErrParse}
	}
	return []error{core.ErrParse, e.Cause}
}

// Strategies lists the attempted strategy names
func (e *ParseError) Strategies() []string {
	out := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		out[i] = a.Strategy
	}
	return out
}
