package rules

import (
	"errors"
	"fmt"
)

// ScoringError reports a malformed record. It fails the single record being
// scored, never the factor or the run.
type ScoringError struct {
	Rule   string
	Reason string
}

func (e *ScoringError) Error() string {
	return fmt.Sprintf("rules: %s: %s", e.Rule, e.Reason)
}

func newScoringError(rule, format string, args ...any) *ScoringError {
	return &ScoringError{Rule: rule, Reason: fmt.Sprintf(format, args...)}
}

// IsScoringError reports whether err (or any error in its chain) is a ScoringError.
func IsScoringError(err error) bool {
	var se *ScoringError
	return errors.As(err, &se)
}
