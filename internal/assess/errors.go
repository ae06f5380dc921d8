package assess

import (
	"fmt"
	"strings"
)

// MissingRequiredFieldError is returned when a selected layer lacks a column
// its factor needs. It aborts the run before any factor is processed.
type MissingRequiredFieldError struct {
	Factor  string
	Layer   string
	Missing []string
}

func (e *MissingRequiredFieldError) Error() string {
	return fmt.Sprintf("assess: factor %s: layer %s is missing required fields: %s",
		e.Factor, e.Layer, strings.Join(e.Missing, ", "))
}

// ExternalServiceError wraps a proximity service failure for one factor.
// The factor is skipped and the run continues.
type ExternalServiceError struct {
	Factor string
	Layer  string
	Op     string
	Err    error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("assess: factor %s: %s on %s: %v", e.Factor, e.Op, e.Layer, e.Err)
}

func (e *ExternalServiceError) Unwrap() error {
	return e.Err
}
