package model

import (
	"fmt"
	"strings"
)

// ValidationError lists every problem found in a configuration at once.
type ValidationError struct {
	// Unknown holds keys which are not recognized.
	Unknown []string
	// Missing holds required keys which were not given.
	Missing []string
	// Invalid holds descriptions of values which are not acceptable.
	Invalid []string
}

// Unknownf records an unrecognized key.
func (e *ValidationError) Unknownf(format string, a ...interface{}) {
	e.Unknown = append(e.Unknown, fmt.Sprintf(format, a...))
}

// Missingf records a missing required key.
func (e *ValidationError) Missingf(format string, a ...interface{}) {
	e.Missing = append(e.Missing, fmt.Sprintf(format, a...))
}

// Invalidf records an unacceptable value.
func (e *ValidationError) Invalidf(format string, a ...interface{}) {
	e.Invalid = append(e.Invalid, fmt.Sprintf(format, a...))
}

// Empty returns true if no problem was recorded.
func (e *ValidationError) Empty() bool {
	return len(e.Unknown) == 0 && len(e.Missing) == 0 && len(e.Invalid) == 0
}

// Err returns e if any problem was recorded and nil otherwise.
func (e *ValidationError) Err() error {
	if e.Empty() {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	var parts []string
	if len(e.Unknown) > 0 {
		parts = append(parts, "unrecognized keys: "+strings.Join(e.Unknown, ", "))
	}
	if len(e.Missing) > 0 {
		parts = append(parts, "missing keys: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "invalid values: "+strings.Join(e.Invalid, "; "))
	}
	return "invalid model configuration: " + strings.Join(parts, "; ")
}
